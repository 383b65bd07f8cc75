// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Field is one passthrough metadata column on a Record.
type Field struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Record is one bibliographic item handed to the pipeline by ingestion.
// Title and Abstract are always present (possibly empty); Metadata carries
// every other ingested column verbatim, in source order, so the output table
// can be a superset of the input columns.
type Record struct {
	Title    string  `json:"title" yaml:"title"`
	Abstract string  `json:"abstract" yaml:"abstract"`
	Metadata []Field `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// MetadataValue returns the value of the named passthrough column, or ""
// when the record does not carry it.
func (r Record) MetadataValue(key string) string {
	for _, f := range r.Metadata {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// CombinedText renders the document sent to the extraction backend. A record
// with both fields produces "Title: ...\n\nAbstract: ..."; a record with one
// field produces only that label; a record with neither produces "".
func (r Record) CombinedText() string {
	switch {
	case r.Title != "" && r.Abstract != "":
		return fmt.Sprintf("Title: %s\n\nAbstract: %s", r.Title, r.Abstract)
	case r.Title != "":
		return "Title: " + r.Title
	case r.Abstract != "":
		return "Abstract: " + r.Abstract
	default:
		return ""
	}
}
