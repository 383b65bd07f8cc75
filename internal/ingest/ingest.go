// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest parses bibliographic input files (RIS, CSV) into the
// uniform record list the extraction pipeline consumes. Every record carries
// a title, an abstract, and the remaining source columns as ordered
// passthrough metadata.
package ingest

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pdiddy/spark-engine/pkg/types"
)

// IngestionError reports unusable input: an unknown format or a file missing
// the required title/abstract columns.
type IngestionError struct {
	Msg string
}

func (e *IngestionError) Error() string {
	return "ingestion failed: " + e.Msg
}

// Summary holds per-file ingestion counts shown to the user before a run.
type Summary struct {
	Total        int
	WithTitle    int
	WithAbstract int
}

// Summarize counts records with non-empty title and abstract fields.
func Summarize(records []types.Record) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		if strings.TrimSpace(r.Title) != "" {
			s.WithTitle++
		}
		if strings.TrimSpace(r.Abstract) != "" {
			s.WithAbstract++
		}
	}
	return s
}

// DetectFormat guesses the input format from a file extension. RIS files are
// commonly exported as .ris or .txt.
func DetectFormat(path string) (types.IngestFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ris", ".txt":
		return types.FormatRIS, nil
	case ".csv":
		return types.FormatCSV, nil
	default:
		return "", &IngestionError{Msg: fmt.Sprintf("cannot detect format of %s: expected .ris, .txt, or .csv", filepath.Base(path))}
	}
}

// Parse reads records from r in the given format.
func Parse(r io.Reader, format types.IngestFormat) ([]types.Record, error) {
	switch format {
	case types.FormatRIS:
		return ParseRIS(r)
	case types.FormatCSV:
		return ParseCSV(r)
	default:
		return nil, &IngestionError{Msg: fmt.Sprintf("unknown format %q", format)}
	}
}
