// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the spark-engine pipeline:
// the extraction schema, ingested records, per-record outcomes, batch
// statistics, and stage configuration.
package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Entity is a single named field the user wants extracted from each record
// (e.g. "Disease"). Examples are verbatim spans taken from the schema's
// Context text and serve as few-shot guidance for the extraction backend.
type Entity struct {
	// Name labels the entity and becomes a column in the output table.
	Name string `json:"name" yaml:"name" validate:"required"`

	// Description explains what the entity represents. Optional.
	Description string `json:"description" yaml:"description"`

	// Examples are sample values drawn from the Context text. May be empty.
	Examples []string `json:"examples" yaml:"examples"`
}

// Schema describes an extraction task: a labeled example document plus the
// set of entities to pull out of each record. Entity order is significant
// and is preserved through extraction and export.
type Schema struct {
	// Context is an example title and abstract containing instances of the
	// entities, used as the few-shot example document.
	Context string `json:"context" yaml:"context"`

	// PromptDescription is the extraction instruction block. It is derived
	// from the entity names on save and regenerated rather than authored.
	PromptDescription string `json:"prompt_description,omitempty" yaml:"prompt_description,omitempty"`

	// Entities lists the fields to extract, in column order.
	Entities []Entity `json:"entities" yaml:"entities" validate:"unique=Name,dive"`
}

// SchemaError reports an invalid schema. It is fatal to a batch: no
// extraction calls are made when the schema does not validate.
type SchemaError struct {
	Msg string
}

func (e *SchemaError) Error() string {
	return "invalid schema: " + e.Msg
}

var schemaValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks structural invariants: every entity has a non-empty name
// and names are unique (case-sensitive). The tag set carries both rules;
// only the whitespace-only-name case needs a manual check, since "required"
// accepts strings of spaces. An empty entity list is legal; it yields an
// empty extraction for every record.
func (s *Schema) Validate() error {
	if err := schemaValidator.Struct(s); err != nil {
		return &SchemaError{Msg: s.validationErrMsg(err)}
	}

	for _, e := range s.Entities {
		if strings.TrimSpace(e.Name) == "" {
			return &SchemaError{Msg: "entity name must not be empty"}
		}
	}
	return nil
}

// EntityNames returns the entity names in schema order.
func (s *Schema) EntityNames() []string {
	names := make([]string, len(s.Entities))
	for i, e := range s.Entities {
		names[i] = e.Name
	}
	return names
}

// validationErrMsg maps validator output onto the structural rules the tag
// set encodes: entity names are required and unique.
func (s *Schema) validationErrMsg(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Tag() {
		case "unique":
			return fmt.Sprintf("duplicate entity name %q", s.firstDuplicateName())
		case "required":
			return "entity name must not be empty"
		}
	}
	return err.Error()
}

// firstDuplicateName returns the first entity name that repeats, for the
// duplicate error message.
func (s *Schema) firstDuplicateName() string {
	seen := make(map[string]bool, len(s.Entities))
	for _, e := range s.Entities {
		if seen[e.Name] {
			return e.Name
		}
		seen[e.Name] = true
	}
	return ""
}
