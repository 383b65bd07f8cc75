// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pdiddy/spark-engine/pkg/types"
)

// ParseSchema decodes a schema from its JSON file format:
//
//	{"context": ..., "entities": [{"name": ..., "description": ..., "examples": [...]}]}
//
// The optional prompt_description field is accepted for compatibility with
// previously saved schemas. The decoded schema is validated.
func ParseSchema(data []byte) (*types.Schema, error) {
	var s types.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing schema JSON: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSchema reads and validates a schema JSON file.
func LoadSchema(path string) (*types.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}
	return ParseSchema(data)
}

// SaveSchema writes a schema to path as indented JSON. The prompt
// description is regenerated from the current entity names before saving so
// the stored instructions never drift from the entity list.
func SaveSchema(path string, s *types.Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.PromptDescription = BuildPromptDescription(s)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// BuildPromptDescription derives the extraction instruction block from the
// schema's entity names. Empty for a schema with no entities.
func BuildPromptDescription(s *types.Schema) string {
	if len(s.Entities) == 0 {
		return ""
	}
	return fmt.Sprintf("Extract %s in order of appearance.\n"+
		"Use exact text for extractions. Do not paraphrase or overlap entities.\n"+
		"Provide meaningful attributes for each entity to add context.",
		strings.Join(s.EntityNames(), ", "))
}
