// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract drives per-record LLM entity extraction: it shapes raw
// backend spans into uniform per-entity results, runs batches with
// per-record failure isolation, and computes aggregate statistics.
package extract

import (
	"context"
	"sort"
	"strings"

	"github.com/pdiddy/spark-engine/internal/llm"
	"github.com/pdiddy/spark-engine/pkg/types"
)

// ExtractionError reports a failed extraction call for one record. The
// orchestrator recovers it at the record boundary; it never aborts a batch.
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string {
	return "extraction failed: " + e.Cause.Error()
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Extractor adapts a backend to the pipeline's result shape. The schema is
// fixed at construction; the credential lives inside the backend, never in
// ambient state.
type Extractor struct {
	backend llm.Backend
	schema  *types.Schema
}

// NewExtractor builds an adapter for the given backend and schema. The
// schema must already be validated.
func NewExtractor(backend llm.Backend, schema *types.Schema) *Extractor {
	return &Extractor{backend: backend, schema: schema}
}

// ExtractRecord annotates one record document and returns exactly one
// ExtractionResult per schema entity, in schema order. Spans for entity
// names outside the schema are ignored; duplicate spans for an entity
// collapse by exact string match, values sorted. An empty document yields
// all-empty results without a backend call. Any backend failure is returned
// as *ExtractionError with no partial results.
func (e *Extractor) ExtractRecord(ctx context.Context, document string) ([]types.ExtractionResult, error) {
	if strings.TrimSpace(document) == "" {
		return e.emptyResults(), nil
	}

	prompt, err := BuildPrompt(e.schema, document)
	if err != nil {
		return nil, &ExtractionError{Cause: err}
	}

	resp, err := e.backend.Annotate(ctx, prompt)
	if err != nil {
		return nil, &ExtractionError{Cause: err}
	}

	return e.groupSpans(resp.Spans), nil
}

// emptyResults returns one zero-value result per schema entity.
func (e *Extractor) emptyResults() []types.ExtractionResult {
	results := make([]types.ExtractionResult, len(e.schema.Entities))
	for i, ent := range e.schema.Entities {
		results[i] = types.ExtractionResult{Entity: ent.Name}
	}
	return results
}

// groupSpans buckets raw spans by schema entity, deduplicates by exact
// string match, and sorts each entity's values.
func (e *Extractor) groupSpans(spans []llm.Span) []types.ExtractionResult {
	known := make(map[string]bool, len(e.schema.Entities))
	for _, ent := range e.schema.Entities {
		known[ent.Name] = true
	}

	values := make(map[string]map[string]bool)
	for _, span := range spans {
		if !known[span.Entity] || span.Text == "" {
			continue
		}
		if values[span.Entity] == nil {
			values[span.Entity] = make(map[string]bool)
		}
		values[span.Entity][span.Text] = true
	}

	results := make([]types.ExtractionResult, len(e.schema.Entities))
	for i, ent := range e.schema.Entities {
		var vals []string
		for v := range values[ent.Name] {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		results[i] = types.ExtractionResult{Entity: ent.Name, Values: vals}
	}
	return results
}
