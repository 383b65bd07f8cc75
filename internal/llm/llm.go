// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps the LLM services that perform the actual entity
// annotation. Each backend receives a fully rendered prompt and returns the
// raw extracted spans; shaping them into per-entity results is the caller's
// concern.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/spark-engine/pkg/types"
)

// Span is one raw extraction returned by a backend: an entity name and the
// verbatim text matched for it. Entity names outside the caller's schema and
// duplicate spans are expected; callers filter them.
type Span struct {
	Entity string `json:"entity"`
	Text   string `json:"text"`
}

// Response holds the raw spans from one annotation call.
type Response struct {
	Spans []Span
}

// Backend annotates one document per call. Implementations make exactly one
// external request per Annotate invocation; batching and looping belong to
// the orchestrator.
type Backend interface {
	Name() string
	Annotate(ctx context.Context, prompt string) (Response, error)
}

// Factory builds a backend from configuration.
type Factory func(cfg types.AIConfig) (Backend, error)

var registry = map[string]Factory{
	"openai": func(cfg types.AIConfig) (Backend, error) {
		return NewOpenAIBackend(cfg)
	},
	"anthropic": func(cfg types.AIConfig) (Backend, error) {
		return NewAnthropicBackend(cfg)
	},
	"ollama": func(cfg types.AIConfig) (Backend, error) {
		return NewOllamaBackend(cfg)
	},
}

// New builds the backend named by cfg.Backend.
func New(cfg types.AIConfig) (Backend, error) {
	factory, ok := registry[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (available: %s)", cfg.Backend, strings.Join(Available(), ", "))
	}
	return factory(cfg)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detect picks a backend from the loaded secrets when none is configured:
// openai-api-key wins over anthropic-api-key; with neither, a local Ollama
// server is assumed.
func Detect(secrets map[string]string) (backend, apiKey string) {
	if key := secrets["openai-api-key"]; key != "" {
		return "openai", key
	}
	if key := secrets["anthropic-api-key"]; key != "" {
		return "anthropic", key
	}
	return "ollama", ""
}

// annotationReply is the JSON object every backend asks the model to return.
type annotationReply struct {
	Extractions []Span `json:"extractions"`
}

// decodeSpans parses a model reply into spans. Markdown code fences around
// the JSON are tolerated; anything else unparseable is an error, since a
// malformed reply means the whole call failed.
func decodeSpans(reply string) ([]Span, error) {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return nil, fmt.Errorf("empty model reply")
	}

	var parsed annotationReply
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("parsing model reply: %w", err)
	}
	return parsed.Extractions, nil
}
