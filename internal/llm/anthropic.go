// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pdiddy/spark-engine/pkg/types"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicBackend annotates documents through the Anthropic Messages API.
// Structured output is obtained with a forced tool call whose input schema
// matches the annotation shape.
type AnthropicBackend struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicBackend builds an Anthropic backend from configuration.
func NewAnthropicBackend(cfg types.AIConfig) (*AnthropicBackend, error) {
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	return &AnthropicBackend{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokensOrDefault(cfg.MaxTokens),
	}, nil
}

// Name returns the backend identifier.
func (b *AnthropicBackend) Name() string { return "anthropic" }

// Annotate sends one message request and decodes the spans from the forced
// tool call input.
func (b *AnthropicBackend) Annotate(ctx context.Context, prompt string) (Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(b.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Tools: []anthropic.ToolUnionParam{
			{
				OfTool: &anthropic.ToolParam{
					Name:        "record_extractions",
					Description: anthropic.String("Record the entity spans extracted from the document"),
					InputSchema: anthropic.ToolInputSchemaParam{
						Type: "object",
						Properties: map[string]any{
							"extractions": map[string]any{
								"type": "array",
								"items": map[string]any{
									"type": "object",
									"properties": map[string]any{
										"entity": map[string]any{"type": "string"},
										"text":   map[string]any{"type": "string"},
									},
									"required": []string{"entity", "text"},
								},
							},
						},
						Required: []string{"extractions"},
					},
				},
			},
		},
		ToolChoice: anthropic.ToolChoiceParamOfTool("record_extractions"),
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic API error: %w", err)
	}

	for _, block := range resp.Content {
		if tool, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			raw, err := json.Marshal(tool.Input)
			if err != nil {
				return Response{}, fmt.Errorf("marshaling tool input: %w", err)
			}
			spans, err := decodeSpans(string(raw))
			if err != nil {
				return Response{}, err
			}
			return Response{Spans: spans}, nil
		}
	}

	return Response{}, fmt.Errorf("anthropic API returned no tool call")
}
