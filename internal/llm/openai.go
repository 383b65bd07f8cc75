// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pdiddy/spark-engine/pkg/types"
)

const defaultOpenAIModel = "gpt-4o-mini"

// extractionJSONSchema constrains the model reply to the annotation shape.
var extractionJSONSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"extractions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"entity": map[string]any{"type": "string"},
					"text":   map[string]any{"type": "string"},
				},
				"required":             []string{"entity", "text"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"extractions"},
	"additionalProperties": false,
}

// OpenAIBackend annotates documents through the OpenAI chat completions API
// with structured output.
type OpenAIBackend struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAIBackend builds an OpenAI backend from configuration. BaseURL
// overrides the endpoint for OpenAI-compatible gateways.
func NewOpenAIBackend(cfg types.AIConfig) (*OpenAIBackend, error) {
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
		model = defaultOpenAIModel
	}

	return &OpenAIBackend{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokensOrDefault(cfg.MaxTokens),
	}, nil
}

// Name returns the backend identifier.
func (b *OpenAIBackend) Name() string { return "openai" }

// Annotate sends one chat completion request and decodes the spans.
func (b *OpenAIBackend) Annotate(ctx context.Context, prompt string) (Response, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(int64(b.maxTokens)),
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "entity_extractions",
					Schema: extractionJSONSchema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("openai API returned no choices")
	}

	spans, err := decodeSpans(resp.Choices[0].Message.Content)
	if err != nil {
		return Response{}, err
	}
	return Response{Spans: spans}, nil
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return 4096
	}
	return n
}
