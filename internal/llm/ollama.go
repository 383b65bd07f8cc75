// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/spark-engine/internal/httputil"
	"github.com/pdiddy/spark-engine/pkg/types"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
)

// OllamaBackend annotates documents through a local Ollama server's chat API.
// No API key is required.
type OllamaBackend struct {
	baseURL   string
	model     string
	maxTokens int
	client    *http.Client
}

// NewOllamaBackend builds an Ollama backend from configuration.
func NewOllamaBackend(cfg types.AIConfig) (*OllamaBackend, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}

	client := &http.Client{}
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}

	return &OllamaBackend{
		baseURL:   baseURL,
		model:     model,
		maxTokens: maxTokensOrDefault(cfg.MaxTokens),
		client:    client,
	}, nil
}

// Name returns the backend identifier.
func (b *OllamaBackend) Name() string { return "ollama" }

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Format   string          `json:"format,omitempty"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// Annotate sends one chat request in JSON mode and decodes the spans.
func (b *OllamaBackend) Annotate(ctx context.Context, prompt string) (Response, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:    b.model,
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
		Format:   "json",
		Stream:   false,
		Options: ollamaOptions{
			Temperature: 0,
			NumPredict:  b.maxTokens,
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, b.client, req, 0)
	if err != nil {
		return Response{}, fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return Response{}, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, string(respBody))
	}

	var oResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return Response{}, fmt.Errorf("decoding ollama response: %w", err)
	}

	spans, err := decodeSpans(oResp.Message.Content)
	if err != nil {
		return Response{}, err
	}
	return Response{Spans: spans}, nil
}
