// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/pdiddy/spark-engine/internal/httputil"
	"github.com/pdiddy/spark-engine/pkg/types"
)

func TestMain(m *testing.M) {
	// Avoid real backoff sleeps when a test server returns 429/503.
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

func TestOllamaAnnotate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Stream {
			t.Error("stream should be disabled")
		}
		if req.Format != "json" {
			t.Errorf("format = %q, want json", req.Format)
		}

		resp := ollamaResponse{
			Message: ollamaMessage{
				Role:    "assistant",
				Content: `{"extractions": [{"entity": "Disease", "text": "diabetes"}]}`,
			},
			Done: true,
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	backend, err := NewOllamaBackend(types.AIConfig{BaseURL: ts.URL, Model: "test-model"})
	if err != nil {
		t.Fatalf("NewOllamaBackend() error = %v", err)
	}

	resp, err := backend.Annotate(context.Background(), "extract things")
	if err != nil {
		t.Fatalf("Annotate() error = %v", err)
	}
	if len(resp.Spans) != 1 || resp.Spans[0].Entity != "Disease" || resp.Spans[0].Text != "diabetes" {
		t.Errorf("Annotate() spans = %+v", resp.Spans)
	}
}

func TestOllamaAnnotateServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer ts.Close()

	backend, err := NewOllamaBackend(types.AIConfig{BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("NewOllamaBackend() error = %v", err)
	}

	if _, err := backend.Annotate(context.Background(), "extract"); err == nil {
		t.Fatal("Annotate() should fail on a non-200 response")
	}
}
