package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeneratorSendsPromptAndMaxTokens(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":" Submit the leave form in the HR portal. "},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	gen := NewGenerator("secret", server.URL+"/v1", "gpt-4o-mini")
	answer, err := gen.Generate(context.Background(), "Question:\nhow do I request leave?", 512)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "Submit the leave form in the HR portal." {
		t.Fatalf("unexpected answer %q", answer)
	}
	if payload["model"] != "gpt-4o-mini" || payload["max_tokens"] != float64(512) {
		t.Fatalf("unexpected payload %v", payload)
	}
	messages, _ := payload["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %v", messages)
	}
	user, _ := messages[1].(map[string]any)
	if !strings.Contains(user["content"].(string), "request leave") {
		t.Fatalf("prompt not forwarded: %v", user)
	}
}

func TestGeneratorReportsAPIStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer server.Close()

	gen := NewGenerator("secret", server.URL+"/v1", "gpt-4o-mini")
	_, err := gen.Generate(context.Background(), "prompt", 0)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestGeneratorRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	gen := NewGenerator("secret", server.URL+"/v1", "gpt-4o-mini")
	if _, err := gen.Generate(context.Background(), "prompt", 0); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}
