package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewAnthropicProvider_EmptyKey(t *testing.T) {
	_, err := NewAnthropicProvider("")
	if err == nil {
		t.Fatal("NewAnthropicProvider() should return error for empty key")
	}
}

// anthropicServer replies with text and stores the decoded request body.
func anthropicServer(t *testing.T, text string, got *anthropicRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("unexpected x-api-key: %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("unexpected anthropic-version: %s", r.Header.Get("anthropic-version"))
		}
		if got != nil {
			json.NewDecoder(r.Body).Decode(got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": text}},
			"model":   "claude-sonnet-4-6",
			"usage":   map[string]int{"input_tokens": 12, "output_tokens": 8},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAnthropicProvider_Complete(t *testing.T) {
	var body anthropicRequest
	server := anthropicServer(t, "Claude response", &body)

	provider, err := NewAnthropicProvider("test-key", WithAnthropicBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewAnthropicProvider() error = %v", err)
	}

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: "You write quizzes."},
			{Role: "system", Content: "Answer in English."},
			{Role: "user", Content: "hello"},
		},
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Claude response" {
		t.Errorf("content = %q, want %q", resp.Content, "Claude response")
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 8 {
		t.Errorf("tokens = %d/%d, want 12/8", resp.InputTokens, resp.OutputTokens)
	}
	if body.Model != "claude-sonnet-4-6" || body.MaxTokens != 4096 {
		t.Errorf("defaults = %q/%d, want claude-sonnet-4-6/4096", body.Model, body.MaxTokens)
	}
	if body.System != "You write quizzes.\n\nAnswer in English." {
		t.Errorf("system = %q", body.System)
	}
	if len(body.Messages) != 1 || body.Messages[0].Role != "user" {
		t.Errorf("messages = %+v, want only the user turn", body.Messages)
	}
}

func TestAnthropicProvider_JSONModePrefill(t *testing.T) {
	var body anthropicRequest
	server := anthropicServer(t, `"questions":[]}`, &body)

	provider, _ := NewAnthropicProvider("test-key", WithAnthropicBaseURL(server.URL))
	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "quiz please"}},
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != `{"questions":[]}` {
		t.Errorf("content = %q, want prefill restored", resp.Content)
	}
	last := body.Messages[len(body.Messages)-1]
	if last.Role != "assistant" || last.Content != "{" {
		t.Errorf("last message = %+v, want assistant prefill", last)
	}
}

func TestAnthropicProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "internal"}`))
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider("test-key", WithAnthropicBaseURL(server.URL))
	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})

	if err == nil {
		t.Fatal("Complete() should return error on API error")
	}
}

func TestAnthropicProvider_HealthCheck(t *testing.T) {
	var body anthropicRequest
	server := anthropicServer(t, "pong", &body)

	provider, _ := NewAnthropicProvider("test-key", WithAnthropicBaseURL(server.URL))
	if err := provider.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if body.MaxTokens != 1 {
		t.Errorf("health check max_tokens = %d, want 1", body.MaxTokens)
	}
}
