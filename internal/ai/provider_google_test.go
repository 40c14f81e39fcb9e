package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func geminiServer(t *testing.T, parts []string, got *geminiRequest, gotPath *string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotPath != nil {
			*gotPath = r.URL.Path
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key = %q, want test-key", r.URL.Query().Get("key"))
		}
		if got != nil {
			json.NewDecoder(r.Body).Decode(got)
		}
		textParts := make([]map[string]string, len(parts))
		for i, p := range parts {
			textParts[i] = map[string]string{"text": p}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates":    []map[string]any{{"content": map[string]any{"parts": textParts}}},
			"usageMetadata": map[string]int{"promptTokenCount": 8, "candidatesTokenCount": 4},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGoogleProvider_Complete(t *testing.T) {
	var path string
	server := geminiServer(t, []string{"Gemini ", "response"}, nil, &path)

	provider := NewGoogleProvider("test-key", WithGoogleBaseURL(server.URL))
	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if path != "/models/gemini-2.5-flash:generateContent" {
		t.Errorf("path = %q", path)
	}
	if resp.Content != "Gemini response" {
		t.Errorf("content = %q, want parts joined", resp.Content)
	}
	if resp.InputTokens != 8 || resp.OutputTokens != 4 {
		t.Errorf("tokens = %d/%d, want 8/4", resp.InputTokens, resp.OutputTokens)
	}
}

func TestGoogleProvider_Complete_RoleMappings(t *testing.T) {
	var req geminiRequest
	server := geminiServer(t, []string{"ok"}, &req, nil)

	provider := NewGoogleProvider("test-key", WithGoogleBaseURL(server.URL))
	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: "You write quizzes."},
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi"},
			{Role: "user", Content: "quiz me on blinds"},
		},
		JSONMode:  true,
		MaxTokens: 3000,
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(req.Contents) != 3 {
		t.Fatalf("got %d contents, want 3 (system moves to systemInstruction)", len(req.Contents))
	}
	if req.Contents[1].Role != "model" {
		t.Errorf("assistant role mapped to %q, want %q", req.Contents[1].Role, "model")
	}
	if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "You write quizzes." {
		t.Errorf("systemInstruction = %+v", req.SystemInstruction)
	}
	if req.GenerationConfig == nil || req.GenerationConfig.ResponseMimeType != "application/json" ||
		req.GenerationConfig.MaxOutputTokens != 3000 {
		t.Errorf("generationConfig = %+v", req.GenerationConfig)
	}
}

func TestGoogleProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": "forbidden"}`))
	}))
	defer server.Close()

	provider := NewGoogleProvider("test-key", WithGoogleBaseURL(server.URL))
	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})

	if err == nil {
		t.Fatal("Complete() should return error on API error")
	}
}

func TestGoogleProvider_Complete_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	provider := NewGoogleProvider("test-key", WithGoogleBaseURL(server.URL))
	if _, err := provider.Complete(context.Background(), CompletionRequest{}); err == nil {
		t.Fatal("Complete() should return error when no candidates")
	}
}

func TestGoogleProvider_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy", http.StatusForbidden, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.Contains(r.URL.Path, "/models") {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			provider := NewGoogleProvider("test-key", WithGoogleBaseURL(server.URL))
			err := provider.HealthCheck(context.Background())

			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
