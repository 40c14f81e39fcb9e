package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// chatServer answers chat completions with content and records the last
// request it saw.
func chatServer(t *testing.T, content string, last *openaiRequest, lastHeader *http.Header) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" && r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if last != nil {
			*last = req
		}
		if lastHeader != nil {
			*lastHeader = r.Header.Clone()
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}],"model":%q,"usage":{"prompt_tokens":10,"completion_tokens":5}}`,
			content, req.Model)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var req openaiRequest
	var header http.Header
	server := chatServer(t, "Hi there!", &req, &header)

	provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))
	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages:    []Message{{Role: "system", Content: "be brief"}, {Role: "user", Content: "hello"}},
		Model:       "gpt-4o",
		Temperature: 0.7,
		MaxTokens:   3000,
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Hi there!" {
		t.Errorf("content = %q, want %q", resp.Content, "Hi there!")
	}
	if resp.InputTokens != 10 || resp.OutputTokens != 5 {
		t.Errorf("tokens = %d/%d, want 10/5", resp.InputTokens, resp.OutputTokens)
	}
	if header.Get("Authorization") != "Bearer test-key" {
		t.Errorf("unexpected auth header: %s", header.Get("Authorization"))
	}
	if req.Model != "gpt-4o" || len(req.Messages) != 2 || req.MaxTokens != 3000 {
		t.Errorf("unexpected request: %+v", req)
	}
	if req.Temperature == nil || *req.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", req.Temperature)
	}
	if req.ResponseFormat != nil {
		t.Errorf("response_format = %+v, want unset", req.ResponseFormat)
	}
}

func TestOpenAIProvider_JSONMode(t *testing.T) {
	var req openaiRequest
	server := chatServer(t, "{}", &req, nil)

	provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))
	if _, err := provider.Complete(context.Background(), CompletionRequest{JSONMode: true}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v, want json_object", req.ResponseFormat)
	}
}

func TestOpenAIProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "rate limited"}`))
	}))
	defer server.Close()

	provider := NewDeepSeekProvider("test-key", WithBaseURL(server.URL))
	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})

	if err == nil {
		t.Fatal("Complete() should return error on API error")
	}
	if !strings.Contains(err.Error(), "deepseek api error (status 429)") {
		t.Errorf("error = %q, want provider name and status", err)
	}
}

func TestOpenAIProvider_Complete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))
	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})

	if err == nil {
		t.Fatal("Complete() should return error when no choices")
	}
}

func TestOpenAICompatibleProviders(t *testing.T) {
	tests := []struct {
		name      string
		build     func(url string) *OpenAIProvider
		wantModel string
		wantAuth  string
		header    string
	}{
		{"openai", func(url string) *OpenAIProvider { return NewOpenAIProvider("k", WithBaseURL(url)) }, "gpt-4o-mini", "Bearer k", ""},
		{"deepseek", func(url string) *OpenAIProvider { return NewDeepSeekProvider("ds", WithBaseURL(url)) }, "deepseek-chat", "Bearer ds", ""},
		{"openrouter", func(url string) *OpenAIProvider { return NewOpenRouterProvider("or", WithBaseURL(url)) }, "qwen/qwen-2.5-72b-instruct", "Bearer or", "X-Title"},
		{"ollama", func(url string) *OpenAIProvider { return NewOllamaProvider(url) }, "llama3.1", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req openaiRequest
			var header http.Header
			server := chatServer(t, "ok", &req, &header)

			resp, err := tt.build(server.URL).Complete(context.Background(), CompletionRequest{
				Messages: []Message{{Role: "user", Content: "hi"}},
			})
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if req.Model != tt.wantModel || resp.Model != tt.wantModel {
				t.Errorf("model = %q (resp %q), want %q", req.Model, resp.Model, tt.wantModel)
			}
			if got := header.Get("Authorization"); got != tt.wantAuth {
				t.Errorf("Authorization = %q, want %q", got, tt.wantAuth)
			}
			if tt.header != "" && header.Get(tt.header) == "" {
				t.Errorf("header %s missing", tt.header)
			}
		})
	}
}

func TestOpenAIProvider_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy", http.StatusUnauthorized, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/models" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))
			err := provider.HealthCheck(context.Background())

			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
