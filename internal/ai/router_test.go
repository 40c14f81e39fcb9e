package ai_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ggproduction/onboarding/internal/ai"
)

func TestRouter_SingleProvider(t *testing.T) {
	router := ai.NewRouter()
	mock := ai.NewMockProvider("Hello!")
	router.Register("openai", mock)

	resp, err := router.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Hello!" {
		t.Errorf("Content = %q, want %q", resp.Content, "Hello!")
	}
	if resp.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", resp.Provider)
	}
}

func TestRouter_Fallback(t *testing.T) {
	router := ai.NewRouter()

	failing := &ai.MockProvider{Err: errors.New("rate limited")}
	fallback := ai.NewMockProvider("Fallback response")

	router.Register("openai", failing)
	router.Register("ollama", fallback)

	resp, err := router.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Fallback response" || resp.Provider != "ollama" {
		t.Errorf("resp = %+v, want fallback from ollama", resp)
	}
	if failing.Calls != 1 {
		t.Errorf("failing.Calls = %d, want 1", failing.Calls)
	}
}

func TestRouter_AllProvidersFail(t *testing.T) {
	router := ai.NewRouter()

	router.Register("openai", &ai.MockProvider{Err: errors.New("fail 1")})
	router.Register("ollama", &ai.MockProvider{Err: errors.New("fail 2")})

	_, err := router.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	})

	if err == nil {
		t.Fatal("Complete() should return error when all providers fail")
	}
	for _, want := range []string{"openai: fail 1", "ollama: fail 2"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestRouter_NoProviders(t *testing.T) {
	router := ai.NewRouter()

	if router.HasProvider() {
		t.Error("HasProvider() = true, want false")
	}
	_, err := router.Complete(context.Background(), ai.CompletionRequest{})
	if !errors.Is(err, ai.ErrNoProvider) {
		t.Errorf("Complete() error = %v, want ErrNoProvider", err)
	}
}

func TestRouter_CancelledContext(t *testing.T) {
	router := ai.NewRouter()
	mock := ai.NewMockProvider("never")
	router.Register("openai", mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := router.Complete(ctx, ai.CompletionRequest{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Complete() error = %v, want context.Canceled", err)
	}
	if mock.Calls != 0 {
		t.Errorf("provider called %d times after cancel", mock.Calls)
	}
}

func TestRouter_TaskModel(t *testing.T) {
	router := ai.NewRouter()
	mock := ai.NewMockProvider("{}")
	router.Register("openai", mock)
	router.SetTaskModel(ai.TaskQuizGeneration, "gpt-4o")

	if _, err := router.Complete(context.Background(), ai.CompletionRequest{Task: ai.TaskQuizGeneration}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if mock.LastRequest.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", mock.LastRequest.Model)
	}

	if _, err := router.Complete(context.Background(), ai.CompletionRequest{Task: ai.TaskQuizGeneration, Model: "explicit"}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if mock.LastRequest.Model != "explicit" {
		t.Errorf("Model = %q, want explicit request model kept", mock.LastRequest.Model)
	}
}

func TestRouter_RegisterTwiceKeepsOrder(t *testing.T) {
	router := ai.NewRouter()
	router.Register("openai", ai.NewMockProvider("a"))
	router.Register("google", ai.NewMockProvider("b"))
	router.Register("openai", ai.NewMockProvider("c"))

	got := router.Providers()
	if len(got) != 2 || got[0] != "openai" || got[1] != "google" {
		t.Errorf("Providers() = %v, want [openai google]", got)
	}
	resp, _ := router.Complete(context.Background(), ai.CompletionRequest{})
	if resp.Content != "c" {
		t.Errorf("Content = %q, want replacement provider output", resp.Content)
	}
}

func TestMockProvider_ResponsesInOrder(t *testing.T) {
	mock := ai.NewMockProvider("first", "second")
	var got []string
	for range 3 {
		resp, err := mock.Complete(context.Background(), ai.CompletionRequest{})
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		got = append(got, resp.Content)
	}
	want := []string{"first", "second", "second"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("response %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTaskType_String(t *testing.T) {
	tests := []struct {
		task ai.TaskType
		want string
	}{
		{ai.TaskQuizGeneration, "quiz_generation"},
		{ai.TaskContentReview, "content_review"},
		{ai.TaskType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.task.String(); got != tt.want {
			t.Errorf("TaskType(%d).String() = %q, want %q", tt.task, got, tt.want)
		}
	}
}
