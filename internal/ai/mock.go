package ai

import (
	"context"
	"sync"
)

// MockProvider is a test double for AI providers. Responses are returned in
// order; the last one repeats.
type MockProvider struct {
	Responses   []string
	Err         error
	LastRequest *CompletionRequest // captures the last request for inspection
	Calls       int

	mu sync.Mutex
}

// NewMockProvider creates a MockProvider that returns the given responses.
func NewMockProvider(responses ...string) *MockProvider {
	return &MockProvider{Responses: responses}
}

func (m *MockProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRequest = &req
	m.Calls++
	if m.Err != nil {
		return CompletionResponse{}, m.Err
	}
	var content string
	if n := len(m.Responses); n > 0 {
		content = m.Responses[min(m.Calls, n)-1]
	}
	return CompletionResponse{
		Content:      content,
		Model:        "mock",
		InputTokens:  10,
		OutputTokens: len(content),
	}, nil
}

func (m *MockProvider) HealthCheck(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Err
}
