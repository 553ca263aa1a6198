package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// MockLLMService is a mock implementation of LLMService for testing.
type MockLLMService struct {
	mu sync.Mutex

	// CompleteFn overrides the default echo behaviour when set.
	CompleteFn func(prompt string, opts driven.GenerateOptions) (string, error)
	Response   string
	PingErr    error

	Prompts []string
	Options []driven.GenerateOptions
}

// NewMockLLMService creates a mock that answers every prompt with response.
func NewMockLLMService(response string) *MockLLMService {
	return &MockLLMService{Response: response}
}

func (m *MockLLMService) Complete(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.Options = append(m.Options, opts)
	fn := m.CompleteFn
	m.mu.Unlock()

	if fn != nil {
		return fn(prompt, opts)
	}
	return m.Response, nil
}

func (m *MockLLMService) Model() string {
	return "mock-llm"
}

func (m *MockLLMService) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockLLMService) Close() error {
	return nil
}

// Calls returns how many completions were requested.
func (m *MockLLMService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
