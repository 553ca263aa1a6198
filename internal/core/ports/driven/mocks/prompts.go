package mocks

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// MockPromptStore serves a fixed template set.
type MockPromptStore struct {
	T           domain.PromptTemplates
	Err         error
	ReloadCalls int
}

// NewMockPromptStore creates a store with a minimal English template set.
func NewMockPromptStore() *MockPromptStore {
	return &MockPromptStore{
		T: domain.PromptTemplates{
			Version:        "test-1",
			Grounding:      "Answer only from the context.\n\nCONTEXT:\n{{.Context}}\n\nQUESTION:\n{{.Question}}\n",
			Refusal:        "Sorry, no relevant information was found. Please contact the graduate office.",
			NoContextError: "No relevant documents found in the database",
		},
	}
}

func (m *MockPromptStore) Templates(ctx context.Context) (domain.PromptTemplates, error) {
	return m.T, m.Err
}

func (m *MockPromptStore) Reload() error {
	m.ReloadCalls++
	return nil
}
