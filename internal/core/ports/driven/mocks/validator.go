package mocks

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// MockDocumentValidator accepts any path ending in .pdf unless ValidateFn overrides it.
type MockDocumentValidator struct {
	mu         sync.Mutex
	ValidateFn func(path string) error
	Validated  []string
}

// NewMockDocumentValidator creates a new MockDocumentValidator
func NewMockDocumentValidator() *MockDocumentValidator {
	return &MockDocumentValidator{}
}

func (m *MockDocumentValidator) Validate(path string) error {
	m.mu.Lock()
	m.Validated = append(m.Validated, path)
	fn := m.ValidateFn
	m.mu.Unlock()

	if fn != nil {
		return fn(path)
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return domain.NewError(domain.KindValidation, "File must have .pdf extension")
	}
	return nil
}
