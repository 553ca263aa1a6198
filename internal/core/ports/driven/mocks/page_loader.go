package mocks

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// MockPageLoader returns canned pages keyed by file base name.
type MockPageLoader struct {
	mu    sync.RWMutex
	pages map[string][]domain.Page
	errs  map[string]error
}

// NewMockPageLoader creates a new MockPageLoader
func NewMockPageLoader() *MockPageLoader {
	return &MockPageLoader{
		pages: make(map[string][]domain.Page),
		errs:  make(map[string]error),
	}
}

// SetPages registers the pages returned for a file name.
func (m *MockPageLoader) SetPages(name string, texts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages := make([]domain.Page, len(texts))
	for i, t := range texts {
		pages[i] = domain.Page{Number: i + 1, Text: t}
	}
	m.pages[name] = pages
}

// SetError makes Load fail for a file name.
func (m *MockPageLoader) SetError(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[name] = err
}

func (m *MockPageLoader) Load(ctx context.Context, path string) ([]domain.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name := filepath.Base(path)
	if err, ok := m.errs[name]; ok {
		return nil, err
	}
	pages, ok := m.pages[name]
	if !ok {
		return nil, fmt.Errorf("no pages registered for %s", name)
	}
	return pages, nil
}

func (m *MockPageLoader) Name() string {
	return "mock"
}
