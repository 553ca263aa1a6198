package mocks

import (
	"context"
	"math"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// MockVectorStore is an in-memory VectorStore for testing.
// QueryFn, when set, replaces the similarity search so tests can pin results.
type MockVectorStore struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk

	QueryFn   func(vector []float32, k int) ([]domain.RetrievedChunk, error)
	UpsertErr error
	HealthErr error

	UpsertCalls int
	QueryCalls  int
	Closed      bool
}

// NewMockVectorStore creates a new MockVectorStore
func NewMockVectorStore() *MockVectorStore {
	return &MockVectorStore{
		chunks: make(map[string]domain.Chunk),
	}
}

func (m *MockVectorStore) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls++
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	for _, c := range chunks {
		m.chunks[c.ID] = c
	}
	return nil
}

func (m *MockVectorStore) Query(ctx context.Context, vector []float32, k int) ([]domain.RetrievedChunk, error) {
	m.mu.Lock()
	m.QueryCalls++
	fn := m.QueryFn
	m.mu.Unlock()
	if fn != nil {
		return fn(vector, k)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]domain.RetrievedChunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		results = append(results, domain.RetrievedChunk{Chunk: c, Score: cosine(vector, c.Embedding)})
	}
	domain.SortRetrieved(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *MockVectorStore) Count(ctx context.Context, ids []string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, id := range ids {
		if _, ok := m.chunks[id]; ok {
			n++
		}
	}
	return n, nil
}

func (m *MockVectorStore) DeleteStale(ctx context.Context, documentID string, keep []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keepSet := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}
	removed := 0
	for id, c := range m.chunks {
		if c.DocumentID != documentID {
			continue
		}
		if _, ok := keepSet[id]; !ok {
			delete(m.chunks, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MockVectorStore) HealthCheck(ctx context.Context) error {
	return m.HealthErr
}

func (m *MockVectorStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Helper methods for testing

// Len returns the number of stored chunks.
func (m *MockVectorStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// Get returns a stored chunk by ID.
func (m *MockVectorStore) Get(id string) (domain.Chunk, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chunks[id]
	return c, ok
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
