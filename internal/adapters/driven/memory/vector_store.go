package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore keeps chunks in process memory and answers queries by exact
// cosine similarity. Contents are lost on Close.
type VectorStore struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
	closed bool
}

// NewVectorStore creates an empty in-memory store.
func NewVectorStore() *VectorStore {
	return &VectorStore{chunks: make(map[string]domain.Chunk)}
}

// Upsert stores copies of chunks keyed by ID.
func (s *VectorStore) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", c.ID)
		}
		c.Metadata = c.Metadata.Merge()
		c.Embedding = append([]float32(nil), c.Embedding...)
		s.chunks[c.ID] = c
	}
	return nil
}

// Query scans every chunk and returns the k most similar.
func (s *VectorStore) Query(ctx context.Context, vector []float32, k int) ([]domain.RetrievedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("memory store is closed")
	}

	results := make([]domain.RetrievedChunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		if len(c.Embedding) != len(vector) {
			return nil, fmt.Errorf("query vector: expected %d dimensions, got %d", len(c.Embedding), len(vector))
		}
		results = append(results, domain.RetrievedChunk{Chunk: c, Score: cosine(vector, c.Embedding)})
	}

	domain.SortRetrieved(results)
	if k < 0 {
		k = 0
	}
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count returns how many of ids are stored.
func (s *VectorStore) Count(ctx context.Context, ids []string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, id := range ids {
		if _, ok := s.chunks[id]; ok {
			n++
		}
	}
	return n, nil
}

// DeleteStale removes chunks of documentID not listed in keep.
func (s *VectorStore) DeleteStale(ctx context.Context, documentID string, keep []string) (int, error) {
	kept := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, c := range s.chunks {
		if c.DocumentID != documentID {
			continue
		}
		if _, ok := kept[id]; ok {
			continue
		}
		delete(s.chunks, id)
		removed++
	}
	return removed, nil
}

// HealthCheck fails once the store is closed.
func (s *VectorStore) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	return nil
}

// Close drops every stored chunk.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.chunks = make(map[string]domain.Chunk)
	return nil
}

// cosine returns the cosine similarity of a and b, or 0 when either is zero.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
