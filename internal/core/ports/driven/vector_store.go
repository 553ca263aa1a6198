package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// VectorStore is a persisted nearest-neighbour index over chunk embeddings.
// Concurrent upserts of the same chunk id are last-writer-wins.
type VectorStore interface {
	// Upsert stores chunks keyed by ID. Existing entries with the same ID are replaced.
	// Every chunk must carry an embedding.
	Upsert(ctx context.Context, chunks []domain.Chunk) error

	// Query returns up to k chunks nearest to vector, scored by cosine similarity
	// (higher = more relevant). An empty store yields an empty slice.
	Query(ctx context.Context, vector []float32, k int) ([]domain.RetrievedChunk, error)

	// Count returns how many of the given chunk IDs are present.
	Count(ctx context.Context, ids []string) (int, error)

	// DeleteStale removes chunks of documentID whose IDs are not in keep and
	// returns how many were removed. An empty keep removes the whole document.
	DeleteStale(ctx context.Context, documentID string, keep []string) (int, error)

	// HealthCheck verifies the store is reachable
	HealthCheck(ctx context.Context) error

	// Close releases the store connection
	Close() error
}
