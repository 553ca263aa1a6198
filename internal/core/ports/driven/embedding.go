package driven

import (
	"context"
)

// EmbeddingService turns text into fixed-length vectors.
// Implementations must be safe for concurrent use.
type EmbeddingService interface {
	// Embed generates one vector per input text, in input order.
	// Callers batch; implementations may split further to respect provider limits.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a search query
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimensions returns the embedding dimension size
	Dimensions() int

	// Model returns the model name being used
	Model() string

	// HealthCheck verifies the embedding service is reachable
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the embedding service
	Close() error
}
