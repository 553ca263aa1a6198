package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IngestionService turns PDFs on disk into stored, embedded chunks.
type IngestionService interface {
	// Ingest loads, chunks, embeds and upserts one PDF. Re-ingesting the same
	// file replaces its chunks.
	Ingest(ctx context.Context, path string, metadata domain.Metadata) domain.IngestionResult

	// IngestMany ingests every regular file in dir. One file failing never
	// aborts the batch; errors are listed in filename order.
	IngestMany(ctx context.Context, dir string) domain.IngestionStats
}
