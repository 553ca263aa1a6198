package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// PageLoader extracts per-page text from a PDF on disk.
type PageLoader interface {
	// Load returns the document's pages in reading order, numbered from 1.
	Load(ctx context.Context, path string) ([]domain.Page, error)

	// Name identifies the extractor for logging.
	Name() string
}

// DocumentValidator checks that a file is an acceptable PDF before ingestion.
type DocumentValidator interface {
	// Validate returns a validation_error with a user-facing message when the
	// file is missing, not a PDF by extension or content, empty, or too large.
	Validate(path string) error
}
