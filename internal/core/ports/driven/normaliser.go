package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// Normaliser cleans extracted page text before chunking.
type Normaliser interface {
	// Normalise transforms raw extracted text into normalised text.
	// The mimeType helps determine the appropriate processing.
	Normalise(content string, mimeType string) string

	// SupportedTypes returns MIME types this normaliser handles.
	// Can include wildcards like "text/*" or specific types like "application/pdf".
	SupportedTypes() []string

	// Priority returns the normaliser priority (higher = more specific).
	// Priority ranges:
	//   50-89:  Format-specific (PDF)
	//   1-9:    Fallback (plain text cleanup)
	Priority() int
}

// NormaliserRegistry manages content normalisers.
// When multiple normalisers match a MIME type, the highest priority one is used.
type NormaliserRegistry interface {
	// Get retrieves the best-matching normaliser for a MIME type.
	// Returns nil if no normaliser is registered for the type.
	Get(mimeType string) Normaliser

	// GetAll retrieves all normalisers that match a MIME type, sorted by priority (highest first).
	GetAll(mimeType string) []Normaliser

	// Register registers a normaliser.
	Register(normaliser Normaliser)

	// List returns all registered MIME types.
	List() []string
}

// DocumentChunker splits every page of a document into overlapping chunks.
// Output is deterministic and in reading order.
type DocumentChunker interface {
	// Chunk returns the chunks for doc. Empty pages produce no chunks.
	Chunk(doc *domain.Document) []domain.Chunk

	// Name returns the chunker name for logging.
	Name() string
}
