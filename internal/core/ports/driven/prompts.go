package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// PromptStore provides the versioned grounding and refusal templates.
type PromptStore interface {
	// Templates returns the active template set.
	Templates(ctx context.Context) (domain.PromptTemplates, error)

	// Reload re-reads templates from their backing source.
	Reload() error
}
