package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// QueryService answers questions grounded in the ingested documents.
// Failures are reported inside the result, never as a Go error.
type QueryService interface {
	// Answer validates, retrieves, grounds and generates. With returnSources
	// the result carries a citation for every retrieved chunk.
	Answer(ctx context.Context, question string, returnSources bool) domain.QueryResult

	// Health reports which ports are initialised without calling them
	Health() domain.HealthStatus

	// Ready pings the vector store and LLM
	Ready(ctx context.Context) domain.HealthStatus
}
