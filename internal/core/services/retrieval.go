package services

import (
	"context"
	"log/slog"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
)

// RetrievalEngine turns a query into ranked chunks through the embedding
// service and vector store registered in runtime.Services.
type RetrievalEngine struct {
	services *runtime.Services
	retrier  *Retrier
	logger   *slog.Logger
}

// RetrievalEngineConfig holds dependencies for RetrievalEngine.
type RetrievalEngineConfig struct {
	Services *runtime.Services
	Retrier  *Retrier
	Logger   *slog.Logger
}

// NewRetrievalEngine creates a new retrieval engine.
func NewRetrievalEngine(cfg RetrievalEngineConfig) *RetrievalEngine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RetrievalEngine{
		services: cfg.Services,
		retrier:  cfg.Retrier,
		logger:   logger,
	}
}

// Retrieve returns at most k chunks ordered by descending score, ties broken
// by chunk id. An unavailable store, a failed query embedding or an empty
// store all yield an empty slice and a nil error: callers treat that as
// "no grounding available". The only error is k < 1.
func (e *RetrievalEngine) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedChunk, error) {
	if k < 1 {
		return nil, domain.NewError(domain.KindValidation, "k must be at least 1, got %d", k)
	}

	embedder := e.services.EmbeddingService()
	store := e.services.VectorStore()
	if embedder == nil || store == nil {
		e.logger.Warn("retrieval unavailable",
			"embedding_configured", embedder != nil,
			"vector_store_configured", store != nil,
		)
		return []domain.RetrievedChunk{}, nil
	}

	vector, err := Retry(ctx, e.retrier, "embed_query", func(ctx context.Context) ([]float32, error) {
		return embedder.EmbedQuery(ctx, query)
	})
	if err != nil {
		e.logger.Warn("query embedding failed, treating as no context",
			"error_kind", domain.KindRetrieval,
			"error", err,
		)
		return []domain.RetrievedChunk{}, nil
	}

	results, err := Retry(ctx, e.retrier, "vector_query", func(ctx context.Context) ([]domain.RetrievedChunk, error) {
		return store.Query(ctx, vector, k)
	})
	if err != nil {
		e.logger.Warn("vector store query failed, treating as no context",
			"error_kind", domain.KindRetrieval,
			"error", err,
		)
		return []domain.RetrievedChunk{}, nil
	}

	ranked := make([]domain.RetrievedChunk, 0, len(results))
	for _, rc := range results {
		if rc.Chunk.Content == "" {
			continue
		}
		ranked = append(ranked, rc)
	}
	domain.SortRetrieved(ranked)
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	e.logger.Debug("retrieved chunks", "k", k, "returned", len(ranked))
	return ranked, nil
}
