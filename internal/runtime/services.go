package runtime

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Services holds the ports the pipelines resolve on every call.
// Any of them may be nil until configured; the matching capability flag
// on RuntimeConfig mirrors that. Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	config *domain.RuntimeConfig

	vectorStore      driven.VectorStore
	embeddingService driven.EmbeddingService
	llmService       driven.LLMService
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	if config == nil {
		config = domain.NewRuntimeConfig("")
	}
	return &Services{
		config: config,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// VectorStore returns the current vector store (may be nil)
func (s *Services) VectorStore() driven.VectorStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vectorStore
}

// EmbeddingService returns the current embedding service (may be nil)
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// LLMService returns the current LLM service (may be nil)
func (s *Services) LLMService() driven.LLMService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.llmService
}

// SetVectorStore replaces the vector store, closing the previous one.
func (s *Services) SetVectorStore(store driven.VectorStore) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vectorStore != nil && s.vectorStore != store {
		_ = s.vectorStore.Close()
	}

	s.vectorStore = store
	s.config.SetVectorStoreAvailable(store != nil)
}

// SetEmbeddingService replaces the embedding service, closing the previous one.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil && s.embeddingService != svc {
		_ = s.embeddingService.Close()
	}

	s.embeddingService = svc
	s.config.SetEmbeddingAvailable(svc != nil)
}

// SetLLMService replaces the LLM service, closing the previous one.
func (s *Services) SetLLMService(svc driven.LLMService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.llmService != nil && s.llmService != svc {
		_ = s.llmService.Close()
	}

	s.llmService = svc
	s.config.SetLLMAvailable(svc != nil)
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.vectorStore != nil {
		firstErr = s.vectorStore.Close()
		s.vectorStore = nil
	}
	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	if s.llmService != nil {
		_ = s.llmService.Close()
		s.llmService = nil
	}

	s.config.SetVectorStoreAvailable(false)
	s.config.SetEmbeddingAvailable(false)
	s.config.SetLLMAvailable(false)

	return firstErr
}

// ValidateAndSetVectorStore checks the store is reachable before installing it.
func (s *Services) ValidateAndSetVectorStore(ctx context.Context, store driven.VectorStore) error {
	if store == nil {
		s.SetVectorStore(nil)
		return nil
	}

	if err := store.HealthCheck(ctx); err != nil {
		_ = store.Close()
		return err
	}

	s.SetVectorStore(store)
	return nil
}

// ValidateAndSetEmbedding validates connectivity before setting embedding service
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}

	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetEmbeddingService(svc)
	return nil
}

// ValidateAndSetLLM validates connectivity before setting LLM service
func (s *Services) ValidateAndSetLLM(ctx context.Context, svc driven.LLMService) error {
	if svc == nil {
		s.SetLLMService(nil)
		return nil
	}

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetLLMService(svc)
	return nil
}

// Health reports which ports are wired. It never calls them.
func (s *Services) Health() domain.HealthStatus {
	return s.config.Health()
}

// Ready pings the vector store and the LLM. The status is healthy only when
// both answer.
func (s *Services) Ready(ctx context.Context) domain.HealthStatus {
	h := domain.HealthStatus{Status: domain.HealthStatusDegraded}

	if store := s.VectorStore(); store != nil {
		h.VectorDBConnected = store.HealthCheck(ctx) == nil
	}
	if llm := s.LLMService(); llm != nil {
		h.LLMAvailable = llm.Ping(ctx) == nil
	}

	if h.VectorDBConnected && h.LLMAvailable {
		h.Status = domain.HealthStatusHealthy
	}
	return h
}
