package domain

import "sync"

// RuntimeConfig tracks which ports are wired at runtime.
// The store backend is fixed at startup; AI capability flags change when
// services are swapped. Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	StoreBackend string // "sqlite", "postgres" or "memory"

	// Dynamic capability flags
	vectorStoreAvailable bool
	embeddingAvailable   bool
	llmAvailable         bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(storeBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		StoreBackend: storeBackend,
	}
}

// VectorStoreAvailable returns whether a vector store is configured
func (c *RuntimeConfig) VectorStoreAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vectorStoreAvailable
}

// EmbeddingAvailable returns whether embedding service is available
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// LLMAvailable returns whether LLM service is available
func (c *RuntimeConfig) LLMAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.llmAvailable
}

// SetVectorStoreAvailable updates the vector store flag
func (c *RuntimeConfig) SetVectorStoreAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectorStoreAvailable = available
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetLLMAvailable updates the LLM availability flag
func (c *RuntimeConfig) SetLLMAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.llmAvailable = available
}

// CanIngest returns true if documents can be embedded and stored
func (c *RuntimeConfig) CanIngest() bool {
	return c.VectorStoreAvailable() && c.EmbeddingAvailable()
}

// CanAnswer returns true if the full query path is wired
func (c *RuntimeConfig) CanAnswer() bool {
	return c.VectorStoreAvailable() && c.EmbeddingAvailable() && c.LLMAvailable()
}

// Health summarises capability flags for the health endpoint.
func (c *RuntimeConfig) Health() HealthStatus {
	h := HealthStatus{
		VectorDBConnected: c.VectorStoreAvailable(),
		LLMAvailable:      c.LLMAvailable(),
	}
	h.Status = HealthStatusDegraded
	if h.VectorDBConnected && h.LLMAvailable {
		h.Status = HealthStatusHealthy
	}
	return h
}
