package services

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
	"github.com/custodia-labs/sercha-rag/internal/worker"
)

// testEnv wires every pipeline dependency to an in-memory mock.
type testEnv struct {
	services  *runtime.Services
	embedder  *mocks.MockEmbeddingService
	store     *mocks.MockVectorStore
	llm       *mocks.MockLLMService
	prompts   *mocks.MockPromptStore
	loader    *mocks.MockPageLoader
	validator *mocks.MockDocumentValidator
	lock      *mocks.MockDistributedLock
	logs      *syncBuffer
	logger    *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logs := &syncBuffer{}
	env := &testEnv{
		services:  runtime.NewServices(domain.NewRuntimeConfig("memory")),
		embedder:  mocks.NewMockEmbeddingService(),
		store:     mocks.NewMockVectorStore(),
		llm:       mocks.NewMockLLMService("The deadline is DEADLINE-7731."),
		prompts:   mocks.NewMockPromptStore(),
		loader:    mocks.NewMockPageLoader(),
		validator: mocks.NewMockDocumentValidator(),
		lock:      mocks.NewMockDistributedLock(),
		logs:      logs,
		logger:    slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
	env.services.SetVectorStore(env.store)
	env.services.SetEmbeddingService(env.embedder)
	env.services.SetLLMService(env.llm)
	return env
}

// fastRetrier retries without sleeping.
func (e *testEnv) fastRetrier() *Retrier {
	return NewRetrier(RetryPolicy{MaxAttempts: 3}, e.logger)
}

func (e *testEnv) retrieval() *RetrievalEngine {
	return NewRetrievalEngine(RetrievalEngineConfig{
		Services: e.services,
		Retrier:  e.fastRetrier(),
		Logger:   e.logger,
	})
}

func (e *testEnv) queryPipeline(mutate ...func(*QueryPipelineConfig)) *queryPipeline {
	cfg := QueryPipelineConfig{
		Services:  e.services,
		Retrieval: e.retrieval(),
		Grounding: NewGroundingPolicy(e.prompts),
		Retrier:   e.fastRetrier(),
		Logger:    e.logger,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return NewQueryPipeline(cfg).(*queryPipeline)
}

func (e *testEnv) ingestionPipeline(t *testing.T, mutate ...func(*IngestionPipelineConfig)) *ingestionPipeline {
	t.Helper()
	chunker, err := postprocessors.NewChunker(postprocessors.ChunkConfig{ChunkSize: 200, Overlap: 40})
	require.NoError(t, err)

	cfg := IngestionPipelineConfig{
		Services:    e.services,
		Validator:   e.validator,
		Loader:      e.loader,
		Normalisers: normalisers.DefaultRegistry(),
		Chunker:     chunker,
		Lock:        e.lock,
		Retrier:     e.fastRetrier(),
		Pool:        worker.NewPool(worker.PoolConfig{Name: "test", Logger: e.logger, Concurrency: 1}),
		Logger:      e.logger,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return NewIngestionPipeline(cfg).(*ingestionPipeline)
}

// writeFiles creates empty files named names in a fresh temp dir.
func writeFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("%PDF-1.4"), 0o600))
	}
	return dir
}

func retrieved(chunks ...domain.Chunk) []domain.RetrievedChunk {
	out := make([]domain.RetrievedChunk, len(chunks))
	for i, c := range chunks {
		out[i] = domain.RetrievedChunk{Chunk: c, Score: 1 - float64(i)*0.1, Rank: i + 1}
	}
	return out
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func mkdir(path string) error {
	return os.Mkdir(path, 0o755)
}
