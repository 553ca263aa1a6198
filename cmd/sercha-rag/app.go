package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/pdf"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/postgres"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/prompts"
	redisadapter "github.com/custodia-labs/sercha-rag/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/config"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
	"github.com/custodia-labs/sercha-rag/internal/worker"
)

// app holds the wired pipelines for one command invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	services  *runtime.Services
	query     driving.QueryService
	ingestion driving.IngestionService
	prompts   driven.PromptStore

	closers []func() error
}

// appOptions tunes how newApp wires the adapters.
type appOptions struct {
	// Verify pings the embedding and LLM providers before installing them.
	// A provider that fails is left out, so health and query results report
	// it as unavailable.
	Verify bool
}

// loadApp reads configuration for cmd and wires every adapter.
func loadApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	return newApp(cmd.Context(), cfg, logger, opts)
}

// newApp builds the AI services, vector store, lock and pipelines from cfg.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	// ===== AI services =====
	factory := ai.NewFactory()
	embedder, err := factory.CreateEmbeddingService(ctx, cfg.EmbeddingSettings())
	if err != nil {
		return nil, fmt.Errorf("embedding service: %w", err)
	}
	if embedder == nil {
		logger.Warn("embedding provider has no API key; ingestion and queries are disabled",
			"provider", cfg.EmbeddingProvider)
	}

	llm, err := factory.CreateLLMService(ctx, cfg.LLMSettings())
	if err != nil {
		return nil, fmt.Errorf("llm service: %w", err)
	}
	if llm == nil {
		logger.Warn("LLM provider has no API key; queries are disabled", "provider", cfg.LLMProvider)
	}

	a.services = runtime.NewServices(domain.NewRuntimeConfig(cfg.VectorStore))
	a.closers = append(a.closers, a.services.Close)
	if opts.Verify {
		if err := a.services.ValidateAndSetEmbedding(ctx, embedder); err != nil {
			logger.Warn("embedding provider unreachable; ingestion and queries are disabled",
				"provider", cfg.EmbeddingProvider, "error", err)
		}
		if err := a.services.ValidateAndSetLLM(ctx, llm); err != nil {
			logger.Warn("LLM provider unreachable; queries are disabled",
				"provider", cfg.LLMProvider, "error", err)
		}
	} else {
		a.services.SetEmbeddingService(embedder)
		a.services.SetLLMService(llm)
	}

	// ===== Vector store and lock =====
	dims := cfg.EmbeddingDimensions
	if embedder := a.services.EmbeddingService(); embedder != nil {
		dims = embedder.Dimensions()
	}
	lock, err := a.openStore(ctx, dims)
	if err != nil {
		a.Close()
		return nil, err
	}

	// ===== Ingestion =====
	loader, err := pdf.NewLoader(cfg.PDFExtractor)
	if err != nil {
		a.Close()
		return nil, err
	}

	chunker, err := postprocessors.NewChunker(postprocessors.ChunkConfig{
		ChunkSize: cfg.ChunkSize,
		Overlap:   cfg.ChunkOverlap,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	policy := services.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.RetryMaxAttempts
	policy.BaseDelay = cfg.RetryBaseDelay
	retrier := services.NewRetrier(policy, logger)

	a.ingestion = services.NewIngestionPipeline(services.IngestionPipelineConfig{
		Services:    a.services,
		Validator:   pdf.NewValidator(cfg.MaxFileSize),
		Loader:      loader,
		Normalisers: normalisers.DefaultRegistry(),
		Chunker:     chunker,
		Lock:        lock,
		Retrier:     retrier,
		Pool: worker.NewPool(worker.PoolConfig{
			Name:        "ingest",
			Logger:      logger,
			Concurrency: cfg.IngestConcurrency,
		}),
		Logger:             logger,
		EmbeddingBatchSize: cfg.EmbeddingBatchSize,
	})

	// ===== Query =====
	promptStore, err := prompts.NewStore(cfg.PromptsDir)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.prompts = promptStore

	a.query = services.NewQueryPipeline(services.QueryPipelineConfig{
		Services: a.services,
		Retrieval: services.NewRetrievalEngine(services.RetrievalEngineConfig{
			Services: a.services,
			Retrier:  retrier,
			Logger:   logger,
		}),
		Grounding:      services.NewGroundingPolicy(promptStore),
		Retrier:        retrier,
		Logger:         logger,
		K:              cfg.RetrievalK,
		MaxQueryLength: cfg.MaxQueryLength,
		ResponseBudget: cfg.ResponseTimeout,
		Generation: driven.GenerateOptions{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
	})

	log.Printf("Runtime config: store=%s, embedding=%t, llm=%t, prompts=%s, extractor=%s",
		cfg.VectorStore,
		a.services.Config().EmbeddingAvailable(),
		a.services.Config().LLMAvailable(),
		promptStore.Source(),
		loader.Name())

	return a, nil
}

// reloadPromptsOn re-reads the prompt templates each time a signal arrives,
// until ctx is done. A broken file keeps the previous templates active.
func (a *app) reloadPromptsOn(ctx context.Context, signals <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			if err := a.prompts.Reload(); err != nil {
				a.logger.Error("prompt reload failed, keeping previous templates", "signal", sig.String(), "error", err)
				continue
			}
			a.logger.Info("prompt templates reloaded", "signal", sig.String())
		}
	}
}

// openStore installs the configured vector store and picks the ingestion
// lock: Redis when REDIS_URL is set, otherwise Postgres advisory locks for
// the postgres store, otherwise an in-process lock.
func (a *app) openStore(ctx context.Context, dims int) (driven.DistributedLock, error) {
	cfg := a.cfg
	var (
		store driven.VectorStore
		lock  driven.DistributedLock
	)

	switch cfg.VectorStore {
	case config.StorePostgres:
		log.Println("Connecting to PostgreSQL...")
		db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.DatabaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.InitSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		log.Println("PostgreSQL connected and schema initialized")
		lock = postgres.NewAdvisoryLock(db)
		if dims > 0 {
			vs := postgres.NewVectorStore(db, dims)
			if err := vs.CheckDimensions(ctx); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("vector store: %w", err)
			}
			store = vs
		} else {
			a.closers = append(a.closers, db.Close)
		}

	case config.StoreMemory:
		store = memory.NewVectorStore()

	default:
		if dims > 0 {
			s, err := sqlite.Open(cfg.VectorDBPath, dims)
			if err != nil {
				return nil, fmt.Errorf("failed to open vector store: %w", err)
			}
			store = s
		}
	}

	if store == nil {
		a.logger.Warn("vector store not opened: embedding dimensions unknown", "store", cfg.VectorStore)
	}
	if err := a.services.ValidateAndSetVectorStore(ctx, store); err != nil {
		return nil, fmt.Errorf("vector store health check: %w", err)
	}

	if cfg.RedisURL != "" {
		log.Println("Connecting to Redis...")
		client, err := redisadapter.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		log.Println("Using Redis distributed lock")
		return redisadapter.NewLock(client, redisadapter.LockConfig{}), nil
	}
	if lock != nil {
		log.Println("Using PostgreSQL advisory lock")
		return lock, nil
	}
	return memory.NewLock(), nil
}

// Close releases everything newApp opened, last opened first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
