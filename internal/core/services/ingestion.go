package services

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
	"github.com/custodia-labs/sercha-rag/internal/worker"
)

// Ingestion defaults
const (
	DefaultEmbeddingBatchSize = 64
	DefaultIngestLockTTL      = 10 * time.Minute

	pdfMIMEType = "application/pdf"
)

// Ensure ingestionPipeline implements IngestionService
var _ driving.IngestionService = (*ingestionPipeline)(nil)

// ingestionPipeline runs validate → lock → load → normalise → chunk → embed → upsert → prune.
type ingestionPipeline struct {
	services    *runtime.Services
	validator   driven.DocumentValidator
	loader      driven.PageLoader
	normalisers driven.NormaliserRegistry
	chunker     driven.DocumentChunker
	lock        driven.DistributedLock
	retrier     *Retrier
	pool        *worker.Pool
	logger      *slog.Logger

	batchSize int
	lockTTL   time.Duration
}

// IngestionPipelineConfig holds dependencies for the ingestion pipeline.
type IngestionPipelineConfig struct {
	Services    *runtime.Services
	Validator   driven.DocumentValidator
	Loader      driven.PageLoader
	Normalisers driven.NormaliserRegistry // optional
	Chunker     driven.DocumentChunker
	Lock        driven.DistributedLock // optional; nil skips per-document locking
	Retrier     *Retrier
	Pool        *worker.Pool // optional; nil ingests batches sequentially
	Logger      *slog.Logger

	EmbeddingBatchSize int
	LockTTL            time.Duration
}

// NewIngestionPipeline creates the ingestion pipeline.
func NewIngestionPipeline(cfg IngestionPipelineConfig) driving.IngestionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	batchSize := cfg.EmbeddingBatchSize
	if batchSize <= 0 {
		batchSize = DefaultEmbeddingBatchSize
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = DefaultIngestLockTTL
	}
	pool := cfg.Pool
	if pool == nil {
		pool = worker.NewPool(worker.PoolConfig{Name: "ingest", Logger: logger, Concurrency: 1})
	}

	return &ingestionPipeline{
		services:    cfg.Services,
		validator:   cfg.Validator,
		loader:      cfg.Loader,
		normalisers: cfg.Normalisers,
		chunker:     cfg.Chunker,
		lock:        cfg.Lock,
		retrier:     cfg.Retrier,
		pool:        pool,
		logger:      logger,
		batchSize:   batchSize,
		lockTTL:     lockTTL,
	}
}

// Ingest ingests one PDF. Failures, including panics, come back as a failed
// result; the error never escapes.
func (p *ingestionPipeline) Ingest(ctx context.Context, path string, metadata domain.Metadata) (result domain.IngestionResult) {
	start := time.Now()
	docID := filepath.Base(path)
	logger := p.logger.With("document_id", docID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("ingestion panicked", "panic", r)
			result = domain.FailedIngestion(docID, domain.NewError(domain.KindInternal, "An error occurred during ingestion"))
		}
		result.Duration = time.Since(start)
	}()

	if err := p.validate(path); err != nil {
		logger.Warn("PDF validation failed", "error", err)
		return domain.FailedIngestion(docID, err)
	}

	if p.loader == nil || p.chunker == nil || !p.services.Config().CanIngest() {
		return domain.FailedIngestion(docID, domain.NewError(domain.KindNotInitialized, "ingestion pipeline not initialized"))
	}

	if p.lock != nil {
		release, err := p.acquire(ctx, docID)
		if err != nil {
			logger.Warn("could not lock document", "error", err)
			return domain.FailedIngestion(docID, err)
		}
		defer release()
	}

	pages, chunks, err := p.process(ctx, path, metadata)
	if err != nil {
		logger.Error("failed to ingest PDF", "error", err)
		return domain.FailedIngestion(docID, err)
	}

	logger.Info("PDF ingested",
		"pages", len(pages),
		"chunks", len(chunks),
		"duration", time.Since(start),
	)
	return domain.IngestionResult{
		Success:    true,
		DocumentID: docID,
		Pages:      len(pages),
		Chunks:     len(chunks),
	}
}

// validate runs the delegated validator, classifying bare errors as validation failures.
func (p *ingestionPipeline) validate(path string) error {
	if p.validator == nil {
		return nil
	}
	err := p.validator.Validate(path)
	if err == nil {
		return nil
	}
	if domain.KindOf(err) == domain.KindValidation {
		return err
	}
	return domain.WrapError(err, domain.KindValidation, "PDF validation failed")
}

// acquire takes the per-document lock and returns its release func.
func (p *ingestionPipeline) acquire(ctx context.Context, docID string) (func(), error) {
	name := lockName(docID)
	acquired, err := p.lock.Acquire(ctx, name, p.lockTTL)
	if err != nil {
		return nil, domain.WrapError(err, domain.KindIngestion, "could not lock %s for ingestion", docID)
	}
	if !acquired {
		return nil, domain.WrapError(domain.ErrLockNotAcquired, domain.KindIngestion,
			"%s is already being ingested", docID)
	}
	return func() {
		if err := p.lock.Release(context.WithoutCancel(ctx), name); err != nil {
			p.logger.Warn("failed to release ingestion lock", "lock", name, "error", err)
		}
	}, nil
}

// extend renews the per-document lock so a long embedding run keeps it.
// Losing the lock aborts the ingestion: another instance may already own the document.
func (p *ingestionPipeline) extend(ctx context.Context, docID string) error {
	if p.lock == nil {
		return nil
	}
	if err := p.lock.Extend(ctx, lockName(docID), p.lockTTL); err != nil {
		return domain.WrapError(err, domain.KindIngestion, "lost the ingestion lock for %s", docID)
	}
	return nil
}

func lockName(docID string) string {
	return "ingest:" + docID
}

// process loads, chunks, embeds and stores one document.
func (p *ingestionPipeline) process(ctx context.Context, path string, metadata domain.Metadata) ([]domain.Page, []domain.Chunk, error) {
	docID := filepath.Base(path)

	pages, err := p.loader.Load(ctx, path)
	if err != nil {
		return nil, nil, domain.WrapError(err, domain.KindIngestion, "could not read pages from %s", docID)
	}
	if len(pages) == 0 {
		return nil, nil, domain.NewError(domain.KindIngestion, "%s has no pages", docID)
	}

	if p.normalisers != nil {
		if n := p.normalisers.Get(pdfMIMEType); n != nil {
			for i := range pages {
				pages[i].Text = n.Normalise(pages[i].Text, pdfMIMEType)
			}
		}
	}

	doc := domain.NewDocument(path, pages, metadata)
	chunks := p.chunker.Chunk(doc)
	if len(chunks) == 0 {
		return pages, nil, domain.NewError(domain.KindIngestion, "no extractable text found in %s", docID)
	}

	embedder := p.services.EmbeddingService()
	store := p.services.VectorStore()
	if embedder == nil || store == nil {
		return pages, nil, domain.NewError(domain.KindNotInitialized, "ingestion pipeline not initialized")
	}

	embedded, err := p.embed(ctx, embedder, chunks, func(ctx context.Context) error {
		return p.extend(ctx, docID)
	})
	if err != nil {
		return pages, nil, err
	}

	if err := p.retrier.Do(ctx, "vector_upsert", func(ctx context.Context) error {
		return store.Upsert(ctx, embedded)
	}); err != nil {
		return pages, nil, domain.WrapError(err, domain.KindIngestion, "could not store chunks for %s", docID)
	}

	// Chunks from an earlier version of the file that no longer exist.
	keep := make([]string, len(embedded))
	for i, c := range embedded {
		keep[i] = c.ID
	}
	if removed, err := store.DeleteStale(ctx, doc.ID, keep); err != nil {
		p.logger.Warn("could not prune stale chunks", "document_id", doc.ID, "error", err)
	} else if removed > 0 {
		p.logger.Info("pruned stale chunks", "document_id", doc.ID, "removed", removed)
	}

	return pages, embedded, nil
}

// embed vectorises chunks in batches of batchSize, retrying each batch.
// heartbeat runs after every batch.
func (p *ingestionPipeline) embed(ctx context.Context, embedder driven.EmbeddingService, chunks []domain.Chunk, heartbeat func(context.Context) error) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, 0, len(chunks))

	for start := 0; start < len(chunks); start += p.batchSize {
		end := min(start+p.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := Retry(ctx, p.retrier, "embed", func(ctx context.Context) ([][]float32, error) {
			return embedder.Embed(ctx, texts)
		})
		if err != nil {
			return nil, domain.WrapError(err, domain.KindIngestion, "could not embed chunks")
		}
		if len(vectors) != len(batch) {
			return nil, domain.NewError(domain.KindIngestion,
				"embedding service returned %d vectors for %d chunks", len(vectors), len(batch))
		}

		for i, c := range batch {
			out = append(out, c.WithEmbedding(vectors[i]))
		}

		if err := heartbeat(ctx); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// IngestMany ingests every regular file directly inside dir. Each file counts
// toward Total; failures are recorded per file in filename order.
func (p *ingestionPipeline) IngestMany(ctx context.Context, dir string) domain.IngestionStats {
	stats := domain.NewIngestionStats()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			stats.Errors = append(stats.Errors, "Directory not found: "+dir)
		} else {
			stats.Errors = append(stats.Errors, "Failed to read directory "+dir+": "+err.Error())
		}
		p.logger.Warn("batch ingestion aborted", "directory", dir, "error", err)
		return *stats
	}

	// os.ReadDir sorts by filename.
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}

	p.logger.Info("starting batch ingestion",
		"directory", dir,
		"files", len(names),
		"concurrency", p.pool.Concurrency(),
	)

	results := worker.Map(ctx, p.pool, names,
		func(ctx context.Context, name string) domain.IngestionResult {
			return p.Ingest(ctx, filepath.Join(dir, name), domain.Metadata{
				domain.MetaSourceFile: name,
				domain.MetaFileType:   "pdf",
			})
		},
		func(name string) domain.IngestionResult {
			return domain.FailedIngestion(name, domain.NewError(domain.KindIngestion, "ingestion cancelled"))
		},
	)

	for i, r := range results {
		stats.Record(names[i], r)
	}

	p.logger.Info("batch ingestion finished",
		"directory", dir,
		"total", stats.Total,
		"successful", stats.Successful,
		"failed", stats.Failed,
	)
	return *stats
}
