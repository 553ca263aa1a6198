package services

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
)

// Query defaults
const (
	DefaultRetrievalK     = 5
	DefaultMinQueryLength = 3
	DefaultMaxQueryLength = 1000
	DefaultResponseBudget = 5 * time.Second
)

// Ensure queryPipeline implements QueryService
var _ driving.QueryService = (*queryPipeline)(nil)

// queryPipeline runs Validate → Retrieve → Refuse | Assemble → Generate → Succeed.
// Every fault becomes a failed QueryResult at this boundary.
type queryPipeline struct {
	services  *runtime.Services
	retrieval *RetrievalEngine
	grounding *GroundingPolicy
	retrier   *Retrier
	logger    *slog.Logger

	k              int
	minLength      int
	maxLength      int
	responseBudget time.Duration
	generation     driven.GenerateOptions
}

// QueryPipelineConfig holds dependencies and tunables for the query pipeline.
type QueryPipelineConfig struct {
	Services  *runtime.Services
	Retrieval *RetrievalEngine
	Grounding *GroundingPolicy
	Retrier   *Retrier
	Logger    *slog.Logger

	K              int           // chunks retrieved per question (default 5)
	MaxQueryLength int           // characters after trimming (default 1000)
	ResponseBudget time.Duration // soft latency budget, logged when exceeded (default 5s)
	Generation     driven.GenerateOptions
}

// NewQueryPipeline creates the query pipeline.
func NewQueryPipeline(cfg QueryPipelineConfig) driving.QueryService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	k := cfg.K
	if k <= 0 {
		k = DefaultRetrievalK
	}
	maxLength := cfg.MaxQueryLength
	if maxLength <= 0 {
		maxLength = DefaultMaxQueryLength
	}
	budget := cfg.ResponseBudget
	if budget <= 0 {
		budget = DefaultResponseBudget
	}

	retrieval := cfg.Retrieval
	if retrieval == nil {
		retrieval = NewRetrievalEngine(RetrievalEngineConfig{
			Services: cfg.Services,
			Retrier:  cfg.Retrier,
			Logger:   logger,
		})
	}

	return &queryPipeline{
		services:       cfg.Services,
		retrieval:      retrieval,
		grounding:      cfg.Grounding,
		retrier:        cfg.Retrier,
		logger:         logger,
		k:              k,
		minLength:      DefaultMinQueryLength,
		maxLength:      maxLength,
		responseBudget: budget,
		generation:     cfg.Generation,
	}
}

// Answer answers question. It never panics and never returns a Go error.
func (p *queryPipeline) Answer(ctx context.Context, question string, returnSources bool) (result domain.QueryResult) {
	start := time.Now()
	logger := p.logger.With("question_length", utf8.RuneCountInString(question))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("query pipeline panicked", "panic", r)
			result = domain.FailedQuery(question, domain.NewError(domain.KindInternal,
				"Error processing query: %v", r))
		}

		result.Took = time.Since(start)
		if result.Took > p.responseBudget {
			logger.Warn("query exceeded response budget",
				"took", result.Took,
				"budget", p.responseBudget,
			)
		}
	}()

	// Validate
	q, err := p.validate(question)
	if err != nil {
		return domain.FailedQuery(question, err)
	}

	if p.grounding == nil || !p.services.Config().CanAnswer() {
		logger.Error("query pipeline not initialized",
			"vector_store", p.services.Config().VectorStoreAvailable(),
			"embedding", p.services.Config().EmbeddingAvailable(),
			"llm", p.services.Config().LLMAvailable(),
		)
		return domain.FailedQuery(q, domain.NewError(domain.KindNotInitialized, "RAG pipeline not initialized"))
	}

	// Retrieve
	retrieved, err := p.retrieval.Retrieve(ctx, q, p.k)
	if err != nil {
		return domain.FailedQuery(q, err)
	}

	// Assemble, or refuse when there is nothing to ground on
	decision, err := p.grounding.BuildPrompt(ctx, q, retrieved)
	if err != nil {
		logger.Error("failed to build prompt", "error", err)
		return domain.FailedQuery(q, err)
	}
	if decision.Refuse {
		logger.Info("no relevant context, refusing", "template_version", decision.Version)
		refusal := decision.Refusal
		return domain.QueryResult{
			Success:  false,
			Answer:   &refusal,
			Sources:  []domain.SourceCitation{},
			Question: q,
			Error:    &domain.ResultError{Kind: domain.KindRetrieval, Message: decision.Reason},
		}
	}

	// Generate
	llm := p.services.LLMService()
	if llm == nil {
		return domain.FailedQuery(q, domain.NewError(domain.KindNotInitialized, "RAG pipeline not initialized"))
	}
	answer, err := Retry(ctx, p.retrier, "generate", func(ctx context.Context) (string, error) {
		return llm.Complete(ctx, decision.Prompt, p.generation)
	})
	if err != nil {
		logger.Error("generation failed", "model", llm.Model(), "error", err)
		return domain.FailedQuery(q, domain.WrapError(err, domain.KindGeneration,
			"Error processing query: %s", err.Error()))
	}
	answer = strings.TrimSpace(answer)

	// Succeed
	sources := []domain.SourceCitation{}
	if returnSources {
		for _, rc := range retrieved {
			sources = append(sources, domain.CitationFrom(rc))
		}
	}

	logger.Info("query answered",
		"chunks", len(retrieved),
		"template_version", decision.Version,
		"model", llm.Model(),
	)
	return domain.QueryResult{
		Success:  true,
		Answer:   &answer,
		Sources:  sources,
		Question: q,
	}
}

// validate trims question and checks its length in characters.
func (p *queryPipeline) validate(question string) (string, error) {
	q := strings.TrimSpace(question)
	n := utf8.RuneCountInString(q)

	switch {
	case n == 0:
		return "", domain.NewError(domain.KindValidation, "Query must be a non-empty string")
	case n < p.minLength:
		return "", domain.NewError(domain.KindValidation, "Query must be at least %d characters long", p.minLength)
	case n > p.maxLength:
		return "", domain.NewError(domain.KindValidation, "Query must not exceed %d characters", p.maxLength)
	}
	return q, nil
}

// Health reports which ports are wired, without calling them.
func (p *queryPipeline) Health() domain.HealthStatus {
	return p.services.Health()
}

// Ready pings the vector store and LLM.
func (p *queryPipeline) Ready(ctx context.Context) domain.HealthStatus {
	return p.services.Ready(ctx)
}
