package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.LLMService       = (*GeminiLLM)(nil)
	_ driven.EmbeddingService = (*GeminiEmbedding)(nil)
)

const (
	// DefaultGeminiModel is used when no generation model is configured.
	DefaultGeminiModel = "gemini-2.0-flash"

	// DefaultGeminiEmbeddingModel is used when no embedding model is configured.
	DefaultGeminiEmbeddingModel = "text-embedding-004"
)

var geminiModelDimensions = map[string]int{
	"text-embedding-004":   768,
	"gemini-embedding-001": 3072,
}

func newGeminiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return client, nil
}

// GeminiLLM implements LLMService using the Gemini API.
type GeminiLLM struct {
	client *genai.Client
	model  string
}

// NewGeminiLLM creates a new Gemini generation service.
func NewGeminiLLM(ctx context.Context, apiKey, model, baseURL string) (driven.LLMService, error) {
	client, err := newGeminiClient(ctx, apiKey, baseURL)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiLLM{client: client, model: model}, nil
}

// Complete generates content for a single text prompt.
func (l *GeminiLLM) Complete(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}

	resp, err := l.client.Models.GenerateContent(ctx, l.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini generate content: empty response")
	}
	return text, nil
}

// Model returns the model name being used
func (l *GeminiLLM) Model() string {
	return l.model
}

// Ping fetches the model description.
func (l *GeminiLLM) Ping(ctx context.Context) error {
	if _, err := l.client.Models.Get(ctx, l.model, nil); err != nil {
		return fmt.Errorf("gemini ping: %w", err)
	}
	return nil
}

// Close releases resources held by the LLM service
func (l *GeminiLLM) Close() error {
	return nil
}

// GeminiEmbedding implements EmbeddingService using the Gemini embedContent API.
type GeminiEmbedding struct {
	client     *genai.Client
	model      string
	dimensions int
	requested  int
}

// NewGeminiEmbedding creates a new Gemini embedding service.
func NewGeminiEmbedding(ctx context.Context, apiKey, model, baseURL string, dimensions int) (driven.EmbeddingService, error) {
	client, err := newGeminiClient(ctx, apiKey, baseURL)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultGeminiEmbeddingModel
	}
	dims, ok := geminiModelDimensions[model]
	if !ok {
		dims = 768
	}
	if dimensions > 0 {
		dims = dimensions
	}
	return &GeminiEmbedding{
		client:     client,
		model:      model,
		dimensions: dims,
		requested:  dimensions,
	}, nil
}

// Embed generates embeddings for multiple texts in one request.
func (e *GeminiEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.Text(t)...)
	}

	var cfg *genai.EmbedContentConfig
	if e.requested > 0 {
		cfg = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(int32(e.requested))}
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed content: expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

// EmbedQuery generates an embedding for a search query
func (e *GeminiEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Dimensions returns the embedding dimension size
func (e *GeminiEmbedding) Dimensions() int {
	return e.dimensions
}

// Model returns the model name being used
func (e *GeminiEmbedding) Model() string {
	return e.model
}

// HealthCheck embeds a short probe string.
func (e *GeminiEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

// Close releases resources held by the embedding service
func (e *GeminiEmbedding) Close() error {
	return nil
}
