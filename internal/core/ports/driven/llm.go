package driven

import (
	"context"
)

// GenerateOptions tunes a single completion.
type GenerateOptions struct {
	// MaxTokens caps the completion length. 0 uses the provider default.
	MaxTokens int

	// Temperature controls randomness (0.0-1.0).
	Temperature float64
}

// LLMService produces natural-language completions for a prompt.
type LLMService interface {
	// Complete sends prompt as a single user turn and returns the completion text.
	Complete(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the LLM service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the LLM service
	Close() error
}
