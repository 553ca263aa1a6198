package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/config"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// noEnvFile points Load at a file that does not exist so a developer's .env
// never leaks into the test.
func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.EmbeddingProvider)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Empty(t, cfg.LLMModel)
	assert.Equal(t, 0.3, cfg.Temperature)
	assert.Equal(t, 1000, cfg.MaxTokens)
	assert.Equal(t, 5, cfg.RetrievalK)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 64, cfg.EmbeddingBatchSize)
	assert.Equal(t, config.StoreSQLite, cfg.VectorStore)
	assert.Equal(t, "./vector_db", cfg.VectorDBPath)
	assert.Equal(t, int64(52428800), cfg.MaxFileSize)
	assert.Equal(t, 1000, cfg.MaxQueryLength)
	assert.Equal(t, 5*time.Second, cfg.ResponseTimeout)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "native", cfg.PDFExtractor)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.RetryBaseDelay)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RETRIEVAL_K", "8")
	t.Setenv("TEMPERATURE", "0.7")
	t.Setenv("RESPONSE_TIMEOUT", "2s")
	t.Setenv("VECTOR_STORE", "memory")
	t.Setenv("API_PORT", "9000")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := config.Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.RetrievalK)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Equal(t, 2*time.Second, cfg.ResponseTimeout)
	assert.Equal(t, config.StoreMemory, cfg.VectorStore)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())

	llm := cfg.LLMSettings()
	assert.Equal(t, domain.AIProviderAnthropic, llm.Provider)
	assert.Equal(t, "sk-ant", llm.APIKey)
	assert.Empty(t, llm.BaseURL)
}

func TestLoad_EnvFile(t *testing.T) {
	// Registers cleanup for the variable godotenv is about to set.
	t.Setenv("PROMPTS_DIR", "")
	require.NoError(t, os.Unsetenv("PROMPTS_DIR"))
	t.Setenv("CHUNK_SIZE", "500")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PROMPTS_DIR=/etc/rag/prompts\nCHUNK_SIZE=2000\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/etc/rag/prompts", cfg.PromptsDir)
	assert.Equal(t, 500, cfg.ChunkSize, "process environment wins over the env file")
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("CHUNK_OVERLAP", "1000")

	_, err := config.Load(noEnvFile(t))
	require.Error(t, err)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
	assert.Contains(t, err.Error(), "CHUNK_OVERLAP")
}

func validConfig(t *testing.T) *config.Config {
	cfg, err := config.Load(noEnvFile(t))
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantKey string
	}{
		{"overlap equals chunk size", func(c *config.Config) { c.ChunkOverlap = c.ChunkSize }, "CHUNK_OVERLAP"},
		{"negative overlap", func(c *config.Config) { c.ChunkOverlap = -1 }, "CHUNK_OVERLAP"},
		{"zero chunk size", func(c *config.Config) { c.ChunkSize = 0 }, "CHUNK_SIZE"},
		{"k below one", func(c *config.Config) { c.RetrievalK = 0 }, "RETRIEVAL_K"},
		{"anthropic embeddings", func(c *config.Config) { c.EmbeddingProvider = "anthropic" }, "EMBEDDING_PROVIDER"},
		{"unknown llm", func(c *config.Config) { c.LLMProvider = "mistral" }, "LLM_PROVIDER"},
		{"unknown store", func(c *config.Config) { c.VectorStore = "chroma" }, "VECTOR_STORE"},
		{"postgres without url", func(c *config.Config) { c.VectorStore = config.StorePostgres }, "DATABASE_URL"},
		{"unknown extractor", func(c *config.Config) { c.PDFExtractor = "ocr" }, "PDF_EXTRACTOR"},
		{"port out of range", func(c *config.Config) { c.APIPort = 70000 }, "API_PORT"},
		{"no retries", func(c *config.Config) { c.RetryMaxAttempts = 0 }, "RETRY_MAX_ATTEMPTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := validConfig(t)
	cfg.RetrievalK = 0
	cfg.VectorStore = "chroma"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RETRIEVAL_K")
	assert.Contains(t, err.Error(), "VECTOR_STORE")
}

func TestEmbeddingSettings(t *testing.T) {
	cfg := validConfig(t)
	cfg.OpenAIAPIKey = "sk-openai"
	cfg.GeminiAPIKey = "gm-key"
	cfg.OpenAIBaseURL = "http://localhost:1234/v1"
	cfg.EmbeddingDimensions = 256

	s := cfg.EmbeddingSettings()
	assert.Equal(t, domain.AIProviderOpenAI, s.Provider)
	assert.Equal(t, "sk-openai", s.APIKey)
	assert.Equal(t, "http://localhost:1234/v1", s.BaseURL)
	assert.Equal(t, 256, s.Dimensions)
	assert.True(t, s.IsConfigured())

	cfg.EmbeddingProvider = "gemini"
	s = cfg.EmbeddingSettings()
	assert.Equal(t, "gm-key", s.APIKey)
	assert.Empty(t, s.BaseURL)
}

func TestLLMSettings_Unconfigured(t *testing.T) {
	cfg := validConfig(t)
	cfg.OpenAIAPIKey = ""
	assert.False(t, cfg.LLMSettings().IsConfigured())
	assert.Equal(t, 0.3, cfg.LLMSettings().Temperature)
}

func TestNewLogger(t *testing.T) {
	cfg := validConfig(t)

	var buf bytes.Buffer
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	cfg.LogFormat = "text"
	cfg.LogLevel = "nonsense"
	cfg.NewLogger(&buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
