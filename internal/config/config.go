// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Vector store backends
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds every setting the binary reads. Keys match the environment
// variable names, lowercased. Empty model names select the provider default
// (gpt-4 and text-embedding-3-small for OpenAI).
type Config struct {
	EmbeddingProvider   string `mapstructure:"embedding_provider"`
	EmbeddingModel      string `mapstructure:"embedding_model"`
	EmbeddingDimensions int    `mapstructure:"embedding_dimensions"`
	LLMProvider         string `mapstructure:"llm_provider"`
	LLMModel            string `mapstructure:"llm_model"`

	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	OpenAIBaseURL   string `mapstructure:"openai_base_url"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	GeminiAPIKey    string `mapstructure:"gemini_api_key"`

	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`

	RetrievalK         int `mapstructure:"retrieval_k"`
	ChunkSize          int `mapstructure:"chunk_size"`
	ChunkOverlap       int `mapstructure:"chunk_overlap"`
	EmbeddingBatchSize int `mapstructure:"embedding_batch_size"`

	VectorStore  string `mapstructure:"vector_store"`
	VectorDBPath string `mapstructure:"vector_db_path"`
	DatabaseURL  string `mapstructure:"database_url"`
	RedisURL     string `mapstructure:"redis_url"`

	MaxFileSize     int64         `mapstructure:"max_file_size"`
	MaxQueryLength  int           `mapstructure:"max_query_length"`
	ResponseTimeout time.Duration `mapstructure:"response_timeout"`

	APIHost     string `mapstructure:"api_host"`
	APIPort     int    `mapstructure:"api_port"`
	Environment string `mapstructure:"environment"`

	PromptsDir        string `mapstructure:"prompts_dir"`
	PDFExtractor      string `mapstructure:"pdf_extractor"`
	IngestConcurrency int    `mapstructure:"ingest_concurrency"`

	RetryMaxAttempts int           `mapstructure:"retry_max_attempts"`
	RetryBaseDelay   time.Duration `mapstructure:"retry_base_delay"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("embedding_provider", string(domain.AIProviderOpenAI))
	v.SetDefault("embedding_model", "")
	v.SetDefault("embedding_dimensions", 0)
	v.SetDefault("llm_provider", string(domain.AIProviderOpenAI))
	v.SetDefault("llm_model", "")

	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("gemini_api_key", "")

	v.SetDefault("temperature", 0.3)
	v.SetDefault("max_tokens", 1000)

	v.SetDefault("retrieval_k", 5)
	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)
	v.SetDefault("embedding_batch_size", 64)

	v.SetDefault("vector_store", StoreSQLite)
	v.SetDefault("vector_db_path", "./vector_db")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")

	v.SetDefault("max_file_size", 50*1024*1024)
	v.SetDefault("max_query_length", 1000)
	v.SetDefault("response_timeout", 5*time.Second)

	v.SetDefault("api_host", "0.0.0.0")
	v.SetDefault("api_port", 8000)
	v.SetDefault("environment", "production")

	v.SetDefault("prompts_dir", "")
	v.SetDefault("pdf_extractor", "native")
	v.SetDefault("ingest_concurrency", 1)

	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay", 200*time.Millisecond)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads envFile (".env" when empty) into the process environment
// without overriding variables that are already set, then resolves every key
// from the environment or its default. A missing env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, domain.WrapError(err, domain.KindConfiguration, "could not read %s", envFile)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, domain.WrapError(err, domain.KindConfiguration, "could not decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every out-of-range or unknown value in one configuration error.
func (c *Config) Validate() error {
	var problems []string

	if c.ChunkSize <= 0 {
		problems = append(problems, "CHUNK_SIZE must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		problems = append(problems, "CHUNK_OVERLAP must be at least 0 and smaller than CHUNK_SIZE")
	}
	if c.RetrievalK < 1 {
		problems = append(problems, "RETRIEVAL_K must be at least 1")
	}
	if !domain.AIProvider(c.EmbeddingProvider).SupportsEmbedding() {
		problems = append(problems, "EMBEDDING_PROVIDER must be one of [openai, gemini], got "+strconv.Quote(c.EmbeddingProvider))
	}
	if !domain.AIProvider(c.LLMProvider).IsValid() {
		problems = append(problems, "LLM_PROVIDER must be one of [openai, anthropic, gemini], got "+strconv.Quote(c.LLMProvider))
	}
	switch c.VectorStore {
	case StoreSQLite, StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when VECTOR_STORE is postgres")
		}
	default:
		problems = append(problems, "VECTOR_STORE must be one of [sqlite, postgres, memory], got "+strconv.Quote(c.VectorStore))
	}
	switch c.PDFExtractor {
	case "native", "pdftotext":
	default:
		problems = append(problems, "PDF_EXTRACTOR must be one of [native, pdftotext], got "+strconv.Quote(c.PDFExtractor))
	}
	if c.APIPort < 1 || c.APIPort > 65535 {
		problems = append(problems, "API_PORT must be between 1 and 65535")
	}
	if c.MaxFileSize <= 0 {
		problems = append(problems, "MAX_FILE_SIZE must be positive")
	}
	if c.MaxQueryLength < 3 {
		problems = append(problems, "MAX_QUERY_LENGTH must be at least 3")
	}
	if c.EmbeddingBatchSize < 1 {
		problems = append(problems, "EMBEDDING_BATCH_SIZE must be at least 1")
	}
	if c.IngestConcurrency < 1 {
		problems = append(problems, "INGEST_CONCURRENCY must be at least 1")
	}
	if c.RetryMaxAttempts < 1 {
		problems = append(problems, "RETRY_MAX_ATTEMPTS must be at least 1")
	}

	if len(problems) > 0 {
		return domain.NewError(domain.KindConfiguration, "invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.APIHost, strconv.Itoa(c.APIPort))
}

// EmbeddingSettings picks the API key matching the embedding provider.
func (c *Config) EmbeddingSettings() *domain.EmbeddingSettings {
	s := &domain.EmbeddingSettings{
		Provider:   domain.AIProvider(c.EmbeddingProvider),
		Model:      c.EmbeddingModel,
		APIKey:     c.apiKey(domain.AIProvider(c.EmbeddingProvider)),
		Dimensions: c.EmbeddingDimensions,
	}
	if s.Provider == domain.AIProviderOpenAI {
		s.BaseURL = c.OpenAIBaseURL
	}
	return s
}

// LLMSettings picks the API key matching the generation provider.
func (c *Config) LLMSettings() *domain.LLMSettings {
	s := &domain.LLMSettings{
		Provider:    domain.AIProvider(c.LLMProvider),
		Model:       c.LLMModel,
		APIKey:      c.apiKey(domain.AIProvider(c.LLMProvider)),
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
	if s.Provider == domain.AIProviderOpenAI {
		s.BaseURL = c.OpenAIBaseURL
	}
	return s
}

func (c *Config) apiKey(p domain.AIProvider) string {
	switch p {
	case domain.AIProviderOpenAI:
		return c.OpenAIAPIKey
	case domain.AIProviderAnthropic:
		return c.AnthropicAPIKey
	case domain.AIProviderGemini:
		return c.GeminiAPIKey
	default:
		return ""
	}
}

// NewLogger builds a slog logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
