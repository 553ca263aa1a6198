package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     chi.Router
	version    string
	logger     *slog.Logger

	// Upload handling
	uploadDir     string
	maxUploadSize int64

	// Services
	queryService     driving.QueryService
	ingestionService driving.IngestionService
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
	Logger  *slog.Logger

	// UploadDir is where uploaded PDFs are staged (default os.TempDir()).
	UploadDir string
	// MaxUploadSize caps the multipart body. The validator enforces the
	// per-file limit; this only stops oversized bodies from being buffered.
	MaxUploadSize int64
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:          "0.0.0.0",
		Port:          8000,
		Version:       "dev",
		MaxUploadSize: 64 << 20,
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	queryService driving.QueryService,
	ingestionService driving.IngestionService,
) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = os.TempDir()
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultConfig().MaxUploadSize
	}

	s := &Server{
		router:           chi.NewRouter(),
		version:          cfg.Version,
		logger:           cfg.Logger,
		uploadDir:        cfg.UploadDir,
		maxUploadSize:    cfg.MaxUploadSize,
		queryService:     queryService,
		ingestionService: ingestionService,
	}

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // uploads are ingested synchronously
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures middleware and all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(NewRecoveryMiddleware(s.logger).Handler)
	s.router.Use(NewRequestIDMiddleware().Handler)
	s.router.Use(middleware.RealIP)
	s.router.Use(NewLoggingMiddleware(s.logger).Handler)
	s.router.Use(corsMiddleware())

	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ready", s.handleReady)
	s.router.Get("/swagger/doc.json", s.handleSwagger)

	s.router.Post("/query", s.handleQuery)
	s.router.Post("/ingest/pdf", s.handleIngestPDF)
	s.router.Post("/ingest/directory", s.handleIngestDirectory)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return <-errCh
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
