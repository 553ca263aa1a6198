package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/docs"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"Query must be at least 3 characters long"`
}

// RootResponse describes the API
// @Description API information
type RootResponse struct {
	Message string `json:"message" example:"RAG Chatbot API"`
	Version string `json:"version" example:"0.1.0"`
	Docs    string `json:"docs" example:"/swagger/doc.json"`
}

// IngestionResponse reports the outcome of a single upload
// @Description PDF upload outcome
type IngestionResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message" example:"PDF 'maestria.pdf' successfully ingested"`
	FileName   string `json:"file_name,omitempty" example:"maestria.pdf"`
	DocumentID string `json:"document_id,omitempty" example:"maestria.pdf"`
	Chunks     int    `json:"chunks,omitempty" example:"12"`
	Error      string `json:"error,omitempty"`
}

// DirectoryRequest names a server-side directory of PDFs
// @Description Batch ingestion request
type DirectoryRequest struct {
	Directory string `json:"directory" example:"/data/pdfs"`
}

// maxMultipartMemory is held in memory before parts spill to disk.
const maxMultipartMemory = 32 << 20

// handleRoot godoc
// @Summary      API information
// @Tags         Health
// @Produce      json
// @Success      200  {object}  RootResponse
// @Router       / [get]
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Message: "RAG Chatbot API",
		Version: s.version,
		Docs:    "/swagger/doc.json",
	})
}

// handleHealth godoc
// @Summary      Health check
// @Description  Reports whether the vector store and LLM are configured. Does not call them.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  domain.HealthStatus
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queryService.Health())
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the vector store and LLM
// @Tags         Health
// @Produce      json
// @Success      200  {object}  domain.HealthStatus
// @Failure      503  {object}  domain.HealthStatus
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.queryService.Ready(r.Context())
	code := http.StatusOK
	if status.Status != domain.HealthStatusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// handleSwagger serves the generated OpenAPI document.
func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, docs.SwaggerInfo.ReadDoc())
}

// handleQuery godoc
// @Summary      Ask a question
// @Description  Answers from the ingested documents only. When nothing relevant is stored the answer is a fixed refusal and success is false.
// @Tags         Query
// @Accept       json
// @Produce      json
// @Param        request  body      domain.QueryRequest  true  "Question"
// @Success      200      {object}  domain.QueryResult
// @Failure      400      {object}  ErrorResponse  "Invalid question"
// @Failure      503      {object}  ErrorResponse  "Pipeline not initialized"
// @Router       /query [post]
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := s.queryService.Answer(r.Context(), req.Question, req.WantsSources())
	if result.Error != nil {
		switch result.Error.Kind {
		case domain.KindValidation:
			writeError(w, http.StatusBadRequest, result.Error.Message)
			return
		case domain.KindNotInitialized:
			writeError(w, http.StatusServiceUnavailable, result.Error.Message)
			return
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// handleIngestPDF godoc
// @Summary      Upload and ingest a PDF
// @Description  Re-uploading a file with the same name replaces its chunks.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "PDF document"
// @Success      200   {object}  IngestionResponse
// @Failure      400   {object}  ErrorResponse  "Missing file"
// @Failure      503   {object}  ErrorResponse  "Pipeline not initialized"
// @Router       /ingest/pdf [post]
func (s *Server) handleIngestPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		writeJSON(w, http.StatusOK, IngestionResponse{
			Success: false,
			Message: "Invalid file type",
			Error:   "Only PDF files are accepted",
		})
		return
	}

	path, cleanup, err := s.stageUpload(file, name)
	if err != nil {
		s.logger.Error("failed to stage upload", "file", name, "error", err)
		writeJSON(w, http.StatusOK, IngestionResponse{
			Success: false,
			Message: "Error ingesting PDF",
			Error:   "could not store the uploaded file",
		})
		return
	}
	defer cleanup()

	metadata := domain.Metadata{
		domain.MetaProgram:    domain.Stem(name),
		domain.MetaUploadedAt: time.Now().UTC().Format(time.RFC3339),
	}

	result := s.ingestionService.Ingest(r.Context(), path, metadata)
	if result.Success {
		writeJSON(w, http.StatusOK, IngestionResponse{
			Success:    true,
			Message:    fmt.Sprintf("PDF '%s' successfully ingested", name),
			FileName:   name,
			DocumentID: result.DocumentID,
			Chunks:     result.Chunks,
		})
		return
	}

	resp := IngestionResponse{
		Success:  false,
		Message:  "Failed to ingest PDF",
		FileName: name,
		Error:    "An error occurred during ingestion",
	}
	if result.Error != nil {
		resp.Error = result.Error.Message
		switch result.Error.Kind {
		case domain.KindValidation:
			resp.Message = "PDF validation failed"
		case domain.KindNotInitialized:
			writeError(w, http.StatusServiceUnavailable, result.Error.Message)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// stageUpload copies an upload to <uploadDir>/<uuid>/<name> so the stored
// document keeps the client's file name. cleanup removes the directory.
func (s *Server) stageUpload(src io.Reader, name string) (string, func(), error) {
	dir := filepath.Join(s.uploadDir, "sercha-rag-upload-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", nil, fmt.Errorf("create upload dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to remove upload", "dir", dir, "error", err)
		}
	}

	path := filepath.Join(dir, name)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		cleanup()
		return "", nil, fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close upload file: %w", err)
	}
	return path, cleanup, nil
}

// handleIngestDirectory godoc
// @Summary      Ingest a server-side directory
// @Description  Ingests every file in the directory. One failure never aborts the batch.
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        request  body      DirectoryRequest  true  "Directory"
// @Success      200      {object}  domain.IngestionStats
// @Failure      400      {object}  ErrorResponse  "Missing directory"
// @Router       /ingest/directory [post]
func (s *Server) handleIngestDirectory(w http.ResponseWriter, r *http.Request) {
	var req DirectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Directory) == "" {
		writeError(w, http.StatusBadRequest, "directory is required")
		return
	}

	writeJSON(w, http.StatusOK, s.ingestionService.IngestMany(r.Context(), req.Directory))
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
