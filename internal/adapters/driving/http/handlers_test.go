package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Mock services for testing

type mockQueryService struct {
	answerFn func(ctx context.Context, question string, returnSources bool) domain.QueryResult
	health   domain.HealthStatus
	ready    domain.HealthStatus

	gotQuestion string
	gotSources  bool
}

func (m *mockQueryService) Answer(ctx context.Context, question string, returnSources bool) domain.QueryResult {
	m.gotQuestion = question
	m.gotSources = returnSources
	if m.answerFn != nil {
		return m.answerFn(ctx, question, returnSources)
	}
	answer := "ok"
	return domain.QueryResult{Success: true, Answer: &answer, Sources: []domain.SourceCitation{}, Question: question}
}

func (m *mockQueryService) Health() domain.HealthStatus {
	return m.health
}

func (m *mockQueryService) Ready(ctx context.Context) domain.HealthStatus {
	return m.ready
}

type mockIngestionService struct {
	ingestFn func(ctx context.Context, path string, metadata domain.Metadata) domain.IngestionResult

	gotPath     string
	gotContent  []byte
	gotMetadata domain.Metadata
	gotDir      string
}

func (m *mockIngestionService) Ingest(ctx context.Context, path string, metadata domain.Metadata) domain.IngestionResult {
	m.gotPath = path
	m.gotMetadata = metadata
	m.gotContent, _ = os.ReadFile(path)
	if m.ingestFn != nil {
		return m.ingestFn(ctx, path, metadata)
	}
	return domain.IngestionResult{Success: true, DocumentID: filepath.Base(path), Pages: 1, Chunks: 3}
}

func (m *mockIngestionService) IngestMany(ctx context.Context, dir string) domain.IngestionStats {
	m.gotDir = dir
	stats := domain.NewIngestionStats()
	stats.Record("a.pdf", domain.IngestionResult{Success: true})
	stats.Record("b.txt", domain.FailedIngestion("b.txt", domain.NewError(domain.KindValidation, "File must have .pdf extension")))
	return *stats
}

func newTestServer(t *testing.T, q *mockQueryService, ing *mockIngestionService) *Server {
	t.Helper()
	if q == nil {
		q = &mockQueryService{}
	}
	if ing == nil {
		ing = &mockIngestionService{}
	}
	cfg := DefaultConfig()
	cfg.Version = "0.1.0"
	cfg.UploadDir = t.TempDir()
	return NewServer(cfg, q, ing)
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

// Root, health and docs

func TestHandleRoot(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rr := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	resp := decode[RootResponse](t, rr)
	if resp.Message != "RAG Chatbot API" {
		t.Errorf("expected message 'RAG Chatbot API', got %q", resp.Message)
	}
	if resp.Version != "0.1.0" {
		t.Errorf("expected version 0.1.0, got %q", resp.Version)
	}
	if resp.Docs != "/swagger/doc.json" {
		t.Errorf("expected docs /swagger/doc.json, got %q", resp.Docs)
	}
}

func TestHandleHealth(t *testing.T) {
	q := &mockQueryService{health: domain.HealthStatus{Status: domain.HealthStatusDegraded, VectorDBConnected: true}}
	s := newTestServer(t, q, nil)
	rr := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	resp := decode[domain.HealthStatus](t, rr)
	if resp.Status != domain.HealthStatusDegraded || !resp.VectorDBConnected || resp.LLMAvailable {
		t.Errorf("unexpected health response: %+v", resp)
	}
}

func TestHandleReady(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		wantCode int
	}{
		{"healthy", domain.HealthStatusHealthy, http.StatusOK},
		{"degraded", domain.HealthStatusDegraded, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &mockQueryService{ready: domain.HealthStatus{Status: tt.status}}
			rr := serve(newTestServer(t, q, nil), httptest.NewRequest(http.MethodGet, "/ready", nil))
			if rr.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rr.Code)
			}
		})
	}
}

func TestHandleSwagger(t *testing.T) {
	rr := serve(newTestServer(t, nil, nil), httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var doc struct {
		Swagger string                     `json:"swagger"`
		Info    struct{ Title string }     `json:"info"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("swagger document is not valid JSON: %v", err)
	}
	if doc.Swagger != "2.0" {
		t.Errorf("expected swagger 2.0, got %q", doc.Swagger)
	}
	if doc.Info.Title != "RAG Chatbot API" {
		t.Errorf("unexpected title %q", doc.Info.Title)
	}
	for _, path := range []string{"/query", "/ingest/pdf", "/ingest/directory", "/health"} {
		if _, ok := doc.Paths[path]; !ok {
			t.Errorf("swagger document is missing %s", path)
		}
	}
}

// Query

func TestHandleQuery_Success(t *testing.T) {
	q := &mockQueryService{}
	s := newTestServer(t, q, nil)

	body := `{"question": "What is the application deadline?"}`
	rr := serve(s, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if q.gotQuestion != "What is the application deadline?" {
		t.Errorf("unexpected question %q", q.gotQuestion)
	}
	if !q.gotSources {
		t.Error("return_sources should default to true")
	}
	resp := decode[domain.QueryResult](t, rr)
	if !resp.Success || resp.Answer == nil || *resp.Answer != "ok" {
		t.Errorf("unexpected result: %+v", resp)
	}
}

func TestHandleQuery_NoSources(t *testing.T) {
	q := &mockQueryService{}
	s := newTestServer(t, q, nil)

	body := `{"question": "What is the deadline?", "return_sources": false}`
	serve(s, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body)))

	if q.gotSources {
		t.Error("expected return_sources false to be passed through")
	}
}

func TestHandleQuery_Refusal(t *testing.T) {
	refusal := "Lo sentimos, no encontramos información relevante en nuestra base de datos. Por favor, contacta a la oficina de posgrados."
	q := &mockQueryService{
		answerFn: func(_ context.Context, question string, _ bool) domain.QueryResult {
			return domain.QueryResult{
				Success:  false,
				Answer:   &refusal,
				Sources:  []domain.SourceCitation{},
				Question: question,
				Error:    &domain.ResultError{Kind: domain.KindRetrieval, Message: "No relevant documents found in the database"},
			}
		},
	}
	rr := serve(newTestServer(t, q, nil), httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"question":"What is X?"}`)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	resp := decode[domain.QueryResult](t, rr)
	if resp.Success {
		t.Error("expected success false")
	}
	if resp.Answer == nil || *resp.Answer != refusal {
		t.Errorf("expected refusal answer, got %v", resp.Answer)
	}
	if resp.Error == nil || resp.Error.Kind != domain.KindRetrieval {
		t.Errorf("expected retrieval error, got %+v", resp.Error)
	}
	if resp.Sources == nil || len(resp.Sources) != 0 {
		t.Errorf("expected empty sources, got %v", resp.Sources)
	}
}

func TestHandleQuery_ErrorStatus(t *testing.T) {
	tests := []struct {
		name     string
		kind     domain.ErrorKind
		message  string
		wantCode int
	}{
		{"validation", domain.KindValidation, "Query must be at least 3 characters long", http.StatusBadRequest},
		{"not initialized", domain.KindNotInitialized, "query pipeline not initialized", http.StatusServiceUnavailable},
		{"generation", domain.KindGeneration, "Error processing query: boom", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &mockQueryService{
				answerFn: func(_ context.Context, question string, _ bool) domain.QueryResult {
					r := domain.FailedQuery(question, domain.NewError(tt.kind, "%s", tt.message))
					return r
				},
			}
			rr := serve(newTestServer(t, q, nil), httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"question":"ab"}`)))

			if rr.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rr.Code)
			}
			if tt.wantCode == http.StatusOK {
				return
			}
			resp := decode[ErrorResponse](t, rr)
			if resp.Error != tt.message {
				t.Errorf("expected error %q, got %q", tt.message, resp.Error)
			}
		})
	}
}

func TestHandleQuery_InvalidBody(t *testing.T) {
	rr := serve(newTestServer(t, nil, nil), httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("not json")))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

// Ingestion

func multipartUpload(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/ingest/pdf", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleIngestPDF_Success(t *testing.T) {
	ing := &mockIngestionService{}
	s := newTestServer(t, nil, ing)

	content := []byte("%PDF-1.4 fake")
	rr := serve(s, multipartUpload(t, "maestria.pdf", content))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[IngestionResponse](t, rr)
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.Message != "PDF 'maestria.pdf' successfully ingested" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if resp.FileName != "maestria.pdf" || resp.Chunks != 3 {
		t.Errorf("unexpected response %+v", resp)
	}

	if filepath.Base(ing.gotPath) != "maestria.pdf" {
		t.Errorf("staged file should keep the upload name, got %s", ing.gotPath)
	}
	if !bytes.Equal(ing.gotContent, content) {
		t.Error("staged file content does not match the upload")
	}
	if ing.gotMetadata[domain.MetaProgram] != "maestria" {
		t.Errorf("expected program maestria, got %v", ing.gotMetadata[domain.MetaProgram])
	}
	uploadedAt, _ := ing.gotMetadata[domain.MetaUploadedAt].(string)
	if _, err := time.Parse(time.RFC3339, uploadedAt); err != nil {
		t.Errorf("uploaded_at %q is not RFC3339: %v", uploadedAt, err)
	}

	if _, err := os.Stat(ing.gotPath); !os.IsNotExist(err) {
		t.Error("staged upload should be removed after ingestion")
	}
}

func TestHandleIngestPDF_InvalidType(t *testing.T) {
	ing := &mockIngestionService{}
	rr := serve(newTestServer(t, nil, ing), multipartUpload(t, "notes.txt", []byte("hello")))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	resp := decode[IngestionResponse](t, rr)
	if resp.Success || resp.Message != "Invalid file type" || resp.Error != "Only PDF files are accepted" {
		t.Errorf("unexpected response %+v", resp)
	}
	if ing.gotPath != "" {
		t.Error("ingestion should not run for non-PDF uploads")
	}
}

func TestHandleIngestPDF_Failures(t *testing.T) {
	tests := []struct {
		name        string
		kind        domain.ErrorKind
		message     string
		wantCode    int
		wantMessage string
	}{
		{"validation", domain.KindValidation, "File is empty", http.StatusOK, "PDF validation failed"},
		{"ingestion", domain.KindIngestion, "no extractable text found in scan.pdf", http.StatusOK, "Failed to ingest PDF"},
		{"not initialized", domain.KindNotInitialized, "ingestion pipeline not initialized", http.StatusServiceUnavailable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := &mockIngestionService{
				ingestFn: func(_ context.Context, path string, _ domain.Metadata) domain.IngestionResult {
					return domain.FailedIngestion(filepath.Base(path), domain.NewError(tt.kind, "%s", tt.message))
				},
			}
			rr := serve(newTestServer(t, nil, ing), multipartUpload(t, "scan.pdf", []byte("%PDF")))

			if rr.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rr.Code)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			resp := decode[IngestionResponse](t, rr)
			if resp.Success {
				t.Error("expected success false")
			}
			if resp.Message != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, resp.Message)
			}
			if resp.Error != tt.message {
				t.Errorf("expected error %q, got %q", tt.message, resp.Error)
			}
		})
	}
}

func TestHandleIngestPDF_MissingFile(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/ingest/pdf", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rr := serve(newTestServer(t, nil, nil), req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleIngestDirectory(t *testing.T) {
	ing := &mockIngestionService{}
	s := newTestServer(t, nil, ing)

	rr := serve(s, httptest.NewRequest(http.MethodPost, "/ingest/directory", strings.NewReader(`{"directory":"/data/pdfs"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ing.gotDir != "/data/pdfs" {
		t.Errorf("unexpected directory %q", ing.gotDir)
	}
	stats := decode[domain.IngestionStats](t, rr)
	if stats.Total != 2 || stats.Successful != 1 || stats.Failed != 1 || len(stats.Errors) != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestHandleIngestDirectory_BadRequest(t *testing.T) {
	for _, body := range []string{"", "{", `{"directory":"  "}`} {
		rr := serve(newTestServer(t, nil, nil), httptest.NewRequest(http.MethodPost, "/ingest/directory", strings.NewReader(body)))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected status 400, got %d", body, rr.Code)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	rr := serve(newTestServer(t, nil, nil), httptest.NewRequest(http.MethodGet, "/api/v1/users", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestNewServer_Defaults(t *testing.T) {
	s := NewServer(Config{Host: "127.0.0.1", Port: 8000}, &mockQueryService{}, &mockIngestionService{})
	if s.Addr() != "127.0.0.1:8000" {
		t.Errorf("unexpected addr %q", s.Addr())
	}
	if s.uploadDir != os.TempDir() {
		t.Errorf("expected upload dir %q, got %q", os.TempDir(), s.uploadDir)
	}
	if s.maxUploadSize != DefaultConfig().MaxUploadSize {
		t.Errorf("unexpected max upload size %d", s.maxUploadSize)
	}
}
