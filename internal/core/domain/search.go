package domain

import (
	"sort"
	"time"
)

// SourcePreviewLength is the number of characters of chunk text exposed in a citation.
const SourcePreviewLength = 200

// RetrievedChunk pairs a chunk with its similarity score and 1-based rank.
// Constructed per query and discarded afterwards.
type RetrievedChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"` // higher = more relevant
	Rank  int     `json:"rank"`
}

// SortRetrieved orders results by descending score, breaking ties by chunk id,
// then assigns ranks starting at 1.
func SortRetrieved(results []RetrievedChunk) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	for i := range results {
		results[i].Rank = i + 1
	}
}

// SourceCitation is a truncated preview of a chunk used to answer a query.
type SourceCitation struct {
	Content string `json:"content" example:"Application deadline: DEADLINE-7731"`
	Source  string `json:"source" example:"maestria.pdf"`
	Page    int    `json:"page" example:"1"`
}

// CitationFrom builds a citation for a retrieved chunk.
func CitationFrom(rc RetrievedChunk) SourceCitation {
	content := rc.Chunk.Content
	if r := []rune(content); len(r) > SourcePreviewLength {
		content = string(r[:SourcePreviewLength])
	}
	page := rc.Chunk.Metadata.Int(MetaPage, rc.Chunk.Page)
	return SourceCitation{
		Content: content,
		Source:  rc.Chunk.Metadata.String(MetaSource, "Unknown"),
		Page:    page,
	}
}

// QueryRequest is the input to the query pipeline.
type QueryRequest struct {
	Question      string `json:"question" example:"What is the application deadline?"`
	ReturnSources *bool  `json:"return_sources,omitempty"`
}

// WantsSources reports whether citations were requested. Defaults to true.
func (r QueryRequest) WantsSources() bool {
	return r.ReturnSources == nil || *r.ReturnSources
}

// QueryResult is the outcome of answering one question. Immutable once returned.
type QueryResult struct {
	Success  bool             `json:"success"`
	Answer   *string          `json:"answer"`
	Sources  []SourceCitation `json:"sources"`
	Question string           `json:"question,omitempty"`
	Error    *ResultError     `json:"error,omitempty"`
	Took     time.Duration    `json:"took" swaggertype:"integer" example:"1500000"`
}

// FailedQuery builds an unsuccessful result from err.
func FailedQuery(question string, err error) QueryResult {
	return QueryResult{
		Success:  false,
		Sources:  []SourceCitation{},
		Question: question,
		Error:    NewResultError(err),
	}
}

// HealthStatus reports whether the pipeline ports have been initialised.
type HealthStatus struct {
	Status            string `json:"status" example:"healthy"`
	VectorDBConnected bool   `json:"vector_db_connected"`
	LLMAvailable      bool   `json:"llm_available"`
}

// Health status values
const (
	HealthStatusHealthy  = "healthy"
	HealthStatusDegraded = "degraded"
)
