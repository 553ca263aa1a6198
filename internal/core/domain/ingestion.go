package domain

import (
	"fmt"
	"time"
)

// IngestionResult is the outcome of ingesting one document.
type IngestionResult struct {
	Success    bool          `json:"success"`
	DocumentID string        `json:"document_id"`
	Pages      int           `json:"pages"`
	Chunks     int           `json:"chunks"`
	Error      *ResultError  `json:"error,omitempty"`
	Duration   time.Duration `json:"duration" swaggertype:"integer" example:"1500000"`
}

// Err returns the result's error descriptor as an error, or nil on success.
func (r IngestionResult) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}

// FailedIngestion builds an unsuccessful result for documentID.
func FailedIngestion(documentID string, err error) IngestionResult {
	return IngestionResult{
		Success:    false,
		DocumentID: documentID,
		Error:      NewResultError(err),
	}
}

// IngestionStats accumulates counters across a batch ingestion call.
type IngestionStats struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
}

// NewIngestionStats returns empty stats with a non-nil error list.
func NewIngestionStats() *IngestionStats {
	return &IngestionStats{Errors: []string{}}
}

// Record folds one file's result into the stats.
func (s *IngestionStats) Record(fileName string, r IngestionResult) {
	s.Total++
	if r.Success {
		s.Successful++
		return
	}
	s.Failed++
	msg := "unknown error"
	if r.Error != nil {
		msg = r.Error.Message
	}
	s.Errors = append(s.Errors, fmt.Sprintf("Failed to ingest %s: %s", fileName, msg))
}
