package model

import "time"

// IngestStatus is the outcome of ingesting one source.
type IngestStatus string

const (
	IngestStatusIngested  IngestStatus = "ingested"
	IngestStatusDuplicate IngestStatus = "duplicate"
	IngestStatusSkipped   IngestStatus = "skipped"
	IngestStatusFailed    IngestStatus = "failed"
)

// Skip reasons reported with IngestStatusSkipped.
const (
	SkipReasonUnusableText = "unusable_text"
	SkipReasonNoChunks     = "no_valid_chunks"
)

// Hints are optional caller-supplied classification overrides.
type Hints struct {
	Province string `json:"province,omitempty"`
	Asset    string `json:"asset,omitempty"`
	DocClass string `json:"doc_class,omitempty"`
}

// Source is one document to ingest: a local path or an http(s) URL.
type Source struct {
	Location string `json:"location"`
	Hints
}

// IngestResult reports what happened to one source.
type IngestResult struct {
	Location   string       `json:"location"`
	Status     IngestStatus `json:"status"`
	DocumentID string       `json:"document_id,omitempty"`
	Chunks     int          `json:"chunks,omitempty"`
	Reason     string       `json:"reason,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// IngestFailure is a dead-letter entry for a source that failed to ingest.
type IngestFailure struct {
	ID           string    `json:"id"`
	Source       Source    `json:"source"`
	Error        string    `json:"error"`
	ErrorType    string    `json:"error_type"` // "transient" or "permanent"
	RetryCount   int       `json:"retry_count"`
	MaxRetries   int       `json:"max_retries"`
	CreatedAt    time.Time `json:"created_at"`
	LastFailedAt time.Time `json:"last_failed_at"`
}

// CanRetry reports whether the entry is still eligible for a retry.
func (f *IngestFailure) CanRetry() bool {
	return f.ErrorType == "transient" && f.RetryCount < f.MaxRetries
}
