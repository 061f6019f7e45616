package resilience

import (
	"time"

	"github.com/google/uuid"

	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
)

// DefaultMaxRetries is how often a transient ingest failure is retried.
const DefaultMaxRetries = 3

// NewIngestFailure records a failed source for later retry.
func NewIngestFailure(src model.Source, err error, now time.Time) model.IngestFailure {
	return model.IngestFailure{
		ID:           uuid.New().String(),
		Source:       src,
		Error:        err.Error(),
		ErrorType:    ClassifyError(err),
		MaxRetries:   DefaultMaxRetries,
		CreatedAt:    now,
		LastFailedAt: now,
	}
}

// RecordRetryFailure updates f after another failed attempt.
func RecordRetryFailure(f *model.IngestFailure, err error, now time.Time) {
	f.RetryCount++
	f.Error = err.Error()
	f.ErrorType = ClassifyError(err)
	f.LastFailedAt = now
}
