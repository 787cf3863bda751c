package resilience

import (
	"time"

	"github.com/carelane/medcheck/internal/model"
)

// DLQEntry represents a failed validation batch that can be retried later.
// The records are stored in full so a retry does not need the source file.
type DLQEntry struct {
	ID           string         `json:"id"`
	RunID        string         `json:"run_id,omitempty"`
	Records      []model.Record `json:"records"`
	Error        string         `json:"error"`
	ErrorKind    ErrorKind      `json:"error_kind"`
	ErrorType    string         `json:"error_type"` // "transient" or "permanent"
	RetryCount   int            `json:"retry_count"`
	MaxRetries   int            `json:"max_retries"`
	NextRetryAt  time.Time      `json:"next_retry_at"`
	CreatedAt    time.Time      `json:"created_at"`
	LastFailedAt time.Time      `json:"last_failed_at"`
}

// DLQFilter specifies criteria for querying the dead letter queue.
type DLQFilter struct {
	ErrorType string `json:"error_type,omitempty"` // "transient", "permanent", or "" for all
	RunID     string `json:"run_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// NewDLQEntry builds an entry for a failed batch. Transient failures become
// retryable after a short cooldown; permanent ones are kept for audit only.
func NewDLQEntry(runID string, records []model.Record, err error, maxRetries int) DLQEntry {
	now := time.Now().UTC()
	entry := DLQEntry{
		RunID:        runID,
		Records:      records,
		Error:        err.Error(),
		ErrorKind:    Classify(err),
		ErrorType:    ClassifyError(err),
		MaxRetries:   maxRetries,
		NextRetryAt:  now.Add(5 * time.Minute),
		CreatedAt:    now,
		LastFailedAt: now,
	}
	if entry.ErrorType == "permanent" {
		entry.MaxRetries = 0
	}
	return entry
}

// CanRetry returns true if this entry hasn't exceeded its max retry count.
func (e *DLQEntry) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// IsTransient reports whether an error kind is worth retrying out of band.
// Rate limits, timeouts, and dropped connections clear on their own; auth
// failures and malformed responses do not.
func IsTransient(err error) bool {
	switch Classify(err) {
	case KindRateLimited, KindTimeout, KindConnection:
		return true
	default:
		return false
	}
}

// ClassifyError categorizes an error as "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
