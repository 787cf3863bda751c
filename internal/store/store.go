// Package store persists validation runs, per-record results, and the dead
// letter queue of failed batches.
package store

import (
	"context"
	"time"

	"github.com/carelane/medcheck/internal/model"
	"github.com/carelane/medcheck/internal/resilience"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status   model.RunStatus `json:"status,omitempty"`
	FileType model.FileType  `json:"file_type,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Offset   int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the validation pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, fileName string, fileType model.FileType) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	FailRun(ctx context.Context, runID string, runErr string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Per-record results
	SaveResults(ctx context.Context, runID string, results []model.ValidationResult) error
	ListResults(ctx context.Context, runID string) ([]model.ValidationResult, error)

	// Dead letter queue
	EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error
	DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error)
	IncrementDLQRetry(ctx context.Context, entryID string, nextRetryAt time.Time, lastErr string) error
	RemoveDLQ(ctx context.Context, entryID string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
