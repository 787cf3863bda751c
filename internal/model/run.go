package model

import "time"

// RunStatus represents the current state of a validation run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusValidating RunStatus = "validating"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// Run represents a single validation run over one uploaded file.
type Run struct {
	ID        string     `json:"id"`
	FileName  string     `json:"file_name"`
	FileType  FileType   `json:"file_type"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Summary  ValidationSummary  `json:"summary"`
	Results  []ValidationResult `json:"results"`
	Analysis *FileAnalysis      `json:"analysis,omitempty"`
	Error    string             `json:"error,omitempty"`
}
