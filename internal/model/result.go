package model

// Status is a per-record validation verdict.
type Status string

const (
	StatusValid   Status = "valid"
	StatusWarning Status = "warning"
	StatusInvalid Status = "invalid"
)

// ValidationResult is the outcome for exactly one input record. Results are
// positional: result i always belongs to input record i.
type ValidationResult struct {
	Code            string   `json:"code"`
	Status          Status   `json:"status"`
	CodingSystem    string   `json:"coding_system,omitempty"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
	Explanation     string   `json:"explanation"`
	ComplianceNotes []string `json:"compliance_notes,omitempty"`

	// DuplicateOf references the first-seen occurrence's code when this
	// record repeats a primary key within the same run.
	DuplicateOf string `json:"duplicate_of,omitempty"`

	// OriginalData retains the source record for display.
	OriginalData Record `json:"original_data"`
}

// ValidationSummary aggregates a run's results for display and notification.
type ValidationSummary struct {
	TotalRows      int `json:"total_rows"`
	ValidRows      int `json:"valid_rows"`
	WarningRows    int `json:"warning_rows"`
	InvalidRows    int `json:"invalid_rows"`
	DuplicateCount int `json:"duplicate_count"`
}

// Summarize folds results into a ValidationSummary.
func Summarize(results []ValidationResult) ValidationSummary {
	s := ValidationSummary{TotalRows: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusValid:
			s.ValidRows++
		case StatusWarning:
			s.WarningRows++
		case StatusInvalid:
			s.InvalidRows++
		}
		if r.DuplicateOf != "" {
			s.DuplicateCount++
		}
	}
	return s
}
