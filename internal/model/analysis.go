package model

// RiskLevel is the ordinal PII severity scale. Escalation is monotonic within
// one scan: a Low match never overrides an existing Medium or High.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

func (r RiskLevel) String() string {
	switch r {
	case RiskHigh:
		return "High"
	case RiskMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// MarshalJSON renders the risk level as its display string.
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON parses a display string back into a risk level.
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"High"`:
		*r = RiskHigh
	case `"Medium"`:
		*r = RiskMedium
	default:
		*r = RiskLow
	}
	return nil
}

// PIIReport is the per-file outcome of the PII scan. Immutable once derived.
type PIIReport struct {
	HasPII          bool      `json:"has_pii"`
	PIITypes        []string  `json:"pii_types"`
	RiskLevel       RiskLevel `json:"risk_level"`
	DetectedFields  []string  `json:"detected_fields"`
	Recommendations []string  `json:"recommendations"`
}

// Team is the business unit a file is routed to.
type Team string

const (
	TeamClaims          Team = "Claims"
	TeamPolicy          Team = "Policy"
	TeamMedicalProducts Team = "Medical Products"
	TeamProvider        Team = "Provider"
	TeamGeneral         Team = "General"
)

// TeamRecommendation is the heuristic routing decision for a file.
type TeamRecommendation struct {
	Team       Team    `json:"team"`
	Confidence float64 `json:"confidence"` // 0-100
	Reasoning  string  `json:"reasoning"`
}

// DataQuality scores a file's completeness and consistency.
type DataQuality struct {
	Completeness int      `json:"completeness"` // percent
	Consistency  int      `json:"consistency"`  // percent
	Issues       []string `json:"issues"`
}

// FileAnalysis is the per-file summary shown before validation. Created once
// after parsing; read-only thereafter.
type FileAnalysis struct {
	FileName    string             `json:"file_name"`
	FileFormat  string             `json:"file_format"` // CSV, XLSX, Unknown
	FileSize    string             `json:"file_size"`
	Headers     []string           `json:"headers"`
	SampleRows  []map[string]any   `json:"sample_rows"`
	Type        FileType           `json:"type"`
	Team        TeamRecommendation `json:"team"`
	DataQuality DataQuality        `json:"data_quality"`
	PII         PIIReport          `json:"pii"`
}
