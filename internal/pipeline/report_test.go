package pipeline

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carelane/medcheck/internal/model"
)

func sampleResults() []model.ValidationResult {
	return []model.ValidationResult{
		{Code: "A01.1", Status: model.StatusValid, CodingSystem: "ICD-10"},
		{Code: "99213", Status: model.StatusWarning, Issues: []string{"Deprecated code"}},
		{Code: "A01.1", Status: model.StatusWarning, CodingSystem: "ICD-10", DuplicateOf: "A01.1"},
		{Code: "XYZ", Status: model.StatusInvalid, Issues: []string{"Unknown code", "No match found"}},
	}
}

func TestFormatReport(t *testing.T) {
	analysis := &model.FileAnalysis{
		Type: model.FileTypeMedical,
		Team: model.TeamRecommendation{Team: model.TeamClaims, Confidence: 72.4},
		DataQuality: model.DataQuality{
			Completeness: 95,
			Consistency:  100,
		},
		PII: model.PIIReport{
			HasPII:    true,
			RiskLevel: model.RiskHigh,
			PIITypes:  []string{"Social Security Number"},
		},
	}

	report := FormatReport("claims.csv", sampleResults(), analysis)

	assert.Contains(t, report, "# Validation Report: claims.csv")
	assert.Contains(t, report, "- Total entries: 4")
	assert.Contains(t, report, "- Valid: 1")
	assert.Contains(t, report, "- Warnings: 2")
	assert.Contains(t, report, "- Invalid: 1")
	assert.Contains(t, report, "- Duplicates: 1")
	assert.Contains(t, report, "- Recommended team: Claims (72% confidence)")
	assert.Contains(t, report, "- Completeness: 95%, consistency: 100%")
	assert.Contains(t, report, "- PII risk: High (Social Security Number)")
	assert.Contains(t, report, "- [valid] A01.1 (ICD-10)")
	assert.Contains(t, report, "  - Duplicate of: A01.1")
	assert.Contains(t, report, "  - Unknown code")
}

func TestFormatReport_NoAnalysis(t *testing.T) {
	report := FormatReport("data.csv", sampleResults(), nil)

	assert.NotContains(t, report, "## File Analysis")
	assert.Contains(t, report, "## Results")
}

func TestFormatNotification(t *testing.T) {
	msg := FormatNotification(sampleResults())

	assert.Contains(t, msg, "*Validation Results Summary*")
	assert.Contains(t, msg, "Total Entries: 4")
	assert.Contains(t, msg, "Duplicates: 1")
	assert.Contains(t, msg, "*Detailed Results*")
	assert.Contains(t, msg, ":white_check_mark: *A01.1* (ICD-10)")
	assert.Contains(t, msg, ":warning: *99213* (N/A)")
	assert.Contains(t, msg, ":x: *XYZ* (N/A)")
	assert.Contains(t, msg, "Issues: Unknown code, No match found")
	assert.Contains(t, msg, "Duplicate of: A01.1")
	assert.NotContains(t, msg, "Showing first 10 results")
}

func TestFormatNotification_TruncatesDetail(t *testing.T) {
	results := make([]model.ValidationResult, 15)
	for i := range results {
		results[i] = model.ValidationResult{
			Code:   fmt.Sprintf("A%02d.1", i),
			Status: model.StatusValid,
		}
	}

	msg := FormatNotification(results)

	assert.Contains(t, msg, "Total Entries: 15")
	assert.Contains(t, msg, "_Showing first 10 results..._")
	assert.Equal(t, 10, strings.Count(msg, ":white_check_mark:"))
	assert.NotContains(t, msg, "*A10.1*")
}
