package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelane/medcheck/internal/model"
)

func TestRecommendTeam_DrugHeaders(t *testing.T) {
	rec := RecommendTeam("", []string{"drug_code", "drug_name", "strength", "price"})

	assert.Equal(t, model.TeamMedicalProducts, rec.Team)
	assert.Greater(t, rec.Confidence, 0.0)
	assert.Contains(t, rec.Reasoning, "matching headers")
}

func TestRecommendTeam_ClaimsContent(t *testing.T) {
	rec := RecommendTeam("claim billing reimbursement for ICD codes",
		[]string{"claim_id", "diagnosis_code", "billed_amount"})

	assert.Equal(t, model.TeamClaims, rec.Team)
	assert.Contains(t, rec.Reasoning, "Claims")
}

func TestRecommendTeam_GeneralFallback(t *testing.T) {
	rec := RecommendTeam("hello world", []string{"foo", "bar"})

	assert.Equal(t, model.TeamGeneral, rec.Team)
	assert.Zero(t, rec.Confidence)
	assert.Equal(t, "No strong signal for any specific team", rec.Reasoning)
}

func TestRecommendTeam_ConfidenceCapped(t *testing.T) {
	content := "drug medication pharmaceutical prescription dosage strength formulary ndc atc"
	headers := []string{"drug_code", "drug_name", "ndc", "strength", "dosage", "atc_code", "formulary", "price"}

	rec := RecommendTeam(content, headers)

	assert.Equal(t, model.TeamMedicalProducts, rec.Team)
	assert.Equal(t, 95.0, rec.Confidence)
}

func TestAssessDataQuality_CleanData(t *testing.T) {
	rows := []map[string]any{
		{"code": "A01.1", "price": 1.0},
		{"code": "B02.2", "price": 2.0},
	}
	q := AssessDataQuality(rows, []string{"code", "price"})

	assert.Equal(t, 100, q.Completeness)
	assert.Equal(t, 100, q.Consistency)
	assert.Empty(t, q.Issues)
}

func TestAssessDataQuality_MissingValues(t *testing.T) {
	rows := []map[string]any{
		{"code": "A01.1", "note": "x"},
		{"code": "B02.2"},
		{"code": "C03.3"},
		{"code": "D04.4"},
		{"code": "E05.5"},
	}
	q := AssessDataQuality(rows, []string{"code", "note"})

	require.Len(t, q.Issues, 1)
	assert.Contains(t, q.Issues[0], "High missing data rate in column: note")
	assert.Contains(t, q.Issues[0], "80% missing")
	assert.Equal(t, 60, q.Completeness)
}

func TestAssessDataQuality_MixedTypes(t *testing.T) {
	rows := []map[string]any{
		{"price": 1.0},
		{"price": "two"},
	}
	q := AssessDataQuality(rows, []string{"price"})

	require.Len(t, q.Issues, 1)
	assert.Contains(t, q.Issues[0], "Inconsistent data types in column: price")
	assert.Equal(t, 0, q.Consistency)
}

func TestAssessDataQuality_EmptyFile(t *testing.T) {
	q := AssessDataQuality(nil, []string{"code"})

	assert.Equal(t, []string{"No data found in file"}, q.Issues)
	assert.Zero(t, q.Completeness)
}

func TestAnalyzeFile(t *testing.T) {
	pf := &model.ParsedFile{
		Type:    model.FileTypeDrug,
		Headers: []string{"drug_code", "drug_name", "price"},
		Records: []model.Record{
			model.NewRecord(model.FileTypeDrug, map[string]any{
				"drug_code": "N02BE01", "drug_name": "Paracetamol", "price": 4.5,
			}),
			model.NewRecord(model.FileTypeDrug, map[string]any{
				"drug_code": "A10BA02", "drug_name": "Metformin", "price": 7.0,
			}),
		},
	}

	analysis := AnalyzeFile("drugs.csv", 2048, pf)

	assert.Equal(t, "drugs.csv", analysis.FileName)
	assert.Equal(t, "CSV", analysis.FileFormat)
	assert.Equal(t, "2.00 KB", analysis.FileSize)
	assert.Equal(t, model.FileTypeDrug, analysis.Type)
	assert.Equal(t, model.TeamMedicalProducts, analysis.Team.Team)
	assert.Len(t, analysis.SampleRows, 2)
	assert.Equal(t, 100, analysis.DataQuality.Completeness)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, "CSV", detectFormat("claims.CSV"))
	assert.Equal(t, "XLSX", detectFormat("policies.xlsx"))
	assert.Equal(t, "XLSX", detectFormat("legacy.xls"))
	assert.Equal(t, "Unknown", detectFormat("data.txt"))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "0 B", formatFileSize(0))
	assert.Equal(t, "512 B", formatFileSize(512))
	assert.Equal(t, "1.00 KB", formatFileSize(1024))
	assert.Equal(t, "1.50 MB", formatFileSize(1572864))
}

func TestMatchedListsCapAtThree(t *testing.T) {
	content := strings.ToLower("claim billing invoice payment reimbursement")
	rule := triageRules[0]

	kws := matchedKeywords(rule, content)
	assert.Len(t, kws, 3)
}
