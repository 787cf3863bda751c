package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelane/medcheck/internal/model"
)

func exportResults() []model.ValidationResult {
	return []model.ValidationResult{
		{Code: "A01.1", Status: model.StatusValid, CodingSystem: "ICD-10"},
		{
			Code:            "XYZ",
			Status:          model.StatusInvalid,
			Issues:          []string{"Unknown code", "No match"},
			Recommendations: []string{"Verify manually"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestDefaultFileName(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "validation-results-2026-03-15.json", DefaultFileName(FormatJSON, now))
	assert.Equal(t, "validation-results-2026-03-15.csv", DefaultFileName(FormatCSV, now))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, exportResults()))

	var decoded []model.ValidationResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	require.Len(t, decoded, 2)
	assert.Equal(t, "A01.1", decoded[0].Code)
	assert.Equal(t, []string{"Unknown code", "No match"}, decoded[1].Issues)
	assert.True(t, strings.Contains(buf.String(), "\n  "), "output should be indented")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, exportResults()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Code", "Status", "Coding System", "Issues", "Recommendations"}, rows[0])
	assert.Equal(t, []string{"A01.1", "valid", "ICD-10", "", ""}, rows[1])
	assert.Equal(t, []string{"XYZ", "invalid", "N/A", "Unknown code; No match", "Verify manually"}, rows[2])
}

func TestWrite_Dispatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, exportResults()))
	assert.Contains(t, buf.String(), "Coding System")

	err := Write(&buf, Format("yaml"), nil)
	assert.Error(t, err)
}
