// Package export writes validation results to JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/carelane/medcheck/internal/model"
)

// Format identifies an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format string.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// DefaultFileName returns the conventional export file name for a format.
func DefaultFileName(f Format, now time.Time) string {
	return fmt.Sprintf("validation-results-%s.%s", now.Format("2006-01-02"), f)
}

// Write encodes results in the given format.
func Write(w io.Writer, f Format, results []model.ValidationResult) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, results)
	case FormatCSV:
		return WriteCSV(w, results)
	default:
		return eris.Errorf("export: unknown format %q", f)
	}
}

// WriteJSON writes results as an indented JSON array.
func WriteJSON(w io.Writer, results []model.ValidationResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(results), "export: encode json")
}

var csvHeaders = []string{"Code", "Status", "Coding System", "Issues", "Recommendations"}

// WriteCSV writes one row per result. Multi-valued columns join on "; ".
func WriteCSV(w io.Writer, results []model.ValidationResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeaders); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}

	for _, r := range results {
		system := r.CodingSystem
		if system == "" {
			system = "N/A"
		}
		row := []string{
			r.Code,
			string(r.Status),
			system,
			strings.Join(r.Issues, "; "),
			strings.Join(r.Recommendations, "; "),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}
