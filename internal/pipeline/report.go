package pipeline

import (
	"fmt"
	"strings"

	"github.com/carelane/medcheck/internal/model"
)

// maxDetailedResults caps the per-record detail section in notification
// messages so large files do not blow past webhook payload limits.
const maxDetailedResults = 10

var statusMarker = map[model.Status]string{
	model.StatusValid:   ":white_check_mark:",
	model.StatusWarning: ":warning:",
	model.StatusInvalid: ":x:",
}

// FormatReport generates a human-readable validation report.
func FormatReport(fileName string, results []model.ValidationResult, analysis *model.FileAnalysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Validation Report: %s\n\n", fileName)

	summary := model.Summarize(results)
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Total entries: %d\n", summary.TotalRows)
	fmt.Fprintf(&b, "- Valid: %d\n", summary.ValidRows)
	fmt.Fprintf(&b, "- Warnings: %d\n", summary.WarningRows)
	fmt.Fprintf(&b, "- Invalid: %d\n", summary.InvalidRows)
	if summary.DuplicateCount > 0 {
		fmt.Fprintf(&b, "- Duplicates: %d\n", summary.DuplicateCount)
	}
	b.WriteString("\n")

	if analysis != nil {
		b.WriteString("## File Analysis\n")
		fmt.Fprintf(&b, "- Detected type: %s\n", analysis.Type)
		fmt.Fprintf(&b, "- Recommended team: %s (%.0f%% confidence)\n",
			analysis.Team.Team, analysis.Team.Confidence)
		fmt.Fprintf(&b, "- Completeness: %d%%, consistency: %d%%\n",
			analysis.DataQuality.Completeness, analysis.DataQuality.Consistency)
		if analysis.PII.HasPII {
			fmt.Fprintf(&b, "- PII risk: %s (%s)\n",
				analysis.PII.RiskLevel, strings.Join(analysis.PII.PIITypes, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Results\n")
	for _, r := range results {
		fmt.Fprintf(&b, "- [%s] %s", r.Status, r.Code)
		if r.CodingSystem != "" {
			fmt.Fprintf(&b, " (%s)", r.CodingSystem)
		}
		b.WriteString("\n")
		for _, issue := range r.Issues {
			fmt.Fprintf(&b, "  - %s\n", issue)
		}
		if r.DuplicateOf != "" {
			fmt.Fprintf(&b, "  - Duplicate of: %s\n", r.DuplicateOf)
		}
	}

	return b.String()
}

// FormatNotification renders results as a markdown message for the
// notification webhook. Only the first ten records get detail lines.
func FormatNotification(results []model.ValidationResult) string {
	summary := model.Summarize(results)

	var b strings.Builder
	b.WriteString("*Validation Results Summary*\n")
	fmt.Fprintf(&b, "Total Entries: %d\n", summary.TotalRows)
	fmt.Fprintf(&b, "Valid: %d\n", summary.ValidRows)
	fmt.Fprintf(&b, "Warnings: %d\n", summary.WarningRows)
	fmt.Fprintf(&b, "Invalid: %d\n", summary.InvalidRows)
	if summary.DuplicateCount > 0 {
		fmt.Fprintf(&b, "Duplicates: %d\n", summary.DuplicateCount)
	}

	b.WriteString("\n*Detailed Results*\n")

	detailed := results
	if len(detailed) > maxDetailedResults {
		detailed = detailed[:maxDetailedResults]
	}
	lines := make([]string, 0, len(detailed))
	for _, r := range detailed {
		system := r.CodingSystem
		if system == "" {
			system = "N/A"
		}
		var d strings.Builder
		fmt.Fprintf(&d, "%s *%s* (%s)\n", statusMarker[r.Status], r.Code, system)
		fmt.Fprintf(&d, "Status: %s\n", r.Status)
		if len(r.Issues) > 0 {
			fmt.Fprintf(&d, "Issues: %s\n", strings.Join(r.Issues, ", "))
		}
		if r.DuplicateOf != "" {
			fmt.Fprintf(&d, "Duplicate of: %s\n", r.DuplicateOf)
		}
		d.WriteString("---")
		lines = append(lines, d.String())
	}
	b.WriteString(strings.Join(lines, "\n"))

	if len(results) > maxDetailedResults {
		b.WriteString("\n_Showing first 10 results..._")
	}

	return b.String()
}
