package pipeline

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/carelane/medcheck/internal/model"
)

// piiCategory describes one class of sensitive data: the patterns that
// reveal it, its fixed risk level, and a human description.
type piiCategory struct {
	name        string
	patterns    []*regexp.Regexp
	risk        model.RiskLevel
	description string
}

func piiPats(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// piiCatalog is the fixed category table, loaded once and never mutated.
var piiCatalog = []piiCategory{
	{
		name: "Social Security Number",
		patterns: piiPats(
			`\b\d{3}-\d{2}-\d{4}\b`,
			`\b\d{9}\b`,
			`\bssn\b`,
			`social.?security`,
		),
		risk:        model.RiskHigh,
		description: "Social Security Numbers detected",
	},
	{
		name: "Phone Number",
		patterns: piiPats(
			`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`,
			`\(\d{3}\)\s?\d{3}[-.]?\d{4}`,
			`phone`,
			`mobile`,
			`contact.?number`,
		),
		risk:        model.RiskMedium,
		description: "Phone numbers detected",
	},
	{
		name: "Email Address",
		patterns: piiPats(
			`\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`,
			`\bemail\b`,
			`e.?mail`,
		),
		risk:        model.RiskMedium,
		description: "Email addresses detected",
	},
	{
		name: "Date of Birth",
		patterns: piiPats(
			`\b\d{1,2}/\d{1,2}/\d{4}\b`,
			`\b\d{4}-\d{2}-\d{2}\b`,
			`birth.?date`,
			`\bdob\b`,
			`date.?of.?birth`,
		),
		risk:        model.RiskHigh,
		description: "Date of birth information detected",
	},
	{
		name: "Medical Record Number",
		patterns: piiPats(
			`\bmrn\b`,
			`medical.?record`,
			`patient.?id`,
			`chart.?number`,
		),
		risk:        model.RiskHigh,
		description: "Medical record numbers detected",
	},
	{
		name: "Insurance ID",
		patterns: piiPats(
			`insurance.?id`,
			`policy.?number`,
			`member.?id`,
			`subscriber.?id`,
			`group.?number`,
		),
		risk:        model.RiskMedium,
		description: "Insurance identification numbers detected",
	},
	{
		name: "Credit Card",
		patterns: piiPats(
			`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`,
			`credit.?card`,
			`card.?number`,
		),
		risk:        model.RiskHigh,
		description: "Credit card numbers detected",
	},
	{
		name: "Driver License",
		patterns: piiPats(
			`driver.?license`,
			`dl.?number`,
			`license.?number`,
		),
		risk:        model.RiskMedium,
		description: "Driver license information detected",
	},
	{
		name: "Address",
		patterns: piiPats(
			`\baddress\b`,
			`\bstreet\b`,
			`\b\d+\s+[a-z\s]+(street|st|avenue|ave|road|rd|drive|dr|lane|ln|boulevard|blvd)\b`,
			`zip.?code`,
			`postal.?code`,
		),
		risk:        model.RiskMedium,
		description: "Address information detected",
	},
	{
		name: "Full Name",
		patterns: piiPats(
			`first.?name`,
			`last.?name`,
			`full.?name`,
			`patient.?name`,
			`subscriber.?name`,
		),
		risk:        model.RiskMedium,
		description: "Personal names detected",
	},
}

// DetectPII scans headers, sample rows, and optional raw text for sensitive
// data. Risk escalation is monotonic: the level only ever rises within one
// scan, and it defaults to Low when nothing is found. The report is derived
// once per file and immutable thereafter.
func DetectPII(headers []string, sampleRows []map[string]any, rawText string) model.PIIReport {
	detected := make(map[string]bool)
	detectedFields := make(map[string]bool)
	recommendations := make(map[string]bool)
	risk := model.RiskLow

	escalate := func(r model.RiskLevel) {
		if r > risk {
			risk = r
		}
	}

	// One lowercased blob of everything for content matching.
	var blob strings.Builder
	for _, h := range headers {
		blob.WriteString(h)
		blob.WriteByte(' ')
	}
	if rawText != "" {
		blob.WriteString(rawText)
		blob.WriteByte(' ')
	}
	for _, row := range sampleRows {
		for _, v := range row {
			if v != nil {
				fmt.Fprintf(&blob, "%v ", v)
			}
		}
	}
	content := strings.ToLower(blob.String())

	// Headers are checked per category so the offending field can be named.
	for _, h := range headers {
		headerLower := strings.ToLower(h)
		for _, cat := range piiCatalog {
			if matchesAny(cat.patterns, headerLower) {
				detected[cat.name] = true
				detectedFields[h] = true
				escalate(cat.risk)
				addTierRecommendations(recommendations, cat.risk)
			}
		}
	}

	// Content scan covers values that slip past header naming.
	for _, cat := range piiCatalog {
		if matchesAny(cat.patterns, content) {
			detected[cat.name] = true
			escalate(cat.risk)
			addTierRecommendations(recommendations, cat.risk)
		}
	}

	if len(detected) > 0 {
		recommendations["Ensure HIPAA compliance for healthcare data"] = true
		recommendations["Implement audit logging for data access"] = true
		recommendations["Regular security assessments recommended"] = true
	} else if strings.Contains(content, "medical") ||
		strings.Contains(content, "patient") ||
		strings.Contains(content, "health") {
		recommendations["Verify no PII exists in actual data"] = true
		recommendations["Maintain data security best practices"] = true
	}

	return model.PIIReport{
		HasPII:          len(detected) > 0,
		PIITypes:        sortedKeys(detected),
		RiskLevel:       risk,
		DetectedFields:  sortedKeys(detectedFields),
		Recommendations: sortedKeys(recommendations),
	}
}

func addTierRecommendations(recs map[string]bool, risk model.RiskLevel) {
	switch risk {
	case model.RiskHigh:
		recs["Implement data encryption for sensitive fields"] = true
		recs["Restrict access to authorized personnel only"] = true
		recs["Consider data masking for non-production environments"] = true
	case model.RiskMedium:
		recs["Apply appropriate access controls"] = true
		recs["Monitor data access and usage"] = true
	}
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
