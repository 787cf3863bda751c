package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/carelane/medcheck/internal/model"
)

// triageRule scores a file's affinity to one business team. Content keywords
// score 2, header matches 5, pattern hits 3; the highest total wins.
type triageRule struct {
	team     model.Team
	keywords []string
	headers  []string
	patterns []*regexp.Regexp
}

var triageRules = []triageRule{
	{
		team:     model.TeamClaims,
		keywords: []string{"claim", "billing", "invoice", "payment", "reimbursement", "copay", "deductible", "procedure", "diagnosis"},
		headers:  []string{"claim_id", "member_id", "billed_amount", "diagnosis_code", "procedure_code", "service_date", "provider_id"},
		patterns: piiPats(`claim`, `bill`, `invoice`, `icd`, `cpt`, `drg`),
	},
	{
		team:     model.TeamPolicy,
		keywords: []string{"policy", "member", "enrollment", "coverage", "benefit", "premium", "plan", "subscriber"},
		headers:  []string{"policy_id", "member_id", "policy_number", "enrollment_status", "plan_type", "coverage_limit", "premium"},
		patterns: piiPats(`policy`, `member`, `enrollment`, `coverage`, `benefit`, `plan`),
	},
	{
		team:     model.TeamMedicalProducts,
		keywords: []string{"drug", "medication", "pharmaceutical", "prescription", "dosage", "strength", "formulary", "ndc"},
		headers:  []string{"drug_code", "drug_name", "ndc", "strength", "dosage", "atc_code", "formulary", "price"},
		patterns: piiPats(`drug`, `medication`, `pharma`, `prescription`, `ndc`, `atc`),
	},
	{
		team:     model.TeamProvider,
		keywords: []string{"provider", "doctor", "physician", "hospital", "clinic", "facility", "license", "specialty"},
		headers:  []string{"provider_id", "provider_name", "npi", "license_number", "specialty", "facility", "address"},
		patterns: piiPats(`provider`, `doctor`, `physician`, `hospital`, `clinic`, `npi`, `license`),
	},
}

const (
	keywordScore = 2
	headerScore  = 5
	patternScore = 3

	// maxTriageScore is the rough ceiling used to turn a raw score into a
	// confidence percentage; confidence caps at 95.
	maxTriageScore = 50
)

func (r triageRule) score(content string, headers []string) int {
	s := 0
	for _, kw := range r.keywords {
		if strings.Contains(content, kw) {
			s += keywordScore
		}
	}
	for _, expected := range r.headers {
		for _, h := range headers {
			if strings.Contains(strings.ToLower(h), expected) {
				s += headerScore
				break
			}
		}
	}
	for _, p := range r.patterns {
		if p.MatchString(content) {
			s += patternScore
		}
	}
	return s
}

// RecommendTeam routes a file to the team whose rule scores highest.
// A zero top score routes to General.
func RecommendTeam(content string, headers []string) model.TeamRecommendation {
	content = strings.ToLower(content)

	best := triageRules[0]
	bestScore := -1
	for _, rule := range triageRules {
		if s := rule.score(content, headers); s > bestScore {
			best, bestScore = rule, s
		}
	}

	if bestScore <= 0 {
		return model.TeamRecommendation{
			Team:      model.TeamGeneral,
			Reasoning: "No strong signal for any specific team",
		}
	}

	confidence := float64(bestScore) / maxTriageScore * 100
	if confidence > 95 {
		confidence = 95
	}

	var reasons []string
	if matched := matchedHeaders(best, headers); len(matched) > 0 {
		reasons = append(reasons, fmt.Sprintf("matching headers (%s)", strings.Join(matched, ", ")))
	}
	if matched := matchedKeywords(best, content); len(matched) > 0 {
		reasons = append(reasons, fmt.Sprintf("content keywords (%s)", strings.Join(matched, ", ")))
	}

	reasoning := fmt.Sprintf("Recommended %s team based on %s", best.team, strings.Join(reasons, " and "))
	if len(reasons) == 0 {
		reasoning = fmt.Sprintf("%s team appears most suitable for this content type", best.team)
	}

	return model.TeamRecommendation{
		Team:       best.team,
		Confidence: confidence,
		Reasoning:  reasoning,
	}
}

func matchedHeaders(rule triageRule, headers []string) []string {
	var out []string
	for _, expected := range rule.headers {
		for _, h := range headers {
			if strings.Contains(strings.ToLower(h), expected) {
				out = append(out, expected)
				break
			}
		}
		if len(out) == 3 {
			break
		}
	}
	return out
}

func matchedKeywords(rule triageRule, content string) []string {
	var out []string
	for _, kw := range rule.keywords {
		if strings.Contains(content, kw) {
			out = append(out, kw)
		}
		if len(out) == 3 {
			break
		}
	}
	return out
}

// AssessDataQuality computes completeness and consistency percentages plus
// per-column issue strings. A column is inconsistent when its values mix Go
// types; a column missing more than 20% of values is flagged.
func AssessDataQuality(rows []map[string]any, headers []string) model.DataQuality {
	if len(rows) == 0 {
		return model.DataQuality{Issues: []string{"No data found in file"}}
	}

	var issues []string
	totalFields := 0
	filledFields := 0
	consistentFields := 0

	for _, header := range headers {
		filled := 0
		types := make(map[string]bool)
		for _, row := range rows {
			v, ok := row[header]
			if !ok || v == nil || v == "" {
				continue
			}
			filled++
			types[fmt.Sprintf("%T", v)] = true
		}

		totalFields += len(rows)
		filledFields += filled

		if len(types) <= 1 {
			consistentFields += len(rows)
		} else {
			issues = append(issues, fmt.Sprintf("Inconsistent data types in column: %s", header))
		}

		if filled < int(float64(len(rows))*0.8) {
			missingPct := int(float64(len(rows)-filled) / float64(len(rows)) * 100)
			issues = append(issues, fmt.Sprintf("High missing data rate in column: %s (%d%% missing)", header, missingPct))
		}
	}

	quality := model.DataQuality{Issues: issues}
	if totalFields > 0 {
		quality.Completeness = int(float64(filledFields)/float64(totalFields)*100 + 0.5)
		quality.Consistency = int(float64(consistentFields)/float64(totalFields)*100 + 0.5)
	}
	return quality
}

// AnalyzeFile builds the per-file summary: format and size metadata, team
// recommendation, data quality, and the PII report. Created once after
// parsing; consumed read-only.
func AnalyzeFile(fileName string, fileSize int64, pf *model.ParsedFile) *model.FileAnalysis {
	rows := sampleRows(pf, 5)

	content := pf.RawText
	if content == "" {
		var b strings.Builder
		for _, row := range rows {
			for k, v := range row {
				fmt.Fprintf(&b, "%s %v ", k, v)
			}
		}
		content = b.String()
	}

	return &model.FileAnalysis{
		FileName:    fileName,
		FileFormat:  detectFormat(fileName),
		FileSize:    formatFileSize(fileSize),
		Headers:     pf.Headers,
		SampleRows:  rows,
		Type:        pf.Type,
		Team:        RecommendTeam(content, pf.Headers),
		DataQuality: AssessDataQuality(allRows(pf), pf.Headers),
		PII:         DetectPII(pf.Headers, rows, pf.RawText),
	}
}

func sampleRows(pf *model.ParsedFile, n int) []map[string]any {
	if n > len(pf.Records) {
		n = len(pf.Records)
	}
	out := make([]map[string]any, 0, n)
	for _, rec := range pf.Records[:n] {
		out = append(out, rec.Fields)
	}
	return out
}

func allRows(pf *model.ParsedFile) []map[string]any {
	out := make([]map[string]any, 0, len(pf.Records))
	for _, rec := range pf.Records {
		out = append(out, rec.Fields)
	}
	return out
}

func detectFormat(fileName string) string {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return "CSV"
	case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xls"):
		return "XLSX"
	default:
		return "Unknown"
	}
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

func formatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}
