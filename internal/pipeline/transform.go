package pipeline

import (
	"regexp"
	"strings"

	"github.com/carelane/medcheck/internal/model"
)

// codingRule infers a coding system from a code's shape.
type codingRule struct {
	pattern     *regexp.Regexp
	system      string
	description string
}

// medicalCodeRules are tried in priority order; first match wins.
var medicalCodeRules = []codingRule{
	{
		pattern:     regexp.MustCompile(`^[A-Z]\d{2}(\.\d+)?$`),
		system:      "ICD-10",
		description: "International Classification of Diseases, 10th Revision",
	},
	{
		pattern:     regexp.MustCompile(`^\d{5}$`),
		system:      "CPT",
		description: "Current Procedural Terminology",
	},
	{
		pattern:     regexp.MustCompile(`^\d{3}$`),
		system:      "DRG",
		description: "Diagnosis Related Group",
	},
}

var drugCodeRules = []codingRule{
	{
		pattern:     regexp.MustCompile(`^[A-Z]\d{2}[A-Z]{2}\d{2}$`),
		system:      "ATC",
		description: "Anatomical Therapeutic Chemical Classification",
	},
	{
		pattern:     regexp.MustCompile(`^[A-Z]{2}\d{6}$`),
		system:      "NDC",
		description: "National Drug Code",
	},
}

// coverageRule maps description keywords to a coverage tag.
type coverageRule struct {
	keywords []string
	coverage string
}

// coverageRules are tried in fixed order and only the first matching rule
// sets coverage; later categories are not checked once one matched. That
// ordering is inherited behavior, kept deliberately.
var coverageRules = []coverageRule{
	{keywords: []string{"emergency", "urgent"}, coverage: "Emergency"},
	{keywords: []string{"preventive", "screening"}, coverage: "Preventive"},
	{keywords: []string{"chronic", "ongoing"}, coverage: "Chronic Care"},
}

// Transform returns an enriched copy of the record; the input is never
// mutated. Applying it twice yields the same result as applying it once.
func Transform(rec model.Record) model.Record {
	switch rec.Type {
	case model.FileTypeDrug:
		return transformDrug(rec)
	case model.FileTypePolicy:
		return transformPolicy(rec)
	case model.FileTypeMedical:
		return transformMedical(rec)
	default:
		return rec.Clone()
	}
}

// TransformAll enriches every record, preserving order.
func TransformAll(records []model.Record) []model.Record {
	out := make([]model.Record, len(records))
	for i, rec := range records {
		out[i] = Transform(rec)
	}
	return out
}

func transformMedical(rec model.Record) model.Record {
	out := rec.Clone()

	// Infer the coding system from the code shape when unspecified.
	if !out.Has("coding_system") {
		for _, rule := range medicalCodeRules {
			if rule.pattern.MatchString(out.Key()) {
				out.Set("coding_system", rule.system)
				if !out.Has("tag") {
					out.Set("tag", rule.description)
				}
				break
			}
		}
	}

	// First matching keyword category sets coverage; the rest are skipped.
	desc := strings.ToLower(out.Str("description"))
	if desc != "" {
		for _, rule := range coverageRules {
			if containsAny(desc, rule.keywords) {
				out.Set("coverage", rule.coverage)
				break
			}
		}
	}

	return out
}

func transformDrug(rec model.Record) model.Record {
	out := rec.Clone()

	if !out.Has("atc_code") {
		for _, rule := range drugCodeRules {
			if rule.pattern.MatchString(out.Key()) {
				out.Set("coding_system", rule.system)
				break
			}
		}
	}

	name := strings.ToLower(out.Str("drug_name"))
	drugType := strings.ToLower(out.Str("drug_type"))
	if strings.Contains(name, "chronic") || strings.Contains(name, "maintenance") ||
		strings.Contains(drugType, "chronic") {
		out.Set("chronic_indicator", "Y")
	}

	// 20% markup over price as the UCR benchmark when none is supplied.
	if !out.Has("ucr_benchmark") {
		if price, ok := out.Num("price"); ok {
			out.Set("ucr_benchmark", price*1.2)
		}
	}

	return out
}

// policyTypeRules and policyStatusRules normalize free text into the fixed
// enumerations by case-insensitive substring match.
var policyTypeRules = []struct {
	substrings []string
	normalized string
}{
	{[]string{"individual", "single"}, "Individual"},
	{[]string{"family", "group"}, "Family"},
	{[]string{"corporate", "business"}, "Corporate"},
}

var policyStatusRules = []struct {
	substrings []string
	normalized string
}{
	{[]string{"active", "current"}, "Active"},
	{[]string{"pending", "wait"}, "Pending"},
	{[]string{"expired", "terminated"}, "Expired"},
}

func transformPolicy(rec model.Record) model.Record {
	out := rec.Clone()

	if pt := strings.ToLower(out.Str("policy_type")); pt != "" {
		for _, rule := range policyTypeRules {
			if containsAny(pt, rule.substrings) {
				out.Set("policy_type", rule.normalized)
				break
			}
		}
	}

	if st := strings.ToLower(out.Str("status")); st != "" {
		for _, rule := range policyStatusRules {
			if containsAny(st, rule.substrings) {
				out.Set("status", rule.normalized)
				break
			}
		}
	}

	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
