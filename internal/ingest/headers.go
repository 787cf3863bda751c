package ingest

import (
	"regexp"
	"strings"

	"github.com/carelane/medcheck/internal/model"
)

// canonicalField maps an ordered list of header patterns to one canonical
// field name. Patterns are tried in order; first match wins. Required fields
// participate in file-type detection.
type canonicalField struct {
	name     string
	required bool
	patterns []*regexp.Regexp
}

func pats(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)^` + e + `$`)
	}
	return out
}

// headerFields holds the per-type canonical field tables. Loaded once at
// startup; never mutated.
var headerFields = map[model.FileType][]canonicalField{
	model.FileTypeMedical: {
		{name: "medical_code", required: true, patterns: pats(`medical[\s_-]?code`, `code`)},
		{name: "description", patterns: pats(`description`, `desc`)},
		{name: "coding_system", patterns: pats(`coding[\s_-]?system`, `system`)},
		{name: "tag", patterns: pats(`tag`, `category`)},
		{name: "coverage", patterns: pats(`coverage`, `covered`)},
	},
	model.FileTypeDrug: {
		{name: "drug_code", required: true, patterns: pats(`drug[\s_-]?code`)},
		{name: "drug_name", required: true, patterns: pats(`drug[\s_-]?name`, `medication[\s_-]?name`)},
		{name: "drug_type", patterns: pats(`drug[\s_-]?type`)},
		{name: "strength", patterns: pats(`strength`)},
		{name: "unit", patterns: pats(`unit`)},
		{name: "package_size", patterns: pats(`package[\s_-]?size`)},
		{name: "uom", patterns: pats(`uom`, `unit[\s_-]?of[\s_-]?measure`)},
		{name: "price", patterns: pats(`price`, `unit[\s_-]?price`)},
		{name: "currency", patterns: pats(`currency`)},
		{name: "branded_generic", patterns: pats(`branded[\s_-]?/?[\s_-]?generic`)},
		{name: "chronic_indicator", patterns: pats(`chronic[\s_-]?indicator`)},
		{name: "atc_code", patterns: pats(`atc[\s_-]?code`)},
		{name: "ucr_benchmark", patterns: pats(`ucr[\s_-]?benchmark`, `ucr`)},
		{name: "valid_from", patterns: pats(`valid[\s_-]?from`)},
		{name: "valid_to", patterns: pats(`valid[\s_-]?to`)},
	},
	model.FileTypePolicy: {
		{name: "policy_id", required: true, patterns: pats(`policy[\s_-]?id`)},
		{name: "policy_name", required: true, patterns: pats(`policy[\s_-]?name`)},
		{name: "payer_id", required: true, patterns: pats(`payer[\s_-]?id`)},
		{name: "policy_type", patterns: pats(`policy[\s_-]?type`, `plan[\s_-]?type`)},
		{name: "start_date", patterns: pats(`start[\s_-]?date`)},
		{name: "end_date", patterns: pats(`end[\s_-]?date`)},
		{name: "coverage_limit", patterns: pats(`coverage[\s_-]?limit`)},
		{name: "status", patterns: pats(`status`, `policy[\s_-]?status`)},
		{name: "currency", patterns: pats(`currency`)},
	},
	model.FileTypeClinician: {
		{name: "clinician_id", required: true, patterns: pats(`clinician[\s_-]?id`)},
		{name: "specialty", required: true, patterns: pats(`specialty`, `speciality`)},
		{name: "first_name", patterns: pats(`first[\s_-]?name`)},
		{name: "last_name", patterns: pats(`last[\s_-]?name`)},
		{name: "title", patterns: pats(`title`)},
		{name: "license_number", patterns: pats(`license[\s_-]?number`, `license`)},
		{name: "npi", patterns: pats(`npi`, `npi[\s_-]?number`)},
		{name: "years_experience", patterns: pats(`years[\s_-]?experience`, `years[\s_-]?of[\s_-]?experience`)},
		{name: "department", patterns: pats(`department`)},
	},
	model.FileTypeProvider: {
		{name: "provider_id", required: true, patterns: pats(`provider[\s_-]?id`)},
		{name: "provider_name", required: true, patterns: pats(`provider[\s_-]?name`, `facility[\s_-]?name`)},
		{name: "provider_type", patterns: pats(`provider[\s_-]?type`, `facility[\s_-]?type`)},
		{name: "npi", patterns: pats(`npi`)},
		{name: "specialty", patterns: pats(`specialty`)},
		{name: "address", patterns: pats(`address`)},
	},
	model.FileTypeIntermediary: {
		{name: "intermediary_id", required: true, patterns: pats(`intermediary[\s_-]?id`, `broker[\s_-]?id`)},
		{name: "intermediary_name", required: true, patterns: pats(`intermediary[\s_-]?name`, `broker[\s_-]?name`)},
		{name: "intermediary_type", patterns: pats(`intermediary[\s_-]?type`, `broker[\s_-]?type`)},
	},
}

// NormalizeHeader maps a raw header to its canonical field name for the given
// file type. Matching is case-insensitive on the trimmed header; unmatched
// headers pass through lowercased and trimmed so unknown columns survive.
func NormalizeHeader(header string, t model.FileType) string {
	trimmed := strings.TrimSpace(header)
	for _, f := range headerFields[t] {
		for _, p := range f.patterns {
			if p.MatchString(trimmed) {
				return f.name
			}
		}
	}
	return strings.ToLower(trimmed)
}

// NormalizeHeaders maps every raw header for the given file type.
func NormalizeHeaders(headers []string, t model.FileType) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = NormalizeHeader(h, t)
	}
	return out
}

// requiredFieldsMatched counts how many of the type's required fields have at
// least one pattern matching at least one header, and the total required.
func requiredFieldsMatched(headers []string, t model.FileType) (matched, total int) {
	for _, f := range headerFields[t] {
		if !f.required {
			continue
		}
		total++
		for _, h := range headers {
			if NormalizeHeader(h, t) == f.name {
				matched++
				break
			}
		}
	}
	return matched, total
}
