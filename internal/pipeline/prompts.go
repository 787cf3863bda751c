package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/carelane/medcheck/internal/model"
)

const medicalSystemPrompt = `You are a medical coding expert assistant. Analyze medical codes and provide validation results with helpful explanations.`

const drugSystemPrompt = `You are a pharmaceutical coding and pricing expert. Analyze drug codes, validate specifications, and check for pricing compliance.`

const policySystemPrompt = `You are an insurance policy expert. Analyze policy data for validity, coverage limits, and compliance with standards.`

const medicalChecklist = `1. Is the coding system standard and correctly formatted?
2. Are required fields missing?
3. Are there any potential billing or compliance issues?
4. What recommendations would improve this entry?`

const drugChecklist = `1. Is the drug code format valid?
2. Are strength and unit specifications correct?
3. Is pricing reasonable compared to UCR benchmark?
4. Check for valid ATC code format.
5. Verify date formats and ranges.
6. Look for duplicate entries.`

const policyChecklist = `1. Verify policy ID format and uniqueness.
2. Check date ranges for validity.
3. Validate coverage limits and currency.
4. Verify policy type matches standards.
5. Check status values are valid.
6. Look for duplicate payer/policy combinations.`

// systemPromptFor returns the oracle system prompt for a file type. Types
// without a dedicated checklist validate under the medical prompt.
func systemPromptFor(t model.FileType) string {
	switch t {
	case model.FileTypeDrug:
		return drugSystemPrompt
	case model.FileTypePolicy:
		return policySystemPrompt
	default:
		return medicalSystemPrompt
	}
}

func checklistFor(t model.FileType) string {
	switch t {
	case model.FileTypeDrug:
		return drugChecklist
	case model.FileTypePolicy:
		return policyChecklist
	default:
		return medicalChecklist
	}
}

// batchEntry is one record in an oracle request, tagged with its batch-local
// index so responses can be reconciled positionally.
type batchEntry struct {
	Index  int            `json:"index"`
	Record map[string]any `json:"record"`
}

// buildBatchPrompt serializes a batch of records into the oracle user
// message. Every entry carries its batch-local index; the oracle must echo
// the index back in its results array.
func buildBatchPrompt(batch []model.Record) (string, error) {
	entries := make([]batchEntry, len(batch))
	for i, rec := range batch {
		entries[i] = batchEntry{Index: i, Record: rec.Fields}
	}

	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze each of these %s entries and provide validation results:\n%s\n\n", batch[0].Type, payload)
	b.WriteString("Consider:\n")
	b.WriteString(checklistFor(batch[0].Type))
	b.WriteString("\n\nProvide a helpful explanation in natural language for each entry.\n\n")
	b.WriteString(`Return only a JSON object of this shape, with one results element per input entry, echoing each entry's index:
{
  "results": [
    {
      "index": 0,
      "status": "valid" | "warning" | "invalid",
      "issues": ["..."],
      "recommendations": ["..."],
      "explanation": "...",
      "compliance_notes": ["..."],
      "duplicateOf": null
    }
  ]
}`)

	return b.String(), nil
}
