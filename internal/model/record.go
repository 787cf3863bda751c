package model

import "strings"

// FileType classifies an uploaded file by the kind of records it holds.
type FileType string

const (
	FileTypeMedical      FileType = "medical"
	FileTypeDrug         FileType = "drug"
	FileTypePolicy       FileType = "policy"
	FileTypeClinician    FileType = "clinician"
	FileTypeProvider     FileType = "provider"
	FileTypeIntermediary FileType = "intermediary"
)

// AllFileTypes returns every known file type.
func AllFileTypes() []FileType {
	return []FileType{
		FileTypeMedical,
		FileTypeDrug,
		FileTypePolicy,
		FileTypeClinician,
		FileTypeProvider,
		FileTypeIntermediary,
	}
}

// keyFields maps each file type to its primary-key field name.
var keyFields = map[FileType]string{
	FileTypeMedical:      "medical_code",
	FileTypeDrug:         "drug_code",
	FileTypePolicy:       "policy_id",
	FileTypeClinician:    "clinician_id",
	FileTypeProvider:     "provider_id",
	FileTypeIntermediary: "intermediary_id",
}

// KeyField returns the primary-key field name for a file type.
func (t FileType) KeyField() string {
	if f, ok := keyFields[t]; ok {
		return f
	}
	return keyFields[FileTypeMedical]
}

// Record is one row of an uploaded file. The type discriminator is decided
// once at parse time by the type detector; Fields holds every column under
// its canonical name, unknown columns included, so no data is dropped.
type Record struct {
	Type   FileType       `json:"type"`
	Fields map[string]any `json:"fields"`
}

// NewRecord creates a record of the given type with a copy of fields.
func NewRecord(t FileType, fields map[string]any) Record {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return Record{Type: t, Fields: copied}
}

// Clone returns a copy whose field map is independent of the original, so
// the enrichment transformer never mutates its input.
func (r Record) Clone() Record {
	return NewRecord(r.Type, r.Fields)
}

// Key returns the record's primary-key value, trimmed. Empty means the record
// has no usable identity and must not reach the validator.
func (r Record) Key() string {
	return strings.TrimSpace(r.Str(r.Type.KeyField()))
}

// Str returns the named field coerced to a string, or "" when absent or nil.
func (r Record) Str(field string) string {
	v, ok := r.Fields[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Num returns the named field as a float64 and whether it was numeric.
func (r Record) Num(field string) (float64, bool) {
	switch v := r.Fields[field].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Set assigns a field value in place. Callers that need purity clone first.
func (r Record) Set(field string, value any) {
	r.Fields[field] = value
}

// Has reports whether the field is present with a non-empty value.
func (r Record) Has(field string) bool {
	v, ok := r.Fields[field]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// ParsedFile is the structure the ingestion layer hands to the pipeline:
// normalized headers, typed records, and the detected file type.
type ParsedFile struct {
	Headers []string `json:"headers"`
	Records []Record `json:"records"`
	Type    FileType `json:"type"`

	// SkippedRows counts rows dropped at parse time for having an empty
	// primary key. They never reach the validator.
	SkippedRows int `json:"skipped_rows,omitempty"`

	// RawText optionally carries unstructured file content for PII scanning.
	RawText string `json:"raw_text,omitempty"`
}
