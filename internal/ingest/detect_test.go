package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carelane/medcheck/internal/model"
)

func TestDetectFileType(t *testing.T) {
	cases := []struct {
		name    string
		headers []string
		want    model.FileType
	}{
		{
			name:    "drug file",
			headers: []string{"Drug Code", "Drug Name", "Strength", "Price"},
			want:    model.FileTypeDrug,
		},
		{
			name:    "policy file",
			headers: []string{"policy_id", "policy_name", "payer_id", "status"},
			want:    model.FileTypePolicy,
		},
		{
			name:    "clinician file",
			headers: []string{"clinician_id", "specialty", "first_name"},
			want:    model.FileTypeClinician,
		},
		{
			name:    "provider file",
			headers: []string{"provider_id", "provider_name", "npi"},
			want:    model.FileTypeProvider,
		},
		{
			name:    "intermediary file",
			headers: []string{"broker_id", "broker_name"},
			want:    model.FileTypeIntermediary,
		},
		{
			name:    "medical via bare code header",
			headers: []string{"code", "description"},
			want:    model.FileTypeMedical,
		},
		{
			name:    "unrecognizable falls back to medical",
			headers: []string{"foo", "bar", "baz"},
			want:    model.FileTypeMedical,
		},
		{
			name:    "drug missing name is not drug",
			headers: []string{"drug_code", "price"},
			want:    model.FileTypeMedical,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectFileType(tc.headers))
		})
	}
}
