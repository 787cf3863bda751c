package ingest

import (
	"go.uber.org/zap"

	"github.com/carelane/medcheck/internal/model"
)

// detectionOrder fixes the tie-break priority for type detection. More
// specific types are tried before medical because medical's single required
// field ("code") matches broadly; medical is also the fallback when nothing
// qualifies. Ties never depend on map iteration order.
var detectionOrder = []model.FileType{
	model.FileTypeDrug,
	model.FileTypePolicy,
	model.FileTypeClinician,
	model.FileTypeProvider,
	model.FileTypeIntermediary,
	model.FileTypeMedical,
}

// DetectFileType classifies a header set as exactly one file type. A type
// qualifies only when every one of its required fields matches at least one
// header; the first qualifying type in detectionOrder wins. This is advisory
// metadata, not a gate: the validator accepts whatever type was decided here.
func DetectFileType(headers []string) model.FileType {
	for _, t := range detectionOrder {
		matched, total := requiredFieldsMatched(headers, t)
		if total > 0 && matched == total {
			zap.L().Debug("ingest: detected file type",
				zap.String("type", string(t)),
				zap.Int("required_matched", matched),
			)
			return t
		}
	}
	return model.FileTypeMedical
}
