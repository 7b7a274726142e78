package score

import (
	"github.com/ppiankov/evidentia/internal/model"
)

// SelectMode picks the evaluation path for a payload.
// Staged needs an evidence synthesis; everything else is scored from fallback axes.
func SelectMode(in *model.EvaluationInput) model.Mode {
	if in.Synthesis != nil {
		return model.ModeStaged
	}
	return model.ModeFallback
}

func modeSignal(in *model.EvaluationInput, mode model.Mode) model.Signal {
	description := "Staged evaluation: per-study evidence signals available"
	severity := model.SeverityInfo
	if mode == model.ModeFallback {
		description = "Fallback evaluation: legacy per-axis scores rescaled"
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalMode,
		Severity:    severity,
		Description: description,
		Data: map[string]interface{}{
			"mode":                string(mode),
			"included_studies":    len(in.IncludedStudies),
			"has_citation_audit":  in.CitationAudit != nil,
			"has_harms_benefits":  in.HarmsBenefits != nil,
			"has_fallback_scores": in.Fallback != nil,
		},
	}
}
