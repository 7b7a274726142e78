package score

import (
	"fmt"

	"github.com/ppiankov/evidentia/internal/model"
)

// scoreAlignment calculates evidence alignment (0-60) from alignment x GRADE certainty
func (s *Scorer) scoreAlignment(syn *model.EvidenceSynthesis) (int, model.Signal) {
	maxScore := s.rubric.Maxima.EvidenceAlignment
	alignmentWeight := s.rubric.AlignmentWeights[string(syn.Alignment)]
	gradeWeight := s.rubric.GradeWeights[string(syn.GRADECertainty)]

	raw := round(float64(maxScore) * alignmentWeight * gradeWeight)
	score := clamp(raw, 0, maxScore)

	insufficientCapped := false
	if syn.Alignment == model.AlignmentInsufficient && score > s.rubric.InsufficientCap {
		score = s.rubric.InsufficientCap
		insufficientCapped = true
	}

	severity := model.SeverityInfo
	switch {
	case score < maxScore/4:
		severity = model.SeverityCritical
	case score < maxScore/2:
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        model.SignalEvidenceAlignment,
		Severity:    severity,
		Description: fmt.Sprintf("Evidence %s the claim with %s certainty", syn.Alignment, syn.GRADECertainty),
		Data: map[string]interface{}{
			"alignment_to_claim":  string(syn.Alignment),
			"GRADE_certainty":     string(syn.GRADECertainty),
			"alignment_weight":    alignmentWeight,
			"grade_weight":        gradeWeight,
			"insufficient_capped": insufficientCapped,
			"score":               score,
			"formula":             fmt.Sprintf("round(%d * alignment_weight * grade_weight), insufficient <= %d", maxScore, s.rubric.InsufficientCap),
		},
	}
}
