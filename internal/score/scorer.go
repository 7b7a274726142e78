package score

import (
	"github.com/ppiankov/evidentia/internal/model"
)

// Scorer converts a validated evaluation payload into a score breakdown.
// It performs no I/O, reads no clock and never modifies its input.
type Scorer struct {
	rubric model.Rubric
}

// NewScorer creates a scorer for the given rubric
func NewScorer(rubric model.Rubric) *Scorer {
	return &Scorer{rubric: rubric}
}

// Rubric returns the rubric the scorer was built with
func (s *Scorer) Rubric() model.Rubric {
	return s.rubric
}

// Calculate runs the selected mode, caps, modifiers and classifier
func (s *Scorer) Calculate(in *model.EvaluationInput) model.ScoreBreakdown {
	mode := SelectMode(in)
	breakdown := model.ScoreBreakdown{
		Mode:    mode,
		Signals: []model.Signal{modeSignal(in, mode)},
	}

	var penalties, bonuses []model.Modifier

	switch mode {
	case model.ModeStaged:
		alignment, alignmentSignal := s.scoreAlignment(in.Synthesis)
		citation, citationSignal := s.scoreCitationQuality(in)
		facts := s.assessScope(in)
		scope, scopeSignal := s.scoreScope(in, facts)
		quantitative, quantitativeSignal := s.scoreQuantitative(in)
		safety, safetySignal := s.scoreSafety(in)
		breakdown.Signals = append(breakdown.Signals, alignmentSignal, citationSignal, scopeSignal, quantitativeSignal, safetySignal)

		// Caps act on sub-score ceilings before any modifier is summed
		decision := s.decideCap(in.IncludedStudies)
		if decision.applied {
			var capSignal model.Signal
			alignment, citation, capSignal = s.enforceCap(decision, alignment, citation)
			breakdown.Signals = append(breakdown.Signals, capSignal)
			breakdown.CapApplied = true
			reason := decision.reason
			breakdown.CapReason = &reason
		}

		breakdown.EvidenceAlignment = alignment
		breakdown.CitationQuality = citation
		breakdown.ScopeNuance = scope
		breakdown.QuantitativeAccuracy = quantitative
		breakdown.SafetyRiskHandling = safety

		penalties, bonuses = s.stagedModifiers(in, decision, facts)

	default:
		fallback := in.Fallback
		if fallback == nil {
			fallback = &model.FallbackScores{}
		}
		scores, mappingSignal := s.mapFallback(fallback)
		breakdown.Signals = append(breakdown.Signals, mappingSignal)

		breakdown.EvidenceAlignment = scores[model.CategoryEvidenceAlignment]
		breakdown.CitationQuality = scores[model.CategoryCitationQuality]
		breakdown.ScopeNuance = scores[model.CategoryScopeNuance]
		breakdown.QuantitativeAccuracy = scores[model.CategoryQuantitativeAccuracy]
		breakdown.SafetyRiskHandling = scores[model.CategorySafetyRiskHandling]

		penalties, bonuses = s.fallbackModifiers(fallback, in.ExaggerationLevel)
	}

	breakdown.Penalties = penalties
	breakdown.Bonus = bonuses

	breakdown.RawTotal = breakdown.SubScoreSum() + sumMagnitudes(bonuses) - sumMagnitudes(penalties)
	breakdown.TotalScore = clamp(breakdown.RawTotal, 0, 100)
	breakdown.Label = s.Classify(breakdown.TotalScore)
	breakdown.Confidence = s.determineConfidence(breakdown.RawTotal, breakdown.TotalScore, mode, breakdown.CapApplied)

	return breakdown
}
