package score

import (
	"github.com/ppiankov/evidentia/internal/model"
)

// Classify maps a clamped total to its label. Thresholds are inclusive lower bounds, highest first.
func (s *Scorer) Classify(total int) model.Label {
	for _, t := range s.rubric.Thresholds {
		if total >= t.Min {
			return t.Label
		}
	}
	return s.rubric.Thresholds[len(s.rubric.Thresholds)-1].Label
}

// determineConfidence derives confidence from the distance to the nearest label
// boundary plus the amount clamped away
func (s *Scorer) determineConfidence(raw, total int, mode model.Mode, capApplied bool) model.Confidence {
	margin := -1
	for _, t := range s.rubric.Thresholds {
		if t.Min <= 0 {
			continue
		}
		d := total - t.Min
		if d < 0 {
			d = -d
		}
		if margin < 0 || d < margin {
			margin = d
		}
	}
	if margin < 0 {
		margin = s.rubric.Confidence.HighMargin
	}

	spread := raw - total
	if spread < 0 {
		spread = -spread
	}
	margin += spread

	confidence := model.ConfidenceLow
	switch {
	case margin >= s.rubric.Confidence.HighMargin:
		confidence = model.ConfidenceHigh
	case margin >= s.rubric.Confidence.MediumMargin:
		confidence = model.ConfidenceMedium
	}

	if mode == model.ModeFallback && confidence == model.ConfidenceHigh {
		confidence = model.ConfidenceMedium
	}
	if capApplied && confidence == model.ConfidenceLow {
		confidence = model.ConfidenceMedium
	}

	return confidence
}
