package score

import (
	"fmt"

	"github.com/ppiankov/evidentia/internal/model"
)

// scoreSafety calculates safety & risk handling (0-6) from harm-reporting completeness
func (s *Scorer) scoreSafety(in *model.EvaluationInput) (int, model.Signal) {
	r := s.rubric.Safety
	maxScore := s.rubric.Maxima.SafetyRiskHandling
	riskyTags := s.riskyTags(in.DomainTags)

	if in.HarmsBenefits == nil && in.Fallback != nil {
		score := clamp(round(float64(maxScore)*float64(in.Fallback.HarmPotential)/5), 0, maxScore)
		return score, model.Signal{
			Type:        model.SignalSafetyRiskHandling,
			Severity:    model.SeverityInfo,
			Description: "No harms block; safety taken from harm_potential axis",
			Data: map[string]interface{}{
				"harm_potential": in.Fallback.HarmPotential,
				"score":          score,
				"formula":        fmt.Sprintf("round(%d * harm_potential / 5)", maxScore),
			},
		}
	}

	level := "undiscussed"
	score := r.Undiscussed
	if len(riskyTags) > 0 {
		score = 0
	}

	if hb := in.HarmsBenefits; hb != nil {
		switch {
		case len(hb.AdverseEvents) > 0:
			level = "named"
			score = r.NamedOnly
			for _, ae := range hb.AdverseEvents {
				switch {
				case ae.Frequency != "" && ae.Severity != "":
					level = "named_with_frequency_and_severity"
					score = r.Full
				case (ae.Frequency != "" || ae.Severity != "") && score < r.Partial:
					level = "named_with_frequency_or_severity"
					score = r.Partial
				}
			}
		case hb.HarmsDiscussed || len(hb.QualitativeHarms) > 0:
			level = "qualitative"
			score = r.Qualitative
		}
	}

	score = clamp(score, 0, maxScore)

	severity := model.SeverityInfo
	switch {
	case score == 0:
		severity = model.SeverityCritical
	case level == "undiscussed":
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        model.SignalSafetyRiskHandling,
		Severity:    severity,
		Description: fmt.Sprintf("Harm reporting: %s", level),
		Data: map[string]interface{}{
			"level":         level,
			"risky_domains": riskyTags,
			"score":         score,
			"formula":       fmt.Sprintf("full %d | partial %d | named %d | qualitative %d | none %d (0 in risky domains)", r.Full, r.Partial, r.NamedOnly, r.Qualitative, r.Undiscussed),
		},
	}
}

// riskyTags returns the payload's domain tags that are on the risky-domain list
func (s *Scorer) riskyTags(tags []string) []string {
	risky := []string{}
	for _, tag := range tags {
		if containsString(s.rubric.Safety.RiskyDomains, tag) {
			risky = append(risky, tag)
		}
	}
	return risky
}
