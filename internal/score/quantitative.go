package score

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/ppiankov/evidentia/internal/model"
)

var percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:%|percent\b)`)

// numericClaims returns the payload's numeric claims, or percentages found in the claim text
func (s *Scorer) numericClaims(in *model.EvaluationInput) ([]model.NumericClaim, string) {
	if in.NumericClaims != nil {
		return in.NumericClaims, "payload"
	}

	text := in.Text()
	qualified := len(matchedTerms(text, s.rubric.Quantitative.QualifierTerms)) > 0

	var claims []model.NumericClaim
	for _, match := range percentPattern.FindAllStringSubmatch(text, -1) {
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		claims = append(claims, model.NumericClaim{Measure: "percent", Value: value, Qualified: qualified})
	}
	return claims, "claim_text"
}

// scoreQuantitative calculates quantitative accuracy (0-6) by matching numeric claims to reported effects
func (s *Scorer) scoreQuantitative(in *model.EvaluationInput) (int, model.Signal) {
	r := s.rubric.Quantitative
	maxScore := s.rubric.Maxima.QuantitativeAccuracy
	claims, source := s.numericClaims(in)

	if len(claims) == 0 {
		return r.Neutral, model.Signal{
			Type:        model.SignalQuantitativeAccuracy,
			Severity:    model.SeverityInfo,
			Description: "No numeric effect claims; scored neutral",
			Data: map[string]interface{}{
				"numeric_claims": 0,
				"source":         source,
				"score":          r.Neutral,
				"formula":        fmt.Sprintf("neutral %d when no numeric claim is made", r.Neutral),
			},
		}
	}

	var effects []model.EffectSize
	for _, study := range in.IncludedStudies {
		if study.EffectSize != nil {
			effects = append(effects, *study.EffectSize)
		}
	}

	perClaim := make([]int, len(claims))
	total := 0
	for i, claim := range claims {
		points := 0
		for _, effect := range effects {
			if p := s.matchEffect(claim, effect); p > points {
				points = p
			}
		}
		if claim.Qualified {
			points += r.QualifiedBonus
		}
		points = clamp(points, 0, maxScore)
		perClaim[i] = points
		total += points
	}

	score := clamp(round(float64(total)/float64(len(claims))), 0, maxScore)

	severity := model.SeverityInfo
	if score < r.WithinCI {
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        model.SignalQuantitativeAccuracy,
		Severity:    severity,
		Description: fmt.Sprintf("%d numeric claim(s) checked against %d reported effect size(s)", len(claims), len(effects)),
		Data: map[string]interface{}{
			"numeric_claims": len(claims),
			"effect_sizes":   len(effects),
			"source":         source,
			"per_claim":      perClaim,
			"tolerance":      r.Tolerance,
			"score":          score,
			"formula":        fmt.Sprintf("round(mean(match %d | within CI %d | miss 0, +%d if qualified))", r.Match, r.WithinCI, r.QualifiedBonus),
		},
	}
}

// matchEffect scores one claim against one effect size, before the qualifier bonus
func (s *Scorer) matchEffect(claim model.NumericClaim, effect model.EffectSize) int {
	r := s.rubric.Quantitative

	value, ciLow, ciHigh, hasCI, ok := s.comparable(claim, effect)
	if !ok {
		return 0
	}

	claimed := claim.Value
	if claim.Measure == "percent" {
		claimed = math.Abs(claimed)
	}

	inCI := hasCI && claimed >= ciLow && claimed <= ciHigh
	withinTolerance := math.Abs(claimed-value) <= r.Tolerance*math.Abs(value)

	switch {
	case withinTolerance && (!hasCI || inCI):
		return r.Match
	case inCI:
		return r.WithinCI
	default:
		return 0
	}
}

// comparable expresses the effect on the claim's scale. Percent claims compare
// against ratio measures as a relative change |1 - ratio| x 100.
func (s *Scorer) comparable(claim model.NumericClaim, effect model.EffectSize) (value, ciLow, ciHigh float64, hasCI, ok bool) {
	hasCI = effect.HasCI()

	if claim.Measure == effect.Measure {
		if claim.Measure == "percent" {
			if hasCI {
				ciLow, ciHigh = percentInterval(*effect.CILow, *effect.CIHigh)
			}
			return math.Abs(effect.Value), ciLow, ciHigh, hasCI, true
		}
		if hasCI {
			ciLow, ciHigh = *effect.CILow, *effect.CIHigh
		}
		return effect.Value, ciLow, ciHigh, hasCI, true
	}

	if claim.Measure == "percent" && containsString(s.rubric.Quantitative.RatioMeasures, effect.Measure) {
		value = math.Abs(1-effect.Value) * 100
		if hasCI {
			lo, hi := *effect.CILow, *effect.CIHigh
			ciLow, ciHigh = percentInterval((lo-1)*100, (hi-1)*100)
		}
		return value, ciLow, ciHigh, hasCI, true
	}

	return 0, 0, 0, false, false
}

// percentInterval maps a signed interval onto magnitudes; an interval spanning zero starts at zero
func percentInterval(lo, hi float64) (float64, float64) {
	if lo <= 0 && hi >= 0 {
		return 0, math.Max(math.Abs(lo), math.Abs(hi))
	}
	a, b := math.Abs(lo), math.Abs(hi)
	return math.Min(a, b), math.Max(a, b)
}
