package score

import (
	"fmt"
	"strings"

	"github.com/ppiankov/evidentia/internal/model"
)

// magnitude scales a configured range by severity in [0,1]
func (s *Scorer) magnitude(rg model.Range, severity float64) int {
	return round(float64(rg.Min) + float64(rg.Max-rg.Min)*clamp01(severity))
}

func (s *Scorer) penalty(name string, severity float64, reason string) model.Modifier {
	return model.Modifier{
		Name:      name,
		Magnitude: s.magnitude(s.rubric.Modifiers.Penalties[name], severity),
		Reason:    reason,
	}
}

func (s *Scorer) bonus(name string, severity float64, reason string) model.Modifier {
	return model.Modifier{
		Name:      name,
		Magnitude: s.magnitude(s.rubric.Modifiers.Bonuses[name], severity),
		Reason:    reason,
	}
}

// stagedModifiers evaluates every staged penalty and bonus predicate, in a fixed order
func (s *Scorer) stagedModifiers(in *model.EvaluationInput, decision capDecision, facts scopeFacts) (penalties, bonuses []model.Modifier) {
	penalties = []model.Modifier{}
	bonuses = []model.Modifier{}
	r := s.rubric.Modifiers
	text := in.Text()

	if decision.applied {
		penalties = append(penalties, s.penalty(model.PenaltyRetractedPrimary, decision.severity(),
			"integrity failure: "+decision.reason))
	}

	if m, ok := s.cherryPicking(in); ok {
		penalties = append(penalties, m)
	}

	if causal := matchedTerms(text, r.CausalTerms); len(causal) > 0 && in.Synthesis.Alignment != model.AlignmentInsufficient {
		if observational, anyCohort := allObservational(in.IncludedStudies); observational {
			severity := 1.0
			if anyCohort {
				severity = 0.5
			}
			penalties = append(penalties, s.penalty(model.PenaltyCausation, severity,
				fmt.Sprintf("causal language (%s) backed only by observational designs", strings.Join(causal, ", "))))
		}
	}

	if facts.narrow && !facts.qualified {
		severity := 0.5
		reason := "small-sample evidence generalized without qualification"
		if facts.allNonHuman {
			severity = 1
			reason = "animal or in-vitro evidence generalized to people without qualification"
		}
		penalties = append(penalties, s.penalty(model.PenaltyOvergeneralization, severity, reason))
	}

	if newest, ok := newestYear(in.IncludedStudies); ok && in.EvaluatedAt != nil {
		if age := in.EvaluatedAt.Year() - newest; age > r.OutdatedYears {
			penalties = append(penalties, s.penalty(model.PenaltyOutdatedOnly, 1,
				fmt.Sprintf("newest cited study is from %d, %d years before evaluation", newest, age)))
		}
	}

	if m, ok := s.exaggeration(in.ExaggerationLevel); ok {
		penalties = append(penalties, m)
	}

	if hedges := matchedTerms(text, r.HedgeTerms); len(hedges) > 0 &&
		in.LanguageAssertiveness <= 0 && in.Synthesis.GRADECertainty != model.GRADEHigh {
		severity := 0.0
		switch in.Synthesis.GRADECertainty {
		case model.GRADELow:
			severity = 0.5
		case model.GRADEVeryLow:
			severity = 1
		}
		bonuses = append(bonuses, s.bonus(model.BonusUncertaintyStatements, severity,
			fmt.Sprintf("hedged wording (%s) matches %s certainty", strings.Join(hedges, ", "), in.Synthesis.GRADECertainty)))
	}

	if facts.limitations > 0 {
		severity := 0.0
		if facts.limitations >= 2 {
			severity = 1
		}
		bonuses = append(bonuses, s.bonus(model.BonusTransparentLimitations, severity,
			fmt.Sprintf("%d key point(s) state limitations", facts.limitations)))
	}

	return penalties, bonuses
}

// fallbackModifiers applies the coarse penalties available from legacy axes
func (s *Scorer) fallbackModifiers(f *model.FallbackScores, exaggerationLevel int) (penalties, bonuses []model.Modifier) {
	penalties = []model.Modifier{}
	bonuses = []model.Modifier{}
	threshold := s.rubric.Modifiers.RiskAxisThreshold

	axes := []struct {
		name  string
		value int
	}{
		{model.PenaltyContextDistortion, f.ContextDistortion},
		{model.PenaltyHarmPotential, f.HarmPotential},
	}
	for _, axis := range axes {
		if axis.value > threshold {
			continue
		}
		severity := float64(threshold+1-axis.value) / float64(threshold+1)
		penalties = append(penalties, s.penalty(axis.name, severity,
			fmt.Sprintf("%s axis scored %d of 5", axis.name, axis.value)))
	}

	if m, ok := s.exaggeration(exaggerationLevel); ok {
		penalties = append(penalties, m)
	}

	return penalties, bonuses
}

func (s *Scorer) exaggeration(level int) (model.Modifier, bool) {
	threshold := s.rubric.Modifiers.ExaggerationThreshold
	if level < threshold {
		return model.Modifier{}, false
	}
	severity := float64(level-threshold+1) / float64(5-threshold+1)
	return s.penalty(model.PenaltyExaggeratedLanguage, severity,
		fmt.Sprintf("exaggeration level %d of 5", level)), true
}

// cherryPicking triggers when the cited studies are a strict subset sharing one
// direction while the full evidence set is inconsistent
func (s *Scorer) cherryPicking(in *model.EvaluationInput) (model.Modifier, bool) {
	if in.CitationAudit == nil || len(in.IncludedStudies) < 2 {
		return model.Modifier{}, false
	}

	cited := make(map[int]bool)
	for i, idx := range resolveMentions(in.CitationAudit.Mentions, in.IncludedStudies) {
		if idx >= 0 && confident(in.CitationAudit.Mentions[i]) {
			cited[idx] = true
		}
	}
	if len(cited) == 0 || len(cited) >= len(in.IncludedStudies) {
		return model.Modifier{}, false
	}

	var direction model.EffectDirection
	for idx := range cited {
		d := in.IncludedStudies[idx].EffectDirection
		if !reported(d) {
			return model.Modifier{}, false
		}
		if direction == "" {
			direction = d
		} else if d != direction {
			return model.Modifier{}, false
		}
	}

	reportedCount, agreeing := 0, 0
	for _, study := range in.IncludedStudies {
		if !reported(study.EffectDirection) {
			continue
		}
		reportedCount++
		if study.EffectDirection == direction {
			agreeing++
		}
	}

	consistency := float64(agreeing) / float64(reportedCount)
	threshold := s.rubric.Modifiers.ConsistencyThreshold
	if consistency >= threshold {
		return model.Modifier{}, false
	}

	severity := (threshold - consistency) / (threshold - 1.0/3.0)
	return s.penalty(model.PenaltyCherryPicking, severity,
		fmt.Sprintf("cites %d of %d studies, all %s, while only %.0f%% of the evidence agrees", len(cited), len(in.IncludedStudies), direction, consistency*100)), true
}

func reported(d model.EffectDirection) bool {
	return d != "" && d != model.EffectNotReported
}

// allObservational reports whether every study is observational and whether any is a prospective cohort
func allObservational(studies []model.IncludedStudy) (bool, bool) {
	if len(studies) == 0 {
		return false, false
	}
	anyCohort := false
	for _, study := range studies {
		if !study.Design.Observational() {
			return false, false
		}
		if study.Design == model.DesignProspectiveCohort {
			anyCohort = true
		}
	}
	return true, anyCohort
}

func newestYear(studies []model.IncludedStudy) (int, bool) {
	newest := 0
	for _, study := range studies {
		if study.Year > newest {
			newest = study.Year
		}
	}
	return newest, newest > 0
}

func sumMagnitudes(mods []model.Modifier) int {
	total := 0
	for _, m := range mods {
		total += m.Magnitude
	}
	return total
}
