package score

import (
	"fmt"
	"strings"

	"github.com/ppiankov/evidentia/internal/model"
)

// scopeFacts are the scope observations shared with the modifier engine
type scopeFacts struct {
	narrow      bool
	allNonHuman bool
	qualified   bool
	limitations int
}

// assessScope derives narrow-evidence, qualification and limitation facts
func (s *Scorer) assessScope(in *model.EvaluationInput) scopeFacts {
	var facts scopeFacts

	studies := in.IncludedStudies
	if len(studies) > 0 {
		nonHuman, small := 0, 0
		for _, study := range studies {
			if study.Species == model.SpeciesAnimal || study.Species == model.SpeciesInVitro {
				nonHuman++
			}
			if study.SampleSize > 0 && study.SampleSize < s.rubric.Scope.SmallSampleSize {
				small++
			}
		}
		facts.allNonHuman = nonHuman == len(studies)
		facts.narrow = facts.allNonHuman || small == len(studies)
	}

	facts.qualified = len(matchedTerms(in.Text()+" "+in.PICO.Population, s.rubric.Scope.QualifierTerms)) > 0

	if in.Synthesis != nil {
		for _, point := range in.Synthesis.KeyPoints {
			if len(matchedTerms(point, s.rubric.Scope.LimitationTerms)) > 0 {
				facts.limitations++
			}
		}
	}

	return facts
}

// scoreScope calculates scope & nuance (0-12) from PICO coverage, generalization and limitations
func (s *Scorer) scoreScope(in *model.EvaluationInput, facts scopeFacts) (int, model.Signal) {
	r := s.rubric.Scope
	coverage, elements := picoCoverage(in)

	generalization := r.GeneralizationFull
	if facts.narrow {
		generalization = 0
		if facts.qualified {
			generalization = r.GeneralizationQualified
		}
	}

	limitations := facts.limitations
	if limitations > r.LimitationsMax {
		limitations = r.LimitationsMax
	}

	score := clamp(round(r.PICOPoints*coverage)+generalization+limitations, 0, s.rubric.Maxima.ScopeNuance)

	severity := model.SeverityInfo
	description := fmt.Sprintf("PICO coverage %.0f%%", coverage*100)
	if facts.narrow && !facts.qualified {
		severity = model.SeverityWarning
		description += "; narrow evidence generalized without qualification"
	}

	return score, model.Signal{
		Type:        model.SignalScopeNuance,
		Severity:    severity,
		Description: description,
		Data: map[string]interface{}{
			"pico_coverage":     coverage,
			"pico_elements":     elements,
			"narrow_evidence":   facts.narrow,
			"qualified":         facts.qualified,
			"generalization":    generalization,
			"limitation_points": facts.limitations,
			"limitations":       limitations,
			"score":             score,
			"formula":           fmt.Sprintf("round(%g * pico_coverage) + generalization(%d/%d/0) + min(limitations, %d)", r.PICOPoints, r.GeneralizationFull, r.GeneralizationQualified, r.LimitationsMax),
		},
	}
}

// picoCoverage is the mean per-element share of claim tokens found in the studies
func picoCoverage(in *model.EvaluationInput) (float64, map[string]float64) {
	type element struct {
		name  string
		claim string
		field func(model.IncludedStudy) string
	}

	elements := []element{
		{"population", in.PICO.Population, func(s model.IncludedStudy) string { return s.Population }},
		{"intervention", in.PICO.Intervention, func(s model.IncludedStudy) string { return s.Intervention }},
		{"outcomes", strings.Join(in.PICO.Outcomes, " "), func(s model.IncludedStudy) string { return strings.Join(s.Outcomes, " ") }},
	}

	perElement := make(map[string]float64)
	total := 0.0
	for _, el := range elements {
		claimTokens := tokens(el.claim)
		if len(claimTokens) == 0 {
			continue
		}

		var corpus []string
		for _, study := range in.IncludedStudies {
			if text := el.field(study); text != "" {
				corpus = append(corpus, text)
			}
		}
		if len(corpus) == 0 {
			// Titles are the only other place the element can show up
			for _, study := range in.IncludedStudies {
				if study.Title != "" {
					corpus = append(corpus, study.Title)
				}
			}
		}

		share := 0.5
		if len(corpus) > 0 {
			studyTokens := make(map[string]bool)
			for _, tok := range tokens(strings.Join(corpus, " ")) {
				studyTokens[tok] = true
			}
			found := 0
			for _, tok := range claimTokens {
				if studyTokens[tok] {
					found++
				}
			}
			share = float64(found) / float64(len(claimTokens))
		}

		perElement[el.name] = share
		total += share
	}

	if len(perElement) == 0 {
		return 0.5, perElement
	}
	return total / float64(len(perElement)), perElement
}
