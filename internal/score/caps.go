package score

import (
	"fmt"

	"github.com/ppiankov/evidentia/internal/model"
)

// capDecision records whether the structural ceiling applies and why
type capDecision struct {
	applied   bool
	primary   int // Index of the primary-basis study, -1 when there are no studies
	condition model.RetractionStatus
	predatory bool
	reason    string
}

// primaryStudy returns the index of the highest-weight study.
// Ties go to a compromised study, then to list order.
func (s *Scorer) primaryStudy(studies []model.IncludedStudy) int {
	primary := -1
	best := -1.0
	for i, study := range studies {
		w := s.rubric.DesignWeights[string(study.Design)]
		switch {
		case w > best:
			primary, best = i, w
		case w == best && study.Compromised() && !studies[primary].Compromised():
			primary = i
		}
	}
	return primary
}

// decideCap checks whether the primary basis is retracted, under an expression of concern or predatory
func (s *Scorer) decideCap(studies []model.IncludedStudy) capDecision {
	decision := capDecision{primary: s.primaryStudy(studies)}
	if decision.primary < 0 {
		return decision
	}

	study := studies[decision.primary]
	if !study.Compromised() {
		return decision
	}

	decision.applied = true
	decision.condition = study.RetractionStatus
	decision.predatory = study.Predatory

	var condition string
	switch {
	case study.RetractionStatus == model.RetractionRetracted:
		condition = "retracted"
	case study.Predatory:
		condition = "published in a predatory journal"
	default:
		condition = "under an expression of concern"
	}

	basis := "primary evidence"
	if len(studies) == 1 {
		basis = "sole evidence"
	}
	decision.reason = fmt.Sprintf("%s %s is %s", basis, studyLabel(study, decision.primary), condition)

	return decision
}

// severity of the integrity failure: full for retraction or predatory venue, half for a concern
func (d capDecision) severity() float64 {
	if d.condition == model.RetractionRetracted || d.predatory {
		return 1
	}
	return 0.5
}

// enforceCap lowers alignment and citation quality to their ceilings. It never raises a score.
func (s *Scorer) enforceCap(decision capDecision, alignment, citation int) (int, int, model.Signal) {
	capped := s.rubric.Cap
	beforeAlignment, beforeCitation := alignment, citation

	if alignment > capped.EvidenceAlignment {
		alignment = capped.EvidenceAlignment
	}
	if citation > capped.CitationQuality {
		citation = capped.CitationQuality
	}

	return alignment, citation, model.Signal{
		Type:        model.SignalCap,
		Severity:    model.SeverityCritical,
		Description: "Cap applied: " + decision.reason,
		Data: map[string]interface{}{
			"primary_index":             decision.primary,
			"evidence_alignment_before": beforeAlignment,
			"evidence_alignment_after":  alignment,
			"citation_quality_before":   beforeCitation,
			"citation_quality_after":    citation,
			"formula":                   fmt.Sprintf("evidence_alignment = min(score, %d); citation_quality = min(score, %d)", capped.EvidenceAlignment, capped.CitationQuality),
		},
	}
}

// studyLabel names a study by its strongest identifier
func studyLabel(study model.IncludedStudy, index int) string {
	switch {
	case study.PMID != nil && *study.PMID != "":
		return "PMID " + *study.PMID
	case study.DOI != nil && *study.DOI != "":
		return "DOI " + *study.DOI
	case study.Title != "":
		return fmt.Sprintf("%q", study.Title)
	default:
		return fmt.Sprintf("#%d (%s)", index+1, study.Design)
	}
}
