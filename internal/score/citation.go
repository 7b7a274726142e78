package score

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/evidentia/internal/model"
)

var (
	authorYearPattern = regexp.MustCompile(`^\s*([\p{L}'\-]+).*?\b((?:19|20)\d{2})\b`)
	doiPrefixPattern  = regexp.MustCompile(`(?i)^(?:https?://(?:dx\.)?doi\.org/|doi:\s*)`)
)

// scoreCitationQuality calculates citation quality (0-22) from verifiability, hierarchy and transparency
func (s *Scorer) scoreCitationQuality(in *model.EvaluationInput) (int, model.Signal) {
	maxScore := s.rubric.Maxima.CitationQuality
	verifiability, verifiabilitySource := s.verifiability(in)
	hierarchy := s.hierarchy(in.IncludedStudies)
	transparency := transparency(in.IncludedStudies)

	c := s.rubric.Citation
	score := clamp(round(c.VerifiabilityPoints*verifiability+c.HierarchyPoints*hierarchy+c.TransparencyPoints*transparency), 0, maxScore)

	severity := model.SeverityInfo
	switch {
	case verifiability == 0 && len(in.IncludedStudies) == 0:
		severity = model.SeverityCritical
	case score < maxScore/2:
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        model.SignalCitationQuality,
		Severity:    severity,
		Description: fmt.Sprintf("Citations: %.0f%% verifiable, hierarchy %.2f, disclosure %.0f%%", verifiability*100, hierarchy, transparency*100),
		Data: map[string]interface{}{
			"verifiability":        verifiability,
			"verifiability_source": verifiabilitySource,
			"hierarchy":            hierarchy,
			"transparency":         transparency,
			"score":                score,
			"formula":              fmt.Sprintf("round(%g * verifiability + %g * hierarchy + %g * transparency)", c.VerifiabilityPoints, c.HierarchyPoints, c.TransparencyPoints),
		},
	}
}

// verifiability is the share of confident mentions resolving to a sound study.
// Without an audit it falls back to the transparency axis, then to identifier coverage.
func (s *Scorer) verifiability(in *model.EvaluationInput) (float64, string) {
	if in.CitationAudit == nil {
		if in.Fallback != nil {
			return float64(in.Fallback.Transparency) / 5, "fallback_transparency"
		}
		if len(in.IncludedStudies) == 0 {
			return 0, "identifier_coverage"
		}
		withID := 0
		for _, study := range in.IncludedStudies {
			if study.HasIdentifier() {
				withID++
			}
		}
		return float64(withID) / float64(len(in.IncludedStudies)), "identifier_coverage"
	}

	mentions := in.CitationAudit.Mentions
	if len(mentions) == 0 {
		return 0, "citation_audit"
	}

	verified := 0
	for i, idx := range resolveMentions(mentions, in.IncludedStudies) {
		if idx < 0 || !confident(mentions[i]) {
			continue
		}
		if !in.IncludedStudies[idx].Compromised() {
			verified++
		}
	}
	return float64(verified) / float64(len(mentions)), "citation_audit"
}

// hierarchy is the mean design weight; compromised studies count as zero
func (s *Scorer) hierarchy(studies []model.IncludedStudy) float64 {
	if len(studies) == 0 {
		return 0
	}
	total := 0.0
	for _, study := range studies {
		if study.Compromised() {
			continue
		}
		total += s.rubric.DesignWeights[string(study.Design)]
	}
	return total / float64(len(studies))
}

// transparency is the share of known funding and retraction disclosures
func transparency(studies []model.IncludedStudy) float64 {
	if len(studies) == 0 {
		return 0
	}
	known := 0
	for _, study := range studies {
		if study.FundingCOI != "" && study.FundingCOI != model.FundingUnknown {
			known++
		}
		if study.RetractionStatus != "" && study.RetractionStatus != model.RetractionUnknown {
			known++
		}
	}
	return float64(known) / float64(2*len(studies))
}

func confident(m model.CitationMention) bool {
	return m.Certainty == model.CertaintyHigh || m.Certainty == model.CertaintyMedium
}

// resolveMentions maps each mention to the index of the first study it identifies, or -1
func resolveMentions(mentions []model.CitationMention, studies []model.IncludedStudy) []int {
	resolved := make([]int, len(mentions))
	for i, m := range mentions {
		resolved[i] = -1
		for j, study := range studies {
			if mentionMatches(m, study) {
				resolved[i] = j
				break
			}
		}
	}
	return resolved
}

func mentionMatches(m model.CitationMention, study model.IncludedStudy) bool {
	value := strings.TrimSpace(m.Value)
	if value == "" {
		return false
	}

	switch m.Type {
	case model.MentionPMID:
		return study.PMID != nil && normalizePMID(*study.PMID) == normalizePMID(value)

	case model.MentionDOI:
		return study.DOI != nil && normalizeDOI(*study.DOI) == normalizeDOI(value)

	case model.MentionURL:
		lower := strings.ToLower(value)
		if study.DOI != nil && *study.DOI != "" && strings.Contains(lower, normalizeDOI(*study.DOI)) {
			return true
		}
		if study.PMID != nil && *study.PMID != "" {
			return regexp.MustCompile(`\b` + regexp.QuoteMeta(normalizePMID(*study.PMID)) + `\b`).MatchString(lower)
		}
		return false

	case model.MentionJournalTitle:
		if !study.HasIdentifier() || study.Journal == "" {
			return false
		}
		journal := strings.ToLower(study.Journal)
		lower := strings.ToLower(value)
		return journal == lower || strings.Contains(journal, lower) || strings.Contains(lower, journal)

	case model.MentionAuthorYear:
		if !study.HasIdentifier() || study.FirstAuthor == "" || study.Year == 0 {
			return false
		}
		match := authorYearPattern.FindStringSubmatch(value)
		if match == nil {
			return false
		}
		year, _ := strconv.Atoi(match[2])
		return strings.EqualFold(match[1], study.FirstAuthor) && year == study.Year
	}

	return false
}

func normalizePMID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "pmid:")
	return strings.TrimSpace(s)
}

func normalizeDOI(s string) string {
	s = doiPrefixPattern.ReplaceAllString(strings.TrimSpace(s), "")
	return strings.ToLower(s)
}
