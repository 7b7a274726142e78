package pipeline

import (
	"strings"
	"unicode"

	"github.com/ppiankov/evidentia/internal/model"
)

// Phrase lists for the heuristic fallback axes. Matching is on whole words,
// case-insensitive.
var (
	implausiblePhrases = []string{
		"cures all", "cure all", "cures everything", "100% effective", "100% cure",
		"no side effects", "zero side effects", "instantly cures", "instant cure",
		"miracle cure", "detoxes your body", "reverses aging",
	}
	plausiblePhrases = []string{
		"may", "might", "could", "associated with", "linked to", "suggests",
		"reduce the risk", "reduces the risk", "lower risk", "modest",
	}
	methodologyWords = []string{
		"study", "studies", "trial", "trials", "research", "analysis", "participants", "cohort", "meta-analysis",
	}
	causalPhrases = []string{
		"causes", "cause", "cures", "cure", "prevents", "prevent", "leads to", "results in", "eliminates",
	}
	evidenceWords = []string{
		"study", "studies", "trial", "evidence", "research", "data",
	}
	absolutePhrases = []string{
		"all", "always", "never", "every", "everyone", "guaranteed", "completely", "100%", "proven",
	}
	limitationPhrases = []string{
		"may", "might", "in some", "depends", "individual", "limited", "preliminary", "more research",
	}
	avoidancePhrases = []string{
		"stop taking", "instead of chemotherapy", "instead of medication", "don't vaccinate",
		"avoid vaccines", "avoid doctors", "no need for medication", "throw away your",
	}
	denialPhrases = []string{
		"big pharma", "doctors don't want", "they don't want you to know", "the truth about vaccines", "cover-up",
	}
	scamPhrases = []string{
		"buy now", "limited offer", "order today", "miracle supplement", "money back",
	}
	safetyWords = []string{
		"safe", "safety", "side effect", "side effects", "risk", "risks", "consult", "doctor", "physician",
	}
	sensationalPhrases = []string{
		"shocking", "unbelievable", "urgent", "share this", "must see", "miracle", "secret", "you won't believe",
	}
)

// designRank is the evidence_quality contribution of the best available design
var designRank = map[model.StudyDesign]int{
	model.DesignSystematicReview:  5,
	model.DesignRCT:               4,
	model.DesignProspectiveCohort: 3,
	model.DesignCaseControl:       2,
	model.DesignCrossSectional:    2,
	model.DesignCaseReport:        1,
}

// HeuristicAxes scores the nine legacy axes from the claim wording and the
// studies found for it. It is used when no synthesis provider produced a
// staged payload. Correction response cannot be observed and is always 0.
func HeuristicAxes(claimText string, pico model.PICO, studies []model.IncludedStudy) model.FallbackScores {
	text := normalizeWords(claimText)

	return model.FallbackScores{
		Clarity:                clarityAxis(claimText, text, pico),
		EvidenceQuality:        evidenceQualityAxis(studies),
		Consensus:              consensusAxis(studies),
		BiologicalPlausibility: plausibilityAxis(text),
		Transparency:           transparencyAxis(text, studies),
		ContextDistortion:      contextAxis(text),
		HarmPotential:          harmAxis(text),
		Virality:               viralityAxis(text),
		CorrectionResponse:     0,
	}
}

func clarityAxis(raw, text string, pico model.PICO) int {
	score := 2
	switch {
	case pico.Intervention != "" && len(pico.Outcomes) > 0:
		score += 2
	case pico.Intervention != "" || len(pico.Outcomes) > 0:
		score++
	}
	if strings.ContainsAny(raw, "0123456789") {
		score++
	}
	if len(strings.TrimSpace(raw)) < 20 {
		score--
	}
	return clampAxis(score)
}

func evidenceQualityAxis(studies []model.IncludedStudy) int {
	best, usable := 0, 0
	for _, s := range studies {
		if s.Compromised() {
			continue
		}
		usable++
		if r := designRank[s.Design]; r > best {
			best = r
		}
	}
	if usable >= 3 {
		best++
	}
	return clampAxis(best)
}

func consensusAxis(studies []model.IncludedStudy) int {
	score := 2
	if len(studies) >= 2 {
		score++
	}
	if len(studies) >= 5 {
		score++
	}
	for _, s := range studies {
		if s.Design == model.DesignSystematicReview && !s.Compromised() {
			score++
			break
		}
	}
	return clampAxis(score)
}

func plausibilityAxis(text string) int {
	score := 3
	if containsAny(text, implausiblePhrases) {
		score -= 2
	}
	if containsAny(text, plausiblePhrases) {
		score++
	}
	return clampAxis(score)
}

func transparencyAxis(text string, studies []model.IncludedStudy) int {
	score := 0
	if len(studies) > 0 {
		score += 2
	}
	for _, s := range studies {
		if s.HasIdentifier() {
			score += 2
			break
		}
	}
	if containsAny(text, methodologyWords) {
		score++
	}
	return clampAxis(score)
}

// contextAxis is reverse-scored: 5 means the lowest distortion risk
func contextAxis(text string) int {
	score := 3
	if containsAny(text, causalPhrases) && !containsAny(text, evidenceWords) {
		score--
	}
	if containsAny(text, absolutePhrases) {
		score--
	}
	if containsAny(text, limitationPhrases) {
		score++
	}
	return clampAxis(score)
}

// harmAxis is reverse-scored: 5 means the lowest harm potential
func harmAxis(text string) int {
	score := 5
	switch {
	case containsAny(text, avoidancePhrases):
		score = 0
	case containsAny(text, denialPhrases):
		score = 1
	case containsAny(text, scamPhrases):
		score = 2
	}
	if countAny(text, safetyWords) >= 2 {
		score++
	}
	return clampAxis(score)
}

func viralityAxis(text string) int {
	return clampAxis(3 - countAny(text, sensationalPhrases))
}

// normalizeWords lowercases text and pads single-spaced words so phrases can be
// matched on word boundaries
func normalizeWords(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '%' && r != '\'' && r != '-'
	})
	return " " + strings.Join(words, " ") + " "
}

func containsAny(text string, phrases []string) bool {
	return countAny(text, phrases) > 0
}

func countAny(text string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(text, " "+p+" ") {
			n++
		}
	}
	return n
}

func clampAxis(v int) int {
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}
