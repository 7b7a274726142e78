package model

import "time"

// EvaluationInput is the normalized, type-checked evaluation payload
type EvaluationInput struct {
	NormalizedClaim string   `json:"normalized_claim" validate:"required"` // Canonical claim wording
	ClaimText       string   `json:"claim_text,omitempty"`                 // Original wording (defaults to NormalizedClaim)
	DomainTags      []string `json:"domain_tags,omitempty"`
	PICO            PICO     `json:"pico"`

	IncludedStudies []IncludedStudy    `json:"included_studies,omitempty" validate:"dive"`
	Synthesis       *EvidenceSynthesis `json:"evidence_synthesis,omitempty"`
	CitationAudit   *CitationAudit     `json:"citation_audit,omitempty"`
	HarmsBenefits   *HarmsBenefits     `json:"harms_benefits,omitempty"`
	NumericClaims   []NumericClaim     `json:"numeric_claims,omitempty" validate:"dive"`

	LanguageAssertiveness int `json:"language_assertiveness_score" validate:"min=-5,max=5"`
	ExaggerationLevel     int `json:"exaggeration_level" validate:"min=0,max=5"`

	Fallback *FallbackScores `json:"fallback_scores,omitempty"`

	EvaluatedAt *time.Time `json:"evaluated_at,omitempty"` // Only time input the engine consults
}

// Text returns the claim wording used for language heuristics
func (in *EvaluationInput) Text() string {
	if in.ClaimText != "" {
		return in.ClaimText
	}
	return in.NormalizedClaim
}

// PICO is the Population / Intervention / Comparator / Outcomes / Context decomposition
type PICO struct {
	Population   string   `json:"population,omitempty"`
	Intervention string   `json:"intervention,omitempty"`
	Comparator   string   `json:"comparator,omitempty"`
	Outcomes     []string `json:"outcomes,omitempty"`
	Context      string   `json:"context,omitempty"`
}

// NumericClaim is a quantitative effect asserted by the claim
type NumericClaim struct {
	Measure   string  `json:"measure" validate:"required"` // percent, rr, or, hr, md, ...
	Value     float64 `json:"value"`
	Qualified bool    `json:"qualified,omitempty"` // Carries a CI or "approximately"-style qualifier
}

// FallbackScores holds the nine legacy 0-5 per-axis scores.
// ContextDistortion and HarmPotential are reverse-scored upstream (5 = lowest risk).
type FallbackScores struct {
	Clarity                int `json:"clarity" validate:"min=0,max=5"`
	EvidenceQuality        int `json:"evidence_quality" validate:"min=0,max=5"`
	Consensus              int `json:"consensus" validate:"min=0,max=5"`
	BiologicalPlausibility int `json:"biological_plausibility" validate:"min=0,max=5"`
	Transparency           int `json:"transparency" validate:"min=0,max=5"`
	ContextDistortion      int `json:"context_distortion" validate:"min=0,max=5"`
	HarmPotential          int `json:"harm_potential" validate:"min=0,max=5"`
	Virality               int `json:"virality" validate:"min=0,max=5"`
	CorrectionResponse     int `json:"correction_response" validate:"min=0,max=5"`
}

// Axis names of the legacy fallback scores
const (
	AxisClarity                = "clarity"
	AxisEvidenceQuality        = "evidence_quality"
	AxisConsensus              = "consensus"
	AxisBiologicalPlausibility = "biological_plausibility"
	AxisTransparency           = "transparency"
	AxisContextDistortion      = "context_distortion"
	AxisHarmPotential          = "harm_potential"
	AxisVirality               = "virality"
	AxisCorrectionResponse     = "correction_response"
)

// Axes returns the fallback scores keyed by axis name
func (f FallbackScores) Axes() map[string]int {
	return map[string]int{
		AxisClarity:                f.Clarity,
		AxisEvidenceQuality:        f.EvidenceQuality,
		AxisConsensus:              f.Consensus,
		AxisBiologicalPlausibility: f.BiologicalPlausibility,
		AxisTransparency:           f.Transparency,
		AxisContextDistortion:      f.ContextDistortion,
		AxisHarmPotential:          f.HarmPotential,
		AxisVirality:               f.Virality,
		AxisCorrectionResponse:     f.CorrectionResponse,
	}
}
