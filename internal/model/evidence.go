package model

// IncludedStudy is one study returned by literature search and screening
type IncludedStudy struct {
	PMID        *string     `json:"pmid"`                   // nil when unknown, never fabricated
	DOI         *string     `json:"doi"`                    // nil when unknown, never fabricated
	Title       string      `json:"title,omitempty"`
	Journal     string      `json:"journal,omitempty"`
	FirstAuthor string      `json:"first_author,omitempty"` // Surname only (e.g., "Smith")
	Year        int         `json:"year,omitempty" validate:"omitempty,min=1900,max=2100"`
	Design      StudyDesign `json:"design" validate:"required,oneof=systematic_review rct prospective_cohort case_control cross_sectional case_report"`

	Population   string   `json:"population,omitempty"`
	Intervention string   `json:"intervention,omitempty"`
	Outcomes     []string `json:"outcomes,omitempty"`
	SampleSize   int      `json:"sample_size,omitempty" validate:"min=0"`
	Species      Species  `json:"species,omitempty" validate:"omitempty,oneof=human animal in_vitro"`

	BiasRisk         BiasRisk         `json:"bias_risk,omitempty" validate:"omitempty,oneof=low some_concerns high unclear"`
	FundingCOI       FundingCOI       `json:"funding_coi,omitempty" validate:"omitempty,oneof=none industry mixed unknown"`
	RetractionStatus RetractionStatus `json:"retraction_status,omitempty" validate:"omitempty,oneof=active retracted expression_of_concern unknown"`
	Predatory        bool             `json:"predatory,omitempty"`

	EffectDirection EffectDirection `json:"effect_direction,omitempty" validate:"omitempty,oneof=increase no_increase decrease mixed not_reported"`
	EffectSize      *EffectSize     `json:"effect_size,omitempty"`
}

// HasIdentifier reports whether the study carries a PMID or DOI
func (s IncludedStudy) HasIdentifier() bool {
	return (s.PMID != nil && *s.PMID != "") || (s.DOI != nil && *s.DOI != "")
}

// Compromised reports whether the study's integrity disqualifies it as evidence
func (s IncludedStudy) Compromised() bool {
	return s.Predatory ||
		s.RetractionStatus == RetractionRetracted ||
		s.RetractionStatus == RetractionExpressionOfConcern
}

// EffectSize is the reported effect (measure, point value, confidence interval)
type EffectSize struct {
	Measure string   `json:"measure" validate:"required"` // rr, or, hr, md, smd, percent, ...
	Value   float64  `json:"value"`
	CILow   *float64 `json:"ci_low,omitempty"`
	CIHigh  *float64 `json:"ci_high,omitempty"`
}

// HasCI reports whether both interval bounds are present
func (e EffectSize) HasCI() bool {
	return e.CILow != nil && e.CIHigh != nil
}

// StudyDesign is the categorical study design, ordered by evidentiary weight
type StudyDesign string

const (
	DesignSystematicReview  StudyDesign = "systematic_review"
	DesignRCT               StudyDesign = "rct"
	DesignProspectiveCohort StudyDesign = "prospective_cohort"
	DesignCaseControl       StudyDesign = "case_control"
	DesignCrossSectional    StudyDesign = "cross_sectional"
	DesignCaseReport        StudyDesign = "case_report"
)

// Observational reports whether the design cannot by itself establish causation
func (d StudyDesign) Observational() bool {
	switch d {
	case DesignProspectiveCohort, DesignCaseControl, DesignCrossSectional:
		return true
	default:
		return false
	}
}

// Species of the study population
type Species string

const (
	SpeciesHuman   Species = "human"
	SpeciesAnimal  Species = "animal"
	SpeciesInVitro Species = "in_vitro"
)

// BiasRisk is the risk-of-bias judgement for a study
type BiasRisk string

const (
	BiasLow          BiasRisk = "low"
	BiasSomeConcerns BiasRisk = "some_concerns"
	BiasHigh         BiasRisk = "high"
	BiasUnclear      BiasRisk = "unclear"
)

// FundingCOI is the funding / conflict-of-interest disclosure
type FundingCOI string

const (
	FundingNone     FundingCOI = "none"
	FundingIndustry FundingCOI = "industry"
	FundingMixed    FundingCOI = "mixed"
	FundingUnknown  FundingCOI = "unknown"
)

// RetractionStatus is the publication integrity status
type RetractionStatus string

const (
	RetractionActive              RetractionStatus = "active"
	RetractionRetracted           RetractionStatus = "retracted"
	RetractionExpressionOfConcern RetractionStatus = "expression_of_concern"
	RetractionUnknown             RetractionStatus = "unknown"
)

// EffectDirection is the reported direction of effect
type EffectDirection string

const (
	EffectIncrease    EffectDirection = "increase"
	EffectNoIncrease  EffectDirection = "no_increase"
	EffectDecrease    EffectDirection = "decrease"
	EffectMixed       EffectDirection = "mixed"
	EffectNotReported EffectDirection = "not_reported"
)

// EvidenceSynthesis summarizes the body of evidence
type EvidenceSynthesis struct {
	GRADECertainty GRADECertainty `json:"GRADE_certainty" validate:"required,oneof=high moderate low very_low"`
	Alignment      Alignment      `json:"alignment_to_claim" validate:"required,oneof=supports partially_supports neutral contradicts insufficient"`
	Statement      string         `json:"statement,omitempty"`
	KeyPoints      []string       `json:"key_points,omitempty"`
}

// GRADECertainty is the certainty of a body of evidence
type GRADECertainty string

const (
	GRADEHigh     GRADECertainty = "high"
	GRADEModerate GRADECertainty = "moderate"
	GRADELow      GRADECertainty = "low"
	GRADEVeryLow  GRADECertainty = "very_low"
)

// Alignment is the judgement of evidence against the claim
type Alignment string

const (
	AlignmentSupports          Alignment = "supports"
	AlignmentPartiallySupports Alignment = "partially_supports"
	AlignmentNeutral           Alignment = "neutral"
	AlignmentContradicts       Alignment = "contradicts"
	AlignmentInsufficient      Alignment = "insufficient"
)

// CitationAudit lists citation mentions extracted from the original claim text
type CitationAudit struct {
	Mentions []CitationMention `json:"mentions" validate:"dive"`
}

// CitationMention is one citation-like reference in the claim text
type CitationMention struct {
	Text      string           `json:"text,omitempty"` // Raw matched text
	Type      MentionType      `json:"type" validate:"required,oneof=pmid doi url journal_title author_year other"`
	Value     string           `json:"value" validate:"required"` // Normalized identifier or name
	Certainty MentionCertainty `json:"certainty" validate:"required,oneof=high medium low uncertain"`
}

// MentionType classifies a citation mention
type MentionType string

const (
	MentionPMID         MentionType = "pmid"
	MentionDOI          MentionType = "doi"
	MentionURL          MentionType = "url"
	MentionJournalTitle MentionType = "journal_title"
	MentionAuthorYear   MentionType = "author_year"
	MentionOther        MentionType = "other"
)

// MentionCertainty is the extraction certainty of a mention
type MentionCertainty string

const (
	CertaintyHigh      MentionCertainty = "high"
	CertaintyMedium    MentionCertainty = "medium"
	CertaintyLow       MentionCertainty = "low"
	CertaintyUncertain MentionCertainty = "uncertain"
)

// HarmsBenefits describes how the claim's source reports harms and benefits
type HarmsBenefits struct {
	AdverseEvents    []AdverseEvent `json:"adverse_events,omitempty" validate:"dive"`
	HarmsDiscussed   bool           `json:"harms_discussed,omitempty"`
	QualitativeHarms []string       `json:"qualitative_harms,omitempty"`
	Benefits         []string       `json:"benefits,omitempty"`
}

// AdverseEvent is a named harm with optional frequency and severity
type AdverseEvent struct {
	Name      string `json:"name" validate:"required"`
	Frequency string `json:"frequency,omitempty"` // e.g., "3%", "1 in 200"
	Severity  string `json:"severity,omitempty"`  // e.g., "mild", "serious"
}

// VenueTier represents the classification of a publication venue
type VenueTier int

const (
	TierUnknown   VenueTier = 0 // Not yet classified
	TierPrimary   VenueTier = 1 // Indexed peer-reviewed journals, evidence syntheses
	TierSecondary VenueTier = 2 // Preprint servers, trade journals
	TierTertiary  VenueTier = 3 // Magazines, blogs, press releases
	TierPredatory VenueTier = 4 // Known predatory publishers (near-zero evidentiary weight)
)

func (t VenueTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	case TierPredatory:
		return "predatory"
	default:
		return "unknown"
	}
}
