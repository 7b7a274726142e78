package model

import (
	"errors"
	"fmt"
	"sort"
)

// Rubric is the engine configuration: every weight table, cap, magnitude range
// and threshold the scorer consumes. Nothing in the scorer is tuned by literals.
type Rubric struct {
	Version string `yaml:"version" mapstructure:"version" json:"version"`

	Maxima SubScoreMaxima `yaml:"maxima" mapstructure:"maxima" json:"maxima"`

	AlignmentWeights map[string]float64 `yaml:"alignment_weights" mapstructure:"alignment_weights" json:"alignment_weights"`
	GradeWeights     map[string]float64 `yaml:"grade_weights" mapstructure:"grade_weights" json:"grade_weights"`
	InsufficientCap  int                `yaml:"insufficient_cap" mapstructure:"insufficient_cap" json:"insufficient_cap"`
	DesignWeights    map[string]float64 `yaml:"design_weights" mapstructure:"design_weights" json:"design_weights"`

	Citation     CitationRubric     `yaml:"citation" mapstructure:"citation" json:"citation"`
	Scope        ScopeRubric        `yaml:"scope" mapstructure:"scope" json:"scope"`
	Quantitative QuantitativeRubric `yaml:"quantitative" mapstructure:"quantitative" json:"quantitative"`
	Safety       SafetyRubric       `yaml:"safety" mapstructure:"safety" json:"safety"`
	Cap          CapRubric          `yaml:"cap" mapstructure:"cap" json:"cap"`
	Modifiers    ModifierRubric     `yaml:"modifiers" mapstructure:"modifiers" json:"modifiers"`

	// FallbackMapping maps category -> legacy axis -> weight (weights per category sum to 1)
	FallbackMapping map[string]map[string]float64 `yaml:"fallback_mapping" mapstructure:"fallback_mapping" json:"fallback_mapping"`

	Thresholds []Threshold      `yaml:"thresholds" mapstructure:"thresholds" json:"thresholds"` // Highest first
	Confidence ConfidenceRubric `yaml:"confidence" mapstructure:"confidence" json:"confidence"`
}

// SubScoreMaxima are the documented maxima of the five sub-scores
type SubScoreMaxima struct {
	EvidenceAlignment    int `yaml:"evidence_alignment" mapstructure:"evidence_alignment" json:"evidence_alignment"`
	CitationQuality      int `yaml:"citation_quality" mapstructure:"citation_quality" json:"citation_quality"`
	ScopeNuance          int `yaml:"scope_nuance" mapstructure:"scope_nuance" json:"scope_nuance"`
	QuantitativeAccuracy int `yaml:"quantitative_accuracy" mapstructure:"quantitative_accuracy" json:"quantitative_accuracy"`
	SafetyRiskHandling   int `yaml:"safety_risk_handling" mapstructure:"safety_risk_handling" json:"safety_risk_handling"`
}

// ByCategory returns the maxima keyed by category name
func (m SubScoreMaxima) ByCategory() map[string]int {
	return map[string]int{
		CategoryEvidenceAlignment:    m.EvidenceAlignment,
		CategoryCitationQuality:      m.CitationQuality,
		CategoryScopeNuance:          m.ScopeNuance,
		CategoryQuantitativeAccuracy: m.QuantitativeAccuracy,
		CategorySafetyRiskHandling:   m.SafetyRiskHandling,
	}
}

// Category names shared by maxima and the fallback mapping
const (
	CategoryEvidenceAlignment    = "evidence_alignment"
	CategoryCitationQuality      = "citation_quality"
	CategoryScopeNuance          = "scope_nuance"
	CategoryQuantitativeAccuracy = "quantitative_accuracy"
	CategorySafetyRiskHandling   = "safety_risk_handling"
)

// CitationRubric splits the citation-quality maximum across its three factors
type CitationRubric struct {
	VerifiabilityPoints float64 `yaml:"verifiability_points" mapstructure:"verifiability_points" json:"verifiability_points"`
	HierarchyPoints     float64 `yaml:"hierarchy_points" mapstructure:"hierarchy_points" json:"hierarchy_points"`
	TransparencyPoints  float64 `yaml:"transparency_points" mapstructure:"transparency_points" json:"transparency_points"`
}

// ScopeRubric configures the scope & nuance scorer
type ScopeRubric struct {
	PICOPoints              float64  `yaml:"pico_points" mapstructure:"pico_points" json:"pico_points"`
	GeneralizationFull      int      `yaml:"generalization_full" mapstructure:"generalization_full" json:"generalization_full"`
	GeneralizationQualified int      `yaml:"generalization_qualified" mapstructure:"generalization_qualified" json:"generalization_qualified"`
	LimitationsMax          int      `yaml:"limitations_max" mapstructure:"limitations_max" json:"limitations_max"`
	SmallSampleSize         int      `yaml:"small_sample_size" mapstructure:"small_sample_size" json:"small_sample_size"`
	QualifierTerms          []string `yaml:"qualifier_terms" mapstructure:"qualifier_terms" json:"qualifier_terms"`
	LimitationTerms         []string `yaml:"limitation_terms" mapstructure:"limitation_terms" json:"limitation_terms"`
}

// QuantitativeRubric configures numeric claim matching
type QuantitativeRubric struct {
	Neutral        int      `yaml:"neutral" mapstructure:"neutral" json:"neutral"`
	Match          int      `yaml:"match" mapstructure:"match" json:"match"`
	WithinCI       int      `yaml:"within_ci" mapstructure:"within_ci" json:"within_ci"`
	QualifiedBonus int      `yaml:"qualified_bonus" mapstructure:"qualified_bonus" json:"qualified_bonus"`
	Tolerance      float64  `yaml:"tolerance" mapstructure:"tolerance" json:"tolerance"` // Relative
	QualifierTerms []string `yaml:"qualifier_terms" mapstructure:"qualifier_terms" json:"qualifier_terms"`
	RatioMeasures  []string `yaml:"ratio_measures" mapstructure:"ratio_measures" json:"ratio_measures"`
}

// SafetyRubric configures harm-reporting completeness points
type SafetyRubric struct {
	Full         int      `yaml:"full" mapstructure:"full" json:"full"`                   // Named + frequency + severity
	Partial      int      `yaml:"partial" mapstructure:"partial" json:"partial"`          // Named + frequency or severity
	NamedOnly    int      `yaml:"named_only" mapstructure:"named_only" json:"named_only"` // Named events only
	Qualitative  int      `yaml:"qualitative" mapstructure:"qualitative" json:"qualitative"`
	Undiscussed  int      `yaml:"undiscussed" mapstructure:"undiscussed" json:"undiscussed"` // Outside risky domains
	RiskyDomains []string `yaml:"risky_domains" mapstructure:"risky_domains" json:"risky_domains"`
}

// CapRubric holds the structural ceilings applied on integrity failures
type CapRubric struct {
	EvidenceAlignment int `yaml:"evidence_alignment" mapstructure:"evidence_alignment" json:"evidence_alignment"`
	CitationQuality   int `yaml:"citation_quality" mapstructure:"citation_quality" json:"citation_quality"`
}

// ModifierRubric holds magnitude ranges and trigger parameters
type ModifierRubric struct {
	Penalties map[string]Range `yaml:"penalties" mapstructure:"penalties" json:"penalties"`
	Bonuses   map[string]Range `yaml:"bonuses" mapstructure:"bonuses" json:"bonuses"`

	ConsistencyThreshold  float64  `yaml:"consistency_threshold" mapstructure:"consistency_threshold" json:"consistency_threshold"`
	OutdatedYears         int      `yaml:"outdated_years" mapstructure:"outdated_years" json:"outdated_years"`
	ExaggerationThreshold int      `yaml:"exaggeration_threshold" mapstructure:"exaggeration_threshold" json:"exaggeration_threshold"`
	RiskAxisThreshold     int      `yaml:"risk_axis_threshold" mapstructure:"risk_axis_threshold" json:"risk_axis_threshold"`
	CausalTerms           []string `yaml:"causal_terms" mapstructure:"causal_terms" json:"causal_terms"`
	HedgeTerms            []string `yaml:"hedge_terms" mapstructure:"hedge_terms" json:"hedge_terms"`
}

// Range is an inclusive magnitude range
type Range struct {
	Min int `yaml:"min" mapstructure:"min" json:"min"`
	Max int `yaml:"max" mapstructure:"max" json:"max"`
}

// Threshold is an inclusive lower bound for a label
type Threshold struct {
	Min   int   `yaml:"min" mapstructure:"min" json:"min"`
	Label Label `yaml:"label" mapstructure:"label" json:"label"`
}

// ConfidenceRubric holds the margins for confidence bands
type ConfidenceRubric struct {
	HighMargin   int `yaml:"high_margin" mapstructure:"high_margin" json:"high_margin"`
	MediumMargin int `yaml:"medium_margin" mapstructure:"medium_margin" json:"medium_margin"`
}

// Modifier names
const (
	PenaltyRetractedPrimary     = "retracted_primary_evidence"
	PenaltyCherryPicking        = "cherry_picking"
	PenaltyCausation            = "causation_from_observation"
	PenaltyOvergeneralization   = "overgeneralization"
	PenaltyOutdatedOnly         = "outdated_only"
	PenaltyExaggeratedLanguage  = "exaggerated_language"
	PenaltyContextDistortion    = "context_distortion"
	PenaltyHarmPotential        = "harm_potential"
	BonusUncertaintyStatements  = "accurate_uncertainty_statements"
	BonusTransparentLimitations = "transparent_limitations"
)

// DefaultRubric returns rubric v3.0
func DefaultRubric() Rubric {
	return Rubric{
		Version: "3.0",
		Maxima: SubScoreMaxima{
			EvidenceAlignment:    60,
			CitationQuality:      22,
			ScopeNuance:          12,
			QuantitativeAccuracy: 6,
			SafetyRiskHandling:   6,
		},
		AlignmentWeights: map[string]float64{
			string(AlignmentSupports):          1.0,
			string(AlignmentPartiallySupports): 0.7,
			string(AlignmentNeutral):           0.4,
			string(AlignmentInsufficient):      0.25,
			string(AlignmentContradicts):       0.1,
		},
		GradeWeights: map[string]float64{
			string(GRADEHigh):     1.0,
			string(GRADEModerate): 0.85,
			string(GRADELow):      0.65,
			string(GRADEVeryLow):  0.5,
		},
		InsufficientCap: 12,
		DesignWeights: map[string]float64{
			string(DesignSystematicReview):  1.0,
			string(DesignRCT):               0.85,
			string(DesignProspectiveCohort): 0.65,
			string(DesignCaseControl):       0.5,
			string(DesignCrossSectional):    0.35,
			string(DesignCaseReport):        0.2,
		},
		Citation: CitationRubric{
			VerifiabilityPoints: 8,
			HierarchyPoints:     8,
			TransparencyPoints:  6,
		},
		Scope: ScopeRubric{
			PICOPoints:              6,
			GeneralizationFull:      4,
			GeneralizationQualified: 3,
			LimitationsMax:          2,
			SmallSampleSize:         100,
			QualifierTerms: []string{
				"in mice", "in rats", "in animals", "animal", "in vitro", "preliminary",
				"pilot", "small study", "may", "might",
			},
			LimitationTerms: []string{
				"limitation", "limited", "uncertain", "heterogeneity", "small sample",
				"bias", "further research", "caution", "confounding",
			},
		},
		Quantitative: QuantitativeRubric{
			Neutral:        4,
			Match:          5,
			WithinCI:       3,
			QualifiedBonus: 1,
			Tolerance:      0.10,
			QualifierTerms: []string{
				"approximately", "about", "around", "~", "up to", "confidence interval", "95% ci",
			},
			RatioMeasures: []string{"rr", "or", "hr", "risk_ratio", "odds_ratio", "hazard_ratio"},
		},
		Safety: SafetyRubric{
			Full:        6,
			Partial:     5,
			NamedOnly:   4,
			Qualitative: 3,
			Undiscussed: 2,
			RiskyDomains: []string{
				"supplements", "pharmacology", "oncology", "vaccines", "cardiology", "pediatrics",
				"pregnancy", "surgery", "psychiatry", "weight_loss", "hormones",
			},
		},
		Cap: CapRubric{
			EvidenceAlignment: 12, // 20% of 60
			CitationQuality:   7,
		},
		Modifiers: ModifierRubric{
			Penalties: map[string]Range{
				PenaltyRetractedPrimary:    {Min: 30, Max: 50},
				PenaltyCherryPicking:       {Min: 5, Max: 15},
				PenaltyCausation:           {Min: 5, Max: 15},
				PenaltyOvergeneralization:  {Min: 5, Max: 10},
				PenaltyOutdatedOnly:        {Min: 5, Max: 5},
				PenaltyExaggeratedLanguage: {Min: 2, Max: 6},
				PenaltyContextDistortion:   {Min: 5, Max: 10},
				PenaltyHarmPotential:       {Min: 10, Max: 20},
			},
			Bonuses: map[string]Range{
				BonusUncertaintyStatements:  {Min: 1, Max: 3},
				BonusTransparentLimitations: {Min: 1, Max: 2},
			},
			ConsistencyThreshold:  0.7,
			OutdatedYears:         15,
			ExaggerationThreshold: 3,
			RiskAxisThreshold:     1,
			CausalTerms: []string{
				"causes", "cause", "caused", "prevents", "prevent", "cures", "cure",
				"leads to", "results in", "eliminates", "reverses", "protects against", "boosts",
			},
			HedgeTerms: []string{
				"may", "might", "could", "suggests", "associated with", "preliminary",
				"limited evidence", "possibly",
			},
		},
		FallbackMapping: map[string]map[string]float64{
			CategoryEvidenceAlignment: {
				AxisEvidenceQuality:        0.4,
				AxisConsensus:              0.4,
				AxisBiologicalPlausibility: 0.2,
			},
			CategoryCitationQuality: {
				AxisTransparency:       0.5,
				AxisEvidenceQuality:    0.4,
				AxisCorrectionResponse: 0.1,
			},
			CategoryScopeNuance: {
				AxisContextDistortion: 0.5,
				AxisClarity:           0.3,
				AxisVirality:          0.2,
			},
			CategoryQuantitativeAccuracy: {
				AxisClarity:                0.6,
				AxisBiologicalPlausibility: 0.4,
			},
			CategorySafetyRiskHandling: {
				AxisHarmPotential: 1.0,
			},
		},
		Thresholds: []Threshold{
			{Min: 85, Label: LabelTrue},
			{Min: 60, Label: LabelMixed},
			{Min: 30, Label: LabelUnsupported},
			{Min: 0, Label: LabelFalse},
		},
		Confidence: ConfidenceRubric{
			HighMargin:   10,
			MediumMargin: 4,
		},
	}
}

// Validate checks that the rubric is internally consistent
func (r Rubric) Validate() error {
	var errs []error

	if r.Version == "" {
		errs = append(errs, errors.New("version is required"))
	}

	errs = append(errs, checkOrdered("alignment_weights", r.AlignmentWeights, []string{
		string(AlignmentSupports), string(AlignmentPartiallySupports), string(AlignmentNeutral),
		string(AlignmentInsufficient), string(AlignmentContradicts),
	})...)
	errs = append(errs, checkOrdered("grade_weights", r.GradeWeights, []string{
		string(GRADEHigh), string(GRADEModerate), string(GRADELow), string(GRADEVeryLow),
	})...)
	errs = append(errs, checkOrdered("design_weights", r.DesignWeights, []string{
		string(DesignSystematicReview), string(DesignRCT), string(DesignProspectiveCohort),
		string(DesignCaseControl), string(DesignCrossSectional), string(DesignCaseReport),
	})...)

	if r.InsufficientCap < 0 || r.InsufficientCap > r.Maxima.EvidenceAlignment {
		errs = append(errs, fmt.Errorf("insufficient_cap %d outside 0..%d", r.InsufficientCap, r.Maxima.EvidenceAlignment))
	}
	if r.Cap.EvidenceAlignment > r.Maxima.EvidenceAlignment || r.Cap.CitationQuality > r.Maxima.CitationQuality {
		errs = append(errs, errors.New("cap exceeds sub-score maximum"))
	}

	citationPoints := r.Citation.VerifiabilityPoints + r.Citation.HierarchyPoints + r.Citation.TransparencyPoints
	if int(citationPoints+0.5) != r.Maxima.CitationQuality {
		errs = append(errs, fmt.Errorf("citation points sum to %.1f, want %d", citationPoints, r.Maxima.CitationQuality))
	}
	scopeMax := int(r.Scope.PICOPoints+0.5) + r.Scope.GeneralizationFull + r.Scope.LimitationsMax
	if scopeMax != r.Maxima.ScopeNuance {
		errs = append(errs, fmt.Errorf("scope points sum to %d, want %d", scopeMax, r.Maxima.ScopeNuance))
	}
	if r.Quantitative.Match+r.Quantitative.QualifiedBonus > r.Maxima.QuantitativeAccuracy {
		errs = append(errs, errors.New("quantitative match + qualified bonus exceeds maximum"))
	}
	if r.Safety.Full > r.Maxima.SafetyRiskHandling {
		errs = append(errs, errors.New("safety full points exceed maximum"))
	}

	for _, group := range []map[string]Range{r.Modifiers.Penalties, r.Modifiers.Bonuses} {
		for _, name := range sortedKeys(group) {
			rg := group[name]
			if rg.Min < 0 || rg.Min > rg.Max {
				errs = append(errs, fmt.Errorf("modifier %s: invalid range %d..%d", name, rg.Min, rg.Max))
			}
		}
	}

	maxima := r.Maxima.ByCategory()
	for category := range maxima {
		weights, ok := r.FallbackMapping[category]
		if !ok {
			errs = append(errs, fmt.Errorf("fallback_mapping: missing category %s", category))
			continue
		}
		sum := 0.0
		for _, w := range weights {
			sum += w
		}
		if sum < 0.999 || sum > 1.001 {
			errs = append(errs, fmt.Errorf("fallback_mapping %s: weights sum to %.3f, want 1", category, sum))
		}
	}

	if len(r.Thresholds) == 0 {
		errs = append(errs, errors.New("thresholds are required"))
	}
	for i := 1; i < len(r.Thresholds); i++ {
		if r.Thresholds[i].Min >= r.Thresholds[i-1].Min {
			errs = append(errs, fmt.Errorf("thresholds must be strictly descending (index %d)", i))
		}
	}
	if n := len(r.Thresholds); n > 0 && r.Thresholds[n-1].Min != 0 {
		errs = append(errs, errors.New("lowest threshold must be 0"))
	}

	if r.Confidence.MediumMargin > r.Confidence.HighMargin {
		errs = append(errs, errors.New("confidence medium_margin exceeds high_margin"))
	}

	return errors.Join(errs...)
}

// checkOrdered verifies that keys are present and their weights non-increasing in the given order
func checkOrdered(table string, weights map[string]float64, order []string) []error {
	var errs []error
	prev := 2.0
	for _, key := range order {
		w, ok := weights[key]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: missing %s", table, key))
			continue
		}
		if w < 0 || w > 1 {
			errs = append(errs, fmt.Errorf("%s: %s weight %.2f outside 0..1", table, key, w))
		}
		if w > prev {
			errs = append(errs, fmt.Errorf("%s: %s weight %.2f breaks monotonic order", table, key, w))
		}
		prev = w
	}
	return errs
}

func sortedKeys(m map[string]Range) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
