package model

import (
	"strings"
	"testing"
)

func TestDefaultRubric_Valid(t *testing.T) {
	if err := DefaultRubric().Validate(); err != nil {
		t.Fatalf("default rubric should validate, got: %v", err)
	}
}

func TestRubric_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Rubric)
		wantErr string
	}{
		{
			name:    "missing version",
			mutate:  func(r *Rubric) { r.Version = "" },
			wantErr: "version is required",
		},
		{
			name:    "non-monotonic grade weights",
			mutate:  func(r *Rubric) { r.GradeWeights[string(GRADELow)] = 0.9 },
			wantErr: "grade_weights: low weight 0.90 breaks monotonic order",
		},
		{
			name:    "missing design weight",
			mutate:  func(r *Rubric) { delete(r.DesignWeights, string(DesignCaseReport)) },
			wantErr: "design_weights: missing case_report",
		},
		{
			name:    "cap above maximum",
			mutate:  func(r *Rubric) { r.Cap.CitationQuality = 30 },
			wantErr: "cap exceeds sub-score maximum",
		},
		{
			name:    "citation points do not add up",
			mutate:  func(r *Rubric) { r.Citation.TransparencyPoints = 4 },
			wantErr: "citation points sum to 20.0, want 22",
		},
		{
			name:    "inverted modifier range",
			mutate:  func(r *Rubric) { r.Modifiers.Penalties[PenaltyCherryPicking] = Range{Min: 15, Max: 5} },
			wantErr: "modifier cherry_picking: invalid range 15..5",
		},
		{
			name:    "fallback weights do not sum to one",
			mutate:  func(r *Rubric) { r.FallbackMapping[CategorySafetyRiskHandling][AxisHarmPotential] = 0.5 },
			wantErr: "fallback_mapping safety_risk_handling: weights sum to 0.500, want 1",
		},
		{
			name: "thresholds out of order",
			mutate: func(r *Rubric) {
				r.Thresholds = []Threshold{{Min: 30, Label: LabelUnsupported}, {Min: 85, Label: LabelTrue}, {Min: 0, Label: LabelFalse}}
			},
			wantErr: "thresholds must be strictly descending",
		},
		{
			name:    "no zero floor",
			mutate:  func(r *Rubric) { r.Thresholds = []Threshold{{Min: 50, Label: LabelTrue}} },
			wantErr: "lowest threshold must be 0",
		},
		{
			name:    "confidence margins swapped",
			mutate:  func(r *Rubric) { r.Confidence.MediumMargin = 20 },
			wantErr: "confidence medium_margin exceeds high_margin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DefaultRubric()
			tt.mutate(&r)

			err := r.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestRubric_ValidateCollectsAllProblems(t *testing.T) {
	r := DefaultRubric()
	r.Version = ""
	r.Confidence.MediumMargin = 20

	err := r.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got := strings.Count(err.Error(), "\n") + 1; got != 2 {
		t.Errorf("expected 2 joined errors, got %d: %v", got, err)
	}
}

func TestFallbackScores_Axes(t *testing.T) {
	f := FallbackScores{Clarity: 1, HarmPotential: 4, CorrectionResponse: 5}
	axes := f.Axes()

	if len(axes) != 9 {
		t.Errorf("expected 9 axes, got %d", len(axes))
	}
	if axes[AxisClarity] != 1 || axes[AxisHarmPotential] != 4 || axes[AxisCorrectionResponse] != 5 {
		t.Errorf("unexpected axes %v", axes)
	}
}

func TestEvaluationInput_Text(t *testing.T) {
	in := &EvaluationInput{NormalizedClaim: "normalized"}
	if in.Text() != "normalized" {
		t.Errorf("expected normalized claim, got %q", in.Text())
	}

	in.ClaimText = "original"
	if in.Text() != "original" {
		t.Errorf("expected original text, got %q", in.Text())
	}
}
