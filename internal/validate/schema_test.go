package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/evidentia/internal/model"
)

const validStaged = `{
	"normalized_claim": "Omega-3 supplementation reduces triglycerides in adults",
	"domain_tags": ["Supplements", "cardiology"],
	"pico": {"population": "adults", "intervention": "omega-3", "outcomes": ["triglycerides"]},
	"included_studies": [
		{
			"pmid": "12345678",
			"doi": null,
			"year": 2019,
			"design": "Systematic-Review",
			"bias_risk": "Some Concerns",
			"funding_coi": "none",
			"retraction_status": "ACTIVE",
			"effect_direction": "decrease",
			"effect_size": {"measure": "MD", "value": -0.3, "ci_low": -0.4, "ci_high": -0.2}
		}
	],
	"evidence_synthesis": {"GRADE_certainty": "Very Low", "alignment_to_claim": "partially-supports"},
	"citation_audit": {"mentions": [{"type": "PMID", "value": "12345678", "certainty": "High"}]},
	"language_assertiveness_score": 2,
	"exaggeration_level": 1,
	"some_future_field": {"ignored": true}
}`

func TestSchemaValidator_ValidNormalizes(t *testing.T) {
	v := NewSchemaValidator()

	in, err := v.Validate([]byte(validStaged))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	study := in.IncludedStudies[0]
	if study.Design != model.DesignSystematicReview {
		t.Errorf("design = %q, want systematic_review", study.Design)
	}
	if study.BiasRisk != model.BiasSomeConcerns {
		t.Errorf("bias_risk = %q, want some_concerns", study.BiasRisk)
	}
	if study.RetractionStatus != model.RetractionActive {
		t.Errorf("retraction_status = %q, want active", study.RetractionStatus)
	}
	if study.DOI != nil {
		t.Errorf("doi = %v, want nil", *study.DOI)
	}
	if study.EffectSize.Measure != "md" {
		t.Errorf("effect measure = %q, want md", study.EffectSize.Measure)
	}
	if in.Synthesis.GRADECertainty != model.GRADEVeryLow {
		t.Errorf("GRADE = %q, want very_low", in.Synthesis.GRADECertainty)
	}
	if in.Synthesis.Alignment != model.AlignmentPartiallySupports {
		t.Errorf("alignment = %q, want partially_supports", in.Synthesis.Alignment)
	}
	if in.CitationAudit.Mentions[0].Type != model.MentionPMID {
		t.Errorf("mention type = %q, want pmid", in.CitationAudit.Mentions[0].Type)
	}
	if in.DomainTags[0] != "supplements" {
		t.Errorf("domain tag = %q, want supplements", in.DomainTags[0])
	}
}

func TestSchemaValidator_ReportsAllViolations(t *testing.T) {
	v := NewSchemaValidator()

	payload := `{
		"included_studies": [{"design": "anecdote", "year": 1700, "retraction_status": "withdrawn"}],
		"evidence_synthesis": {"GRADE_certainty": "certain"},
		"language_assertiveness_score": 9,
		"exaggeration_level": -1
	}`

	_, err := v.Validate([]byte(payload))
	if err == nil {
		t.Fatal("expected validation error")
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	want := []string{
		"normalized_claim",
		"included_studies[0].year",
		"included_studies[0].design",
		"included_studies[0].retraction_status",
		"evidence_synthesis.GRADE_certainty",
		"evidence_synthesis.alignment_to_claim",
		"language_assertiveness_score",
		"exaggeration_level",
	}

	got := make(map[string]string)
	for _, violation := range vErr.Violations {
		got[violation.Field] = violation.Reason
	}
	for _, field := range want {
		if _, ok := got[field]; !ok {
			t.Errorf("missing violation for %s (got %v)", field, vErr.Violations)
		}
	}

	if !strings.Contains(got["included_studies[0].design"], "anecdote") {
		t.Errorf("design reason should quote the bad value, got %q", got["included_studies[0].design"])
	}
}

func TestSchemaValidator_RequiresSignalSet(t *testing.T) {
	v := NewSchemaValidator()

	_, err := v.Validate([]byte(`{"normalized_claim": "x"}`))

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(vErr.Violations) != 1 || vErr.Violations[0].Field != "evidence_synthesis" {
		t.Errorf("unexpected violations: %+v", vErr.Violations)
	}
}

func TestSchemaValidator_FallbackOnly(t *testing.T) {
	v := NewSchemaValidator()

	payload := `{
		"normalized_claim": "Vitamin C cures colds",
		"fallback_scores": {"clarity": 4, "evidence_quality": 2, "consensus": 1, "biological_plausibility": 3,
			"transparency": 2, "context_distortion": 2, "harm_potential": 4, "virality": 3, "correction_response": 0}
	}`

	in, err := v.Validate([]byte(payload))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if in.Fallback == nil || in.Fallback.Consensus != 1 {
		t.Errorf("fallback scores not decoded: %+v", in.Fallback)
	}
}

func TestSchemaValidator_FallbackAxisRange(t *testing.T) {
	v := NewSchemaValidator()

	_, err := v.Validate([]byte(`{"normalized_claim": "x", "fallback_scores": {"clarity": 7, "virality": -1}}`))

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(vErr.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %+v", vErr.Violations)
	}
	if vErr.Violations[0].Field != "fallback_scores.clarity" {
		t.Errorf("field = %q, want fallback_scores.clarity", vErr.Violations[0].Field)
	}
}

func TestSchemaValidator_ConfidenceInterval(t *testing.T) {
	v := NewSchemaValidator()

	tests := []struct {
		name       string
		effectSize string
		wantErr    bool
	}{
		{"ordered", `{"measure": "rr", "value": 0.8, "ci_low": 0.7, "ci_high": 0.9}`, false},
		{"degenerate", `{"measure": "rr", "value": 0.8, "ci_low": 0.8, "ci_high": 0.8}`, false},
		{"inverted", `{"measure": "rr", "value": 0.8, "ci_low": 0.9, "ci_high": 0.7}`, true},
		{"half open", `{"measure": "rr", "value": 0.8, "ci_low": 0.7}`, true},
		{"no interval", `{"measure": "rr", "value": 0.8}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := `{"normalized_claim": "x",
				"included_studies": [{"design": "rct", "effect_size": ` + tt.effectSize + `}],
				"evidence_synthesis": {"GRADE_certainty": "low", "alignment_to_claim": "neutral"}}`

			_, err := v.Validate([]byte(payload))
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSchemaValidator_MalformedJSON(t *testing.T) {
	v := NewSchemaValidator()

	_, err := v.Validate([]byte(`{"normalized_claim": `))

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(vErr.Violations) != 1 || vErr.Violations[0].Field != "$" {
		t.Errorf("unexpected violations: %+v", vErr.Violations)
	}
}

func TestSchemaValidator_TypeErrorKeepsCollecting(t *testing.T) {
	v := NewSchemaValidator()

	payload := `{"normalized_claim": "x", "exaggeration_level": "loud",
		"evidence_synthesis": {"GRADE_certainty": "high", "alignment_to_claim": "sideways"}}`

	_, err := v.Validate([]byte(payload))

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(vErr.Violations) != 2 {
		t.Fatalf("expected type error and enum error, got %+v", vErr.Violations)
	}
	if !strings.Contains(vErr.Violations[0].Reason, "expected int") {
		t.Errorf("first violation should be the type error, got %+v", vErr.Violations[0])
	}
	if vErr.Violations[1].Field != "evidence_synthesis.alignment_to_claim" {
		t.Errorf("second violation field = %q", vErr.Violations[1].Field)
	}
}

func TestSchemaValidator_CheckDoesNotMutate(t *testing.T) {
	v := NewSchemaValidator()

	in := &model.EvaluationInput{
		NormalizedClaim: "x",
		IncludedStudies: []model.IncludedStudy{{Design: "RCT"}},
		Synthesis:       &model.EvidenceSynthesis{GRADECertainty: model.GRADEHigh, Alignment: model.AlignmentSupports},
	}

	if err := v.Check(in); err == nil {
		t.Error("expected un-normalized design to fail Check")
	}
	if in.IncludedStudies[0].Design != "RCT" {
		t.Errorf("Check modified input: design = %q", in.IncludedStudies[0].Design)
	}

	Normalize(in)
	if err := v.Check(in); err != nil {
		t.Errorf("Check after Normalize: %v", err)
	}
}

func TestSchemaValidator_DesignAliases(t *testing.T) {
	in := &model.EvaluationInput{
		IncludedStudies: []model.IncludedStudy{
			{Design: "Meta-Analysis"},
			{Design: "Randomized Controlled Trial"},
			{Design: "cohort"},
		},
	}

	Normalize(in)

	want := []model.StudyDesign{model.DesignSystematicReview, model.DesignRCT, model.DesignProspectiveCohort}
	for i, w := range want {
		if in.IncludedStudies[i].Design != w {
			t.Errorf("study %d design = %q, want %q", i, in.IncludedStudies[i].Design, w)
		}
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Violations: []Violation{
		{Field: "a", Reason: "is required"},
		{Field: "b", Reason: "must be <= 5, got 9"},
	}}

	msg := err.Error()
	if !strings.Contains(msg, "2 violations") || !strings.Contains(msg, "a: is required") || !strings.Contains(msg, "b: must be <= 5") {
		t.Errorf("unexpected message: %s", msg)
	}
}
