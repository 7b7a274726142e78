package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ppiankov/evidentia/internal/model"
)

// Violation is one field-level problem in a payload
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports every violation found in a payload
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Reason
	}
	return fmt.Sprintf("invalid payload (%d violations): %s", len(e.Violations), strings.Join(parts, "; "))
}

// designAliases maps common spellings onto the closed design set
var designAliases = map[string]model.StudyDesign{
	"meta_analysis":                       model.DesignSystematicReview,
	"systematic_review_and_meta_analysis": model.DesignSystematicReview,
	"randomized_controlled_trial":         model.DesignRCT,
	"randomised_controlled_trial":         model.DesignRCT,
	"cohort":                              model.DesignProspectiveCohort,
	"case_series":                         model.DesignCaseReport,
}

// SchemaValidator validates and normalizes evaluation payloads
type SchemaValidator struct {
	validate *validator.Validate
}

// NewSchemaValidator creates a validator that reports fields by their JSON names
func NewSchemaValidator() *SchemaValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &SchemaValidator{validate: v}
}

// Validate decodes a raw JSON payload, normalizes enum spellings and checks every rule.
// Unknown fields are ignored. On failure the error is a *ValidationError.
func (s *SchemaValidator) Validate(raw []byte) (*model.EvaluationInput, error) {
	var violations []Violation

	var in model.EvaluationInput
	if err := json.Unmarshal(raw, &in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, &ValidationError{Violations: []Violation{{Field: "$", Reason: "malformed JSON: " + err.Error()}}}
		}
		// Decoding continues past type errors; keep going to report the rest
		field := typeErr.Field
		if field == "" {
			field = "$"
		}
		violations = append(violations, Violation{
			Field:  field,
			Reason: fmt.Sprintf("expected %s, got JSON %s", typeErr.Type, typeErr.Value),
		})
	}

	Normalize(&in)
	violations = append(violations, s.check(&in)...)

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	return &in, nil
}

// Check validates an already-decoded payload without modifying it
func (s *SchemaValidator) Check(in *model.EvaluationInput) error {
	if in == nil {
		return &ValidationError{Violations: []Violation{{Field: "$", Reason: "payload is required"}}}
	}
	if violations := s.check(in); len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func (s *SchemaValidator) check(in *model.EvaluationInput) []Violation {
	var violations []Violation

	if err := s.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				violations = append(violations, Violation{
					Field:  fieldPath(fe.Namespace()),
					Reason: reason(fe),
				})
			}
		} else {
			violations = append(violations, Violation{Field: "$", Reason: err.Error()})
		}
	}

	if in.Synthesis == nil && in.Fallback == nil {
		violations = append(violations, Violation{
			Field:  "evidence_synthesis",
			Reason: "one of evidence_synthesis or fallback_scores is required",
		})
	}

	for i, study := range in.IncludedStudies {
		es := study.EffectSize
		if es == nil {
			continue
		}
		field := fmt.Sprintf("included_studies[%d].effect_size", i)
		switch {
		case (es.CILow == nil) != (es.CIHigh == nil):
			violations = append(violations, Violation{Field: field, Reason: "ci_low and ci_high must be given together"})
		case es.HasCI() && *es.CILow > *es.CIHigh:
			violations = append(violations, Violation{
				Field:  field,
				Reason: fmt.Sprintf("ci_low %g exceeds ci_high %g", *es.CILow, *es.CIHigh),
			})
		}
	}

	return violations
}

// Normalize rewrites enum spellings in place: lowercase, with '-' and spaces mapped to '_'
func Normalize(in *model.EvaluationInput) {
	for i := range in.DomainTags {
		in.DomainTags[i] = normalizeToken(in.DomainTags[i])
	}

	for i := range in.IncludedStudies {
		s := &in.IncludedStudies[i]
		design := normalizeToken(string(s.Design))
		if alias, ok := designAliases[design]; ok {
			s.Design = alias
		} else {
			s.Design = model.StudyDesign(design)
		}
		s.Species = model.Species(normalizeToken(string(s.Species)))
		s.BiasRisk = model.BiasRisk(normalizeToken(string(s.BiasRisk)))
		s.FundingCOI = model.FundingCOI(normalizeToken(string(s.FundingCOI)))
		s.RetractionStatus = model.RetractionStatus(normalizeToken(string(s.RetractionStatus)))
		s.EffectDirection = model.EffectDirection(normalizeToken(string(s.EffectDirection)))
		if s.EffectSize != nil {
			s.EffectSize.Measure = normalizeToken(s.EffectSize.Measure)
		}
	}

	if in.Synthesis != nil {
		in.Synthesis.GRADECertainty = model.GRADECertainty(normalizeToken(string(in.Synthesis.GRADECertainty)))
		in.Synthesis.Alignment = model.Alignment(normalizeToken(string(in.Synthesis.Alignment)))
	}

	if in.CitationAudit != nil {
		for i := range in.CitationAudit.Mentions {
			m := &in.CitationAudit.Mentions[i]
			m.Type = model.MentionType(normalizeToken(string(m.Type)))
			m.Certainty = model.MentionCertainty(normalizeToken(string(m.Certainty)))
		}
	}

	for i := range in.NumericClaims {
		in.NumericClaims[i].Measure = normalizeToken(in.NumericClaims[i].Measure)
	}
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

// fieldPath strips the root struct name from a validator namespace
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "min":
		return fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("must be <= %s, got %v", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
