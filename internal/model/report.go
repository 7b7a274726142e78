package model

// Report is the envelope written for each evaluated payload
type Report struct {
	ID            string         `json:"id"`             // UUIDv5 over rubric version + payload bytes
	RubricVersion string         `json:"rubric_version"` // Rubric that produced the breakdown
	Source        string         `json:"source,omitempty"`
	Claim         string         `json:"claim"`
	Breakdown     ScoreBreakdown `json:"breakdown"`
	Principles    Principles     `json:"principles"`
}

// ScoreBreakdown is the auditable result of one evaluation
type ScoreBreakdown struct {
	Mode Mode `json:"mode"` // staged or fallback

	EvidenceAlignment    int `json:"evidence_alignment"`    // 0-60
	CitationQuality      int `json:"citation_quality"`      // 0-22
	ScopeNuance          int `json:"scope_nuance"`          // 0-12
	QuantitativeAccuracy int `json:"quantitative_accuracy"` // 0-6
	SafetyRiskHandling   int `json:"safety_risk_handling"`  // 0-6

	Penalties []Modifier `json:"penalties"`
	Bonus     []Modifier `json:"bonus"`

	RawTotal   int        `json:"raw_total"`   // Before clamping to 0-100
	TotalScore int        `json:"total_score"` // 0-100
	Label      Label      `json:"label"`
	Confidence Confidence `json:"confidence"`

	CapApplied bool    `json:"cap_applied"`
	CapReason  *string `json:"cap_reason"` // null when no cap applied

	Signals []Signal `json:"signals"` // Transparent per-stage scoring data
}

// SubScoreSum returns the sum of the five sub-scores
func (b ScoreBreakdown) SubScoreSum() int {
	return b.EvidenceAlignment + b.CitationQuality + b.ScopeNuance + b.QuantitativeAccuracy + b.SafetyRiskHandling
}

// Modifier is one applied penalty or bonus
type Modifier struct {
	Name      string `json:"name"`
	Magnitude int    `json:"magnitude"` // Always positive; penalties subtract, bonuses add
	Reason    string `json:"reason"`
}

// Mode identifies which evaluation path produced a breakdown
type Mode string

const (
	ModeStaged   Mode = "staged"   // Rich per-study signals available
	ModeFallback Mode = "fallback" // Only legacy per-axis signals available
)

// Label is the qualitative verdict
type Label string

const (
	LabelTrue        Label = "True/Mostly True"
	LabelMixed       Label = "Mixed/Context"
	LabelUnsupported Label = "Unsupported/Misleading"
	LabelFalse       Label = "False/Harmful"
)

// Confidence in the label
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`           // Signal classification
	Severity    SignalSeverity         `json:"severity"`       // info, warning, critical
	Description string                 `json:"description"`    // Human-readable description
	Data        map[string]interface{} `json:"data,omitempty"` // Transparent scoring data (formulas, inputs)
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalMode                 SignalType = "mode"                  // Which evaluation path ran
	SignalEvidenceAlignment    SignalType = "evidence_alignment"    // Alignment x certainty
	SignalCitationQuality      SignalType = "citation_quality"      // Verifiability, hierarchy, transparency
	SignalScopeNuance          SignalType = "scope_nuance"          // PICO fidelity, generalization
	SignalQuantitativeAccuracy SignalType = "quantitative_accuracy" // Numeric claims vs effect sizes
	SignalSafetyRiskHandling   SignalType = "safety_risk_handling"  // Harm reporting completeness
	SignalCap                  SignalType = "cap"                   // Structural ceiling override
	SignalFallbackMapping      SignalType = "fallback_mapping"      // Legacy axes rescaled
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// Principles documents which core principles were applied
type Principles struct {
	Deterministic bool `json:"deterministic"` // Same payload, same breakdown
	Transparent   bool `json:"transparent"`   // All scoring explainable
	Offline       bool `json:"offline"`       // Scoring performs no network or model calls
}

// DefaultPrinciples returns the standard evidentia principles
func DefaultPrinciples() Principles {
	return Principles{
		Deterministic: true,
		Transparent:   true,
		Offline:       true,
	}
}
