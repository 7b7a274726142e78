package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/evidentia/internal/model"
)

// Provider defines the interface for evidence synthesis providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Synthesize grades the body of evidence for a claim
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SynthesisRequest contains the input for evidence synthesis
type SynthesisRequest struct {
	// Claim is the normalized claim wording
	Claim string

	// PICO decomposition of the claim, if known
	PICO model.PICO

	// Studies is the STRICT allowlist of evidence the model may cite
	Studies []model.IncludedStudy

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SynthesisResponse contains the provider's graded synthesis
type SynthesisResponse struct {
	Synthesis model.EvidenceSynthesis

	// CitedPMIDs are the PMIDs the model cited (for verification)
	CitedPMIDs []string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible gateways)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictEvidence rejects syntheses citing PMIDs outside the study list
	StrictEvidence bool

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:       "", // Disabled by default
		Model:          "",
		Timeout:        60,
		StrictEvidence: true,
		MaxTokens:      1200,
	}
}

const systemPrompt = "You grade bodies of biomedical evidence using GRADE. You answer with a single JSON object and cite only the studies you are given."

// maxPromptStudies keeps prompts bounded for large search results
const maxPromptStudies = 25

// BuildPrompt constructs the default synthesis prompt with strict evidence mode
func BuildPrompt(req SynthesisRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Grade the evidence below for this claim. You judge how well the studies support the claim; you do not judge the claim from your own knowledge.

Claim: %s
`, req.Claim)

	if pico := formatPICO(req.PICO); pico != "" {
		fmt.Fprintf(&b, "PICO: %s\n", pico)
	}

	b.WriteString(`
CRITICAL RULES:
1. You MUST ONLY cite PMIDs from the study list below.
2. If the studies do not address the claim, answer "insufficient".
3. Retracted studies and studies under an expression of concern are not evidence.
4. Downgrade certainty for risk of bias, inconsistency, indirectness, imprecision and publication bias.

Studies:
`)
	b.WriteString(formatStudies(req.Studies))

	b.WriteString(`
Respond with JSON only:
{
  "GRADE_certainty": "high" | "moderate" | "low" | "very_low",
  "alignment_to_claim": "supports" | "partially_supports" | "neutral" | "contradicts" | "insufficient",
  "statement": "one or two sentences",
  "key_points": ["short points, including limitations"],
  "cited_pmids": ["PMIDs from the list that you relied on"]
}`)

	return b.String()
}

func formatPICO(p model.PICO) string {
	var parts []string
	if p.Population != "" {
		parts = append(parts, "population="+p.Population)
	}
	if p.Intervention != "" {
		parts = append(parts, "intervention="+p.Intervention)
	}
	if p.Comparator != "" {
		parts = append(parts, "comparator="+p.Comparator)
	}
	if len(p.Outcomes) > 0 {
		parts = append(parts, "outcomes="+strings.Join(p.Outcomes, ", "))
	}
	if p.Context != "" {
		parts = append(parts, "context="+p.Context)
	}
	return strings.Join(parts, "; ")
}

func formatStudies(studies []model.IncludedStudy) string {
	if len(studies) == 0 {
		return "(No studies found)\n"
	}

	var b strings.Builder
	for i, s := range studies {
		if i >= maxPromptStudies {
			fmt.Fprintf(&b, "... and %d more studies\n", len(studies)-maxPromptStudies)
			break
		}
		id := "no PMID"
		if s.PMID != nil && *s.PMID != "" {
			id = "PMID " + *s.PMID
		}
		fmt.Fprintf(&b, "- [%s] %s", id, s.Design)
		if s.Year > 0 {
			fmt.Fprintf(&b, ", %d", s.Year)
		}
		if s.RetractionStatus != "" && s.RetractionStatus != model.RetractionActive {
			fmt.Fprintf(&b, ", %s", s.RetractionStatus)
		}
		if s.Title != "" {
			fmt.Fprintf(&b, ": %s", s.Title)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// synthesisPayload is the JSON object providers are asked to return
type synthesisPayload struct {
	GRADECertainty string   `json:"GRADE_certainty"`
	Alignment      string   `json:"alignment_to_claim"`
	Statement      string   `json:"statement"`
	KeyPoints      []string `json:"key_points"`
	CitedPMIDs     []string `json:"cited_pmids"`
}

var (
	gradeValues = map[string]bool{
		string(model.GRADEHigh): true, string(model.GRADEModerate): true,
		string(model.GRADELow): true, string(model.GRADEVeryLow): true,
	}
	alignmentValues = map[string]bool{
		string(model.AlignmentSupports): true, string(model.AlignmentPartiallySupports): true,
		string(model.AlignmentNeutral): true, string(model.AlignmentContradicts): true,
		string(model.AlignmentInsufficient): true,
	}

	pmidPattern = regexp.MustCompile(`(?i)\bPMID[:\s]*(\d+)`)
)

// ParseSynthesis decodes a provider reply into an evidence synthesis.
// Code fences and text around the JSON object are tolerated; enum values are normalized.
func ParseSynthesis(content string) (model.EvidenceSynthesis, []string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return model.EvidenceSynthesis{}, nil, fmt.Errorf("no JSON object in response")
	}

	var payload synthesisPayload
	if err := json.Unmarshal([]byte(content[start:end+1]), &payload); err != nil {
		return model.EvidenceSynthesis{}, nil, fmt.Errorf("decode synthesis: %w", err)
	}

	grade := normalizeEnum(payload.GRADECertainty)
	if !gradeValues[grade] {
		return model.EvidenceSynthesis{}, nil, fmt.Errorf("invalid GRADE_certainty %q", payload.GRADECertainty)
	}
	alignment := normalizeEnum(payload.Alignment)
	if !alignmentValues[alignment] {
		return model.EvidenceSynthesis{}, nil, fmt.Errorf("invalid alignment_to_claim %q", payload.Alignment)
	}

	cited := make([]string, 0, len(payload.CitedPMIDs))
	seen := make(map[string]bool)
	addPMID := func(pmid string) {
		pmid = strings.TrimSpace(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(pmid)), "PMID:"))
		if pmid != "" && !seen[pmid] {
			seen[pmid] = true
			cited = append(cited, pmid)
		}
	}
	for _, pmid := range payload.CitedPMIDs {
		addPMID(pmid)
	}
	for _, text := range append([]string{payload.Statement}, payload.KeyPoints...) {
		for _, m := range pmidPattern.FindAllStringSubmatch(text, -1) {
			addPMID(m[1])
		}
	}

	return model.EvidenceSynthesis{
		GRADECertainty: model.GRADECertainty(grade),
		Alignment:      model.Alignment(alignment),
		Statement:      strings.TrimSpace(payload.Statement),
		KeyPoints:      payload.KeyPoints,
	}, cited, nil
}

func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}

// checkCitations enforces strict evidence mode
func checkCitations(cited []string, studies []model.IncludedStudy) error {
	allowed := make(map[string]bool, len(studies))
	for _, s := range studies {
		if s.PMID != nil {
			allowed[*s.PMID] = true
		}
	}
	for _, pmid := range cited {
		if !allowed[pmid] {
			return fmt.Errorf("CITATION LEAK: synthesis cited PMID %s outside the study list", pmid)
		}
	}
	return nil
}

// finish parses a provider reply and applies strict evidence mode
func finish(config Config, req SynthesisRequest, content, modelName string, tokens int) (*SynthesisResponse, error) {
	synthesis, cited, err := ParseSynthesis(content)
	if err != nil {
		return nil, err
	}

	if config.StrictEvidence {
		if err := checkCitations(cited, req.Studies); err != nil {
			return nil, err
		}
	}

	return &SynthesisResponse{
		Synthesis:  synthesis,
		CitedPMIDs: cited,
		Model:      modelName,
		TokensUsed: tokens,
	}, nil
}

func resolveModel(req SynthesisRequest, config Config, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if config.Model != "" {
		return config.Model
	}
	return fallback
}

func resolveMaxTokens(req SynthesisRequest, config Config) int {
	if req.MaxTokens != 0 {
		return req.MaxTokens
	}
	if config.MaxTokens != 0 {
		return config.MaxTokens
	}
	return 1200
}
