package llm

import (
	"context"
	"fmt"

	"github.com/ppiankov/evidentia/internal/model"
)

// Synthesizer wraps an optional provider and degrades instead of failing
type Synthesizer struct {
	provider Provider
	config   Config
}

// Synthesis is the outcome of one synthesis attempt.
// Result is nil when the provider is disabled, unavailable or failed; Warnings say why.
type Synthesis struct {
	Enabled        bool
	Provider       string
	Model          string
	StrictEvidence bool
	Result         *model.EvidenceSynthesis
	CitedPMIDs     []string
	Warnings       []string
}

// NewSynthesizer creates a synthesizer; an empty provider name disables it
func NewSynthesizer(config Config) (*Synthesizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Synthesizer{provider: provider, config: config}, nil
}

// NewSynthesizerWithProvider wraps an existing provider
func NewSynthesizerWithProvider(provider Provider, config Config) *Synthesizer {
	return &Synthesizer{provider: provider, config: config}
}

// IsEnabled reports whether a provider is configured
func (s *Synthesizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the configured provider name, or "" when disabled
func (s *Synthesizer) ProviderName() string {
	if !s.IsEnabled() {
		return ""
	}
	return s.provider.Name()
}

// Synthesize grades the studies for a claim. Provider failures are reported as
// warnings so callers can fall back to heuristic axes.
func (s *Synthesizer) Synthesize(ctx context.Context, claim string, pico model.PICO, studies []model.IncludedStudy) (*Synthesis, error) {
	if !s.IsEnabled() {
		return &Synthesis{Enabled: false}, nil
	}

	out := &Synthesis{
		Enabled:        true,
		Provider:       s.provider.Name(),
		Model:          s.config.Model,
		StrictEvidence: s.config.StrictEvidence,
	}

	if !s.provider.IsAvailable(ctx) {
		out.Enabled = false
		out.Warnings = append(out.Warnings, fmt.Sprintf("Provider %s is not available; synthesis skipped", out.Provider))
		return out, nil
	}

	resp, err := s.provider.Synthesize(ctx, SynthesisRequest{
		Claim:     claim,
		PICO:      pico,
		Studies:   studies,
		Model:     s.config.Model,
		MaxTokens: s.config.MaxTokens,
	})
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("Synthesis failed: %v", err))
		return out, nil
	}

	result := resp.Synthesis
	out.Result = &result
	out.CitedPMIDs = resp.CitedPMIDs
	if resp.Model != "" {
		out.Model = resp.Model
	}
	out.Warnings = append(out.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	if out.StrictEvidence {
		out.Warnings = append(out.Warnings, fmt.Sprintf("Verified %d citations against %d studies", len(resp.CitedPMIDs), len(studies)))
	}

	return out, nil
}
