package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/evidentia/internal/llm"
	"github.com/ppiankov/evidentia/internal/model"
	"github.com/ppiankov/evidentia/internal/pubmed"
)

// LiteratureSearcher finds studies for a query
type LiteratureSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]model.IncludedStudy, error)
}

// WithSearcher replaces the PubMed client built from configuration; nil disables search
func WithSearcher(s LiteratureSearcher) Option {
	return func(p *Pipeline) {
		p.searcher = s
		p.searcherSet = true
	}
}

// WithSynthesizer replaces the synthesizer built from configuration
func WithSynthesizer(s *llm.Synthesizer) Option {
	return func(p *Pipeline) {
		p.synth = s
		p.synthSet = true
	}
}

// GatherRequest describes the claim to collect evidence for
type GatherRequest struct {
	Claim       string // Normalized claim wording (required)
	ClaimText   string // Original wording, if different
	PICO        model.PICO
	DomainTags  []string
	Query       string // Overrides the query built from the claim
	MaxResults  int    // Defaults to pubmed.max_results
	EvaluatedAt *time.Time
}

// GatherResult is a schema-valid payload plus what happened while building it
type GatherResult struct {
	Payload   *model.EvaluationInput `json:"payload"`
	Query     string                 `json:"query"`
	Synthesis *llm.Synthesis         `json:"-"`
	Warnings  []string               `json:"warnings,omitempty"`
}

// Gather searches the literature, asks the synthesis provider to grade it and
// assembles an evaluation payload. Search and synthesis failures degrade to
// warnings: no studies, or a fallback payload scored by HeuristicAxes.
func (p *Pipeline) Gather(ctx context.Context, req GatherRequest) (*GatherResult, error) {
	claim := strings.TrimSpace(req.Claim)
	if claim == "" {
		return nil, errors.New("claim is required")
	}

	result := &GatherResult{Query: strings.TrimSpace(req.Query)}
	if result.Query == "" {
		result.Query = BuildQuery(claim, req.PICO)
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = p.config.PubMed.MaxResults
	}

	studies := []model.IncludedStudy{}
	if p.searcher == nil {
		result.Warnings = append(result.Warnings, "Literature search disabled; no studies collected")
	} else {
		found, err := p.searcher.Search(ctx, result.Query, maxResults)
		if err != nil {
			p.logger.Warn("literature search failed", "query", result.Query, "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("Literature search failed: %v", err))
		} else {
			studies = found
		}
	}

	payload := &model.EvaluationInput{
		NormalizedClaim: claim,
		ClaimText:       strings.TrimSpace(req.ClaimText),
		DomainTags:      req.DomainTags,
		PICO:            req.PICO,
		IncludedStudies: studies,
		EvaluatedAt:     req.EvaluatedAt,
	}

	synthesis, err := p.synth.Synthesize(ctx, claim, req.PICO, studies)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	result.Synthesis = synthesis
	result.Warnings = append(result.Warnings, synthesis.Warnings...)

	if synthesis.Result != nil {
		payload.Synthesis = synthesis.Result
	} else {
		axes := HeuristicAxes(payload.Text(), req.PICO, studies)
		payload.Fallback = &axes
		if !synthesis.Enabled {
			result.Warnings = append(result.Warnings, "No synthesis provider; payload uses heuristic fallback scores")
		}
	}

	if err := p.validator.Check(payload); err != nil {
		return nil, fmt.Errorf("gathered payload: %w", err)
	}

	result.Payload = payload
	return result, nil
}

var queryStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true, "this": true, "are": true,
	"was": true, "were": true, "has": true, "have": true, "your": true, "you": true, "can": true,
	"does": true, "not": true, "from": true, "into": true, "than": true, "more": true, "less": true,
	"its": true, "their": true, "will": true, "may": true, "might": true, "could": true, "about": true,
	// Claim verbs carry the direction, not the topic
	"reduces": true, "reduce": true, "increases": true, "increase": true, "lowers": true, "lower": true,
	"improves": true, "improve": true, "helps": true, "help": true, "prevents": true, "prevent": true,
	"causes": true, "cause": true, "cures": true, "cure": true, "treats": true, "boosts": true,
}

const maxQueryTerms = 8

// BuildQuery derives a PubMed query: intervention AND outcomes when the PICO
// names them, otherwise the claim's content words joined with AND
func BuildQuery(claim string, pico model.PICO) string {
	if intervention := strings.TrimSpace(pico.Intervention); intervention != "" {
		parts := []string{"(" + intervention + ")"}

		var outcomes []string
		for _, o := range pico.Outcomes {
			if o = strings.TrimSpace(o); o != "" {
				outcomes = append(outcomes, o)
			}
		}
		if len(outcomes) > 0 {
			parts = append(parts, "("+strings.Join(outcomes, " OR ")+")")
		}
		if population := strings.TrimSpace(pico.Population); population != "" {
			parts = append(parts, "("+population+")")
		}
		return strings.Join(parts, " AND ")
	}

	var terms []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(normalizeWords(claim)) {
		w = strings.Trim(w, "'-")
		if len(w) < 3 || queryStopwords[w] || seen[w] || strings.HasSuffix(w, "%") {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
		if len(terms) == maxQueryTerms {
			break
		}
	}
	return strings.Join(terms, " AND ")
}

// newSearcher builds the PubMed client from configuration, or nil when search is disabled
func (p *Pipeline) newSearcher() LiteratureSearcher {
	cfg := p.config.PubMed
	if !cfg.Enabled {
		return nil
	}
	return pubmed.NewClient(pubmed.Options{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Tool:       cfg.Tool,
		Email:      cfg.Email,
		UserAgent:  p.config.HTTP.UserAgent,
		Timeout:    p.config.HTTP.Timeout,
		HTTPProxy:  p.config.HTTP.HTTPProxy,
		HTTPSProxy: p.config.HTTP.HTTPSProxy,
		NoProxy:    p.config.HTTP.NoProxy,
		Limiter:    p.limiter,
		Cache:      p.cache,
		CacheTTL:   p.config.Cache.DiskTTL,
		Logger:     p.logger,
	})
}

// newSynthesizer builds the synthesizer from configuration. A misconfigured
// provider is logged and synthesis disabled.
func (p *Pipeline) newSynthesizer() *llm.Synthesizer {
	synth, err := llm.NewSynthesizer(llm.ConfigFromModel(p.config.LLM, p.config.HTTP))
	if err != nil {
		p.logger.Warn("failed to initialize synthesis provider; using heuristic fallback", "provider", p.config.LLM.Provider, "error", err)
		return nil
	}
	return synth
}
