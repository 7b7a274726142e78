package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/evidentia/internal/llm"
	"github.com/ppiankov/evidentia/internal/model"
)

type stubSearcher struct {
	studies []model.IncludedStudy
	err     error
	query   string
	max     int
}

func (s *stubSearcher) Search(ctx context.Context, query string, maxResults int) ([]model.IncludedStudy, error) {
	s.query = query
	s.max = maxResults
	return s.studies, s.err
}

type stubProvider struct {
	synthesis model.EvidenceSynthesis
	err       error
	available bool
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) IsAvailable(ctx context.Context) bool { return p.available }

func (p *stubProvider) Synthesize(ctx context.Context, req llm.SynthesisRequest) (*llm.SynthesisResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &llm.SynthesisResponse{Synthesis: p.synthesis, CitedPMIDs: []string{"111"}, Model: "stub-1", TokensUsed: 42}, nil
}

func strPtr(s string) *string { return &s }

func sampleStudies() []model.IncludedStudy {
	return []model.IncludedStudy{
		{PMID: strPtr("111"), Design: model.DesignRCT, Year: 2021, RetractionStatus: model.RetractionActive},
		{PMID: strPtr("222"), Design: model.DesignSystematicReview, Year: 2020, RetractionStatus: model.RetractionActive},
	}
}

func TestGather_WithSynthesis(t *testing.T) {
	searcher := &stubSearcher{studies: sampleStudies()}
	provider := &stubProvider{
		available: true,
		synthesis: model.EvidenceSynthesis{GRADECertainty: model.GRADEModerate, Alignment: model.AlignmentSupports},
	}
	synth := llm.NewSynthesizerWithProvider(provider, llm.Config{Model: "stub-1"})
	p := newTestPipeline(t, testConfig(), WithSearcher(searcher), WithSynthesizer(synth))

	result, err := p.Gather(context.Background(), GatherRequest{
		Claim: "Vitamin D supplementation reduces fractures",
		PICO:  model.PICO{Intervention: "vitamin D", Outcomes: []string{"fractures"}},
	})
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	if searcher.query != "(vitamin D) AND (fractures)" {
		t.Errorf("query = %q", searcher.query)
	}
	if searcher.max != 10 {
		t.Errorf("max results = %d, want config default 10", searcher.max)
	}
	if len(result.Payload.IncludedStudies) != 2 {
		t.Errorf("studies = %d, want 2", len(result.Payload.IncludedStudies))
	}
	if result.Payload.Synthesis == nil || result.Payload.Synthesis.Alignment != model.AlignmentSupports {
		t.Fatalf("Expected synthesis in payload, got %+v", result.Payload.Synthesis)
	}
	if result.Payload.Fallback != nil {
		t.Error("Expected no fallback scores when synthesis succeeded")
	}
	if result.Synthesis.Provider != "stub" {
		t.Errorf("provider = %q", result.Synthesis.Provider)
	}

	// The gathered payload scores in staged mode
	breakdown := p.scorer.Calculate(result.Payload)
	if breakdown.Mode != model.ModeStaged {
		t.Errorf("mode = %q, want staged", breakdown.Mode)
	}
}

func TestGather_NoProviderUsesHeuristics(t *testing.T) {
	searcher := &stubSearcher{studies: sampleStudies()}
	p := newTestPipeline(t, testConfig(), WithSearcher(searcher))

	result, err := p.Gather(context.Background(), GatherRequest{Claim: "Vitamin D reduces fractures", MaxResults: 3})
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	if searcher.max != 3 {
		t.Errorf("max results = %d, want 3", searcher.max)
	}
	if result.Payload.Synthesis != nil {
		t.Error("Expected no synthesis without a provider")
	}
	if result.Payload.Fallback == nil {
		t.Fatal("Expected heuristic fallback scores")
	}
	if !hasWarning(result.Warnings, "heuristic fallback") {
		t.Errorf("Expected heuristic fallback warning, got %v", result.Warnings)
	}
}

func TestGather_ProviderFailureDegrades(t *testing.T) {
	provider := &stubProvider{available: true, err: errors.New("rate limited")}
	synth := llm.NewSynthesizerWithProvider(provider, llm.Config{})
	p := newTestPipeline(t, testConfig(), WithSearcher(&stubSearcher{studies: sampleStudies()}), WithSynthesizer(synth))

	result, err := p.Gather(context.Background(), GatherRequest{Claim: "Vitamin D reduces fractures"})
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if result.Payload.Fallback == nil {
		t.Error("Expected fallback scores after provider failure")
	}
	if !hasWarning(result.Warnings, "rate limited") {
		t.Errorf("Expected provider error in warnings, got %v", result.Warnings)
	}
}

func TestGather_SearchFailureDegrades(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("eutils unavailable")}
	p := newTestPipeline(t, testConfig(), WithSearcher(searcher))

	result, err := p.Gather(context.Background(), GatherRequest{Claim: "Garlic lowers blood pressure", Query: "garlic AND hypertension"})
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if searcher.query != "garlic AND hypertension" {
		t.Errorf("Expected explicit query to be used, got %q", searcher.query)
	}
	if len(result.Payload.IncludedStudies) != 0 {
		t.Errorf("Expected no studies, got %d", len(result.Payload.IncludedStudies))
	}
	if !hasWarning(result.Warnings, "eutils unavailable") {
		t.Errorf("Expected search error in warnings, got %v", result.Warnings)
	}
}

func TestGather_SearchDisabled(t *testing.T) {
	p := newTestPipeline(t, testConfig())

	result, err := p.Gather(context.Background(), GatherRequest{Claim: "Garlic lowers blood pressure"})
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if !hasWarning(result.Warnings, "search disabled") {
		t.Errorf("Expected disabled search warning, got %v", result.Warnings)
	}
}

func TestGather_RequiresClaim(t *testing.T) {
	p := newTestPipeline(t, testConfig())

	if _, err := p.Gather(context.Background(), GatherRequest{Claim: "   "}); err == nil {
		t.Error("Expected error for empty claim")
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name  string
		claim string
		pico  model.PICO
		want  string
	}{
		{
			name:  "full PICO",
			claim: "ignored",
			pico:  model.PICO{Population: "older adults", Intervention: "vitamin D", Outcomes: []string{"fractures", "falls"}},
			want:  "(vitamin D) AND (fractures OR falls) AND (older adults)",
		},
		{
			name:  "intervention only",
			claim: "ignored",
			pico:  model.PICO{Intervention: "garlic"},
			want:  "(garlic)",
		},
		{
			name:  "claim words",
			claim: "Omega-3 reduces the risk of heart attacks by 30%",
			want:  "omega-3 AND risk AND heart AND attacks",
		},
		{
			name:  "duplicates dropped",
			claim: "Coffee coffee causes cancer",
			want:  "coffee AND cancer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildQuery(tt.claim, tt.pico); got != tt.want {
				t.Errorf("BuildQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
