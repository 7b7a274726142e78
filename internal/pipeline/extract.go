package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/evidentia/internal/extract"
	"github.com/ppiankov/evidentia/internal/model"
)

// ExtractResult holds claim candidates and citations found in a page or text
type ExtractResult struct {
	URL       string              `json:"url,omitempty"`
	Subject   string              `json:"subject,omitempty"`
	Adapter   string              `json:"adapter"`
	Claims    []extract.Claim     `json:"claims"`
	Citations model.CitationAudit `json:"citations"`
}

// ExtractURL fetches a page and runs the matching source adapter over it.
// Citations are resolved when link resolution is enabled.
func (p *Pipeline) ExtractURL(ctx context.Context, rawURL string) (*ExtractResult, error) {
	fetched, err := p.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(fetched.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	adapter := p.adapters.FindAdapter(fetched.FinalURL)
	p.logger.Debug("extracting from page", "url", fetched.FinalURL, "adapter", adapter.Name())

	claims, err := adapter.ExtractClaims(doc, fetched.FinalURL)
	if err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}
	audit, err := adapter.ExtractCitations(doc, fetched.FinalURL)
	if err != nil {
		return nil, fmt.Errorf("extract citations: %w", err)
	}

	return &ExtractResult{
		URL:       fetched.FinalURL,
		Subject:   fetched.Subject,
		Adapter:   adapter.Name(),
		Claims:    nonNilClaims(extract.DedupeClaims(claims)),
		Citations: p.resolveAudit(ctx, audit),
	}, nil
}

// ExtractText finds claim candidates and citations in plain text
func (p *Pipeline) ExtractText(ctx context.Context, text string) *ExtractResult {
	return &ExtractResult{
		Adapter:   "text",
		Claims:    nonNilClaims(p.claims.ExtractText(text)),
		Citations: p.resolveAudit(ctx, p.citations.Extract(text)),
	}
}

func (p *Pipeline) resolveAudit(ctx context.Context, audit model.CitationAudit) model.CitationAudit {
	if p.resolver == nil || len(audit.Mentions) == 0 {
		return audit
	}
	resolved, _ := p.resolver.Resolve(ctx, audit)
	return resolved
}

func nonNilClaims(claims []extract.Claim) []extract.Claim {
	if claims == nil {
		return []extract.Claim{}
	}
	return claims
}
