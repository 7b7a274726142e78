package adapters

import (
	"github.com/ppiankov/evidentia/internal/extract"
	"github.com/ppiankov/evidentia/internal/model"
	"golang.org/x/net/html"
)

// GenericAdapter is the fallback adapter for unknown sites
type GenericAdapter struct {
	BaseAdapter
	claims    *extract.ClaimExtractor
	citations *extract.CitationExtractor
}

// NewGenericAdapter creates a new generic adapter
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{
		claims:    extract.NewClaimExtractor(),
		citations: extract.NewCitationExtractor(),
	}
}

// Name returns the adapter name
func (a *GenericAdapter) Name() string {
	return "generic"
}

// CanHandle always returns true (fallback adapter)
func (a *GenericAdapter) CanHandle(url string) bool {
	return true
}

// ExtractClaims scans all visible text
func (a *GenericAdapter) ExtractClaims(doc *html.Node, url string) ([]extract.Claim, error) {
	return a.claims.ExtractNode(doc), nil
}

// ExtractCitations scans visible text and every anchor
func (a *GenericAdapter) ExtractCitations(doc *html.Node, url string) (model.CitationAudit, error) {
	return a.citations.ExtractNode(doc, url)
}
