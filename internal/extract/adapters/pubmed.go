package adapters

import (
	"regexp"
	"strings"

	"github.com/ppiankov/evidentia/internal/extract"
	"github.com/ppiankov/evidentia/internal/model"
	"golang.org/x/net/html"
)

var pubmedPathPattern = regexp.MustCompile(`pubmed\.ncbi\.nlm\.nih\.gov/(\d+)`)

// PubMedAdapter reads PubMed article pages
type PubMedAdapter struct {
	BaseAdapter
	claims    *extract.ClaimExtractor
	citations *extract.CitationExtractor
}

// NewPubMedAdapter creates a new PubMed adapter
func NewPubMedAdapter() *PubMedAdapter {
	return &PubMedAdapter{
		claims:    extract.NewClaimExtractor(),
		citations: extract.NewCitationExtractor(),
	}
}

// Name returns the adapter name
func (a *PubMedAdapter) Name() string {
	return "pubmed"
}

// CanHandle checks if this is a PubMed article URL
func (a *PubMedAdapter) CanHandle(rawURL string) bool {
	return pubmedPathPattern.MatchString(rawURL)
}

// ExtractClaims reads the abstract, preferring its conclusions paragraph
func (a *PubMedAdapter) ExtractClaims(doc *html.Node, rawURL string) ([]extract.Claim, error) {
	abstract := a.FindFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && a.HasClass(n, "abstract-content")
	})
	if abstract == nil {
		return nil, nil
	}

	var conclusions, all []string
	for _, p := range a.FindAll(abstract, isParagraph) {
		sentences := extract.SplitSentences(a.Text(p))
		all = append(all, sentences...)

		title := a.FindFirst(p, func(n *html.Node) bool {
			return n.Type == html.ElementNode && a.HasClass(n, "sub-title")
		})
		if title != nil && strings.Contains(strings.ToLower(a.Text(title)), "conclusion") {
			conclusions = append(conclusions, sentences...)
		}
	}

	if claims := a.claims.MatchSentences(conclusions, "pubmed:conclusion"); len(claims) > 0 {
		return claims, nil
	}
	return a.claims.MatchSentences(all, "pubmed:abstract"), nil
}

// ExtractCitations returns the article's own identifiers plus its reference list
func (a *PubMedAdapter) ExtractCitations(doc *html.Node, rawURL string) (model.CitationAudit, error) {
	var own []model.CitationMention

	pmid := ""
	if current := a.FindFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && a.HasClass(n, "current-id")
	}); current != nil {
		pmid = strings.TrimSpace(a.Text(current))
	}
	if pmid == "" {
		if m := pubmedPathPattern.FindStringSubmatch(rawURL); m != nil {
			pmid = m[1]
		}
	}
	if pmid != "" {
		own = append(own, model.CitationMention{
			Text: "PMID " + pmid, Type: model.MentionPMID, Value: pmid, Certainty: model.CertaintyHigh,
		})
	}

	for _, link := range a.FindAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "a" && a.HasClass(n, "id-link")
	}) {
		href := a.Attr(link, "href")
		if strings.Contains(href, "doi.org/") {
			doi := strings.TrimSpace(a.Text(link))
			own = append(own, model.CitationMention{
				Text: href, Type: model.MentionDOI, Value: doi, Certainty: model.CertaintyHigh,
			})
		}
	}

	audits := []model.CitationAudit{{Mentions: own}}

	if refs := a.FindFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "ol" && a.HasClass(n, "references-list")
	}); refs != nil {
		audit, err := a.citations.ExtractNode(refs, rawURL)
		if err != nil {
			return model.CitationAudit{}, err
		}
		audits = append(audits, audit)
	}

	return extract.Merge(audits...), nil
}
