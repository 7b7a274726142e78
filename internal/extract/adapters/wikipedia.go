package adapters

import (
	"strings"

	"github.com/ppiankov/evidentia/internal/extract"
	"github.com/ppiankov/evidentia/internal/model"
	"golang.org/x/net/html"
)

// WikipediaAdapter reads health articles on Wikipedia: the lead, the
// medically relevant sections, and the reference list.
type WikipediaAdapter struct {
	BaseAdapter
	claims    *extract.ClaimExtractor
	citations *extract.CitationExtractor
	sections  []string // Heading fragments worth scanning for claims
}

// NewWikipediaAdapter creates a new Wikipedia adapter
func NewWikipediaAdapter() *WikipediaAdapter {
	return &WikipediaAdapter{
		claims:    extract.NewClaimExtractor(),
		citations: extract.NewCitationExtractor(),
		sections: []string{
			"medical use", "health effect", "adverse effect", "side effect",
			"efficacy", "research", "nutrition",
		},
	}
}

// Name returns the adapter name
func (a *WikipediaAdapter) Name() string {
	return "wikipedia"
}

// CanHandle checks if this is a Wikipedia URL
func (a *WikipediaAdapter) CanHandle(rawURL string) bool {
	return strings.Contains(rawURL, "wikipedia.org")
}

// ExtractClaims extracts claims from the lead and the health sections
func (a *WikipediaAdapter) ExtractClaims(doc *html.Node, rawURL string) ([]extract.Claim, error) {
	content := a.content(doc)

	var claims []extract.Claim
	claims = append(claims, a.claims.MatchSentences(a.sentences(a.leadParagraphs(content)), "wikipedia:lead")...)

	headings := a.FindAll(content, func(n *html.Node) bool {
		if n.Type != html.ElementNode || (n.Data != "h2" && n.Data != "h3") {
			return false
		}
		text := strings.ToLower(a.Text(n))
		for _, s := range a.sections {
			if strings.Contains(text, s) {
				return true
			}
		}
		return false
	})

	for _, heading := range headings {
		var paragraphs []*html.Node
		for _, node := range a.sectionNodes(heading) {
			paragraphs = append(paragraphs, a.FindAll(node, isParagraph)...)
		}
		claims = append(claims, a.claims.MatchSentences(a.sentences(paragraphs), "wikipedia:section")...)
	}

	return extract.DedupeClaims(claims), nil
}

// ExtractCitations reads the reference list, falling back to the whole page
func (a *WikipediaAdapter) ExtractCitations(doc *html.Node, rawURL string) (model.CitationAudit, error) {
	lists := a.FindAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "ol" && a.HasClass(n, "references")
	})
	if len(lists) == 0 {
		return a.citations.ExtractNode(doc, rawURL)
	}

	audits := make([]model.CitationAudit, 0, len(lists))
	for _, list := range lists {
		audit, err := a.citations.ExtractNode(list, rawURL)
		if err != nil {
			return model.CitationAudit{}, err
		}
		audits = append(audits, audit)
	}

	return extract.Merge(audits...), nil
}

func (a *WikipediaAdapter) content(doc *html.Node) *html.Node {
	content := a.FindFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" &&
			(a.HasClass(n, "mw-parser-output") || a.Attr(n, "id") == "mw-content-text")
	})
	if content == nil {
		return doc
	}
	return content
}

// leadParagraphs collects paragraphs before the first h2, skipping infoboxes
func (a *WikipediaAdapter) leadParagraphs(content *html.Node) []*html.Node {
	var paragraphs []*html.Node

	inLead := true
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if !inLead {
			return
		}
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "h2":
				inLead = false
				return
			case n.Data == "table" && (a.HasClass(n, "infobox") || a.HasClass(n, "navbox")):
				return
			case n.Data == "p":
				paragraphs = append(paragraphs, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(content)
	return paragraphs
}

// sectionNodes returns the siblings after a heading up to the next heading.
// Newer skins wrap headings in div.mw-heading, so the wrapper is the anchor.
func (a *WikipediaAdapter) sectionNodes(heading *html.Node) []*html.Node {
	anchor := heading
	if p := heading.Parent; p != nil && p.Type == html.ElementNode && p.Data == "div" && a.HasClass(p, "mw-heading") {
		anchor = p
	}

	var nodes []*html.Node
	for sibling := anchor.NextSibling; sibling != nil; sibling = sibling.NextSibling {
		if isHeading(sibling) || (sibling.Type == html.ElementNode && a.HasClass(sibling, "mw-heading")) {
			break
		}
		nodes = append(nodes, sibling)
	}

	return nodes
}

func (a *WikipediaAdapter) sentences(paragraphs []*html.Node) []string {
	var sentences []string
	for _, p := range paragraphs {
		sentences = append(sentences, extract.SplitSentences(stripRefMarkers(a.Text(p)))...)
	}
	return sentences
}

func isParagraph(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "p"
}

func isHeading(n *html.Node) bool {
	return n.Type == html.ElementNode && (n.Data == "h2" || n.Data == "h3")
}

// stripRefMarkers removes inline "[12]" reference markers
func stripRefMarkers(text string) string {
	var buf strings.Builder
	for {
		start := strings.Index(text, "[")
		if start < 0 {
			break
		}
		end := strings.Index(text[start:], "]")
		if end < 0 {
			break
		}
		buf.WriteString(text[:start])
		text = text[start+end+1:]
	}
	buf.WriteString(text)
	return strings.Join(strings.Fields(buf.String()), " ")
}
