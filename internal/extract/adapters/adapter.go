package adapters

import (
	"slices"
	"strings"

	"github.com/ppiankov/evidentia/internal/extract"
	"github.com/ppiankov/evidentia/internal/model"
	"golang.org/x/net/html"
)

// Adapter pulls claim candidates and citations out of one kind of page
type Adapter interface {
	Name() string

	// CanHandle reports whether pages at url have the layout this adapter knows
	CanHandle(url string) bool

	ExtractClaims(doc *html.Node, url string) ([]extract.Claim, error)
	ExtractCitations(doc *html.Node, url string) (model.CitationAudit, error)
}

// Registry picks the adapter for a page URL. Site adapters are tried in
// registration order; the generic adapter takes everything else.
type Registry struct {
	sites    []Adapter
	fallback Adapter
}

// NewRegistry returns a registry with the PubMed and Wikipedia adapters
func NewRegistry() *Registry {
	r := &Registry{fallback: NewGenericAdapter()}
	r.Register(NewPubMedAdapter())
	r.Register(NewWikipediaAdapter())
	return r
}

// Register adds a site adapter after the existing ones
func (r *Registry) Register(a Adapter) {
	r.sites = append(r.sites, a)
}

// FindAdapter returns the adapter for url
func (r *Registry) FindAdapter(url string) Adapter {
	if i := slices.IndexFunc(r.sites, func(a Adapter) bool { return a.CanHandle(url) }); i >= 0 {
		return r.sites[i]
	}
	return r.fallback
}

// BaseAdapter holds DOM helpers shared by the adapters
type BaseAdapter struct{}

// Text returns the visible text under n with whitespace collapsed
func (BaseAdapter) Text(n *html.Node) string {
	var words []string
	walk(n, func(node *html.Node) bool {
		if node.Type == html.TextNode {
			words = append(words, strings.Fields(node.Data)...)
		}
		return false
	})
	return strings.Join(words, " ")
}

// HasClass reports whether the element n carries class
func (BaseAdapter) HasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}

// Attr returns the value of attribute key, or ""
func (BaseAdapter) Attr(n *html.Node, key string) string {
	return attr(n, key)
}

// FindAll returns every node under n, n included, that matches
func (BaseAdapter) FindAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node
	walk(n, func(node *html.Node) bool {
		if match(node) {
			found = append(found, node)
		}
		return false
	})
	return found
}

// FindFirst returns the first matching node in document order, or nil
func (BaseAdapter) FindFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(node *html.Node) bool {
		if match(node) {
			found = node
			return true
		}
		return false
	})
	return found
}

// walk visits n and its descendants depth first until visit returns true
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if visit(n) {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if walk(c, visit) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
