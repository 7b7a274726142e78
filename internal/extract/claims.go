package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// Claim is a candidate health claim found in page text
type Claim struct {
	Text      string `json:"text"`
	Heuristic string `json:"heuristic"` // keyword:<term> or <adapter>:<term>
	Sentence  int    `json:"sentence"`  // Index of the sentence within the scanned text
}

// ClaimExtractor picks sentences that read like health or efficacy claims
type ClaimExtractor struct {
	keywords []string
}

// NewClaimExtractor creates a new claim extractor
func NewClaimExtractor() *ClaimExtractor {
	return &ClaimExtractor{
		keywords: []string{
			"reduces", "reduce", "lowers", "lower the risk", "prevents", "prevent",
			"cures", "treats", "causes", "linked to", "associated with",
			"increases the risk", "risk of", "effective", "improves", "boosts",
			"protects against", "study found", "studies show", "research shows",
			"%",
		},
	}
}

// Keywords returns the claim keywords in match order
func (e *ClaimExtractor) Keywords() []string {
	return e.keywords
}

// Extract extracts claim candidates from HTML content
func (e *ClaimExtractor) Extract(htmlContent string) ([]Claim, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}
	return e.ExtractNode(doc), nil
}

// ExtractNode extracts claim candidates from a parsed document
func (e *ClaimExtractor) ExtractNode(doc *html.Node) []Claim {
	return e.ExtractText(extractVisibleText(doc))
}

// ExtractText extracts claim candidates from plain text
func (e *ClaimExtractor) ExtractText(text string) []Claim {
	return e.match(SplitSentences(text), "keyword:")
}

func (e *ClaimExtractor) match(sentences []string, prefix string) []Claim {
	var claims []Claim
	for i, sentence := range sentences {
		lower := strings.ToLower(sentence)
		for _, keyword := range e.keywords {
			if strings.Contains(lower, keyword) {
				claims = append(claims, Claim{
					Text:      strings.TrimSpace(sentence),
					Heuristic: prefix + keyword,
					Sentence:  i,
				})
				break // Only match once per sentence
			}
		}
	}

	return DedupeClaims(claims)
}

// MatchSentences tags pre-split sentences, labelling matches with the given source
func (e *ClaimExtractor) MatchSentences(sentences []string, source string) []Claim {
	return e.match(sentences, source+":")
}

// VisibleText returns the text nodes of a document, skipping scripts and styles
func VisibleText(n *html.Node) string {
	return extractVisibleText(n)
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

// SplitSentences splits text into sentences of 30 to 500 bytes (simple heuristic)
func SplitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		if len(sentence) >= 30 && len(sentence) <= 500 {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	for i, r := range text {
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			// Look ahead to avoid splitting on decimals and abbreviations like "e.g."
			if i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\t') {
				flush()
			}
		}
	}

	if current.Len() > 0 {
		flush()
	}

	return sentences
}

// DedupeClaims removes duplicate claims, keeping the first occurrence
func DedupeClaims(claims []Claim) []Claim {
	seen := make(map[string]bool)
	var unique []Claim

	for _, claim := range claims {
		key := strings.ToLower(strings.TrimSpace(claim.Text))
		if key != "" && !seen[key] {
			seen[key] = true
			unique = append(unique, claim)
		}
	}

	return unique
}
