package extract

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/evidentia/internal/model"
	"golang.org/x/net/html"
)

var (
	pmidPattern      = regexp.MustCompile(`(?i)\bPMID[:\s#]*(\d{1,9})\b`)
	pubmedURLPattern = regexp.MustCompile(`(?i)pubmed\.ncbi\.nlm\.nih\.gov/(\d{1,9})`)
	doiPattern       = regexp.MustCompile(`\b10\.\d{4,9}/[^\s"<>]+`)
	urlPattern       = regexp.MustCompile(`https?://[^\s)\]"<>]+`)
	etAlPattern      = regexp.MustCompile(`\b(\p{Lu}[\p{L}'\-]+)\s+et\s+al\.?,?\s*\(?((?:19|20)\d{2})[a-z]?\)?`)
	parenPattern     = regexp.MustCompile(`\((\p{Lu}[\p{L}'\-]+)(?:\s+(?:and|&)\s+\p{Lu}[\p{L}'\-]+)?,?\s+((?:19|20)\d{2})[a-z]?\)`)
)

// CitationExtractor finds citation-like references in claim text
type CitationExtractor struct {
	journals map[string]*regexp.Regexp // Canonical title -> pattern over its common forms
}

// NewCitationExtractor creates a citation extractor with the built-in journal list
func NewCitationExtractor() *CitationExtractor {
	forms := map[string][]string{
		"New England Journal of Medicine":         {"New England Journal of Medicine", "NEJM", "N Engl J Med"},
		"Lancet":                                  {"The Lancet", "Lancet"},
		"JAMA":                                    {"JAMA"},
		"BMJ":                                     {"BMJ", "British Medical Journal"},
		"Cochrane Database of Systematic Reviews": {"Cochrane Database of Systematic Reviews", "Cochrane Review", "Cochrane"},
		"Nature":                                  {"Nature"},
		"Science":                                 {"Science"},
		"Annals of Internal Medicine":             {"Annals of Internal Medicine", "Ann Intern Med"},
		"PLOS Medicine":                           {"PLOS Medicine", "PLoS Med"},
		"Circulation":                             {"Circulation"},
		"Pediatrics":                              {"Pediatrics"},
	}

	journals := make(map[string]*regexp.Regexp, len(forms))
	for canonical, names := range forms {
		quoted := make([]string, len(names))
		for i, n := range names {
			quoted[i] = regexp.QuoteMeta(n)
		}
		journals[canonical] = regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}

	return &CitationExtractor{journals: journals}
}

// located is a mention with its offset in the scanned text
type located struct {
	pos     int
	mention model.CitationMention
}

// Extract builds a citation audit from plain text.
// Mentions are deduplicated by type and value, in order of first appearance.
func (e *CitationExtractor) Extract(text string) model.CitationAudit {
	var found []located

	for _, m := range pmidPattern.FindAllStringSubmatchIndex(text, -1) {
		found = append(found, located{m[0], model.CitationMention{
			Text: text[m[0]:m[1]], Type: model.MentionPMID, Value: text[m[2]:m[3]], Certainty: model.CertaintyHigh,
		}})
	}

	for _, m := range urlPattern.FindAllStringIndex(text, -1) {
		raw := strings.TrimRight(text[m[0]:m[1]], ".,;:!?")
		found = append(found, located{m[0], classifyURL(raw)})
	}

	for _, m := range doiPattern.FindAllStringIndex(text, -1) {
		raw := trimDOI(text[m[0]:m[1]])
		found = append(found, located{m[0], model.CitationMention{
			Text: raw, Type: model.MentionDOI, Value: raw, Certainty: model.CertaintyHigh,
		}})
	}

	for _, pattern := range []*regexp.Regexp{etAlPattern, parenPattern} {
		for _, m := range pattern.FindAllStringSubmatchIndex(text, -1) {
			found = append(found, located{m[0], model.CitationMention{
				Text:      text[m[0]:m[1]],
				Type:      model.MentionAuthorYear,
				Value:     text[m[2]:m[3]] + " " + text[m[4]:m[5]],
				Certainty: model.CertaintyMedium,
			}})
		}
	}

	for canonical, pattern := range e.journals {
		if m := pattern.FindStringIndex(text); m != nil {
			found = append(found, located{m[0], model.CitationMention{
				Text: text[m[0]:m[1]], Type: model.MentionJournalTitle, Value: canonical, Certainty: model.CertaintyLow,
			}})
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].pos != found[j].pos {
			return found[i].pos < found[j].pos
		}
		return found[i].mention.Type < found[j].mention.Type
	})

	mentions := make([]model.CitationMention, 0, len(found))
	for _, f := range found {
		mentions = append(mentions, f.mention)
	}

	return model.CitationAudit{Mentions: dedupeMentions(mentions)}
}

// ExtractHTML builds a citation audit from visible text and anchor targets.
// Relative links resolve against sourceURL when it is set.
func (e *CitationExtractor) ExtractHTML(htmlContent string, sourceURL string) (model.CitationAudit, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return model.CitationAudit{}, err
	}
	return e.ExtractNode(doc, sourceURL)
}

// ExtractNode builds a citation audit from a parsed document or subtree
func (e *CitationExtractor) ExtractNode(doc *html.Node, sourceURL string) (model.CitationAudit, error) {
	var base *url.URL
	if sourceURL != "" {
		var err error
		if base, err = url.Parse(sourceURL); err != nil {
			return model.CitationAudit{}, err
		}
	}

	audit := e.Extract(extractVisibleText(doc))

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				if link := resolveURL(base, strings.TrimSpace(attr.Val)); link != "" {
					audit.Mentions = append(audit.Mentions, classifyURL(link))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	audit.Mentions = dedupeMentions(audit.Mentions)
	return audit, nil
}

// Merge appends the mentions of other audits, keeping the first per (type, value)
func Merge(audits ...model.CitationAudit) model.CitationAudit {
	var mentions []model.CitationMention
	for _, a := range audits {
		mentions = append(mentions, a.Mentions...)
	}
	return model.CitationAudit{Mentions: dedupeMentions(mentions)}
}

// classifyURL turns a link into a PMID or DOI mention when it points at one
func classifyURL(raw string) model.CitationMention {
	if m := pubmedURLPattern.FindStringSubmatch(raw); m != nil {
		return model.CitationMention{Text: raw, Type: model.MentionPMID, Value: m[1], Certainty: model.CertaintyHigh}
	}
	if doi := doiPattern.FindString(raw); doi != "" && strings.Contains(strings.ToLower(raw), "doi.org/") {
		doi = trimDOI(doi)
		if unescaped, err := url.PathUnescape(doi); err == nil {
			doi = unescaped
		}
		return model.CitationMention{Text: raw, Type: model.MentionDOI, Value: doi, Certainty: model.CertaintyHigh}
	}
	return model.CitationMention{Text: raw, Type: model.MentionURL, Value: raw, Certainty: model.CertaintyMedium}
}

func trimDOI(doi string) string {
	return strings.TrimRight(doi, ".,;:!?)]'")
}

// resolveURL resolves a link against base, keeping only http(s) targets
func resolveURL(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	if strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.String()
}

// dedupeMentions keeps the first mention per (type, value)
func dedupeMentions(mentions []model.CitationMention) []model.CitationMention {
	seen := make(map[string]bool)
	unique := make([]model.CitationMention, 0, len(mentions))

	for _, m := range mentions {
		key := string(m.Type) + "|" + strings.ToLower(m.Value)
		if !seen[key] {
			seen[key] = true
			unique = append(unique, m)
		}
	}

	return unique
}
