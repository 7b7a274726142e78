package pubmed

import (
	"encoding/xml"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/evidentia/internal/model"
)

type articleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation medlineCitation `xml:"MedlineCitation"`
	Data     pubmedData      `xml:"PubmedData"`
}

type medlineCitation struct {
	PMID     string              `xml:"PMID"`
	Article  article             `xml:"Article"`
	Mesh     []string            `xml:"MeshHeadingList>MeshHeading>DescriptorName"`
	Comments []commentCorrection `xml:"CommentsCorrectionsList>CommentsCorrections"`
}

type article struct {
	Title     markup      `xml:"ArticleTitle"`
	Journal   journal     `xml:"Journal"`
	Authors   []author    `xml:"AuthorList>Author"`
	PubTypes  []string    `xml:"PublicationTypeList>PublicationType"`
	Locations []elocation `xml:"ELocationID"`
	Abstract  []markup    `xml:"Abstract>AbstractText"`
}

type markup struct {
	Inner string `xml:",innerxml"`
}

type journal struct {
	Title       string `xml:"Title"`
	Year        string `xml:"JournalIssue>PubDate>Year"`
	MedlineDate string `xml:"JournalIssue>PubDate>MedlineDate"`
}

type author struct {
	LastName       string `xml:"LastName"`
	CollectiveName string `xml:"CollectiveName"`
}

type elocation struct {
	Type  string `xml:"EIdType,attr"`
	Valid string `xml:"ValidYN,attr"`
	Value string `xml:",chardata"`
}

type commentCorrection struct {
	RefType string `xml:"RefType,attr"`
}

type pubmedData struct {
	ArticleIDs []articleID `xml:"ArticleIdList>ArticleId"`
}

type articleID struct {
	Type  string `xml:"IdType,attr"`
	Value string `xml:",chardata"`
}

var (
	tagPattern  = regexp.MustCompile(`<[^>]+>`)
	yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// ParseArticles decodes an efetch PubmedArticleSet document
func ParseArticles(data []byte) ([]model.IncludedStudy, error) {
	var set articleSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}

	studies := make([]model.IncludedStudy, 0, len(set.Articles))
	for _, a := range set.Articles {
		if strings.TrimSpace(a.Citation.PMID) == "" {
			continue
		}
		studies = append(studies, a.study())
	}
	return studies, nil
}

func (a pubmedArticle) study() model.IncludedStudy {
	c := a.Citation
	title := c.Article.Title.text()

	pmid := strings.TrimSpace(c.PMID)
	study := model.IncludedStudy{
		PMID:             &pmid,
		Title:            title,
		Journal:          strings.TrimSpace(c.Article.Journal.Title),
		FirstAuthor:      firstAuthor(c.Article.Authors),
		Year:             publicationYear(c.Article.Journal),
		Design:           DesignFor(c.Article.PubTypes, c.Mesh, title+" "+c.Article.abstractText()),
		Species:          SpeciesFor(c.Mesh),
		BiasRisk:         model.BiasUnclear,
		FundingCOI:       model.FundingUnknown,
		RetractionStatus: retractionFor(c.Article.PubTypes, c.Comments),
		EffectDirection:  model.EffectNotReported,
	}

	if doi := a.doi(); doi != "" {
		study.DOI = &doi
	}

	return study
}

// doi prefers the PubmedData article id over the citation's electronic location
func (a pubmedArticle) doi() string {
	for _, id := range a.Data.ArticleIDs {
		if strings.EqualFold(id.Type, "doi") && strings.TrimSpace(id.Value) != "" {
			return strings.TrimSpace(id.Value)
		}
	}
	for _, loc := range a.Citation.Article.Locations {
		if strings.EqualFold(loc.Type, "doi") && loc.Valid != "N" && strings.TrimSpace(loc.Value) != "" {
			return strings.TrimSpace(loc.Value)
		}
	}
	return ""
}

func (m markup) text() string {
	s := tagPattern.ReplaceAllString(m.Inner, "")
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

func (a article) abstractText() string {
	parts := make([]string, 0, len(a.Abstract))
	for _, m := range a.Abstract {
		parts = append(parts, m.text())
	}
	return strings.Join(parts, " ")
}

func firstAuthor(authors []author) string {
	if len(authors) == 0 {
		return ""
	}
	if name := strings.TrimSpace(authors[0].LastName); name != "" {
		return name
	}
	return strings.TrimSpace(authors[0].CollectiveName)
}

// publicationYear reads PubDate/Year, falling back to the first year in MedlineDate ("2019 Dec-2020 Jan")
func publicationYear(j journal) int {
	for _, s := range []string{j.Year, j.MedlineDate} {
		match := yearPattern.FindString(s)
		if match == "" {
			continue
		}
		year, err := strconv.Atoi(match)
		if err == nil && year >= 1900 && year <= 2100 {
			return year
		}
	}
	return 0
}

var designByPubType = []struct {
	types  []string
	design model.StudyDesign
}{
	{[]string{"meta-analysis", "systematic review"}, model.DesignSystematicReview},
	{[]string{"randomized controlled trial", "pragmatic clinical trial", "equivalence trial", "randomized controlled trial, veterinary"}, model.DesignRCT},
}

var designByMesh = []struct {
	terms  []string
	design model.StudyDesign
}{
	{[]string{"case-control studies"}, model.DesignCaseControl},
	{[]string{"cross-sectional studies"}, model.DesignCrossSectional},
	{[]string{"cohort studies", "prospective studies", "longitudinal studies", "follow-up studies"}, model.DesignProspectiveCohort},
}

var cohortPubTypes = []string{
	"clinical trial", "controlled clinical trial", "observational study", "multicenter study",
	"clinical trial, phase i", "clinical trial, phase ii", "clinical trial, phase iii", "clinical trial, phase iv",
}

var designByKeyword = []struct {
	keywords []string
	design   model.StudyDesign
}{
	{[]string{"meta-analysis", "systematic review", "pooled analysis"}, model.DesignSystematicReview},
	{[]string{"randomized controlled trial", "randomised controlled trial", "placebo-controlled"}, model.DesignRCT},
	{[]string{"case-control", "case control"}, model.DesignCaseControl},
	{[]string{"cross-sectional", "cross sectional"}, model.DesignCrossSectional},
	{[]string{"cohort", "prospective", "longitudinal"}, model.DesignProspectiveCohort},
}

// DesignFor maps publication types, MeSH headings and, as a last resort, keywords
// in the title and abstract onto a study design. Anything unrecognized is a case
// report, the lowest-weighted design.
func DesignFor(pubTypes, mesh []string, text string) model.StudyDesign {
	types := lowerSet(pubTypes)
	for _, rule := range designByPubType {
		if types.any(rule.types) {
			return rule.design
		}
	}

	headings := lowerSet(mesh)
	for _, rule := range designByMesh {
		if headings.any(rule.terms) {
			return rule.design
		}
	}
	if types.any(cohortPubTypes) {
		return model.DesignProspectiveCohort
	}
	if types.any([]string{"case reports"}) {
		return model.DesignCaseReport
	}

	lower := strings.ToLower(text)
	for _, rule := range designByKeyword {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.design
			}
		}
	}

	return model.DesignCaseReport
}

// SpeciesFor derives the study population from MeSH check tags.
// "Animals" without "Humans" is an animal study; empty when neither is tagged.
func SpeciesFor(mesh []string) model.Species {
	headings := lowerSet(mesh)
	switch {
	case headings["humans"]:
		return model.SpeciesHuman
	case headings["animals"]:
		return model.SpeciesAnimal
	case headings["in vitro techniques"]:
		return model.SpeciesInVitro
	default:
		return ""
	}
}

// retractionFor derives integrity status from publication types and comment links
func retractionFor(pubTypes []string, comments []commentCorrection) model.RetractionStatus {
	if lowerSet(pubTypes)["retracted publication"] {
		return model.RetractionRetracted
	}
	concern := false
	for _, c := range comments {
		switch c.RefType {
		case "RetractionIn":
			return model.RetractionRetracted
		case "ExpressionOfConcernIn":
			concern = true
		}
	}
	if concern {
		return model.RetractionExpressionOfConcern
	}
	return model.RetractionActive
}

type stringSet map[string]bool

func lowerSet(values []string) stringSet {
	set := make(stringSet, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return set
}

func (s stringSet) any(values []string) bool {
	for _, v := range values {
		if s[v] {
			return true
		}
	}
	return false
}
