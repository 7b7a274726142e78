package validate

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/evidentia/internal/model"
)

// VenueClassifier classifies publication venues into tiers and flags predatory ones
type VenueClassifier struct {
	config          *model.VenueConfig
	primaryMap      map[string]bool
	secondaryMap    map[string]bool
	predatoryMap    map[string]bool
	predatoryTitles []string
	pathPatterns    []*compiledPattern
}

type compiledPattern struct {
	pattern *regexp.Regexp
	tier    model.VenueTier
}

// NewVenueClassifier creates a new venue classifier
func NewVenueClassifier(config *model.VenueConfig) *VenueClassifier {
	if config == nil {
		config = &model.DefaultConfig().Venues
	}

	classifier := &VenueClassifier{
		config:       config,
		primaryMap:   make(map[string]bool),
		secondaryMap: make(map[string]bool),
		predatoryMap: make(map[string]bool),
	}

	for _, domain := range config.PrimaryDomains {
		classifier.primaryMap[strings.ToLower(domain)] = true
	}
	for _, domain := range config.SecondaryDomains {
		classifier.secondaryMap[strings.ToLower(domain)] = true
	}
	for _, domain := range config.PredatoryDomains {
		classifier.predatoryMap[strings.ToLower(domain)] = true
	}
	for _, title := range config.PredatoryTitles {
		if title = strings.ToLower(strings.TrimSpace(title)); title != "" {
			classifier.predatoryTitles = append(classifier.predatoryTitles, title)
		}
	}

	// Invalid patterns are skipped
	for _, pathPattern := range config.PathPatterns {
		if re, err := regexp.Compile(pathPattern.Pattern); err == nil {
			classifier.pathPatterns = append(classifier.pathPatterns, &compiledPattern{
				pattern: re,
				tier:    parseTierString(pathPattern.Tier),
			})
		}
	}

	return classifier
}

// Classify classifies a URL into a venue tier
func (c *VenueClassifier) Classify(rawURL string) model.VenueTier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return model.TierUnknown
	}

	host := strings.ToLower(parsed.Hostname())

	if tierStr, ok := c.config.DomainMap[host]; ok {
		return parseTierString(tierStr)
	}

	// Predatory wins over everything else
	if matchDomain(host, c.predatoryMap) {
		return model.TierPredatory
	}
	if matchDomain(host, c.primaryMap) {
		return model.TierPrimary
	}
	if matchDomain(host, c.secondaryMap) {
		return model.TierSecondary
	}

	for _, cp := range c.pathPatterns {
		if cp.pattern.MatchString(parsed.Path) {
			return cp.tier
		}
	}

	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu") || strings.HasSuffix(host, ".ac.uk") {
		return model.TierPrimary
	}

	return model.TierTertiary
}

// IsPredatoryJournal reports whether a journal title matches a configured predatory title
func (c *VenueClassifier) IsPredatoryJournal(journal string) bool {
	lower := strings.ToLower(journal)
	if lower == "" {
		return false
	}
	for _, title := range c.predatoryTitles {
		if strings.Contains(lower, title) {
			return true
		}
	}
	return false
}

// FlagPredatory returns a copy of the studies with Predatory set for studies
// published in predatory venues. The input slice is not modified.
func (c *VenueClassifier) FlagPredatory(studies []model.IncludedStudy) ([]model.IncludedStudy, int) {
	out := make([]model.IncludedStudy, len(studies))
	copy(out, studies)

	flagged := 0
	for i := range out {
		if out[i].Predatory {
			continue
		}
		if c.IsPredatoryJournal(out[i].Journal) {
			out[i].Predatory = true
			flagged++
		}
	}
	return out, flagged
}

// matchDomain reports whether host equals or is a subdomain of any domain in set
func matchDomain(host string, set map[string]bool) bool {
	if set[host] {
		return true
	}
	for domain := range set {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// parseTierString converts a tier string to VenueTier
func parseTierString(tier string) model.VenueTier {
	switch strings.ToLower(tier) {
	case "primary", "1":
		return model.TierPrimary
	case "secondary", "2":
		return model.TierSecondary
	case "predatory", "4":
		return model.TierPredatory
	default:
		return model.TierTertiary
	}
}
