package validate

import (
	"testing"

	"github.com/ppiankov/evidentia/internal/model"
)

func TestVenueClassifier_Classify(t *testing.T) {
	config := &model.VenueConfig{
		PrimaryDomains:   []string{"pubmed.ncbi.nlm.nih.gov", "doi.org", "thelancet.com"},
		SecondaryDomains: []string{"medrxiv.org"},
		PredatoryDomains: []string{"omicsonline.org"},
		DomainMap:        map[string]string{"blog.thelancet.com": "tertiary"},
		PathPatterns: []model.PathPattern{
			{Pattern: `^/pmc/articles/`, Tier: "primary"},
			{Pattern: `[`, Tier: "primary"}, // invalid, skipped
		},
	}

	classifier := NewVenueClassifier(config)

	tests := []struct {
		url      string
		expected model.VenueTier
		desc     string
	}{
		{"https://pubmed.ncbi.nlm.nih.gov/12345678/", model.TierPrimary, "Primary exact match"},
		{"https://www.thelancet.com/journals/lancet/article", model.TierPrimary, "Primary subdomain"},
		{"https://DOI.org/10.1000/xyz", model.TierPrimary, "Host is case-insensitive"},
		{"https://www.medrxiv.org/content/10.1101/2020", model.TierSecondary, "Preprint server"},
		{"https://www.omicsonline.org/open-access/x.pdf", model.TierPredatory, "Predatory publisher"},
		{"https://blog.thelancet.com/post", model.TierTertiary, "Explicit domain map wins"},
		{"https://www.example.org/pmc/articles/PMC1/", model.TierPrimary, "Path pattern"},
		{"https://health.state.gov/page", model.TierPrimary, ".gov suffix"},
		{"https://wellness-blog.example.com/omega3", model.TierTertiary, "Default tertiary"},
		{"not a url", model.TierUnknown, "No host"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			result := classifier.Classify(tt.url)
			if result != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.url, result)
			}
		})
	}
}

func TestVenueClassifier_IsPredatoryJournal(t *testing.T) {
	classifier := NewVenueClassifier(&model.VenueConfig{
		PredatoryTitles: []string{"OMICS", "  ", "Journal of Miracle Results"},
	})

	tests := []struct {
		journal  string
		expected bool
	}{
		{"Journal of Nutrition & Food Sciences (OMICS)", true},
		{"journal of miracle results", true},
		{"The Lancet", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := classifier.IsPredatoryJournal(tt.journal); got != tt.expected {
			t.Errorf("IsPredatoryJournal(%q) = %v, want %v", tt.journal, got, tt.expected)
		}
	}
}

func TestVenueClassifier_FlagPredatoryCopies(t *testing.T) {
	classifier := NewVenueClassifier(&model.VenueConfig{PredatoryTitles: []string{"omics"}})

	studies := []model.IncludedStudy{
		{Journal: "OMICS Journal of Radiology", Design: model.DesignRCT},
		{Journal: "BMJ", Design: model.DesignRCT},
		{Journal: "Unknown", Design: model.DesignRCT, Predatory: true},
	}

	flagged, n := classifier.FlagPredatory(studies)

	if n != 1 {
		t.Errorf("expected 1 newly flagged study, got %d", n)
	}
	if !flagged[0].Predatory || flagged[1].Predatory || !flagged[2].Predatory {
		t.Errorf("unexpected flags: %+v", flagged)
	}
	if studies[0].Predatory {
		t.Error("FlagPredatory modified its input")
	}
}

func TestVenueClassifier_NilConfigUsesDefaults(t *testing.T) {
	classifier := NewVenueClassifier(nil)

	if got := classifier.Classify("https://www.cochranelibrary.com/cdsr/doi/10.1002"); got != model.TierPrimary {
		t.Errorf("expected primary for Cochrane, got %v", got)
	}
	if got := classifier.Classify("https://www.scirp.org/journal/paper"); got != model.TierPredatory {
		t.Errorf("expected predatory for scirp, got %v", got)
	}
}

func TestVenueTier_String(t *testing.T) {
	tests := map[model.VenueTier]string{
		model.TierUnknown:   "unknown",
		model.TierPrimary:   "primary",
		model.TierSecondary: "secondary",
		model.TierTertiary:  "tertiary",
		model.TierPredatory: "predatory",
	}
	for tier, want := range tests {
		if tier.String() != want {
			t.Errorf("%d.String() = %q, want %q", tier, tier.String(), want)
		}
	}
}
