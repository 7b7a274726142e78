package score

import (
	"testing"
	"time"

	"github.com/ppiankov/evidentia/internal/model"
)

func findModifier(mods []model.Modifier, name string) (model.Modifier, bool) {
	for _, m := range mods {
		if m.Name == name {
			return m, true
		}
	}
	return model.Modifier{}, false
}

func rct(pmid string) model.IncludedStudy {
	return model.IncludedStudy{
		PMID:             strPtr(pmid),
		Design:           model.DesignRCT,
		FundingCOI:       model.FundingNone,
		RetractionStatus: model.RetractionActive,
	}
}

func stagedWith(claim string, studies ...model.IncludedStudy) *model.EvaluationInput {
	return &model.EvaluationInput{
		NormalizedClaim: claim,
		IncludedStudies: studies,
		Synthesis: &model.EvidenceSynthesis{
			GRADECertainty: model.GRADEModerate,
			Alignment:      model.AlignmentSupports,
		},
	}
}

func TestModifiers_Causation(t *testing.T) {
	scorer := newTestScorer()

	crossSectional := model.IncludedStudy{Design: model.DesignCrossSectional}
	cohort := model.IncludedStudy{Design: model.DesignProspectiveCohort}

	tests := []struct {
		name      string
		in        *model.EvaluationInput
		wantFound bool
		want      int
	}{
		{"cross-sectional only", stagedWith("Coffee prevents dementia", crossSectional, crossSectional), true, 15},
		{"includes a prospective cohort", stagedWith("Coffee prevents dementia", crossSectional, cohort), true, 10},
		{"includes an RCT", stagedWith("Coffee prevents dementia", crossSectional, rct("1")), false, 0},
		{"no causal wording", stagedWith("Coffee is associated with less dementia", crossSectional), false, 0},
	}

	insufficient := stagedWith("Coffee prevents dementia", crossSectional)
	insufficient.Synthesis.Alignment = model.AlignmentInsufficient
	tests = append(tests, struct {
		name      string
		in        *model.EvaluationInput
		wantFound bool
		want      int
	}{"insufficient evidence", insufficient, false, 0})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := scorer.Calculate(tt.in)
			m, found := findModifier(result.Penalties, model.PenaltyCausation)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v (penalties %+v)", found, tt.wantFound, result.Penalties)
			}
			if found && m.Magnitude != tt.want {
				t.Errorf("magnitude = %d, want %d", m.Magnitude, tt.want)
			}
		})
	}
}

func TestModifiers_Overgeneralization(t *testing.T) {
	scorer := newTestScorer()

	animal := rct("1")
	animal.Species = model.SpeciesAnimal

	small := func(pmid string, n int) model.IncludedStudy {
		s := rct(pmid)
		s.Species = model.SpeciesHuman
		s.SampleSize = n
		return s
	}

	t.Run("animal evidence unqualified", func(t *testing.T) {
		result := scorer.Calculate(stagedWith("Turmeric relieves arthritis pain", animal))
		m, ok := findModifier(result.Penalties, model.PenaltyOvergeneralization)
		if !ok || m.Magnitude != 10 {
			t.Errorf("Expected overgeneralization 10, got %+v", result.Penalties)
		}
	})

	t.Run("animal evidence qualified", func(t *testing.T) {
		result := scorer.Calculate(stagedWith("In mice, turmeric relieves arthritis pain", animal))
		if _, ok := findModifier(result.Penalties, model.PenaltyOvergeneralization); ok {
			t.Error("Qualified claim should not be penalized")
		}
		// neutral PICO 3 + qualified generalization 3
		if result.ScopeNuance != 6 {
			t.Errorf("Expected scope 6, got %d", result.ScopeNuance)
		}
	})

	t.Run("small samples", func(t *testing.T) {
		result := scorer.Calculate(stagedWith("Turmeric relieves arthritis pain", small("1", 40), small("2", 60)))
		m, ok := findModifier(result.Penalties, model.PenaltyOvergeneralization)
		if !ok || m.Magnitude != 8 {
			t.Errorf("Expected overgeneralization 8, got %+v", result.Penalties)
		}
	})

	t.Run("one adequate sample", func(t *testing.T) {
		result := scorer.Calculate(stagedWith("Turmeric relieves arthritis pain", small("1", 40), small("2", 600)))
		if _, ok := findModifier(result.Penalties, model.PenaltyOvergeneralization); ok {
			t.Error("Mixed sample sizes are not narrow evidence")
		}
	})
}

func TestModifiers_OutdatedOnly(t *testing.T) {
	scorer := newTestScorer()
	evaluatedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	dated := func(years ...int) *model.EvaluationInput {
		var studies []model.IncludedStudy
		for i, y := range years {
			s := rct(string(rune('1' + i)))
			s.Year = y
			studies = append(studies, s)
		}
		return stagedWith("Aspirin reduces stroke risk", studies...)
	}

	old := dated(2001, 2005)
	old.EvaluatedAt = &evaluatedAt
	if m, ok := findModifier(scorer.Calculate(old).Penalties, model.PenaltyOutdatedOnly); !ok || m.Magnitude != 5 {
		t.Errorf("Expected outdated_only 5 for studies from 2005, got %+v", m)
	}

	recent := dated(2001, 2010)
	recent.EvaluatedAt = &evaluatedAt
	if _, ok := findModifier(scorer.Calculate(recent).Penalties, model.PenaltyOutdatedOnly); ok {
		t.Error("A 2010 study is within the window")
	}

	noClock := dated(1990)
	if _, ok := findModifier(scorer.Calculate(noClock).Penalties, model.PenaltyOutdatedOnly); ok {
		t.Error("Without evaluated_at the engine must not judge age")
	}
}

func TestModifiers_ExaggeratedLanguage(t *testing.T) {
	scorer := newTestScorer()

	tests := []struct {
		level     int
		wantFound bool
		want      int
	}{
		{0, false, 0},
		{2, false, 0},
		{3, true, 3},
		{4, true, 5},
		{5, true, 6},
	}

	for _, tt := range tests {
		in := stagedWith("Aspirin reduces stroke risk", rct("1"))
		in.ExaggerationLevel = tt.level

		m, found := findModifier(scorer.Calculate(in).Penalties, model.PenaltyExaggeratedLanguage)
		if found != tt.wantFound {
			t.Errorf("level %d: found = %v, want %v", tt.level, found, tt.wantFound)
			continue
		}
		if found && m.Magnitude != tt.want {
			t.Errorf("level %d: magnitude = %d, want %d", tt.level, m.Magnitude, tt.want)
		}
	}
}

func TestModifiers_UncertaintyBonus(t *testing.T) {
	scorer := newTestScorer()

	tests := []struct {
		name          string
		grade         model.GRADECertainty
		assertiveness int
		wantFound     bool
		want          int
	}{
		{"very low certainty", model.GRADEVeryLow, -1, true, 3},
		{"low certainty", model.GRADELow, -1, true, 2},
		{"moderate certainty", model.GRADEModerate, 0, true, 1},
		{"high certainty", model.GRADEHigh, -1, false, 0},
		{"assertive wording", model.GRADELow, 2, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := stagedWith("Vitamin D may reduce fractures", rct("1"))
			in.Synthesis.GRADECertainty = tt.grade
			in.LanguageAssertiveness = tt.assertiveness

			m, found := findModifier(scorer.Calculate(in).Bonus, model.BonusUncertaintyStatements)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if found && m.Magnitude != tt.want {
				t.Errorf("magnitude = %d, want %d", m.Magnitude, tt.want)
			}
		})
	}
}

func TestModifiers_TransparentLimitations(t *testing.T) {
	scorer := newTestScorer()

	in := stagedWith("Aspirin reduces stroke risk", rct("1"))
	in.Synthesis.KeyPoints = []string{"Small sample sizes limit conclusions", "Heterogeneity was high", "Effect was consistent"}

	result := scorer.Calculate(in)

	m, ok := findModifier(result.Bonus, model.BonusTransparentLimitations)
	if !ok || m.Magnitude != 2 {
		t.Errorf("Expected transparent_limitations 2, got %+v", result.Bonus)
	}
	// neutral PICO 3 + generalization 4 + two limitation points
	if result.ScopeNuance != 9 {
		t.Errorf("Expected scope 9, got %d", result.ScopeNuance)
	}

	in.Synthesis.KeyPoints = []string{"Further research is needed"}
	m, ok = findModifier(scorer.Calculate(in).Bonus, model.BonusTransparentLimitations)
	if !ok || m.Magnitude != 1 {
		t.Errorf("Expected transparent_limitations 1 for a single limitation, got %+v", m)
	}
}

func TestModifiers_CherryPicking(t *testing.T) {
	scorer := newTestScorer()

	directed := func(pmid string, d model.EffectDirection) model.IncludedStudy {
		s := rct(pmid)
		s.EffectDirection = d
		return s
	}
	cites := func(pmids ...string) *model.CitationAudit {
		audit := &model.CitationAudit{}
		for _, p := range pmids {
			audit.Mentions = append(audit.Mentions, model.CitationMention{Type: model.MentionPMID, Value: p, Certainty: model.CertaintyHigh})
		}
		return audit
	}

	tests := []struct {
		name      string
		studies   []model.IncludedStudy
		audit     *model.CitationAudit
		wantFound bool
		want      int
	}{
		{
			name: "single agreeing study out of four",
			studies: []model.IncludedStudy{
				directed("1", model.EffectDecrease), directed("2", model.EffectNoIncrease),
				directed("3", model.EffectNoIncrease), directed("4", model.EffectNoIncrease),
			},
			audit:     cites("1"),
			wantFound: true,
			want:      15,
		},
		{
			name: "half the evidence agrees",
			studies: []model.IncludedStudy{
				directed("1", model.EffectDecrease), directed("2", model.EffectDecrease),
				directed("3", model.EffectNoIncrease), directed("4", model.EffectNoIncrease),
			},
			audit:     cites("1", "2"),
			wantFound: true,
			want:      10,
		},
		{
			name: "every study cited",
			studies: []model.IncludedStudy{
				directed("1", model.EffectDecrease), directed("2", model.EffectNoIncrease),
			},
			audit: cites("1", "2"),
		},
		{
			name: "cited studies disagree",
			studies: []model.IncludedStudy{
				directed("1", model.EffectDecrease), directed("2", model.EffectNoIncrease),
				directed("3", model.EffectNoIncrease),
			},
			audit: cites("1", "2"),
		},
		{
			name: "consistent evidence",
			studies: []model.IncludedStudy{
				directed("1", model.EffectDecrease), directed("2", model.EffectDecrease),
				directed("3", model.EffectDecrease), directed("4", model.EffectNoIncrease),
			},
			audit: cites("1"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := stagedWith("Statins reduce cardiac events", tt.studies...)
			in.CitationAudit = tt.audit

			m, found := findModifier(scorer.Calculate(in).Penalties, model.PenaltyCherryPicking)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if found && m.Magnitude != tt.want {
				t.Errorf("magnitude = %d, want %d", m.Magnitude, tt.want)
			}
		})
	}
}

func TestScoreQuantitative(t *testing.T) {
	scorer := newTestScorer()

	riskRatio := model.IncludedStudy{
		Design:     model.DesignRCT,
		EffectSize: &model.EffectSize{Measure: "rr", Value: 0.70, CILow: floatPtr(0.6), CIHigh: floatPtr(0.8)},
	}
	meanDiff := model.IncludedStudy{
		Design:     model.DesignRCT,
		EffectSize: &model.EffectSize{Measure: "md", Value: -0.32, CILow: floatPtr(-0.4), CIHigh: floatPtr(-0.2)},
	}

	tests := []struct {
		name    string
		claim   string
		numeric []model.NumericClaim
		studies []model.IncludedStudy
		want    int
	}{
		{"percent matches ratio", "x", []model.NumericClaim{{Measure: "percent", Value: 30}}, []model.IncludedStudy{riskRatio}, 5},
		{"percent within interval", "x", []model.NumericClaim{{Measure: "percent", Value: 38}}, []model.IncludedStudy{riskRatio}, 3},
		{"qualified within interval", "x", []model.NumericClaim{{Measure: "percent", Value: 38, Qualified: true}}, []model.IncludedStudy{riskRatio}, 4},
		{"percent far off", "x", []model.NumericClaim{{Measure: "percent", Value: 60}}, []model.IncludedStudy{riskRatio}, 0},
		{"same measure", "x", []model.NumericClaim{{Measure: "md", Value: -0.3}}, []model.IncludedStudy{meanDiff}, 5},
		{"no effect sizes reported", "x", []model.NumericClaim{{Measure: "percent", Value: 30}}, []model.IncludedStudy{rct("1")}, 0},
		{"explicitly no numeric claims", "Fish oil cuts risk by 30%", []model.NumericClaim{}, []model.IncludedStudy{riskRatio}, 4},
		{"extracted from claim text", "Fish oil cuts heart attack risk by about 30%", nil, []model.IncludedStudy{riskRatio}, 6},
		{"nothing numeric", "Fish oil is good for the heart", nil, []model.IncludedStudy{riskRatio}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := stagedWith(tt.claim, tt.studies...)
			in.NumericClaims = tt.numeric

			got, signal := scorer.scoreQuantitative(in)
			if got != tt.want {
				t.Errorf("scoreQuantitative() = %d, want %d (%v)", got, tt.want, signal.Data)
			}
		})
	}
}

func TestScoreCitationQuality(t *testing.T) {
	scorer := newTestScorer()

	byDOI := rct("")
	byDOI.PMID = nil
	byDOI.DOI = strPtr("10.1000/abc")

	byAuthor := rct("123")
	byAuthor.FirstAuthor = "Smith"
	byAuthor.Year = 2020

	retracted := rct("9")
	retracted.RetractionStatus = model.RetractionRetracted

	mention := func(typ model.MentionType, value string, certainty model.MentionCertainty) *model.CitationAudit {
		return &model.CitationAudit{Mentions: []model.CitationMention{{Type: typ, Value: value, Certainty: certainty}}}
	}

	tests := []struct {
		name     string
		study    model.IncludedStudy
		audit    *model.CitationAudit
		fallback *model.FallbackScores
		want     int
	}{
		// 8*1 + 8*0.85 + 6*1 = 20.8
		{"doi url form", byDOI, mention(model.MentionDOI, "https://doi.org/10.1000/ABC", model.CertaintyHigh), nil, 21},
		{"author year", byAuthor, mention(model.MentionAuthorYear, "Smith et al., 2020", model.CertaintyMedium), nil, 21},
		{"author year wrong year", byAuthor, mention(model.MentionAuthorYear, "Smith et al., 2019", model.CertaintyMedium), nil, 13},
		{"low certainty mention", byAuthor, mention(model.MentionPMID, "123", model.CertaintyLow), nil, 13},
		{"empty audit", byAuthor, &model.CitationAudit{Mentions: []model.CitationMention{}}, nil, 13},
		// retracted: no verifiability, zero hierarchy, full disclosure
		{"retracted target", retracted, mention(model.MentionPMID, "PMID:9", model.CertaintyHigh), nil, 6},
		{"fallback transparency", byAuthor, nil, &model.FallbackScores{Transparency: 5}, 21},
		{"identifier coverage", byAuthor, nil, nil, 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := stagedWith("x", tt.study)
			in.CitationAudit = tt.audit
			in.Fallback = tt.fallback

			got, signal := scorer.scoreCitationQuality(in)
			if got != tt.want {
				t.Errorf("scoreCitationQuality() = %d, want %d (%v)", got, tt.want, signal.Data)
			}
		})
	}
}

func TestScoreSafety(t *testing.T) {
	scorer := newTestScorer()

	tests := []struct {
		name     string
		harms    *model.HarmsBenefits
		tags     []string
		fallback *model.FallbackScores
		want     int
	}{
		{"frequency and severity", &model.HarmsBenefits{AdverseEvents: []model.AdverseEvent{{Name: "nausea", Frequency: "3%", Severity: "mild"}}}, nil, nil, 6},
		{"frequency only", &model.HarmsBenefits{AdverseEvents: []model.AdverseEvent{{Name: "nausea", Frequency: "3%"}}}, nil, nil, 5},
		{"named only", &model.HarmsBenefits{AdverseEvents: []model.AdverseEvent{{Name: "nausea"}}}, nil, nil, 4},
		{"qualitative", &model.HarmsBenefits{QualitativeHarms: []string{"may upset the stomach"}}, nil, nil, 3},
		{"flag only", &model.HarmsBenefits{HarmsDiscussed: true}, nil, nil, 3},
		{"undiscussed", nil, []string{"nutrition"}, nil, 2},
		{"undiscussed in risky domain", nil, []string{"supplements"}, nil, 0},
		{"empty block in risky domain", &model.HarmsBenefits{}, []string{"oncology"}, nil, 0},
		{"fallback harm axis", nil, nil, &model.FallbackScores{HarmPotential: 4}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := stagedWith("x", rct("1"))
			in.HarmsBenefits = tt.harms
			in.DomainTags = tt.tags
			in.Fallback = tt.fallback

			if got, _ := scorer.scoreSafety(in); got != tt.want {
				t.Errorf("scoreSafety() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreScope_PICOCoverage(t *testing.T) {
	scorer := newTestScorer()

	study := rct("1")
	study.Population = "adults aged 65 and older"
	study.Intervention = "vitamin D3 supplementation"
	study.Outcomes = []string{"fractures"}

	in := stagedWith("Vitamin D prevents hip fractures in older adults", study)
	in.PICO = model.PICO{
		Population:   "older adults",
		Intervention: "vitamin D",
		Outcomes:     []string{"hip fractures"},
	}

	got, signal := scorer.scoreScope(in, scorer.assessScope(in))

	// population 1, intervention 1, outcomes 1/2: round(6 * 5/6) + 4
	if got != 9 {
		t.Errorf("scoreScope() = %d, want 9 (%v)", got, signal.Data)
	}
}

func TestHasTerm(t *testing.T) {
	tests := []struct {
		text, term string
		want       bool
	}{
		{"Coffee Causes cancer", "causes", true},
		{"because of it", "cause", false},
		{"it may help", "may", true},
		{"in mayo clinic", "may", false},
		{"leads to recovery", "leads to", true},
		{"anything", "", false},
	}

	for _, tt := range tests {
		if got := hasTerm(tt.text, tt.term); got != tt.want {
			t.Errorf("hasTerm(%q, %q) = %v, want %v", tt.text, tt.term, got, tt.want)
		}
	}
}
