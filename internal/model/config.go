package model

import "time"

// Config holds all evidentia configuration
type Config struct {
	Rubric       Rubric             `yaml:"rubric" mapstructure:"rubric"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	PubMed       PubMedConfig       `yaml:"pubmed" mapstructure:"pubmed"`
	Enrichment   EnrichmentConfig   `yaml:"enrichment" mapstructure:"enrichment"`
	Venues       VenueConfig        `yaml:"venues" mapstructure:"venues"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// HTTPConfig configures outbound HTTP used by upstream collaborators
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// CacheConfig configures the evaluation and literature caches
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig bounds worker counts
type ConcurrencyConfig struct {
	Workers         int `yaml:"workers" mapstructure:"workers"`                   // Batch evaluation workers
	ResolverWorkers int `yaml:"resolver_workers" mapstructure:"resolver_workers"` // Concurrent link checks
}

// RateLimitingConfig configures per-host pacing for link resolution
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LLMConfig configures the evidence synthesis provider
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "openai", "anthropic", "ollama" or "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PubMedConfig configures literature search
type PubMedConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	APIKey     string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Tool       string `yaml:"tool" mapstructure:"tool"`
	Email      string `yaml:"email,omitempty" mapstructure:"email"`
	MaxResults int    `yaml:"max_results" mapstructure:"max_results"`
}

// EnrichmentConfig toggles pre-scoring enrichment of payloads
type EnrichmentConfig struct {
	ExtractCitations bool `yaml:"extract_citations" mapstructure:"extract_citations"` // Build citation_audit from claim_text when absent
	ResolveLinks     bool `yaml:"resolve_links" mapstructure:"resolve_links"`         // HEAD-check mentions before scoring
	ClassifyVenues   bool `yaml:"classify_venues" mapstructure:"classify_venues"`     // Flag studies in predatory venues
}

// VenueConfig holds publication venue classification settings
type VenueConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	PredatoryDomains []string          `yaml:"predatory_domains" mapstructure:"predatory_domains"`
	PredatoryTitles  []string          `yaml:"predatory_titles" mapstructure:"predatory_titles"` // Journal title substrings, case-insensitive
	DomainMap        map[string]string `yaml:"domain_map" mapstructure:"domain_map"`             // host -> tier
	PathPatterns     []PathPattern     `yaml:"path_patterns" mapstructure:"path_patterns"`
}

// PathPattern maps a URL path regex to a tier name
type PathPattern struct {
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Tier    string `yaml:"tier" mapstructure:"tier"`
}

// OutputConfig configures report output
type OutputConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	Pretty      bool   `yaml:"pretty" mapstructure:"pretty"`
	Verbose     bool   `yaml:"verbose" mapstructure:"verbose"`
	MetricsFile string `yaml:"metrics_file" mapstructure:"metrics_file"` // Prometheus textfile (empty disables)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Rubric: DefaultRubric(),
		HTTP: HTTPConfig{
			Timeout:      15 * time.Second,
			UserAgent:    "Evidentia/0.3 (+https://github.com/ppiankov/evidentia)",
			MaxBodyBytes: 5_000_000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".evidentia-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:         4,
			ResolverWorkers: 10,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		LLM: LLMConfig{
			Provider:  "",
			Model:     "gpt-4o-mini",
			Timeout:   60,
			MaxTokens: 1200,
		},
		PubMed: PubMedConfig{
			Enabled:    true,
			BaseURL:    "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
			Tool:       "evidentia",
			MaxResults: 10,
		},
		Enrichment: EnrichmentConfig{
			ExtractCitations: true,
			ResolveLinks:     false,
			ClassifyVenues:   true,
		},
		Venues: VenueConfig{
			PrimaryDomains: []string{
				"pubmed.ncbi.nlm.nih.gov", "ncbi.nlm.nih.gov", "doi.org", "cochranelibrary.com",
				"nejm.org", "thelancet.com", "jamanetwork.com", "bmj.com", "nature.com",
				"science.org", "who.int", "cdc.gov", "nih.gov",
			},
			SecondaryDomains: []string{
				"medrxiv.org", "biorxiv.org", "researchgate.net", "sciencedirect.com", "frontiersin.org",
			},
			PredatoryDomains: []string{
				"omicsonline.org", "omicsgroup.org", "scirp.org", "waset.org", "sciencedomain.org",
			},
			PredatoryTitles: []string{
				"omics", "world academy of science, engineering and technology", "international journal of advanced research",
			},
			DomainMap: map[string]string{},
			PathPatterns: []PathPattern{
				{Pattern: `^/pmc/articles/`, Tier: "primary"},
				{Pattern: `/press-?release`, Tier: "tertiary"},
			},
		},
		Output: OutputConfig{
			Dir:    "./evidentia-reports",
			Pretty: true,
		},
	}
}
