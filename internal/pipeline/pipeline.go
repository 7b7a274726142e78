package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/evidentia/internal/cache"
	"github.com/ppiankov/evidentia/internal/extract"
	"github.com/ppiankov/evidentia/internal/extract/adapters"
	"github.com/ppiankov/evidentia/internal/llm"
	"github.com/ppiankov/evidentia/internal/model"
	"github.com/ppiankov/evidentia/internal/resolve"
	"github.com/ppiankov/evidentia/internal/score"
	"github.com/ppiankov/evidentia/internal/validate"
	"github.com/ppiankov/evidentia/internal/worker"
)

// reportNamespace scopes content-addressed report IDs
var reportNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ppiankov/evidentia/report"))

// Pipeline orchestrates payload evaluation: load, enrich, validate, score
type Pipeline struct {
	config    *model.Config
	validator *validate.SchemaValidator
	scorer    *score.Scorer
	citations *extract.CitationExtractor
	claims    *extract.ClaimExtractor
	venues    *validate.VenueClassifier
	fetcher   *Fetcher
	adapters  *adapters.Registry
	resolver  *resolve.Resolver // nil unless link resolution is enabled
	limiter   *worker.Limiter   // Shared by link resolution and literature search; nil disables pacing
	cache     cache.Cache       // nil when caching is disabled
	logger    *slog.Logger

	searcher    LiteratureSearcher // nil when literature search is disabled
	searcherSet bool
	synth       *llm.Synthesizer
	synthSet    bool
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger for pipeline warnings and debug output
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithCache replaces the cache built from configuration
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) {
		p.cache = c
	}
}

// NewPipeline creates a new pipeline with the given configuration.
// The rubric is validated before anything else is built.
func NewPipeline(cfg *model.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if err := cfg.Rubric.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rubric: %w", err)
	}

	p := &Pipeline{
		config:    cfg,
		validator: validate.NewSchemaValidator(),
		scorer:    score.NewScorer(cfg.Rubric),
		citations: extract.NewCitationExtractor(),
		claims:    extract.NewClaimExtractor(),
		venues:    validate.NewVenueClassifier(&cfg.Venues),
		adapters:  adapters.NewRegistry(),
		cache:     cache.New(cfg.Cache),
		logger:    slog.Default(),
	}
	if cfg.RateLimiting.RequestsPerSecond > 0 {
		p.limiter = worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	}
	for _, opt := range opts {
		opt(p)
	}
	p.fetcher = NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes, true,
		cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)
	if !p.searcherSet {
		p.searcher = p.newSearcher()
	}
	if !p.synthSet {
		p.synth = p.newSynthesizer()
	}

	if cfg.Enrichment.ResolveLinks {
		p.resolver = resolve.NewResolver(resolve.Options{
			Timeout:       cfg.HTTP.Timeout,
			MaxWorkers:    cfg.Concurrency.ResolverWorkers,
			UserAgent:     cfg.HTTP.UserAgent,
			HTTPProxy:     cfg.HTTP.HTTPProxy,
			HTTPSProxy:    cfg.HTTP.HTTPSProxy,
			NoProxy:       cfg.HTTP.NoProxy,
			RespectRobots: true,
			Limiter:       p.limiter,
			Logger:        p.logger,
		})
	}

	return p, nil
}

// Rubric returns the rubric used for scoring
func (p *Pipeline) Rubric() model.Rubric {
	return p.scorer.Rubric()
}

// EvaluateFile reads and evaluates one payload file. It implements worker.Evaluator.
func (p *Pipeline) EvaluateFile(ctx context.Context, path string) (*model.Report, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return p.Evaluate(ctx, raw, path)
}

// Evaluate scores one raw JSON payload. Validation failures are returned as
// *validate.ValidationError. Identical payloads under the same rubric and
// enrichment settings are served from the cache.
func (p *Pipeline) Evaluate(ctx context.Context, raw []byte, source string) (*model.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rubricVersion := p.scorer.Rubric().Version
	id := ReportID(rubricVersion, raw)
	key := cache.CacheKey("report", id, p.enrichmentFingerprint())

	if report, ok := p.cachedReport(key); ok {
		p.logger.Debug("evaluation cache hit", "id", id, "source", source)
		report.Source = source
		return report, nil
	}

	in, err := p.validator.Validate(raw)
	if err != nil {
		return nil, err
	}

	if err := p.enrich(ctx, in); err != nil {
		return nil, err
	}

	report := &model.Report{
		ID:            id,
		RubricVersion: rubricVersion,
		Source:        source,
		Claim:         in.NormalizedClaim,
		Breakdown:     p.scorer.Calculate(in),
		Principles:    model.DefaultPrinciples(),
	}

	p.storeReport(key, report)
	return report, nil
}

// enrich fills in upstream signals the payload left out, per the enrichment settings
func (p *Pipeline) enrich(ctx context.Context, in *model.EvaluationInput) error {
	cfg := p.config.Enrichment

	if cfg.ExtractCitations && in.CitationAudit == nil {
		audit := p.citations.Extract(in.Text())
		if len(audit.Mentions) > 0 {
			in.CitationAudit = &audit
			p.logger.Debug("extracted citation mentions from claim text", "mentions", len(audit.Mentions))
		}
	}

	if cfg.ClassifyVenues && len(in.IncludedStudies) > 0 {
		studies, flagged := p.venues.FlagPredatory(in.IncludedStudies)
		in.IncludedStudies = studies
		if flagged > 0 {
			p.logger.Debug("flagged studies in predatory venues", "count", flagged)
		}
	}

	if p.resolver != nil && in.CitationAudit != nil && len(in.CitationAudit.Mentions) > 0 {
		audit, _ := p.resolver.Resolve(ctx, *in.CitationAudit)
		in.CitationAudit = &audit
	}

	// Enrichment only produces schema-valid values; a failure here is a bug upstream of scoring
	if err := p.validator.Check(in); err != nil {
		return fmt.Errorf("enriched payload: %w", err)
	}
	return nil
}

func (p *Pipeline) enrichmentFingerprint() string {
	cfg := p.config.Enrichment
	return strconv.FormatBool(cfg.ExtractCitations) + strconv.FormatBool(cfg.ClassifyVenues) + strconv.FormatBool(cfg.ResolveLinks)
}

func (p *Pipeline) cachedReport(key string) (*model.Report, bool) {
	if p.cache == nil {
		return nil, false
	}
	data, ok := p.cache.Get(key)
	if !ok {
		return nil, false
	}
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, false
	}
	return &report, true
}

func (p *Pipeline) storeReport(key string, report *model.Report) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := p.cache.Set(key, data, p.reportTTL()); err != nil {
		p.logger.Debug("evaluation cache write failed", "error", err)
	}
}

func (p *Pipeline) reportTTL() time.Duration {
	if p.config.Cache.DiskTTL > 0 {
		return p.config.Cache.DiskTTL
	}
	return 7 * 24 * time.Hour
}

// ReportID derives the content-addressed report ID: a UUIDv5 over the rubric
// version and the canonical payload bytes. Whitespace and key order in the
// payload do not change the ID.
func ReportID(rubricVersion string, raw []byte) string {
	data := append([]byte(rubricVersion+"\x00"), canonicalJSON(raw)...)
	return uuid.NewSHA1(reportNamespace, data).String()
}

// canonicalJSON re-encodes a JSON document with sorted object keys and no
// insignificant whitespace. Invalid JSON is returned unchanged.
func canonicalJSON(raw []byte) []byte {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}
