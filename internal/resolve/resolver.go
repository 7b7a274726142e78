// Package resolve checks that citation mentions point at reachable documents
// and adjusts their certainty accordingly.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/evidentia/internal/model"
	"github.com/ppiankov/evidentia/internal/util"
	"github.com/ppiankov/evidentia/internal/worker"
)

const resolveMaxRetries = 3

// resolveSleepFunc is the sleep function used between retries (injectable for tests)
var resolveSleepFunc = time.Sleep

const (
	defaultDOIBase    = "https://doi.org/"
	defaultPubMedBase = "https://pubmed.ncbi.nlm.nih.gov/"
)

// Status is the outcome of checking one mention
type Status string

const (
	StatusReachable Status = "reachable" // 2xx/3xx; certainty raised to high
	StatusDead      Status = "dead"      // 404/410 or request failure; certainty lowered to uncertain
	StatusBlocked   Status = "blocked"   // Disallowed by robots.txt; unchanged
	StatusUnknown   Status = "unknown"   // Any other status, including 5xx/429 after retries; unchanged
	StatusSkipped   Status = "skipped"   // Not a linkable mention, or cancelled; unchanged
)

// Check records how one mention was resolved
type Check struct {
	Mention    model.CitationMention `json:"mention"`
	URL        string                `json:"url,omitempty"`
	Status     Status                `json:"status"`
	StatusCode int                   `json:"status_code,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// Options configures a Resolver
type Options struct {
	Timeout           time.Duration
	MaxWorkers        int
	UserAgent         string
	HTTPProxy         string
	HTTPSProxy        string
	NoProxy           string
	RespectRobots     bool
	RequestsPerSecond float64 // Per-host pacing; 0 disables
	Burst             int
	Limiter           *worker.Limiter // Shared limiter; overrides RequestsPerSecond
	DOIBaseURL        string // Defaults to https://doi.org/
	PubMedBaseURL     string // Defaults to https://pubmed.ncbi.nlm.nih.gov/
	Logger            *slog.Logger
}

// Resolver HEAD-checks citation links concurrently
type Resolver struct {
	httpClient *http.Client
	maxWorkers int
	userAgent  string
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	doiBase    string
	pubmedBase string
	logger     *slog.Logger
}

// NewResolver creates a new resolver
func NewResolver(opts Options) *Resolver {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Evidentia/0.3 (+https://github.com/ppiankov/evidentia)"
	}
	if opts.DOIBaseURL == "" {
		opts.DOIBaseURL = defaultDOIBase
	}
	if opts.PubMedBaseURL == "" {
		opts.PubMedBaseURL = defaultPubMedBase
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	client := util.NewHTTPClient(opts.Timeout, opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy)
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}

	r := &Resolver{
		httpClient: client,
		maxWorkers: opts.MaxWorkers,
		userAgent:  opts.UserAgent,
		doiBase:    ensureSlash(opts.DOIBaseURL),
		pubmedBase: ensureSlash(opts.PubMedBaseURL),
		logger:     opts.Logger,
	}
	if opts.RespectRobots {
		r.robots = util.NewRobotsChecker(opts.UserAgent, client, opts.Timeout, opts.Logger)
	}
	switch {
	case opts.Limiter != nil:
		r.limiter = opts.Limiter
	case opts.RequestsPerSecond > 0:
		r.limiter = worker.NewLimiter(opts.RequestsPerSecond, opts.Burst)
	}

	return r
}

// Resolve checks every linkable mention and returns a new audit with adjusted
// certainties, plus one Check per mention in the same order. The input is not modified.
func (r *Resolver) Resolve(ctx context.Context, audit model.CitationAudit) (model.CitationAudit, []Check) {
	mentions := make([]model.CitationMention, len(audit.Mentions))
	copy(mentions, audit.Mentions)
	checks := make([]Check, len(mentions))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, r.maxWorkers)

	for i, m := range mentions {
		target := r.TargetURL(m)
		if target == "" {
			checks[i] = Check{Mention: m, Status: StatusSkipped}
			continue
		}

		wg.Add(1)
		go func(idx int, m model.CitationMention, target string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				checks[idx] = Check{Mention: m, URL: target, Status: StatusSkipped, Error: "context cancelled"}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			checks[idx] = r.checkWithRetry(ctx, m, target)
		}(i, m, target)
	}

	wg.Wait()

	for i := range mentions {
		switch checks[i].Status {
		case StatusReachable:
			mentions[i].Certainty = model.CertaintyHigh
		case StatusDead:
			mentions[i].Certainty = model.CertaintyUncertain
		}
		checks[i].Mention = mentions[i]
	}

	dead := 0
	for _, c := range checks {
		if c.Status == StatusDead {
			dead++
		}
	}
	r.logger.Debug("resolved citation mentions", "mentions", len(mentions), "dead", dead)

	return model.CitationAudit{Mentions: mentions}, checks
}

// TargetURL maps a mention to the URL that should be checked, or "" when it has none
func (r *Resolver) TargetURL(m model.CitationMention) string {
	value := strings.TrimSpace(m.Value)
	if value == "" {
		return ""
	}

	switch m.Type {
	case model.MentionURL:
		parsed, err := url.Parse(value)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return ""
		}
		return value
	case model.MentionDOI:
		return r.doiBase + strings.TrimPrefix(strings.ToLower(value), "doi:")
	case model.MentionPMID:
		return r.pubmedBase + value + "/"
	default:
		return ""
	}
}

// checkSingle performs one HEAD request, falling back to GET when HEAD is refused
func (r *Resolver) checkSingle(ctx context.Context, m model.CitationMention, target string) Check {
	check := Check{Mention: m, URL: target}

	resp, err := r.do(ctx, http.MethodHead, target)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		_ = resp.Body.Close()
		resp, err = r.do(ctx, http.MethodGet, target)
	}
	if err != nil {
		check.Error = fmt.Sprintf("request failed: %v", err)
		check.Status = StatusDead
		if ctx.Err() != nil {
			check.Status = StatusSkipped
		}
		return check
	}
	defer func() { _ = resp.Body.Close() }()

	check.StatusCode = resp.StatusCode

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		check.Status = StatusReachable
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		check.Status = StatusDead
	default:
		check.Status = StatusUnknown
	}

	return check
}

func (r *Resolver) do(ctx context.Context, method, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	return r.httpClient.Do(req)
}

// checkWithRetry applies robots.txt and pacing, then retries transient failures with exponential backoff
func (r *Resolver) checkWithRetry(ctx context.Context, m model.CitationMention, target string) Check {
	var crawlDelay time.Duration
	if r.robots != nil {
		allowed, delay, err := r.robots.CanFetch(ctx, target)
		if err == nil && !allowed {
			return Check{Mention: m, URL: target, Status: StatusBlocked}
		}
		crawlDelay = delay
	}

	var check Check
	for attempt := 0; attempt < resolveMaxRetries; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.WaitWithDelay(ctx, target, crawlDelay); err != nil {
				return Check{Mention: m, URL: target, Status: StatusSkipped, Error: err.Error()}
			}
		}

		check = r.checkSingle(ctx, m, target)
		if !isRetryable(check) {
			return check
		}
		if attempt < resolveMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			resolveSleepFunc(backoff)
		}
	}

	r.logger.Warn("citation link check exhausted retries", "url", target, "status", check.StatusCode, "error", check.Error)
	return check
}

// isRetryable returns true for checks that indicate transient failures
func isRetryable(check Check) bool {
	if check.StatusCode >= 500 && check.StatusCode < 600 {
		return true
	}
	if check.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if check.Error != "" {
		return isRetryableNetworkError(check.Error)
	}
	return false
}

// isRetryableNetworkError checks error strings for transient network failures
func isRetryableNetworkError(errMsg string) bool {
	s := strings.ToLower(errMsg)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}

func ensureSlash(base string) string {
	if strings.HasSuffix(base, "/") {
		return base
	}
	return base + "/"
}
