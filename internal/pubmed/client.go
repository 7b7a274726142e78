// Package pubmed searches PubMed through the NCBI E-utilities and maps the
// results onto IncludedStudy records.
package pubmed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/evidentia/internal/cache"
	"github.com/ppiankov/evidentia/internal/model"
	"github.com/ppiankov/evidentia/internal/util"
	"github.com/ppiankov/evidentia/internal/worker"
)

const (
	defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	maxRetries     = 3
	maxBodyBytes   = 10 << 20
)

// pubmedSleepFunc is the sleep function used between retries (injectable for tests)
var pubmedSleepFunc = time.Sleep

// Options configures a Client
type Options struct {
	BaseURL    string
	APIKey     string
	Tool       string
	Email      string
	UserAgent  string
	Timeout    time.Duration
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string

	// Limiter is shared with other outbound callers; nil creates a private one.
	// The E-utilities host is always set to RequestsPerSecond.
	Limiter           *worker.Limiter
	RequestsPerSecond float64 // Defaults to 3, or 10 with an API key

	Cache    cache.Cache // Optional
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// Client is a PubMed E-utilities client
type Client struct {
	baseURL    string
	apiKey     string
	tool       string
	email      string
	userAgent  string
	httpClient *http.Client
	limiter    *worker.Limiter
	cache      cache.Cache
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// NewClient creates a new PubMed client
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Tool == "" {
		opts.Tool = "evidentia"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Evidentia/0.3 (+https://github.com/ppiankov/evidentia)"
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 3
		if opts.APIKey != "" {
			opts.RequestsPerSecond = 10
		}
	}
	if opts.Limiter == nil {
		opts.Limiter = worker.NewLimiter(opts.RequestsPerSecond, 1)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if parsed, err := url.Parse(baseURL); err == nil && parsed.Hostname() != "" {
		opts.Limiter.SetHostRate(parsed.Hostname(), opts.RequestsPerSecond, 1)
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		tool:       opts.Tool,
		email:      opts.Email,
		userAgent:  opts.UserAgent,
		httpClient: util.NewHTTPClient(opts.Timeout, opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
		limiter:    opts.Limiter,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		logger:     opts.Logger,
	}
}

// StatusError is returned for non-2xx E-utilities responses
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.Code)
}

// Search returns up to maxResults studies matching query, in relevance order
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]model.IncludedStudy, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty query")
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	key := cache.CacheKey("pubmed-search", query, strconv.Itoa(maxResults))
	if studies, ok := c.cached(key); ok {
		c.logger.Debug("pubmed cache hit", "query", query)
		return studies, nil
	}

	pmids, err := c.searchIDs(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	studies, err := c.Fetch(ctx, pmids)
	if err != nil {
		return nil, err
	}

	c.store(key, studies)
	c.logger.Debug("pubmed search", "query", query, "ids", len(pmids), "studies", len(studies))

	return studies, nil
}

// Fetch retrieves the records for the given PMIDs, preserving their order
func (c *Client) Fetch(ctx context.Context, pmids []string) ([]model.IncludedStudy, error) {
	if len(pmids) == 0 {
		return []model.IncludedStudy{}, nil
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))
	params.Set("retmode", "xml")
	params.Set("rettype", "abstract")

	body, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}

	studies, err := ParseArticles(body)
	if err != nil {
		return nil, fmt.Errorf("efetch: %w", err)
	}

	return orderByPMID(studies, pmids), nil
}

type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
	Error string `json:"error,omitempty"`
}

func (c *Client) searchIDs(ctx context.Context, query string, maxResults int) ([]string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmax", strconv.Itoa(maxResults))
	params.Set("retmode", "json")
	params.Set("sort", "relevance")

	body, err := c.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var resp esearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("esearch: decode response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("esearch: %s", resp.Error)
	}

	return resp.Result.IDList, nil
}

// get performs one E-utilities request, retrying transient failures with exponential backoff
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("tool", c.tool)
	if c.email != "" {
		params.Set("email", c.email)
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	target := c.baseURL + "/" + endpoint + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx, target); err != nil {
			return nil, fmt.Errorf("%s: %w", endpoint, err)
		}

		body, err := c.doGet(ctx, endpoint, target)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt < maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			c.logger.Debug("retrying pubmed request", "endpoint", endpoint, "attempt", attempt+1, "backoff", backoff, "error", err)
			pubmedSleepFunc(backoff)
		}
	}

	c.logger.Warn("pubmed request exhausted retries", "endpoint", endpoint, "error", lastErr)
	return nil, lastErr
}

func (c *Client) doGet(ctx context.Context, endpoint, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", endpoint, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", endpoint, err)
	}
	return body, nil
}

func (c *Client) cached(key string) ([]model.IncludedStudy, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	var studies []model.IncludedStudy
	if err := json.Unmarshal(data, &studies); err != nil {
		return nil, false
	}
	return studies, true
}

func (c *Client) store(key string, studies []model.IncludedStudy) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(studies)
	if err != nil {
		return
	}
	if err := c.cache.Set(key, data, c.cacheTTL); err != nil {
		c.logger.Debug("pubmed cache write failed", "error", err)
	}
}

// isRetryable returns true for errors that indicate transient failures
func isRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}

	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}

func orderByPMID(studies []model.IncludedStudy, pmids []string) []model.IncludedStudy {
	rank := make(map[string]int, len(pmids))
	for i, id := range pmids {
		rank[id] = i
	}

	ordered := make([]model.IncludedStudy, 0, len(studies))
	placed := make([]*model.IncludedStudy, len(pmids))
	for i := range studies {
		s := studies[i]
		if s.PMID == nil {
			continue
		}
		if idx, ok := rank[*s.PMID]; ok && placed[idx] == nil {
			placed[idx] = &s
		}
	}
	for _, s := range placed {
		if s != nil {
			ordered = append(ordered, *s)
		}
	}
	return ordered
}
