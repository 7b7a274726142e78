package worker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound requests per host. PubMed E-utilities and citation
// link checks share one limiter so a host never sees more than its budget.
type Limiter struct {
	mu    sync.Mutex
	hosts map[string]*rate.Limiter
	rps   rate.Limit
	burst int
}

// NewLimiter returns a limiter granting each host requestsPerSecond with the
// given burst. A non-positive burst means 5.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	return &Limiter{
		hosts: make(map[string]*rate.Limiter),
		rps:   rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

// SetHostRate overrides the budget of one host
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.burst
	}
	l.hosts[strings.ToLower(host)] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) forURL(rawURL string) (*rate.Limiter, error) {
	host, err := hostKey(rawURL)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.hosts[host]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.hosts[host] = lim
	}
	return lim, nil
}

// Wait blocks until the host of rawURL may be contacted
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	lim, err := l.forURL(rawURL)
	if err != nil {
		return err
	}
	return lim.Wait(ctx)
}

// Allow reports whether the host of rawURL may be contacted now, consuming a
// token if so
func (l *Limiter) Allow(rawURL string) bool {
	lim, err := l.forURL(rawURL)
	return err == nil && lim.Allow()
}

// WaitWithDelay waits for a token and then for extra, typically a robots.txt crawl delay
func (l *Limiter) WaitWithDelay(ctx context.Context, rawURL string, extra time.Duration) error {
	if err := l.Wait(ctx, rawURL); err != nil {
		return err
	}
	if extra <= 0 {
		return nil
	}

	timer := time.NewTimer(extra)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// hostKey is the lowercased host of rawURL without its port
func hostKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return strings.ToLower(host), nil
}
