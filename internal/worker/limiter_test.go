package worker

import (
	"context"
	"testing"
	"time"
)

func TestNewLimiter_Burst(t *testing.T) {
	if l := NewLimiter(10, 3); l.burst != 3 {
		t.Errorf("burst = %d, want 3", l.burst)
	}
	if l := NewLimiter(10, -1); l.burst != 5 {
		t.Errorf("burst = %d, want default 5", l.burst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "https://doi.org/10.1000/x"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "not a url"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	url := "https://doi.org/x"

	if !limiter.Allow(url) {
		t.Fatal("first request should pass")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, url); err == nil {
		t.Error("expected wait to fail once the token budget exceeds the deadline")
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	start := time.Now()
	if err := limiter.WaitWithDelay(ctx, "https://example.com", 50*time.Millisecond); err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}

	if duration := time.Since(start); duration < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", duration)
	}
}

func TestLimiter_PerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if !limiter.Allow("https://Example.com:8443/a") {
		t.Fatal("first request should pass")
	}

	// Host matching ignores case and port
	if limiter.Allow("https://example.com/b") {
		t.Error("expected the shared host budget to be exhausted")
	}

	if !limiter.Allow("https://other.example/") {
		t.Error("expected allow for other host")
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(10, 10)

	limiter.SetHostRate("EUTILS.ncbi.nlm.nih.gov", 0.1, 1)

	url := "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
	if !limiter.Allow(url) {
		t.Errorf("first request should pass")
	}
	if limiter.Allow(url) {
		t.Errorf("second request should fail")
	}

	if !limiter.Allow("https://doi.org/") {
		t.Errorf("other host should pass")
	}
}

func TestHostKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://example.com/foo", "example.com", false},
		{"https://PubMed.ncbi.nlm.nih.gov:443/1/", "pubmed.ncbi.nlm.nih.gov", false},
		{"::invalid", "", true},
		{"relative/path", "", true},
	}

	for _, tt := range tests {
		got, err := hostKey(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("hostKey(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("hostKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
