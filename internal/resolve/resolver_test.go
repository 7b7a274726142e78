package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/evidentia/internal/model"
)

func init() {
	// Disable retry sleep in all tests for fast execution
	resolveSleepFunc = func(d time.Duration) {}
}

func newTestServer(t *testing.T, flakyHits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
		case "/ok", "/private/ok":
			w.WriteHeader(http.StatusOK)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/gone":
			w.WriteHeader(http.StatusGone)
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
		case "/head-refused":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/flaky":
			if atomic.AddInt32(flakyHits, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/down":
			w.WriteHeader(http.StatusBadGateway)
		case "/10.1000/abc/", "/10.1000/abc":
			w.WriteHeader(http.StatusOK)
		case "/12345/":
			if r.Method != http.MethodHead {
				t.Errorf("Expected HEAD request, got %s", r.Method)
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func urlMention(u string) model.CitationMention {
	return model.CitationMention{Text: u, Type: model.MentionURL, Value: u, Certainty: model.CertaintyMedium}
}

func TestResolver_Resolve(t *testing.T) {
	var flaky int32
	server := newTestServer(t, &flaky)

	resolver := NewResolver(Options{
		Timeout:       5 * time.Second,
		MaxWorkers:    4,
		RespectRobots: true,
		DOIBaseURL:    server.URL,
		PubMedBaseURL: server.URL + "/",
	})

	audit := model.CitationAudit{Mentions: []model.CitationMention{
		urlMention(server.URL + "/ok"),
		urlMention(server.URL + "/missing"),
		urlMention(server.URL + "/gone"),
		urlMention(server.URL + "/forbidden"),
		urlMention(server.URL + "/private/ok"),
		urlMention(server.URL + "/head-refused"),
		urlMention(server.URL + "/flaky"),
		{Type: model.MentionDOI, Value: "10.1000/abc", Certainty: model.CertaintyLow},
		{Type: model.MentionPMID, Value: "12345", Certainty: model.CertaintyMedium},
		{Type: model.MentionJournalTitle, Value: "Lancet", Certainty: model.CertaintyLow},
	}}
	original := make([]model.CitationMention, len(audit.Mentions))
	copy(original, audit.Mentions)

	resolved, checks := resolver.Resolve(context.Background(), audit)

	want := []struct {
		status    Status
		certainty model.MentionCertainty
	}{
		{StatusReachable, model.CertaintyHigh},
		{StatusDead, model.CertaintyUncertain},
		{StatusDead, model.CertaintyUncertain},
		{StatusUnknown, model.CertaintyMedium},
		{StatusBlocked, model.CertaintyMedium},
		{StatusReachable, model.CertaintyHigh},
		{StatusReachable, model.CertaintyHigh},
		{StatusReachable, model.CertaintyHigh},
		{StatusReachable, model.CertaintyHigh},
		{StatusSkipped, model.CertaintyLow},
	}

	if len(resolved.Mentions) != len(want) || len(checks) != len(want) {
		t.Fatalf("Expected %d mentions and checks, got %d and %d", len(want), len(resolved.Mentions), len(checks))
	}
	for i, w := range want {
		if checks[i].Status != w.status {
			t.Errorf("mention %d (%s): status = %s, want %s", i, checks[i].URL, checks[i].Status, w.status)
		}
		if resolved.Mentions[i].Certainty != w.certainty {
			t.Errorf("mention %d: certainty = %s, want %s", i, resolved.Mentions[i].Certainty, w.certainty)
		}
	}

	for i := range original {
		if audit.Mentions[i] != original[i] {
			t.Errorf("input mention %d was modified", i)
		}
	}

	if got := atomic.LoadInt32(&flaky); got != 3 {
		t.Errorf("Expected 3 attempts for the flaky link, got %d", got)
	}
}

func TestResolver_ExhaustedRetriesLeaveCertainty(t *testing.T) {
	server := newTestServer(t, nil)
	resolver := NewResolver(Options{Timeout: 5 * time.Second})

	resolved, checks := resolver.Resolve(context.Background(), model.CitationAudit{
		Mentions: []model.CitationMention{urlMention(server.URL + "/down")},
	})

	if checks[0].Status != StatusUnknown || checks[0].StatusCode != http.StatusBadGateway {
		t.Errorf("Unexpected check %+v", checks[0])
	}
	if resolved.Mentions[0].Certainty != model.CertaintyMedium {
		t.Errorf("Expected certainty unchanged, got %s", resolved.Mentions[0].Certainty)
	}
}

func TestResolver_ConnectionFailureIsDead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL + "/x"
	server.Close()

	resolver := NewResolver(Options{Timeout: time.Second})
	resolved, checks := resolver.Resolve(context.Background(), model.CitationAudit{
		Mentions: []model.CitationMention{urlMention(target)},
	})

	if checks[0].Status != StatusDead || checks[0].Error == "" {
		t.Errorf("Expected dead check with error, got %+v", checks[0])
	}
	if resolved.Mentions[0].Certainty != model.CertaintyUncertain {
		t.Errorf("Expected uncertain, got %s", resolved.Mentions[0].Certainty)
	}
}

func TestResolver_CancelledContext(t *testing.T) {
	server := newTestServer(t, nil)
	resolver := NewResolver(Options{Timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolved, checks := resolver.Resolve(ctx, model.CitationAudit{
		Mentions: []model.CitationMention{urlMention(server.URL + "/ok")},
	})

	if checks[0].Status != StatusSkipped {
		t.Errorf("Expected skipped check, got %s", checks[0].Status)
	}
	if resolved.Mentions[0].Certainty != model.CertaintyMedium {
		t.Errorf("Expected certainty unchanged, got %s", resolved.Mentions[0].Certainty)
	}
}

func TestResolver_Empty(t *testing.T) {
	resolved, checks := NewResolver(Options{}).Resolve(context.Background(), model.CitationAudit{})
	if len(resolved.Mentions) != 0 || len(checks) != 0 {
		t.Errorf("Expected empty result, got %+v %+v", resolved, checks)
	}
}

func TestResolver_TargetURL(t *testing.T) {
	resolver := NewResolver(Options{})

	tests := []struct {
		mention model.CitationMention
		want    string
	}{
		{model.CitationMention{Type: model.MentionDOI, Value: "10.1056/NEJMoa1"}, "https://doi.org/10.1056/nejmoa1"},
		{model.CitationMention{Type: model.MentionDOI, Value: "doi:10.1/x"}, "https://doi.org/10.1/x"},
		{model.CitationMention{Type: model.MentionPMID, Value: "123"}, "https://pubmed.ncbi.nlm.nih.gov/123/"},
		{model.CitationMention{Type: model.MentionURL, Value: "https://example.com/a"}, "https://example.com/a"},
		{model.CitationMention{Type: model.MentionURL, Value: "ftp://example.com/a"}, ""},
		{model.CitationMention{Type: model.MentionURL, Value: "/relative"}, ""},
		{model.CitationMention{Type: model.MentionAuthorYear, Value: "Smith 2020"}, ""},
		{model.CitationMention{Type: model.MentionPMID, Value: " "}, ""},
	}

	for _, tt := range tests {
		if got := resolver.TargetURL(tt.mention); got != tt.want {
			t.Errorf("TargetURL(%+v) = %q, want %q", tt.mention, got, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		check Check
		want  bool
	}{
		{Check{StatusCode: 503}, true},
		{Check{StatusCode: 429}, true},
		{Check{StatusCode: 404}, false},
		{Check{Error: "request failed: dial tcp: connection refused"}, true},
		{Check{Error: "request failed: read: connection reset by peer"}, true},
		{Check{Error: "request failed: (Client.Timeout exceeded while awaiting headers)"}, true},
		{Check{Error: "request failed: no such host"}, false},
	}

	for _, tt := range tests {
		if got := isRetryable(tt.check); got != tt.want {
			t.Errorf("isRetryable(%+v) = %v, want %v", tt.check, got, tt.want)
		}
	}
}
