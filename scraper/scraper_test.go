package scraper

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aluiziolira/mp-attendance/config"
	"github.com/aluiziolira/mp-attendance/models"
	"github.com/jarcoal/httpmock"
)

const testPage = "http://example.test/en/members-of-parliament/mp-listing"

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://example.test"
	cfg.Delay = 0
	cfg.MaxAttempts = 3
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 4 * time.Millisecond
	return cfg
}

func newTestFetcher(t *testing.T, cfg *config.Config, transport *httpmock.MockTransport) *Fetcher {
	t.Helper()
	f, err := NewFetcher(cfg)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	f.WithTransport(transport)
	return f
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

// sequenceResponder answers with statuses in order, then 200 with body.
func sequenceResponder(calls *int64, body string, statuses ...int) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		n := atomic.AddInt64(calls, 1)
		if int(n) <= len(statuses) {
			return httpmock.NewStringResponse(statuses[n-1], ""), nil
		}
		resp := httpmock.NewStringResponse(200, body)
		resp.Header.Set("Content-Type", "text/html")
		return resp, nil
	}
}

func TestFetcherBackoff(t *testing.T) {
	cfg := testConfig()
	cfg.RetryBackoff = 200 * time.Millisecond
	cfg.RetryBackoffMax = 500 * time.Millisecond

	f, err := NewFetcher(cfg)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}

	if got := f.backoff(1); got != 200*time.Millisecond {
		t.Fatalf("backoff(1) = %v, want 200ms", got)
	}
	if got := f.backoff(2); got != 400*time.Millisecond {
		t.Fatalf("backoff(2) = %v, want 400ms", got)
	}
	if got := f.backoff(4); got > cfg.RetryBackoffMax {
		t.Fatalf("delay %v exceeds max %v", got, cfg.RetryBackoffMax)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", err: errors.New("Internal Server Error"), statusCode: http.StatusInternalServerError, expected: "http_status"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestFetchSendsClientHeaders(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	var gotUA, gotAccept, gotLang string
	transport.RegisterResponder("GET", testPage, func(req *http.Request) (*http.Response, error) {
		gotUA = req.Header.Get("User-Agent")
		gotAccept = req.Header.Get("Accept")
		gotLang = req.Header.Get("Accept-Language")
		return httpmock.NewStringResponse(200, "<html>ok</html>"), nil
	})

	f := newTestFetcher(t, cfg, transport)
	body, err := f.Fetch(context.Background(), testPage)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if body != "<html>ok</html>" {
		t.Fatalf("body = %q", body)
	}
	if gotUA != cfg.UserAgent {
		t.Fatalf("user agent = %q, want %q", gotUA, cfg.UserAgent)
	}
	if gotAccept != acceptHeader {
		t.Fatalf("accept = %q, want %q", gotAccept, acceptHeader)
	}
	if gotLang != cfg.AcceptLanguage {
		t.Fatalf("accept-language = %q, want %q", gotLang, cfg.AcceptLanguage)
	}
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	var calls int64
	transport.RegisterResponder("GET", testPage, sequenceResponder(&calls, "<p>third time</p>", 503, 502))

	f := newTestFetcher(t, cfg, transport)
	body, err := f.Fetch(context.Background(), testPage)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if body != "<p>third time</p>" {
		t.Fatalf("body = %q", body)
	}
	if got := atomic.LoadInt64(&calls); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}

	var result models.RunResult
	f.Fill(&result)
	if result.RetryCount != 2 || result.ErrorCount != 2 || result.RequestCount != 3 {
		t.Fatalf("result = %+v, want 2 retries, 2 errors, 3 requests", result)
	}
	if result.ErrorsByType["http_status"] != 2 {
		t.Fatalf("errors by type = %v", result.ErrorsByType)
	}
	if len(result.FailedURLs) != 0 {
		t.Fatalf("failed urls = %v, want none", result.FailedURLs)
	}
}

func TestFetchExhaustsAttempts(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	var calls int64
	transport.RegisterResponder("GET", testPage, sequenceResponder(&calls, "", 500, 500, 500, 500))

	f := newTestFetcher(t, cfg, transport)
	_, err := f.Fetch(context.Background(), testPage)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fetchErr.URL != testPage || fetchErr.Attempts != 3 {
		t.Fatalf("fetch error = %+v", fetchErr)
	}
	var status ErrHTTPStatus
	if !errors.As(err, &status) || status.StatusCode != 500 {
		t.Fatalf("expected wrapped ErrHTTPStatus 500, got %v", err)
	}
	if got := atomic.LoadInt64(&calls); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}

	var result models.RunResult
	f.Fill(&result)
	if len(result.FailedURLs) != 1 || result.FailedURLs[0] != testPage {
		t.Fatalf("failed urls = %v", result.FailedURLs)
	}
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	var calls int64
	transport.RegisterResponder("GET", testPage, sequenceResponder(&calls, "", 404, 404, 404))

	f := newTestFetcher(t, cfg, transport)
	_, err := f.Fetch(context.Background(), testPage)

	var notFound ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestFetchTransportError(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testPage, httpmock.NewErrorResponder(errors.New("connection reset")))

	f := newTestFetcher(t, cfg, transport)
	_, err := f.Fetch(context.Background(), testPage)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Attempts != cfg.MaxAttempts {
		t.Fatalf("expected FetchError after %d attempts, got %v", cfg.MaxAttempts, err)
	}
}

func TestFetchRepeatsReachOrigin(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	var calls int64
	transport.RegisterResponder("GET", testPage, sequenceResponder(&calls, "<p>fresh</p>"))

	f := newTestFetcher(t, cfg, transport)
	for i := 0; i < 2; i++ {
		if _, err := f.Fetch(context.Background(), testPage); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if got := atomic.LoadInt64(&calls); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}

	var result models.RunResult
	f.Fill(&result)
	if result.RequestCount != 2 {
		t.Fatalf("request count = %d, want 2", result.RequestCount)
	}
}

func TestFetchPacesConsecutiveRequests(t *testing.T) {
	cfg := testConfig()
	cfg.Delay = 40 * time.Millisecond
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testPage+"?page=1", htmlResponder("<p>1</p>"))
	transport.RegisterResponder("GET", testPage+"?page=2", htmlResponder("<p>2</p>"))

	f := newTestFetcher(t, cfg, transport)
	start := time.Now()
	for _, u := range []string{testPage + "?page=1", testPage + "?page=2"} {
		if _, err := f.Fetch(context.Background(), u); err != nil {
			t.Fatalf("fetch %s: %v", u, err)
		}
	}
	if elapsed := time.Since(start); elapsed < cfg.Delay {
		t.Fatalf("elapsed %v, want at least %v between requests", elapsed, cfg.Delay)
	}
}

func TestFetchStopsBackoffOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.RetryBackoff = time.Hour
	cfg.RetryBackoffMax = time.Hour
	transport := httpmock.NewMockTransport()
	var calls int64
	transport.RegisterResponder("GET", testPage, sequenceResponder(&calls, "", 503, 503, 503))

	f := newTestFetcher(t, cfg, transport)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctx, testPage)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("fetch did not stop after cancellation")
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestFetchRejectsForeignDomain(t *testing.T) {
	cfg := testConfig()
	transport := httpmock.NewMockTransport()
	f := newTestFetcher(t, cfg, transport)

	_, err := f.Fetch(context.Background(), "http://elsewhere.test/page")
	if err == nil {
		t.Fatalf("expected error for foreign domain")
	}
}
