// Package scraper is the fetch layer shared by every pipeline stage: a colly
// collector with per-slot pacing and bounded retries with exponential
// backoff.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/mp-attendance/config"
	"github.com/aluiziolira/mp-attendance/models"
	"github.com/gocolly/colly/v2"
)

const (
	acceptHeader = "text/html,application/xhtml+xml"

	ctxBody   = "body"
	ctxStatus = "status"
)

// Fetcher issues paced, retried GET requests against one origin. It is safe
// for concurrent use; the collector's limit rule bounds requests in flight.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics

	requestCount int64
	errorCount   int64
	retryCount   int64

	mu           sync.Mutex
	failedURLs   []string
	errorsByType map[string]int
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config) (*Fetcher, error) {
	host := cfg.Host()
	if host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(host),
		colly.UserAgent(cfg.UserAgent),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.AllowURLRevisit = true
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	// Each slot sleeps Delay after every request, successful or not.
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	f := &Fetcher{
		cfg:          cfg,
		collector:    collector,
		errorsByType: make(map[string]int),
		Metrics:      NewMetrics(),
	}

	f.configureHandlers()
	return f, nil
}

// WithTransport replaces the HTTP transport used by the collector.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

func (f *Fetcher) configureHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		current := atomic.LoadInt64(&f.requestCount) + 1
		f.Metrics.IncRequest("started")
		if current%50 == 0 {
			slog.Debug("fetch progress",
				slog.Int64("requests", current),
				slog.String("url", r.URL.String()),
			)
		}
	})

	f.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxBody, r.Body)
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.Ctx != nil {
			r.Ctx.Put(ctxStatus, r.StatusCode)
		}
	})
}

// Fetch returns the markup at rawURL. After MaxAttempts failures, or a
// failure that cannot succeed on retry, it returns a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		lastErr  error
		attempts int
	)
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		attempts = attempt

		body, err := f.do(rawURL)
		if err == nil {
			f.Metrics.IncRequest("succeeded")
			return body, nil
		}

		lastErr = err
		category := f.recordError(err)
		slog.Warn("fetch attempt failed",
			slog.String("url", rawURL),
			slog.Int("attempt", attempt),
			slog.String("category", category),
			slog.Any("error", err),
		)

		if !retryable(err) || attempt == f.cfg.MaxAttempts {
			break
		}
		atomic.AddInt64(&f.retryCount, 1)
		f.Metrics.IncRetries()
		if err := sleepContext(ctx, f.backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	f.mu.Lock()
	f.failedURLs = append(f.failedURLs, rawURL)
	f.mu.Unlock()
	f.Metrics.IncRequest("failed")

	return "", &FetchError{URL: rawURL, Attempts: attempts, Err: lastErr}
}

// do performs a single attempt.
func (f *Fetcher) do(rawURL string) (string, error) {
	reqCtx := colly.NewContext()
	hdr := http.Header{}
	hdr.Set("Accept", acceptHeader)
	if f.cfg.AcceptLanguage != "" {
		hdr.Set("Accept-Language", f.cfg.AcceptLanguage)
	}

	start := time.Now()
	err := f.collector.Request(http.MethodGet, rawURL, nil, reqCtx, hdr)
	atomic.AddInt64(&f.requestCount, 1)
	f.Metrics.ObserveDuration(time.Since(start))

	if err != nil {
		status, _ := reqCtx.GetAny(ctxStatus).(int)
		return "", classifyError(err, status)
	}
	body, _ := reqCtx.GetAny(ctxBody).([]byte)
	return string(body), nil
}

func (f *Fetcher) recordError(err error) string {
	atomic.AddInt64(&f.errorCount, 1)
	category := errorTypeLabel(err)

	f.mu.Lock()
	f.errorsByType[category]++
	f.mu.Unlock()

	f.Metrics.IncError(category)
	return category
}

// backoff returns RetryBackoff * 2^(attempt-1), capped at RetryBackoffMax.
func (f *Fetcher) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := f.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := f.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

// Fill copies the fetch counters into result.
func (f *Fetcher) Fill(result *models.RunResult) {
	result.RequestCount = int(atomic.LoadInt64(&f.requestCount))
	result.ErrorCount = int(atomic.LoadInt64(&f.errorCount))
	result.RetryCount = int(atomic.LoadInt64(&f.retryCount))
	result.FailedURLs = f.snapshotFailedURLs()
	result.ErrorsByType = f.snapshotErrors()
}

func (f *Fetcher) snapshotFailedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.failedURLs))
	copy(out, f.failedURLs)
	return out
}

func (f *Fetcher) snapshotErrors() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.errorsByType))
	for k, v := range f.errorsByType {
		out[k] = v
	}
	return out
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		default:
			return ErrHTTPStatus{StatusCode: statusCode, Err: wrapped}
		}
	}

	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
