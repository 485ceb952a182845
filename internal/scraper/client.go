// internal/scraper/client.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	"github.com/valpere/CellarScrapexter/internal/config"
	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/internal/monitoring"
	"github.com/valpere/CellarScrapexter/internal/utils"
)

const defaultMaxBodyBytes = 5 << 20

// HTTPFetcher fetches search documents with a timeout, bounded retries, a
// per-host delay, a per-host circuit breaker and a short-lived document
// cache. Concurrent fetches of the same URL share one request.
type HTTPFetcher struct {
	httpClient *http.Client
	userAgents []string
	currentUA  int
	uaMutex    sync.Mutex
	retries    int
	retryDelay time.Duration
	maxBody    int64
	hosts      *utils.HostLimiter
	breakers   *errors.Service
	documents  *cache.Cache
	inflight   singleflight.Group
	logger     utils.Logger
	metrics    *monitoring.Metrics
}

// NewHTTPFetcher creates a new HTTP fetcher with the specified configuration
func NewHTTPFetcher(cfg FetcherConfig, logger utils.Logger, metrics *monitoring.Metrics) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerReset <= 0 {
		cfg.BreakerReset = time.Minute
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = config.DefaultUserAgents
	}
	if logger == nil {
		logger = utils.NopLogger()
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: otelhttp.NewTransport(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}),
	}

	var documents *cache.Cache
	if cfg.CacheTTL > 0 {
		documents = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}

	breakers := errors.NewService().WithBreakerConfig(errors.CircuitBreakerConfig{
		MaxFailures:  cfg.BreakerFailures,
		ResetTimeout: cfg.BreakerReset,
	})

	return &HTTPFetcher{
		httpClient: httpClient,
		userAgents: cfg.UserAgents,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
		maxBody:    cfg.MaxBodyBytes,
		hosts:      utils.NewHostLimiter(cfg.HostDelay),
		breakers:   breakers,
		documents:  documents,
		logger:     logger,
		metrics:    metrics,
	}
}

// HTTPClient exposes the underlying client so tests can stub its transport
func (f *HTTPFetcher) HTTPClient() *http.Client {
	return f.httpClient
}

// Breaker returns the circuit breaker guarding host
func (f *HTTPFetcher) Breaker(host string) *errors.CircuitBreaker {
	return f.breakers.Breaker(host)
}

// Fetch returns the body of target. Errors are always KindFetchFailure.
func (f *HTTPFetcher) Fetch(ctx context.Context, target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.Newf(errors.KindFetchFailure, "fetch", "invalid URL %q", target)
	}

	if f.documents != nil {
		if doc, ok := f.documents.Get(target); ok {
			return doc.(string), nil
		}
	}

	v, err, _ := f.inflight.Do(target, func() (interface{}, error) {
		return f.fetch(ctx, target, u.Hostname())
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, target, host string) (string, error) {
	breaker := f.breakers.Breaker(host)
	if !breaker.CanExecute() {
		f.metrics.ObserveFetchShortCircuit(host)
		return "", errors.Newf(errors.KindFetchFailure, "fetch", "circuit open for %s", host)
	}

	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if err := f.hosts.Wait(ctx, host); err != nil {
			lastErr = err
			break
		}

		start := time.Now()
		body, retry, err := f.do(ctx, target)
		f.metrics.ObserveFetch(host, time.Since(start), err)
		if err == nil {
			breaker.RecordSuccess()
			if f.documents != nil {
				f.documents.SetDefault(target, body)
			}
			return body, nil
		}

		lastErr = fmt.Errorf("attempt %d/%d: %w", attempt+1, f.retries+1, err)
		f.logger.Debug("fetch failed", "url", target, "attempt", attempt+1, "error", err)

		if !retry || attempt == f.retries {
			break
		}
		if err := f.waitForRetry(ctx, attempt); err != nil {
			lastErr = err
			break
		}
	}

	// a cancelled caller says nothing about the host
	if ctx.Err() == nil {
		breaker.RecordFailure()
	}
	return "", errors.New(errors.KindFetchFailure, "fetch "+host, lastErr)
}

// do performs one request and reports whether a failure is worth retrying
func (f *HTTPFetcher) do(ctx context.Context, target string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	f.setRequestHeaders(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", ctx.Err() == nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", shouldRetryStatusCode(resp.StatusCode), &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        target,
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return "", true, fmt.Errorf("failed to read body: %w", err)
	}
	return string(data), false, nil
}

// setRequestHeaders configures request headers including user agent rotation
func (f *HTTPFetcher) setRequestHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
}

// nextUserAgent returns the next user agent in rotation
func (f *HTTPFetcher) nextUserAgent() string {
	f.uaMutex.Lock()
	defer f.uaMutex.Unlock()

	userAgent := f.userAgents[f.currentUA]
	f.currentUA = (f.currentUA + 1) % len(f.userAgents)
	return userAgent
}

// waitForRetry implements exponential backoff with jitter
func (f *HTTPFetcher) waitForRetry(ctx context.Context, attempt int) error {
	backoff := f.retryDelay * time.Duration(1<<uint(attempt))
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	if half := int64(backoff / 2); half > 0 {
		backoff += time.Duration(rand.Int63n(half))
	}

	timer := time.NewTimer(backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Stats returns basic statistics about the fetcher
func (f *HTTPFetcher) Stats() FetchStats {
	stats := FetchStats{
		UserAgentsCount: len(f.userAgents),
		Retries:         f.retries,
		Timeout:         f.httpClient.Timeout,
		Breakers:        f.breakers.GetCircuitBreakerStats(),
	}
	if f.documents != nil {
		stats.CachedDocuments = f.documents.ItemCount()
	}
	return stats
}

// Close drops cached documents
func (f *HTTPFetcher) Close() error {
	if f.documents != nil {
		f.documents.Flush()
	}
	return nil
}

// shouldRetryStatusCode determines if a status code warrants a retry
func shouldRetryStatusCode(statusCode int) bool {
	switch statusCode {
	case 429, 500, 502, 503, 504, 520, 521, 522, 523, 524:
		return true
	}
	return false
}

// HTTPError represents a non-2xx response
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (URL: %s)", e.StatusCode, e.Status, e.URL)
}

// ClosableFetcher is a Fetcher that holds resources
type ClosableFetcher interface {
	Fetcher
	Close() error
}

// NewFetcher builds the fetcher selected by cfg: a headless browser when
// enabled, plain HTTP otherwise.
func NewFetcher(cfg config.FetchConfig, logger utils.Logger, metrics *monitoring.Metrics) ClosableFetcher {
	if cfg.Browser.Enabled {
		return NewBrowserFetcher(cfg.Browser, cfg.HostDelay, logger, metrics)
	}
	return NewHTTPFetcher(FetcherConfigFrom(cfg), logger, metrics)
}
