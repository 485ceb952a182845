// internal/scraper/client_test.go
package scraper

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/CellarScrapexter/internal/errors"
)

const searchURL = "https://search.example.com/wines?q=bramare"

func newMockedFetcher(t *testing.T, cfg FetcherConfig) (*HTTPFetcher, *httpmock.MockTransport) {
	t.Helper()
	f := NewHTTPFetcher(cfg, nil, nil)
	mock := httpmock.NewMockTransport()
	f.HTTPClient().Transport = mock
	t.Cleanup(func() { f.Close() })
	return f, mock
}

func TestHTTPFetcherFetch(t *testing.T) {
	f, mock := newMockedFetcher(t, FetcherConfig{UserAgents: []string{"cellar-test/1.0"}})

	var gotUA string
	mock.RegisterResponder(http.MethodGet, searchURL, func(req *http.Request) (*http.Response, error) {
		gotUA = req.Header.Get("User-Agent")
		return httpmock.NewStringResponse(http.StatusOK, "<html>ok</html>"), nil
	})

	body, err := f.Fetch(context.Background(), searchURL)

	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", body)
	assert.Equal(t, "cellar-test/1.0", gotUA)
}

func TestHTTPFetcherRetriesServerErrors(t *testing.T) {
	f, mock := newMockedFetcher(t, FetcherConfig{Retries: 2, RetryDelay: time.Millisecond})

	calls := 0
	mock.RegisterResponder(http.MethodGet, searchURL, func(*http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return httpmock.NewStringResponse(http.StatusServiceUnavailable, "busy"), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, "recovered"), nil
	})

	body, err := f.Fetch(context.Background(), searchURL)

	require.NoError(t, err)
	assert.Equal(t, "recovered", body)
	assert.Equal(t, 2, calls)
}

func TestHTTPFetcherDoesNotRetryClientErrors(t *testing.T) {
	f, mock := newMockedFetcher(t, FetcherConfig{Retries: 3, RetryDelay: time.Millisecond})
	mock.RegisterResponder(http.MethodGet, searchURL, httpmock.NewStringResponder(http.StatusNotFound, "missing"))

	_, err := f.Fetch(context.Background(), searchURL)

	require.Error(t, err)
	assert.Equal(t, errors.KindFetchFailure, errors.KindOf(err))
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, 1, mock.GetTotalCallCount())
}

func TestHTTPFetcherCachesDocuments(t *testing.T) {
	f, mock := newMockedFetcher(t, FetcherConfig{CacheTTL: time.Minute})
	mock.RegisterResponder(http.MethodGet, searchURL, httpmock.NewStringResponder(http.StatusOK, "cached"))

	for i := 0; i < 3; i++ {
		body, err := f.Fetch(context.Background(), searchURL)
		require.NoError(t, err)
		assert.Equal(t, "cached", body)
	}

	assert.Equal(t, 1, mock.GetTotalCallCount())
	assert.Equal(t, 1, f.Stats().CachedDocuments)
}

func TestHTTPFetcherCircuitBreaker(t *testing.T) {
	f, mock := newMockedFetcher(t, FetcherConfig{BreakerFailures: 2, BreakerReset: time.Minute})

	failing := true
	mock.RegisterResponder(http.MethodGet, searchURL, func(*http.Request) (*http.Response, error) {
		if failing {
			return httpmock.NewStringResponse(http.StatusBadGateway, "down"), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, "up"), nil
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.Fetch(ctx, searchURL)
		require.Error(t, err)
	}
	breaker := f.Breaker("search.example.com")
	assert.Equal(t, errors.CircuitOpen, breaker.GetState())

	_, err := f.Fetch(ctx, searchURL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, 2, mock.GetTotalCallCount(), "open circuit short-circuits")

	failing = false
	later := time.Now().Add(2 * time.Minute)
	breaker.SetClock(func() time.Time { return later })

	body, err := f.Fetch(ctx, searchURL)
	require.NoError(t, err)
	assert.Equal(t, "up", body)
	assert.Equal(t, errors.CircuitClosed, breaker.GetState())
}

func TestHTTPFetcherInvalidURL(t *testing.T) {
	f, mock := newMockedFetcher(t, FetcherConfig{})

	for _, raw := range []string{"", "not a url", "ftp://search.example.com/x", "/relative"} {
		_, err := f.Fetch(context.Background(), raw)
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, errors.ErrFetchFailure), raw)
	}
	assert.Zero(t, mock.GetTotalCallCount())
}

func TestHTTPFetcherNetworkError(t *testing.T) {
	f, mock := newMockedFetcher(t, FetcherConfig{Retries: 1, RetryDelay: time.Millisecond})
	mock.RegisterResponder(http.MethodGet, searchURL, httpmock.NewErrorResponder(stderrors.New("connection reset")))

	_, err := f.Fetch(context.Background(), searchURL)

	require.Error(t, err)
	assert.Equal(t, errors.KindFetchFailure, errors.KindOf(err))
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 2, mock.GetTotalCallCount())
}

func TestHTTPFetcherCancelledContextKeepsBreakerClosed(t *testing.T) {
	f, mock := newMockedFetcher(t, FetcherConfig{BreakerFailures: 1})
	mock.RegisterResponder(http.MethodGet, searchURL, httpmock.NewStringResponder(http.StatusOK, "never"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, searchURL)

	require.Error(t, err)
	assert.Equal(t, errors.CircuitClosed, f.Breaker("search.example.com").GetState())
}
