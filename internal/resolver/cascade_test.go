// internal/resolver/cascade_test.go
package resolver

import (
	"context"
	stderrors "errors"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/CellarScrapexter/internal/config"
	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/internal/monitoring"
	"github.com/valpere/CellarScrapexter/internal/scraper"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

const (
	testMediaHost   = "images.example.com"
	testSearchURL   = "https://search.example.com/wines?q={query}"
	testPhotoURL    = "https://photos.example.com/search/photos?query={query}&per_page=1"
	statePage       = `<script id="__NEXT_DATA__">{"wine":{"image":"//images.example.com/labels/bramare_375x500.png"}}</script>`
	photoResponse   = `{"total":1,"results":[{"id":"p1","urls":{"regular":"https://photos.example.com/p1.jpg","small":"https://photos.example.com/p1-s.jpg"}}]}`
	emptySearchPage = `<html><body><p>No results</p></body></html>`
)

var bramare = types.WineKey{Name: "Bramare Malbec", Producer: "Cobos", Vintage: types.IntPtr(2022), Varietal: "Malbec"}

// recordingFetcher serves canned documents by host and remembers requests
type recordingFetcher struct {
	mu       sync.Mutex
	requests []*url.URL
	docs     map[string][]string
}

func (f *recordingFetcher) Fetch(_ context.Context, target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, u)

	queue := f.docs[u.Host]
	if len(queue) == 0 {
		return "", errors.Newf(errors.KindFetchFailure, "fetch", "no document for %s", target)
	}
	doc := queue[0]
	f.docs[u.Host] = queue[1:]
	if doc == "" {
		return "", errors.Newf(errors.KindFetchFailure, "fetch", "HTTP 503")
	}
	return doc, nil
}

func (f *recordingFetcher) queries(host, param string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, u := range f.requests {
		if u.Host == host {
			out = append(out, u.Query().Get(param))
		}
	}
	return out
}

func testConfig(t *testing.T) config.ImagesConfig {
	return config.ImagesConfig{
		MediaHost:      testMediaHost,
		SearchURL:      testSearchURL,
		PhotoSearchURL: testPhotoURL,
		PhotoAccessKey: "test-key",
		OverrideFile:   filepath.Join(t.TempDir(), "overrides.json"),
		OverrideTTL:    time.Minute,
	}
}

func resolutions(t *testing.T, metrics *monitoring.Metrics) map[string]float64 {
	t.Helper()
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	out := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "t_images_resolutions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			out[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
		}
	}
	return out
}

func TestCascadeOverrideWins(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.OverrideFile, `{"overrides":[{"name":"Bramare Malbec","vineyard":"Cobos","imageUrl":"https://pins.example.com/bramare.png"}]}`)
	fetcher := &recordingFetcher{docs: map[string][]string{}}

	got := New(cfg, fetcher, nil, nil).Resolve(context.Background(), bramare)

	assert.Equal(t, types.ImageCandidate{URL: "https://pins.example.com/bramare.png", Strategy: types.StrategyOverride}, got)
	assert.Empty(t, fetcher.requests, "no network when pinned")
}

func TestCascadeSearchTriesVariantsInOrder(t *testing.T) {
	fetcher := &recordingFetcher{docs: map[string][]string{
		"search.example.com": {"", emptySearchPage, statePage},
	}}
	metrics := monitoring.NewMetrics(monitoring.MetricsConfig{Namespace: "t"})

	got := New(testConfig(t), fetcher, nil, metrics).Resolve(context.Background(), bramare)

	assert.Equal(t, types.StrategyEmbeddedState, got.Strategy)
	assert.Equal(t, "https://images.example.com/labels/bramare_pb_x960.png", got.URL)
	assert.Equal(t, []string{
		"Cobos Bramare Malbec 2022",
		"Cobos Bramare Malbec",
		"Bramare Malbec 2022",
	}, fetcher.queries("search.example.com", "q"), "stops at the first variant with a candidate")
	assert.Empty(t, fetcher.queries("photos.example.com", "query"))
	assert.Equal(t, map[string]float64{"embedded-state": 1}, resolutions(t, metrics))
}

func TestCascadePhotoFallback(t *testing.T) {
	fetcher := &recordingFetcher{docs: map[string][]string{
		"photos.example.com": {photoResponse},
	}}

	got := New(testConfig(t), fetcher, nil, nil).Resolve(context.Background(), bramare)

	assert.Equal(t, types.ImageCandidate{URL: "https://photos.example.com/p1.jpg", Strategy: types.StrategyFallbackSearch}, got)
	assert.Len(t, fetcher.queries("search.example.com", "q"), len(BuildQueryVariants(bramare)))
	assert.Equal(t, []string{"Malbec wine bottle"}, fetcher.queries("photos.example.com", "query"))
	assert.Equal(t, []string{"test-key"}, fetcher.queries("photos.example.com", "client_id"))
}

func TestCascadePhotoExcludedKeyword(t *testing.T) {
	fetcher := &recordingFetcher{docs: map[string][]string{
		"photos.example.com": {`{"results":[{"urls":{"regular":"https://photos.example.com/winery-logo.jpg"}}]}`},
	}}
	cfg := testConfig(t)
	cfg.SearchURL = ""

	got := New(cfg, fetcher, nil, nil).Resolve(context.Background(), bramare)

	assert.Equal(t, types.StrategyPlaceholder, got.Strategy)
	assert.NotContains(t, got.URL, "logo")
}

func TestCascadePhotoResponseMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"not json":      `<html>rate limited</html>`,
		"no results":    `{"results":[]}`,
		"missing url":   `{"results":[{"urls":{}}]}`,
		"relative url":  `{"results":[{"urls":{"regular":"/p1.jpg"}}]}`,
		"results a map": `{"results":{"urls":{"regular":"https://photos.example.com/p1.jpg"}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			fetcher := &recordingFetcher{docs: map[string][]string{"photos.example.com": {body}}}
			cfg := testConfig(t)
			cfg.SearchURL = ""

			got := New(cfg, fetcher, nil, nil).Resolve(context.Background(), bramare)

			assert.Equal(t, types.StrategyPlaceholder, got.Strategy)
		})
	}
}

func TestCascadeTotalWhenEverythingFails(t *testing.T) {
	fetcher := scraper.NewHTTPFetcher(scraper.FetcherConfig{
		Retries:         1,
		RetryDelay:      time.Millisecond,
		BreakerFailures: 100,
	}, nil, nil)
	mock := httpmock.NewMockTransport()
	mock.RegisterNoResponder(httpmock.NewErrorResponder(stderrors.New("network unreachable")))
	fetcher.HTTPClient().Transport = mock
	defer fetcher.Close()

	cascade := New(testConfig(t), fetcher, nil, nil)

	keys := []types.WineKey{
		bramare,
		{Name: "Chablis Premier Cru", Producer: "Fevre", Varietal: "Chardonnay"},
		{},
	}
	for _, key := range keys {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		got := cascade.Resolve(ctx, key)
		cancel()

		assert.Equal(t, types.StrategyPlaceholder, got.Strategy, key.String())
		assert.NotEmpty(t, got.URL, key.String())
	}
	assert.Equal(t, defaultPlaceholders[types.ColorWhite], cascade.Resolve(context.Background(), keys[1]).URL)
	assert.Positive(t, mock.GetTotalCallCount())
}

func TestCascadeCancelledContext(t *testing.T) {
	fetcher := &recordingFetcher{docs: map[string][]string{"search.example.com": {statePage}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := New(testConfig(t), fetcher, nil, nil).Resolve(ctx, bramare)

	assert.Equal(t, types.StrategyPlaceholder, got.Strategy)
	assert.Empty(t, fetcher.requests)
}

func TestCascadeStageIsolation(t *testing.T) {
	stages := []Stage{
		{Name: "broken", Try: func(context.Context, types.WineKey) (types.ImageCandidate, bool) {
			panic("boom")
		}},
		{Name: "empty", Try: func(context.Context, types.WineKey) (types.ImageCandidate, bool) {
			return types.ImageCandidate{Strategy: types.StrategyLinkedData}, true
		}},
		{Name: "working", Try: func(context.Context, types.WineKey) (types.ImageCandidate, bool) {
			return types.ImageCandidate{URL: "https://images.example.com/labels/x.png", Strategy: types.StrategyMarkupPattern}, true
		}},
	}

	got := NewCascade(stages, nil, nil, nil).Resolve(context.Background(), bramare)

	assert.Equal(t, types.StrategyMarkupPattern, got.Strategy)
}

func TestCascadeStages(t *testing.T) {
	cfg := testConfig(t)
	assert.Equal(t, []string{"override", "external-search", "fallback-search", "placeholder"}, New(cfg, nil, nil, nil).Stages())

	cfg.PhotoSearchURL = ""
	cfg.OverrideFile = ""
	assert.Equal(t, []string{"external-search", "placeholder"}, New(cfg, nil, nil, nil).Stages())
}

func TestPlaceholder(t *testing.T) {
	p := NewPlaceholder(map[string]string{
		"White":  " https://cdn.example.com/white.png ",
		"orange": "https://cdn.example.com/orange.png",
		"red":    "",
	})

	tests := []struct {
		varietal string
		want     string
	}{
		{"Chardonnay", "https://cdn.example.com/white.png"},
		{"Malbec", defaultPlaceholders[types.ColorRed]},
		{"Prosecco", defaultPlaceholders[types.ColorSparkling]},
		{"", defaultPlaceholders[types.ColorRed]},
	}
	for _, tt := range tests {
		t.Run(tt.varietal, func(t *testing.T) {
			got := p.Resolve(types.WineKey{Varietal: tt.varietal})
			assert.Equal(t, tt.want, got.URL)
			assert.Equal(t, types.StrategyPlaceholder, got.Strategy)
		})
	}
}

func TestSearchURL(t *testing.T) {
	assert.Equal(t, "https://search.example.com/wines?q=Vi%C3%B1a+Cobos+%26+Co", searchURL(testSearchURL, "Viña Cobos & Co"))
}

func TestPhotoSearchWithoutAccessKey(t *testing.T) {
	fetcher := &recordingFetcher{docs: map[string][]string{"photos.example.com": {photoResponse}}}
	p := NewPhotoSearch(testPhotoURL, "", fetcher, nil, nil)

	got, ok := p.Search(context.Background(), types.WineKey{Name: "Mystery"})

	require.True(t, ok)
	assert.Equal(t, "https://photos.example.com/p1.jpg", got.URL)
	assert.Equal(t, []string{"Red Blend wine bottle"}, fetcher.queries("photos.example.com", "query"))
	assert.Equal(t, []string{""}, fetcher.queries("photos.example.com", "client_id"))
	assert.Equal(t, "1", fetcher.requests[0].Query().Get("per_page"))
}
