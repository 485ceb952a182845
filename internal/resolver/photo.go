// internal/resolver/photo.go
package resolver

import (
	"context"
	"net/url"
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/valpere/CellarScrapexter/internal/monitoring"
	"github.com/valpere/CellarScrapexter/internal/scraper"
	"github.com/valpere/CellarScrapexter/internal/utils"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// PhotoSearch is the generic stock-photo fallback. It asks for a bottle of
// the key's varietal and takes results[0].urls.regular from the response.
type PhotoSearch struct {
	template  string
	accessKey string
	fetcher   scraper.Fetcher
	logger    utils.Logger
	metrics   *monitoring.Metrics
}

// NewPhotoSearch creates the fallback stage client. accessKey is sent as
// the client_id query parameter when set.
func NewPhotoSearch(template, accessKey string, fetcher scraper.Fetcher, logger utils.Logger, metrics *monitoring.Metrics) *PhotoSearch {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &PhotoSearch{
		template:  template,
		accessKey: accessKey,
		fetcher:   fetcher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Search returns the first photo for the key's varietal
func (p *PhotoSearch) Search(ctx context.Context, key types.WineKey) (types.ImageCandidate, bool) {
	target, err := p.requestURL(photoQuery(key))
	if err != nil {
		p.logger.Warn("invalid photo search URL", "template", p.template, "error", err)
		return types.ImageCandidate{}, false
	}

	doc, err := p.fetcher.Fetch(ctx, target)
	if err != nil {
		p.logger.Debug("photo search failed", "wine", key.String(), "error", err)
		return types.ImageCandidate{}, false
	}

	photo, ok := firstPhoto(doc)
	if !ok {
		p.metrics.ObserveMalformed(string(types.StrategyFallbackSearch))
		return types.ImageCandidate{}, false
	}
	if scraper.HasExclusionKeyword(photo) {
		p.logger.Debug("photo rejected", "wine", key.String(), "url", photo)
		return types.ImageCandidate{}, false
	}
	return types.ImageCandidate{URL: photo, Strategy: types.StrategyFallbackSearch}, true
}

func (p *PhotoSearch) requestURL(query string) (string, error) {
	u, err := url.Parse(searchURL(p.template, query))
	if err != nil {
		return "", err
	}
	if p.accessKey != "" {
		q := u.Query()
		q.Set("client_id", p.accessKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func photoQuery(key types.WineKey) string {
	varietal := collapse(key.Varietal)
	if varietal == "" {
		varietal = types.DefaultVarietal
	}
	return varietal + " wine bottle"
}

func firstPhoto(doc string) (string, bool) {
	root, err := jason.NewObjectFromBytes([]byte(doc))
	if err != nil {
		return "", false
	}
	results, err := root.GetObjectArray("results")
	if err != nil || len(results) == 0 {
		return "", false
	}
	photo, err := results[0].GetString("urls", "regular")
	if err != nil {
		return "", false
	}
	if !strings.HasPrefix(photo, "https://") && !strings.HasPrefix(photo, "http://") {
		return "", false
	}
	return photo, true
}
