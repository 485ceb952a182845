// internal/resolver/search.go
package resolver

import (
	"context"
	"net/url"
	"strings"

	"github.com/valpere/CellarScrapexter/internal/scraper"
	"github.com/valpere/CellarScrapexter/internal/utils"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// queryPlaceholder is replaced with the escaped query in search URL templates
const queryPlaceholder = "{query}"

// Searcher queries the external search endpoint with each query variant in
// turn and runs the extractor chain over every fetched document.
type Searcher struct {
	template   string
	fetcher    scraper.Fetcher
	extractors []scraper.Extractor
	logger     utils.Logger
}

// NewSearcher creates a searcher for a URL template containing {query}
func NewSearcher(template string, fetcher scraper.Fetcher, extractors []scraper.Extractor, logger utils.Logger) *Searcher {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Searcher{
		template:   template,
		fetcher:    fetcher,
		extractors: extractors,
		logger:     logger,
	}
}

// Search returns the first candidate of the first variant that yields any.
// Fetch failures advance to the next variant.
func (s *Searcher) Search(ctx context.Context, key types.WineKey) (types.ImageCandidate, bool) {
	for _, variant := range BuildQueryVariants(key) {
		if ctx.Err() != nil {
			return types.ImageCandidate{}, false
		}

		target := searchURL(s.template, variant)
		doc, err := s.fetcher.Fetch(ctx, target)
		if err != nil {
			s.logger.Debug("search fetch failed", "query", variant, "error", err)
			continue
		}

		if candidates := scraper.FirstCandidates(s.extractors, doc, s.logger); len(candidates) > 0 {
			s.logger.Debug("search matched", "query", variant, "strategy", candidates[0].Strategy)
			return candidates[0], true
		}
	}
	return types.ImageCandidate{}, false
}

func searchURL(template, query string) string {
	return strings.ReplaceAll(template, queryPlaceholder, url.QueryEscape(query))
}
