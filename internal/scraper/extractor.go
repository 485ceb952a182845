// internal/scraper/extractor.go
package scraper

import (
	"fmt"

	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/internal/monitoring"
	"github.com/valpere/CellarScrapexter/internal/utils"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// Extractor scans one fetched document for image URLs under a single
// structural assumption. Extract never fails: an uninterpretable payload
// yields no candidates.
type Extractor interface {
	Strategy() types.Strategy
	Extract(document string) []types.ImageCandidate
}

// ExtractorOptions are shared by the built-in extractors
type ExtractorOptions struct {
	Validator *URLValidator
	Logger    utils.Logger
	Metrics   *monitoring.Metrics
}

// extractorBase validates, deduplicates and counts raw URLs.
type extractorBase struct {
	strategy  types.Strategy
	validator *URLValidator
	logger    utils.Logger
	metrics   *monitoring.Metrics
}

func newExtractorBase(strategy types.Strategy, opts ExtractorOptions) extractorBase {
	if opts.Logger == nil {
		opts.Logger = utils.NopLogger()
	}
	return extractorBase{
		strategy:  strategy,
		validator: opts.Validator,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Strategy returns the tag attached to this extractor's candidates
func (b extractorBase) Strategy() types.Strategy {
	return b.strategy
}

// accept validates raw URLs in order and drops duplicates after cleaning.
func (b extractorBase) accept(raws []string) []types.ImageCandidate {
	var (
		out  []types.ImageCandidate
		seen = make(map[string]bool, len(raws))
	)
	for _, raw := range raws {
		clean, ok := b.validator.Validate(raw)
		if !ok {
			b.metrics.ObserveCandidateReject()
			continue
		}
		if seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, types.ImageCandidate{URL: clean, Strategy: b.strategy})
	}
	b.metrics.ObserveCandidates(string(b.strategy), len(out))
	return out
}

// malformed records a payload the extractor could not interpret.
func (b extractorBase) malformed(err error) {
	b.metrics.ObserveMalformed(string(b.strategy))
	b.logger.Debug("malformed document", "extractor", b.strategy,
		"error", errors.New(errors.KindMalformedDocument, string(b.strategy), err))
}

// DefaultExtractors returns the extractors in cascade priority order
func DefaultExtractors(stateSelectors []string, opts ExtractorOptions) []Extractor {
	return []Extractor{
		NewEmbeddedStateExtractor(stateSelectors, opts),
		NewMarkupPatternExtractor(opts),
		NewLinkedDataExtractor(opts),
	}
}

// SafeExtract runs ex and converts a panic into zero candidates.
func SafeExtract(ex Extractor, document string, logger utils.Logger) (candidates []types.ImageCandidate) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Error("extractor panicked", "extractor", ex.Strategy(), "panic", fmt.Sprint(r))
			}
			candidates = nil
		}
	}()
	return ex.Extract(document)
}

// FirstCandidates runs extractors in order and returns the first non-empty
// result.
func FirstCandidates(extractors []Extractor, document string, logger utils.Logger) []types.ImageCandidate {
	for _, ex := range extractors {
		if found := SafeExtract(ex, document, logger); len(found) > 0 {
			return found
		}
	}
	return nil
}
