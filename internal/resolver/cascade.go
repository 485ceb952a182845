// internal/resolver/cascade.go

// Package resolver finds an image for a wine by trying, in order, the
// operator override table, the external search endpoint with each query
// variant, a generic photo search and finally a static placeholder picked by
// wine color. Resolution never fails.
package resolver

import (
	"context"
	"time"

	"github.com/valpere/CellarScrapexter/internal/config"
	"github.com/valpere/CellarScrapexter/internal/monitoring"
	"github.com/valpere/CellarScrapexter/internal/scraper"
	"github.com/valpere/CellarScrapexter/internal/utils"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// Stage is one step of the cascade. Try reports false to hand over to the
// next stage.
type Stage struct {
	Name string
	Try  func(ctx context.Context, key types.WineKey) (types.ImageCandidate, bool)
}

// OverrideStage consults the manual pin table
func OverrideStage(overrides Overrides) Stage {
	return Stage{
		Name: string(types.StrategyOverride),
		Try: func(ctx context.Context, key types.WineKey) (types.ImageCandidate, bool) {
			entry, ok := overrides.Get(ctx, key)
			if !ok {
				return types.ImageCandidate{}, false
			}
			return types.ImageCandidate{URL: entry.ImageURL, Strategy: types.StrategyOverride}, true
		},
	}
}

// SearchStage runs the external search with every query variant
func SearchStage(searcher *Searcher) Stage {
	return Stage{Name: "external-search", Try: searcher.Search}
}

// PhotoStage runs the generic photo search
func PhotoStage(photos *PhotoSearch) Stage {
	return Stage{Name: string(types.StrategyFallbackSearch), Try: photos.Search}
}

// Cascade runs its stages in order and falls back to the placeholder.
type Cascade struct {
	stages      []Stage
	placeholder *Placeholder
	logger      utils.Logger
	metrics     *monitoring.Metrics
}

// NewCascade creates a cascade over stages. A nil placeholder uses the
// default color images.
func NewCascade(stages []Stage, placeholder *Placeholder, logger utils.Logger, metrics *monitoring.Metrics) *Cascade {
	if placeholder == nil {
		placeholder = NewPlaceholder(nil)
	}
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Cascade{
		stages:      stages,
		placeholder: placeholder,
		logger:      logger,
		metrics:     metrics,
	}
}

// New assembles the standard cascade from the images configuration:
// overrides, external search, photo search (when configured) and the
// placeholder.
func New(cfg config.ImagesConfig, fetcher scraper.Fetcher, logger utils.Logger, metrics *monitoring.Metrics) *Cascade {
	mediaHost := cfg.MediaHost
	if mediaHost == "" {
		mediaHost = config.DefaultMediaHost
	}
	selectors := cfg.StateSelectors
	if len(selectors) == 0 {
		selectors = config.DefaultStateSelectors
	}

	var stages []Stage
	if cfg.OverrideFile != "" {
		stages = append(stages, OverrideStage(NewOverrideTable(cfg.OverrideFile, cfg.OverrideTTL, logger, metrics)))
	}
	if cfg.SearchURL != "" {
		extractors := scraper.DefaultExtractors(selectors, scraper.ExtractorOptions{
			Validator: scraper.NewURLValidator(mediaHost),
			Logger:    logger,
			Metrics:   metrics,
		})
		stages = append(stages, SearchStage(NewSearcher(cfg.SearchURL, fetcher, extractors, logger)))
	}
	if cfg.PhotoSearchURL != "" {
		stages = append(stages, PhotoStage(NewPhotoSearch(cfg.PhotoSearchURL, cfg.PhotoAccessKey, fetcher, logger, metrics)))
	}

	return NewCascade(stages, NewPlaceholder(cfg.Placeholders), logger, metrics)
}

// Stages lists the stage names in order, placeholder last
func (c *Cascade) Stages() []string {
	names := make([]string, 0, len(c.stages)+1)
	for _, s := range c.stages {
		names = append(names, s.Name)
	}
	return append(names, string(types.StrategyPlaceholder))
}

// Resolve returns an image for key. A cancelled context skips the remaining
// stages and lands on the placeholder.
func (c *Cascade) Resolve(ctx context.Context, key types.WineKey) types.ImageCandidate {
	start := time.Now()
	candidate := c.run(ctx, key)

	c.metrics.ObserveResolution(candidate.Strategy)
	c.metrics.ObserveResolveDuration(time.Since(start))
	c.logger.Debug("image resolved",
		"wine", key.String(),
		"strategy", candidate.Strategy,
		"url", candidate.URL,
		"duration", time.Since(start))
	return candidate
}

func (c *Cascade) run(ctx context.Context, key types.WineKey) types.ImageCandidate {
	for _, stage := range c.stages {
		if ctx.Err() != nil {
			break
		}
		if candidate, ok := c.try(ctx, stage, key); ok {
			return candidate
		}
		c.logger.Debug("stage yielded nothing", "stage", stage.Name, "wine", key.String())
	}
	return c.placeholder.Resolve(key)
}

// try isolates a stage so a panicking stage counts as a miss
func (c *Cascade) try(ctx context.Context, stage Stage, key types.WineKey) (candidate types.ImageCandidate, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("stage panicked", "stage", stage.Name, "wine", key.String(), "panic", r)
			candidate, ok = types.ImageCandidate{}, false
		}
	}()
	candidate, ok = stage.Try(ctx, key)
	if ok && candidate.URL == "" {
		return types.ImageCandidate{}, false
	}
	return candidate, ok
}
