// internal/pipeline/enrich.go
package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/valpere/CellarScrapexter/internal/monitoring"
	"github.com/valpere/CellarScrapexter/internal/store"
	"github.com/valpere/CellarScrapexter/internal/utils"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// ImageResolver resolves a wine key to an image. Implementations never fail.
type ImageResolver interface {
	Resolve(ctx context.Context, key types.WineKey) types.ImageCandidate
}

// EnricherConfig holds enrichment settings
type EnricherConfig struct {
	Workers int  `yaml:"workers" json:"workers"`
	Force   bool `yaml:"force" json:"force"`
}

// Enricher attaches images to catalog records with a bounded worker pool.
type Enricher struct {
	resolver ImageResolver
	store    store.RecordStore
	config   EnricherConfig
	logger   utils.Logger
	metrics  *monitoring.Metrics
}

// EnrichResult summarizes one enrichment run
type EnrichResult struct {
	Attempted   int                    `json:"attempted"`
	ByStrategy  map[types.Strategy]int `json:"by_strategy"`
	StoreErrors int                    `json:"store_errors"`
	Duration    time.Duration          `json:"duration"`
}

type enrichOutcome struct {
	record      types.WineRecord
	strategy    types.Strategy
	storeErrors int
}

// NewEnricher creates a new enricher. recordStore may be nil, in which case
// no persistent image cache is consulted.
func NewEnricher(resolver ImageResolver, recordStore store.RecordStore, cfg EnricherConfig, logger utils.Logger, metrics *monitoring.Metrics) *Enricher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Enricher{
		resolver: resolver,
		store:    recordStore,
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Enrich resolves an image for every catalog record that lacks one (every
// record when Force is set) and writes the results back through the merger.
// On cancellation the records finished so far are still merged; resolutions
// cut short by the cancellation are dropped.
func (e *Enricher) Enrich(ctx context.Context, catalog *Catalog) (*EnrichResult, error) {
	startTime := time.Now()
	result := &EnrichResult{ByStrategy: make(map[types.Strategy]int)}

	var targets []types.WineRecord
	for _, r := range catalog.Records() {
		if e.config.Force || !r.HasImage() {
			targets = append(targets, r)
		}
	}
	result.Attempted = len(targets)

	var (
		mu       sync.Mutex
		outcomes = make([]enrichOutcome, 0, len(targets))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)

	for _, rec := range targets {
		rec := rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, ok := e.enrichOne(gctx, rec)
			if !ok {
				return gctx.Err()
			}
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}
	waitErr := g.Wait()

	updated := make([]types.WineRecord, 0, len(outcomes))
	for _, o := range outcomes {
		updated = append(updated, o.record)
		result.ByStrategy[o.strategy]++
		result.StoreErrors += o.storeErrors
	}
	catalog.Merge(updated)
	result.Duration = time.Since(startTime)

	e.logger.Info("enrichment completed",
		"attempted", result.Attempted,
		"resolved", len(outcomes),
		"store_errors", result.StoreErrors,
		"duration", result.Duration)

	if waitErr != nil {
		return result, waitErr
	}
	return result, ctx.Err()
}

// enrichOne reports false when ctx ended during resolution. The cascade then
// answers with a placeholder that must not reach the catalog or the store.
func (e *Enricher) enrichOne(ctx context.Context, rec types.WineRecord) (enrichOutcome, bool) {
	outcome := enrichOutcome{record: rec}

	var stored *store.Record
	if e.store != nil {
		found, err := e.store.FindRecordByKey(ctx, rec.Name, rec.Producer, rec.Vintage)
		if err != nil {
			outcome.storeErrors++
			e.logger.Warn("record lookup failed", "wine", rec.Key().String(), "error", err)
		}
		stored = found
		if stored != nil && stored.Image != "" && !e.config.Force {
			outcome.record.Image = types.StringPtr(stored.Image)
			outcome.strategy = types.StrategyCached
			e.metrics.ObserveResolution(types.StrategyCached)
			return outcome, true
		}
	}

	candidate := e.resolver.Resolve(ctx, rec.Key())
	if ctx.Err() != nil {
		e.logger.Debug("resolution interrupted", "wine", rec.Key().String())
		return outcome, false
	}
	outcome.record.Image = types.StringPtr(candidate.URL)
	outcome.strategy = candidate.Strategy

	if e.store == nil {
		return outcome, true
	}

	var err error
	if stored == nil {
		_, err = e.store.CreateRecord(ctx, outcome.record)
	} else {
		err = e.store.UpdateRecordImage(ctx, stored.ID, candidate.URL)
	}
	if err != nil {
		outcome.storeErrors++
		e.logger.Warn("record persist failed", "wine", rec.Key().String(), "error", err)
	}
	return outcome, true
}
