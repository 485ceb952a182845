// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/internal/monitoring"
	"github.com/valpere/CellarScrapexter/internal/source"
	"github.com/valpere/CellarScrapexter/internal/utils"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// ImportPipeline runs sources through parse -> normalize -> merge.
type ImportPipeline struct {
	parse   source.LineParser
	logger  utils.Logger
	metrics *monitoring.Metrics
}

// ImportResult summarizes one import batch
type ImportResult struct {
	Observed       int               `json:"observed"`
	Parsed         int               `json:"parsed"`
	ParseFailures  int               `json:"parse_failures"`
	Rejected       int               `json:"rejected"`
	SourceFailures int               `json:"source_failures"`
	Added          int               `json:"added"`
	AlreadyPresent int               `json:"already_present"`
	Stats          Stats             `json:"stats"`
	Errors         []ProcessingError `json:"errors,omitempty"`
	Duration       time.Duration     `json:"duration"`
}

// ProcessingError represents an error that occurred during processing
type ProcessingError struct {
	Stage   string    `json:"stage"`
	Source  string    `json:"source"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	Fatal   bool      `json:"fatal"`
}

// NewImportPipeline creates a new import pipeline
func NewImportPipeline(logger utils.Logger, metrics *monitoring.Metrics) *ImportPipeline {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &ImportPipeline{
		parse:   ParseLine,
		logger:  logger,
		metrics: metrics,
	}
}

// SetParser replaces the line parser
func (p *ImportPipeline) SetParser(parse source.LineParser) {
	p.parse = parse
}

// Import reads every source and merges the surviving records into catalog.
// Per-line and per-source failures are counted, never returned; the only
// error is context cancellation, in which case the catalog is untouched.
func (p *ImportPipeline) Import(ctx context.Context, sources []source.Source, catalog *Catalog) (*ImportResult, error) {
	startTime := time.Now()
	result := &ImportResult{}

	var batch []types.WineRecord

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		// Stage 1: extraction
		records, errs := src.Records(ctx, p.parse)
		for _, err := range errs {
			p.recordFailure(result, src.Name(), err)
		}
		result.Parsed += len(records)

		// Stage 2: normalization and validation
		for _, rec := range records {
			normalized, err := NormalizeRecord(rec)
			if err != nil {
				result.Rejected++
				result.Errors = append(result.Errors, ProcessingError{
					Stage:   "validation",
					Source:  src.Name(),
					Message: err.Error(),
					Time:    time.Now(),
				})
				p.logger.Warn("record rejected", "source", src.Name(), "error", err)
				continue
			}
			batch = append(batch, normalized)
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	// Stage 3: merge
	result.Added = catalog.Merge(batch)
	result.AlreadyPresent = len(batch) - result.Added
	result.Observed = result.Parsed + result.ParseFailures
	result.Stats = ComputeStats(batch)
	result.Duration = time.Since(startTime)

	p.metrics.ObserveImport(result.Parsed, result.ParseFailures, result.Rejected, result.Added)
	p.logger.Info("import completed",
		"observed", result.Observed,
		"parsed", result.Parsed,
		"parse_failures", result.ParseFailures,
		"rejected", result.Rejected,
		"added", result.Added,
		"already_present", result.AlreadyPresent,
		"catalog_size", catalog.Len(),
		"duration", result.Duration)

	return result, nil
}

func (p *ImportPipeline) recordFailure(result *ImportResult, sourceName string, err error) {
	stage := "extraction"
	switch errors.KindOf(err) {
	case errors.KindParseFailure:
		result.ParseFailures++
		p.logger.Warn("line skipped", "source", sourceName, "error", utils.Truncate(err.Error(), 200))
	default:
		stage = "source"
		result.SourceFailures++
		p.logger.Error("source failed", "source", sourceName, "error", err)
	}

	result.Errors = append(result.Errors, ProcessingError{
		Stage:   stage,
		Source:  sourceName,
		Message: err.Error(),
		Time:    time.Now(),
	})
}

// Summary renders the counts an operator sees after an import.
func (r *ImportResult) Summary() string {
	return fmt.Sprintf("added %d, already present %d, parse failures %d, rejected %d (observed %d)",
		r.Added, r.AlreadyPresent, r.ParseFailures, r.Rejected, r.Observed)
}
