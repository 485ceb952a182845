// internal/source/source.go
package source

import (
	"context"
	"fmt"

	"github.com/valpere/CellarScrapexter/internal/config"
	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// LineParser turns one semi-structured text line into a record.
type LineParser func(line string) (types.WineRecord, error)

// Source yields raw wine records from one input. Per-line failures are
// returned alongside the records that did parse; a source that cannot be
// opened at all returns a single KindStorage error.
type Source interface {
	Name() string
	Records(ctx context.Context, parse LineParser) ([]types.WineRecord, []error)
}

// Open builds the source described by cfg
func Open(cfg config.SourceConfig) (Source, error) {
	format := cfg.Format
	if format == "" {
		format = config.FormatFromPath(cfg.Path)
	}

	switch format {
	case config.FormatText:
		return &TextSource{Path: cfg.Path}, nil
	case config.FormatHTML:
		if cfg.Selector == "" {
			return nil, errors.Newf(errors.KindConfig, "open source", "html source %s needs a selector", cfg.Path)
		}
		return &HTMLSource{Path: cfg.Path, Selector: cfg.Selector, Attribute: cfg.Attribute}, nil
	case config.FormatCSV:
		return &CSVSource{Path: cfg.Path}, nil
	case config.FormatXLSX:
		return &XLSXSource{Path: cfg.Path, Sheet: cfg.Sheet}, nil
	default:
		return nil, errors.Newf(errors.KindConfig, "open source", "unsupported source format %q", format)
	}
}

// OpenAll opens every configured source
func OpenAll(cfgs []config.SourceConfig) ([]Source, error) {
	sources := make([]Source, 0, len(cfgs))
	for _, cfg := range cfgs {
		src, err := Open(cfg)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func openFailure(path string, err error) []error {
	return []error{errors.New(errors.KindStorage, "open source", fmt.Errorf("%s: %w", path, err))}
}

func lineFailure(path string, line int, err error) error {
	return fmt.Errorf("%s:%d: %w", path, line, err)
}
