// internal/scraper/markup_pattern.go
package scraper

import (
	"regexp"
	"strings"

	"github.com/valpere/CellarScrapexter/internal/config"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// cdnPathShapes are the media path prefixes scanned for, one pattern each.
var cdnPathShapes = []string{"thumbs", "images", "labels"}

// MarkupPatternExtractor scans the raw document text with one regular
// expression per known media path shape.
type MarkupPatternExtractor struct {
	extractorBase
	patterns []*regexp.Regexp
}

// NewMarkupPatternExtractor creates patterns bound to the validator's host
func NewMarkupPatternExtractor(opts ExtractorOptions) *MarkupPatternExtractor {
	opts = withDefaultValidator(opts)
	host := regexp.QuoteMeta(opts.Validator.Host())

	patterns := make([]*regexp.Regexp, 0, len(cdnPathShapes))
	for _, shape := range cdnPathShapes {
		patterns = append(patterns, regexp.MustCompile(
			`(?i)(?:https?:)?//`+host+`/`+shape+`/[A-Za-z0-9_\-./%]+\.(?:png|jpe?g|webp)`))
	}

	return &MarkupPatternExtractor{
		extractorBase: newExtractorBase(types.StrategyMarkupPattern, opts),
		patterns:      patterns,
	}
}

// Extract returns every validated match, in pattern order
func (e *MarkupPatternExtractor) Extract(document string) []types.ImageCandidate {
	// URLs inside serialized JSON have escaped slashes
	text := strings.NewReplacer(`\/`, "/", `\u002F`, "/", `\u002f`, "/").Replace(document)

	var raws []string
	for _, p := range e.patterns {
		raws = append(raws, p.FindAllString(text, -1)...)
	}
	return e.accept(raws)
}

func withDefaultValidator(opts ExtractorOptions) ExtractorOptions {
	if opts.Validator == nil {
		opts.Validator = NewURLValidator(config.DefaultMediaHost)
	}
	return opts
}
