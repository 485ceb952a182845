// internal/resolver/placeholder.go
package resolver

import (
	"strings"

	"github.com/valpere/CellarScrapexter/internal/pipeline"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

var defaultPlaceholders = map[types.WineColor]string{
	types.ColorRed:       "https://placehold.co/600x900/png?text=Red+Wine",
	types.ColorWhite:     "https://placehold.co/600x900/png?text=White+Wine",
	types.ColorRose:      "https://placehold.co/600x900/png?text=Rose+Wine",
	types.ColorSparkling: "https://placehold.co/600x900/png?text=Sparkling+Wine",
	types.ColorDessert:   "https://placehold.co/600x900/png?text=Dessert+Wine",
}

// Placeholder maps a varietal to a static image by wine color. It always
// returns a URL.
type Placeholder struct {
	images map[types.WineColor]string
}

// NewPlaceholder merges the configured color images over the defaults.
// Unknown color names are ignored.
func NewPlaceholder(overrides map[string]string) *Placeholder {
	images := make(map[types.WineColor]string, len(defaultPlaceholders))
	for color, u := range defaultPlaceholders {
		images[color] = u
	}
	for name, u := range overrides {
		color := types.WineColor(strings.ToLower(strings.TrimSpace(name)))
		if _, known := defaultPlaceholders[color]; known && strings.TrimSpace(u) != "" {
			images[color] = strings.TrimSpace(u)
		}
	}
	return &Placeholder{images: images}
}

// Resolve picks the image for the key's varietal
func (p *Placeholder) Resolve(key types.WineKey) types.ImageCandidate {
	u, ok := p.images[pipeline.ColorOf(key.Varietal)]
	if !ok {
		u = p.images[types.ColorRed]
	}
	return types.ImageCandidate{URL: u, Strategy: types.StrategyPlaceholder}
}
