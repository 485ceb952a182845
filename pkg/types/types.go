// pkg/types/types.go
package types

import (
	"fmt"
	"strings"
)

// Defaults applied when a field cannot be determined from the source text.
const (
	UnknownProducer = "Unknown"
	DefaultVarietal = "Red Blend"
)

// WineRecord is one parsed observation of a wine.
//
// Nullable fields use pointers so that "absent" survives a JSON round trip
// and a later import can overwrite a value with null.
type WineRecord struct {
	Name           string   `json:"name" yaml:"name"`
	Producer       string   `json:"producer" yaml:"producer"`
	Region         string   `json:"region" yaml:"region"`
	Country        string   `json:"country" yaml:"country"`
	Varietal       string   `json:"varietal" yaml:"varietal"`
	Vintage        *int     `json:"vintage" yaml:"vintage"`
	Description    *string  `json:"description" yaml:"description"`
	AlcoholContent *float64 `json:"alcoholContent" yaml:"alcoholContent"`
	Image          *string  `json:"image" yaml:"image"`
	RatingValue    *float64 `json:"ratingValue" yaml:"ratingValue"`
	RatingCount    *int     `json:"ratingCount" yaml:"ratingCount"`
	Price          *float64 `json:"price" yaml:"price"`
}

// Key returns the identity used for image resolution.
func (r WineRecord) Key() WineKey {
	return WineKey{
		Name:     r.Name,
		Producer: r.Producer,
		Vintage:  r.Vintage,
		Varietal: r.Varietal,
	}
}

// HasImage reports whether an image URL is already attached.
func (r WineRecord) HasImage() bool {
	return r.Image != nil && strings.TrimSpace(*r.Image) != ""
}

// VintageLabel renders the vintage or "NV".
func (r WineRecord) VintageLabel() string {
	if r.Vintage == nil {
		return "NV"
	}
	return fmt.Sprintf("%d", *r.Vintage)
}

// WineKey identifies a wine for the image resolution cascade.
type WineKey struct {
	Name     string `json:"name"`
	Producer string `json:"producer"`
	Vintage  *int   `json:"vintage,omitempty"`
	Varietal string `json:"varietal"`
}

// String returns a compact human readable form used in logs.
func (k WineKey) String() string {
	v := "NV"
	if k.Vintage != nil {
		v = fmt.Sprintf("%d", *k.Vintage)
	}
	return fmt.Sprintf("%s / %s / %s", k.Producer, k.Name, v)
}

// Strategy tags the origin of an image candidate.
type Strategy string

const (
	StrategyOverride       Strategy = "override"
	StrategyEmbeddedState  Strategy = "embedded-state"
	StrategyMarkupPattern  Strategy = "markup-pattern"
	StrategyLinkedData     Strategy = "linked-data"
	StrategyFallbackSearch Strategy = "fallback-search"
	StrategyPlaceholder    Strategy = "placeholder"
	StrategyCached         Strategy = "cached"
)

// ValidStrategies returns all strategy tags in cascade priority order
func ValidStrategies() []Strategy {
	return []Strategy{
		StrategyOverride, StrategyEmbeddedState, StrategyMarkupPattern,
		StrategyLinkedData, StrategyFallbackSearch, StrategyPlaceholder,
		StrategyCached,
	}
}

// IsValid checks if the strategy is a known value
func (s Strategy) IsValid() bool {
	for _, valid := range ValidStrategies() {
		if s == valid {
			return true
		}
	}
	return false
}

// ImageCandidate is a URL plus the strategy that produced it. Only the URL of
// the final choice is ever persisted.
type ImageCandidate struct {
	URL      string   `json:"url"`
	Strategy Strategy `json:"strategy"`
}

// OverrideEntry is a manual image pin. Vintage nil matches any vintage.
type OverrideEntry struct {
	Name     string `json:"name" yaml:"name"`
	Vineyard string `json:"vineyard" yaml:"vineyard"`
	Vintage  *int   `json:"vintage,omitempty" yaml:"vintage,omitempty"`
	ImageURL string `json:"imageUrl" yaml:"imageUrl"`
}

// OverrideFile is the on-disk shape of the override table.
type OverrideFile struct {
	Overrides []OverrideEntry `json:"overrides" yaml:"overrides"`
}

// WineColor is the coarse category used to pick a placeholder image.
type WineColor string

const (
	ColorRed       WineColor = "red"
	ColorWhite     WineColor = "white"
	ColorRose      WineColor = "rose"
	ColorSparkling WineColor = "sparkling"
	ColorDessert   WineColor = "dessert"
)

// IntPtr and friends build nullable field values.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }

func StringPtr(v string) *string { return &v }
