// internal/pipeline/stats.go
package pipeline

import (
	"sort"

	"github.com/valpere/CellarScrapexter/pkg/types"
)

// Price bands used by the operator report, in display order.
const (
	BandUnder15   = "<15"
	Band15To30    = "15-30"
	Band30To50    = "30-50"
	Band50To100   = "50-100"
	Band100Plus   = "100+"
	BandUnknown   = "unknown"
	unknownBucket = "(none)"
)

// PriceBands lists every band in display order
func PriceBands() []string {
	return []string{BandUnder15, Band15To30, Band30To50, Band50To100, Band100Plus, BandUnknown}
}

// Stats is the breakdown printed after an import or by the report command.
type Stats struct {
	Total       int            `json:"total"`
	WithImage   int            `json:"with_image"`
	ByCountry   map[string]int `json:"by_country"`
	ByVarietal  map[string]int `json:"by_varietal"`
	ByRegion    map[string]int `json:"by_region"`
	ByPriceBand map[string]int `json:"by_price_band"`
}

// Count is one row of a sorted breakdown.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ComputeStats tallies records by country, varietal, region and price band.
func ComputeStats(records []types.WineRecord) Stats {
	stats := Stats{
		Total:       len(records),
		ByCountry:   make(map[string]int),
		ByVarietal:  make(map[string]int),
		ByRegion:    make(map[string]int),
		ByPriceBand: make(map[string]int),
	}

	for _, r := range records {
		stats.ByCountry[orNone(r.Country)]++
		stats.ByVarietal[orNone(r.Varietal)]++
		stats.ByRegion[orNone(r.Region)]++
		stats.ByPriceBand[PriceBand(r.Price)]++
		if r.HasImage() {
			stats.WithImage++
		}
	}
	return stats
}

// PriceBand buckets a nullable price.
func PriceBand(price *float64) string {
	if price == nil {
		return BandUnknown
	}
	switch p := *price; {
	case p < 15:
		return BandUnder15
	case p < 30:
		return Band15To30
	case p < 50:
		return Band30To50
	case p < 100:
		return Band50To100
	default:
		return Band100Plus
	}
}

// Sorted returns the breakdown ordered by count descending, then label.
func Sorted(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// SortedBands returns the price breakdown in band order, skipping empty bands.
func (s Stats) SortedBands() []Count {
	var out []Count
	for _, band := range PriceBands() {
		if n := s.ByPriceBand[band]; n > 0 {
			out = append(out, Count{Label: band, Count: n})
		}
	}
	return out
}

func orNone(s string) string {
	if s == "" {
		return unknownBucket
	}
	return s
}
