// internal/pipeline/normalize.go
package pipeline

import (
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// strictPolicy strips every tag; descriptions are stored as plain text.
var strictPolicy = bluemonday.StrictPolicy()

// MergeKey returns lower(trim(name)) + "-" + vintage, or "-nv" for
// non-vintage wines. It depends on nothing but the record.
func MergeKey(record types.WineRecord) string {
	name := strings.ToLower(strings.TrimSpace(record.Name))
	if record.Vintage == nil {
		return name + "-nv"
	}
	return name + "-" + strconv.Itoa(*record.Vintage)
}

// NormalizeRecord trims text fields, fills producer and varietal defaults,
// sanitizes the description and nulls out-of-range numbers. A record with no
// name is rejected with KindValidationReject.
func NormalizeRecord(record types.WineRecord) (types.WineRecord, error) {
	out := record

	out.Name = collapse(out.Name)
	out.Producer = collapse(out.Producer)
	out.Region = collapse(out.Region)
	out.Country = NormalizeCountry(out.Country)
	out.Varietal = collapse(out.Varietal)

	if out.Name == "" {
		return types.WineRecord{}, errors.Newf(errors.KindValidationReject, "normalize record", "record has no name")
	}

	if out.Producer == "" || out.Varietal == "" {
		parts := DecomposeName(out.Name)
		if out.Producer == "" {
			out.Producer = parts.Producer
		}
		if out.Varietal == "" {
			out.Varietal = parts.Varietal
		}
	}

	if out.Vintage != nil && (*out.Vintage < 1900 || *out.Vintage > 2099) {
		out.Vintage = nil
	}
	if out.RatingValue != nil && !inRange(*out.RatingValue, 0, 5) {
		out.RatingValue = nil
	}
	if out.RatingCount != nil && *out.RatingCount < 0 {
		out.RatingCount = nil
	}
	if out.Price != nil && !inRange(*out.Price, 0, math.MaxFloat64) {
		out.Price = nil
	}
	if out.AlcoholContent != nil && !inRange(*out.AlcoholContent, 0, 100) {
		out.AlcoholContent = nil
	}

	out.Description = sanitizeDescription(out.Description)
	if out.Image != nil {
		if img := strings.TrimSpace(*out.Image); img != "" {
			out.Image = types.StringPtr(img)
		} else {
			out.Image = nil
		}
	}

	return out, nil
}

func sanitizeDescription(desc *string) *string {
	if desc == nil {
		return nil
	}
	clean := html.UnescapeString(strictPolicy.Sanitize(*desc))
	clean = collapse(clean)
	if clean == "" {
		return nil
	}
	return &clean
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}
