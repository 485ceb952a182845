// internal/pipeline/tokens.go
package pipeline

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

var (
	discountPattern    = regexp.MustCompile(`(?i)\b(?:save\s+\d{1,3}\s*%|\d{1,3}\s*%\s*off\b)`)
	badgePattern       = regexp.MustCompile(`(?i)[\s,]*(?:great value|best value|good value|top rated|staff pick|best seller|new arrival|limited release)\s*$`)
	ratingPattern      = regexp.MustCompile(`(?i)^(\d\.\d)\s*\(\s*(\d[\d,]*)\s*(?:ratings?|reviews?)?\s*\)`)
	ratingCountPattern = regexp.MustCompile(`(?i)\(\s*(\d[\d,]*)\s*(?:ratings?|reviews?)\s*\)`)
	bracketYearPattern = regexp.MustCompile(`\(\s*(19\d{2}|20\d{2})\s*\)`)
	pricePattern       = regexp.MustCompile(`[$€£]\s?(\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`)
	yearPattern        = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	spacePattern       = regexp.MustCompile(`\s+`)
)

// Tokens is what the strip-and-capture passes pulled out of one line before
// the name fragment is decomposed.
type Tokens struct {
	RatingValue *float64
	RatingCount *int
	Prices      []float64
	NameText    string
	Region      string
	Country     string
	Vintage     *int
}

// Price returns the canonical price: the lowest amount when a sale price
// sits next to a list price, otherwise the only amount.
func (t Tokens) Price() *float64 {
	if len(t.Prices) == 0 {
		return nil
	}
	if len(t.Prices) == 1 {
		return types.FloatPtr(t.Prices[0])
	}
	sorted := append([]float64(nil), t.Prices...)
	sort.Float64s(sorted)
	return types.FloatPtr(sorted[0])
}

// Tokenize applies the capture passes to a line. It fails with a
// ParseFailure when fewer than two comma-separated segments remain.
func Tokenize(line string) (Tokens, error) {
	var tok Tokens

	text := collapse(discountPattern.ReplaceAllString(line, " "))
	text = badgePattern.ReplaceAllString(text, "")

	// a bare count in parentheses belongs to the rating before it; elsewhere
	// only a labelled count is taken, so "(2015)" stays a vintage
	if m := ratingPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			tok.RatingValue = types.FloatPtr(v)
		}
		tok.RatingCount = parseCount(m[2])
		text = text[len(m[0]):]
	} else if loc := ratingCountPattern.FindStringSubmatchIndex(text); loc != nil {
		tok.RatingCount = parseCount(text[loc[2]:loc[3]])
		text = text[:loc[0]] + " " + text[loc[1]:]
	}
	text = bracketYearPattern.ReplaceAllString(text, " $1 ")

	for _, m := range pricePattern.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			tok.Prices = append(tok.Prices, v)
		}
	}
	text = pricePattern.ReplaceAllString(text, " ")

	segments := splitSegments(text)
	if len(segments) < 2 {
		return Tokens{}, errors.Newf(errors.KindParseFailure, "tokenize",
			"expected at least 2 comma-separated segments, got %d", len(segments))
	}

	tok.Country = NormalizeCountry(segments[len(segments)-1])
	rest := segments[:len(segments)-1]

	if len(rest) >= 2 {
		tok.Region = rest[len(rest)-1]
		tok.NameText = strings.Join(rest[:len(rest)-1], ", ")
	} else {
		// "<name> <year> <region>, <country>": the year separates name from region
		tok.NameText, tok.Region = splitOnLastYear(rest[0])
	}

	if tok.NameText == "" {
		return Tokens{}, errors.Newf(errors.KindParseFailure, "tokenize", "no wine name before region")
	}

	tok.Vintage = findVintage(tok.NameText)
	return tok, nil
}

// ParseLine turns one semi-structured line into a record. Failures carry
// KindParseFailure; the caller counts and skips them.
func ParseLine(line string) (types.WineRecord, error) {
	tok, err := Tokenize(line)
	if err != nil {
		return types.WineRecord{}, err
	}

	parts := DecomposeName(tok.NameText)
	if parts.CleanName == "" {
		return types.WineRecord{}, errors.Newf(errors.KindParseFailure, "parse line", "name fragment %q has no words", tok.NameText)
	}

	return types.WineRecord{
		Name:        parts.CleanName,
		Producer:    parts.Producer,
		Region:      tok.Region,
		Country:     tok.Country,
		Varietal:    parts.Varietal,
		Vintage:     tok.Vintage,
		RatingValue: tok.RatingValue,
		RatingCount: tok.RatingCount,
		Price:       tok.Price(),
	}, nil
}

func parseCount(digits string) *int {
	n, err := strconv.Atoi(strings.ReplaceAll(digits, ",", ""))
	if err != nil {
		return nil
	}
	return types.IntPtr(n)
}

func splitSegments(text string) []string {
	raw := strings.Split(text, ",")
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = collapse(s); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

func splitOnLastYear(segment string) (name, region string) {
	locs := yearPattern.FindAllStringIndex(segment, -1)
	if len(locs) == 0 {
		return segment, ""
	}
	last := locs[len(locs)-1]
	return collapse(segment[:last[1]]), collapse(segment[last[1]:])
}

func findVintage(text string) *int {
	matches := yearPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	year, err := strconv.Atoi(matches[len(matches)-1])
	if err != nil || year < 1900 || year > 2099 {
		return nil
	}
	return types.IntPtr(year)
}

func collapse(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
