// internal/pipeline/lexicon.go
package pipeline

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/valpere/CellarScrapexter/pkg/types"
)

// varietalEntry is one lexicon phrase with its coarse color.
type varietalEntry struct {
	Phrase string
	Color  types.WineColor
}

// varietalLexicon is scanned in order; multi-word and more specific phrases
// must precede the phrases they contain ("Cabernet Sauvignon" before
// "Cabernet", "Sauvignon Blanc" before "Sauvignon").
var varietalLexicon = []varietalEntry{
	{"Cabernet Sauvignon", types.ColorRed},
	{"Cabernet Franc", types.ColorRed},
	{"Sauvignon Blanc", types.ColorWhite},
	{"Pinot Noir", types.ColorRed},
	{"Pinot Grigio", types.ColorWhite},
	{"Pinot Gris", types.ColorWhite},
	{"Pinot Blanc", types.ColorWhite},
	{"Pinot Meunier", types.ColorRed},
	{"Chenin Blanc", types.ColorWhite},
	{"Grüner Veltliner", types.ColorWhite},
	{"Petite Sirah", types.ColorRed},
	{"Petit Verdot", types.ColorRed},
	{"Nero d'Avola", types.ColorRed},
	{"Touriga Nacional", types.ColorRed},
	{"Montepulciano", types.ColorRed},
	{"Red Blend", types.ColorRed},
	{"White Blend", types.ColorWhite},
	{"Tempranillo", types.ColorRed},
	{"Sangiovese", types.ColorRed},
	{"Nebbiolo", types.ColorRed},
	{"Zinfandel", types.ColorRed},
	{"Primitivo", types.ColorRed},
	{"Merlot", types.ColorRed},
	{"Malbec", types.ColorRed},
	{"Syrah", types.ColorRed},
	{"Shiraz", types.ColorRed},
	{"Grenache", types.ColorRed},
	{"Garnacha", types.ColorRed},
	{"Mourvèdre", types.ColorRed},
	{"Monastrell", types.ColorRed},
	{"Carménère", types.ColorRed},
	{"Pinotage", types.ColorRed},
	{"Gamay", types.ColorRed},
	{"Barbera", types.ColorRed},
	{"Dolcetto", types.ColorRed},
	{"Aglianico", types.ColorRed},
	{"Chardonnay", types.ColorWhite},
	{"Riesling", types.ColorWhite},
	{"Viognier", types.ColorWhite},
	{"Albariño", types.ColorWhite},
	{"Torrontés", types.ColorWhite},
	{"Gewürztraminer", types.ColorWhite},
	{"Sémillon", types.ColorWhite},
	{"Marsanne", types.ColorWhite},
	{"Roussanne", types.ColorWhite},
	{"Vermentino", types.ColorWhite},
	{"Verdejo", types.ColorWhite},
	{"Moscato", types.ColorDessert},
	{"Port", types.ColorDessert},
	{"Sauternes", types.ColorDessert},
	{"Champagne", types.ColorSparkling},
	{"Prosecco", types.ColorSparkling},
	{"Cava", types.ColorSparkling},
	{"Crémant", types.ColorSparkling},
	{"Rosé", types.ColorRose},
	{"Cabernet", types.ColorRed},
	{"Pinot", types.ColorRed},
}

// colorHints catch style words when the varietal itself says nothing.
var colorHints = []struct {
	Word  string
	Color types.WineColor
}{
	{"sparkling", types.ColorSparkling},
	{"brut", types.ColorSparkling},
	{"rose", types.ColorRose},
	{"rosado", types.ColorRose},
	{"late harvest", types.ColorDessert},
	{"ice wine", types.ColorDessert},
	{"blanc", types.ColorWhite},
	{"white", types.ColorWhite},
	{"bianco", types.ColorWhite},
	{"blanco", types.ColorWhite},
}

// countryAliases maps folded spellings to a canonical country name.
var countryAliases = map[string]string{
	"u.s.":                     "United States",
	"u.s":                      "United States",
	"us":                       "United States",
	"usa":                      "United States",
	"u.s.a.":                   "United States",
	"united states of america": "United States",
	"america":                  "United States",
	"uk":                       "United Kingdom",
	"u.k.":                     "United Kingdom",
	"great britain":            "United Kingdom",
	"england":                  "United Kingdom",
	"rsa":                      "South Africa",
	"nz":                       "New Zealand",
}

// fold lowercases s, strips diacritics and turns hyphens into spaces so
// "Carmenère", "carmenere" and "CARMÉNÈRE" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ReplaceAll(out, "-", " ")
	return strings.ToLower(out)
}

// NormalizeCountry applies the alias table and collapses whitespace.
func NormalizeCountry(country string) string {
	country = strings.Join(strings.Fields(country), " ")
	if alias, ok := countryAliases[fold(country)]; ok {
		return alias
	}
	return country
}

// ColorOf maps a varietal label onto a coarse wine color, defaulting to red.
func ColorOf(varietal string) types.WineColor {
	folded := fold(varietal)
	if folded == "" {
		return types.ColorRed
	}
	for _, entry := range varietalLexicon {
		if fold(entry.Phrase) == folded {
			return entry.Color
		}
	}
	for _, hint := range colorHints {
		if strings.Contains(folded, hint.Word) {
			return hint.Color
		}
	}
	return types.ColorRed
}
