// internal/pipeline/names.go
package pipeline

import (
	"strings"
	"unicode"

	"github.com/valpere/CellarScrapexter/pkg/types"
)

// NameParts is the best-effort split of a wine name fragment. It carries no
// confidence; ambiguous names may be misattributed.
type NameParts struct {
	Producer  string `json:"producer"`
	CleanName string `json:"clean_name"`
	Varietal  string `json:"varietal"`
}

// NameDecomposer is the seam for swapping the lexicon heuristic out.
type NameDecomposer func(fragment string) NameParts

// DecomposeName splits a name fragment into producer, display name and
// varietal using the ordered varietal lexicon.
func DecomposeName(fragment string) NameParts {
	cleanName := collapse(yearPattern.ReplaceAllString(fragment, " "))
	cleanName = strings.Trim(cleanName, " -,;:")

	parts := NameParts{
		CleanName: cleanName,
		Varietal:  types.DefaultVarietal,
		Producer:  types.UnknownProducer,
	}

	tokens := strings.Fields(cleanName)
	if len(tokens) == 0 {
		return parts
	}

	varietal, index := matchVarietal(tokens)
	if varietal != "" {
		parts.Varietal = varietal
	}

	switch {
	case index > 0:
		parts.Producer = strings.Join(tokens[:index], " ")
	case len(tokens) > 1:
		n := 2
		if len(tokens) > 4 {
			n = 3
		}
		if n > len(tokens)-1 {
			n = len(tokens) - 1
		}
		parts.Producer = strings.Join(tokens[:n], " ")
	}

	parts.Producer = strings.TrimRight(parts.Producer, " -,;:")
	if parts.Producer == "" {
		parts.Producer = types.UnknownProducer
	}
	return parts
}

// matchVarietal returns the first lexicon phrase found in tokens and the
// token index where it starts, or ("", -1). The substring test is a cheap
// prefilter; a hit must also align with whole tokens so "Cava" does not
// match inside "Cavallo".
func matchVarietal(tokens []string) (string, int) {
	folded := make([]string, len(tokens))
	for i, t := range tokens {
		folded[i] = strings.TrimFunc(fold(t), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
		})
	}
	haystack := strings.Join(folded, " ")

	for _, entry := range varietalLexicon {
		phrase := fold(entry.Phrase)
		if !strings.Contains(haystack, phrase) {
			continue
		}
		words := strings.Fields(phrase)
		for i := 0; i+len(words) <= len(folded); i++ {
			if tokensMatch(folded[i:i+len(words)], words) {
				return entry.Phrase, i
			}
		}
	}
	return "", -1
}

func tokensMatch(tokens, words []string) bool {
	for i := range words {
		if tokens[i] != words[i] {
			return false
		}
	}
	return true
}
