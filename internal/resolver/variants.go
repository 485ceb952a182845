// internal/resolver/variants.go
package resolver

import (
	"strconv"
	"strings"

	"github.com/valpere/CellarScrapexter/pkg/types"
)

// BuildQueryVariants returns the search strings for key, most specific
// first: producer+name+vintage, producer+name, name+vintage, name, and the
// producer alone when it differs from the name. Empty and repeated variants
// are dropped.
func BuildQueryVariants(key types.WineKey) []string {
	name := collapse(key.Name)
	producer := collapse(key.Producer)
	if strings.EqualFold(producer, types.UnknownProducer) {
		producer = ""
	}

	vintage := ""
	if key.Vintage != nil {
		vintage = strconv.Itoa(*key.Vintage)
	}

	// names usually already lead with the producer
	withProducer := join(producer, name)
	if producer != "" && hasWordPrefix(name, producer) {
		withProducer = name
	}

	candidates := []string{
		join(withProducer, vintage),
		withProducer,
		join(name, vintage),
		name,
	}
	if !strings.EqualFold(producer, name) {
		candidates = append(candidates, producer)
	}

	seen := make(map[string]bool, len(candidates))
	variants := make([]string, 0, len(candidates))
	for _, c := range candidates {
		k := strings.ToLower(c)
		if c == "" || seen[k] {
			continue
		}
		seen[k] = true
		variants = append(variants, c)
	}
	return variants
}

func join(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hasWordPrefix(s, prefix string) bool {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return false
	}
	return len(s) == len(prefix) || s[len(prefix)] == ' '
}
