// internal/scraper/parser.go
package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// parseDocument builds a goquery document from fetched text
func parseDocument(document string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// scriptBodies returns the trimmed text of every element matched by selector
func scriptBodies(doc *goquery.Document, selector string) []string {
	var bodies []string
	doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			bodies = append(bodies, text)
		}
	})
	return bodies
}

// looksLikeJSON reports whether the document itself is a JSON payload
// rather than markup.
func looksLikeJSON(document string) bool {
	trimmed := strings.TrimSpace(document)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}
