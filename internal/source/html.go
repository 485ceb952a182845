// internal/source/html.go
package source

import (
	"context"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/CellarScrapexter/pkg/types"
)

// HTMLSource reads a saved catalog page. Every element matched by Selector
// holds one wine; its Attribute (for example aria-label) or, when that is
// empty, its text is handed to the line parser.
type HTMLSource struct {
	Path      string
	Selector  string
	Attribute string
}

// Name returns the source path
func (s *HTMLSource) Name() string { return s.Path }

// Records parses each matched element
func (s *HTMLSource) Records(ctx context.Context, parse LineParser) ([]types.WineRecord, []error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, openFailure(s.Path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, openFailure(s.Path, err)
	}

	var (
		records []types.WineRecord
		errs    []error
	)

	doc.Find(s.Selector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			return false
		}

		text := s.elementText(sel)
		if text == "" {
			return true
		}

		rec, err := parse(text)
		if err != nil {
			errs = append(errs, lineFailure(s.Path, i+1, err))
			return true
		}
		records = append(records, rec)
		return true
	})

	return records, errs
}

func (s *HTMLSource) elementText(sel *goquery.Selection) string {
	if s.Attribute != "" {
		if v, ok := sel.Attr(s.Attribute); ok && strings.TrimSpace(v) != "" {
			return strings.Join(strings.Fields(v), " ")
		}
	}
	return strings.Join(strings.Fields(sel.Text()), " ")
}
