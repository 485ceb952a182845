// internal/scraper/linked_data.go
package scraper

import (
	"github.com/antonholmquist/jason"

	"github.com/valpere/CellarScrapexter/pkg/types"
)

const linkedDataSelector = `script[type="application/ld+json"]`

// LinkedDataExtractor reads the top-level image property of every
// linked-data block in the document.
type LinkedDataExtractor struct {
	extractorBase
}

// NewLinkedDataExtractor creates a new linked-data extractor
func NewLinkedDataExtractor(opts ExtractorOptions) *LinkedDataExtractor {
	opts = withDefaultValidator(opts)
	return &LinkedDataExtractor{
		extractorBase: newExtractorBase(types.StrategyLinkedData, opts),
	}
}

// Extract returns validated images from all linked-data blocks. A block that
// does not parse is skipped; the others still count.
func (e *LinkedDataExtractor) Extract(document string) []types.ImageCandidate {
	doc, err := parseDocument(document)
	if err != nil {
		e.malformed(err)
		return nil
	}

	var raws []string
	for _, body := range scriptBodies(doc, linkedDataSelector) {
		value, err := jason.NewValueFromBytes([]byte(body))
		if err != nil {
			e.malformed(err)
			continue
		}
		raws = append(raws, blockImages(value)...)
	}
	return e.accept(raws)
}

// blockImages handles a single object, a top-level array of objects and an
// @graph container.
func blockImages(value *jason.Value) []string {
	if items, err := value.Array(); err == nil {
		var out []string
		for _, item := range items {
			if obj, err := item.Object(); err == nil {
				out = append(out, objectImages(obj)...)
			}
		}
		return out
	}

	obj, err := value.Object()
	if err != nil {
		return nil
	}
	return objectImages(obj)
}

func objectImages(obj *jason.Object) []string {
	var out []string
	if img, err := obj.GetValue("image"); err == nil {
		if url := imageURL(img); url != "" {
			out = append(out, url)
		}
	}
	if graph, err := obj.GetObjectArray("@graph"); err == nil {
		for _, node := range graph {
			if img, err := node.GetValue("image"); err == nil {
				if url := imageURL(img); url != "" {
					out = append(out, url)
				}
			}
		}
	}
	return out
}

// imageURL reads a string, an object's url field, or an array's first element.
func imageURL(v *jason.Value) string {
	if s, err := v.String(); err == nil {
		return s
	}
	if obj, err := v.Object(); err == nil {
		if s, err := obj.GetString("url"); err == nil {
			return s
		}
		if s, err := obj.GetString("contentUrl"); err == nil {
			return s
		}
		return ""
	}
	if items, err := v.Array(); err == nil && len(items) > 0 {
		return imageURL(items[0])
	}
	return ""
}
