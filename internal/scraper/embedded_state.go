// internal/scraper/embedded_state.go
package scraper

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/valpere/CellarScrapexter/pkg/types"
)

// maxStateDepth bounds the tree walk on pathological documents.
const maxStateDepth = 10

// imageKeys are object keys whose values are treated as images even
// without a bottle path hint.
var imageKeys = map[string]bool{
	"image":     true,
	"imageurl":  true,
	"image_url": true,
	"thumb":     true,
	"thumbnail": true,
	"picture":   true,
	"photo":     true,
}

// bottlePathHints mark media paths that hold bottle shots.
var bottlePathHints = []string{"/thumbs/", "/labels/", "_pb_", "bottle"}

// EmbeddedStateExtractor walks the serialized application state that search
// pages embed in a script block.
type EmbeddedStateExtractor struct {
	extractorBase
	selectors []string
}

// NewEmbeddedStateExtractor creates an extractor that reads the first script
// block matched by selectors. A document that is itself JSON is walked
// directly.
func NewEmbeddedStateExtractor(selectors []string, opts ExtractorOptions) *EmbeddedStateExtractor {
	opts = withDefaultValidator(opts)
	return &EmbeddedStateExtractor{
		extractorBase: newExtractorBase(types.StrategyEmbeddedState, opts),
		selectors:     selectors,
	}
}

// Extract returns validated candidates found in the state tree
func (e *EmbeddedStateExtractor) Extract(document string) []types.ImageCandidate {
	payload, ok := e.statePayload(document)
	if !ok {
		return nil
	}

	var state interface{}
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		e.malformed(err)
		return nil
	}

	var raws []string
	e.walk(state, 0, false, &raws)
	return e.accept(raws)
}

func (e *EmbeddedStateExtractor) statePayload(document string) (string, bool) {
	if looksLikeJSON(document) {
		return strings.TrimSpace(document), true
	}

	doc, err := parseDocument(document)
	if err != nil {
		e.malformed(err)
		return "", false
	}

	for _, selector := range e.selectors {
		if bodies := scriptBodies(doc, selector); len(bodies) > 0 {
			return trimAssignment(bodies[0]), true
		}
	}
	return "", false
}

// trimAssignment reduces "window.__STATE__ = {...};" to the JSON literal.
func trimAssignment(body string) string {
	body = strings.TrimSpace(body)
	if !looksLikeJSON(body) {
		if i := strings.IndexAny(body, "{["); i >= 0 {
			body = body[i:]
		}
	}
	return strings.TrimRight(body, "; \t\r\n")
}

func (e *EmbeddedStateExtractor) walk(node interface{}, depth int, inImage bool, out *[]string) {
	if depth > maxStateDepth {
		return
	}

	switch v := node.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			e.walk(v[k], depth+1, inImage || imageKeys[strings.ToLower(k)], out)
		}
	case []interface{}:
		for _, item := range v {
			e.walk(item, depth+1, inImage, out)
		}
	case string:
		if e.isBottleURL(v, inImage) {
			*out = append(*out, v)
		}
	}
}

func (e *EmbeddedStateExtractor) isBottleURL(s string, inImage bool) bool {
	lower := strings.ToLower(s)
	if !strings.Contains(lower, e.validator.Host()) {
		return false
	}
	if inImage {
		return true
	}
	for _, hint := range bottlePathHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
