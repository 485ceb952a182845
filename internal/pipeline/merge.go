// internal/pipeline/merge.go
package pipeline

import (
	"sort"
	"strings"

	"github.com/valpere/CellarScrapexter/pkg/types"
)

// Merge folds incoming into existing by MergeKey and returns the merged
// slice together with the number of keys that were not present before.
//
// A colliding incoming record replaces the existing one wholesale, so a
// sparser later import clears fields that an earlier one had set. Existing
// duplicates collapse last-write-wins. Neither input is modified.
func Merge(existing, incoming []types.WineRecord) ([]types.WineRecord, int) {
	merged := make([]types.WineRecord, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))

	put := func(r types.WineRecord) bool {
		key := MergeKey(r)
		if i, ok := index[key]; ok {
			merged[i] = r
			return false
		}
		index[key] = len(merged)
		merged = append(merged, r)
		return true
	}

	for _, r := range existing {
		put(r)
	}

	added := 0
	for _, r := range incoming {
		if put(r) {
			added++
		}
	}
	return merged, added
}

// SortByRating orders records by rating descending; unrated wines go last,
// ties break on name.
func SortByRating(records []types.WineRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].RatingValue, records[j].RatingValue
		switch {
		case a != nil && b != nil && *a != *b:
			return *a > *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return strings.ToLower(records[i].Name) < strings.ToLower(records[j].Name)
	})
}

// Catalog is the deduplicated collection of wine records. It changes only
// through Merge and is not safe for concurrent use; batches are merged one
// at a time.
type Catalog struct {
	records []types.WineRecord
}

// NewCatalog creates a catalog from persisted records, collapsing any
// duplicate keys.
func NewCatalog(records []types.WineRecord) *Catalog {
	merged, _ := Merge(nil, records)
	return &Catalog{records: merged}
}

// Merge folds a batch into the catalog and returns the added count.
func (c *Catalog) Merge(batch []types.WineRecord) int {
	merged, added := Merge(c.records, batch)
	c.records = merged
	return added
}

// Records returns a copy of the catalog contents.
func (c *Catalog) Records() []types.WineRecord {
	out := make([]types.WineRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Get looks up a record by merge key.
func (c *Catalog) Get(key string) (types.WineRecord, bool) {
	for _, r := range c.records {
		if MergeKey(r) == key {
			return r, true
		}
	}
	return types.WineRecord{}, false
}

// Len returns the number of distinct wines.
func (c *Catalog) Len() int {
	return len(c.records)
}
