// internal/resolver/overrides.go
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/valpere/CellarScrapexter/internal/config"
	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/internal/monitoring"
	"github.com/valpere/CellarScrapexter/internal/utils"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// Overrides looks up manual image pins.
type Overrides interface {
	Get(ctx context.Context, key types.WineKey) (types.OverrideEntry, bool)
	Reload(ctx context.Context) error
}

type overrideSnapshot struct {
	entries  []types.OverrideEntry
	loadedAt time.Time
}

// OverrideTable is the operator pin list read from a JSON or YAML file.
// Readers share an immutable snapshot; a stale snapshot is replaced by one
// reload no matter how many readers notice it at once.
type OverrideTable struct {
	path     string
	ttl      time.Duration
	now      func() time.Time
	snapshot atomic.Pointer[overrideSnapshot]
	reloads  singleflight.Group
	logger   utils.Logger
	metrics  *monitoring.Metrics
}

// NewOverrideTable creates a table backed by path. Nothing is read until
// the first Get or Reload.
func NewOverrideTable(path string, ttl time.Duration, logger utils.Logger, metrics *monitoring.Metrics) *OverrideTable {
	if ttl <= 0 {
		ttl = config.DefaultOverrideTTL
	}
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &OverrideTable{
		path:    path,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
		metrics: metrics,
	}
}

// SetClock replaces the time source; used by tests
func (t *OverrideTable) SetClock(now func() time.Time) {
	t.now = now
}

// Len returns the number of entries in the current snapshot
func (t *OverrideTable) Len() int {
	if s := t.snapshot.Load(); s != nil {
		return len(s.entries)
	}
	return 0
}

// Get returns the pin for key, reloading the file first when the snapshot
// is older than the TTL. An entry with the key's vintage beats one that
// matches any vintage.
func (t *OverrideTable) Get(ctx context.Context, key types.WineKey) (types.OverrideEntry, bool) {
	s := t.snapshot.Load()
	if s == nil || t.now().Sub(s.loadedAt) >= t.ttl {
		if err := t.Reload(ctx); err != nil {
			t.logger.Warn("override reload failed", "path", t.path, "error", err)
		}
		s = t.snapshot.Load()
	}
	if s == nil {
		return types.OverrideEntry{}, false
	}
	return match(s.entries, key)
}

// Reload reads the file now. A missing file yields an empty table. On a
// read or parse error the previous entries stay in place until the next
// TTL expiry.
func (t *OverrideTable) Reload(ctx context.Context) error {
	_, err, _ := t.reloads.Do("reload", func() (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entries, err := loadOverrides(t.path)
		t.metrics.ObserveOverrideReload(err)
		if err != nil {
			next := &overrideSnapshot{loadedAt: t.now()}
			if prev := t.snapshot.Load(); prev != nil {
				next.entries = prev.entries
			}
			t.snapshot.Store(next)
			return nil, err
		}

		t.snapshot.Store(&overrideSnapshot{entries: entries, loadedAt: t.now()})
		t.logger.Debug("override table loaded", "path", t.path, "entries", len(entries))
		return nil, nil
	})
	return err
}

func loadOverrides(path string) ([]types.OverrideEntry, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(errors.KindConfig, "load overrides", err)
	}

	var file types.OverrideFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		err = json.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, errors.New(errors.KindConfig, "load overrides", fmt.Errorf("failed to parse %s: %w", path, err))
	}

	entries := make([]types.OverrideEntry, 0, len(file.Overrides))
	for _, e := range file.Overrides {
		if strings.TrimSpace(e.Name) == "" || strings.TrimSpace(e.ImageURL) == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func match(entries []types.OverrideEntry, key types.WineKey) (types.OverrideEntry, bool) {
	name := normalizeKeyPart(key.Name)
	producer := normalizeKeyPart(key.Producer)

	var (
		anyVintage types.OverrideEntry
		found      bool
	)
	for _, e := range entries {
		if normalizeKeyPart(e.Name) != name {
			continue
		}
		if v := normalizeKeyPart(e.Vineyard); v != "" && v != producer {
			continue
		}
		switch {
		case e.Vintage == nil:
			if !found {
				anyVintage, found = e, true
			}
		case key.Vintage != nil && *e.Vintage == *key.Vintage:
			return e, true
		}
	}
	return anyVintage, found
}

func normalizeKeyPart(s string) string {
	return strings.ToLower(collapse(s))
}
