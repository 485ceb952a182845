// internal/output/catalog.go

// Package output persists the catalog (a local JSON file or an S3 object)
// and renders operator exports: a CSV of the catalog and an XLSX stats
// report.
package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/valpere/CellarScrapexter/internal/config"
	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// CatalogStore loads and saves the whole catalog as one JSON array.
// Loading a catalog that does not exist yet returns no records.
type CatalogStore interface {
	Load(ctx context.Context) ([]types.WineRecord, error)
	Save(ctx context.Context, records []types.WineRecord) error
	Location() string
}

// NewCatalogStore returns the backend selected by cfg
func NewCatalogStore(ctx context.Context, cfg config.CatalogConfig) (CatalogStore, error) {
	switch cfg.Backend {
	case "", config.BackendLocal:
		if cfg.Path == "" {
			return nil, errors.Newf(errors.KindConfig, "catalog", "catalog path is required")
		}
		return NewFileCatalog(cfg.Path), nil
	case config.BackendS3:
		return NewS3Catalog(ctx, cfg.S3)
	default:
		return nil, errors.Newf(errors.KindConfig, "catalog", "unsupported catalog backend: %s", cfg.Backend)
	}
}

// FileCatalog keeps the catalog in a local JSON file
type FileCatalog struct {
	path string
}

// NewFileCatalog creates a catalog backed by path
func NewFileCatalog(path string) *FileCatalog {
	return &FileCatalog{path: path}
}

// Location returns the file path
func (c *FileCatalog) Location() string {
	return c.path
}

// Load reads the catalog file
func (c *FileCatalog) Load(ctx context.Context) ([]types.WineRecord, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(errors.KindStorage, "load catalog", err)
	}
	return decodeCatalog(data, c.path)
}

// Save replaces the catalog file. The new content is written to a
// temporary file in the same directory and renamed over the old one.
func (c *FileCatalog) Save(ctx context.Context, records []types.WineRecord) error {
	data, err := encodeCatalog(records)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.New(errors.KindStorage, "save catalog", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(c.path)+".*")
	if err != nil {
		return errors.New(errors.KindStorage, "save catalog", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.New(errors.KindStorage, "save catalog", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.New(errors.KindStorage, "save catalog", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return errors.New(errors.KindStorage, "save catalog", err)
	}
	return nil
}

func encodeCatalog(records []types.WineRecord) ([]byte, error) {
	if records == nil {
		records = []types.WineRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return nil, errors.New(errors.KindStorage, "encode catalog", err)
	}
	return buf.Bytes(), nil
}

func decodeCatalog(data []byte, location string) ([]types.WineRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var records []types.WineRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.New(errors.KindStorage, "load catalog", fmt.Errorf("%s is not a catalog: %w", location, err))
	}
	return records, nil
}
