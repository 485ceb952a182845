// internal/output/catalog_test.go
package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/CellarScrapexter/internal/config"
	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

func sampleRecords() []types.WineRecord {
	return []types.WineRecord{
		{
			Name: "Viña Cobos Bramare Malbec", Producer: "Viña Cobos", Region: "Uco Valley",
			Country: "Argentina", Varietal: "Malbec", Vintage: types.IntPtr(2022),
			RatingValue: types.FloatPtr(4.4), RatingCount: types.IntPtr(1235), Price: types.FloatPtr(39.99),
			Image: types.StringPtr("https://images.example.com/thumbs/bramare_pb_x960.png"),
		},
		{
			Name: "Antinori Tignanello", Producer: "Antinori", Country: "Italy",
			Varietal: "Sangiovese", Vintage: types.IntPtr(2019), RatingValue: types.FloatPtr(4.6),
			Description: types.StringPtr("Cherry & <spice>"),
		},
		{Name: "Mystery Red", Producer: types.UnknownProducer, Country: "Spain", Varietal: types.DefaultVarietal},
	}
}

func TestFileCatalogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.json")
	store := NewFileCatalog(path)
	ctx := context.Background()

	records := sampleRecords()
	require.NoError(t, store.Save(ctx, records))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"price": null`, "null fields stay explicit")
	assert.Contains(t, string(data), `Cherry & <spice>`, "no HTML escaping")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is renamed away")
}

func TestFileCatalogMissingFile(t *testing.T) {
	records, err := NewFileCatalog(filepath.Join(t.TempDir(), "absent.json")).Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFileCatalogEmptySave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, NewFileCatalog(path).Save(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestFileCatalogCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"}`), 0644))

	_, err := NewFileCatalog(path).Load(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorage))
	assert.Contains(t, err.Error(), path)
}

func TestNewCatalogStore(t *testing.T) {
	ctx := context.Background()

	local, err := NewCatalogStore(ctx, config.CatalogConfig{Backend: config.BackendLocal, Path: "out/catalog.json"})
	require.NoError(t, err)
	assert.Equal(t, "out/catalog.json", local.Location())

	_, err = NewCatalogStore(ctx, config.CatalogConfig{Backend: config.BackendLocal})
	assert.Equal(t, errors.KindConfig, errors.KindOf(err))

	_, err = NewCatalogStore(ctx, config.CatalogConfig{Backend: "ftp", Path: "x"})
	assert.Equal(t, errors.KindConfig, errors.KindOf(err))

	_, err = NewCatalogStore(ctx, config.CatalogConfig{Backend: config.BackendS3})
	assert.Equal(t, errors.KindConfig, errors.KindOf(err), "bucket is required")
}
