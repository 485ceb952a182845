// cmd/cellarscrapexter/main_test.go
package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/valpere/CellarScrapexter/internal/config"
	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/internal/output"
)

const (
	bramareLine    = "Save 20% 4.4 ( 1235 rating ) $39.99 $50 Viña Cobos Bramare Malbec Uco Valley 2022 Uco Valley , Argentina Great Value"
	tignanelloLine = "Tignanello 2019 Toscana, Italy $120"
)

// execute runs the command tree the way main does and returns stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := newRootCommand(&application{})
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "CellarScrapexter dev")
	assert.Contains(t, out, "Go version:")
}

func TestTemplateCommand(t *testing.T) {
	for _, kind := range config.TemplateTypes() {
		t.Run(kind, func(t *testing.T) {
			out, err := execute(t, "template", "--type", kind)
			require.NoError(t, err)

			var cfg config.Config
			require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
			assert.NotEmpty(t, cfg.Name)
			assert.NotEmpty(t, cfg.Images.SearchURL)
		})
	}

	_, err := execute(t, "template", "--type", "nosql")
	require.Error(t, err)
	assert.Equal(t, errors.KindConfig, errors.KindOf(err))
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := writeFile(t, dir, "good.yaml", "name: cellar\nsources:\n  - path: listings.txt\n")

		out, err := execute(t, "validate", path)
		require.NoError(t, err)
		assert.Contains(t, out, fmt.Sprintf("✓ Configuration file '%s' is valid", path))
	})

	t.Run("config flag", func(t *testing.T) {
		path := writeFile(t, dir, "flag.yaml", "name: cellar\n")

		out, err := execute(t, "validate", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "is valid")
	})

	t.Run("invalid", func(t *testing.T) {
		path := writeFile(t, dir, "bad.yaml", "name: cellar\nworkers: 100\nimages:\n  search_url: ftp://example.com\n")

		_, err := execute(t, "validate", path)
		require.Error(t, err)
		assert.Equal(t, errors.KindConfig, errors.KindOf(err))
		assert.Contains(t, err.Error(), "workers")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := execute(t, "validate")
		require.Error(t, err)
		assert.Equal(t, errors.KindConfig, errors.KindOf(err))
	})
}

func TestImportAndReport(t *testing.T) {
	dir := t.TempDir()
	listings := writeFile(t, dir, "listings.txt", strings.Join([]string{
		bramareLine,
		tignanelloLine,
		"garbage without separators",
	}, "\n"))
	catalogPath := filepath.Join(dir, "catalog.json")

	out, err := execute(t, "import", listings, "-o", catalogPath)
	require.NoError(t, err)
	assert.Contains(t, out, "added 2, already present 0, parse failures 1")
	assert.Contains(t, out, "By country:")
	assert.Contains(t, out, "Argentina")

	out, err = execute(t, "import", listings, "-o", catalogPath)
	require.NoError(t, err)
	assert.Contains(t, out, "added 0, already present 2", "importing twice changes nothing")

	records, err := output.NewFileCatalog(catalogPath).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)

	cfgPath := writeFile(t, dir, "cellar.yaml", fmt.Sprintf("name: cellar\ncatalog:\n  path: %s\n", catalogPath))
	xlsxPath := filepath.Join(dir, "report.xlsx")
	csvPath := filepath.Join(dir, "catalog.csv")

	out, err = execute(t, "report", "-c", cfgPath, "--xlsx", xlsxPath, "--csv", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wines: 2 (with image 0)")
	assert.Contains(t, out, "By price band:")
	assert.Contains(t, out, "Report written to "+xlsxPath)

	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), output.SheetWines)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Bramare", "rated wines first")
}

func TestImportWithoutSources(t *testing.T) {
	_, err := execute(t, "import", "-o", filepath.Join(t.TempDir(), "catalog.json"))

	require.Error(t, err)
	assert.Equal(t, errors.KindConfig, errors.KindOf(err))
}

func TestEnrichCommand(t *testing.T) {
	var searches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		searches.Add(1)
		fmt.Fprint(w, `<script id="__NEXT_DATA__">{"wine":{"image":"//images.example.com/labels/bottle_375x500.png"}}</script>`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	listings := writeFile(t, dir, "listings.txt", bramareLine+"\n"+tignanelloLine+"\n")
	catalogPath := filepath.Join(dir, "catalog.json")
	cfgPath := writeFile(t, dir, "cellar.yaml", fmt.Sprintf(`name: cellar
catalog:
  path: %s
images:
  media_host: images.example.com
  search_url: %s/search?q={query}
  override_file: %s
fetch:
  retries: 1
  host_delay: 1ms
  cache_ttl: 1s
workers: 2
`, catalogPath, srv.URL, filepath.Join(dir, "overrides.json")))

	_, err := execute(t, "import", "-c", cfgPath, listings)
	require.NoError(t, err)

	out, err := execute(t, "enrich", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Enriched 2 wine(s)")
	assert.Contains(t, out, "embedded-state")
	assert.Equal(t, int32(2), searches.Load())

	records, err := output.NewFileCatalog(catalogPath).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		require.NotNil(t, r.Image, r.Name)
		assert.Contains(t, *r.Image, "images.example.com/labels/bottle_pb_x960.png")
	}

	out, err = execute(t, "enrich", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Enriched 0 wine(s)", "wines with images are skipped")
}

func TestResolveCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nothing here", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "cellar.yaml", fmt.Sprintf(`name: cellar
images:
  media_host: images.example.com
  search_url: %s/search?q={query}
  override_file: %s
  placeholders:
    white: https://images.example.com/placeholders/white.png
fetch:
  retries: 0
  host_delay: 1ms
`, srv.URL, filepath.Join(dir, "overrides.json")))

	out, err := execute(t, "resolve", "-c", cfgPath, "Cloudy Bay", "--varietal", "Sauvignon Blanc", "--vintage", "2023")
	require.NoError(t, err)
	assert.Equal(t, "placeholder\thttps://images.example.com/placeholders/white.png\n", out)

	out, err = execute(t, "resolve", "-c", cfgPath, "Cloudy Bay", "--varietal", "Sauvignon Blanc", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"strategy": "placeholder"`)
	assert.Contains(t, out, `"name": "Cloudy Bay"`)

	_, err = execute(t, "resolve")
	assert.Error(t, err, "a wine name is required")
}
