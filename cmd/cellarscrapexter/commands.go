// cmd/cellarscrapexter/commands.go
package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/CellarScrapexter/internal/config"
	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/internal/output"
	"github.com/valpere/CellarScrapexter/internal/pipeline"
	"github.com/valpere/CellarScrapexter/internal/resolver"
	"github.com/valpere/CellarScrapexter/internal/scraper"
	"github.com/valpere/CellarScrapexter/internal/source"
	"github.com/valpere/CellarScrapexter/internal/store"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

func importCommand(app *application) *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "import [source...]",
		Short: "Parse sources and merge them into the catalog",
		Long: `Reads every configured source plus any given on the command line, parses
each line into a wine record and merges the batch into the catalog. Lines
that cannot be parsed are counted and skipped.`,
		Example: `  cellarscrapexter import listings.txt -o catalog.json
  cellarscrapexter import -c cellar.yaml`,
		PreRunE: app.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := app.cfg

			for _, path := range args {
				cfg.Sources = append(cfg.Sources, config.SourceConfig{Path: path, Format: config.FormatFromPath(path)})
			}
			if catalogPath != "" {
				cfg.Catalog = config.CatalogConfig{Backend: config.BackendLocal, Path: catalogPath}
			}
			if len(cfg.Sources) == 0 {
				return errors.Newf(errors.KindConfig, "import", "no sources configured or given")
			}

			sources, err := source.OpenAll(cfg.Sources)
			if err != nil {
				return err
			}
			catalogStore, err := output.NewCatalogStore(ctx, cfg.Catalog)
			if err != nil {
				return err
			}
			existing, err := catalogStore.Load(ctx)
			if err != nil {
				return err
			}
			catalog := pipeline.NewCatalog(existing)

			stopMetrics := app.serveMetrics()
			defer stopMetrics()

			result, err := pipeline.NewImportPipeline(app.logger, app.metrics).Import(ctx, sources, catalog)
			if err != nil {
				return err
			}
			if err := catalogStore.Save(ctx, catalog.Records()); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Imported %d source(s) into %s (%d wines)\n", len(sources), catalogStore.Location(), catalog.Len())
			fmt.Fprintln(w, result.Summary())
			if result.SourceFailures > 0 {
				fmt.Fprintf(w, "%d source(s) could not be read\n", result.SourceFailures)
			}
			printStats(w, result.Stats)
			return nil
		},
	}

	cmd.Flags().StringVarP(&catalogPath, "output", "o", "", "local catalog file; overrides the catalog section")
	return cmd
}

func enrichCommand(app *application) *cobra.Command {
	var (
		force   bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Attach a bottle image to every catalog wine",
		Long: `Runs the image resolution cascade for every catalog wine without an image
(every wine with --force) and saves the catalog. Resolved URLs are cached
in the configured store.`,
		PreRunE: app.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := app.cfg
			if workers > 0 {
				cfg.Workers = workers
			}

			catalogStore, err := output.NewCatalogStore(ctx, cfg.Catalog)
			if err != nil {
				return err
			}
			existing, err := catalogStore.Load(ctx)
			if err != nil {
				return err
			}
			catalog := pipeline.NewCatalog(existing)

			recordStore, err := store.Open(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer recordStore.Close()

			fetcher := scraper.NewFetcher(cfg.Fetch, app.logger, app.metrics)
			defer fetcher.Close()

			stopMetrics := app.serveMetrics()
			defer stopMetrics()

			cascade := resolver.New(cfg.Images, fetcher, app.logger, app.metrics)
			app.logger.Debug("cascade ready", "stages", strings.Join(cascade.Stages(), ","))

			enricher := pipeline.NewEnricher(cascade, recordStore, pipeline.EnricherConfig{
				Workers: cfg.Workers,
				Force:   force,
			}, app.logger, app.metrics)

			result, enrichErr := enricher.Enrich(ctx, catalog)
			if err := catalogStore.Save(ctx, catalog.Records()); err != nil {
				return err
			}
			if enrichErr != nil {
				return enrichErr
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Enriched %d wine(s) in %s\n", result.Attempted, result.Duration.Round(time.Millisecond))
			for _, strategy := range types.ValidStrategies() {
				if n := result.ByStrategy[strategy]; n > 0 {
					fmt.Fprintf(w, "  %-16s %5d\n", strategy, n)
				}
			}
			if result.StoreErrors > 0 {
				fmt.Fprintf(w, "%d store error(s)\n", result.StoreErrors)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "re-resolve wines that already have an image")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent resolutions; overrides the workers setting")
	return cmd
}

func resolveCommand(app *application) *cobra.Command {
	var (
		producer string
		vintage  int
		varietal string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:     "resolve <name>",
		Short:   "Resolve the image of a single wine",
		Example: `  cellarscrapexter resolve "Bramare Malbec" --producer "Viña Cobos" --vintage 2022`,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: app.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := types.WineKey{
				Name:     strings.Join(args, " "),
				Producer: producer,
				Varietal: varietal,
			}
			if vintage > 0 {
				key.Vintage = types.IntPtr(vintage)
			}
			if key.Varietal == "" {
				key.Varietal = types.DefaultVarietal
			}

			fetcher := scraper.NewFetcher(app.cfg.Fetch, app.logger, app.metrics)
			defer fetcher.Close()

			candidate := resolver.New(app.cfg.Images, fetcher, app.logger, app.metrics).Resolve(cmd.Context(), key)

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Wine types.WineKey `json:"wine"`
					types.ImageCandidate
				}{key, candidate})
			}
			fmt.Fprintf(w, "%s\t%s\n", candidate.Strategy, candidate.URL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&producer, "producer", "p", "", "producer (vineyard) name")
	cmd.Flags().IntVar(&vintage, "vintage", 0, "vintage year; omit for non-vintage")
	cmd.Flags().StringVar(&varietal, "varietal", "", "grape varietal, used for the fallback strategies")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func reportCommand(app *application) *cobra.Command {
	var xlsxPath, csvPath string

	cmd := &cobra.Command{
		Use:     "report",
		Short:   "Print catalog statistics and export it",
		PreRunE: app.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			catalogStore, err := output.NewCatalogStore(ctx, app.cfg.Catalog)
			if err != nil {
				return err
			}
			records, err := catalogStore.Load(ctx)
			if err != nil {
				return err
			}
			stats := pipeline.ComputeStats(records)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Catalog %s\n", catalogStore.Location())
			printStats(w, stats)

			if xlsxPath != "" {
				if err := output.WriteStatsXLSX(xlsxPath, stats, records); err != nil {
					return err
				}
				fmt.Fprintf(w, "\n✓ Report written to %s\n", xlsxPath)
			}
			if csvPath != "" {
				if err := output.WriteCSVFile(csvPath, records); err != nil {
					return err
				}
				fmt.Fprintf(w, "✓ Catalog exported to %s\n", csvPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write the statistics workbook to this path")
	cmd.Flags().StringVar(&csvPath, "csv", "", "export the catalog, best rated first, to this path")
	return cmd
}

func validateCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [config]",
		Short: "Validate a configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.configPath
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				return errors.Newf(errors.KindConfig, "validate", "no configuration file given")
			}

			cfg, err := config.LoadFromFile(path)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "✓ Configuration file '%s' is valid\n", path)
			for _, warning := range cfg.Check().Warnings {
				fmt.Fprintf(w, "  warning: %s\n", warning)
			}
			return nil
		},
	}
}

func templateCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Print a configuration template",
		RunE: func(cmd *cobra.Command, _ []string) error {
			known := config.TemplateTypes()
			sort.Strings(known)
			if i := sort.SearchStrings(known, kind); i == len(known) || known[i] != kind {
				return errors.Newf(errors.KindConfig, "template", "unknown template type %q (available: %s)",
					kind, strings.Join(known, ", "))
			}

			cfg := config.GenerateTemplate(kind)
			return config.SaveToWriter(&cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", "basic", "template type: "+strings.Join(config.TemplateTypes(), ", "))
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "CellarScrapexter %s\n", version)
			fmt.Fprintf(w, "  Build time: %s\n", buildTime)
			fmt.Fprintf(w, "  Git commit: %s\n", gitCommit)
			fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
