// cmd/cellarscrapexter/root.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/CellarScrapexter/internal/config"
	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/internal/monitoring"
	"github.com/valpere/CellarScrapexter/internal/pipeline"
	"github.com/valpere/CellarScrapexter/internal/utils"
)

// application carries the state shared by every subcommand of one invocation.
type application struct {
	configPath string
	verbose    bool
	logLevel   string

	cfg     *config.Config
	logger  *slog.Logger
	metrics *monitoring.Metrics
}

func newRootCommand(app *application) *cobra.Command {
	root := &cobra.Command{
		Use:   "cellarscrapexter",
		Short: "Wine catalog reconciliation and bottle image sourcing",
		Long: `CellarScrapexter turns loosely formatted wine listings into a deduplicated
catalog and attaches a bottle image to every wine through a cascade of
override, external search, photo search and placeholder strategies.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "", "configuration file (YAML); defaults apply when omitted")
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "debug logging and technical error details")
	flags.StringVar(&app.logLevel, "log-level", "", "override logging.level from the configuration")

	root.AddCommand(
		importCommand(app),
		enrichCommand(app),
		resolveCommand(app),
		reportCommand(app),
		validateCommand(app),
		templateCommand(),
		versionCommand(),
	)
	return root
}

// setup loads the configuration and builds the logger and metrics
func (a *application) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	if a.verbose {
		level = "debug"
	}
	logger, err := utils.NewLoggerTo(cmd.ErrOrStderr(), utils.LogConfig{Level: level, Format: cfg.Logging.Format})
	if err != nil {
		return errors.New(errors.KindConfig, "configure logging", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.metrics = monitoring.NewMetrics(monitoring.MetricsConfig{EnableGoMetrics: cfg.Metrics.Enabled})
	return nil
}

func (a *application) loadConfig() (*config.Config, error) {
	if a.configPath == "" {
		cfg := &config.Config{}
		config.ApplyDefaults(cfg)
		return cfg, nil
	}
	return config.LoadFromFile(a.configPath)
}

// serveMetrics exposes the registry while a batch runs. The returned func
// shuts the listener down.
func (a *application) serveMetrics() func() {
	if !a.cfg.Metrics.Enabled {
		return func() {}
	}

	srv := &http.Server{
		Addr:              a.cfg.Metrics.Listen,
		Handler:           a.metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics listener stopped", "addr", srv.Addr, "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", srv.Addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func printStats(w io.Writer, stats pipeline.Stats) {
	fmt.Fprintf(w, "\nWines: %d (with image %d)\n", stats.Total, stats.WithImage)
	printCounts(w, "By country", pipeline.Sorted(stats.ByCountry))
	printCounts(w, "By varietal", pipeline.Sorted(stats.ByVarietal))
	printCounts(w, "By region", pipeline.Sorted(stats.ByRegion))
	printCounts(w, "By price band", stats.SortedBands())
}

func printCounts(w io.Writer, title string, counts []pipeline.Count) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, c := range counts {
		fmt.Fprintf(w, "  %-30s %5d\n", c.Label, c.Count)
	}
}
