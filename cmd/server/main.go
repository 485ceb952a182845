// cmd/server/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/valpere/CellarScrapexter/internal/config"
	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/internal/monitoring"
	"github.com/valpere/CellarScrapexter/internal/resolver"
	"github.com/valpere/CellarScrapexter/internal/scraper"
	"github.com/valpere/CellarScrapexter/internal/store"
	"github.com/valpere/CellarScrapexter/internal/utils"
)

var version = "dev"

type options struct {
	configPath string
	listen     string
	apiKey     string
	rps        float64
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &options{}
	cmd := &cobra.Command{
		Use:           "cellarscrapexter-server",
		Short:         "Operator endpoint: health, metrics and single-wine image resolution",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "configuration file (YAML)")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "listen address; defaults to metrics.listen")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", os.Getenv("CELLAR_API_KEY"), "bearer token required on /api")
	cmd.Flags().Float64Var(&opts.rps, "rps", 10, "requests per second allowed on /api; 0 disables limiting")

	if err := cmd.ExecuteContext(ctx); err != nil {
		errorService := errors.NewService()
		fmt.Fprint(os.Stderr, errorService.FormatErrorForCLI(err))
		stop()
		os.Exit(errorService.GetExitCode(err))
	}
}

func run(ctx context.Context, opts *options) error {
	cfg := &config.Config{}
	if opts.configPath != "" {
		loaded, err := config.LoadFromFile(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		config.ApplyDefaults(cfg)
	}

	logger, err := utils.NewLogger(utils.LogConfig{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return errors.New(errors.KindConfig, "configure logging", err)
	}
	metrics := monitoring.NewMetrics(monitoring.MetricsConfig{EnableGoMetrics: true})

	recordStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer recordStore.Close()

	fetcher := scraper.NewFetcher(cfg.Fetch, logger, metrics)
	defer fetcher.Close()

	health := monitoring.NewHealthManager(version, 5*time.Second)
	health.RegisterCheck(monitoring.HealthCheck{
		Name:     "store",
		Critical: true,
		Check:    recordStore.Ping,
	})

	srv := &server{
		resolver: resolver.New(cfg.Images, fetcher, logger, metrics),
		health:   health,
		metrics:  metrics,
		logger:   logger,
		apiKey:   opts.apiKey,
	}
	if opts.rps > 0 {
		srv.limiter = rate.NewLimiter(rate.Limit(opts.rps), int(opts.rps*2)+1)
	}

	addr := opts.listen
	if addr == "" {
		addr = cfg.Metrics.Listen
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(srv.routes(), "cellarscrapexter-server"),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Fetch.Timeout*time.Duration(cfg.Fetch.Retries+1) + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "version", version)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.New(errors.KindConfig, "listen", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
