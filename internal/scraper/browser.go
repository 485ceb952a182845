// internal/scraper/browser.go
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/valpere/CellarScrapexter/internal/config"
	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/internal/monitoring"
	"github.com/valpere/CellarScrapexter/internal/utils"
)

// BrowserFetcher renders search pages in headless Chrome for endpoints that
// build their results with JavaScript. One browser is shared; each fetch
// gets its own tab.
type BrowserFetcher struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	startOnce     sync.Once
	startErr      error
	config      config.BrowserConfig
	hosts       *utils.HostLimiter
	logger      utils.Logger
	metrics     *monitoring.Metrics
}

// NewBrowserFetcher creates a new Chrome-backed fetcher. Chrome is started
// lazily on the first fetch.
func NewBrowserFetcher(cfg config.BrowserConfig, hostDelay time.Duration, logger utils.Logger, metrics *monitoring.Metrics) *BrowserFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = utils.NopLogger()
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	return &BrowserFetcher{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		config:        cfg,
		hosts:         utils.NewHostLimiter(hostDelay),
		logger:        logger,
		metrics:       metrics,
	}
}

// browser starts Chrome on first use. Tabs created from the returned
// context attach to that process instead of launching their own.
func (b *BrowserFetcher) browser() (context.Context, error) {
	b.startOnce.Do(func() {
		b.startErr = chromedp.Run(b.browserCtx)
		if b.startErr != nil {
			b.logger.Warn("browser start failed", "error", b.startErr)
		}
	})
	return b.browserCtx, b.startErr
}

// Fetch navigates to target and returns the rendered HTML
func (b *BrowserFetcher) Fetch(ctx context.Context, target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "", errors.Newf(errors.KindFetchFailure, "browser fetch", "invalid URL %q", target)
	}
	host := u.Hostname()

	if err := b.hosts.Wait(ctx, host); err != nil {
		return "", errors.New(errors.KindFetchFailure, "browser fetch", err)
	}

	browserCtx, err := b.browser()
	if err != nil {
		return "", errors.New(errors.KindFetchFailure, "browser fetch", fmt.Errorf("start browser: %w", err))
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.config.Timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	tasks := []chromedp.Action{
		chromedp.Navigate(target),
		chromedp.WaitReady("body"),
	}
	if b.config.WaitSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(b.config.WaitSelector))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	start := time.Now()
	err = chromedp.Run(tabCtx, tasks...)
	b.metrics.ObserveFetch(host, time.Since(start), err)
	if err != nil {
		b.logger.Debug("browser fetch failed", "url", target, "error", err)
		return "", errors.New(errors.KindFetchFailure, "browser fetch", fmt.Errorf("navigation failed: %w", err))
	}
	return html, nil
}

// Close shuts the browser down
func (b *BrowserFetcher) Close() error {
	b.browserCancel()
	b.allocCancel()
	return nil
}
