// internal/scraper/types.go
package scraper

import (
	"context"
	"time"

	"github.com/valpere/CellarScrapexter/internal/config"
)

// Fetcher retrieves an external document as text. Every failure is a
// KindFetchFailure; callers advance the cascade instead of aborting.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, url string) (string, error)

// Fetch calls f
func (f FetcherFunc) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// FetcherConfig defines configuration options for the HTTP fetcher
type FetcherConfig struct {
	Timeout         time.Duration
	Retries         int
	RetryDelay      time.Duration
	HostDelay       time.Duration
	CacheTTL        time.Duration
	UserAgents      []string
	BreakerFailures int
	BreakerReset    time.Duration
	MaxBodyBytes    int64
}

// FetcherConfigFrom maps the run configuration onto fetcher settings
func FetcherConfigFrom(cfg config.FetchConfig) FetcherConfig {
	return FetcherConfig{
		Timeout:         cfg.Timeout,
		Retries:         cfg.Retries,
		RetryDelay:      cfg.RetryDelay,
		HostDelay:       cfg.HostDelay,
		CacheTTL:        cfg.CacheTTL,
		UserAgents:      cfg.UserAgents,
		BreakerFailures: cfg.BreakerFailures,
		BreakerReset:    cfg.BreakerReset,
	}
}

// FetchStats provides information about fetcher configuration and usage
type FetchStats struct {
	UserAgentsCount int                    `json:"user_agents_count"`
	CachedDocuments int                    `json:"cached_documents"`
	Retries         int                    `json:"retries"`
	Timeout         time.Duration          `json:"timeout"`
	Breakers        map[string]interface{} `json:"breakers"`
}
