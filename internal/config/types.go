// internal/config/types.go

// Package config provides the run configuration for CellarScrapexter.
// It describes where wine records come from, where the catalog lives, which
// persistence collaborator caches resolved images, and how the image
// resolution cascade reaches external sources.
package config

import (
	"time"
)

// Source formats understood by the source package.
const (
	FormatText = "text"
	FormatHTML = "html"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Catalog backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongoDB  = "mongodb"
)

// Config represents the main configuration structure for a run.
type Config struct {
	// Name identifies this configuration
	Name string `yaml:"name" json:"name"`

	// Sources are read in order by the import command
	Sources []SourceConfig `yaml:"sources" json:"sources"`

	// Catalog is where the deduplicated records are persisted
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`

	// Store is the persistence collaborator holding resolved images
	Store StoreConfig `yaml:"store" json:"store"`

	// Images configures the resolution cascade
	Images ImagesConfig `yaml:"images" json:"images"`

	// Fetch configures outbound requests
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Workers bounds concurrent image resolutions
	Workers int `yaml:"workers" json:"workers"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// SourceConfig describes one input file.
type SourceConfig struct {
	// Path to the file
	Path string `yaml:"path" json:"path"`

	// Format is text, html, csv or xlsx; inferred from the extension when empty
	Format string `yaml:"format,omitempty" json:"format,omitempty"`

	// Selector picks the elements of an html source that carry one wine each
	Selector string `yaml:"selector,omitempty" json:"selector,omitempty"`

	// Attribute is read instead of the element text when set (e.g. aria-label)
	Attribute string `yaml:"attribute,omitempty" json:"attribute,omitempty"`

	// Sheet names the worksheet of an xlsx source; the first sheet when empty
	Sheet string `yaml:"sheet,omitempty" json:"sheet,omitempty"`
}

// CatalogConfig defines where the catalog is stored.
type CatalogConfig struct {
	Path    string   `yaml:"path" json:"path"`
	Backend string   `yaml:"backend" json:"backend"`
	S3      S3Config `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// S3Config holds the object location and credentials for the s3 backend.
// Empty credentials fall back to the default AWS chain.
type S3Config struct {
	Bucket          string `yaml:"bucket" json:"bucket"`
	Key             string `yaml:"key" json:"key"`
	Region          string `yaml:"region" json:"region"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
	UsePathStyle    bool   `yaml:"use_path_style,omitempty" json:"use_path_style,omitempty"`
}

// StoreConfig selects the persistence collaborator.
type StoreConfig struct {
	Driver     string `yaml:"driver" json:"driver"`
	DSN        string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	Database   string `yaml:"database,omitempty" json:"database,omitempty"`
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`
	Table      string `yaml:"table,omitempty" json:"table,omitempty"`
}

// ImagesConfig configures the resolution cascade.
type ImagesConfig struct {
	// MediaHost is the only host image URLs are accepted from
	MediaHost string `yaml:"media_host" json:"media_host"`

	// SearchURL is the external search endpoint; {query} is replaced
	SearchURL string `yaml:"search_url" json:"search_url"`

	// PhotoSearchURL is the generic photo search; empty disables the stage
	PhotoSearchURL string `yaml:"photo_search_url,omitempty" json:"photo_search_url,omitempty"`
	PhotoAccessKey string `yaml:"photo_access_key,omitempty" json:"photo_access_key,omitempty"`

	// OverrideFile is the manual pin table (JSON or YAML)
	OverrideFile string        `yaml:"override_file" json:"override_file"`
	OverrideTTL  time.Duration `yaml:"override_ttl" json:"override_ttl"`

	// Placeholders maps a wine color to its fallback image
	Placeholders map[string]string `yaml:"placeholders,omitempty" json:"placeholders,omitempty"`

	// StateSelectors locate the embedded application-state script block
	StateSelectors []string `yaml:"state_selectors,omitempty" json:"state_selectors,omitempty"`
}

// FetchConfig controls outbound requests.
type FetchConfig struct {
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	Retries    int           `yaml:"retries" json:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
	HostDelay  time.Duration `yaml:"host_delay" json:"host_delay"`
	CacheTTL   time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	UserAgents []string      `yaml:"user_agents,omitempty" json:"user_agents,omitempty"`

	// BreakerFailures consecutive failures open a host's circuit
	BreakerFailures int           `yaml:"breaker_failures" json:"breaker_failures"`
	BreakerReset    time.Duration `yaml:"breaker_reset" json:"breaker_reset"`

	Browser BrowserConfig `yaml:"browser" json:"browser"`
}

// BrowserConfig enables the headless fetcher for script-rendered pages.
type BrowserConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Headless     bool          `yaml:"headless" json:"headless"`
	WaitSelector string        `yaml:"wait_selector,omitempty" json:"wait_selector,omitempty"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent    string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
}

// LoggingConfig selects log level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// MetricsConfig controls the operator server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
}
