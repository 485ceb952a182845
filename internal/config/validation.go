// internal/config/validation.go - Validation with detailed error messages
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/valpere/CellarScrapexter/internal/errors"
)

// ValidationError represents a detailed validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings"`
}

func (r *ValidationResult) addError(field, value, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: message})
}

// Validate checks the configuration and returns a KindConfig error listing
// every problem found.
func (c *Config) Validate() error {
	result := c.Check()
	if len(result.Errors) > 0 {
		return errors.New(errors.KindConfig, "validate config", formatValidationError(result))
	}
	return nil
}

// Check runs every validation rule and reports errors and warnings
func (c *Config) Check() *ValidationResult {
	result := &ValidationResult{Valid: true}

	c.validateSources(result)
	c.validateCatalog(result)
	c.validateStore(result)
	c.validateImages(result)
	c.validateFetch(result)

	if c.Workers < 0 || c.Workers > 64 {
		result.addError("workers", fmt.Sprint(c.Workers), "Workers must be between 1 and 64")
	}
	if _, ok := map[string]bool{"": true, "text": true, "json": true}[c.Logging.Format]; !ok {
		result.addError("logging.format", c.Logging.Format, "Log format must be text or json")
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func (c *Config) validateSources(result *ValidationResult) {
	for i, src := range c.Sources {
		field := fmt.Sprintf("sources[%d]", i)
		if src.Path == "" {
			result.addError(field+".path", "", "Source path is required")
		}
		switch src.Format {
		case "", FormatText, FormatCSV, FormatXLSX:
		case FormatHTML:
			if src.Selector == "" {
				result.addError(field+".selector", "", "HTML sources need a CSS selector")
			}
		default:
			result.addError(field+".format", src.Format, "Format must be one of text, html, csv, xlsx")
		}
	}
}

func (c *Config) validateCatalog(result *ValidationResult) {
	switch c.Catalog.Backend {
	case "", BackendLocal:
		if c.Catalog.Path == "" {
			result.addError("catalog.path", "", "Catalog path is required for the local backend")
		}
	case BackendS3:
		if c.Catalog.S3.Bucket == "" {
			result.addError("catalog.s3.bucket", "", "Bucket is required for the s3 backend")
		}
		if c.Catalog.S3.Endpoint != "" {
			if _, err := url.ParseRequestURI(c.Catalog.S3.Endpoint); err != nil {
				result.addError("catalog.s3.endpoint", c.Catalog.S3.Endpoint, "Endpoint must be an absolute URL")
			}
		}
	default:
		result.addError("catalog.backend", c.Catalog.Backend, "Backend must be local or s3")
	}
}

func (c *Config) validateStore(result *ValidationResult) {
	switch c.Store.Driver {
	case "", DriverMemory:
	case DriverSQLite, DriverPostgres, DriverMySQL, DriverMongoDB:
		if c.Store.DSN == "" {
			result.addError("store.dsn", "", fmt.Sprintf("DSN is required for the %s driver", c.Store.Driver))
		}
	default:
		result.addError("store.driver", c.Store.Driver, "Driver must be one of memory, sqlite, postgres, mysql, mongodb")
	}
	if c.Store.Table != "" && !isIdentifier(c.Store.Table) {
		result.addError("store.table", c.Store.Table, "Table name may contain only letters, digits and underscores")
	}
}

func (c *Config) validateImages(result *ValidationResult) {
	if strings.Contains(c.Images.MediaHost, "/") {
		result.addError("images.media_host", c.Images.MediaHost, "Media host must be a bare host name")
	}
	checkTemplateURL(result, "images.search_url", c.Images.SearchURL, true)
	checkTemplateURL(result, "images.photo_search_url", c.Images.PhotoSearchURL, false)
	if c.Images.OverrideTTL < 0 {
		result.addError("images.override_ttl", c.Images.OverrideTTL.String(), "Override TTL cannot be negative")
	}
	for color := range c.Images.Placeholders {
		switch color {
		case "red", "white", "rose", "sparkling", "dessert":
		default:
			result.addError("images.placeholders", color, "Unknown wine color")
		}
	}
}

func (c *Config) validateFetch(result *ValidationResult) {
	if c.Fetch.Timeout < 0 {
		result.addError("fetch.timeout", c.Fetch.Timeout.String(), "Timeout cannot be negative")
	}
	if c.Fetch.Retries < 0 || c.Fetch.Retries > 10 {
		result.addError("fetch.retries", fmt.Sprint(c.Fetch.Retries), "Retries must be between 0 and 10")
	}
	if c.Fetch.HostDelay < 0 {
		result.addError("fetch.host_delay", c.Fetch.HostDelay.String(), "Host delay cannot be negative")
	}
	if c.Fetch.HostDelay == 0 && c.Workers > 1 {
		result.Warnings = append(result.Warnings, "fetch.host_delay is 0; concurrent workers will hit the search host back to back")
	}
}

func checkTemplateURL(result *ValidationResult, field, raw string, required bool) {
	if raw == "" {
		if required {
			result.addError(field, "", "URL is required")
		}
		return
	}
	u, err := url.Parse(strings.ReplaceAll(raw, "{query}", "q"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result.addError(field, raw, "URL must be absolute http(s)")
		return
	}
	if !strings.Contains(raw, "{query}") {
		result.addError(field, raw, "URL must contain a {query} placeholder")
	}
}

func isIdentifier(s string) bool {
	for _, r := range s {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return s != ""
}

// formatValidationError creates a comprehensive error message
func formatValidationError(result *ValidationResult) error {
	var b strings.Builder

	b.WriteString("configuration validation failed:\n")
	for i, err := range result.Errors {
		fmt.Fprintf(&b, "  %d. %s", i+1, err.Message)
		if err.Field != "" {
			fmt.Fprintf(&b, " (field: %s)", err.Field)
		}
		if err.Value != "" {
			fmt.Fprintf(&b, " (value: %s)", err.Value)
		}
		b.WriteString("\n")
	}

	return fmt.Errorf("%s", strings.TrimRight(b.String(), "\n"))
}
