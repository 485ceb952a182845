// internal/scraper/browser_test.go
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/valpere/CellarScrapexter/internal/config"
	"github.com/valpere/CellarScrapexter/internal/errors"
)

func TestBrowserFetcherInvalidURLDoesNotStartChrome(t *testing.T) {
	b := NewBrowserFetcher(config.BrowserConfig{Headless: true}, 0, nil, nil)
	defer b.Close()

	_, err := b.Fetch(context.Background(), "not a url")
	if err == nil {
		t.Fatal("expected an error for an invalid URL")
	}
	if errors.KindOf(err) != errors.KindFetchFailure {
		t.Errorf("expected fetch failure, got %v", err)
	}
	if c := chromedp.FromContext(b.browserCtx); c == nil || c.Browser != nil {
		t.Error("browser must not be launched before a valid fetch")
	}
}

func TestBrowserFetcherSharesOneBrowser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><h1>%s</h1></body></html>", r.URL.Path)
	}))
	defer srv.Close()

	b := NewBrowserFetcher(config.BrowserConfig{Headless: true, Timeout: 20 * time.Second}, 0, nil, nil)
	defer b.Close()

	if _, err := b.browser(); err != nil {
		t.Skipf("Skipping browser test - Chrome may not be available: %v", err)
	}
	first := chromedp.FromContext(b.browserCtx).Browser

	for _, path := range []string{"/one", "/two"} {
		html, err := b.Fetch(context.Background(), srv.URL+path)
		if err != nil {
			t.Fatalf("fetch %s: %v", path, err)
		}
		if !strings.Contains(html, path) {
			t.Errorf("expected rendered page for %s, got %q", path, html)
		}
	}

	if got := chromedp.FromContext(b.browserCtx).Browser; got != first {
		t.Error("each fetch must reuse the shared browser")
	}
}
