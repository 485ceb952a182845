// internal/monitoring/monitoring_test.go
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/CellarScrapexter/pkg/types"
)

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics(MetricsConfig{Namespace: "wine"})

	m.ObserveImport(10, 2, 1, 7)
	m.ObserveImport(5, 0, 0, 0)
	m.ObserveFetch("www.example.com", 120*time.Millisecond, nil)
	m.ObserveFetch("www.example.com", time.Second, errors.New("boom"))
	m.ObserveFetchShortCircuit("www.example.com")
	m.ObserveResolution(types.StrategyOverride)
	m.ObserveResolution(types.StrategyPlaceholder)
	m.ObserveResolution(types.StrategyPlaceholder)
	m.ObserveCandidates("markup-pattern", 3)
	m.ObserveCandidates("linked-data", 0)
	m.ObserveCandidateReject()
	m.ObserveMalformed("embedded-state")
	m.ObserveOverrideReload(nil)
	m.ObserveResolveDuration(50 * time.Millisecond)

	assert.Equal(t, 15.0, testutil.ToFloat64(m.recordsParsed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.parseFailures))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.recordsAdded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchTotal.WithLabelValues("www.example.com", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchTotal.WithLabelValues("www.example.com", "circuit_open")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.resolutions.WithLabelValues("placeholder")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.candidates.WithLabelValues("markup-pattern")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.candidates), "zero counts create no series")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.overrideReloads.WithLabelValues("ok")))
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveImport(1, 1, 1, 1)
		m.ObserveFetch("h", time.Second, nil)
		m.ObserveResolution(types.StrategyCached)
		m.ObserveMalformed("x")
		m.ObserveOverrideReload(errors.New("x"))
	})
	assert.Nil(t, m.Registry())
	assert.NotNil(t, m.Handler())
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(MetricsConfig{Namespace: "wine", EnableGoMetrics: true})
	m.ObserveResolution(types.StrategyLinkedData)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `wine_images_resolutions_total{strategy="linked-data"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestHealthManager(t *testing.T) {
	hm := NewHealthManager("1.2.3", time.Second)
	hm.RegisterCheck(HealthCheck{Name: "store", Critical: true, Check: func(ctx context.Context) error { return nil }})
	hm.RegisterCheck(HealthCheck{Name: "overrides", Check: func(ctx context.Context) error { return errors.New("stale") }})

	health := hm.GetHealth(context.Background())
	assert.Equal(t, HealthStatusDegraded, health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	require.Len(t, health.Checks, 2)
	assert.Equal(t, "overrides", health.Checks[0].Name)
	assert.Equal(t, "stale", health.Checks[0].Error)

	hm.RegisterCheck(HealthCheck{Name: "store", Critical: true, Check: func(ctx context.Context) error { return errors.New("down") }})
	assert.Equal(t, HealthStatusUnhealthy, hm.GetHealth(context.Background()).Status)
}

func TestHealthCheckTimeout(t *testing.T) {
	hm := NewHealthManager("", 20*time.Millisecond)
	hm.RegisterCheck(HealthCheck{Name: "slow", Critical: true, Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	health := hm.GetHealth(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, health.Status)
	assert.True(t, strings.Contains(health.Checks[0].Error, "deadline"))
}

func TestHealthHandler(t *testing.T) {
	hm := NewHealthManager("dev", time.Second)
	hm.RegisterCheck(HealthCheck{Name: "store", Critical: true, Check: func(ctx context.Context) error { return errors.New("down") }})

	rec := httptest.NewRecorder()
	hm.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var health SystemHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, HealthStatusUnhealthy, health.Status)
}
