// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/CellarScrapexter/pkg/types"
)

// Metrics holds the aggregate counters for imports, fetches and image
// resolution. All methods are safe on a nil receiver, so components can be
// built without metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Import metrics
	recordsParsed     prometheus.Counter
	parseFailures     prometheus.Counter
	validationRejects prometheus.Counter
	recordsAdded      prometheus.Counter

	// Fetch metrics
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec

	// Resolution metrics
	resolutions        *prometheus.CounterVec
	resolveDuration    prometheus.Histogram
	candidates         *prometheus.CounterVec
	candidateRejects   prometheus.Counter
	malformedDocuments *prometheus.CounterVec
	overrideReloads    *prometheus.CounterVec
}

// MetricsConfig configuration for metrics
type MetricsConfig struct {
	Namespace       string `yaml:"namespace" json:"namespace"`
	EnableGoMetrics bool   `yaml:"enable_go_metrics" json:"enable_go_metrics"`
}

// NewMetrics creates metrics on a private registry
func NewMetrics(config MetricsConfig) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "cellarscrapexter"
	}

	reg := prometheus.NewRegistry()
	if config.EnableGoMetrics {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	factory := promauto.With(reg)
	ns := config.Namespace

	return &Metrics{
		registry: reg,

		recordsParsed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "import", Name: "records_parsed_total",
			Help: "Records produced by sources before normalization",
		}),
		parseFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "import", Name: "parse_failures_total",
			Help: "Input lines that could not be parsed",
		}),
		validationRejects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "import", Name: "validation_rejects_total",
			Help: "Records discarded by normalization",
		}),
		recordsAdded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "import", Name: "records_added_total",
			Help: "Records whose merge key was new to the catalog",
		}),

		fetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "fetch", Name: "requests_total",
			Help: "External document fetches by host and outcome",
		}, []string{"host", "outcome"}),
		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "fetch", Name: "duration_seconds",
			Help:    "External document fetch duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),

		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "images", Name: "resolutions_total",
			Help: "Image resolutions by winning strategy",
		}, []string{"strategy"}),
		resolveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "images", Name: "resolve_duration_seconds",
			Help:    "Time to run the resolution cascade for one wine",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		candidates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "images", Name: "candidates_total",
			Help: "Validated candidates returned per extractor",
		}, []string{"extractor"}),
		candidateRejects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "images", Name: "candidate_rejects_total",
			Help: "Candidate URLs rejected by the validator",
		}),
		malformedDocuments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "images", Name: "malformed_documents_total",
			Help: "Payloads an extractor could not interpret",
		}, []string{"extractor"}),
		overrideReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "images", Name: "override_reloads_total",
			Help: "Override table reloads by outcome",
		}, []string{"outcome"}),
	}
}

// Registry exposes the underlying registry; used by tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveImport adds one batch's counts
func (m *Metrics) ObserveImport(parsed, parseFailures, rejected, added int) {
	if m == nil {
		return
	}
	m.recordsParsed.Add(float64(parsed))
	m.parseFailures.Add(float64(parseFailures))
	m.validationRejects.Add(float64(rejected))
	m.recordsAdded.Add(float64(added))
}

// ObserveFetch records one fetch attempt
func (m *Metrics) ObserveFetch(host string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.fetchTotal.WithLabelValues(host, outcome).Inc()
	m.fetchDuration.WithLabelValues(host).Observe(duration.Seconds())
}

// ObserveFetchShortCircuit records a fetch refused by an open breaker
func (m *Metrics) ObserveFetchShortCircuit(host string) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(host, "circuit_open").Inc()
}

// ObserveResolution counts the strategy that won the cascade
func (m *Metrics) ObserveResolution(strategy types.Strategy) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(string(strategy)).Inc()
}

// ObserveResolveDuration records the time spent on one cascade run
func (m *Metrics) ObserveResolveDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.resolveDuration.Observe(duration.Seconds())
}

// ObserveCandidates counts validated candidates from one extractor
func (m *Metrics) ObserveCandidates(extractor string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.candidates.WithLabelValues(extractor).Add(float64(n))
}

// ObserveCandidateReject counts one validator rejection
func (m *Metrics) ObserveCandidateReject() {
	if m == nil {
		return
	}
	m.candidateRejects.Inc()
}

// ObserveMalformed counts one uninterpretable payload
func (m *Metrics) ObserveMalformed(extractor string) {
	if m == nil {
		return
	}
	m.malformedDocuments.WithLabelValues(extractor).Inc()
}

// ObserveOverrideReload records an override table reload
func (m *Metrics) ObserveOverrideReload(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.overrideReloads.WithLabelValues(outcome).Inc()
}
