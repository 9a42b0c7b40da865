// Package metrics exposes Prometheus instruments for resolution, batch
// reconciliation, imports, and the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every instrument. All methods are safe on a nil receiver so
// components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Resolutions by strategy: none, exact_raw, exact_normalized, legacy_permanent, legacy_fallback
	Resolutions *prometheus.CounterVec

	// Legacy lookups that fell back to the first of several non-permanent candidates
	AmbiguousFallbacks prometheus.Counter

	// Legacy candidate set sizes
	LegacyCandidates prometheus.Histogram

	// Registry lookup latency by operation
	LookupLatency *prometheus.HistogramVec

	// Batch reconciliation
	BatchLatency prometheus.Histogram
	BatchInputs  *prometheus.CounterVec

	// CSV imports
	ImportedRows *prometheus.CounterVec

	// HTTP API
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// New creates a Metrics instance on its own registry, with Go runtime and
// process collectors attached.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "permanentes_resolutions_total",
			Help: "Identifier resolutions by winning strategy",
		}, []string{"strategy"}),

		AmbiguousFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "permanentes_legacy_ambiguous_total",
			Help: "Legacy lookups resolved to the first of several non-permanent candidates",
		}),

		LegacyCandidates: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "permanentes_legacy_candidates",
			Help:    "Number of registry candidates returned for a decoded legacy number",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 25, 50},
		}),

		LookupLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "permanentes_registry_lookup_duration_seconds",
			Help:    "Duration of registry lookups by operation",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"operation"}), // operation: "exact", "legacy"

		BatchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "permanentes_batch_duration_seconds",
			Help:    "Duration of full batch reconciliations",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		BatchInputs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "permanentes_batch_inputs_total",
			Help: "Unique batch inputs by outcome",
		}, []string{"outcome"}), // outcome: "matched", "unmatched", "failed"

		ImportedRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "permanentes_import_rows_total",
			Help: "CSV rows processed by outcome",
		}, []string{"outcome"}), // outcome: "created", "updated", "skipped", "failed"

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "permanentes_http_requests_total",
			Help: "HTTP API requests by route and status code",
		}, []string{"route", "code"}),

		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "permanentes_http_request_duration_seconds",
			Help:    "HTTP API request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// IncrementResolution records which strategy settled a resolution.
func (m *Metrics) IncrementResolution(strategy string) {
	if m != nil {
		m.Resolutions.WithLabelValues(strategy).Inc()
	}
}

// IncrementAmbiguous records a first-candidate legacy fallback.
func (m *Metrics) IncrementAmbiguous() {
	if m != nil {
		m.AmbiguousFallbacks.Inc()
	}
}

// ObserveCandidates records the size of a legacy candidate set.
func (m *Metrics) ObserveCandidates(n int) {
	if m != nil {
		m.LegacyCandidates.Observe(float64(n))
	}
}

// ObserveLookup records the duration of one registry lookup.
func (m *Metrics) ObserveLookup(operation string, d time.Duration) {
	if m != nil {
		m.LookupLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// ObserveBatch records one reconciliation run.
func (m *Metrics) ObserveBatch(d time.Duration, matched, unmatched, failed int) {
	if m == nil {
		return
	}
	m.BatchLatency.Observe(d.Seconds())
	m.BatchInputs.WithLabelValues("matched").Add(float64(matched))
	m.BatchInputs.WithLabelValues("unmatched").Add(float64(unmatched))
	m.BatchInputs.WithLabelValues("failed").Add(float64(failed))
}

// AddImportedRows records importer progress for one outcome.
func (m *Metrics) AddImportedRows(outcome string, n int) {
	if m != nil && n > 0 {
		m.ImportedRows.WithLabelValues(outcome).Add(float64(n))
	}
}

// ObserveHTTP records one API request.
func (m *Metrics) ObserveHTTP(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, statusLabel(code)).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(d.Seconds())
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
