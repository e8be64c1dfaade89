// Package metrics holds the Prometheus metrics of the validator.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cfdi_sentinel"

// Status lookup results.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	DocumentsValidated *prometheus.CounterVec
	ValidationDuration prometheus.Histogram
	StatusLookups      *prometheus.CounterVec
	DenylistMatches    *prometheus.CounterVec
	BatchesCompleted   prometheus.Counter
}

// New creates the metrics on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DocumentsValidated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_validated_total",
			Help:      "Documents validated, by outcome",
		}, []string{"outcome"}),
		ValidationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_duration_seconds",
			Help:      "Time spent validating one document",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
		StatusLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sat_status_lookups_total",
			Help:      "SAT status lookups, by cache result",
		}, []string{"result"}),
		DenylistMatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "denylist_matches_total",
			Help:      "RFCs found on a SAT list, by list",
		}, []string{"list"}),
		BatchesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_completed_total",
			Help:      "Batches processed by the orchestrator",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDocument records one validated document.
func (m *Metrics) ObserveDocument(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.DocumentsValidated.WithLabelValues(outcome).Inc()
	m.ValidationDuration.Observe(d.Seconds())
}

// ObserveStatusLookup records a SAT status lookup.
func (m *Metrics) ObserveStatusLookup(result string) {
	if m == nil {
		return
	}
	m.StatusLookups.WithLabelValues(result).Inc()
}

// ObserveDenylistMatch records an RFC found on list.
func (m *Metrics) ObserveDenylistMatch(list string) {
	if m == nil {
		return
	}
	m.DenylistMatches.WithLabelValues(list).Inc()
}

// ObserveBatch records a completed batch.
func (m *Metrics) ObserveBatch() {
	if m == nil {
		return
	}
	m.BatchesCompleted.Inc()
}
