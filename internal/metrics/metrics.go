// Package metrics exposes Prometheus instrumentation for note operations.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/starford/notehub/internal/apperr"
)

// Metrics holds the collectors registered on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	operations    *prometheus.CounterVec
	searchResults prometheus.Histogram
}

// New creates and registers the notehub collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notehub",
			Name:      "note_operations_total",
			Help:      "Note operations by operation and result.",
		}, []string{"op", "result"}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "notehub",
			Name:      "search_results",
			Help:      "Number of notes returned per search.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
	}
	reg.MustRegister(
		m.operations,
		m.searchResults,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOp counts one operation, labelled with the class of err.
func (m *Metrics) ObserveOp(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, Result(err)).Inc()
}

// ObserveSearch records the size of a search result set.
func (m *Metrics) ObserveSearch(n int) {
	if m == nil {
		return
	}
	m.searchResults.Observe(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Result maps an operation error to a low-cardinality label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrPermissionDenied):
		return "denied"
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrInvalidQuery):
		return "invalid"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
