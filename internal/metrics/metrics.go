// Package metrics records backend activity of a hydration with Prometheus
// collectors. lade is a short-lived process, so metrics are not served over
// HTTP; they can be dumped to a node-exporter textfile with WriteTextfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// BackendMetrics provides methods to record hydration metrics.
// A nil *BackendMetrics is valid and records nothing.
type BackendMetrics struct {
	backendCalls    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	references      *prometheus.CounterVec
	hydrations      *prometheus.CounterVec
}

// NewBackendMetrics registers the collectors on reg.
func NewBackendMetrics(reg prometheus.Registerer) *BackendMetrics {
	factory := promauto.With(reg)
	return &BackendMetrics{
		backendCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lade_backend_calls_total",
				Help: "Total number of backend calls (CLI invocations or file reads)",
			},
			[]string{"provider", "status"},
		),
		backendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lade_backend_call_duration_seconds",
				Help:    "Duration of backend calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"provider"},
		),
		references: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lade_references_total",
				Help: "Total number of secret references claimed per provider",
			},
			[]string{"provider"},
		),
		hydrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lade_hydrations_total",
				Help: "Total number of hydrations",
			},
			[]string{"status"},
		),
	}
}

// RecordBackendCall records one backend call and its duration.
func (m *BackendMetrics) RecordBackendCall(provider string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.backendCalls.WithLabelValues(provider, status(err)).Inc()
	m.backendDuration.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}

// RecordReference records a reference claimed by provider.
func (m *BackendMetrics) RecordReference(provider string) {
	if m == nil {
		return
	}
	m.references.WithLabelValues(provider).Inc()
}

// RecordHydration records the outcome of a whole hydration.
func (m *BackendMetrics) RecordHydration(err error) {
	if m == nil {
		return
	}
	m.hydrations.WithLabelValues(status(err)).Inc()
}

// BackendCalls returns the backend call counter for testing.
func (m *BackendMetrics) BackendCalls() *prometheus.CounterVec {
	return m.backendCalls
}

// References returns the claimed reference counter for testing.
func (m *BackendMetrics) References() *prometheus.CounterVec {
	return m.references
}

// Hydrations returns the hydration counter for testing.
func (m *BackendMetrics) Hydrations() *prometheus.CounterVec {
	return m.hydrations
}

// WriteTextfile writes everything gathered from g to path in the text
// exposition format, replacing the file atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
