// Package metrics exposes the server's Prometheus collectors. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	turnsCompleted  prometheus.Counter
	turnsForced     prometheus.Counter
	notifications   *prometheus.CounterVec
	sweepDuration   prometheus.Histogram
}

// New creates the collectors on a fresh registry, including the Go runtime
// and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "piso_http_request_duration_seconds",
			Help:    "HTTP request latency by method and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
		turnsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "piso_turns_completed_total",
			Help: "Supply turns completed by their holder",
		}),
		turnsForced: factory.NewCounter(prometheus.CounterOpts{
			Name: "piso_turns_forced_total",
			Help: "Supply turns unlocked or advanced by an administrator",
		}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "piso_notifications_total",
			Help: "Reminder sweep notifications by kind and outcome",
		}, []string{"kind", "outcome"}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "piso_sweep_duration_seconds",
			Help:    "Duration of reminder sweeps",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
}

// TurnCompleted counts a completed turn.
func (m *Metrics) TurnCompleted() {
	if m == nil {
		return
	}
	m.turnsCompleted.Inc()
}

// TurnForced counts an administrative unlock or advance.
func (m *Metrics) TurnForced() {
	if m == nil {
		return
	}
	m.turnsForced.Inc()
}

// Notification counts one sweep outcome (sent, error or skipped).
func (m *Metrics) Notification(kind, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, outcome).Inc()
}

// ObserveSweep records the duration of a reminder sweep.
func (m *Metrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}
