// Package metrics exposes Prometheus collectors for the DOM mirror.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one dom_tail process. Each instance owns
// its registry, so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	mirrorEvents       *prometheus.CounterVec
	staleEvents        *prometheus.CounterVec
	contractViolations *prometheus.CounterVec
	mirroredNodes      *prometheus.GaugeVec
	activeTabs         prometheus.Gauge
	hostRequestSeconds *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		mirrorEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dom_tail_mirror_events_total",
				Help: "Mirror notifications delivered to observers, labeled by kind.",
			},
			[]string{"kind"},
		),
		staleEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dom_tail_stale_events_total",
				Help: "Host events ignored because they referenced unknown nodes, labeled by operation.",
			},
			[]string{"op"},
		),
		contractViolations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dom_tail_contract_violations_total",
				Help: "Host events ignored because they broke the mirror contract, labeled by operation.",
			},
			[]string{"op"},
		),
		mirroredNodes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dom_tail_mirrored_nodes",
				Help: "Number of nodes currently mirrored, labeled by tab.",
			},
			[]string{"tab"},
		),
		activeTabs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dom_tail_active_tabs",
				Help: "Number of tabs with a running DOM monitor.",
			},
		),
		hostRequestSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dom_tail_host_request_seconds",
				Help:    "Latency of DOM commands sent to the browser, labeled by method.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method"},
		),
	}
}

// Handler returns an http.Handler for the instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveMirrorEvent counts a mirror notification.
func (m *Metrics) ObserveMirrorEvent(kind string) {
	m.mirrorEvents.WithLabelValues(kind).Inc()
}

// ObserveStale counts an ignored stale host event.
func (m *Metrics) ObserveStale(op string) {
	m.staleEvents.WithLabelValues(op).Inc()
}

// ObserveViolation counts an ignored contract violation.
func (m *Metrics) ObserveViolation(op string) {
	m.contractViolations.WithLabelValues(op).Inc()
}

// SetMirroredNodes records the size of a tab's mirror.
func (m *Metrics) SetMirroredNodes(tab string, n int) {
	m.mirroredNodes.WithLabelValues(tab).Set(float64(n))
}

// TabStarted increments the active tab gauge.
func (m *Metrics) TabStarted() { m.activeTabs.Inc() }

// TabStopped decrements the active tab gauge and drops the tab's series.
func (m *Metrics) TabStopped(tab string) {
	m.activeTabs.Dec()
	m.mirroredNodes.DeleteLabelValues(tab)
}

// ObserveHostRequest records the latency of a host command.
func (m *Metrics) ObserveHostRequest(method string, d time.Duration) {
	m.hostRequestSeconds.WithLabelValues(method).Observe(d.Seconds())
}
