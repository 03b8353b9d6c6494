// Package metrics exposes relay counters on a private Prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the relay. A nil *Collector is
// valid and records nothing.
type Collector struct {
	Registry *prometheus.Registry

	RelayRequestsTotal   *prometheus.CounterVec
	RelayDuration        *prometheus.HistogramVec
	TimeToFirstFragment  *prometheus.HistogramVec
	FragmentsTotal       *prometheus.CounterVec
	MalformedChunksTotal *prometheus.CounterVec
	ModelListTotal       *prometheus.CounterVec
	ActiveStreams        prometheus.Gauge
}

// New creates a Collector with all metrics registered on a custom registry.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,

		RelayRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quran_ai",
			Subsystem: "relay",
			Name:      "requests_total",
			Help:      "Relay invocations by provider and outcome.",
		}, []string{"provider", "outcome"}),

		RelayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quran_ai",
			Subsystem: "relay",
			Name:      "duration_seconds",
			Help:      "Time from dispatch to end of stream.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"provider"}),

		TimeToFirstFragment: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quran_ai",
			Subsystem: "relay",
			Name:      "first_fragment_seconds",
			Help:      "Time from dispatch to the first non-empty fragment.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider"}),

		FragmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quran_ai",
			Subsystem: "relay",
			Name:      "fragments_total",
			Help:      "Fragments written to clients.",
		}, []string{"provider"}),

		MalformedChunksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quran_ai",
			Subsystem: "upstream",
			Name:      "malformed_chunks_total",
			Help:      "Upstream stream records dropped because they did not parse.",
		}, []string{"provider"}),

		ModelListTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quran_ai",
			Subsystem: "upstream",
			Name:      "model_list_total",
			Help:      "Model catalog lookups by provider and outcome.",
		}, []string{"provider", "outcome"}),

		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quran_ai",
			Subsystem: "relay",
			Name:      "active_streams",
			Help:      "Relay streams currently open.",
		}),
	}

	reg.MustRegister(
		c.RelayRequestsTotal,
		c.RelayDuration,
		c.TimeToFirstFragment,
		c.FragmentsTotal,
		c.MalformedChunksTotal,
		c.ModelListTotal,
		c.ActiveStreams,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{Registry: c.Registry})
}

// MalformedChunk counts a dropped upstream record.
func (c *Collector) MalformedChunk(provider string) {
	if c == nil {
		return
	}
	c.MalformedChunksTotal.WithLabelValues(provider).Inc()
}

// ModelList records the outcome of a catalog lookup.
func (c *Collector) ModelList(provider, outcome string) {
	if c == nil {
		return
	}
	c.ModelListTotal.WithLabelValues(provider, outcome).Inc()
}

// StreamOpened marks the start of a relay stream and returns a func that
// records its end with the given outcome.
func (c *Collector) StreamOpened(provider string) func(outcome string, seconds float64) {
	if c == nil {
		return func(string, float64) {}
	}
	c.ActiveStreams.Inc()
	return func(outcome string, seconds float64) {
		c.ActiveStreams.Dec()
		c.RelayRequestsTotal.WithLabelValues(provider, outcome).Inc()
		c.RelayDuration.WithLabelValues(provider).Observe(seconds)
	}
}

// Rejected records a relay request that never reached streaming.
func (c *Collector) Rejected(provider, outcome string) {
	if c == nil {
		return
	}
	c.RelayRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// FirstFragment observes time-to-first-fragment.
func (c *Collector) FirstFragment(provider string, seconds float64) {
	if c == nil {
		return
	}
	c.TimeToFirstFragment.WithLabelValues(provider).Observe(seconds)
}

// Fragment counts a relayed fragment.
func (c *Collector) Fragment(provider string) {
	if c == nil {
		return
	}
	c.FragmentsTotal.WithLabelValues(provider).Inc()
}
