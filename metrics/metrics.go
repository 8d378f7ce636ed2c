// Package metrics collects Prometheus metrics for generation, preview and HTTP traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all metrics on its own registry; nothing is registered globally.
type Collector struct {
	Registry *prometheus.Registry

	GenerationsTotal   *prometheus.CounterVec
	UpstreamDuration   *prometheus.HistogramVec
	PreviewsTotal      *prometheus.CounterVec
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
	ActiveWorkspaces   prometheus.Gauge
}

// New creates a Collector with every metric registered.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,

		GenerationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitegen",
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Generation requests by outcome.",
		}, []string{"outcome"}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sitegen",
			Subsystem: "generation",
			Name:      "upstream_duration_seconds",
			Help:      "Upstream generateContent latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"backend"}),

		PreviewsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitegen",
			Subsystem: "preview",
			Name:      "loads_total",
			Help:      "Preview loads by final phase.",
		}, []string{"phase"}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitegen",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),

		HTTPRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sitegen",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),

		ActiveWorkspaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sitegen",
			Subsystem: "workspace",
			Name:      "active",
			Help:      "Workspaces currently held in memory.",
		}),
	}

	reg.MustRegister(
		c.GenerationsTotal,
		c.UpstreamDuration,
		c.PreviewsTotal,
		c.HTTPRequestsTotal,
		c.HTTPRequestLatency,
		c.ActiveWorkspaces,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{Registry: c.Registry})
}
