package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "barriernavi"

// Collector holds the reference server's Prometheus metrics. Each collector
// owns its registry so servers in the same process do not clash.
type Collector struct {
	registry *prometheus.Registry

	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	StationsLoaded prometheus.Gauge
	ImportsTotal   *prometheus.CounterVec
}

// NewCollector creates a collector with Go runtime and process metrics included.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by route, method, and status",
			},
			[]string{"route", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"route"},
		),

		APIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "route"},
		),

		StationsLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "stations_loaded",
				Help:      "Number of stations in the station database",
			},
		),

		ImportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "imports_total",
				Help:      "Total number of CSV imports by result",
			},
			[]string{"result"},
		),
	}
}

// RecordAPIRequest increments the API request counter.
func (c *Collector) RecordAPIRequest(route, method, status string) {
	c.APIRequestsTotal.WithLabelValues(route, method, status).Inc()
}

// RecordAPIError increments the API error counter.
func (c *Collector) RecordAPIError(errorType, route string) {
	c.APIErrorsTotal.WithLabelValues(errorType, route).Inc()
}

// RecordImport counts an import and updates the loaded station gauge on success.
func (c *Collector) RecordImport(stations int, err error) {
	if err != nil {
		c.ImportsTotal.WithLabelValues("error").Inc()
		return
	}
	c.ImportsTotal.WithLabelValues("success").Inc()
	c.StationsLoaded.Set(float64(stations))
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
