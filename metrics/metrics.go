// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nonsonwune/admission_cycle/status"
)

// Metrics groups the collectors on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	batches     *prometheus.CounterVec
	rows        *prometheus.CounterVec
	derivations *prometheus.CounterVec
	skipped     prometheus.Counter
	requests    *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_ingest_batches_total",
			Help: "Upload batches by table and result.",
		}, []string{"table", "result"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_ingest_rows_total",
			Help: "Rows committed by table.",
		}, []string{"table"}),
		derivations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_status_derivations_total",
			Help: "Offer statuses written by derived value.",
		}, []string{"status"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "admission_status_skipped_total",
			Help: "Derivations skipped because no offer exists at the latest iteration.",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admission_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
	m.registry.MustRegister(
		m.batches, m.rows, m.derivations, m.skipped, m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveDerivation implements status.Observer.
func (m *Metrics) ObserveDerivation(o status.Outcome) {
	if o.Skipped {
		m.skipped.Inc()
		return
	}
	m.derivations.WithLabelValues(o.Status).Inc()
}

// ObserveBatch counts one upload batch; rows is only added on success.
func (m *Metrics) ObserveBatch(table, result string, rows int) {
	m.batches.WithLabelValues(table, result).Inc()
	if result == "success" {
		m.rows.WithLabelValues(table).Add(float64(rows))
	}
}

// Middleware records request durations labelled by the matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
