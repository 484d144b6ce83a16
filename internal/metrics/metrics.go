package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they need.
type Metrics struct {
	registry   *prometheus.Registry
	ledgerOps  *prometheus.HistogramVec
	rejections *prometheus.CounterVec
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ledgerOps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workshop",
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Duration of ledger operations by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workshop",
			Subsystem: "ledger",
			Name:      "rejections_total",
			Help:      "Ledger operations rejected by validation, missing records or insufficient stock.",
		}, []string{"op", "code"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workshop",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workshop",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ledgerOps,
		m.rejections,
		m.requests,
		m.latency,
	)
	return m
}

// ObserveOperation implements ledger.Hooks.
func (m *Metrics) ObserveOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues(strings.TrimSpace(name), strings.TrimSpace(status)).Observe(dur.Seconds())
}

// IncRejected implements ledger.Hooks.
func (m *Metrics) IncRejected(name, code string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(strings.TrimSpace(name), strings.TrimSpace(code)).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(dur.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
