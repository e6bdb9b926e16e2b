// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storebot"

// Outcome labels
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	EventsTotal          *prometheus.CounterVec
	EventDuration        *prometheus.HistogramVec
	StoreRequestsTotal   *prometheus.CounterVec
	StoreRequestDuration *prometheus.HistogramVec
	OrdersTotal          prometheus.Counter
	PhotoFallbacksTotal  prometheus.Counter
}

// New registers every collector on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Chat events handled, by action and outcome.",
		}, []string{"action", "outcome"}),
		EventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Time spent handling one chat event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		StoreRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_requests_total",
			Help:      "Spreadsheet API calls, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		StoreRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_request_duration_seconds",
			Help:      "Latency of spreadsheet API calls.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		OrdersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Orders appended to the orders sheet.",
		}),
		PhotoFallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photo_fallbacks_total",
			Help:      "Product cards sent as text because the photo failed.",
		}),
	}

	reg.MustRegister(
		m.EventsTotal,
		m.EventDuration,
		m.StoreRequestsTotal,
		m.StoreRequestDuration,
		m.OrdersTotal,
		m.PhotoFallbacksTotal,
	)
	return m
}

// NewDefault builds metrics on a fresh registry that also carries the Go and process collectors.
func NewDefault() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return New(reg)
}

// ObserveEvent records one handled chat event.
func (m *Metrics) ObserveEvent(action string, start time.Time, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.EventsTotal.WithLabelValues(action, outcome).Inc()
	m.EventDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
}

// ObserveStore records one spreadsheet call.
func (m *Metrics) ObserveStore(operation string, start time.Time, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.StoreRequestsTotal.WithLabelValues(operation, outcome).Inc()
	m.StoreRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
