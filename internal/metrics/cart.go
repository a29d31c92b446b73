package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"storefront-cart/internal/cartstore"
	"storefront-cart/internal/domain"
)

// CartMetrics records cart activity. A nil *CartMetrics is a valid no-op.
type CartMetrics struct {
	mutations *prometheus.CounterVec
	events    *prometheus.CounterVec
	lines     prometheus.Gauge
	quantity  prometheus.Gauge
	failures  prometheus.Counter
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	m := &CartMetrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Cart mutations by action and outcome.",
		}, []string{"action", "outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_events_total",
			Help: "Cart update events broadcast by action.",
		}, []string{"action"}),
		lines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cart_lines",
			Help: "Distinct lines currently in the cart.",
		}),
		quantity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cart_total_quantity",
			Help: "Sum of line quantities currently in the cart.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_errors_total",
			Help: "Slot writes and event deliveries that failed.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.mutations, m.events, m.lines, m.quantity, m.failures, m.requests, m.durations)
	return m
}

// ObserveResult counts a mutation, including no-ops.
func (m *CartMetrics) ObserveResult(res cartstore.Result) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(string(res.Action), string(res.Outcome)).Inc()
}

// ObserveLines is a cartstore.Subscriber keeping the gauges current.
func (m *CartMetrics) ObserveLines(lines []domain.CartLine) {
	if m == nil || m.lines == nil {
		return
	}
	m.lines.Set(float64(len(lines)))
	m.quantity.Set(float64(domain.TotalQuantity(lines)))
}

// Notify implements cartstore.Notifier.
func (m *CartMetrics) Notify(_ context.Context, ev cartstore.Event) error {
	if m == nil || m.events == nil {
		return nil
	}
	m.events.WithLabelValues(string(ev.Action)).Inc()
	return nil
}

// RecordError is a cartstore error handler.
func (m *CartMetrics) RecordError(error) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.Inc()
}

// ObserveRequest records one served HTTP request.
func (m *CartMetrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.durations.WithLabelValues(method, route).Observe(d.Seconds())
}
