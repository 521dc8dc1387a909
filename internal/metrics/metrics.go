// Package metrics exposes Prometheus instruments for cart and refund flows.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cafepos"

const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

type Metrics struct {
	cartMutations      *prometheus.CounterVec
	promotionRecompute prometheus.Counter
	discountsApplied   prometheus.Counter
	checkouts          *prometheus.CounterVec
	refunds            *prometheus.CounterVec
	upstreamFallbacks  *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New registers the instruments on reg. A nil registerer yields metrics that
// drop every observation.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		promotionRecompute: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotion_recomputes_total",
			Help:      "Automatic promotion recomputations.",
		}),
		discountsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discounts_applied_total",
			Help:      "Manual discounts applied after manager authorization.",
		}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Sale submissions by outcome.",
		}, []string{"outcome"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunds_total",
			Help:      "Refund submissions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		upstreamFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_fallbacks_total",
			Help:      "Collaborator failures answered with permissive defaults.",
		}, []string{"operation"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		m.cartMutations,
		m.promotionRecompute,
		m.discountsApplied,
		m.checkouts,
		m.refunds,
		m.upstreamFallbacks,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) CartMutation(operation string, outcome string) {
	if m == nil || m.cartMutations == nil {
		return
	}
	m.cartMutations.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) PromotionRecomputed() {
	if m == nil || m.promotionRecompute == nil {
		return
	}
	m.promotionRecompute.Inc()
}

func (m *Metrics) DiscountApplied() {
	if m == nil || m.discountsApplied == nil {
		return
	}
	m.discountsApplied.Inc()
}

func (m *Metrics) Checkout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) Refund(kind string, outcome string) {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) UpstreamFallback(operation string) {
	if m == nil || m.upstreamFallbacks == nil {
		return
	}
	m.upstreamFallbacks.WithLabelValues(normalizeLabel(operation)).Inc()
}

func (m *Metrics) ObserveHTTP(method string, route string, status int, duration time.Duration) {
	if m == nil || m.httpDuration == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, normalizeLabel(route), statusClass(status)).Observe(duration.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
