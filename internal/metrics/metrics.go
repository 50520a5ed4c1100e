// Package metrics defines the Prometheus collectors of the membership services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the counters updated by the services.
type Metrics struct {
	Purchases       *prometheus.CounterVec
	WebhookOutcomes *prometheus.CounterVec
	WalletOps       *prometheus.CounterVec
	GatewayRequests *prometheus.HistogramVec
	SweptSubs       prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "membership",
			Name:      "purchases_total",
			Help:      "Membership purchase attempts by payment method and result.",
		}, []string{"method", "result"}),
		WebhookOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "membership",
			Name:      "webhook_outcomes_total",
			Help:      "Gateway webhook deliveries by outcome.",
		}, []string{"outcome"}),
		WalletOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "membership",
			Name:      "wallet_operations_total",
			Help:      "Wallet credits and debits by result.",
		}, []string{"op", "result"}),
		GatewayRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "membership",
			Name:      "gateway_request_duration_seconds",
			Help:      "Latency of payment gateway calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "result"}),
		SweptSubs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "membership",
			Name:      "stale_subscriptions_failed_total",
			Help:      "Processing subscriptions failed by the scheduler sweep.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Purchases, m.WebhookOutcomes, m.WalletOps, m.GatewayRequests, m.SweptSubs)
	}
	return m
}

// NewNop returns collectors that are not registered anywhere.
func NewNop() *Metrics {
	return New(nil)
}

// Result maps an error to a label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
