package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "courseshop"

var (
	// CacheRequestsTotal counts read-through lookups by cache name and result (hit, miss, error).
	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Read-through cache lookups by cache and result.",
	}, []string{"cache", "result"})

	// WebhookEventsTotal counts verified webhook events by channel, event kind and outcome.
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhook",
		Name:      "events_total",
		Help:      "Verified webhook events by channel, kind and outcome.",
	}, []string{"channel", "kind", "outcome"})

	// WebhookRejectedTotal counts deliveries refused before processing.
	WebhookRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhook",
		Name:      "rejected_total",
		Help:      "Webhook deliveries rejected before processing, by channel and reason.",
	}, []string{"channel", "reason"})

	// CheckoutsTotal counts checkout attempts by path (free, paid) and outcome.
	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "total",
		Help:      "Checkout attempts by path and outcome.",
	}, []string{"path", "outcome"})

	// ProviderCallDuration observes payment provider API latency in milliseconds.
	ProviderCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "call_dur_ms",
		Help:      "Payment provider API call latency in milliseconds, by operation and outcome.",
		Buckets:   HistogramBuckets,
	}, []string{"operation", "outcome"})
)
