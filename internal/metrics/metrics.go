// AngelaMos | 2026
// metrics.go

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gifty"

var (
	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payment",
		Name:      "checkouts_total",
		Help:      "Checkout attempts by period and outcome.",
	}, []string{"period", "outcome"})

	// WebhookNotificationsTotal counts gateway notifications by event and
	// what the handler did with them (applied, duplicate, ignored, failed).
	WebhookNotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payment",
		Name:      "webhook_notifications_total",
		Help:      "Gateway notifications by event and outcome.",
	}, []string{"event", "outcome"})

	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "payment",
		Name:      "webhook_duration_seconds",
		Help:      "Gateway notification processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event"})

	EntitlementGrantsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "entitlement",
		Name:      "grants_total",
		Help:      "Paid plan periods applied to accounts.",
	}, []string{"period"})

	QuotaDenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "quota",
		Name:      "denials_total",
		Help:      "Requests refused by plan limits, by resource.",
	}, []string{"resource"})
)
