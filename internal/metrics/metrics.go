package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digitalstore_checkout_sessions_total",
		Help: "Checkout sessions by outcome (created, error).",
	}, []string{"status"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digitalstore_webhook_events_total",
		Help: "Settlement webhook events by result (settled, duplicate, unpaid, invalid_signature, error).",
	}, []string{"result"})

	AccessChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digitalstore_access_checks_total",
		Help: "Access evaluations by verdict reason.",
	}, []string{"verdict"})
)
