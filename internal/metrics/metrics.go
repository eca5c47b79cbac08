package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LicenseValidations counts license validations by result reason.
	LicenseValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hiredalways",
		Subsystem: "license",
		Name:      "validations_total",
		Help:      "License validations by result.",
	}, []string{"result"})

	// LicensesIssued counts issued licenses by source (admin, subscription, webhook, cli).
	LicensesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hiredalways",
		Subsystem: "license",
		Name:      "issued_total",
		Help:      "Licenses issued by source.",
	}, []string{"source"})

	// UsageEvents counts check/track decisions by status.
	UsageEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hiredalways",
		Subsystem: "usage",
		Name:      "events_total",
		Help:      "Usage checks and tracks by action and status.",
	}, []string{"action", "status"})

	// AIRequests counts proxied AI requests by outcome.
	AIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hiredalways",
		Subsystem: "ai",
		Name:      "requests_total",
		Help:      "Proxied AI requests by outcome.",
	}, []string{"outcome"})

	// AIDuration tracks upstream AI latency.
	AIDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hiredalways",
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Upstream AI request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	// WebhookEvents counts PayPal webhook events by type.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hiredalways",
		Subsystem: "paypal",
		Name:      "webhook_events_total",
		Help:      "PayPal webhook events by event type.",
	}, []string{"event_type"})

	// LedgerSaveFailures counts ledger writes that failed and were absorbed.
	LedgerSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hiredalways",
		Subsystem: "ledger",
		Name:      "save_failures_total",
		Help:      "Ledger saves that failed.",
	})

	// HTTPRequests counts HTTP requests by method, route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hiredalways",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
)
