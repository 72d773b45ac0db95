// Package metrics defines and registers all custom Prometheus metrics for the
// identity service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Audit pipeline ────────────────────────────────────────────────────────────

// AuditEventsRecordedTotal counts lifecycle events persisted to the audit trail.
// Label:
//   - type: the event type (e.g. "signed_up", "seller_approved")
var AuditEventsRecordedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_recorded_total",
		Help:      "Total number of account lifecycle events recorded.",
	},
	[]string{"type"},
)

// AuditEventsErrorsTotal counts events that never reached the audit trail.
// Label:
//   - reason: "queue_full" or "record_failed"
var AuditEventsErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_errors_total",
		Help:      "Total number of account lifecycle events that could not be recorded.",
	},
	[]string{"reason"},
)

// AuditQueueDepth tracks the number of events waiting in each worker channel.
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditRecordDuration measures how long persisting one event takes.
var AuditRecordDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "audit_record_duration_seconds",
		Help:      "Duration of recording a single lifecycle event.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"type"},
)

// ── Onboarding ────────────────────────────────────────────────────────────────

// AccountsCreatedTotal counts new accounts.
// Labels:
//   - role: "user", "seller" or "admin"
//   - channel: "signup" or "admin"
var AccountsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accounts_created_total",
		Help:      "Total number of accounts created, by role and channel.",
	},
	[]string{"role", "channel"},
)

// NotificationsTotal counts outgoing notifications as seen by the handlers.
// Labels:
//   - kind: "signup_otp", "seller_approved", "seller_created", ...
//   - result: "sent" or "failed"
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of notifications attempted, by kind and result.",
	},
	[]string{"kind", "result"},
)

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success" or the error code (e.g. "INVALID_CREDENTIALS")
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// SentLabel maps a delivery flag to the result label of NotificationsTotal.
func SentLabel(sent bool) string {
	if sent {
		return "sent"
	}
	return "failed"
}
