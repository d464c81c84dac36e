// Package metrics defines and registers all custom Prometheus metrics for the
// booking API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation and exposed by the HTTP router at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "booking"

// ── Appointment metrics ───────────────────────────────────────────────────────

// AppointmentsBookedTotal counts appointments persisted by the booking service.
// Labels:
//   - speciality: doctor speciality from the booked doctor snapshot
var AppointmentsBookedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "appointments_booked_total",
		Help:      "Total number of appointments booked, by doctor speciality.",
	},
	[]string{"speciality"},
)

// BookingRejectedTotal counts booking attempts that ended without a write.
// Label:
//   - reason: error kind (e.g. "slot_conflict", "unauthenticated", "invalid_input")
var BookingRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_rejected_total",
		Help:      "Total number of rejected booking attempts, by reason.",
	},
	[]string{"reason"},
)

// AppointmentsCancelledTotal counts successful cancellations.
var AppointmentsCancelledTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "appointments_cancelled_total",
		Help:      "Total number of appointments cancelled by their owners.",
	},
)

// ── Directory metrics ─────────────────────────────────────────────────────────

// DirectoryCallDuration measures each remote directory call.
// Labels:
//   - operation: "get", "set", "add", "query"
//   - outcome: "ok" or "error"
var DirectoryCallDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "directory_call_duration_seconds",
		Help:      "Duration of remote directory calls.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"operation", "outcome"},
)

// ObserveDirectoryCall records one directory call.
func ObserveDirectoryCall(operation string, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	DirectoryCallDuration.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

// ── Identity metrics ──────────────────────────────────────────────────────────

// AuthAttemptsTotal counts sign-in and sign-up attempts.
// Labels:
//   - method: "password_sign_in", "password_sign_up", "google"
//   - outcome: "ok" or the provider rejection reason
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts, by method and outcome.",
	},
	[]string{"method", "outcome"},
)

// IdentityChangesTotal counts provider notifications applied to sessions.
// Label:
//   - kind: "sign_in", "sign_out", "error"
var IdentityChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identity_changes_total",
		Help:      "Total number of identity provider notifications applied.",
	},
	[]string{"kind"},
)

// IdentityQueueDepth tracks notifications waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var IdentityQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "identity_queue_depth",
		Help:      "Current number of identity changes pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ActiveSessions is the number of session stores held in memory.
var ActiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Number of signed-in users with a live session store.",
	},
)
