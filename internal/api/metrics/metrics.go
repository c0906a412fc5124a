// Package metrics defines and registers the custom Prometheus metrics of the
// inbox API. It is the single source of truth for metric names, labels and
// help strings. All collectors register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/truefeedback/inbox-api/internal/core/domain"
)

const namespace = "inbox"

// ── Account metrics ───────────────────────────────────────────────────────────

// SignupsTotal counts signup attempts.
// Label:
//   - outcome: "created", "refreshed", or the domain error kind (e.g. "conflict", "dependency")
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup attempts, by outcome.",
	},
	[]string{"outcome"},
)

// VerificationsTotal counts code submissions.
// Label:
//   - outcome: "verified" or the domain error kind (e.g. "expired", "validation", "not_found")
var VerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verifications_total",
		Help:      "Total number of verification code submissions, by outcome.",
	},
	[]string{"outcome"},
)

// AcceptanceTogglesTotal counts owner changes to the acceptance flag.
// Label:
//   - state: "on" or "off"
var AcceptanceTogglesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "acceptance_toggles_total",
		Help:      "Total number of acceptance flag updates, by resulting state.",
	},
	[]string{"state"},
)

// ── Message metrics ───────────────────────────────────────────────────────────

// MessagesSubmittedTotal counts anonymous submissions.
// Label:
//   - outcome: "stored", "replayed", or the domain error kind (e.g. "policy", "not_found")
var MessagesSubmittedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_submitted_total",
		Help:      "Total number of anonymous message submissions, by outcome.",
	},
	[]string{"outcome"},
)

// MessagesDeletedTotal counts owner deletions.
// Label:
//   - result: "removed" or "absent" (id was already gone)
var MessagesDeletedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_deleted_total",
		Help:      "Total number of message deletions, by result.",
	},
	[]string{"result"},
)

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestDuration measures request latency per matched route.
// Labels:
//   - method: HTTP method
//   - route:  the registered route pattern (e.g. "/messages/:id")
//   - status: response status code
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// Outcome labels a result: success when err is nil, otherwise the error's kind.
func Outcome(err error, success string) string {
	if err == nil {
		return success
	}
	return string(domain.KindOf(err))
}
