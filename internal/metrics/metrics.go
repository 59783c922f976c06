package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dnsbot_payments_total",
			Help: "Payments by outcome (submitted/approved/rejected/blocked).",
		},
		[]string{"outcome", "kind"},
	)

	trialsIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dnsbot_trials_issued_total",
			Help: "Trial services issued.",
		},
	)

	ipRegistrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dnsbot_ip_registrations_total",
			Help: "IP registration attempts by source (chat/web) and result.",
		},
		[]string{"source", "result"},
	)

	sweepRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dnsbot_sweep_rows_total",
			Help: "Rows touched by the expiry sweep per step.",
		},
		[]string{"step"},
	)

	sweepFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dnsbot_sweep_failures_total",
			Help: "Sweep steps that failed and were skipped.",
		},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dnsbot_sweep_duration_seconds",
			Help:    "Duration of one sweep run.",
			Buckets: prometheus.DefBuckets,
		},
	)

	staleEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dnsbot_stale_events_total",
			Help: "Inbound text/photo events that matched no session step.",
		},
		[]string{"kind"},
	)

	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dnsbot_updates_total",
			Help: "Inbound chat updates by type.",
		},
		[]string{"type"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			paymentsTotal, trialsIssued, ipRegistrations,
			sweepRows, sweepFailures, sweepDuration,
			staleEvents, updatesTotal,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func kind(renewal bool) string {
	if renewal {
		return "renewal"
	}
	return "purchase"
}

// -------- Payment helpers --------

func IncPayment(outcome string, renewal bool) {
	paymentsTotal.WithLabelValues(norm(outcome), kind(renewal)).Inc()
}

func IncTrial() {
	trialsIssued.Inc()
}

// -------- IP helpers --------

func IncIPRegistration(source, result string) {
	ipRegistrations.WithLabelValues(norm(source), norm(result)).Inc()
}

// -------- Sweep helpers --------

func AddSweepRows(step string, n int64) {
	sweepRows.WithLabelValues(norm(step)).Add(float64(n))
}

func IncSweepFailure() {
	sweepFailures.Inc()
}

func ObserveSweep(seconds float64) {
	sweepDuration.Observe(seconds)
}

// -------- Dispatcher helpers --------

func IncStaleEvent(kind string) {
	staleEvents.WithLabelValues(norm(kind)).Inc()
}

func IncUpdate(kind string) {
	updatesTotal.WithLabelValues(norm(kind)).Inc()
}
