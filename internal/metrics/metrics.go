package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	candidatesFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishloop_candidates_total",
			Help: "Wishlist entries inside a stage window, before dedup",
		},
		[]string{"stage"},
	)

	sendsAttempted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishloop_sends_attempted_total",
			Help: "Reminder sends handed to the transport",
		},
		[]string{"stage"},
	)

	sendsSucceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishloop_sends_succeeded_total",
			Help: "Reminder sends accepted by the transport",
		},
		[]string{"stage"},
	)

	sendsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishloop_sends_failed_total",
			Help: "Transport failures, retried on the next run",
		},
		[]string{"stage"},
	)

	duplicatesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishloop_duplicates_skipped_total",
			Help: "Candidates filtered out by the send ledger",
		},
		[]string{"stage"},
	)

	unreachableRecipients = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishloop_unreachable_recipients_total",
			Help: "Entries with no resolvable recipient email",
		},
		[]string{"stage"},
	)

	ledgerConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishloop_ledger_conflicts_total",
			Help: "Ledger writes lost to a concurrent invocation (duplicate risk)",
		},
		[]string{"stage"},
	)

	ledgerAnomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishloop_ledger_anomalies_total",
			Help: "Non-conflict ledger write failures after a successful send",
		},
		[]string{"stage"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wishloop_run_duration_seconds",
			Help:    "Wall time of one full orchestrator run",
			Buckets: []float64{.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCandidates records the candidate count for a stage
func RecordCandidates(stage string, n int) {
	candidatesFound.WithLabelValues(stage).Add(float64(n))
}

// RecordSendAttempted records one send handed to the transport
func RecordSendAttempted(stage string) {
	sendsAttempted.WithLabelValues(stage).Inc()
}

// RecordSendSucceeded records one accepted send
func RecordSendSucceeded(stage string) {
	sendsSucceeded.WithLabelValues(stage).Inc()
}

// RecordSendFailed records one transport failure
func RecordSendFailed(stage string) {
	sendsFailed.WithLabelValues(stage).Inc()
}

// RecordDuplicateSkipped records one candidate removed by the ledger
func RecordDuplicateSkipped(stage string) {
	duplicatesSkipped.WithLabelValues(stage).Inc()
}

// RecordUnreachable records one entry with no resolvable recipient
func RecordUnreachable(stage string, n int) {
	unreachableRecipients.WithLabelValues(stage).Add(float64(n))
}

// RecordLedgerConflict records one write lost to a concurrent run
func RecordLedgerConflict(stage string) {
	ledgerConflicts.WithLabelValues(stage).Inc()
}

// RecordLedgerAnomaly records one post-send ledger write failure
func RecordLedgerAnomaly(stage string) {
	ledgerAnomalies.WithLabelValues(stage).Inc()
}

// RecordRunDuration records the wall time of one run
func RecordRunDuration(d time.Duration) {
	runDuration.Observe(d.Seconds())
}
