package engine

import "time"

// PlannedSend is one candidate a dry run would have sent to.
type PlannedSend struct {
	Recipient  string `json:"recipient"`
	WishlistID int64  `json:"wishlist_id"`
	Stage      string `json:"stage"`
}

// StageReport is the outcome of one stage within a run.
type StageReport struct {
	Stage             string `json:"stage"`
	Candidates        int    `json:"candidates"`
	Unreachable       int    `json:"unreachable"`
	DuplicatesSkipped int    `json:"duplicates_skipped"`
	Attempted         int    `json:"attempted"`
	Sent              int    `json:"sent"`
	TransportFailures int    `json:"transport_failures"`
	LedgerConflicts   int    `json:"ledger_conflicts"`
	LedgerAnomalies   int    `json:"ledger_anomalies"`
}

// Report is the externally observable result of one invocation.
type Report struct {
	RunID      string        `json:"run_id"`
	DryRun     bool          `json:"dry_run"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Stages     []StageReport `json:"stages"`

	// LedgerAnomalies is surfaced at the top level because it is the
	// one condition that can cause an undetected future duplicate: a
	// send went out but its ledger row could not be written.
	LedgerAnomalies int `json:"ledger_anomalies"`

	// Planned holds the would-be sends of a dry run.
	Planned []PlannedSend `json:"planned,omitempty"`
}

// Totals aggregates all stage reports.
func (r *Report) Totals() StageReport {
	var t StageReport
	t.Stage = "total"
	for _, s := range r.Stages {
		t.Candidates += s.Candidates
		t.Unreachable += s.Unreachable
		t.DuplicatesSkipped += s.DuplicatesSkipped
		t.Attempted += s.Attempted
		t.Sent += s.Sent
		t.TransportFailures += s.TransportFailures
		t.LedgerConflicts += s.LedgerConflicts
		t.LedgerAnomalies += s.LedgerAnomalies
	}
	return t
}
