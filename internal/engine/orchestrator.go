// Package engine holds the reminder core: eligibility planning, dedup
// filtering, and the stage loop.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wishloop/internal/campaign"
	"wishloop/internal/db"
	"wishloop/internal/ledger"
	"wishloop/internal/metrics"
	"wishloop/internal/render"
	"wishloop/internal/sender"
)

// Renderer produces email bodies. Implemented by render.Renderer.
type Renderer interface {
	Render(stageKey string, wishlistID int64, products []*db.Product) (html, text string, err error)
}

// Config tunes one orchestrator run.
type Config struct {
	DryRun   bool
	MaxBatch int
}

// Orchestrator iterates the configured stages in order, plans
// candidates, filters them through the send ledger, and hands survivors
// to the transport. It is built for exactly one Run per process.
type Orchestrator struct {
	stages   []campaign.Stage
	planner  *Planner
	store    EntryStore
	ledger   ledger.Ledger
	renderer Renderer
	delivery delivery
	dryRun   bool
	logger   *zap.Logger
}

// New validates the stage list (a malformed configuration fails here,
// before any side effects) and wires the run pipeline.
func New(
	stages []campaign.Stage,
	store EntryStore,
	led ledger.Ledger,
	snd sender.Sender,
	renderer Renderer,
	resolver *campaign.Resolver,
	cfg Config,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if err := campaign.ValidateStages(stages); err != nil {
		return nil, err
	}

	var gate delivery
	if cfg.DryRun {
		gate = dryDelivery{}
	} else {
		gate = &liveDelivery{sender: snd, ledger: led, logger: logger}
	}

	return &Orchestrator{
		stages:   stages,
		planner:  NewPlanner(store, resolver, cfg.MaxBatch, logger),
		store:    store,
		ledger:   led,
		renderer: renderer,
		delivery: gate,
		dryRun:   cfg.DryRun,
		logger:   logger,
	}, nil
}

// Run executes one full pass over all stages at the given eligibility
// instant and returns the run report. Per-candidate failures are
// recovered and counted; only store/ledger read errors abort the run
// (cron re-invokes it).
func (o *Orchestrator) Run(ctx context.Context, now time.Time) (*Report, error) {
	started := time.Now()
	report := &Report{
		RunID:     uuid.New().String(),
		DryRun:    o.dryRun,
		StartedAt: started.UTC(),
	}

	o.logger.Info("run starting",
		zap.String("run_id", report.RunID),
		zap.Bool("dry_run", o.dryRun),
		zap.Int("stages", len(o.stages)),
		zap.Time("now", now),
	)

	for _, st := range o.stages {
		sr, err := o.runStage(ctx, st, now, report)
		if err != nil {
			return report, fmt.Errorf("stage %s: %w", st.Key, err)
		}
		report.Stages = append(report.Stages, sr)
		report.LedgerAnomalies += sr.LedgerAnomalies
	}

	report.FinishedAt = time.Now().UTC()
	metrics.RecordRunDuration(time.Since(started))

	totals := report.Totals()
	o.logger.Info("run finished",
		zap.String("run_id", report.RunID),
		zap.Int("candidates", totals.Candidates),
		zap.Int("sent", totals.Sent),
		zap.Int("duplicates_skipped", totals.DuplicatesSkipped),
		zap.Int("unreachable", totals.Unreachable),
		zap.Int("transport_failures", totals.TransportFailures),
		zap.Int("ledger_anomalies", totals.LedgerAnomalies),
	)

	return report, nil
}

func (o *Orchestrator) runStage(ctx context.Context, st campaign.Stage, now time.Time, report *Report) (StageReport, error) {
	sr := StageReport{Stage: st.Key}

	candidates, unreachable, err := o.planner.Candidates(ctx, st, now)
	if err != nil {
		return sr, err
	}
	sr.Candidates = len(candidates)
	sr.Unreachable = unreachable
	metrics.RecordCandidates(st.Key, len(candidates))
	metrics.RecordUnreachable(st.Key, unreachable)

	for _, cand := range candidates {
		blocked, err := o.ledger.AlreadySent(ctx, cand.Recipient, cand.Entry.WishlistID, st.Key, st.Cooldown, now)
		if err != nil {
			return sr, fmt.Errorf("consult ledger: %w", err)
		}
		if blocked {
			sr.DuplicatesSkipped++
			metrics.RecordDuplicateSkipped(st.Key)
			continue
		}

		products, err := o.store.ProductsForWishlist(ctx, cand.Entry.WishlistID, render.MaxProducts)
		if err != nil {
			return sr, fmt.Errorf("fetch products for wishlist %d: %w", cand.Entry.WishlistID, err)
		}

		html, text, err := o.renderer.Render(st.Key, cand.Entry.WishlistID, products)
		if err != nil {
			// Leave the candidate unrecorded; the next run retries it.
			o.logger.Error("render failed, candidate skipped",
				zap.Error(err),
				zap.Int64("wishlist_id", cand.Entry.WishlistID),
				zap.String("stage", st.Key),
			)
			sr.TransportFailures++
			metrics.RecordSendFailed(st.Key)
			continue
		}

		msg := &sender.Message{
			To:      cand.Recipient,
			Subject: st.Subject,
			HTML:    html,
			Text:    text,
		}

		if !o.dryRun {
			sr.Attempted++
			metrics.RecordSendAttempted(st.Key)
		}

		result, err := o.delivery.deliver(ctx, st, cand, msg, now)
		switch result {
		case outcomePlanned:
			report.Planned = append(report.Planned, PlannedSend{
				Recipient:  cand.Recipient,
				WishlistID: cand.Entry.WishlistID,
				Stage:      st.Key,
			})

		case outcomeSent:
			sr.Sent++
			metrics.RecordSendSucceeded(st.Key)
			o.logger.Info("reminder sent",
				zap.String("recipient", cand.Recipient),
				zap.Int64("wishlist_id", cand.Entry.WishlistID),
				zap.String("stage", st.Key),
			)

		case outcomeTransportFailure:
			sr.TransportFailures++
			metrics.RecordSendFailed(st.Key)
			o.logger.Warn("send failed, will retry next run",
				zap.Error(err),
				zap.String("recipient", cand.Recipient),
				zap.Int64("wishlist_id", cand.Entry.WishlistID),
				zap.String("stage", st.Key),
			)

		case outcomeLedgerConflict:
			sr.Sent++
			sr.LedgerConflicts++
			metrics.RecordSendSucceeded(st.Key)
			metrics.RecordLedgerConflict(st.Key)

		case outcomeLedgerAnomaly:
			sr.Sent++
			sr.LedgerAnomalies++
			metrics.RecordSendSucceeded(st.Key)
			metrics.RecordLedgerAnomaly(st.Key)
		}
	}

	return sr, nil
}
