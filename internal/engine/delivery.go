package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"wishloop/internal/campaign"
	"wishloop/internal/ledger"
	"wishloop/internal/sender"
)

// outcome classifies what happened to one surviving candidate.
type outcome int

const (
	outcomeSent             outcome = iota // transport accepted, ledger row written
	outcomePlanned                         // dry run, nothing touched
	outcomeTransportFailure                // transport rejected, nothing recorded
	outcomeLedgerConflict                  // sent, but a concurrent run claimed the ledger row
	outcomeLedgerAnomaly                   // sent, but the ledger write failed for another reason
)

// delivery is the dry-run gate: selection and dedup are identical in
// both modes, only this step differs.
type delivery interface {
	deliver(ctx context.Context, st campaign.Stage, cand Candidate, msg *sender.Message, now time.Time) (outcome, error)
}

type liveDelivery struct {
	sender sender.Sender
	ledger ledger.Ledger
	logger *zap.Logger
}

func (d *liveDelivery) deliver(ctx context.Context, st campaign.Stage, cand Candidate, msg *sender.Message, now time.Time) (outcome, error) {
	if err := d.sender.Send(ctx, msg); err != nil {
		// Nothing recorded; the next run re-selects this candidate.
		return outcomeTransportFailure, err
	}

	err := d.ledger.Record(ctx, cand.Recipient, cand.Entry.WishlistID, st.Key, now)
	if err == nil {
		return outcomeSent, nil
	}

	if errors.Is(err, ledger.ErrConflict) {
		// Another invocation claimed this send while ours was in
		// flight. The recipient may have received two emails.
		d.logger.Warn("duplicate send risk: ledger row claimed by concurrent run",
			zap.String("recipient", cand.Recipient),
			zap.Int64("wishlist_id", cand.Entry.WishlistID),
			zap.String("stage", st.Key),
		)
		return outcomeLedgerConflict, err
	}

	// The send went out but leaves no trace; a future run can
	// duplicate it undetected.
	d.logger.Error("ledger write failed after successful send",
		zap.Error(err),
		zap.String("recipient", cand.Recipient),
		zap.Int64("wishlist_id", cand.Entry.WishlistID),
		zap.String("stage", st.Key),
	)
	return outcomeLedgerAnomaly, err
}

type dryDelivery struct{}

func (dryDelivery) deliver(context.Context, campaign.Stage, Candidate, *sender.Message, time.Time) (outcome, error) {
	return outcomePlanned, nil
}
