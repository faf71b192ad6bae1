package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wishloop/internal/campaign"
	"wishloop/internal/db"
	"wishloop/internal/ledger"
)

// EntryStore is the wishlist store reader the planner selects from.
// Implemented by db.Repository.
type EntryStore interface {
	EntriesCreatedBetween(ctx context.Context, lo, hi time.Time, limit int) ([]*db.WishlistEntry, error)
	ProductsForWishlist(ctx context.Context, wishlistID int64, limit int) ([]*db.Product, error)
}

// Candidate is one wishlist entry inside a stage's window with its
// recipient resolved.
type Candidate struct {
	Entry     *db.WishlistEntry
	Recipient string
	Window    campaign.Window
}

// Planner turns (stage, now) into the candidate set. It is a pure read:
// calling it repeatedly has no side effects and yields a deterministic
// order (by wishlist id).
type Planner struct {
	store    EntryStore
	resolver *campaign.Resolver
	maxBatch int
	logger   *zap.Logger
}

func NewPlanner(store EntryStore, resolver *campaign.Resolver, maxBatch int, logger *zap.Logger) *Planner {
	if maxBatch <= 0 {
		maxBatch = 300
	}
	return &Planner{
		store:    store,
		resolver: resolver,
		maxBatch: maxBatch,
		logger:   logger,
	}
}

// Candidates returns the entries eligible for the stage at now, plus the
// count of entries dropped for having no resolvable recipient.
//
// The store query uses coarse created_at bounds; the exact [open, close)
// boundary comes from resolving each row, so an entry created exactly at
// a bound lands on the right side of it.
func (p *Planner) Candidates(ctx context.Context, st campaign.Stage, now time.Time) ([]Candidate, int, error) {
	lo, hi := p.resolver.CreatedBounds(st, now)

	entries, err := p.store.EntriesCreatedBetween(ctx, lo, hi, p.maxBatch)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch entries for stage %s: %w", st.Key, err)
	}

	var candidates []Candidate
	unreachable := 0

	for _, e := range entries {
		if e.ItemCount == 0 {
			continue
		}

		recipient := resolveRecipient(e)
		if recipient == "" {
			unreachable++
			p.logger.Debug("entry unreachable, no recipient",
				zap.Int64("wishlist_id", e.WishlistID),
			)
			continue
		}

		w, ok := p.resolver.Resolve(st, e.CreatedAt, now)
		if !ok {
			continue
		}

		candidates = append(candidates, Candidate{
			Entry:     e,
			Recipient: recipient,
			Window:    w,
		})
	}

	p.logger.Debug("candidates planned",
		zap.String("stage", st.Key),
		zap.Int("candidates", len(candidates)),
		zap.Int("unreachable", unreachable),
		zap.Time("lo", lo),
		zap.Time("hi", hi),
	)

	return candidates, unreachable, nil
}

// resolveRecipient applies the precedence registered-user email first,
// guest-email side record second. Neither means the entry is
// unreachable, which is a skip, not an error.
func resolveRecipient(e *db.WishlistEntry) string {
	if e.OwnerEmail != nil && *e.OwnerEmail != "" {
		return ledger.NormalizeEmail(*e.OwnerEmail)
	}
	if e.GuestEmail != nil && *e.GuestEmail != "" {
		return ledger.NormalizeEmail(*e.GuestEmail)
	}
	return ""
}
