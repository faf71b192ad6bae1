// Package ledger is the durable record of prior reminder sends and the
// sole mechanism preventing duplicates. A row, once written, is never
// deleted by this system; cooldown expiry only changes query eligibility.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"
)

// KeyMode selects the dedup partition scheme.
type KeyMode string

const (
	// PerStage tracks each campaign stage independently: a shopper can
	// receive every stage once. This is the constraint-backed default.
	PerStage KeyMode = "per-stage"

	// StrictSingle allows one lifetime email per (recipient, wishlist)
	// pair regardless of stage.
	StrictSingle KeyMode = "strict-single"
)

// ParseKeyMode validates a configured key mode string.
func ParseKeyMode(s string) (KeyMode, error) {
	switch KeyMode(s) {
	case PerStage, StrictSingle:
		return KeyMode(s), nil
	case "":
		return PerStage, nil
	}
	return "", errors.New("ledger key mode must be per-stage or strict-single")
}

// ErrConflict means the uniqueness constraint rejected a write: another
// invocation already claimed this send. The local send, if already
// issued, is a duplicate-risk event, not something to re-attempt.
var ErrConflict = errors.New("ledger record already claimed")

// Record is durable proof of one send.
type Record struct {
	Email       string
	WishlistID  int64
	CampaignKey string
	SentAt      time.Time
}

// Ledger is consulted before a send and written after one succeeds.
type Ledger interface {
	// AlreadySent reports whether a prior send blocks this candidate:
	// either a row exists for the configured key, or any row for the
	// (email, wishlist) pair has sent_at within cooldown of now.
	AlreadySent(ctx context.Context, email string, wishlistID int64, campaignKey string, cooldown time.Duration, now time.Time) (bool, error)

	// Record appends proof of a send. The write is an atomic
	// insert-on-conflict-no-op; a lost race returns ErrConflict.
	Record(ctx context.Context, email string, wishlistID int64, campaignKey string, sentAt time.Time) error
}

// NormalizeEmail canonicalizes an address before it is used as a ledger
// key, matching how rows are stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
