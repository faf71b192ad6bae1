package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process ledger with the same semantics as Postgres,
// for tests and local development without a database.
type Memory struct {
	mu      sync.Mutex
	mode    KeyMode
	records map[string]Record // keyed by email|wishlist|stage
}

func NewMemory(mode KeyMode) *Memory {
	return &Memory{
		mode:    mode,
		records: make(map[string]Record),
	}
}

func key(email string, wishlistID int64, campaignKey string) string {
	return fmt.Sprintf("%s|%d|%s", email, wishlistID, campaignKey)
}

func (l *Memory) AlreadySent(_ context.Context, email string, wishlistID int64, campaignKey string, cooldown time.Duration, now time.Time) (bool, error) {
	email = NormalizeEmail(email)

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, rec := range l.records {
		if rec.Email != email || rec.WishlistID != wishlistID {
			continue
		}
		if l.mode == StrictSingle {
			return true, nil
		}
		if rec.CampaignKey == campaignKey {
			return true, nil
		}
		if rec.SentAt.After(now.Add(-cooldown)) {
			return true, nil
		}
	}

	return false, nil
}

func (l *Memory) Record(_ context.Context, email string, wishlistID int64, campaignKey string, sentAt time.Time) error {
	email = NormalizeEmail(email)

	l.mu.Lock()
	defer l.mu.Unlock()

	k := key(email, wishlistID, campaignKey)
	if _, exists := l.records[k]; exists {
		return fmt.Errorf("%w: %s wishlist %d stage %s", ErrConflict, email, wishlistID, campaignKey)
	}

	l.records[k] = Record{
		Email:       email,
		WishlistID:  wishlistID,
		CampaignKey: campaignKey,
		SentAt:      sentAt,
	}

	return nil
}

// Len returns the number of stored records.
func (l *Memory) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
