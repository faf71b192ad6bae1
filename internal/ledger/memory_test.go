package ledger

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	now      = time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC)
	cooldown = 168 * time.Hour
)

func TestMemory_PerStage_BlocksSameStageForever(t *testing.T) {
	l := NewMemory(PerStage)
	ctx := context.Background()

	if err := l.Record(ctx, "a@example.com", 4, "stage_24h", now.Add(-30*24*time.Hour)); err != nil {
		t.Fatalf("record: %v", err)
	}

	// Way past any cooldown, same stage still blocks.
	blocked, err := l.AlreadySent(ctx, "a@example.com", 4, "stage_24h", cooldown, now)
	if err != nil {
		t.Fatalf("already sent: %v", err)
	}
	if !blocked {
		t.Error("same stage key must block permanently")
	}
}

func TestMemory_PerStage_CooldownBlocksOtherStages(t *testing.T) {
	l := NewMemory(PerStage)
	ctx := context.Background()

	if err := l.Record(ctx, "a@example.com", 4, "stage_24h", now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("record: %v", err)
	}

	blocked, err := l.AlreadySent(ctx, "a@example.com", 4, "stage_48h", cooldown, now)
	if err != nil {
		t.Fatalf("already sent: %v", err)
	}
	if !blocked {
		t.Error("recent send must block other stages while cooldown runs")
	}

	// Once the cooldown has elapsed, a different stage may fire.
	blocked, err = l.AlreadySent(ctx, "a@example.com", 4, "stage_48h", time.Hour, now)
	if err != nil {
		t.Fatalf("already sent: %v", err)
	}
	if blocked {
		t.Error("expired cooldown must not block a different stage")
	}
}

func TestMemory_StrictSingle_OneLifetimeEmailPerPair(t *testing.T) {
	l := NewMemory(StrictSingle)
	ctx := context.Background()

	if err := l.Record(ctx, "a@example.com", 4, "stage_24h", now.Add(-365*24*time.Hour)); err != nil {
		t.Fatalf("record: %v", err)
	}

	blocked, err := l.AlreadySent(ctx, "a@example.com", 4, "stage_48h", time.Hour, now)
	if err != nil {
		t.Fatalf("already sent: %v", err)
	}
	if !blocked {
		t.Error("strict-single must block any further stage for the pair")
	}

	// A different wishlist of the same shopper is unaffected.
	blocked, err = l.AlreadySent(ctx, "a@example.com", 5, "stage_48h", time.Hour, now)
	if err != nil {
		t.Fatalf("already sent: %v", err)
	}
	if blocked {
		t.Error("a different wishlist must not be blocked")
	}
}

func TestMemory_Record_ConflictOnDuplicateKey(t *testing.T) {
	l := NewMemory(PerStage)
	ctx := context.Background()

	if err := l.Record(ctx, "a@example.com", 4, "stage_24h", now); err != nil {
		t.Fatalf("first record: %v", err)
	}

	err := l.Record(ctx, "a@example.com", 4, "stage_24h", now.Add(time.Minute))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("expected exactly one record, got %d", l.Len())
	}
}

func TestMemory_NormalizesEmails(t *testing.T) {
	l := NewMemory(PerStage)
	ctx := context.Background()

	if err := l.Record(ctx, "  A@Example.COM ", 4, "stage_24h", now); err != nil {
		t.Fatalf("record: %v", err)
	}

	blocked, err := l.AlreadySent(ctx, "a@example.com", 4, "stage_24h", cooldown, now)
	if err != nil {
		t.Fatalf("already sent: %v", err)
	}
	if !blocked {
		t.Error("case and whitespace variants must hit the same key")
	}
}

func TestParseKeyMode(t *testing.T) {
	if m, err := ParseKeyMode(""); err != nil || m != PerStage {
		t.Errorf("empty mode: got (%v, %v), want per-stage default", m, err)
	}
	if m, err := ParseKeyMode("strict-single"); err != nil || m != StrictSingle {
		t.Errorf("strict-single: got (%v, %v)", m, err)
	}
	if _, err := ParseKeyMode("bogus"); err == nil {
		t.Error("bogus mode should error")
	}
}
