package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func testClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return &Client{rdb: rdb, logger: zap.NewNop()}, mr
}

func TestRunLock_AcquireAndRelease(t *testing.T) {
	client, mr := testClient(t)
	lock := NewRunLock(client, zap.NewNop(), time.Hour)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "wishloop")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !mr.Exists("runlock:wishloop") {
		t.Fatal("lock key missing after acquire")
	}

	release()
	if mr.Exists("runlock:wishloop") {
		t.Fatal("lock key still present after release")
	}

	// Reacquirable after release.
	if _, err := lock.Acquire(ctx, "wishloop"); err != nil {
		t.Fatalf("reacquire: %v", err)
	}
}

func TestRunLock_SecondAcquireBlocked(t *testing.T) {
	client, _ := testClient(t)
	lock := NewRunLock(client, zap.NewNop(), time.Hour)
	ctx := context.Background()

	if _, err := lock.Acquire(ctx, "wishloop"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	_, err := lock.Acquire(ctx, "wishloop")
	if !errors.Is(err, ErrLockHeld) {
		t.Fatalf("second acquire: got %v, want ErrLockHeld", err)
	}
}

func TestRunLock_TTLExpiresStaleHolder(t *testing.T) {
	client, mr := testClient(t)
	lock := NewRunLock(client, zap.NewNop(), time.Minute)
	ctx := context.Background()

	if _, err := lock.Acquire(ctx, "wishloop"); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Holder dies without releasing; TTL frees the lock.
	mr.FastForward(2 * time.Minute)

	if _, err := lock.Acquire(ctx, "wishloop"); err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
}

func TestRunLock_DistinctNamesIndependent(t *testing.T) {
	client, _ := testClient(t)
	lock := NewRunLock(client, zap.NewNop(), time.Hour)
	ctx := context.Background()

	if _, err := lock.Acquire(ctx, "reminders"); err != nil {
		t.Fatalf("acquire reminders: %v", err)
	}
	if _, err := lock.Acquire(ctx, "backfill"); err != nil {
		t.Fatalf("acquire backfill: %v", err)
	}
}
