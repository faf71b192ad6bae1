package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultLockTTL bounds how long a crashed run can block its successors.
// Cron cadence is daily; an hour comfortably covers the largest batch.
const DefaultLockTTL = 1 * time.Hour

// ErrLockHeld means another invocation is currently running.
var ErrLockHeld = errors.New("run lock held by another invocation")

// RunLock is a single-flight guard across scheduled invocations,
// acquired with SET NX so overlapping cron runs never process the same
// batch concurrently. The ledger's uniqueness constraint is the
// correctness backstop; the lock just avoids wasted duplicate work.
type RunLock struct {
	client *Client
	logger *zap.Logger
	ttl    time.Duration
}

func NewRunLock(client *Client, logger *zap.Logger, ttl time.Duration) *RunLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RunLock{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Acquire takes the named lock, returning a release func. Returns
// ErrLockHeld if another invocation holds it. The TTL releases the lock
// if the holder dies before calling release.
func (l *RunLock) Acquire(ctx context.Context, name string) (func(), error) {
	key := fmt.Sprintf("runlock:%s", name)

	set, err := l.client.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx failed: %w", err)
	}
	if !set {
		return nil, ErrLockHeld
	}

	l.logger.Debug("run lock acquired",
		zap.String("key", key),
		zap.Duration("ttl", l.ttl),
	)

	release := func() {
		if err := l.client.rdb.Del(context.Background(), key).Err(); err != nil {
			l.logger.Warn("failed to release run lock, TTL will expire it",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}

	return release, nil
}
