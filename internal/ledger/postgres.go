package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wishloop/internal/db"
)

// Postgres persists send records in wishlist_email_log, guarded by a
// unique index on (email, wishlist_id, campaign_key). Two overlapping
// runs racing on the same key produce exactly one committed row; the
// loser sees ErrConflict.
type Postgres struct {
	db     *db.DB
	mode   KeyMode
	logger *zap.Logger
}

func NewPostgres(database *db.DB, mode KeyMode, logger *zap.Logger) *Postgres {
	return &Postgres{
		db:     database,
		mode:   mode,
		logger: logger,
	}
}

func (l *Postgres) AlreadySent(ctx context.Context, email string, wishlistID int64, campaignKey string, cooldown time.Duration, now time.Time) (bool, error) {
	email = NormalizeEmail(email)

	var query string
	args := []any{email, wishlistID}

	if l.mode == StrictSingle {
		// Any prior send to the pair blocks forever, whatever the stage.
		query = `
			SELECT EXISTS (
				SELECT 1 FROM wishlist_email_log
				WHERE email = $1 AND wishlist_id = $2
			)
		`
	} else {
		// Same stage blocks forever; any other stage blocks while its
		// cooldown still runs.
		query = `
			SELECT EXISTS (
				SELECT 1 FROM wishlist_email_log
				WHERE email = $1 AND wishlist_id = $2
				  AND (campaign_key = $3 OR sent_at > $4)
			)
		`
		args = append(args, campaignKey, now.Add(-cooldown))
	}

	var exists bool
	if err := l.db.Pool().QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("query send log: %w", err)
	}

	return exists, nil
}

func (l *Postgres) Record(ctx context.Context, email string, wishlistID int64, campaignKey string, sentAt time.Time) error {
	email = NormalizeEmail(email)

	query := `
		INSERT INTO wishlist_email_log (email, wishlist_id, campaign_key, sent_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email, wishlist_id, campaign_key) DO NOTHING
	`

	result, err := l.db.Pool().Exec(ctx, query, email, wishlistID, campaignKey, sentAt)
	if err != nil {
		l.logger.Error("failed to record send",
			zap.Error(err),
			zap.String("email", email),
			zap.Int64("wishlist_id", wishlistID),
			zap.String("campaign_key", campaignKey),
		)
		return fmt.Errorf("insert send log: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s wishlist %d stage %s", ErrConflict, email, wishlistID, campaignKey)
	}

	l.logger.Debug("send recorded",
		zap.String("email", email),
		zap.Int64("wishlist_id", wishlistID),
		zap.String("campaign_key", campaignKey),
	)

	return nil
}
