package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PurgeAuthCodes deletes authorization codes that were consumed or that
// expired before the given time, and reports how many rows went away.
func PurgeAuthCodes(ctx context.Context, db *sql.DB, before time.Time) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM auth_codes WHERE used = true OR expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge auth codes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge auth codes: %w", err)
	}
	return n, nil
}

// StartAuthCodeCleaner runs PurgeAuthCodes every interval until ctx is done.
// Codes are kept for retention past their expiry.
func StartAuthCodeCleaner(ctx context.Context, db *sql.DB, interval, retention time.Duration, log *zap.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				removed, err := PurgeAuthCodes(ctx, db, now.Add(-retention))
				switch {
				case err != nil:
					log.Error("failed to clean authorization codes", zap.Error(err))
				case removed > 0:
					log.Info("cleaned authorization codes", zap.Int64("removed", removed))
				}
			}
		}
	}()
}
