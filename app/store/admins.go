package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const adminsComponent = "store.admins"

// IsAdmin reports whether telegramID holds a stored admin grant.
func (s *Store) IsAdmin(ctx context.Context, telegramID int64) (ok bool, err error) {
	start := time.Now()
	defer func() {
		observe(ctx, adminsComponent, "is_admin", start, err,
			slog.Int64("target_id", telegramID),
			slog.Bool("admin", ok),
		)
	}()

	const q = `SELECT EXISTS (SELECT 1 FROM admins WHERE telegram_id = $1)`
	if err = s.db.GetContext(ctx, &ok, q, telegramID); err != nil {
		return false, fmt.Errorf("check admin %d: %w", telegramID, err)
	}
	return ok, nil
}

// AddAdmin grants admin to telegramID. Granting twice is not an error.
func (s *Store) AddAdmin(ctx context.Context, telegramID int64) (err error) {
	start := time.Now()
	defer func() {
		observe(ctx, adminsComponent, "add", start, err, slog.Int64("target_id", telegramID))
	}()

	const q = `INSERT INTO admins (telegram_id) VALUES ($1) ON CONFLICT (telegram_id) DO NOTHING`
	if _, err = s.db.ExecContext(ctx, q, telegramID); err != nil {
		return fmt.Errorf("add admin %d: %w", telegramID, err)
	}
	return nil
}
