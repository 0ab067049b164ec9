// Package store persists users, videos and admin grants in Postgres.
package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/releasebot/core/logger"
)

var (
	// ErrNotFound is returned when a lookup or delete matches no row.
	ErrNotFound = errors.New("store: not found")
	// ErrAlreadyExists is returned when an insert hits a unique constraint.
	ErrAlreadyExists = errors.New("store: already exists")
)

const uniqueViolation = "23505"

// User is a registered bot user.
type User struct {
	ID         int64     `db:"id"`
	TelegramID int64     `db:"telegram_id"`
	FullName   string    `db:"full_name"`
	Phone      string    `db:"phone"`
	CreatedAt  time.Time `db:"created_at"`
}

// Video is one catalogue entry.
type Video struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Link      string    `db:"link"`
	CreatedAt time.Time `db:"created_at"`
}

// Store runs queries against a sqlx pool. Its methods are safe for concurrent use.
type Store struct {
	db *sqlx.DB
}

// New wraps db.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Ping checks the pool is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// observe logs the query result: debug on success or miss, error otherwise.
func observe(ctx context.Context, component, op string, start time.Time, err error, attrs ...slog.Attr) {
	attrs = append(attrs,
		slog.String("op", op),
		slog.Duration("duration", time.Since(start)),
	)
	switch {
	case err == nil:
		logger.Debug(ctx, component, "db.query", append(attrs, slog.String("status", "ok"))...)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAlreadyExists):
		logger.Debug(ctx, component, "db.query", append(attrs,
			slog.String("status", "miss"),
			slog.String("err", err.Error()),
		)...)
	default:
		logger.Error(ctx, component, "db.query", append(attrs,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)...)
	}
}
