package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const usersComponent = "store.users"

// CreateUser inserts a registration. A second registration for the same
// Telegram id yields ErrAlreadyExists.
func (s *Store) CreateUser(ctx context.Context, telegramID int64, fullName, phone string) (err error) {
	start := time.Now()
	defer func() {
		observe(ctx, usersComponent, "create", start, err, slog.Int64("target_id", telegramID))
	}()

	const q = `INSERT INTO users (telegram_id, full_name, phone) VALUES ($1, $2, $3)`
	if _, err = s.db.ExecContext(ctx, q, telegramID, fullName, phone); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create user %d: %w", telegramID, err)
	}
	return nil
}

// GetUserByID loads the user registered under telegramID.
func (s *Store) GetUserByID(ctx context.Context, telegramID int64) (u User, err error) {
	start := time.Now()
	defer func() {
		observe(ctx, usersComponent, "get", start, err, slog.Int64("target_id", telegramID))
	}()

	const q = `
SELECT id, telegram_id, full_name, phone, created_at
  FROM users WHERE telegram_id = $1`
	if err = s.db.GetContext(ctx, &u, q, telegramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user %d: %w", telegramID, err)
	}
	return u, nil
}

// ListUsers returns every user in registration order.
func (s *Store) ListUsers(ctx context.Context) (users []User, err error) {
	start := time.Now()
	defer func() {
		observe(ctx, usersComponent, "list", start, err, slog.Int("count", len(users)))
	}()

	const q = `
SELECT id, telegram_id, full_name, phone, created_at
  FROM users ORDER BY id`
	if err = s.db.SelectContext(ctx, &users, q); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes the user registered under telegramID.
func (s *Store) DeleteUser(ctx context.Context, telegramID int64) (err error) {
	start := time.Now()
	defer func() {
		observe(ctx, usersComponent, "delete", start, err, slog.Int64("target_id", telegramID))
	}()

	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", telegramID, err)
	}
	return affected(res)
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
