// Package roles decides who may use the admin side of the bot.
package roles

import (
	"context"
	"log/slog"

	"github.com/m3rciful/releasebot/core/logger"
)

// AdminStore looks up stored admin grants.
type AdminStore interface {
	IsAdmin(ctx context.Context, telegramID int64) (bool, error)
}

// Resolver answers admin checks for the configured super-admin and the stored grants.
type Resolver struct {
	superAdmin int64
	store      AdminStore
}

// NewResolver builds a resolver. store may be nil, leaving only the super-admin.
func NewResolver(superAdmin int64, store AdminStore) *Resolver {
	return &Resolver{superAdmin: superAdmin, store: store}
}

// IsSuperAdmin reports whether id is the configured super-admin.
func (r *Resolver) IsSuperAdmin(id int64) bool {
	return id != 0 && id == r.superAdmin
}

// IsAdmin reports whether id holds admin privilege. Lookup errors count as
// "no" so admin actions fail closed.
func (r *Resolver) IsAdmin(ctx context.Context, id int64) bool {
	if r.IsSuperAdmin(id) {
		return true
	}
	if id == 0 || r.store == nil {
		return false
	}
	ok, err := r.store.IsAdmin(ctx, id)
	if err != nil {
		logger.Warn(ctx, "conv", "roles.lookup",
			slog.String("status", "fail"),
			slog.Int64("target_id", id),
			slog.String("err", err.Error()),
		)
		return false
	}
	return ok
}
