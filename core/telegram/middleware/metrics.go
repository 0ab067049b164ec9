package middleware

import (
	"context"

	"github.com/m3rciful/releasebot/core/telegram/update"
)

// Count attaches reply counters that the messenger bumps on every send.
func Count(next update.Handler) update.Handler {
	return func(ctx context.Context, ev update.Event) error {
		if update.CountersFrom(ctx) == nil {
			ctx, _ = update.WithCounters(ctx)
		}
		return next(ctx, ev)
	}
}
