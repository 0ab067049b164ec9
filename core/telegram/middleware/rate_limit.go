package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/releasebot/core/logger"
	"github.com/m3rciful/releasebot/core/telegram/update"
)

// RateLimitOptions configures RateLimit.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude holds "callback" and/or "message" to skip those update types.
	Exclude   map[string]struct{}
	OnLimited update.Handler
	// Now is overridable in tests.
	Now func() time.Time
}

// RateLimit drops events arriving from the same sender faster than Interval.
func RateLimit(opts RateLimitOptions) update.Middleware {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	var (
		mu       sync.Mutex
		lastSeen = make(map[int64]time.Time)
	)
	return func(next update.Handler) update.Handler {
		return func(ctx context.Context, ev update.Event) error {
			if opts.Interval <= 0 || ev.SenderID == 0 {
				return next(ctx, ev)
			}
			if _, skip := opts.Exclude[updateClass(ev)]; skip {
				return next(ctx, ev)
			}

			now := opts.Now()
			mu.Lock()
			last, seen := lastSeen[ev.SenderID]
			limited := seen && now.Sub(last) < opts.Interval
			if !limited {
				lastSeen[ev.SenderID] = now
			}
			for id, ts := range lastSeen {
				if now.Sub(ts) > 10*opts.Interval {
					delete(lastSeen, id)
				}
			}
			mu.Unlock()

			if !limited {
				return next(ctx, ev)
			}
			logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "tg.rate_limit",
				slog.String("status", "rate_limited"),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(ctx, ev)
			}
			return nil
		}
	}
}

func updateClass(ev update.Event) string {
	if ev.Kind == update.KindCallback {
		return "callback"
	}
	return "message"
}
