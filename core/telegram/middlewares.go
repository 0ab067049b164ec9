package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/releasebot/core/config"
	"github.com/m3rciful/releasebot/core/telegram/middleware"
	"github.com/m3rciful/releasebot/core/telegram/update"
)

// DefaultMiddlewares builds the shared chain: counters, logging, panic recovery
// and, when configured, per-sender rate limiting.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited update.Handler) []update.Middleware {
	mws := []update.Middleware{
		middleware.Count,
		middleware.Logging,
		middleware.Recover,
	}
	if cfg == nil || cfg.RateLimit.IntervalMS <= 0 {
		return mws
	}
	exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
	for _, t := range cfg.RateLimit.ExcludeUpdates {
		exclude[strings.ToLower(t)] = struct{}{}
	}
	return append(mws, middleware.RateLimit(middleware.RateLimitOptions{
		Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
		Exclude:   exclude,
		OnLimited: onLimited,
	}))
}
