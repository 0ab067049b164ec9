package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/releasebot/core/logger"
	"github.com/m3rciful/releasebot/core/telegram/update"
)

// Recover turns a handler panic into an error so the sender's lane survives.
func Recover(next update.Handler) update.Handler {
	return func(ctx context.Context, ev update.Event) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.LogEvent(ctx, logger.TG, slog.LevelError, "tg.panic",
					slog.Any("cause", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		return next(ctx, ev)
	}
}
