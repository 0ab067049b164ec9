package telegram

import (
	"context"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/releasebot/core/logger"
)

const defaultLongPollTimeout = 10 * time.Second

// LongPoll pulls updates with getUpdates and hands each to sink until ctx ends.
func LongPoll(ctx context.Context, bot *tele.Bot, timeout time.Duration, sink func(tele.Update)) {
	if timeout <= 0 {
		timeout = defaultLongPollTimeout
	}
	poller := &tele.LongPoller{Timeout: timeout, AllowedUpdates: AllowedUpdates}
	updates := make(chan tele.Update, 64)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		poller.Poll(bot, updates, stop)
	}()

	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "longpoll.start",
		slog.String("mode", "longpoll"),
		slog.Duration("timeout", timeout),
	)
	for {
		select {
		case u := <-updates:
			sink(u)
		case <-ctx.Done():
			close(stop)
			dropped := 0
			for {
				select {
				case <-updates:
					dropped++
				case <-done:
					logger.LogEvent(context.Background(), logger.TG, slog.LevelInfo, "longpoll.stop",
						slog.Int("count", dropped),
					)
					return
				}
			}
		}
	}
}
