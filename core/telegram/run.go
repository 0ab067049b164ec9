package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/releasebot/core/config"
	"github.com/m3rciful/releasebot/core/logger"
)

// RunOptions wires the update feed.
type RunOptions struct {
	Config *coreconfig.Config
	Bot    *tele.Bot
	Menu   *CommandMenu
	// Secret is registered with the webhook; ignored in long-poll mode.
	Secret string
	// Sink receives raw updates in long-poll mode. Webhook updates arrive
	// through the HTTP server instead.
	Sink func(tele.Update)
	// OnReady is called once the feed is live.
	OnReady func()
}

// Run publishes commands, starts the configured feed and blocks until ctx is
// done. In webhook mode the webhook is removed on exit.
func Run(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil || opts.Bot == nil {
		return errors.New("telegram: config and bot are required")
	}
	cfg := opts.Config
	if opts.Menu != nil {
		if err := PublishCommands(ctx, opts.Bot, opts.Menu); err != nil {
			logger.LogEvent(ctx, logger.TWire, slog.LevelWarn, "register.commands.skip",
				slog.String("err", err.Error()))
		}
	}

	switch cfg.Telegram.RunMode {
	case coreconfig.RunModeLongpoll:
		if opts.Sink == nil {
			return errors.New("telegram: long-poll mode needs a sink")
		}
		if err := opts.Bot.RemoveWebhook(false); err != nil {
			logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "delete_webhook",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
		if opts.OnReady != nil {
			opts.OnReady()
		}
		LongPoll(ctx, opts.Bot, time.Duration(cfg.Telegram.LongPollTimeoutSeconds)*time.Second, opts.Sink)
		return nil

	case coreconfig.RunModeWebhook:
		start := time.Now()
		if err := RegisterWebhook(opts.Bot, cfg.Webhook.URL, opts.Secret); err != nil {
			return err
		}
		logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode",
			slog.String("mode", "webhook"),
			slog.String("public_url", cfg.Webhook.URL),
			slog.String("listen", cfg.Webhook.Addr()),
			slog.Duration("duration", time.Since(start)),
		)
		if opts.OnReady != nil {
			opts.OnReady()
		}
		<-ctx.Done()
		if err := opts.Bot.RemoveWebhook(false); err != nil {
			logger.LogEvent(context.Background(), logger.TG, slog.LevelWarn, "delete_webhook",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
		return nil
	}
	return fmt.Errorf("telegram: unknown run mode %q", cfg.Telegram.RunMode)
}
