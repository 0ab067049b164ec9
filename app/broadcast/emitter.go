// Package broadcast fans a message out to every registered user.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/releasebot/app/metrics"
	"github.com/m3rciful/releasebot/app/store"
	"github.com/m3rciful/releasebot/core/logger"
	"github.com/m3rciful/releasebot/core/telegram/sender"
)

const (
	component      = "broadcast"
	defaultTimeout = 30 * time.Minute
)

// UserLister yields the current recipients.
type UserLister interface {
	ListUsers(ctx context.Context) ([]store.User, error)
}

// TextSender delivers one message.
type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string, markup *tele.ReplyMarkup) error
}

// Queue runs jobs off the caller's goroutine.
type Queue interface {
	Enqueue(ctx context.Context, job sender.Job) error
}

// Options configures an Emitter.
type Options struct {
	Users UserLister
	Out   TextSender
	Queue Queue
	// Pace is the pause between two sends.
	Pace time.Duration
	// Timeout bounds one queued broadcast.
	Timeout time.Duration
}

// Report summarises one broadcast.
type Report struct {
	Recipients int
	Delivered  int
	Failed     int
	// Skipped counts recipients never attempted because ctx ended.
	Skipped  int
	Duration time.Duration
}

// Emitter sends to recipients one at a time with a fixed pause in between.
type Emitter struct {
	opts Options
}

// New builds an emitter.
func New(opts Options) *Emitter {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Emitter{opts: opts}
}

// Send delivers message to each recipient. One failure never stops the rest.
func (e *Emitter) Send(ctx context.Context, message string, recipients []int64) Report {
	rep := Report{Recipients: len(recipients)}
	start := time.Now()

	var tick *time.Ticker
	if e.opts.Pace > 0 && len(recipients) > 1 {
		tick = time.NewTicker(e.opts.Pace)
		defer tick.Stop()
	}

	for i, chatID := range recipients {
		if i > 0 && tick != nil {
			select {
			case <-ctx.Done():
			case <-tick.C:
			}
		}
		if ctx.Err() != nil {
			rep.Skipped = len(recipients) - i
			break
		}
		if err := e.opts.Out.SendText(ctx, chatID, message, nil); err != nil {
			rep.Failed++
			logger.Warn(ctx, component, "broadcast.send",
				slog.String("status", "fail"),
				slog.Int64("recipient", chatID),
				slog.String("err", err.Error()),
			)
			continue
		}
		rep.Delivered++
	}
	rep.Duration = time.Since(start)
	metrics.ObserveBroadcast(rep.Delivered, rep.Failed, rep.Skipped, rep.Duration)

	logger.Info(ctx, component, "broadcast.done",
		slog.String("status", reportStatus(rep)),
		slog.Int("recipients", rep.Recipients),
		slog.Int("delivered", rep.Delivered),
		slog.Int("failed", rep.Failed),
		slog.Int("skipped", rep.Skipped),
		slog.Duration("duration", rep.Duration),
	)
	return rep
}

// Broadcast sends message to every registered user. It fails only when the
// user list cannot be loaded.
func (e *Emitter) Broadcast(ctx context.Context, message string) (Report, error) {
	if e.opts.Users == nil {
		return Report{}, errors.New("broadcast: no user source")
	}
	users, err := e.opts.Users.ListUsers(ctx)
	if err != nil {
		logger.Error(ctx, component, "broadcast.recipients",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return Report{}, fmt.Errorf("broadcast: list recipients: %w", err)
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.TelegramID)
	}
	return e.Send(ctx, message, ids), nil
}

// Enqueue schedules Broadcast on the queue and returns without waiting.
func (e *Emitter) Enqueue(ctx context.Context, message string) error {
	if e.opts.Queue == nil {
		return errors.New("broadcast: no queue")
	}
	return e.opts.Queue.Enqueue(ctx, sender.Job{
		Action:  "broadcast",
		NoRetry: true,
		Timeout: e.opts.Timeout,
		Run: func(ctx context.Context) error {
			_, err := e.Broadcast(ctx, message)
			return err
		},
	})
}

func reportStatus(r Report) string {
	switch {
	case r.Failed == 0 && r.Skipped == 0:
		return "ok"
	case r.Delivered == 0 && r.Recipients > 0:
		return "fail"
	}
	return "partial"
}
