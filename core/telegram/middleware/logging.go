package middleware

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/releasebot/core/logger"
	"github.com/m3rciful/releasebot/core/telegram/update"
)

// Outcome lets a handler override the outcome recorded in the summary line.
type Outcome interface {
	Outcome() string
}

// Logging attaches request metadata to ctx, logs receipt at sampled debug
// level and writes one handler.handled summary per event. Place it inside
// Count so the summary sees reply counters.
func Logging(next update.Handler) update.Handler {
	return func(ctx context.Context, ev update.Event) error {
		ctx = ev.Context(ctx)
		if logger.ShouldSampleDebug() {
			logReceipt(ctx, ev)
		}

		start := time.Now()
		err := next(ctx, ev)
		logHandled(ctx, ev, start, err)
		return err
	}
}

func logReceipt(ctx context.Context, ev update.Event) {
	attrs := []slog.Attr{slog.String("kind", string(ev.Kind))}
	if ev.Username != "" {
		attrs = append(attrs, slog.String("username", logger.SanitizeLimit(ev.Username, 64)))
	}
	switch ev.Kind {
	case update.KindCallback:
		attrs = append(attrs,
			slog.String("cb_key", logger.SanitizeLimit(ev.CallbackKey, 128)),
			slog.String("payload", logger.SanitizeLimit(ev.CallbackPayload, 256)),
		)
	case update.KindContact:
		attrs = append(attrs, slog.Bool("contact", true))
	default:
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(ev.Text, 256)))
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", attrs...)
}

func logHandled(ctx context.Context, ev update.Event, start time.Time, err error) {
	counters := update.CountersFrom(ctx)
	msgs, kb := counters.Snapshot()
	status, outcome := "ok", "ok"
	if err != nil {
		status, outcome = "fail", "fail"
	} else if o := counters.Outcome(); o != "" {
		outcome = o
	}
	var o Outcome
	if errors.As(err, &o) {
		outcome = o.Outcome()
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.String("kind", string(ev.Kind)),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", time.Since(start)),
	}
	name := counters.Handler()
	if name == "" {
		name = handlerName(ev)
	}
	attrs = append(attrs, slog.String("handler", name))
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "handler.handled", attrs...)
}

func handlerName(ev update.Event) string {
	switch ev.Kind {
	case update.KindCommand:
		return "cmd_" + ev.Command
	case update.KindCallback:
		return "cb_" + ev.CallbackKey
	default:
		return string(ev.Kind)
	}
}

// errorCode derives an upper snake code from the error's dynamic type.
func errorCode(err error) string {
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
