// Package server exposes the bot over HTTP: the Telegram webhook, liveness
// and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/releasebot/app/conversation"
	"github.com/m3rciful/releasebot/app/metrics"
	"github.com/m3rciful/releasebot/core/lanes"
	"github.com/m3rciful/releasebot/core/logger"
	"github.com/m3rciful/releasebot/core/telegram"
	"github.com/m3rciful/releasebot/core/telegram/update"
)

const (
	rootText        = "Telegram Bot is running!"
	shutdownTimeout = 10 * time.Second
	checkTimeout    = 3 * time.Second
)

// Dispatcher accepts decoded events.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev update.Event) error
}

// Options configures a Server.
type Options struct {
	Addr string
	// WebhookPath is where Telegram posts updates. Empty disables the route.
	WebhookPath string
	Secret      string
	Dispatcher  Dispatcher
	// Metrics serves /metrics; defaults to the Prometheus default gatherer.
	Metrics http.Handler
	// Checks back /ready, keyed by dependency name.
	Checks map[string]func(context.Context) error
}

// Server is the bot's HTTP surface.
type Server struct {
	opts   Options
	ready  atomic.Bool
	router chi.Router
}

// New builds the router. The webhook answers 503 until SetReady is called.
func New(opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = promhttp.Handler()
	}
	s := &Server{opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", opts.Metrics)
	if opts.WebhookPath != "" && opts.Dispatcher != nil {
		r.Post(opts.WebhookPath, s.handleWebhook)
	}
	s.router = r
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// SetReady opens the webhook for updates.
func (s *Server) SetReady() { s.ready.Store(true) }

// Run listens on Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	logger.LogEvent(ctx, logger.HTTP, slog.LevelInfo, "http.listen",
		slog.String("addr", ln.Addr().String()),
		slog.String("webhook_path", s.opts.WebhookPath),
	)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	logger.LogEvent(shutCtx, logger.HTTP, slog.LevelInfo, "http.stop")
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(rootText))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "bot": "running"})
}

// handleReady runs every dependency check and answers 503 if any fails.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	code := http.StatusOK
	result := make(map[string]string, len(s.opts.Checks)+1)
	for name, check := range s.opts.Checks {
		if err := check(ctx); err != nil {
			code = http.StatusServiceUnavailable
			result[name] = "fail"
			logger.LogEvent(ctx, logger.HTTP, slog.LevelWarn, "ready.check",
				slog.String("check", name),
				slog.String("err", err.Error()),
			)
			continue
		}
		result[name] = "ok"
	}
	result["bot"] = "not_ready"
	if s.ready.Load() {
		result["bot"] = "running"
	} else {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(result)
}

// handleWebhook decodes one update, queues it and acknowledges. Updates the
// bot cannot use are still acknowledged so Telegram does not redeliver them.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !s.ready.Load() {
		s.respond(ctx, w, http.StatusServiceUnavailable, "not_ready")
		return
	}
	raw, err := telegram.ReadUpdate(r, s.opts.Secret)
	switch {
	case errors.Is(err, telegram.ErrBadSecret):
		s.respond(ctx, w, http.StatusUnauthorized, "bad_secret")
		return
	case err != nil:
		s.respond(ctx, w, http.StatusBadRequest, "bad_update")
		return
	}

	ev, status := Deliver(ctx, s.opts.Dispatcher, raw)
	s.respond(ev.Context(ctx), w, http.StatusOK, status)
}

// Deliver decodes raw and hands it to d. It reports what happened to the
// update: accepted, unsupported, malformed or the reason it was dropped.
func Deliver(ctx context.Context, d Dispatcher, raw tele.Update) (update.Event, string) {
	ev, err := update.Decode(raw)
	switch {
	case errors.Is(err, update.ErrUnsupported):
		metrics.IncDropped("unsupported")
		return ev, "unsupported"
	case err != nil:
		metrics.IncDropped("malformed")
		return ev, "malformed"
	}
	if err := d.Dispatch(ctx, ev); err != nil {
		reason := dropReason(err)
		metrics.IncDropped(reason)
		return ev, reason
	}
	return ev, "accepted"
}

func (s *Server) respond(ctx context.Context, w http.ResponseWriter, code int, status string) {
	metrics.IncWebhook(code)
	level := slog.LevelDebug
	if code >= http.StatusBadRequest {
		level = slog.LevelWarn
	}
	logger.LogEvent(ctx, logger.HTTP, level, "webhook",
		slog.Int("code", code),
		slog.String("status", status),
	)
	w.WriteHeader(code)
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, lanes.ErrQueueFull):
		return "queue_full"
	case errors.Is(err, lanes.ErrClosed):
		return "closed"
	case errors.Is(err, conversation.ErrMalformedEvent):
		return "malformed"
	}
	return "error"
}
