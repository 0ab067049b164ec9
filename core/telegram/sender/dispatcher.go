// Package sender runs outbound Telegram work off the caller's goroutine.
package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/releasebot/core/logger"
	"github.com/m3rciful/releasebot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when Enqueue is called after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the dispatcher. Zero values pick defaults.
type Options struct {
	QueueSize    int           `yaml:"queue_size" envconfig:"SENDER_QUEUE_SIZE"`
	Workers      int           `yaml:"workers" envconfig:"SENDER_WORKERS"`
	MaxRetries   int           `yaml:"max_retries" envconfig:"SENDER_MAX_RETRIES"`
	RetryBackoff time.Duration `yaml:"retry_backoff" envconfig:"SENDER_RETRY_BACKOFF"`
	// MaxDuration bounds one job including retries.
	MaxDuration time.Duration `yaml:"max_duration" envconfig:"SENDER_MAX_DURATION"`
}

// Job is a unit of outbound work. Run must be safe to repeat when retries are enabled.
type Job struct {
	Action   string
	Endpoint string
	// NoRetry runs the job exactly once.
	NoRetry bool
	// Timeout replaces Options.MaxDuration for this job when positive.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

type queued struct {
	ctx context.Context
	job Job
}

// Dispatcher executes jobs on a fixed worker pool.
type Dispatcher struct {
	opts Options
	jobs chan queued

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	failed  atomic.Uint64
	pending atomic.Int64
}

// NewDispatcher starts the workers.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}
	d := &Dispatcher{opts: opts, jobs: make(chan queued, opts.QueueSize)}
	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

// Enqueue schedules job without blocking. ctx values are kept for logging;
// its cancellation is ignored so queued work survives the request that made it.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) error {
	if job.Run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	// Count before the send so a fast worker cannot decrement first.
	d.pending.Add(1)
	select {
	case d.jobs <- queued{ctx: context.WithoutCancel(ctx), job: job}:
		return nil
	default:
		d.pending.Add(-1)
		return ErrQueueFull
	}
}

// ErrorCount returns the number of jobs that ended in failure.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.failed.Load()
}

// Pending returns queued plus running jobs.
func (d *Dispatcher) Pending() int64 {
	return d.pending.Load()
}

// Close stops intake and waits for queued jobs to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for q := range d.jobs {
		d.handle(q.ctx, q.job)
		d.pending.Add(-1)
	}
}

func (d *Dispatcher) handle(ctx context.Context, job Job) {
	limit := d.opts.MaxDuration
	if job.Timeout > 0 {
		limit = job.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	attempts := d.opts.MaxRetries + 1
	if job.NoRetry {
		attempts = 1
	}
	start := time.Now()
	logger.Debug(ctx, "tg.sender", "send.start", jobAttrs(job)...)

	var err error
retry:
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = job.Run(ctx); err == nil {
			attrs := append(jobAttrs(job), slog.Duration("duration", time.Since(start)))
			if attempt > 1 {
				attrs = append(attrs, slog.Int("attempts", attempt))
			}
			logger.Debug(ctx, "tg.sender", "send.success", attrs...)
			return
		}
		if attempt == attempts || !netutil.ShouldRetry(err) {
			break retry
		}
		delay := d.opts.RetryBackoff * time.Duration(attempt)
		if wait, ok := netutil.RetryAfter(err); ok && wait > delay {
			delay = wait
		}
		logger.Debug(ctx, "tg.sender", "send.retry.backoff",
			append(jobAttrs(job), slog.Int("attempts", attempt), slog.Duration("delay", delay))...)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
			break retry
		case <-timer.C:
		}
	}

	d.failed.Add(1)
	logger.Error(ctx, "tg.sender", "send.fail", append(jobAttrs(job),
		slog.String("err", redact(err)),
		slog.String("err_code", classify(err)),
		slog.Int("attempts", attempts),
		slog.Duration("duration", time.Since(start)),
	)...)
}

func jobAttrs(job Job) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", job.Action)}
	if job.Endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", job.Endpoint))
	}
	return attrs
}

// classify maps err onto a small set of labels for logs.
func classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial"
	}
	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return "tls"
	}
	switch status := statusOf(err); {
	case status == http.StatusTooManyRequests:
		return "flood"
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

func statusOf(err error) int {
	if _, ok := netutil.RetryAfter(err); ok {
		return http.StatusTooManyRequests
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// redact strips bot tokens that net/http embeds in request URLs.
func redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
