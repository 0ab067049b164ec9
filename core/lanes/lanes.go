// Package lanes runs submitted work in per-key FIFO order while different
// keys proceed concurrently.
package lanes

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/m3rciful/releasebot/core/logger"
)

var (
	// ErrQueueFull is returned when the key's lane has no free slot.
	ErrQueueFull = errors.New("lanes: queue full")
	// ErrClosed is returned after Close has been called.
	ErrClosed = errors.New("lanes: closed")
)

// Job is a unit of work bound to a single key.
type Job func()

// Options tunes lane capacity and lifetime.
type Options struct {
	// QueueSize is the number of jobs a single lane buffers.
	QueueSize int
	// IdleTimeout retires a lane that has been empty this long.
	IdleTimeout time.Duration
	// MaxActive caps jobs executing at once across all lanes; 0 means no cap.
	MaxActive int
}

type lane struct {
	jobs chan Job
}

// Pool owns one goroutine per active key.
type Pool struct {
	opts Options
	sem  chan struct{}

	mu     sync.Mutex
	lanes  map[int64]*lane
	closed bool

	wg sync.WaitGroup
}

// New builds a pool, filling zero options with defaults.
func New(opts Options) *Pool {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = time.Minute
	}
	p := &Pool{
		opts:  opts,
		lanes: make(map[int64]*lane),
	}
	if opts.MaxActive > 0 {
		p.sem = make(chan struct{}, opts.MaxActive)
	}
	return p
}

// Submit appends job to key's lane without blocking.
func (p *Pool) Submit(key int64, job Job) error {
	if job == nil {
		return errors.New("lanes: nil job")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	l, ok := p.lanes[key]
	if !ok {
		l = &lane{jobs: make(chan Job, p.opts.QueueSize)}
		p.lanes[key] = l
		p.wg.Add(1)
		go p.run(key, l)
	}
	select {
	case l.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Active reports the number of live lanes.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lanes)
}

// Close stops accepting jobs and waits for queued ones to finish or ctx to end.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		for key, l := range p.lanes {
			close(l.jobs)
			delete(p.lanes, key)
		}
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) run(key int64, l *lane) {
	defer p.wg.Done()
	idle := time.NewTimer(p.opts.IdleTimeout)
	defer idle.Stop()
	for {
		select {
		case job, ok := <-l.jobs:
			if !ok {
				return
			}
			p.exec(key, job)
			idle.Reset(p.opts.IdleTimeout)
		case <-idle.C:
			if p.retire(key, l) {
				return
			}
			idle.Reset(p.opts.IdleTimeout)
		}
	}
}

// retire removes an empty lane. Submit holds the same lock, so no job can
// land in a lane after it has been unlinked.
func (p *Pool) retire(key int64, l *lane) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(l.jobs) > 0 {
		return false
	}
	if cur, ok := p.lanes[key]; ok && cur == l {
		delete(p.lanes, key)
	}
	return true
}

func (p *Pool) exec(key int64, job Job) {
	if p.sem != nil {
		p.sem <- struct{}{}
		defer func() { <-p.sem }()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error(context.Background(), "conv", "lane.panic",
				slog.Int64("user_id", key),
				slog.Any("cause", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	job()
}
