package update

import (
	"context"
	"sync"
	"sync/atomic"
)

type countersKey struct{}

// Counters tracks the replies produced while handling one event.
type Counters struct {
	messages  atomic.Int32
	keyboards atomic.Bool

	mu      sync.Mutex
	handler string
	outcome string
}

// WithCounters attaches a fresh Counters to ctx.
func WithCounters(ctx context.Context) (context.Context, *Counters) {
	c := &Counters{}
	return context.WithValue(ctx, countersKey{}, c), c
}

// CountersFrom returns the counters attached to ctx, or nil.
func CountersFrom(ctx context.Context) *Counters {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(countersKey{}).(*Counters)
	return c
}

// Sent records one delivered message.
func (c *Counters) Sent(withKeyboard bool) {
	if c == nil {
		return
	}
	c.messages.Add(1)
	if withKeyboard {
		c.keyboards.Store(true)
	}
}

// Snapshot returns the message count and whether any carried a keyboard.
func (c *Counters) Snapshot() (int, bool) {
	if c == nil {
		return 0, false
	}
	return int(c.messages.Load()), c.keyboards.Load()
}

// SetHandler records which handler consumed the event.
func (c *Counters) SetHandler(name string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.handler = name
	c.mu.Unlock()
}

// Handler returns the name recorded by SetHandler.
func (c *Counters) Handler() string {
	if c == nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler
}

// SetOutcome records a non-error outcome such as "denied" or "ignored".
func (c *Counters) SetOutcome(outcome string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.outcome = outcome
	c.mu.Unlock()
}

// Outcome returns the value recorded by SetOutcome.
func (c *Counters) Outcome() string {
	if c == nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}
