package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/m3rciful/releasebot/core/lanes"
	"github.com/m3rciful/releasebot/core/logger"
	"github.com/m3rciful/releasebot/core/telegram/update"
)

const (
	component      = "conv"
	defaultTimeout = 30 * time.Second
)

// Options wires a Dispatcher.
type Options struct {
	Registry Registry
	// Lanes serializes work per sender. Required for Dispatch, unused by Handle.
	Lanes   *lanes.Pool
	Entries []EntryPoint
	Flows   []Flow
	// Middlewares wrap routing; the first one runs outermost.
	Middlewares []update.Middleware
	// OnError is told about events whose handling failed, after the
	// registry has been left untouched.
	OnError func(ctx context.Context, ev update.Event, err error)
	// Timeout bounds the handling of one event.
	Timeout time.Duration
}

// Dispatcher routes events to entry points and flows and commits the
// resulting state.
type Dispatcher struct {
	registry Registry
	lanes    *lanes.Pool
	entries  []EntryPoint
	flows    map[Kind]Flow
	onError  func(ctx context.Context, ev update.Event, err error)
	timeout  time.Duration
	handle   update.Handler
}

// NewDispatcher validates opts and sorts the entry points by priority.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Registry == nil {
		return nil, errors.New("conversation: registry is required")
	}
	d := &Dispatcher{
		registry: opts.Registry,
		lanes:    opts.Lanes,
		flows:    make(map[Kind]Flow, len(opts.Flows)),
		onError:  opts.OnError,
		timeout:  opts.Timeout,
	}
	if d.timeout <= 0 {
		d.timeout = defaultTimeout
	}
	for _, e := range opts.Entries {
		if e.Name == "" || e.Match == nil || e.Start == nil {
			return nil, fmt.Errorf("conversation: entry point %q is incomplete", e.Name)
		}
		d.entries = append(d.entries, e)
	}
	sort.SliceStable(d.entries, func(i, j int) bool {
		return d.entries[i].Priority < d.entries[j].Priority
	})
	for _, f := range opts.Flows {
		if _, dup := d.flows[f.Kind()]; dup {
			return nil, fmt.Errorf("conversation: flow %q registered twice", f.Kind())
		}
		d.flows[f.Kind()] = f
	}
	d.handle = update.Chain(d.route, opts.Middlewares...)
	return d, nil
}

// Dispatch queues ev on its sender's lane and returns at once. Events without
// a sender are dropped with ErrMalformedEvent.
func (d *Dispatcher) Dispatch(ctx context.Context, ev update.Event) error {
	if ev.SenderID == 0 {
		logger.Warn(ev.Context(ctx), component, "dispatch.drop",
			slog.String("status", "malformed"),
			slog.String("kind", string(ev.Kind)),
		)
		return ErrMalformedEvent
	}
	if d.lanes == nil {
		return errors.New("conversation: dispatcher has no lanes")
	}
	base := context.WithoutCancel(ctx)
	err := d.lanes.Submit(ev.SenderID, func() {
		_ = d.Handle(base, ev)
	})
	if err != nil {
		logger.Warn(ev.Context(ctx), component, "dispatch.drop",
			slog.String("status", "rejected"),
			slog.String("err", err.Error()),
		)
		return err
	}
	return nil
}

// Handle runs ev through the middleware chain and routing on the caller's
// goroutine. Callers must not run two Handle calls for one sender at once;
// Dispatch guarantees that through the lanes.
func (d *Dispatcher) Handle(ctx context.Context, ev update.Event) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	err := d.handle(ctx, ev)
	if err != nil && d.onError != nil {
		d.onError(ev.Context(ctx), ev, err)
	}
	return err
}

func (d *Dispatcher) route(ctx context.Context, ev update.Event) error {
	if ev.SenderID == 0 {
		return ErrMalformedEvent
	}
	cur, active, err := d.registry.Get(ctx, ev.SenderID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	if active {
		ctx = logger.WithConversation(ctx, string(cur.Kind), string(cur.State))
	}
	counters := update.CountersFrom(ctx)

	for _, e := range d.entries {
		if e.WhenActive && !active {
			continue
		}
		if !e.Match(ev) {
			continue
		}
		counters.SetHandler(e.Name)
		logger.Debug(ctx, component, "route.entry",
			slog.String("entry", e.Name),
			slog.String("priority", e.Priority.String()),
		)
		res, err := e.Start(ctx, ev, cur)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name, err)
		}
		return d.commit(ctx, ev.SenderID, cur, res)
	}

	if !active || ev.Kind == update.KindCommand {
		counters.SetHandler("unrouted")
		counters.SetOutcome("ignored")
		logger.Debug(ctx, component, "route.drop",
			slog.String("kind", string(ev.Kind)),
			slog.Bool("active", active),
		)
		return nil
	}

	flow, ok := d.flows[cur.Kind]
	if !ok {
		logger.Warn(ctx, component, "route.orphan", slog.String("status", "cleared"))
		return d.registry.Clear(ctx, ev.SenderID)
	}
	counters.SetHandler(string(cur.Kind) + "." + string(cur.State))
	res, err := flow.Step(ctx, cur, ev)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", cur.Kind, cur.State, err)
	}
	return d.commit(ctx, ev.SenderID, cur, res)
}

func (d *Dispatcher) commit(ctx context.Context, senderID int64, cur Conversation, res Result) error {
	switch res.op {
	case opMove:
		if err := d.registry.Set(ctx, senderID, res.next); err != nil {
			return fmt.Errorf("store conversation: %w", err)
		}
		if res.next.Kind != cur.Kind || res.next.State != cur.State {
			logger.Debug(ctx, component, "state.move",
				slog.String("from", transition(cur)),
				slog.String("to", transition(res.next)),
			)
		}
	case opEnd:
		if !cur.Active() {
			return nil
		}
		if err := d.registry.Clear(ctx, senderID); err != nil {
			return fmt.Errorf("clear conversation: %w", err)
		}
		logger.Debug(ctx, component, "state.end", slog.String("from", transition(cur)))
	}
	return nil
}

func transition(c Conversation) string {
	if !c.Active() {
		return "none"
	}
	return string(c.Kind) + "." + string(c.State)
}
