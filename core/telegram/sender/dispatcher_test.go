package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcherRunsJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2})
	var runs atomic.Int32
	for i := 0; i < 5; i++ {
		if err := d.Enqueue(context.Background(), Job{Action: "test", Run: func(context.Context) error {
			runs.Add(1)
			return nil
		}}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	d.Close()
	if runs.Load() != 5 || d.Pending() != 0 {
		t.Fatalf("runs=%d pending=%d", runs.Load(), d.Pending())
	}
	if err := d.Enqueue(context.Background(), Job{Run: func(context.Context) error { return nil }}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("err = %v, want ErrQueueClosed", err)
	}
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	_ = d.Enqueue(context.Background(), Job{Action: "send", Run: func(context.Context) error {
		if calls.Add(1) < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("refused")}
		}
		return nil
	}})
	d.Close()
	if calls.Load() != 3 || d.ErrorCount() != 0 {
		t.Fatalf("calls=%d errors=%d", calls.Load(), d.ErrorCount())
	}
}

func TestDispatcherNoRetry(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	_ = d.Enqueue(context.Background(), Job{Action: "broadcast", NoRetry: true, Run: func(context.Context) error {
		calls.Add(1)
		return &net.OpError{Op: "dial", Err: errors.New("refused")}
	}})
	d.Close()
	if calls.Load() != 1 || d.ErrorCount() != 1 {
		t.Fatalf("calls=%d errors=%d", calls.Load(), d.ErrorCount())
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	_ = d.Enqueue(context.Background(), Job{Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}})
	<-started
	_ = d.Enqueue(context.Background(), Job{Run: func(context.Context) error { return nil }})
	err := d.Enqueue(context.Background(), Job{Run: func(context.Context) error { return nil }})
	pending := d.Pending()
	close(release)
	d.Close()
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	if pending != 2 {
		t.Fatalf("pending after rejected enqueue = %d, want 2", pending)
	}
}

func TestPendingCountsRunningJob(t *testing.T) {
	d := NewDispatcher(Options{Workers: 4, QueueSize: 64})
	var low atomic.Bool
	for i := 0; i < 64; i++ {
		_ = d.Enqueue(context.Background(), Job{Run: func(context.Context) error {
			if d.Pending() < 1 {
				low.Store(true)
			}
			return nil
		}})
	}
	d.Close()
	if low.Load() {
		t.Fatal("Pending dropped below one while a job ran")
	}
	if d.Pending() != 0 {
		t.Fatalf("pending after Close = %d", d.Pending())
	}
}

func TestJobContextOutlivesCaller(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ctxErr atomic.Value
	_ = d.Enqueue(ctx, Job{Run: func(ctx context.Context) error {
		ctxErr.Store(ctx.Err() == nil)
		return nil
	}})
	d.Close()
	if ok, _ := ctxErr.Load().(bool); !ok {
		t.Fatal("job context should not inherit caller cancellation")
	}
}

func TestJobTimeoutOverridesMaxDuration(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxDuration: time.Millisecond})
	var left atomic.Int64
	_ = d.Enqueue(context.Background(), Job{Timeout: time.Hour, NoRetry: true, Run: func(ctx context.Context) error {
		deadline, _ := ctx.Deadline()
		left.Store(int64(time.Until(deadline)))
		return nil
	}})
	d.Close()
	if time.Duration(left.Load()) < time.Minute {
		t.Fatalf("deadline in %v, want about an hour", time.Duration(left.Load()))
	}
}

func TestRedactAndClassify(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123:ABC_def/sendMessage": EOF`)
	if got := redact(err); got != `Post "https://api.telegram.org/bot<redacted>/sendMessage": EOF` {
		t.Fatalf("redact = %s", got)
	}
	if classify(context.DeadlineExceeded) != "timeout" {
		t.Fatal("deadline should classify as timeout")
	}
	if classify(&net.OpError{Op: "dial", Err: errors.New("x")}) != "dial" {
		t.Fatal("dial error misclassified")
	}
}
