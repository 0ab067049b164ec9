package logger

import (
	"errors"
	"io"
	"sync"
)

const writerQueueSize = 512

// writeJob is either a line to emit or a flush barrier when ack is set.
type writeJob struct {
	line []byte
	ack  chan error
}

// asyncWriter serializes log lines from many goroutines onto its sinks.
type asyncWriter struct {
	jobs   chan writeJob
	done   chan struct{}
	closer sync.Once
	sinks  []io.Writer

	mu  sync.Mutex
	err error
}

func newAsyncWriter(sinks []io.Writer) *asyncWriter {
	w := &asyncWriter{
		jobs: make(chan writeJob, writerQueueSize),
		done: make(chan struct{}),
	}
	for _, s := range sinks {
		if s != nil {
			w.sinks = append(w.sinks, s)
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for job := range w.jobs {
		if job.ack != nil {
			job.ack <- w.firstErr()
			continue
		}
		for _, s := range w.sinks {
			if _, err := s.Write(job.line); err != nil {
				w.record(err)
			}
		}
	}
}

// Write queues a copy of p. It blocks when the queue is full rather than drop lines.
func (w *asyncWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if err := w.firstErr(); err != nil {
		return err
	}
	w.jobs <- writeJob{line: append([]byte(nil), p...)}
	return nil
}

// Flush returns once every line queued before the call has reached the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	w.jobs <- writeJob{ack: ack}
	return <-ack
}

// Close drains pending lines and stops the writer goroutine.
func (w *asyncWriter) Close() error {
	w.closer.Do(func() { close(w.jobs) })
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) record(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = errors.Join(w.err, err)
}

func (w *asyncWriter) firstErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
