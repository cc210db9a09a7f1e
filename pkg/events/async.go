package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const asyncLogPrefix = "events:async"

// ErrJournalBacklog is returned when the async recorder's buffer is full and
// the event was dropped.
var ErrJournalBacklog = errors.New("events: journal backlog full")

// AsyncRecorder queues events for a background worker that writes them to
// the wrapped recorder. Record never waits on the wrapped recorder: when the
// queue is full the event is dropped and counted.
type AsyncRecorder struct {
	next    Recorder
	timeout time.Duration
	queue   chan *MessageRecorded
	done    chan struct{}

	mu     sync.RWMutex
	closed bool

	dropped atomic.Int64
}

// NewAsyncRecorder starts a worker writing to next. buffer bounds the queue
// and timeout bounds each write; non-positive values mean 1024 and 5s.
func NewAsyncRecorder(next Recorder, buffer int, timeout time.Duration) *AsyncRecorder {
	if buffer <= 0 {
		buffer = 1024
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &AsyncRecorder{
		next:    next,
		timeout: timeout,
		queue:   make(chan *MessageRecorded, buffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues event. The caller's context is not passed on since the
// write outlives the request that produced it.
func (r *AsyncRecorder) Record(_ context.Context, event *MessageRecorded) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		return ErrJournalBacklog
	}
	select {
	case r.queue <- event:
		return nil
	default:
		r.dropped.Add(1)
		return ErrJournalBacklog
	}
}

// Dropped returns how many events were discarded.
func (r *AsyncRecorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting events and waits until the queue is written out.
func (r *AsyncRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for event := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.next.Record(ctx, event); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to record %s message: %v", asyncLogPrefix, event.Type, err))
		}
		cancel()
	}
}
