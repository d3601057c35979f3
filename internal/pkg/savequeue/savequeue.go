// Package savequeue serializes writes to the local store. The underlying
// store must not see concurrent commit calls from multiple tasks, so every
// mutating path in the application funnels its write through one Queue: a
// single consumer goroutine drains a channel of write requests and runs them
// one at a time. Mutual exclusion is the only guarantee; requests are served
// roughly in arrival order but no strict FIFO ordering is promised.
package savequeue

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// WriteFn is one write transaction against the local store.
type WriteFn func(ctx context.Context) error

type request struct {
	ctx  context.Context
	fn   WriteFn
	done chan error
}

// Queue is the exclusive-access gate in front of the local store.
type Queue struct {
	requests chan request
	pending  atomic.Int64
	closed   atomic.Bool
	stopped  chan struct{}
	logger   zerolog.Logger
}

// New creates a queue with the given request buffer. Start must be called
// before the first Save.
func New(buffer int, logger zerolog.Logger) *Queue {
	if buffer <= 0 {
		buffer = 64
	}
	return &Queue{
		requests: make(chan request, buffer),
		stopped:  make(chan struct{}),
		logger:   logger.With().Str("component", "savequeue").Logger(),
	}
}

// Start launches the consumer goroutine. It drains requests until ctx is
// cancelled, then rejects the remainder so no caller is left waiting.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		defer close(q.stopped)
		for {
			select {
			case <-ctx.Done():
				q.closed.Store(true)
				q.drainRejected()
				return
			case req := <-q.requests:
				q.execute(req)
			}
		}
	}()
}

// execute runs one write. The error always reaches the waiting caller and the
// pending count always drops, even when the write panics: the gate must never
// stay busy after a failed commit.
func (q *Queue) execute(req request) {
	defer q.pending.Add(-1)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("write panicked: %v", r)
				q.logger.Error().Interface("panic", r).Msg("Recovered panic inside write transaction")
			}
		}()
		if req.ctx.Err() != nil {
			err = req.ctx.Err()
			return
		}
		err = req.fn(req.ctx)
	}()

	req.done <- err
}

func (q *Queue) drainRejected() {
	for {
		select {
		case req := <-q.requests:
			q.pending.Add(-1)
			req.done <- context.Canceled
		default:
			return
		}
	}
}

// Save submits a write transaction and blocks until it ran or the context is
// cancelled. Errors from the write propagate to the caller after the gate is
// released.
func (q *Queue) Save(ctx context.Context, fn WriteFn) error {
	if q.closed.Load() {
		return context.Canceled
	}

	req := request{ctx: ctx, fn: fn, done: make(chan error, 1)}
	q.pending.Add(1)

	select {
	case q.requests <- req:
	case <-ctx.Done():
		q.pending.Add(-1)
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-q.stopped:
		// The consumer rejects queued requests on shutdown; prefer the
		// rejection result if it already arrived.
		select {
		case err := <-req.done:
			return err
		default:
			return context.Canceled
		}
	}
}

// Pending returns the number of writes submitted but not yet finished.
func (q *Queue) Pending() int64 {
	return q.pending.Load()
}
