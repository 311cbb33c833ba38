package event

import (
	"context"
	"sync/atomic"
)

// DefaultCapacity matches the depth of the recorder's message queue.
const DefaultCapacity = 32

// Queue is a bounded FIFO of events. TryPut never blocks and is the only
// method the timer callback may use; overflow is dropped and counted.
type Queue struct {
	ch      chan Event
	dropped atomic.Uint64
}

// NewQueue returns a queue holding up to capacity events. Capacities below
// one are raised to one.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Event, capacity)}
}

// TryPut enqueues ev if there is room and reports whether it was accepted.
func (q *Queue) TryPut(ev Event) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Put blocks until ev is enqueued or ctx is done.
func (q *Queue) Put(ctx context.Context, ev Event) error {
	select {
	case q.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get blocks until an event is available or ctx is done.
func (q *Queue) Get(ctx context.Context) (Event, error) {
	select {
	case ev := <-q.ch:
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryGet returns the next event without waiting.
func (q *Queue) TryGet() (Event, bool) {
	select {
	case ev := <-q.ch:
		return ev, true
	default:
		return nil, false
	}
}

// Dropped returns how many TryPut calls found the queue full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Len returns the number of queued events.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return cap(q.ch) }
