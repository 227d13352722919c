package listeners

import (
	"sync"

	"github.com/Reality2byte/nanoc/internal/engine"
)

// eventQueue is an unbounded thread-safe FIFO of events.
//
// Unbounded so the compiler never blocks on a slow sink. The signal
// channel coalesces wakeups and is closed on Close to release waiters.
type eventQueue struct {
	mu     sync.Mutex
	events []engine.Event
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]engine.Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event. It returns false once the queue is closed.
func (q *eventQueue) Enqueue(e engine.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.events = append(q.events, e)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (engine.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return engine.Event{}, false
	}
	e := q.events[0]
	// Drop the slot's references so errors held by old events can be collected.
	q.events[0] = engine.Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait signals that events may be available, or that the queue closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Drained reports whether the queue is closed and empty.
func (q *eventQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.events) == 0
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close stops accepting events and wakes waiters.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
