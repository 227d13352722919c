// Package listeners provides sinks for compiler events: fan-out, async
// delivery, recording, logging and timing.
package listeners

import (
	"log/slog"
	"sync"

	"github.com/Reality2byte/nanoc/internal/engine"
)

// Aggregate forwards every event to each sink in order.
type Aggregate []engine.EventSink

// Notify implements engine.EventSink.
func (a Aggregate) Notify(e engine.Event) {
	for _, s := range a {
		s.Notify(e)
	}
}

// Async delivers events to a sink from its own goroutine, in order. Close
// must be called to flush pending events.
type Async struct {
	sink  engine.EventSink
	queue *eventQueue
	done  chan struct{}
}

// NewAsync starts delivering to sink.
func NewAsync(sink engine.EventSink) *Async {
	a := &Async{sink: sink, queue: newEventQueue(), done: make(chan struct{})}
	go a.run()
	return a
}

// Notify implements engine.EventSink. Events sent after Close are dropped.
func (a *Async) Notify(e engine.Event) {
	a.queue.Enqueue(e)
}

// Close waits until every queued event has been delivered.
func (a *Async) Close() {
	a.queue.Close()
	<-a.done
}

func (a *Async) run() {
	defer close(a.done)
	for {
		for {
			e, ok := a.queue.TryDequeue()
			if !ok {
				break
			}
			a.sink.Notify(e)
		}
		if a.queue.Drained() {
			return
		}
		<-a.queue.Wait()
	}
}

// Recorder keeps every event. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []engine.Event
}

// Notify implements engine.EventSink.
func (r *Recorder) Notify(e engine.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns the recorded events.
func (r *Recorder) Events() []engine.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]engine.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Trace renders the recorded events one per line, without times.
func (r *Recorder) Trace(filter func(engine.Event) bool) []string {
	var out []string
	for _, e := range r.Events() {
		if filter == nil || filter(e) {
			out = append(out, e.String())
		}
	}
	return out
}

// Reset drops the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Logging mirrors events into a logger at Debug. Writes are logged at
// Info since they change the output.
type Logging struct {
	Logger *slog.Logger
}

// Notify implements engine.EventSink.
func (l Logging) Notify(e engine.Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch e.Type {
	case engine.EventRepWriteEnded:
		logger.Info(string(e.Action), "path", e.Path, "rep", e.Rep)
	case engine.EventCompilationFailed:
		logger.Warn("compilation failed", "rep", e.Rep, "error", e.Err)
	default:
		attrs := []any{"seq", e.Seq}
		if !e.Rep.IsNone() {
			attrs = append(attrs, "rep", e.Rep)
		}
		if e.Stage != "" {
			attrs = append(attrs, "stage", e.Stage)
		}
		if e.Phase != "" {
			attrs = append(attrs, "phase", e.Phase)
		}
		if e.Filter != "" {
			attrs = append(attrs, "filter", e.Filter)
		}
		if !e.Blocker.IsNone() {
			attrs = append(attrs, "blocker", e.Blocker)
		}
		logger.Debug(string(e.Type), attrs...)
	}
}
