package engine

import (
	"fmt"
	"time"

	"github.com/Reality2byte/nanoc/internal/output"
	"github.com/Reality2byte/nanoc/internal/site"
)

// EventType names an observation event.
type EventType string

const (
	EventStageStarted         EventType = "stage_started"
	EventStageEnded           EventType = "stage_ended"
	EventCompilationStarted   EventType = "compilation_started"
	EventCompilationEnded     EventType = "compilation_ended"
	EventCompilationSuspended EventType = "compilation_suspended"
	EventCompilationFailed    EventType = "compilation_failed"
	EventCachedContentUsed    EventType = "cached_content_used"
	EventRepWriteEnqueued     EventType = "rep_write_enqueued"
	EventRepWriteEnded        EventType = "rep_write_ended"
	EventPhaseStarted         EventType = "phase_started"
	EventPhaseYielded         EventType = "phase_yielded"
	EventPhaseResumed         EventType = "phase_resumed"
	EventPhaseEnded           EventType = "phase_ended"
	EventPhaseAborted         EventType = "phase_aborted"
	EventFilteringStarted     EventType = "filtering_started"
	EventFilteringEnded       EventType = "filtering_ended"
)

// Event is one observation of a run. Fields not relevant to Type are
// zero.
type Event struct {
	Seq  int64
	Time time.Time
	Type EventType
	Rep  site.Ref

	// Stage is set for stage events.
	Stage string
	// Phase is set for phase events.
	Phase string
	// Filter is set for filtering events.
	Filter string
	// Blocker is the rep a suspended compilation waits on.
	Blocker site.Ref
	// Path and Action are set for rep_write_ended.
	Path   string
	Action output.Action
	// Err is set for compilation_failed.
	Err error
}

// String renders the event without its time, for traces and logs.
func (e Event) String() string {
	s := fmt.Sprintf("%04d %s", e.Seq, e.Type)
	if e.Stage != "" {
		s += " " + e.Stage
	}
	if e.Phase != "" {
		s += " " + e.Phase
	}
	if !e.Rep.IsNone() {
		s += " " + e.Rep.String()
	}
	if e.Filter != "" {
		s += " filter=" + e.Filter
	}
	if !e.Blocker.IsNone() {
		s += " blocker=" + e.Blocker.String()
	}
	if e.Path != "" {
		s += fmt.Sprintf(" %s %s", e.Action, e.Path)
	}
	if e.Err != nil {
		s += " err=" + e.Err.Error()
	}
	return s
}

// EventSink receives observation events. Notify must not block the
// compiler; sinks doing slow work queue events and process them elsewhere.
type EventSink interface {
	Notify(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

// Notify implements EventSink.
func (f EventSinkFunc) Notify(e Event) { f(e) }

type nopSink struct{}

func (nopSink) Notify(Event) {}

// notifier stamps events with seq and time before handing them to the
// sink.
type notifier struct {
	sink  EventSink
	clock *Clock
	now   func() time.Time
}

func (n *notifier) notify(e Event) {
	e.Seq = n.clock.Next()
	e.Time = n.now()
	n.sink.Notify(e)
}
