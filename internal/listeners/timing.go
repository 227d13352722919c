package listeners

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/Reality2byte/nanoc/internal/engine"
	"github.com/Reality2byte/nanoc/internal/site"
)

// TimingRecorder measures filters, phases and stages from event times.
type TimingRecorder struct {
	mu      sync.Mutex
	started map[string]time.Time
	filters map[string][]time.Duration
	phases  map[string][]time.Duration
	stages  map[string][]time.Duration
}

// NewTimingRecorder creates an empty recorder.
func NewTimingRecorder() *TimingRecorder {
	return &TimingRecorder{
		started: map[string]time.Time{},
		filters: map[string][]time.Duration{},
		phases:  map[string][]time.Duration{},
		stages:  map[string][]time.Duration{},
	}
}

// Notify implements engine.EventSink.
func (t *TimingRecorder) Notify(e engine.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e.Type {
	case engine.EventFilteringStarted:
		t.started[key("filter", e.Rep, e.Filter)] = e.Time
	case engine.EventFilteringEnded:
		t.stop(t.filters, key("filter", e.Rep, e.Filter), e.Filter, e.Time)
	case engine.EventPhaseStarted:
		t.started[key("phase", e.Rep, e.Phase)] = e.Time
	case engine.EventPhaseEnded, engine.EventPhaseAborted:
		t.stop(t.phases, key("phase", e.Rep, e.Phase), e.Phase, e.Time)
	case engine.EventStageStarted:
		t.started[key("stage", site.None, e.Stage)] = e.Time
	case engine.EventStageEnded:
		t.stop(t.stages, key("stage", site.None, e.Stage), e.Stage, e.Time)
	}
}

func (t *TimingRecorder) stop(into map[string][]time.Duration, k, name string, at time.Time) {
	start, ok := t.started[k]
	if !ok {
		return
	}
	delete(t.started, k)
	into[name] = append(into[name], at.Sub(start))
}

func key(kind string, rep site.Ref, name string) string {
	return kind + "\x00" + rep.String() + "\x00" + name
}

// Stats summarizes the durations of one filter, phase or stage.
type Stats struct {
	Name   string
	Count  int
	Min    time.Duration
	Median time.Duration
	Max    time.Duration
	Total  time.Duration
}

func summarize(m map[string][]time.Duration) []Stats {
	var out []Stats
	for name, ds := range m {
		sorted := slices.Clone(ds)
		slices.Sort(sorted)
		s := Stats{Name: name, Count: len(sorted), Min: sorted[0], Max: sorted[len(sorted)-1]}
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			s.Median = (sorted[mid-1] + sorted[mid]) / 2
		} else {
			s.Median = sorted[mid]
		}
		for _, d := range sorted {
			s.Total += d
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Stats) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Filters returns per-filter statistics, by name.
func (t *TimingRecorder) Filters() []Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return summarize(t.filters)
}

// Phases returns per-phase statistics, by name.
func (t *TimingRecorder) Phases() []Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return summarize(t.phases)
}

// Stages returns per-stage statistics, by name.
func (t *TimingRecorder) Stages() []Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return summarize(t.stages)
}

// WriteSummary prints the filter, phase and stage tables to w.
func (t *TimingRecorder) WriteSummary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, section := range []struct {
		title string
		stats []Stats
	}{
		{"filter", t.Filters()},
		{"phase", t.Phases()},
		{"stage", t.Stages()},
	} {
		if len(section.stats) == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\tcount\tmin\tmedian\tmax\ttotal\t\n", section.title)
		for _, s := range section.stats {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t\n", s.Name, s.Count,
				round(s.Min), round(s.Median), round(s.Max), round(s.Total))
		}
		fmt.Fprintln(tw, "\t\t\t\t\t\t")
	}
	return tw.Flush()
}

func round(d time.Duration) string {
	return d.Round(10 * time.Microsecond).String()
}
