package engine

import (
	"context"

	"github.com/Reality2byte/nanoc/internal/content"
	"github.com/Reality2byte/nanoc/internal/deps"
	"github.com/Reality2byte/nanoc/internal/outdatedness"
	"github.com/Reality2byte/nanoc/internal/output"
	"github.com/Reality2byte/nanoc/internal/site"
)

// Phase names, outermost first.
const (
	PhaseNotify      = "notify"
	PhaseMarkDone    = "mark_done"
	PhaseWrite       = "write"
	PhaseCache       = "cache"
	PhaseRecalculate = "recalculate"
)

// RepWriter hands the final snapshots of a rep to the output destination.
// Implemented by output.RepWriter.
type RepWriter interface {
	WriteRep(ctx context.Context, rep *site.ItemRep, snapshots map[string][]byte) ([]output.Written, error)
}

// phaseRunner is the body of a phase. next runs the wrapped phase.
type phaseRunner interface {
	run(ctx context.Context, rep *site.ItemRep, outdated bool, next func() Result) Result
}

// Phase is one layer of the per-rep compilation stack.
//
// Each call emits phase_started, then phase_yielded and phase_resumed
// around the wrapped phase, then phase_ended. A phase whose result is not
// Completed emits phase_aborted instead of phase_ended.
type Phase struct {
	name    string
	runner  phaseRunner
	wrapped *Phase
	events  *notifier
}

// Name returns the phase name.
func (p *Phase) Name() string { return p.name }

// Call runs the phase for rep.
func (p *Phase) Call(ctx context.Context, rep *site.ItemRep, outdated bool) Result {
	ref := rep.Ref()
	p.events.notify(Event{Type: EventPhaseStarted, Phase: p.name, Rep: ref})

	res := p.runner.run(ctx, rep, outdated, func() Result {
		if p.wrapped == nil {
			return completed()
		}
		p.events.notify(Event{Type: EventPhaseYielded, Phase: p.name, Rep: ref})
		r := p.wrapped.Call(ctx, rep, outdated)
		if r.Outcome == Completed {
			p.events.notify(Event{Type: EventPhaseResumed, Phase: p.name, Rep: ref})
		}
		return r
	})

	if res.Outcome == Completed {
		p.events.notify(Event{Type: EventPhaseEnded, Phase: p.name, Rep: ref})
	} else {
		p.events.notify(Event{Type: EventPhaseAborted, Phase: p.name, Rep: ref})
	}
	return res
}

// notifyPhase reports the start and end of each compilation attempt.
type notifyPhase struct {
	events *notifier
}

func (n notifyPhase) run(_ context.Context, rep *site.ItemRep, _ bool, next func() Result) Result {
	ref := rep.Ref()
	n.events.notify(Event{Type: EventCompilationStarted, Rep: ref})
	res := next()
	switch res.Outcome {
	case Completed:
		n.events.notify(Event{Type: EventCompilationEnded, Rep: ref})
	case Suspended:
		n.events.notify(Event{Type: EventCompilationSuspended, Rep: ref, Blocker: res.Blocker})
	case Failed:
		n.events.notify(Event{Type: EventCompilationFailed, Rep: ref, Err: res.Err})
	}
	return res
}

// markDonePhase removes a compiled rep from the outdatedness store.
type markDonePhase struct {
	outdated *outdatedness.Store
}

func (m markDonePhase) run(_ context.Context, rep *site.ItemRep, _ bool, next func() Result) Result {
	res := next()
	if res.Outcome == Completed {
		m.outdated.Remove(rep.Ref())
	}
	return res
}

// writePhase writes outdated reps once they have compiled.
type writePhase struct {
	writer  RepWriter
	repo    *content.Repo
	events  *notifier
	written map[site.Ref]bool
}

func (w *writePhase) run(ctx context.Context, rep *site.ItemRep, outdated bool, next func() Result) Result {
	res := next()
	ref := rep.Ref()
	if res.Outcome != Completed || !outdated || w.written[ref] {
		return res
	}
	w.written[ref] = true

	// Observers may react to the enqueue; it must precede the bytes.
	w.events.notify(Event{Type: EventRepWriteEnqueued, Rep: ref})
	written, err := w.writer.WriteRep(ctx, rep, w.repo.GetAll(ref))
	for _, wr := range written {
		w.events.notify(Event{Type: EventRepWriteEnded, Rep: ref, Path: wr.Path, Action: wr.Action})
	}
	if err != nil {
		return failed(err)
	}
	return res
}

// cachePhase restores unchanged reps from the compiled-content cache and
// stores freshly compiled ones.
type cachePhase struct {
	cache  *content.Cache
	repo   *content.Repo
	events *notifier
}

func (c cachePhase) run(ctx context.Context, rep *site.ItemRep, outdated bool, next func() Result) Result {
	ref := rep.Ref()
	if !outdated {
		ok, err := c.cache.FullCacheAvailable(ref)
		if err != nil {
			return failed(err)
		}
		if ok {
			snapshots, err := c.cache.Get(ctx, ref)
			if err != nil {
				return failed(err)
			}
			c.events.notify(Event{Type: EventCachedContentUsed, Rep: ref})
			c.repo.SetAll(ref, snapshots)
			rep.MarkCompiled()
			return completed()
		}
	}

	res := next()
	if res.Outcome != Completed {
		return res
	}
	rep.MarkCompiled()
	c.cache.Set(ref, c.repo.GetAll(ref))
	return res
}

// recalculatePhase runs the action sequence. The first recompilation of
// an item in a run drops the dependencies recorded for it by earlier
// runs, so the edges recorded now replace them. Reps recompiled only on a
// cache miss are replaced too, which relies on the outdated dependent that
// asked for them staying in the outdatedness store until they finish.
type recalculatePhase struct {
	executor  *Executor
	deps      *deps.Store
	forgotten map[string]bool
}

func (r recalculatePhase) run(ctx context.Context, rep *site.ItemRep, _ bool, _ func() Result) Result {
	item := rep.Item.Identifier
	if !r.forgotten[item] {
		r.deps.ForgetDependenciesFor(site.ItemRef(item))
		r.forgotten[item] = true
	}
	return r.executor.Execute(ctx, rep, deps.NewTracker(r.deps, rep.Ref()))
}

// phaseStack holds what the phases share.
type phaseStack struct {
	executor  *Executor
	deps      *deps.Store
	forgotten map[string]bool
	cache     *content.Cache
	repo      *content.Repo
	outdated  *outdatedness.Store
	writer    RepWriter
	events    *notifier
}

// build returns the outermost phase.
func (s phaseStack) build() *Phase {
	recalculate := &Phase{
		name:   PhaseRecalculate,
		runner: recalculatePhase{executor: s.executor, deps: s.deps, forgotten: s.forgotten},
		events: s.events,
	}
	cache := &Phase{
		name:    PhaseCache,
		runner:  cachePhase{cache: s.cache, repo: s.repo, events: s.events},
		wrapped: recalculate,
		events:  s.events,
	}
	write := &Phase{
		name:    PhaseWrite,
		runner:  &writePhase{writer: s.writer, repo: s.repo, events: s.events, written: map[site.Ref]bool{}},
		wrapped: cache,
		events:  s.events,
	}
	markDone := &Phase{
		name:    PhaseMarkDone,
		runner:  markDonePhase{outdated: s.outdated},
		wrapped: write,
		events:  s.events,
	}
	return &Phase{
		name:    PhaseNotify,
		runner:  notifyPhase{events: s.events},
		wrapped: markDone,
		events:  s.events,
	}
}
