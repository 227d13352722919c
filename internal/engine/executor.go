package engine

import (
	"context"
	"fmt"
	"maps"

	"github.com/Reality2byte/nanoc/internal/content"
	"github.com/Reality2byte/nanoc/internal/deps"
	"github.com/Reality2byte/nanoc/internal/filters"
	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/site"
	"github.com/Reality2byte/nanoc/internal/view"
)

// Executor runs the action sequence of a rep against the content repo.
//
// Execution resumes where the previous attempt stopped: the repo counts
// the actions already done for each rep.
type Executor struct {
	site    *site.Site
	repo    *content.Repo
	seqs    map[site.Ref]*site.ActionSequence
	filters *filters.Registry
	events  *notifier
}

// NewExecutor creates an executor. seqs holds the sequence of every rep
// and the filter sequence of every layout.
func NewExecutor(s *site.Site, repo *content.Repo, seqs map[site.Ref]*site.ActionSequence, reg *filters.Registry, events *notifier) *Executor {
	return &Executor{site: s, repo: repo, seqs: seqs, filters: reg, events: events}
}

// Execute runs the pending actions of rep, recording every read onto the
// tracker.
func (e *Executor) Execute(ctx context.Context, rep *site.ItemRep, tracker *deps.Tracker) Result {
	ref := rep.Ref()
	seq, ok := e.seqs[ref]
	if !ok {
		return failed(site.Inconsistency("no action sequence for %s", ref))
	}

	if _, ok := e.repo.GetCurrent(ref); !ok {
		e.repo.SetCurrent(ref, rep.Item.Content)
	}

	vc := &view.Context{
		Site:            e.site,
		Repo:            e.repo,
		ActionSequences: e.seqs,
		Tracker:         tracker,
	}

	for i := e.repo.Executed(ref); i < seq.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return failed(err)
		}

		var err error
		switch a := seq.Actions[i].(type) {
		case site.FilterAction:
			err = e.filter(vc, rep, a)
		case site.LayoutAction:
			err = e.layout(vc, rep, a)
		case site.SnapshotAction:
			for _, name := range a.Names {
				e.repo.TakeSnapshot(ref, name)
			}
		default:
			return failed(site.Inconsistency("unknown action %v", a))
		}

		if err != nil {
			if ue, ok := view.AsUnmetDependency(err); ok {
				return suspended(ue.Rep, ue.Snapshot)
			}
			return failed(err)
		}
		e.repo.Advance(ref)
	}

	return completed()
}

func (e *Executor) filter(vc *view.Context, rep *site.ItemRep, a site.FilterAction) error {
	ref := rep.Ref()
	f, err := e.filters.Get(a.Name)
	if err != nil {
		return err
	}

	current, _ := e.repo.GetCurrent(ref)
	out, err := e.run(ref, a.Name, f, current, a.Params, vc.Assigns(rep))
	if err != nil {
		return fmt.Errorf("filter %s: %w", a.Name, err)
	}
	e.repo.SetCurrent(ref, out)
	return nil
}

func (e *Executor) layout(vc *view.Context, rep *site.ItemRep, a site.LayoutAction) error {
	ref := rep.Ref()
	layout, err := e.findLayout(a.Identifier)
	if err != nil {
		return err
	}

	// The layout's filter and params come from the rules, which are
	// checksummed into the layout's action sequence. Recording a compiled
	// content read makes a rules change reach the reps using the layout.
	vc.Tracker.Bounce(layout.Ref(), deps.Props{RawContent: true, CompiledContent: true})

	lf, err := e.layoutFilter(layout)
	if err != nil {
		return err
	}
	f, err := e.filters.Get(lf.Name)
	if err != nil {
		return err
	}

	params := maps.Clone(lf.Params)
	if params == nil {
		params = ir.IRObject{}
	}
	maps.Copy(params, a.Params)

	current, _ := e.repo.GetCurrent(ref)
	assigns := vc.Assigns(rep)
	assigns.Layout = vc.Layout(layout)
	assigns.Content = string(current)

	out, err := e.run(ref, lf.Name, f, layout.Content, params, assigns)
	if err != nil {
		return fmt.Errorf("layout %s: %w", layout.Identifier, err)
	}
	e.repo.SetCurrent(ref, out)
	return nil
}

func (e *Executor) run(ref site.Ref, name string, f filters.Filter, src []byte, params ir.IRObject, a *view.Assigns) ([]byte, error) {
	e.events.notify(Event{Type: EventFilteringStarted, Rep: ref, Filter: name})
	out, err := f.Run(src, params, a)
	e.events.notify(Event{Type: EventFilteringEnded, Rep: ref, Filter: name})
	return out, err
}

// findLayout resolves an identifier or pattern to exactly one layout.
func (e *Executor) findLayout(identifier string) (*site.Layout, error) {
	if l, ok := e.site.Layouts.Get(identifier); ok {
		return l, nil
	}
	p, err := site.ParsePattern(identifier)
	if err != nil {
		return nil, err
	}
	found := e.site.Layouts.Find(p)
	if len(found) == 0 {
		return nil, &site.UnknownObjectError{Ref: site.LayoutRef(identifier)}
	}
	return found[0], nil
}

func (e *Executor) layoutFilter(layout *site.Layout) (site.FilterAction, error) {
	seq, ok := e.seqs[layout.Ref()]
	if !ok || seq.Len() == 0 {
		return site.FilterAction{}, fmt.Errorf("no layout rule matches %s", layout.Identifier)
	}
	fa, ok := seq.Actions[0].(site.FilterAction)
	if !ok {
		return site.FilterAction{}, site.Inconsistency("layout %s has action %v, want a filter", layout.Identifier, seq.Actions[0])
	}
	return fa, nil
}
