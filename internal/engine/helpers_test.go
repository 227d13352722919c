package engine

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/output"
	"github.com/Reality2byte/nanoc/internal/site"
	"github.com/Reality2byte/nanoc/internal/store"
)

type itemDef struct {
	id      string
	content string
	attrs   ir.IRObject
	layout  string
}

type layoutDef struct {
	id      string
	content string
	// params are the layout rule's filter params.
	params ir.IRObject
}

// siteDef describes a site. Every item gets one "default" rep that runs
// the template filter, then its layout if any, and writes "last" to the
// identifier with an .html extension.
type siteDef struct {
	config  ir.IRObject
	items   []itemDef
	layouts []layoutDef
}

func (d siteDef) input() Input {
	var items []*site.Item
	for _, def := range d.items {
		items = append(items, site.NewItem(def.id, []byte(def.content), def.attrs))
	}
	var layouts []*site.Layout
	for _, def := range d.layouts {
		layouts = append(layouts, site.NewLayout(def.id, []byte(def.content), nil))
	}
	s := site.New(d.config, items, layouts)

	seqs := map[site.Ref]*site.ActionSequence{}
	for i, item := range items {
		rep := site.NewItemRep(item, "default")
		s.Reps.Add(rep)

		actions := []site.Action{
			site.SnapshotAction{Names: []string{site.SnapshotRaw}},
			site.FilterAction{Name: "template"},
			site.SnapshotAction{Names: []string{site.SnapshotPre}},
		}
		if l := d.items[i].layout; l != "" {
			actions = append(actions, site.LayoutAction{Identifier: l})
		}
		actions = append(actions, site.SnapshotAction{
			Names: []string{site.SnapshotLast},
			Paths: []string{strings.TrimSuffix(item.Identifier, ".md") + ".html"},
		})
		seq := &site.ActionSequence{Rep: rep.Ref(), Actions: actions}
		rep.Paths = seq.Paths()
		seqs[rep.Ref()] = seq
	}
	for _, def := range d.layouts {
		seqs[site.LayoutRef(def.id)] = &site.ActionSequence{
			Rep:     site.LayoutRef(def.id),
			Actions: []site.Action{site.FilterAction{Name: "template", Params: def.params}},
		}
	}
	return Input{Site: s, ActionSequences: seqs}
}

// with returns a copy of d with the item id replaced by def, or def
// appended.
func (d siteDef) with(def itemDef) siteDef {
	out := d
	out.items = slices.Clone(d.items)
	for i, it := range out.items {
		if it.id == def.id {
			out.items[i] = def
			return out
		}
	}
	out.items = append(out.items, def)
	return out
}

func (d siteDef) without(id string) siteDef {
	out := d
	out.items = slices.DeleteFunc(slices.Clone(d.items), func(it itemDef) bool { return it.id == id })
	return out
}

func (d siteDef) withLayout(def layoutDef) siteDef {
	out := d
	out.layouts = slices.Clone(d.layouts)
	for i, l := range out.layouts {
		if l.id == def.id {
			out.layouts[i] = def
			return out
		}
	}
	out.layouts = append(out.layouts, def)
	return out
}

// testEnv is a store and an output destination shared by several runs.
type testEnv struct {
	t      *testing.T
	store  *store.Store
	output *output.Memory
	events []Event
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "nanoc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return &testEnv{t: t, store: st, output: output.NewMemory()}
}

func (e *testEnv) compiler(opts ...Option) *Compiler {
	e.events = nil
	opts = append([]Option{
		WithEventSink(EventSinkFunc(func(ev Event) { e.events = append(e.events, ev) })),
	}, opts...)
	return New(e.store, output.RepWriter{Dest: e.output}, opts...)
}

func (e *testEnv) compile(d siteDef, opts ...Option) (*Report, error) {
	return e.compiler(opts...).Compile(context.Background(), d.input())
}

func (e *testEnv) mustCompile(d siteDef, opts ...Option) *Report {
	e.t.Helper()
	report, err := e.compile(d, opts...)
	require.NoError(e.t, err)
	return report
}

func (e *testEnv) file(path string) string {
	e.t.Helper()
	b, ok := e.output.File(path)
	require.True(e.t, ok, "no output at %s", path)
	return string(b)
}

// repsWith returns the item identifiers of the events of type typ, in
// order.
func (e *testEnv) repsWith(typ EventType) []string {
	var out []string
	for _, ev := range e.events {
		if ev.Type == typ {
			out = append(out, ev.Rep.Identifier)
		}
	}
	return out
}

func refs(ids ...string) []site.Ref {
	out := make([]site.Ref, len(ids))
	for i, id := range ids {
		out[i] = site.RepRef(id, "default")
	}
	return out
}
