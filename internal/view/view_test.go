package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Reality2byte/nanoc/internal/content"
	"github.com/Reality2byte/nanoc/internal/deps"
	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/site"
)

type fixture struct {
	site  *site.Site
	repo  *content.Repo
	store *deps.Store
	ctx   *Context
	foo   *site.ItemRep
	bar   *site.ItemRep
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fooItem := site.NewItem("/foo.md", []byte("foo"), ir.IRObject{"title": ir.IRString("Foo"), "kind": ir.IRString("article")})
	barItem := site.NewItem("/bar.md", []byte("bar"), ir.IRObject{"kind": ir.IRString("page")})
	s := site.New(ir.IRObject{"base_url": ir.IRString("https://x")}, []*site.Item{fooItem, barItem},
		[]*site.Layout{site.NewLayout("/default.html", []byte("L"), nil)})

	foo := site.NewItemRep(fooItem, "default")
	foo.Paths[site.SnapshotLast] = []string{"/foo.html"}
	bar := site.NewItemRep(barItem, "default")
	s.Reps.Add(foo)
	s.Reps.Add(bar)

	seqs := map[site.Ref]*site.ActionSequence{
		foo.Ref(): {Rep: foo.Ref(), Actions: []site.Action{
			site.SnapshotAction{Names: []string{site.SnapshotRaw}},
			site.SnapshotAction{Names: []string{site.SnapshotPre}},
			site.SnapshotAction{Names: []string{site.SnapshotLast}},
		}},
		bar.Ref(): {Rep: bar.Ref(), Actions: []site.Action{
			site.SnapshotAction{Names: []string{site.SnapshotLast}},
		}},
	}

	store := deps.Load(s, nil)
	repo := content.NewRepo()
	return &fixture{
		site:  s,
		repo:  repo,
		store: store,
		ctx: &Context{
			Site:            s,
			Repo:            repo,
			ActionSequences: seqs,
			Tracker:         deps.NewTracker(store, bar.Ref()),
		},
		foo: foo,
		bar: bar,
	}
}

func (f *fixture) edgeFrom(from site.Ref) (deps.Props, bool) {
	for _, d := range f.store.DependenciesCausingOutdatednessOf(f.bar.Ref()) {
		if d.From == from {
			return d.Props, true
		}
	}
	return deps.Props{}, false
}

func TestItemReadsRecordEdges(t *testing.T) {
	f := newFixture(t)
	a := f.ctx.Assigns(f.bar)

	foo, err := a.Items.Get("/foo.md")
	require.NoError(t, err)
	require.NotNil(t, foo)

	assert.Equal(t, "Foo", foo.Attr("title"))
	assert.Equal(t, "foo", foo.RawContent())

	props, ok := f.edgeFrom(site.ItemRef("/foo.md"))
	require.True(t, ok)
	assert.Equal(t, []string{"title"}, props.AttributeKeys)
	assert.True(t, props.RawContent)
	assert.False(t, props.CompiledContent)

	coll, ok := f.edgeFrom(site.ItemCollectionRef())
	require.True(t, ok)
	assert.Equal(t, []string{"/foo.md"}, coll.RawContentPatterns)
}

func TestCompiledContentSuspendsUntilCompiled(t *testing.T) {
	f := newFixture(t)
	a := f.ctx.Assigns(f.bar)
	foo, err := a.Items.Get("/foo.md")
	require.NoError(t, err)

	_, err = foo.CompiledContent()
	ue, ok := AsUnmetDependency(err)
	require.True(t, ok)
	assert.Equal(t, f.foo.Ref(), ue.Rep)
	assert.Equal(t, site.SnapshotPre, ue.Snapshot)

	props, ok := f.edgeFrom(site.ItemRef("/foo.md"))
	require.True(t, ok, "edge must be recorded before suspending")
	assert.True(t, props.CompiledContent)

	f.repo.SetCurrent(f.foo.Ref(), []byte("<p>foo</p>"))
	f.repo.TakeSnapshot(f.foo.Ref(), site.SnapshotPre)

	got, err := foo.CompiledContent()
	require.NoError(t, err)
	assert.Equal(t, "<p>foo</p>", got)
}

func TestLastSnapshotRequiresCompiledRep(t *testing.T) {
	f := newFixture(t)
	rep := f.ctx.Assigns(f.bar).Item.Rep("default")
	require.NotNil(t, rep)
	fooRep := f.ctx.rep(f.foo)

	f.repo.SetCurrent(f.foo.Ref(), []byte("partial"))
	f.repo.TakeSnapshot(f.foo.Ref(), site.SnapshotLast)

	_, err := fooRep.Snapshot(site.SnapshotLast)
	_, suspended := AsUnmetDependency(err)
	assert.True(t, suspended)

	f.foo.MarkCompiled()
	got, err := fooRep.Snapshot(site.SnapshotLast)
	require.NoError(t, err)
	assert.Equal(t, "partial", got)
}

func TestNoSuchSnapshot(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctx.rep(f.foo).Snapshot("nope")

	var nss *NoSuchSnapshotError
	require.ErrorAs(t, err, &nss)
	_, suspended := AsUnmetDependency(err)
	assert.False(t, suspended)
}

func TestWhereRecordsAttributePair(t *testing.T) {
	f := newFixture(t)
	items, err := f.ctx.Assigns(f.bar).Items.Where("kind", "article")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "/foo.md", items[0].Identifier())

	coll, ok := f.edgeFrom(site.ItemCollectionRef())
	require.True(t, ok)
	assert.Equal(t, []deps.AttributePair{{Key: "kind", Value: ir.IRString("article")}}, coll.AttributePairs)
}

func TestAllAndConfig(t *testing.T) {
	f := newFixture(t)
	a := f.ctx.Assigns(f.bar)

	assert.Len(t, a.Items.All(), 2)
	assert.Equal(t, "https://x", a.Config.Get("base_url"))

	coll, ok := f.edgeFrom(site.ItemCollectionRef())
	require.True(t, ok)
	assert.True(t, coll.RawContent)

	cfg, ok := f.edgeFrom(site.ConfigRef())
	require.True(t, ok)
	assert.Equal(t, []string{"base_url"}, cfg.AttributeKeys)
}

func TestOwnReadsAreNotEdges(t *testing.T) {
	f := newFixture(t)
	a := f.ctx.Assigns(f.bar)
	_ = a.Item.Attr("kind")

	assert.Empty(t, f.store.Edges())
}

func TestLayoutCollectionGet(t *testing.T) {
	f := newFixture(t)
	l, err := f.ctx.Assigns(f.bar).Layouts.Get("/default.*")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, "L", l.RawContent())

	_, ok := f.edgeFrom(site.LayoutRef("/default.html"))
	assert.True(t, ok)
}

func TestPath(t *testing.T) {
	f := newFixture(t)
	foo, err := f.ctx.Assigns(f.bar).Items.Get("/foo.md")
	require.NoError(t, err)
	assert.Equal(t, "/foo.html", foo.Path())
}
