package outdatedness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Reality2byte/nanoc/internal/checksums"
	"github.com/Reality2byte/nanoc/internal/deps"
	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/site"
)

type doc struct {
	id      string
	content string
	attrs   ir.IRObject
}

// world is the object graph of one run.
type world struct {
	site *site.Site
	seqs map[site.Ref]*site.ActionSequence
}

func newWorld(config ir.IRObject, items ...doc) *world {
	var its []*site.Item
	for _, d := range items {
		its = append(its, site.NewItem(d.id, []byte(d.content), d.attrs))
	}
	layout := site.NewLayout("/default.html", []byte("<%= yield %>"), nil)
	s := site.New(config, its, []*site.Layout{layout})

	w := &world{site: s, seqs: map[site.Ref]*site.ActionSequence{}}
	for _, item := range its {
		rep := site.NewItemRep(item, "default")
		s.Reps.Add(rep)
		w.seqs[rep.Ref()] = &site.ActionSequence{
			Rep:     rep.Ref(),
			Actions: []site.Action{site.SnapshotAction{Names: []string{site.SnapshotLast}}},
		}
	}
	w.seqs[layout.Ref()] = &site.ActionSequence{
		Rep:     layout.Ref(),
		Actions: []site.Action{site.FilterAction{Name: "template"}},
	}
	return w
}

// previous is what a finished run leaves behind.
type previous struct {
	records []checksums.Record
	graph   deps.Snapshot
	seqSums map[site.Ref]string
}

func finish(t *testing.T, w *world, edges ...deps.Dependency) *previous {
	t.Helper()
	records, err := checksums.NewCollection(ir.Checksummer{}, w.site).Records()
	require.NoError(t, err)

	store := deps.Load(w.site, nil)
	for _, e := range edges {
		store.Record(e.From, e.To, e.Props)
	}

	sums := map[site.Ref]string{}
	for ref, seq := range w.seqs {
		sum, err := seq.Checksum(ir.Checksummer{})
		require.NoError(t, err)
		sums[ref] = sum
	}
	return &previous{records: records, graph: store.Snapshot(), seqSums: sums}
}

func check(t *testing.T, w *world, prev *previous) *Result {
	t.Helper()
	result, err := runCheck(w, prev)
	require.NoError(t, err)
	return result
}

func runCheck(w *world, prev *previous) (*Result, error) {
	in := Inputs{
		Site:                w.site,
		Checksums:           checksums.NewCollection(ir.Checksummer{}, w.site),
		ChecksumStore:       checksums.NewStore(nil),
		Dependencies:        deps.Load(w.site, nil),
		ActionSequenceStore: checksums.NewActionSequenceStore(nil),
		ActionSequences:     w.seqs,
	}
	if prev != nil {
		in.ChecksumStore = checksums.NewStore(prev.records)
		in.Dependencies = deps.Load(w.site, &prev.graph)
		in.ActionSequenceStore = checksums.NewActionSequenceStore(prev.seqSums)
	}
	return NewChecker(in).Run()
}

func edge(from site.Ref, to string, props deps.Props) deps.Dependency {
	return deps.Dependency{From: from, To: site.ItemRef(to), Props: props}
}

func rep(id string) site.Ref { return site.RepRef(id, "default") }

func TestFirstRunEverythingAdded(t *testing.T) {
	w := newWorld(nil, doc{id: "/foo.md", content: "foo"})

	result := check(t, w, nil)

	assert.Equal(t, []string{"DocumentAdded"}, ReasonNames(result.ReasonsFor(rep("/foo.md"))))
	assert.Equal(t, []string{"DocumentAdded"}, ReasonNames(result.ReasonsFor(site.LayoutRef("/default.html"))))
	assert.Equal(t, []string{"NotEnoughData"}, ReasonNames(result.ReasonsFor(site.ConfigRef())))

	foo := result.StatusFor(rep("/foo.md"))
	assert.True(t, foo.Has(DocumentAdded{}))
	assert.False(t, foo.Has(ContentModified{}))

	coll := result.StatusFor(site.ItemCollectionRef())
	require.Len(t, coll.Reasons, 1)
	assert.Equal(t, DocumentAdded{Identifiers: []string{"/foo.md"}}, coll.Reasons[0])
	assert.Equal(t, deps.BitRawContent, coll.Props.Active())
}

func TestUnchangedSecondRunIsClean(t *testing.T) {
	w := newWorld(ir.IRObject{"a": ir.IRInt(1)}, doc{id: "/foo.md", content: "foo"}, doc{id: "/bar.md", content: "bar"})
	prev := finish(t, w, edge(site.ItemRef("/foo.md"), "/bar.md", deps.Props{CompiledContent: true}))

	result := check(t, newWorld(ir.IRObject{"a": ir.IRInt(1)}, doc{id: "/foo.md", content: "foo"}, doc{id: "/bar.md", content: "bar"}), prev)

	for _, ref := range []site.Ref{rep("/foo.md"), rep("/bar.md"), site.ConfigRef(), site.LayoutRef("/default.html"), site.ItemCollectionRef()} {
		assert.Empty(t, result.ReasonsFor(ref), ref.String())
	}
}

func TestBroadDependencyOnCompiledContent(t *testing.T) {
	prev := finish(t,
		newWorld(nil, doc{id: "/foo.md", content: "foo"}, doc{id: "/bar.md", content: "bar"}),
		edge(site.ItemRef("/foo.md"), "/bar.md", deps.Props{CompiledContent: true}))

	result := check(t, newWorld(nil, doc{id: "/foo.md", content: "foo v2"}, doc{id: "/bar.md", content: "bar"}), prev)

	assert.Equal(t, []string{"ContentModified"}, ReasonNames(result.ReasonsFor(rep("/foo.md"))))
	assert.Equal(t, []string{"DependenciesOutdated"}, ReasonNames(result.ReasonsFor(rep("/bar.md"))))
	assert.True(t, result.OutdatedDueToDependencies(site.ItemRef("/bar.md")))
}

func TestNarrowAttributeDependency(t *testing.T) {
	attrs := func(title, author string) ir.IRObject {
		return ir.IRObject{"title": ir.IRString(title), "author": ir.IRString(author)}
	}
	dep := edge(site.ItemRef("/a.md"), "/b.md", deps.Props{AttributeKeys: []string{"title"}})
	prev := finish(t, newWorld(nil, doc{id: "/a.md", attrs: attrs("T", "X")}, doc{id: "/b.md"}), dep)

	t.Run("unrelated key changed", func(t *testing.T) {
		result := check(t, newWorld(nil, doc{id: "/a.md", attrs: attrs("T", "Y")}, doc{id: "/b.md"}), prev)

		assert.Equal(t, []Reason{AttributesModified{Attributes: []string{"author"}}}, result.ReasonsFor(rep("/a.md")))
		assert.Empty(t, result.ReasonsFor(rep("/b.md")))
	})

	t.Run("declared key changed", func(t *testing.T) {
		result := check(t, newWorld(nil, doc{id: "/a.md", attrs: attrs("T2", "X")}, doc{id: "/b.md"}), prev)

		assert.Equal(t, []string{"DependenciesOutdated"}, ReasonNames(result.ReasonsFor(rep("/b.md"))))
	})
}

func TestRawContentDependencyIgnoresAttributeChange(t *testing.T) {
	dep := edge(site.ItemRef("/a.md"), "/b.md", deps.Props{RawContent: true})
	prev := finish(t, newWorld(nil, doc{id: "/a.md", content: "x", attrs: ir.IRObject{"k": ir.IRInt(1)}}, doc{id: "/b.md"}), dep)

	result := check(t, newWorld(nil, doc{id: "/a.md", content: "x", attrs: ir.IRObject{"k": ir.IRInt(2)}}, doc{id: "/b.md"}), prev)

	assert.Empty(t, result.ReasonsFor(rep("/b.md")))
}

func TestCodeOutdatedPropagatesThroughCompiledContent(t *testing.T) {
	prev := finish(t,
		newWorld(nil, doc{id: "/a.md"}, doc{id: "/b.md"}, doc{id: "/c.md"}),
		edge(site.ItemRef("/a.md"), "/b.md", deps.Props{CompiledContent: true}),
		edge(site.ItemRef("/a.md"), "/c.md", deps.Props{RawContent: true}))

	w := newWorld(nil, doc{id: "/a.md"}, doc{id: "/b.md"}, doc{id: "/c.md"})
	w.seqs[rep("/a.md")].Actions = append(w.seqs[rep("/a.md")].Actions, site.FilterAction{Name: "markdown"})

	result := check(t, w, prev)

	assert.Equal(t, []string{"CodeOutdated"}, ReasonNames(result.ReasonsFor(rep("/a.md"))))
	assert.Empty(t, result.ReasonsFor(site.ItemRef("/a.md")))
	assert.Equal(t, []string{"DependenciesOutdated"}, ReasonNames(result.ReasonsFor(rep("/b.md"))))
	assert.Empty(t, result.ReasonsFor(rep("/c.md")))
}

func TestTransitivePropagation(t *testing.T) {
	prev := finish(t,
		newWorld(nil, doc{id: "/a.md", content: "a"}, doc{id: "/b.md"}, doc{id: "/c.md"}),
		edge(site.ItemRef("/a.md"), "/b.md", deps.Props{CompiledContent: true}),
		edge(site.ItemRef("/b.md"), "/c.md", deps.Props{CompiledContent: true}))

	result := check(t, newWorld(nil, doc{id: "/a.md", content: "a2"}, doc{id: "/b.md"}, doc{id: "/c.md"}), prev)

	assert.True(t, result.IsOutdated(rep("/b.md")))
	assert.True(t, result.IsOutdated(rep("/c.md")))
}

func TestTransitiveStopsAtRawContent(t *testing.T) {
	prev := finish(t,
		newWorld(nil, doc{id: "/a.md", content: "a"}, doc{id: "/b.md"}, doc{id: "/c.md"}),
		edge(site.ItemRef("/a.md"), "/b.md", deps.Props{CompiledContent: true}),
		edge(site.ItemRef("/b.md"), "/c.md", deps.Props{RawContent: true}))

	result := check(t, newWorld(nil, doc{id: "/a.md", content: "a2"}, doc{id: "/b.md"}, doc{id: "/c.md"}), prev)

	assert.True(t, result.IsOutdated(rep("/b.md")))
	assert.False(t, result.IsOutdated(rep("/c.md")))
}

func TestPropagationTerminatesOnCycles(t *testing.T) {
	prev := finish(t,
		newWorld(nil, doc{id: "/a.md", content: "a"}, doc{id: "/b.md"}, doc{id: "/c.md"}),
		edge(site.ItemRef("/a.md"), "/b.md", deps.Props{CompiledContent: true}),
		edge(site.ItemRef("/b.md"), "/c.md", deps.Props{CompiledContent: true}),
		edge(site.ItemRef("/c.md"), "/b.md", deps.Props{CompiledContent: true}))

	result := check(t, newWorld(nil, doc{id: "/a.md", content: "a2"}, doc{id: "/b.md"}, doc{id: "/c.md"}), prev)

	assert.True(t, result.IsOutdated(rep("/b.md")))
	assert.True(t, result.IsOutdated(rep("/c.md")))
}

func TestRemovedDependencyMarksDependentOutdated(t *testing.T) {
	prev := finish(t,
		newWorld(nil, doc{id: "/gone.md"}, doc{id: "/b.md"}),
		edge(site.ItemRef("/gone.md"), "/b.md", deps.Props{CompiledContent: true}))

	result := check(t, newWorld(nil, doc{id: "/b.md"}), prev)

	assert.Equal(t, []string{"DependenciesOutdated"}, ReasonNames(result.ReasonsFor(rep("/b.md"))))
}

func TestCollectionRawContentPatterns(t *testing.T) {
	dep := edge(site.ItemCollectionRef(), "/index.md", deps.Props{RawContentPatterns: []string{"/blog/*.md"}})
	prev := finish(t, newWorld(nil, doc{id: "/index.md"}, doc{id: "/blog/one.md"}), dep)

	t.Run("matching item added", func(t *testing.T) {
		result := check(t, newWorld(nil, doc{id: "/index.md"}, doc{id: "/blog/one.md"}, doc{id: "/blog/two.md"}), prev)
		assert.True(t, result.IsOutdated(rep("/index.md")))
	})

	t.Run("other item added", func(t *testing.T) {
		result := check(t, newWorld(nil, doc{id: "/index.md"}, doc{id: "/blog/one.md"}, doc{id: "/about.md"}), prev)
		assert.False(t, result.IsOutdated(rep("/index.md")))
	})
}

func TestCollectionAttributePairs(t *testing.T) {
	kind := func(k string) ir.IRObject { return ir.IRObject{"kind": ir.IRString(k), "n": ir.IRInt(1)} }
	dep := edge(site.ItemCollectionRef(), "/index.md", deps.Props{
		AttributePairs: []deps.AttributePair{{Key: "kind", Value: ir.IRString("article")}},
	})
	prev := finish(t, newWorld(nil, doc{id: "/index.md"}, doc{id: "/a.md", attrs: kind("page")}), dep)

	t.Run("value becomes queried value", func(t *testing.T) {
		result := check(t, newWorld(nil, doc{id: "/index.md"}, doc{id: "/a.md", attrs: kind("article")}), prev)
		assert.True(t, result.IsOutdated(rep("/index.md")))
	})

	t.Run("unrelated change", func(t *testing.T) {
		result := check(t, newWorld(nil, doc{id: "/index.md"}, doc{id: "/a.md", attrs: kind("note")}), prev)
		assert.False(t, result.IsOutdated(rep("/index.md")))
	})

	t.Run("new member with queried value", func(t *testing.T) {
		result := check(t, newWorld(nil,
			doc{id: "/index.md"}, doc{id: "/a.md", attrs: kind("page")}, doc{id: "/b.md", attrs: kind("article")}), prev)
		assert.True(t, result.IsOutdated(rep("/index.md")))
	})
}

func TestCollectionAttributeKeysAreInconsistent(t *testing.T) {
	dep := edge(site.ItemCollectionRef(), "/index.md", deps.Props{AttributeKeys: []string{"kind"}})
	prev := finish(t, newWorld(nil, doc{id: "/index.md"}, doc{id: "/a.md"}), dep)

	_, err := runCheck(newWorld(nil, doc{id: "/index.md"}, doc{id: "/a.md"}), prev)
	require.Error(t, err)
	assert.True(t, site.IsInternalInconsistency(err))
}

func TestConfigurationAttributeDependency(t *testing.T) {
	dep := edge(site.ConfigRef(), "/a.md", deps.Props{AttributeKeys: []string{"base_url"}})
	prev := finish(t, newWorld(ir.IRObject{"base_url": ir.IRString("a"), "x": ir.IRInt(1)}, doc{id: "/a.md"}), dep)

	changedOther := check(t, newWorld(ir.IRObject{"base_url": ir.IRString("a"), "x": ir.IRInt(2)}, doc{id: "/a.md"}), prev)
	assert.False(t, changedOther.IsOutdated(rep("/a.md")))

	changedURL := check(t, newWorld(ir.IRObject{"base_url": ir.IRString("b"), "x": ir.IRInt(1)}, doc{id: "/a.md"}), prev)
	assert.True(t, changedURL.IsOutdated(rep("/a.md")))
}

func TestNotEnoughDataWithoutChecksums(t *testing.T) {
	w := newWorld(nil, doc{id: "/a.md"})
	prev := finish(t, w)
	prev.records = nil

	result := check(t, newWorld(nil, doc{id: "/a.md"}), prev)
	assert.Equal(t, []string{"NotEnoughData"}, ReasonNames(result.ReasonsFor(rep("/a.md"))))
}
