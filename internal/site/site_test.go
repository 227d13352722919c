package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Reality2byte/nanoc/internal/ir"
)

func TestRefRoundTrip(t *testing.T) {
	refs := []Ref{
		None,
		ItemRef("/foo.md"),
		RepRef("/foo.md", "default"),
		RepRef("/a#b.md", "print"),
		LayoutRef("/default.html"),
		ConfigRef(),
		ItemCollectionRef(),
		LayoutCollectionRef(),
	}
	for _, ref := range refs {
		t.Run(ref.String(), func(t *testing.T) {
			parsed, err := ParseRef(ref.String())
			require.NoError(t, err)
			assert.Equal(t, ref, parsed)
		})
	}
}

func TestParseRefInvalid(t *testing.T) {
	for _, s := range []string{"", "item:", "rep:/foo.md", "rep:/foo.md#", "thing:/x"} {
		_, err := ParseRef(s)
		assert.Error(t, err, s)
	}
}

func TestRefFold(t *testing.T) {
	assert.Equal(t, ItemRef("/foo.md"), RepRef("/foo.md", "default").Fold())
	assert.Equal(t, LayoutRef("/x"), LayoutRef("/x").Fold())
}

func TestCollectionOrderAndReplace(t *testing.T) {
	c := NewCollection(
		NewItem("/b.md", []byte("b"), nil),
		NewItem("/a.md", []byte("a"), nil),
	)
	c.Add(NewItem("/b.md", []byte("b2"), nil))

	assert.Equal(t, []string{"/a.md", "/b.md"}, c.Identifiers())
	b, ok := c.Get("/b.md")
	require.True(t, ok)
	assert.Equal(t, "b2", string(b.Content))
}

func TestCollectionFind(t *testing.T) {
	c := NewCollection(
		NewItem("/blog/one.md", nil, nil),
		NewItem("/blog/2024/two.md", nil, nil),
		NewItem("/about.md", nil, nil),
	)

	assert.Len(t, c.Find(MustPattern("/blog/*.md")), 1)
	assert.Len(t, c.Find(MustPattern("/blog/**/*.md")), 2)
	assert.Len(t, c.Find(MustPattern("re:^/a")), 1)
}

func TestParsePatternBadRegexp(t *testing.T) {
	_, err := ParsePattern("re:(")
	assert.Error(t, err)
}

func TestActionSequence(t *testing.T) {
	seq := &ActionSequence{
		Rep: RepRef("/foo.md", "default"),
		Actions: []Action{
			SnapshotAction{Names: []string{SnapshotRaw}},
			FilterAction{Name: "markdown"},
			SnapshotAction{Names: []string{SnapshotPre}},
			LayoutAction{Identifier: "/default.html"},
			SnapshotAction{Names: []string{SnapshotLast}, Paths: []string{"/foo/index.html"}},
		},
	}

	assert.Equal(t, []string{"raw", "pre", "last"}, seq.SnapshotNames())
	assert.True(t, seq.HasSnapshot("pre"))
	assert.False(t, seq.HasSnapshot("post"))
	assert.Equal(t, map[string][]string{"last": {"/foo/index.html"}}, seq.Paths())
}

func TestActionSequenceChecksumTracksParams(t *testing.T) {
	c := ir.Checksummer{}
	a := &ActionSequence{Actions: []Action{FilterAction{Name: "template", Params: ir.IRObject{"x": ir.IRInt(1)}}}}
	b := &ActionSequence{Actions: []Action{FilterAction{Name: "template", Params: ir.IRObject{"x": ir.IRInt(2)}}}}

	sa, err := a.Checksum(c)
	require.NoError(t, err)
	sa2, err := a.Checksum(c)
	require.NoError(t, err)
	sb, err := b.Checksum(c)
	require.NoError(t, err)

	assert.Equal(t, sa, sa2)
	assert.NotEqual(t, sa, sb)
}

func TestSiteExists(t *testing.T) {
	item := NewItem("/foo.md", nil, nil)
	s := New(nil, []*Item{item}, []*Layout{NewLayout("/default.html", nil, nil)})
	s.Reps.Add(NewItemRep(item, "default"))

	assert.True(t, s.Exists(ItemRef("/foo.md")))
	assert.True(t, s.Exists(RepRef("/foo.md", "default")))
	assert.False(t, s.Exists(RepRef("/foo.md", "print")))
	assert.True(t, s.Exists(LayoutRef("/default.html")))
	assert.True(t, s.Exists(ConfigRef()))
	assert.False(t, s.Exists(None))
}

func TestInternalInconsistency(t *testing.T) {
	err := Inconsistency("bad kind %s", KindNone)
	assert.True(t, IsInternalInconsistency(err))
	assert.Contains(t, err.Error(), "bad kind none")
}
