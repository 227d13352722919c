package content

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Reality2byte/nanoc/internal/site"
)

var foo = site.RepRef("/foo.md", "default")

func TestRepoCheckpoints(t *testing.T) {
	r := NewRepo()
	_, ok := r.GetCurrent(foo)
	assert.False(t, ok)

	r.SetCurrent(foo, []byte("raw"))
	r.TakeSnapshot(foo, site.SnapshotRaw)
	r.Advance(foo)
	r.SetCurrent(foo, []byte("<p>raw</p>"))
	r.TakeSnapshot(foo, site.SnapshotLast)
	r.Advance(foo)

	assert.Equal(t, 2, r.Executed(foo))
	raw, ok := r.Get(foo, site.SnapshotRaw)
	require.True(t, ok)
	assert.Equal(t, "raw", string(raw))
	assert.True(t, r.HasSnapshot(foo, site.SnapshotLast))
	assert.False(t, r.HasSnapshot(foo, site.SnapshotPre))
	assert.Len(t, r.GetAll(foo), 2)
}

func TestRepoSnapshotIsACopy(t *testing.T) {
	r := NewRepo()
	buf := []byte("abc")
	r.SetCurrent(foo, buf)
	r.TakeSnapshot(foo, "x")
	buf[0] = 'z'

	got, _ := r.Get(foo, "x")
	assert.Equal(t, "abc", string(got))
}

func TestRepoSetAll(t *testing.T) {
	r := NewRepo()
	r.SetAll(foo, map[string][]byte{"last": []byte("done")})

	cur, ok := r.GetCurrent(foo)
	require.True(t, ok)
	assert.Equal(t, "done", string(cur))
}

type fakeLoader struct {
	entries map[site.Ref]map[string][]byte
	loads   int
}

func (f *fakeLoader) LoadCacheEntry(_ context.Context, rep site.Ref) (map[string][]byte, error) {
	f.loads++
	e, ok := f.entries[rep]
	if !ok {
		return nil, errors.New("missing")
	}
	return e, nil
}

func fixedKey(key string) KeyFunc {
	return func(site.Ref) (string, error) { return key, nil }
}

func TestCacheHitRequiresMatchingKey(t *testing.T) {
	loader := &fakeLoader{entries: map[site.Ref]map[string][]byte{foo: {"last": []byte("cached")}}}

	hit := NewCache(map[site.Ref]string{foo: "k1"}, loader, fixedKey("k1"))
	ok, err := hit.FullCacheAvailable(foo)
	require.NoError(t, err)
	assert.True(t, ok)

	miss := NewCache(map[site.Ref]string{foo: "k1"}, loader, fixedKey("k2"))
	ok, err = miss.FullCacheAvailable(foo)
	require.NoError(t, err)
	assert.False(t, ok)

	empty := NewCache(nil, loader, fixedKey("k1"))
	ok, err = empty.FullCacheAvailable(foo)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheGetUsesMemory(t *testing.T) {
	loader := &fakeLoader{entries: map[site.Ref]map[string][]byte{foo: {"last": []byte("cached")}}}
	c := NewCache(map[site.Ref]string{foo: "k"}, loader, fixedKey("k"), WithMemoryEntries(8))

	for range 3 {
		snaps, err := c.Get(context.Background(), foo)
		require.NoError(t, err)
		assert.Equal(t, "cached", string(snaps["last"]))
	}
	assert.Equal(t, 1, loader.loads)
}

func TestCacheSetAndChanges(t *testing.T) {
	bar := site.RepRef("/bar.md", "default")
	gone := site.RepRef("/gone.md", "default")
	c := NewCache(map[site.Ref]string{gone: "old", bar: "old"}, &fakeLoader{}, fixedKey("new"))

	c.Set(foo, map[string][]byte{"last": []byte("fresh")})
	snaps, err := c.Get(context.Background(), foo)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(snaps["last"]))

	c.Prune([]string{"/foo.md", "/bar.md"})

	ch, err := c.Changes()
	require.NoError(t, err)
	require.Len(t, ch.Put, 1)
	assert.Equal(t, Entry{Rep: foo, Key: "new", Snapshots: map[string][]byte{"last": []byte("fresh")}}, ch.Put[0])
	assert.Equal(t, []site.Ref{gone}, ch.Delete)
	assert.Equal(t, []site.Ref{bar, foo}, c.Reps())
	assert.True(t, c.Has(bar))
	assert.True(t, c.Has(foo))
	assert.False(t, c.Has(gone))
}

func TestCacheGetMissing(t *testing.T) {
	c := NewCache(nil, &fakeLoader{}, fixedKey("k"))
	_, err := c.Get(context.Background(), foo)
	assert.Error(t, err)
}
