package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Reality2byte/nanoc/internal/checksums"
	"github.com/Reality2byte/nanoc/internal/content"
	"github.com/Reality2byte/nanoc/internal/deps"
	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/site"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun(id string) Run {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return Run{
		ID:                id,
		StartedAt:         at,
		EndedAt:           at.Add(time.Second),
		Status:            RunSucceeded,
		CompilerVersion:   ir.CompilerVersion,
		ChecksumAlgorithm: "sha256",
	}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := range 3 {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		s.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaTooNew)
}

func TestLoad_EmptyDatabase(t *testing.T) {
	s := createTestStore(t)

	st, err := s.Load(context.Background())
	require.NoError(t, err)

	assert.Nil(t, st.Dependencies, "no previous run means no dependency graph")
	assert.Empty(t, st.Checksums)
	assert.NotNil(t, st.Checksums, "empty slice, not nil")
	assert.Empty(t, st.Outdated)
	assert.Empty(t, st.CacheIndex)

	_, ok, err := s.LastRun(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	foo := site.ItemRef("/foo.md")
	bar := site.ItemRef("/bar.md")
	fooRep := site.RepRef("/foo.md", "default")

	st := &State{
		Checksums: []checksums.Record{
			{Ref: site.ConfigRef(), Attributes: map[string]string{"title": "sha256:aa"}},
			{Ref: foo, Content: "sha256:01", Attributes: map[string]string{"title": "sha256:02"}},
		},
		ActionSequences: map[site.Ref]string{fooRep: "sha256:03"},
		Dependencies: &deps.Snapshot{
			Vertices: []site.Ref{bar, foo},
			Edges: []deps.Dependency{
				{From: foo, To: bar, Props: deps.Props{CompiledContent: true}},
				{From: site.ItemCollectionRef(), To: bar, Props: deps.Props{
					AttributePairs: []deps.AttributePair{{Key: "kind", Value: ir.IRString("post")}},
				}},
				{From: site.None, To: foo, Props: deps.Props{RawContent: true}},
			},
		},
		Outdated:   []site.Ref{site.RepRef("/bar.md", "default")},
		CacheIndex: map[site.Ref]string{},
	}
	cache := content.Changes{Put: []content.Entry{{
		Rep:       fooRep,
		Key:       "sha256:key",
		Snapshots: map[string][]byte{"raw": []byte("foo"), "last": []byte("<p>foo</p>")},
	}}}

	require.NoError(t, s.Save(ctx, testRun("run-1"), st, cache))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, st.Checksums[1], loaded.Checksums[1])
	assert.Equal(t, site.ConfigRef(), loaded.Checksums[0].Ref)
	assert.Equal(t, "", loaded.Checksums[0].Content)
	assert.Equal(t, st.ActionSequences, loaded.ActionSequences)
	assert.Equal(t, st.Outdated, loaded.Outdated)
	assert.Equal(t, map[site.Ref]string{fooRep: "sha256:key"}, loaded.CacheIndex)

	require.NotNil(t, loaded.Dependencies)
	assert.Equal(t, []site.Ref{bar, foo}, loaded.Dependencies.Vertices)
	assert.ElementsMatch(t, st.Dependencies.Edges, loaded.Dependencies.Edges)

	snaps, err := s.LoadCacheEntry(ctx, fooRep)
	require.NoError(t, err)
	assert.Equal(t, "<p>foo</p>", string(snaps["last"]))
	assert.Equal(t, "foo", string(snaps["raw"]))
}

func TestSave_ReplacesPreviousState(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	rep := site.RepRef("/foo.md", "default")

	first := &State{
		Checksums:    []checksums.Record{{Ref: site.ItemRef("/foo.md"), Content: "sha256:01"}},
		Outdated:     []site.Ref{rep},
		Dependencies: &deps.Snapshot{Vertices: []site.Ref{site.ItemRef("/foo.md")}},
	}
	require.NoError(t, s.Save(ctx, testRun("run-1"), first, content.Changes{
		Put: []content.Entry{{Rep: rep, Key: "k1", Snapshots: map[string][]byte{"last": []byte("a")}}},
	}))

	second := &State{Dependencies: &deps.Snapshot{}}
	require.NoError(t, s.Save(ctx, testRun("run-2"), second, content.Changes{Delete: []site.Ref{rep}}))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.Checksums)
	assert.Empty(t, loaded.Outdated)
	assert.Empty(t, loaded.CacheIndex)
	require.NotNil(t, loaded.Dependencies)
	assert.Empty(t, loaded.Dependencies.Vertices)

	_, err = s.LoadCacheEntry(ctx, rep)
	assert.Error(t, err)

	run, ok, err := s.LastRun(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-2", run.ID)
	assert.Equal(t, int64(2), run.Seq)
	assert.Equal(t, RunSucceeded, run.Status)
	assert.Equal(t, testRun("x").StartedAt, run.StartedAt)
}

func TestSave_IsAtomic(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.Save(ctx, testRun("run-1"), &State{
		Outdated: []site.Ref{site.RepRef("/a.md", "default")},
	}, content.Changes{}))

	// A duplicate run id fails the last step; nothing before it may stick.
	err := s.Save(ctx, testRun("run-1"), &State{}, content.Changes{})
	require.Error(t, err)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []site.Ref{site.RepRef("/a.md", "default")}, loaded.Outdated)
}

func TestSnapshotBlobs(t *testing.T) {
	in := map[string][]byte{"raw": []byte("# Hi"), "last": []byte("<h1>Hi</h1>"), "empty": {}}

	blob, err := encodeSnapshots(in)
	require.NoError(t, err)

	out, err := decodeSnapshots(blob)
	require.NoError(t, err)
	assert.Equal(t, "# Hi", string(out["raw"]))
	assert.Equal(t, "<h1>Hi</h1>", string(out["last"]))
	assert.Contains(t, out, "empty")

	_, err = decodeSnapshots([]byte("not xz"))
	assert.Error(t, err)
}
