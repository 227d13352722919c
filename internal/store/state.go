package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Reality2byte/nanoc/internal/checksums"
	"github.com/Reality2byte/nanoc/internal/content"
	"github.com/Reality2byte/nanoc/internal/deps"
	"github.com/Reality2byte/nanoc/internal/site"
)

// State is what a run reads from the previous run and writes for the next.
type State struct {
	Checksums []checksums.Record
	// ActionSequences maps reps and layouts to the digest of the actions
	// the rules produced for them.
	ActionSequences map[site.Ref]string
	// Dependencies is nil when no run has been recorded yet.
	Dependencies *deps.Snapshot
	Outdated     []site.Ref
	// CacheIndex maps each cached rep to its cache key. Snapshot bytes are
	// loaded on demand through LoadCacheEntry.
	CacheIndex map[site.Ref]string
}

// Run statuses.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run describes one compilation run.
type Run struct {
	ID                string
	Seq               int64
	StartedAt         time.Time
	EndedAt           time.Time
	Status            string
	Error             string
	CompilerVersion   string
	ChecksumAlgorithm string
}

// Load reads the state left by the previous run. An empty database yields
// an empty state with nil Dependencies.
func (s *Store) Load(ctx context.Context) (*State, error) {
	st := &State{
		Checksums:       []checksums.Record{},
		ActionSequences: map[site.Ref]string{},
		Outdated:        []site.Ref{},
		CacheIndex:      map[site.Ref]string{},
	}

	var runs int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&runs); err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	loaders := []func(context.Context, *State) error{
		s.loadChecksums,
		s.loadActionSequences,
		s.loadOutdated,
		s.loadCacheIndex,
	}
	if runs > 0 {
		loaders = append(loaders, s.loadDependencies)
	}
	for _, load := range loaders {
		if err := load(ctx, st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (s *Store) loadChecksums(ctx context.Context, st *State) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ref, content, attributes FROM checksums ORDER BY ref COLLATE BINARY
	`)
	if err != nil {
		return fmt.Errorf("query checksums: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var refText, sum, attrs string
		if err := rows.Scan(&refText, &sum, &attrs); err != nil {
			return fmt.Errorf("scan checksum: %w", err)
		}
		ref, err := site.ParseRef(refText)
		if err != nil {
			return fmt.Errorf("checksum ref: %w", err)
		}
		rec := checksums.Record{Ref: ref, Content: sum, Attributes: map[string]string{}}
		if err := json.Unmarshal([]byte(attrs), &rec.Attributes); err != nil {
			return fmt.Errorf("unmarshal attribute checksums for %s: %w", ref, err)
		}
		st.Checksums = append(st.Checksums, rec)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate checksums: %w", err)
	}
	return nil
}

func (s *Store) loadActionSequences(ctx context.Context, st *State) error {
	return s.scanRefPairs(ctx, "SELECT ref, checksum FROM action_sequences ORDER BY ref COLLATE BINARY",
		func(ref site.Ref, sum string) { st.ActionSequences[ref] = sum })
}

func (s *Store) loadCacheIndex(ctx context.Context, st *State) error {
	return s.scanRefPairs(ctx, "SELECT rep, cache_key FROM compiled_content ORDER BY rep COLLATE BINARY",
		func(ref site.Ref, key string) { st.CacheIndex[ref] = key })
}

func (s *Store) scanRefPairs(ctx context.Context, query string, add func(site.Ref, string)) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var refText, value string
		if err := rows.Scan(&refText, &value); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		ref, err := site.ParseRef(refText)
		if err != nil {
			return err
		}
		add(ref, value)
	}
	return rows.Err()
}

func (s *Store) loadOutdated(ctx context.Context, st *State) error {
	refs, err := s.scanRefs(ctx, "SELECT ref FROM outdated ORDER BY ref COLLATE BINARY")
	if err != nil {
		return fmt.Errorf("load outdated reps: %w", err)
	}
	st.Outdated = refs
	return nil
}

func (s *Store) scanRefs(ctx context.Context, query string) ([]site.Ref, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []site.Ref{}
	for rows.Next() {
		var refText string
		if err := rows.Scan(&refText); err != nil {
			return nil, err
		}
		ref, err := site.ParseRef(refText)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (s *Store) loadDependencies(ctx context.Context, st *State) error {
	vertices, err := s.scanRefs(ctx, "SELECT ref FROM dependency_vertices ORDER BY ref COLLATE BINARY")
	if err != nil {
		return fmt.Errorf("load dependency vertices: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT from_ref, to_ref, props FROM dependencies
		ORDER BY to_ref COLLATE BINARY, from_ref COLLATE BINARY
	`)
	if err != nil {
		return fmt.Errorf("query dependencies: %w", err)
	}
	defer rows.Close()

	snap := &deps.Snapshot{Vertices: vertices, Edges: []deps.Dependency{}}
	for rows.Next() {
		var fromText, toText, props string
		if err := rows.Scan(&fromText, &toText, &props); err != nil {
			return fmt.Errorf("scan dependency: %w", err)
		}
		var d deps.Dependency
		if d.From, err = site.ParseRef(fromText); err != nil {
			return fmt.Errorf("dependency source: %w", err)
		}
		if d.To, err = site.ParseRef(toText); err != nil {
			return fmt.Errorf("dependency target: %w", err)
		}
		if err := json.Unmarshal([]byte(props), &d.Props); err != nil {
			return fmt.Errorf("unmarshal props of %s -> %s: %w", d.From, d.To, err)
		}
		snap.Edges = append(snap.Edges, d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate dependencies: %w", err)
	}

	st.Dependencies = snap
	return nil
}

// LoadCacheEntry returns the cached snapshots of rep.
// Implements content.Loader.
func (s *Store) LoadCacheEntry(ctx context.Context, rep site.Ref) (map[string][]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, "SELECT snapshots FROM compiled_content WHERE rep = ?", rep.String()).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no cache entry for %s", rep)
	}
	if err != nil {
		return nil, fmt.Errorf("query cache entry: %w", err)
	}
	return decodeSnapshots(blob)
}

// Save replaces the persisted state in a single transaction and records
// the run. Cache entries not named in cache are left untouched.
func (s *Store) Save(ctx context.Context, run Run, st *State, cache content.Changes) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op after successful commit

	steps := []func(context.Context, *sql.Tx) error{
		func(ctx context.Context, tx *sql.Tx) error { return saveChecksums(ctx, tx, st.Checksums) },
		func(ctx context.Context, tx *sql.Tx) error { return saveActionSequences(ctx, tx, st.ActionSequences) },
		func(ctx context.Context, tx *sql.Tx) error { return saveDependencies(ctx, tx, st.Dependencies) },
		func(ctx context.Context, tx *sql.Tx) error { return saveOutdated(ctx, tx, st.Outdated) },
		func(ctx context.Context, tx *sql.Tx) error { return saveCache(ctx, tx, cache) },
		func(ctx context.Context, tx *sql.Tx) error { return saveRun(ctx, tx, run) },
	}
	for _, step := range steps {
		if err := step(ctx, tx); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func saveChecksums(ctx context.Context, tx *sql.Tx, records []checksums.Record) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM checksums"); err != nil {
		return fmt.Errorf("clear checksums: %w", err)
	}
	for _, rec := range records {
		attrs := rec.Attributes
		if attrs == nil {
			attrs = map[string]string{}
		}
		attrsJSON, err := json.Marshal(attrs)
		if err != nil {
			return fmt.Errorf("marshal attribute checksums for %s: %w", rec.Ref, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO checksums (ref, content, attributes) VALUES (?, ?, ?)",
			rec.Ref.String(), rec.Content, string(attrsJSON),
		); err != nil {
			return fmt.Errorf("insert checksum for %s: %w", rec.Ref, err)
		}
	}
	return nil
}

func saveActionSequences(ctx context.Context, tx *sql.Tx, sums map[site.Ref]string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM action_sequences"); err != nil {
		return fmt.Errorf("clear action sequences: %w", err)
	}
	for ref, sum := range sums {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO action_sequences (ref, checksum) VALUES (?, ?)", ref.String(), sum,
		); err != nil {
			return fmt.Errorf("insert action sequence for %s: %w", ref, err)
		}
	}
	return nil
}

func saveDependencies(ctx context.Context, tx *sql.Tx, snap *deps.Snapshot) error {
	for _, table := range []string{"dependency_vertices", "dependencies"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if snap == nil {
		return nil
	}
	for _, v := range snap.Vertices {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO dependency_vertices (ref) VALUES (?) ON CONFLICT DO NOTHING", v.String(),
		); err != nil {
			return fmt.Errorf("insert vertex %s: %w", v, err)
		}
	}
	for _, d := range snap.Edges {
		props, err := json.Marshal(d.Props)
		if err != nil {
			return fmt.Errorf("marshal props of %s -> %s: %w", d.From, d.To, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dependencies (from_ref, to_ref, props) VALUES (?, ?, ?)
			ON CONFLICT(from_ref, to_ref) DO UPDATE SET props = excluded.props
		`, d.From.String(), d.To.String(), string(props)); err != nil {
			return fmt.Errorf("insert dependency %s -> %s: %w", d.From, d.To, err)
		}
	}
	return nil
}

func saveOutdated(ctx context.Context, tx *sql.Tx, refs []site.Ref) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM outdated"); err != nil {
		return fmt.Errorf("clear outdated reps: %w", err)
	}
	for _, ref := range refs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO outdated (ref) VALUES (?) ON CONFLICT DO NOTHING", ref.String(),
		); err != nil {
			return fmt.Errorf("insert outdated rep %s: %w", ref, err)
		}
	}
	return nil
}

func saveCache(ctx context.Context, tx *sql.Tx, ch content.Changes) error {
	for _, rep := range ch.Delete {
		if _, err := tx.ExecContext(ctx, "DELETE FROM compiled_content WHERE rep = ?", rep.String()); err != nil {
			return fmt.Errorf("delete cache entry %s: %w", rep, err)
		}
	}
	for _, e := range ch.Put {
		blob, err := encodeSnapshots(e.Snapshots)
		if err != nil {
			return fmt.Errorf("encode cache entry %s: %w", e.Rep, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO compiled_content (rep, cache_key, snapshots) VALUES (?, ?, ?)
			ON CONFLICT(rep) DO UPDATE SET cache_key = excluded.cache_key, snapshots = excluded.snapshots
		`, e.Rep.String(), e.Key, blob); err != nil {
			return fmt.Errorf("write cache entry %s: %w", e.Rep, err)
		}
	}
	return nil
}

func saveRun(ctx context.Context, tx *sql.Tx, run Run) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, started_at, ended_at, status, error, compiler_version, checksum_algorithm)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.EndedAt.UTC().Format(time.RFC3339Nano),
		run.Status,
		run.Error,
		run.CompilerVersion,
		run.ChecksumAlgorithm,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// LastRun returns the most recent run. ok is false when no run has been
// recorded.
func (s *Store) LastRun(ctx context.Context) (run Run, ok bool, err error) {
	var started, ended string
	err = s.db.QueryRowContext(ctx, `
		SELECT id, seq, started_at, ended_at, status, error, compiler_version, checksum_algorithm
		FROM runs ORDER BY seq DESC LIMIT 1
	`).Scan(&run.ID, &run.Seq, &started, &ended, &run.Status, &run.Error, &run.CompilerVersion, &run.ChecksumAlgorithm)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("query last run: %w", err)
	}
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, false, fmt.Errorf("parse started_at: %w", err)
	}
	if run.EndedAt, err = time.Parse(time.RFC3339Nano, ended); err != nil {
		return Run{}, false, fmt.Errorf("parse ended_at: %w", err)
	}
	return run, true, nil
}
