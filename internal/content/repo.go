package content

import (
	"maps"
	"slices"

	"github.com/Reality2byte/nanoc/internal/site"
)

type entry struct {
	current    []byte
	hasCurrent bool
	snapshots  map[string][]byte
	executed   int
}

// Repo is the compiled content of the current run.
//
// Repo is not safe for concurrent use.
type Repo struct {
	entries map[site.Ref]*entry
}

// NewRepo creates an empty repo.
func NewRepo() *Repo {
	return &Repo{entries: map[site.Ref]*entry{}}
}

func (r *Repo) entry(rep site.Ref) *entry {
	e, ok := r.entries[rep]
	if !ok {
		e = &entry{snapshots: map[string][]byte{}}
		r.entries[rep] = e
	}
	return e
}

// GetCurrent returns the content produced by the actions executed so far.
func (r *Repo) GetCurrent(rep site.Ref) ([]byte, bool) {
	e, ok := r.entries[rep]
	if !ok || !e.hasCurrent {
		return nil, false
	}
	return e.current, true
}

// SetCurrent replaces the current content.
func (r *Repo) SetCurrent(rep site.Ref, b []byte) {
	e := r.entry(rep)
	e.current = b
	e.hasCurrent = true
}

// TakeSnapshot copies the current content into the named slot.
func (r *Repo) TakeSnapshot(rep site.Ref, name string) {
	e := r.entry(rep)
	e.snapshots[name] = slices.Clone(e.current)
}

// Get returns a named snapshot.
func (r *Repo) Get(rep site.Ref, name string) ([]byte, bool) {
	e, ok := r.entries[rep]
	if !ok {
		return nil, false
	}
	b, ok := e.snapshots[name]
	return b, ok
}

// HasSnapshot reports whether the named snapshot has been taken.
func (r *Repo) HasSnapshot(rep site.Ref, name string) bool {
	_, ok := r.Get(rep, name)
	return ok
}

// GetAll returns a copy of every snapshot of rep.
func (r *Repo) GetAll(rep site.Ref) map[string][]byte {
	e, ok := r.entries[rep]
	if !ok {
		return map[string][]byte{}
	}
	return maps.Clone(e.snapshots)
}

// SetAll restores a full snapshot set, as on a cache hit. The current
// content becomes the "last" snapshot.
func (r *Repo) SetAll(rep site.Ref, snapshots map[string][]byte) {
	e := r.entry(rep)
	e.snapshots = maps.Clone(snapshots)
	if last, ok := snapshots[site.SnapshotLast]; ok {
		e.current = last
		e.hasCurrent = true
	}
}

// Executed returns how many actions of rep's sequence have completed.
func (r *Repo) Executed(rep site.Ref) int {
	if e, ok := r.entries[rep]; ok {
		return e.executed
	}
	return 0
}

// Advance records that one more action of rep's sequence completed.
func (r *Repo) Advance(rep site.Ref) {
	r.entry(rep).executed++
}
