package outdatedness

import (
	"slices"
	"strings"

	"github.com/Reality2byte/nanoc/internal/site"
)

// Store is the persisted set of reps still known to be outdated. It
// survives interrupted and failed runs, so work that did not finish is
// picked up by the next run.
type Store struct {
	refs map[site.Ref]struct{}
}

// NewStore builds a store from persisted refs.
func NewStore(refs []site.Ref) *Store {
	s := &Store{refs: make(map[site.Ref]struct{}, len(refs))}
	for _, r := range refs {
		s.Add(r)
	}
	return s
}

// Add marks ref outdated.
func (s *Store) Add(ref site.Ref) { s.refs[ref] = struct{}{} }

// Remove clears ref.
func (s *Store) Remove(ref site.Ref) { delete(s.refs, ref) }

// Include reports whether ref is outdated.
func (s *Store) Include(ref site.Ref) bool {
	_, ok := s.refs[ref]
	return ok
}

// Len returns the number of outdated refs.
func (s *Store) Len() int { return len(s.refs) }

// All returns every outdated ref, sorted.
func (s *Store) All() []site.Ref {
	out := make([]site.Ref, 0, len(s.refs))
	for r := range s.refs {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b site.Ref) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

// Retain drops refs for which keep returns false, such as reps whose item
// was deleted since they were recorded.
func (s *Store) Retain(keep func(site.Ref) bool) {
	for r := range s.refs {
		if !keep(r) {
			delete(s.refs, r)
		}
	}
}
