package checksums

import (
	"maps"

	"github.com/Reality2byte/nanoc/internal/site"
)

// ActionSequenceStore maps reps and layouts to the checksum of the rules
// that produced their action sequence.
type ActionSequenceStore struct {
	sums map[site.Ref]string
}

// NewActionSequenceStore builds a store from persisted checksums.
func NewActionSequenceStore(sums map[site.Ref]string) *ActionSequenceStore {
	if sums == nil {
		sums = map[site.Ref]string{}
	}
	return &ActionSequenceStore{sums: sums}
}

// Get returns the checksum stored for ref.
func (s *ActionSequenceStore) Get(ref site.Ref) (string, bool) {
	sum, ok := s.sums[ref]
	return sum, ok
}

// Set records the checksum for ref.
func (s *ActionSequenceStore) Set(ref site.Ref, sum string) {
	s.sums[ref] = sum
}

// All returns a copy of every checksum.
func (s *ActionSequenceStore) All() map[site.Ref]string {
	return maps.Clone(s.sums)
}
