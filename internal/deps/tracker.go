package deps

import "github.com/Reality2byte/nanoc/internal/site"

// Tracker records reads made while compiling one item.
type Tracker struct {
	store *Store
	root  site.Ref
}

// NewTracker returns a tracker recording edges onto root.
func NewTracker(store *Store, root site.Ref) *Tracker {
	return &Tracker{store: store, root: root.Fold()}
}

// Root returns the dependent the tracker records onto.
func (t *Tracker) Root() site.Ref { return t.root }

// Bounce records that root read props of from.
func (t *Tracker) Bounce(from site.Ref, props Props) {
	if !t.Enabled() {
		return
	}
	t.store.Record(from, t.root, props)
}

// Null is a tracker that records nothing. Rules and tooling that read site
// data outside any compilation use it.
func Null() *Tracker { return &Tracker{} }

// Enabled reports whether reads are recorded.
func (t *Tracker) Enabled() bool { return t != nil && t.store != nil }
