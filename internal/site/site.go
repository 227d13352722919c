package site

import "github.com/Reality2byte/nanoc/internal/ir"

// Site holds every object loaded for one run.
type Site struct {
	Config  *Configuration
	Items   *Collection[*Item]
	Layouts *Collection[*Layout]
	Reps    *RepSet
}

// New creates a site. Reps are attached later, once rules have been applied.
func New(config ir.IRObject, items []*Item, layouts []*Layout) *Site {
	if config == nil {
		config = ir.IRObject{}
	}
	return &Site{
		Config:  &Configuration{Attributes: config},
		Items:   NewCollection(items...),
		Layouts: NewCollection(layouts...),
		Reps:    NewRepSet(),
	}
}

// Exists reports whether ref names an object of this site.
func (s *Site) Exists(ref Ref) bool {
	switch ref.Kind {
	case KindItem:
		_, ok := s.Items.Get(ref.Identifier)
		return ok
	case KindItemRep:
		_, ok := s.Reps.Get(ref)
		return ok
	case KindLayout:
		_, ok := s.Layouts.Get(ref.Identifier)
		return ok
	case KindConfiguration, KindItemCollection, KindLayoutCollection:
		return true
	case KindNone:
		return false
	default:
		return false
	}
}

// RepSet is the ordered set of every rep of the site.
type RepSet struct {
	reps   []*ItemRep
	byRef  map[Ref]*ItemRep
	byItem map[string][]*ItemRep
}

// NewRepSet creates a rep set.
func NewRepSet(reps ...*ItemRep) *RepSet {
	s := &RepSet{byRef: map[Ref]*ItemRep{}, byItem: map[string][]*ItemRep{}}
	for _, r := range reps {
		s.Add(r)
	}
	return s
}

// Add appends a rep.
func (s *RepSet) Add(r *ItemRep) {
	s.reps = append(s.reps, r)
	s.byRef[r.Ref()] = r
	s.byItem[r.Item.Identifier] = append(s.byItem[r.Item.Identifier], r)
}

// Get looks up a rep by ref.
func (s *RepSet) Get(ref Ref) (*ItemRep, bool) {
	r, ok := s.byRef[ref]
	return r, ok
}

// ForItem returns the reps of one item, in rule order.
func (s *RepSet) ForItem(identifier string) []*ItemRep {
	return s.byItem[identifier]
}

// All returns every rep.
func (s *RepSet) All() []*ItemRep {
	out := make([]*ItemRep, len(s.reps))
	copy(out, s.reps)
	return out
}

// Len returns the number of reps.
func (s *RepSet) Len() int { return len(s.reps) }
