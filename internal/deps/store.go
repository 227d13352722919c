package deps

import (
	"slices"
	"strings"

	"github.com/Reality2byte/nanoc/internal/site"
)

// Dependency is one edge of the graph: compiling To read Props of From.
type Dependency struct {
	From  site.Ref
	To    site.Ref
	Props Props
}

// Snapshot is the persisted form of the graph.
// Vertices lists the items and layouts that existed when it was taken.
type Snapshot struct {
	Vertices []site.Ref
	Edges    []Dependency
}

// Store is the dependency graph for one run.
//
// Store is not safe for concurrent use. The compiler mutates it from a
// single goroutine.
type Store struct {
	objects []site.Ref
	byTo    map[site.Ref]map[site.Ref]Props
	byFrom  map[site.Ref]map[site.Ref]struct{}

	newItems   []string
	newLayouts []string
	isNew      map[site.Ref]bool
}

// Load builds the store for the objects of s from the previous run's
// snapshot. A nil snapshot means there was no previous run, so every item
// and layout is new.
//
// Edges whose source no longer exists are attached to site.None. Edges whose
// dependent no longer exists are dropped.
func Load(s *site.Site, prev *Snapshot) *Store {
	st := &Store{
		byTo:   map[site.Ref]map[site.Ref]Props{},
		byFrom: map[site.Ref]map[site.Ref]struct{}{},
		isNew:  map[site.Ref]bool{},
	}

	known := map[site.Ref]bool{}
	if prev != nil {
		for _, v := range prev.Vertices {
			known[v] = true
		}
	}

	for _, item := range s.Items.All() {
		ref := item.Ref()
		st.objects = append(st.objects, ref)
		if !known[ref] {
			st.newItems = append(st.newItems, item.Identifier)
			st.isNew[ref] = true
		}
	}
	for _, layout := range s.Layouts.All() {
		ref := layout.Ref()
		st.objects = append(st.objects, ref)
		if !known[ref] {
			st.newLayouts = append(st.newLayouts, layout.Identifier)
			st.isNew[ref] = true
		}
	}

	if prev == nil {
		return st
	}
	for _, edge := range prev.Edges {
		if !s.Exists(edge.To) {
			continue
		}
		from := edge.From
		if !s.Exists(from) {
			from = site.None
		}
		st.add(from, edge.To, edge.Props)
	}
	return st
}

// NewItems returns identifiers of items absent from the previous run.
func (st *Store) NewItems() []string { return slices.Clone(st.newItems) }

// NewLayouts returns identifiers of layouts absent from the previous run.
func (st *Store) NewLayouts() []string { return slices.Clone(st.newLayouts) }

// IsNew reports whether the item or layout did not exist in the previous run.
func (st *Store) IsNew(ref site.Ref) bool { return st.isNew[ref.Fold()] }

// Record merges props into the edge from -> to. Reps are folded to their
// item. Self edges and empty props are ignored.
func (st *Store) Record(from, to site.Ref, props Props) {
	from, to = from.Fold(), to.Fold()
	if from == to || props.IsZero() {
		return
	}
	st.add(from, to, props)
}

func (st *Store) add(from, to site.Ref, props Props) {
	froms, ok := st.byTo[to]
	if !ok {
		froms = map[site.Ref]Props{}
		st.byTo[to] = froms
	}
	froms[from] = froms[from].Merge(props)

	tos, ok := st.byFrom[from]
	if !ok {
		tos = map[site.Ref]struct{}{}
		st.byFrom[from] = tos
	}
	tos[to] = struct{}{}
}

// DependenciesOutdatedBecauseOf returns the edges whose source is from, that
// is every object that read from's data, ordered by dependent.
func (st *Store) DependenciesOutdatedBecauseOf(from site.Ref) []Dependency {
	from = from.Fold()
	out := make([]Dependency, 0, len(st.byFrom[from]))
	for to := range st.byFrom[from] {
		out = append(out, Dependency{From: from, To: to, Props: st.byTo[to][from]})
	}
	sortDependencies(out)
	return out
}

// DependenciesCausingOutdatednessOf returns the edges whose dependent is to.
func (st *Store) DependenciesCausingOutdatednessOf(to site.Ref) []Dependency {
	to = to.Fold()
	out := make([]Dependency, 0, len(st.byTo[to]))
	for from, props := range st.byTo[to] {
		out = append(out, Dependency{From: from, To: to, Props: props})
	}
	sortDependencies(out)
	return out
}

// ForgetDependenciesFor drops every edge whose dependent is to, so the
// edges recorded by its next compilation replace them.
func (st *Store) ForgetDependenciesFor(to site.Ref) {
	to = to.Fold()
	for from := range st.byTo[to] {
		delete(st.byFrom[from], to)
		if len(st.byFrom[from]) == 0 {
			delete(st.byFrom, from)
		}
	}
	delete(st.byTo, to)
}

// Edges returns every edge, ordered by dependent then source.
func (st *Store) Edges() []Dependency {
	var out []Dependency
	for to, froms := range st.byTo {
		for from, props := range froms {
			out = append(out, Dependency{From: from, To: to, Props: props})
		}
	}
	sortDependencies(out)
	return out
}

// Snapshot returns the persisted form of the store.
func (st *Store) Snapshot() Snapshot {
	return Snapshot{Vertices: slices.Clone(st.objects), Edges: st.Edges()}
}

func sortDependencies(deps []Dependency) {
	slices.SortFunc(deps, func(a, b Dependency) int {
		if c := strings.Compare(a.To.String(), b.To.String()); c != 0 {
			return c
		}
		return strings.Compare(a.From.String(), b.From.String())
	})
}
