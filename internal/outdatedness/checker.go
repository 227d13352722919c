package outdatedness

import (
	"fmt"
	"slices"

	"github.com/Reality2byte/nanoc/internal/deps"
	"github.com/Reality2byte/nanoc/internal/site"
)

// Checker computes basic statuses once and propagates outdatedness through
// the dependency graph.
type Checker struct {
	in    Inputs
	basic *BasicChecker
}

// NewChecker creates a checker.
func NewChecker(in Inputs) *Checker {
	return &Checker{in: in, basic: NewBasicChecker(in)}
}

// Result is the outcome of one check. It is computed once per run and is
// read-only afterwards.
type Result struct {
	statuses       map[site.Ref]Status
	outdatedByDeps map[site.Ref]bool
}

// Run evaluates every object and propagates outdatedness.
func (c *Checker) Run() (*Result, error) {
	statuses, seeds, err := c.basicStatuses()
	if err != nil {
		return nil, err
	}
	outdated, err := c.propagate(statuses, seeds)
	if err != nil {
		return nil, err
	}
	return &Result{statuses: statuses, outdatedByDeps: outdated}, nil
}

func (c *Checker) objects() []site.Ref {
	s := c.in.Site
	refs := []site.Ref{site.ConfigRef(), site.LayoutCollectionRef(), site.ItemCollectionRef()}
	for _, l := range s.Layouts.All() {
		refs = append(refs, l.Ref())
	}
	for _, i := range s.Items.All() {
		refs = append(refs, i.Ref())
	}
	for _, r := range s.Reps.All() {
		refs = append(refs, r.Ref())
	}
	return refs
}

func (c *Checker) basicStatuses() (map[site.Ref]Status, []site.Ref, error) {
	statuses := map[site.Ref]Status{}
	var seeds []site.Ref
	for _, ref := range c.objects() {
		status, err := c.basic.StatusFor(ref)
		if err != nil {
			return nil, nil, err
		}
		statuses[ref] = status
		if status.Outdated() {
			seeds = append(seeds, ref)
		}
	}
	return statuses, seeds, nil
}

// hasDirectReasons reports whether an item or any of its reps has a direct
// reason. Such items are recompiled regardless of their dependencies.
func (c *Checker) hasDirectReasons(statuses map[site.Ref]Status, ref site.Ref) bool {
	if statuses[ref].Outdated() {
		return true
	}
	if ref.Kind != site.KindItem {
		return false
	}
	for _, rep := range c.in.Site.Reps.ForItem(ref.Identifier) {
		if statuses[rep.Ref()].Outdated() {
			return true
		}
	}
	return false
}

// activeStatus returns the status whose props describe what changed about
// from. For items it also folds in the reps' reasons: a rep whose rules
// changed has changed compiled content even if the item itself did not.
func (c *Checker) activeStatus(statuses map[site.Ref]Status, from site.Ref) Status {
	status := statuses[from]
	if from.Kind != site.KindItem {
		return status
	}
	for _, rep := range c.in.Site.Reps.ForItem(from.Identifier) {
		rs := statuses[rep.Ref()]
		status = Status{
			Reasons: append(slices.Clone(status.Reasons), rs.Reasons...),
			Props:   status.Props.Merge(rs.Props),
		}
	}
	return status
}

// propagate walks "who read me" edges breadth first, starting from the
// outside-world sentinel, the two collections and every object with a
// direct reason. Collections are always visited because a query by
// attribute value can be affected by a member change that gives the
// collection itself no reason.
func (c *Checker) propagate(statuses map[site.Ref]Status, seeds []site.Ref) (map[site.Ref]bool, error) {
	outdated := map[site.Ref]bool{}
	seen := map[site.Ref]bool{}
	pending := append([]site.Ref{site.None, site.ItemCollectionRef(), site.LayoutCollectionRef()}, seeds...)

	for len(pending) > 0 {
		obj := pending[0].Fold()
		pending = pending[1:]
		if seen[obj] {
			continue
		}
		seen[obj] = true

		for _, dep := range c.in.Dependencies.DependenciesOutdatedBecauseOf(obj) {
			if c.hasDirectReasons(statuses, dep.To) || outdated[dep.To] {
				continue
			}

			causes, err := c.causesOutdatedness(statuses, outdated, dep)
			if err != nil {
				return nil, err
			}
			if causes {
				outdated[dep.To] = true
				pending = append(pending, dep.To)
			}
		}
	}
	return outdated, nil
}

func (c *Checker) causesOutdatedness(statuses map[site.Ref]Status, outdated map[site.Ref]bool, dep deps.Dependency) (bool, error) {
	switch dep.From.Kind {
	case site.KindNone:
		return true, nil

	case site.KindItemCollection, site.KindLayoutCollection:
		raw, err := c.rawContentPropCausesOutdatedness(statuses[dep.From], dep.Props)
		if err != nil || raw {
			return raw, err
		}
		return c.attributesPropCausesOutdatedness(dep.From, dep.Props)

	case site.KindItem, site.KindLayout, site.KindConfiguration:
		status := c.activeStatus(statuses, dep.From)
		active := status.Props.Active() & dep.Props.Active()
		if attributesUnaffected(status, dep) {
			active &^= deps.BitAttributes
		}
		return active != 0 || (dep.Props.CompiledContent && outdated[dep.From]), nil

	case site.KindItemRep:
		return false, site.Inconsistency("unfolded rep in dependency graph: %s", dep.From)
	default:
		return false, site.Inconsistency("unexpected object kind in dependency graph: %s", dep.From)
	}
}

// attributesUnaffected reports whether the edge names specific attribute
// keys and none of them changed.
func attributesUnaffected(status Status, dep deps.Dependency) bool {
	if len(dep.Props.AttributeKeys) == 0 || dep.Props.Attributes {
		return false
	}
	var changed []string
	found := false
	for _, r := range status.Reasons {
		if am, ok := r.(AttributesModified); ok {
			found = true
			changed = append(changed, am.Attributes...)
		}
	}
	if !found {
		return false
	}
	for _, key := range dep.Props.AttributeKeys {
		if slices.Contains(changed, key) {
			return false
		}
	}
	return true
}

func (c *Checker) rawContentPropCausesOutdatedness(collStatus Status, props deps.Props) (bool, error) {
	if !props.RawContent && len(props.RawContentPatterns) == 0 {
		return false, nil
	}
	var added *DocumentAdded
	for _, r := range collStatus.Reasons {
		if da, ok := r.(DocumentAdded); ok {
			added = &da
			break
		}
	}
	if added == nil {
		return false, nil
	}
	if props.RawContent {
		return true, nil
	}

	patterns, err := site.ParsePatterns(props.RawContentPatterns)
	if err != nil {
		return false, site.Inconsistency("stored raw content pattern: %v", err)
	}
	for _, id := range added.Identifiers {
		if site.MatchAny(patterns, id) {
			return true, nil
		}
	}
	return false, nil
}

// attributesPropCausesOutdatedness checks collection queries by attribute
// value. An attribute whose checksum did not change cannot cause
// outdatedness. One that changed does if either its old or its new value
// equals the queried value.
func (c *Checker) attributesPropCausesOutdatedness(coll site.Ref, props deps.Props) (bool, error) {
	if props.Active()&deps.BitAttributes == 0 {
		return false, nil
	}
	if props.Attributes || len(props.AttributeKeys) > 0 {
		return false, site.Inconsistency("collection dependency on %s must use attribute pairs", coll)
	}
	if len(props.AttributePairs) == 0 {
		return false, site.Inconsistency("collection dependency on %s has no attribute pairs", coll)
	}

	sum := c.in.Checksums.Checksummer()
	type wanted struct{ key, checksum string }
	var want []wanted
	for _, pair := range props.AttributePairs {
		cs, err := sum.Value(pair.Value)
		if err != nil {
			return false, fmt.Errorf("attribute pair %q: %w", pair.Key, err)
		}
		want = append(want, wanted{pair.Key, cs})
	}

	for _, ref := range c.members(coll) {
		old := c.in.ChecksumStore.AttributesChecksumFor(ref)
		current, err := c.in.Checksums.AttributesChecksumFor(ref)
		if err != nil {
			return false, err
		}
		for _, w := range want {
			newValue := current[w.key]
			if old == nil {
				if newValue == w.checksum {
					return true, nil
				}
				continue
			}
			oldValue := old[w.key]
			if oldValue == newValue {
				continue
			}
			if oldValue == w.checksum || newValue == w.checksum {
				return true, nil
			}
		}
	}
	return false, nil
}

func (c *Checker) members(coll site.Ref) []site.Ref {
	var refs []site.Ref
	if coll.Kind == site.KindLayoutCollection {
		for _, l := range c.in.Site.Layouts.All() {
			refs = append(refs, l.Ref())
		}
		return refs
	}
	for _, i := range c.in.Site.Items.All() {
		refs = append(refs, i.Ref())
	}
	return refs
}

// StatusFor returns the direct status of ref.
func (r *Result) StatusFor(ref site.Ref) Status {
	return r.statuses[ref]
}

// OutdatedDueToDependencies reports whether ref, folded to its item, was
// marked outdated by propagation.
func (r *Result) OutdatedDueToDependencies(ref site.Ref) bool {
	return r.outdatedByDeps[ref.Fold()]
}

// ReasonsFor returns the direct reasons of ref, or DependenciesOutdated if
// it has none but was reached by propagation, or nothing.
func (r *Result) ReasonsFor(ref site.Ref) []Reason {
	if status := r.statuses[ref]; status.Outdated() {
		return status.Reasons
	}
	if r.OutdatedDueToDependencies(ref) {
		return []Reason{DependenciesOutdated{}}
	}
	return nil
}

// IsOutdated reports whether ref has any reason.
func (r *Result) IsOutdated(ref site.Ref) bool {
	return len(r.ReasonsFor(ref)) > 0
}
