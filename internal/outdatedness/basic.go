package outdatedness

import (
	"fmt"

	"github.com/Reality2byte/nanoc/internal/checksums"
	"github.com/Reality2byte/nanoc/internal/deps"
	"github.com/Reality2byte/nanoc/internal/site"
)

// Status aggregates the direct reasons of one object together with the
// data kinds those reasons affect.
type Status struct {
	Reasons []Reason
	Props   deps.Props
}

// Outdated reports whether any rule fired.
func (s Status) Outdated() bool { return len(s.Reasons) > 0 }

// Has reports whether a reason of the same type as r is present.
func (s Status) Has(r Reason) bool {
	name := ReasonName(r)
	for _, x := range s.Reasons {
		if ReasonName(x) == name {
			return true
		}
	}
	return false
}

func (s Status) update(r Reason, bits uint8) Status {
	props := deps.PropsFromBits(bits)
	if am, ok := r.(AttributesModified); ok && bits&deps.BitAttributes != 0 {
		props.Attributes = false
		props.AttributeKeys = am.Attributes
	}
	return Status{
		Reasons: append(s.Reasons, r),
		Props:   s.Props.Merge(props),
	}
}

// Inputs are the stores and current-run data an outdatedness check reads.
type Inputs struct {
	Site                *site.Site
	Checksums           *checksums.Collection
	ChecksumStore       *checksums.Store
	Dependencies        *deps.Store
	ActionSequenceStore *checksums.ActionSequenceStore
	// ActionSequences holds the sequence of every rep and the filter
	// sequence of every layout.
	ActionSequences map[site.Ref]*site.ActionSequence
}

// BasicChecker evaluates the rule battery of each object kind. It never
// looks at dependencies between objects.
type BasicChecker struct {
	site                *site.Site
	checksums           *checksums.Collection
	checksumStore       *checksums.Store
	deps                *deps.Store
	actionSequenceStore *checksums.ActionSequenceStore
	actionSequences     map[site.Ref]*site.ActionSequence
}

// NewBasicChecker creates a basic checker.
func NewBasicChecker(in Inputs) *BasicChecker {
	return &BasicChecker{
		site:                in.Site,
		checksums:           in.Checksums,
		checksumStore:       in.ChecksumStore,
		deps:                in.Dependencies,
		actionSequenceStore: in.ActionSequenceStore,
		actionSequences:     in.ActionSequences,
	}
}

// StatusFor applies every rule for ref's kind and collects all reasons.
func (b *BasicChecker) StatusFor(ref site.Ref) (Status, error) {
	rules, err := rulesFor(ref.Kind)
	if err != nil {
		return Status{}, err
	}

	var status Status
	for _, rule := range rules {
		reason, err := rule.Apply(ref, b)
		if err != nil {
			return Status{}, fmt.Errorf("rule %s on %s: %w", rule.Name(), ref, err)
		}
		if reason != nil {
			status = status.update(reason, rule.AffectedProps())
		}
	}
	return status, nil
}
