package outdatedness

import (
	"github.com/Reality2byte/nanoc/internal/checksums"
	"github.com/Reality2byte/nanoc/internal/deps"
	"github.com/Reality2byte/nanoc/internal/site"
)

// Rule inspects one object and returns at most one reason.
type Rule interface {
	Name() string
	// AffectedProps is the set of data kinds that change when the rule fires.
	AffectedProps() uint8
	Apply(ref site.Ref, b *BasicChecker) (Reason, error)
}

// rulesFor returns the ordered rule battery for a kind.
func rulesFor(kind site.Kind) ([]Rule, error) {
	switch kind {
	case site.KindItem:
		return []Rule{documentAdded{}, notEnoughData{}, contentModified{}, attributesModified{}}, nil
	case site.KindItemRep:
		return []Rule{documentAdded{}, notEnoughData{}, contentModified{}, attributesModified{}, codeOutdated{}}, nil
	case site.KindLayout:
		return []Rule{documentAdded{}, notEnoughData{}, contentModified{}, attributesModified{}, codeOutdated{}}, nil
	case site.KindConfiguration:
		return []Rule{notEnoughData{}, attributesModified{}}, nil
	case site.KindItemCollection:
		return []Rule{itemAdded{}}, nil
	case site.KindLayoutCollection:
		return []Rule{layoutAdded{}}, nil
	case site.KindNone:
		return nil, site.Inconsistency("no outdatedness rules for %s", kind)
	default:
		return nil, site.Inconsistency("unexpected object kind %s", kind)
	}
}

// documentAdded fires for items, reps and layouts that the previous run's
// dependency store did not know.
type documentAdded struct{}

func (documentAdded) Name() string         { return "DocumentAdded" }
func (documentAdded) AffectedProps() uint8 { return deps.BitsAll }

func (documentAdded) Apply(ref site.Ref, b *BasicChecker) (Reason, error) {
	if b.deps.IsNew(ref) {
		return DocumentAdded{Identifiers: []string{ref.Identifier}}, nil
	}
	return nil, nil
}

// notEnoughData fires when an existing object has no stored checksums.
type notEnoughData struct{}

func (notEnoughData) Name() string         { return "NotEnoughData" }
func (notEnoughData) AffectedProps() uint8 { return deps.BitsAll }

func (notEnoughData) Apply(ref site.Ref, b *BasicChecker) (Reason, error) {
	if b.deps.IsNew(ref) || b.checksumStore.Has(ref) {
		return nil, nil
	}
	return NotEnoughData{}, nil
}

type contentModified struct{}

func (contentModified) Name() string         { return "ContentModified" }
func (contentModified) AffectedProps() uint8 { return deps.BitRawContent | deps.BitCompiledContent }

func (contentModified) Apply(ref site.Ref, b *BasicChecker) (Reason, error) {
	old, ok := b.checksumStore.ContentChecksumFor(ref)
	if !ok {
		return nil, nil
	}
	current, err := b.checksums.ContentChecksumFor(ref)
	if err != nil {
		return nil, err
	}
	if old != current {
		return ContentModified{}, nil
	}
	return nil, nil
}

type attributesModified struct{}

func (attributesModified) Name() string { return "AttributesModified" }
func (attributesModified) AffectedProps() uint8 {
	return deps.BitAttributes | deps.BitCompiledContent
}

func (attributesModified) Apply(ref site.Ref, b *BasicChecker) (Reason, error) {
	old := b.checksumStore.AttributesChecksumFor(ref)
	if old == nil {
		return nil, nil
	}
	current, err := b.checksums.AttributesChecksumFor(ref)
	if err != nil {
		return nil, err
	}
	if changed := checksums.ChangedAttributes(old, current); len(changed) > 0 {
		return AttributesModified{Attributes: changed}, nil
	}
	return nil, nil
}

// codeOutdated compares action sequence checksums. New objects are covered
// by documentAdded.
type codeOutdated struct{}

func (codeOutdated) Name() string         { return "CodeOutdated" }
func (codeOutdated) AffectedProps() uint8 { return deps.BitCompiledContent }

func (codeOutdated) Apply(ref site.Ref, b *BasicChecker) (Reason, error) {
	if b.deps.IsNew(ref) {
		return nil, nil
	}
	seq, ok := b.actionSequences[ref]
	if !ok {
		return nil, site.Inconsistency("no action sequence for %s", ref)
	}
	current, err := seq.Checksum(b.checksums.Checksummer())
	if err != nil {
		return nil, err
	}
	if old, ok := b.actionSequenceStore.Get(ref); !ok || old != current {
		return CodeOutdated{}, nil
	}
	return nil, nil
}

type itemAdded struct{}

func (itemAdded) Name() string         { return "ItemAdded" }
func (itemAdded) AffectedProps() uint8 { return deps.BitRawContent }

func (itemAdded) Apply(_ site.Ref, b *BasicChecker) (Reason, error) {
	if ids := b.deps.NewItems(); len(ids) > 0 {
		return DocumentAdded{Identifiers: ids}, nil
	}
	return nil, nil
}

type layoutAdded struct{}

func (layoutAdded) Name() string         { return "LayoutAdded" }
func (layoutAdded) AffectedProps() uint8 { return deps.BitRawContent }

func (layoutAdded) Apply(_ site.Ref, b *BasicChecker) (Reason, error) {
	if ids := b.deps.NewLayouts(); len(ids) > 0 {
		return DocumentAdded{Identifiers: ids}, nil
	}
	return nil, nil
}
