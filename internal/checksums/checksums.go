// Package checksums computes and remembers digests of site objects.
//
// A Collection holds the current run's digests, computed lazily and kept for
// the lifetime of the run. A Store holds the digests persisted by the
// previous run. Comparing the two is how content and attribute changes are
// detected.
package checksums

import (
	"maps"
	"slices"
	"strings"

	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/site"
)

// Record is the set of digests kept for one object. Content is empty for
// the configuration, which has no content.
type Record struct {
	Ref        site.Ref
	Content    string
	Attributes map[string]string
}

// Collection computes digests for the current run.
//
// Collection is not safe for concurrent use.
type Collection struct {
	sum  ir.Checksummer
	site *site.Site

	content map[site.Ref]string
	attrs   map[site.Ref]map[string]string
}

// NewCollection returns an empty collection over the objects of s.
func NewCollection(sum ir.Checksummer, s *site.Site) *Collection {
	return &Collection{
		sum:     sum,
		site:    s,
		content: map[site.Ref]string{},
		attrs:   map[site.Ref]map[string]string{},
	}
}

// Checksummer returns the digest function in use.
func (c *Collection) Checksummer() ir.Checksummer { return c.sum }

// ContentChecksumFor returns the digest of an item's or layout's raw content.
func (c *Collection) ContentChecksumFor(ref site.Ref) (string, error) {
	ref = ref.Fold()
	if sum, ok := c.content[ref]; ok {
		return sum, nil
	}
	doc, err := c.document(ref)
	if err != nil {
		return "", err
	}
	sum := c.sum.Content(doc.Content)
	c.content[ref] = sum
	return sum, nil
}

// AttributesChecksumFor returns per-attribute digests of an item, layout or
// the configuration.
func (c *Collection) AttributesChecksumFor(ref site.Ref) (map[string]string, error) {
	ref = ref.Fold()
	if sums, ok := c.attrs[ref]; ok {
		return sums, nil
	}
	var attrs ir.IRObject
	if ref.Kind == site.KindConfiguration {
		attrs = c.site.Config.Attributes
	} else {
		doc, err := c.document(ref)
		if err != nil {
			return nil, err
		}
		attrs = doc.Attributes
	}
	sums, err := c.sum.AttributeMap(attrs)
	if err != nil {
		return nil, err
	}
	c.attrs[ref] = sums
	return sums, nil
}

// RecordFor returns every digest of one object.
func (c *Collection) RecordFor(ref site.Ref) (Record, error) {
	ref = ref.Fold()
	rec := Record{Ref: ref}
	if ref.Kind != site.KindConfiguration {
		content, err := c.ContentChecksumFor(ref)
		if err != nil {
			return Record{}, err
		}
		rec.Content = content
	}
	attrs, err := c.AttributesChecksumFor(ref)
	if err != nil {
		return Record{}, err
	}
	rec.Attributes = maps.Clone(attrs)
	return rec, nil
}

// Records returns the digests of the configuration, every item and every
// layout, ready to persist.
func (c *Collection) Records() ([]Record, error) {
	refs := []site.Ref{site.ConfigRef()}
	for _, item := range c.site.Items.All() {
		refs = append(refs, item.Ref())
	}
	for _, layout := range c.site.Layouts.All() {
		refs = append(refs, layout.Ref())
	}

	out := make([]Record, 0, len(refs))
	for _, ref := range refs {
		rec, err := c.RecordFor(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Collection) document(ref site.Ref) (*site.Document, error) {
	switch ref.Kind {
	case site.KindItem:
		if item, ok := c.site.Items.Get(ref.Identifier); ok {
			return &item.Document, nil
		}
	case site.KindLayout:
		if layout, ok := c.site.Layouts.Get(ref.Identifier); ok {
			return &layout.Document, nil
		}
	case site.KindItemRep, site.KindConfiguration, site.KindItemCollection,
		site.KindLayoutCollection, site.KindNone:
		return nil, site.Inconsistency("no content checksum for %s", ref)
	}
	return nil, &site.UnknownObjectError{Ref: ref}
}

// Store holds the digests persisted by the previous run.
type Store struct {
	records map[site.Ref]Record
}

// NewStore builds a store from persisted records.
func NewStore(records []Record) *Store {
	s := &Store{records: make(map[site.Ref]Record, len(records))}
	for _, r := range records {
		s.records[r.Ref] = r
	}
	return s
}

// Has reports whether any digest was stored for ref.
func (s *Store) Has(ref site.Ref) bool {
	_, ok := s.records[ref.Fold()]
	return ok
}

// ContentChecksumFor returns the stored content digest. ok is false for
// objects the previous run did not know.
func (s *Store) ContentChecksumFor(ref site.Ref) (sum string, ok bool) {
	rec, ok := s.records[ref.Fold()]
	return rec.Content, ok
}

// AttributesChecksumFor returns the stored per-attribute digests, or nil
// for objects the previous run did not know.
func (s *Store) AttributesChecksumFor(ref site.Ref) map[string]string {
	rec, ok := s.records[ref.Fold()]
	if !ok {
		return nil
	}
	if rec.Attributes == nil {
		return map[string]string{}
	}
	return rec.Attributes
}

// Records returns every stored record ordered by ref.
func (s *Store) Records() []Record {
	out := slices.Collect(maps.Values(s.records))
	slices.SortFunc(out, func(a, b Record) int {
		return strings.Compare(a.Ref.String(), b.Ref.String())
	})
	return out
}

// ChangedAttributes returns the sorted keys whose digest differs between
// old and current, including keys present on only one side.
func ChangedAttributes(old, current map[string]string) []string {
	var changed []string
	for k, v := range current {
		if ov, ok := old[k]; !ok || ov != v {
			changed = append(changed, k)
		}
	}
	for k := range old {
		if _, ok := current[k]; !ok {
			changed = append(changed, k)
		}
	}
	slices.Sort(changed)
	return changed
}
