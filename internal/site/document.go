package site

import (
	"slices"

	"github.com/Reality2byte/nanoc/internal/ir"
)

// Document is the content-and-attributes core shared by items and layouts.
type Document struct {
	Identifier string
	Content    []byte
	Attributes ir.IRObject
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.Identifier }

// Attribute returns a single attribute value.
func (d *Document) Attribute(key string) (ir.IRValue, bool) {
	return d.Attributes.Get(key)
}

// Item is a source content unit with one or more reps.
type Item struct {
	Document
}

// NewItem creates an item. A nil attribute map becomes empty.
func NewItem(identifier string, content []byte, attrs ir.IRObject) *Item {
	if attrs == nil {
		attrs = ir.IRObject{}
	}
	return &Item{Document{Identifier: identifier, Content: content, Attributes: attrs}}
}

// Ref returns the item's identity.
func (i *Item) Ref() Ref { return ItemRef(i.Identifier) }

// Layout is a template applied by layout actions. Layouts have no reps.
type Layout struct {
	Document
}

// NewLayout creates a layout. A nil attribute map becomes empty.
func NewLayout(identifier string, content []byte, attrs ir.IRObject) *Layout {
	if attrs == nil {
		attrs = ir.IRObject{}
	}
	return &Layout{Document{Identifier: identifier, Content: content, Attributes: attrs}}
}

// Ref returns the layout's identity.
func (l *Layout) Ref() Ref { return LayoutRef(l.Identifier) }

// Configuration is the site-wide attribute mapping.
type Configuration struct {
	Attributes ir.IRObject
}

// Ref returns the configuration's identity.
func (c *Configuration) Ref() Ref { return ConfigRef() }

// ItemRep is one compiled representation of an item.
type ItemRep struct {
	Item *Item
	Name string

	// Paths maps snapshot names to output paths, relative to the output
	// root. Snapshots without a path are not written.
	Paths map[string][]string

	compiled bool
}

// NewItemRep creates a rep for item.
func NewItemRep(item *Item, name string) *ItemRep {
	return &ItemRep{Item: item, Name: name, Paths: map[string][]string{}}
}

// Ref returns the rep's identity.
func (r *ItemRep) Ref() Ref { return RepRef(r.Item.Identifier, r.Name) }

// Compiled reports whether every action of the rep has executed.
func (r *ItemRep) Compiled() bool { return r.compiled }

// MarkCompiled flags the rep as fully compiled.
func (r *ItemRep) MarkCompiled() { r.compiled = true }

// WrittenSnapshots returns the snapshot names that have output paths, sorted.
func (r *ItemRep) WrittenSnapshots() []string {
	names := make([]string, 0, len(r.Paths))
	for name, paths := range r.Paths {
		if len(paths) > 0 {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func (r *ItemRep) String() string { return r.Ref().String() }
