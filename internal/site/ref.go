package site

import (
	"fmt"
	"strings"
)

// Kind enumerates the object kinds that participate in the dependency graph.
type Kind int

const (
	// KindNone is the "outside world" sentinel. Edges whose source object
	// was removed since the previous run are loaded with a KindNone source.
	KindNone Kind = iota
	KindItem
	KindItemRep
	KindLayout
	KindConfiguration
	KindItemCollection
	KindLayoutCollection
)

var kindNames = map[Kind]string{
	KindNone:             "none",
	KindItem:             "item",
	KindItemRep:          "rep",
	KindLayout:           "layout",
	KindConfiguration:    "config",
	KindItemCollection:   "items",
	KindLayoutCollection: "layouts",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Ref is the stable identity of a compilable object.
// Identifier is empty for the configuration and the collections, and Rep is
// set only for item reps.
type Ref struct {
	Kind       Kind
	Identifier string
	Rep        string
}

// None is the outside-world sentinel ref.
var None = Ref{Kind: KindNone}

// ItemRef names an item.
func ItemRef(identifier string) Ref { return Ref{Kind: KindItem, Identifier: identifier} }

// RepRef names one representation of an item.
func RepRef(identifier, rep string) Ref {
	return Ref{Kind: KindItemRep, Identifier: identifier, Rep: rep}
}

// LayoutRef names a layout.
func LayoutRef(identifier string) Ref { return Ref{Kind: KindLayout, Identifier: identifier} }

// ConfigRef names the site configuration.
func ConfigRef() Ref { return Ref{Kind: KindConfiguration} }

// ItemCollectionRef names the collection of all items.
func ItemCollectionRef() Ref { return Ref{Kind: KindItemCollection} }

// LayoutCollectionRef names the collection of all layouts.
func LayoutCollectionRef() Ref { return Ref{Kind: KindLayoutCollection} }

// IsNone reports whether r is the outside-world sentinel.
func (r Ref) IsNone() bool { return r.Kind == KindNone }

// Fold maps an item rep to its owning item. Other refs are returned as is.
func (r Ref) Fold() Ref {
	if r.Kind == KindItemRep {
		return ItemRef(r.Identifier)
	}
	return r
}

// String renders the ref in its persisted form, e.g. "item:/foo.md",
// "rep:/foo.md#default", "config" or "items".
func (r Ref) String() string {
	switch r.Kind {
	case KindItem, KindLayout:
		return r.Kind.String() + ":" + r.Identifier
	case KindItemRep:
		return "rep:" + r.Identifier + "#" + r.Rep
	default:
		return r.Kind.String()
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Ref) UnmarshalText(text []byte) error {
	parsed, err := ParseRef(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRef parses the form produced by Ref.String.
func ParseRef(s string) (Ref, error) {
	switch s {
	case "none":
		return None, nil
	case "config":
		return ConfigRef(), nil
	case "items":
		return ItemCollectionRef(), nil
	case "layouts":
		return LayoutCollectionRef(), nil
	}

	kind, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return Ref{}, fmt.Errorf("invalid ref %q", s)
	}
	switch kind {
	case "item":
		return ItemRef(rest), nil
	case "layout":
		return LayoutRef(rest), nil
	case "rep":
		i := strings.LastIndex(rest, "#")
		if i <= 0 || i == len(rest)-1 {
			return Ref{}, fmt.Errorf("invalid rep ref %q", s)
		}
		return RepRef(rest[:i], rest[i+1:]), nil
	default:
		return Ref{}, fmt.Errorf("invalid ref kind %q in %q", kind, s)
	}
}
