package outdatedness

import (
	"fmt"
	"strings"
)

// Reason is evidence that an object must be recompiled.
type Reason interface {
	reason()
	Message() string
}

// DocumentAdded reports objects that did not exist in the previous run.
type DocumentAdded struct {
	Identifiers []string
}

// AttributesModified reports changed attribute keys.
type AttributesModified struct {
	Attributes []string
}

// ContentModified reports a changed raw content checksum.
type ContentModified struct{}

// NotEnoughData reports that the previous run left no record to compare with.
type NotEnoughData struct{}

// CodeOutdated reports that the rules producing the action sequence changed.
type CodeOutdated struct{}

// DependenciesOutdated reports that data this object read has changed.
type DependenciesOutdated struct{}

func (DocumentAdded) reason()        {}
func (AttributesModified) reason()   {}
func (ContentModified) reason()      {}
func (NotEnoughData) reason()        {}
func (CodeOutdated) reason()         {}
func (DependenciesOutdated) reason() {}

func (r DocumentAdded) Message() string {
	return fmt.Sprintf("new documents were added (%s)", strings.Join(r.Identifiers, ", "))
}

func (r AttributesModified) Message() string {
	return fmt.Sprintf("the attributes have been modified (%s)", strings.Join(r.Attributes, ", "))
}

func (ContentModified) Message() string {
	return "the content has been modified since the last time the site was compiled"
}

func (NotEnoughData) Message() string {
	return "not enough data is present to correctly determine whether the item is outdated"
}

func (CodeOutdated) Message() string { return "the rules that produce this object have changed" }

func (DependenciesOutdated) Message() string {
	return "this item uses content or attributes that have changed since the last time the site was compiled"
}

// ReasonName returns a short stable name for r, used in reports and tests.
func ReasonName(r Reason) string {
	switch r.(type) {
	case DocumentAdded:
		return "DocumentAdded"
	case AttributesModified:
		return "AttributesModified"
	case ContentModified:
		return "ContentModified"
	case NotEnoughData:
		return "NotEnoughData"
	case CodeOutdated:
		return "CodeOutdated"
	case DependenciesOutdated:
		return "DependenciesOutdated"
	default:
		return fmt.Sprintf("%T", r)
	}
}

// ReasonNames maps ReasonName over rs.
func ReasonNames(rs []Reason) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = ReasonName(r)
	}
	return out
}
