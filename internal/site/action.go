package site

import (
	"fmt"
	"slices"

	"github.com/Reality2byte/nanoc/internal/ir"
)

// Well-known snapshot names.
const (
	SnapshotRaw  = "raw"
	SnapshotPre  = "pre"
	SnapshotPost = "post"
	SnapshotLast = "last"
)

// Action is one compilation step. Implementations are FilterAction,
// LayoutAction and SnapshotAction.
type Action interface {
	action()
	// Serialize returns the action's canonical form, which is checksummed
	// to detect rule changes.
	Serialize() ir.IRArray
	String() string
}

// FilterAction runs a named filter over the current content.
type FilterAction struct {
	Name   string
	Params ir.IRObject
}

func (FilterAction) action() {}

func (a FilterAction) Serialize() ir.IRArray {
	return ir.IRArray{ir.IRString("filter"), ir.IRString(a.Name), paramsOrEmpty(a.Params)}
}

func (a FilterAction) String() string { return "filter " + a.Name }

// LayoutAction wraps the current content in a layout.
type LayoutAction struct {
	Identifier string
	Params     ir.IRObject
}

func (LayoutAction) action() {}

func (a LayoutAction) Serialize() ir.IRArray {
	return ir.IRArray{ir.IRString("layout"), ir.IRString(a.Identifier), paramsOrEmpty(a.Params)}
}

func (a LayoutAction) String() string { return "layout " + a.Identifier }

// SnapshotAction copies the current content into one or more named slots.
// Paths lists the output paths the snapshot is written to, if any.
type SnapshotAction struct {
	Names []string
	Paths []string
}

func (SnapshotAction) action() {}

func (a SnapshotAction) Serialize() ir.IRArray {
	names := make(ir.IRArray, len(a.Names))
	for i, n := range a.Names {
		names[i] = ir.IRString(n)
	}
	paths := make(ir.IRArray, len(a.Paths))
	for i, p := range a.Paths {
		paths[i] = ir.IRString(p)
	}
	return ir.IRArray{ir.IRString("snapshot"), names, paths}
}

func (a SnapshotAction) String() string { return fmt.Sprintf("snapshot %v", a.Names) }

func paramsOrEmpty(p ir.IRObject) ir.IRObject {
	if p == nil {
		return ir.IRObject{}
	}
	return p
}

// ActionSequence is the ordered list of actions for one rep.
type ActionSequence struct {
	Rep     Ref
	Actions []Action
}

// Len returns the number of actions.
func (s *ActionSequence) Len() int { return len(s.Actions) }

// SnapshotNames returns every snapshot name taken by the sequence, in order.
func (s *ActionSequence) SnapshotNames() []string {
	var names []string
	for _, a := range s.Actions {
		if snap, ok := a.(SnapshotAction); ok {
			names = append(names, snap.Names...)
		}
	}
	return names
}

// HasSnapshot reports whether the sequence takes a snapshot named name.
func (s *ActionSequence) HasSnapshot(name string) bool {
	return slices.Contains(s.SnapshotNames(), name)
}

// Paths maps each snapshot name to its output paths.
func (s *ActionSequence) Paths() map[string][]string {
	out := map[string][]string{}
	for _, a := range s.Actions {
		snap, ok := a.(SnapshotAction)
		if !ok || len(snap.Paths) == 0 {
			continue
		}
		for _, name := range snap.Names {
			out[name] = append(out[name], snap.Paths...)
		}
	}
	return out
}

// Serialize returns the canonical form of every action.
func (s *ActionSequence) Serialize() ir.IRArray {
	out := make(ir.IRArray, len(s.Actions))
	for i, a := range s.Actions {
		out[i] = a.Serialize()
	}
	return out
}

// Checksum digests the sequence together with the compiler version, so
// edits to the rules and compiler upgrades both count as code changes.
func (s *ActionSequence) Checksum(c ir.Checksummer) (string, error) {
	return c.Structured(ir.DomainActionSequence, ir.IRObject{
		"compiler": ir.IRString(ir.CompilerVersion),
		"actions":  s.Serialize(),
	})
}
