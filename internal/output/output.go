// Package output writes compiled reps to their destination.
package output

import (
	"context"
	"fmt"
	"strings"

	"github.com/Reality2byte/nanoc/internal/site"
)

// Action says what a write did to the destination.
type Action string

const (
	Create    Action = "create"
	Update    Action = "update"
	Identical Action = "identical"
)

// Written is one path written for a rep.
type Written struct {
	Snapshot string
	Path     string
	Action   Action
}

// Destination stores output files.
type Destination interface {
	// Write stores data at path, relative to the output root. Writing
	// bytes equal to what is already stored returns Identical and leaves
	// the stored file untouched.
	Write(ctx context.Context, path string, data []byte) (Action, error)
}

// RepWriter writes every snapshot of a rep that has an output path.
type RepWriter struct {
	Dest Destination
}

// WriteRep writes the snapshots of rep to their paths, in snapshot name
// order.
func (w RepWriter) WriteRep(ctx context.Context, rep *site.ItemRep, snapshots map[string][]byte) ([]Written, error) {
	var written []Written
	for _, name := range rep.WrittenSnapshots() {
		data, ok := snapshots[name]
		if !ok {
			return written, fmt.Errorf("%s: snapshot %q has an output path but was never taken", rep, name)
		}
		for _, p := range rep.Paths[name] {
			action, err := w.Dest.Write(ctx, p, data)
			if err != nil {
				return written, fmt.Errorf("write %s: %w", p, err)
			}
			written = append(written, Written{Snapshot: name, Path: p, Action: action})
		}
	}
	return written, nil
}

// cleanPath strips leading slashes so paths stay below the output root.
func cleanPath(p string) (string, error) {
	p = strings.TrimLeft(strings.TrimSpace(p), "/")
	if p == "" {
		return "", fmt.Errorf("empty output path")
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("output path %q escapes the output root", p)
		}
	}
	return p, nil
}
