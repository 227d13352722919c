package view

import (
	"errors"
	"fmt"

	"github.com/Reality2byte/nanoc/internal/site"
)

// UnmetDependencyError signals that a snapshot of another rep is not
// available yet. It is a suspension signal, never a user-facing failure.
type UnmetDependencyError struct {
	Rep      site.Ref
	Snapshot string
}

func (e *UnmetDependencyError) Error() string {
	return fmt.Sprintf("unmet dependency on %s (snapshot %s)", e.Rep, e.Snapshot)
}

// AsUnmetDependency extracts an UnmetDependencyError from err's chain.
func AsUnmetDependency(err error) (*UnmetDependencyError, bool) {
	var ue *UnmetDependencyError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// NoSuchSnapshotError reports a read of a snapshot the rep never takes.
type NoSuchSnapshotError struct {
	Rep      site.Ref
	Snapshot string
}

func (e *NoSuchSnapshotError) Error() string {
	return fmt.Sprintf("%s has no snapshot named %q", e.Rep, e.Snapshot)
}
