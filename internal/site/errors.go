package site

import (
	"errors"
	"fmt"
)

// InternalInconsistencyError reports a violated invariant inside the
// compiler. It signals a bug, never bad user input, and is never recovered.
type InternalInconsistencyError struct {
	Message string
}

func (e *InternalInconsistencyError) Error() string {
	return "internal inconsistency: " + e.Message
}

// Inconsistency builds an InternalInconsistencyError.
func Inconsistency(format string, args ...any) error {
	return &InternalInconsistencyError{Message: fmt.Sprintf(format, args...)}
}

// IsInternalInconsistency reports whether err wraps an InternalInconsistencyError.
func IsInternalInconsistency(err error) bool {
	var ie *InternalInconsistencyError
	return errors.As(err, &ie)
}

// UnknownObjectError is returned by lookups for objects that do not exist.
type UnknownObjectError struct {
	Ref Ref
}

func (e *UnknownObjectError) Error() string {
	return fmt.Sprintf("unknown object %s", e.Ref)
}
