package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Reality2byte/nanoc/internal/site"
)

// RuntimeError represents a fatal error detected while scheduling reps.
//
// Runtime errors include:
//   - Dependency cycle: reps wait on each other's compiled content
//   - Suspension quota exceeded: the selector kept suspending without progress
//   - Incomplete compilation: a rep ended the run without compiled content
//
// Runtime errors are never caused by a single filter; they are not
// attributed to one rep the way CompilationError is.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Reps lists the reps involved, in order. For cycles this is the
	// cycle path, starting and ending with the same rep.
	Reps []site.Ref

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeDependencyCycle indicates reps that wait on each other.
	ErrCodeDependencyCycle RuntimeErrorCode = "DEPENDENCY_CYCLE"

	// ErrCodeQuotaExceeded indicates too many suspensions in one run.
	ErrCodeQuotaExceeded RuntimeErrorCode = "SUSPENSION_QUOTA_EXCEEDED"

	// ErrCodeIncomplete indicates reps left without compiled content.
	ErrCodeIncomplete RuntimeErrorCode = "INCOMPLETE_COMPILATION"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if len(e.Reps) > 0 {
		names := make([]string, len(e.Reps))
		for i, r := range e.Reps {
			names[i] = r.String()
		}
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(names, " -> "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error { return e.Err }

// IsCycleError returns true if the error is a dependency cycle error.
// Uses errors.As to handle wrapped errors.
func IsCycleError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeDependencyCycle
	}
	return false
}

// IsQuotaError returns true if the error is a suspension quota error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and
// SuspensionsExceededError.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	var se *SuspensionsExceededError
	return errors.As(err, &se)
}

// NewCycleError creates a RuntimeError for a dependency cycle. path starts
// and ends with the same rep.
func NewCycleError(path []site.Ref) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeDependencyCycle,
		Message: "reps depend on each other's compiled content",
		Reps:    path,
	}
}

// NewQuotaError creates a RuntimeError for an exceeded suspension quota.
func NewQuotaError(cause *SuspensionsExceededError) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("compilation suspended too often (%d > %d)", cause.Suspensions, cause.Limit),
		Reps:    []site.Ref{cause.Rep},
		Err:     cause,
	}
}

// NewIncompleteError creates a RuntimeError for reps that ended a full
// run without compiled content. It wraps an internal inconsistency: this
// points at a scheduling or cache bug, never at the site.
func NewIncompleteError(missing []site.Ref) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeIncomplete,
		Message: "reps have no compiled content after compilation",
		Reps:    missing,
		Err:     site.Inconsistency("%d reps were not compiled", len(missing)),
	}
}

// CompilationError wraps an error raised while compiling a rep.
type CompilationError struct {
	Rep site.Ref
	Err error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compiling %s: %v", e.Rep, e.Err)
}

func (e *CompilationError) Unwrap() error { return e.Err }

// IsCompilationError returns true if err wraps a CompilationError.
func IsCompilationError(err error) bool {
	var ce *CompilationError
	return errors.As(err, &ce)
}

// attribute wraps err with rep's identity unless it already carries one or
// is a fatal runtime error.
func attribute(rep site.Ref, err error) error {
	var ce *CompilationError
	var re *RuntimeError
	if errors.As(err, &ce) || errors.As(err, &re) {
		return err
	}
	return &CompilationError{Rep: rep, Err: err}
}
