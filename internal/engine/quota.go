package engine

import (
	"errors"
	"fmt"

	"github.com/Reality2byte/nanoc/internal/site"
)

// QuotaEnforcer bounds the number of suspensions in one run.
//
// Cycle detection catches reps waiting on each other. The quota is the
// backstop for runs that keep suspending without a detectable cycle, so
// the selector always terminates.
type QuotaEnforcer struct {
	maxSuspensions int
	current        int
}

// DefaultQuota returns the suspension limit for a run over n reps. A rep
// can suspend at most once on each other rep before that rep compiles.
func DefaultQuota(n int) int {
	return n*n + n + 1
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
func NewQuotaEnforcer(maxSuspensions int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSuspensions: maxSuspensions}
}

// Check counts one suspension of rep and validates against the limit.
//
// Returns SuspensionsExceededError if the quota is exceeded.
func (q *QuotaEnforcer) Check(rep site.Ref) error {
	q.current++
	if q.current > q.maxSuspensions {
		return &SuspensionsExceededError{
			Rep:         rep,
			Suspensions: q.current,
			Limit:       q.maxSuspensions,
		}
	}
	return nil
}

// Current returns the number of suspensions counted so far.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSuspensions returns the limit.
func (q *QuotaEnforcer) MaxSuspensions() int {
	return q.maxSuspensions
}

// SuspensionsExceededError is returned when a run exceeds the suspension
// quota. It ends the run.
type SuspensionsExceededError struct {
	Rep         site.Ref // The rep whose suspension crossed the limit
	Suspensions int
	Limit       int
}

// Error implements the error interface.
func (e *SuspensionsExceededError) Error() string {
	return fmt.Sprintf("suspension of %s exceeded quota: %d suspensions > %d limit",
		e.Rep, e.Suspensions, e.Limit)
}

// IsSuspensionsExceededError returns true if the error is a
// SuspensionsExceededError. Uses errors.As to handle wrapped errors.
func IsSuspensionsExceededError(err error) bool {
	var se *SuspensionsExceededError
	return errors.As(err, &se)
}
