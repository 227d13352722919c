package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Reality2byte/nanoc/internal/site"
)

// Selector decides which rep compiles next.
//
// It starts from the reps that must compile this run. When a rep
// suspends, the rep it waits on moves to the front, followed by the
// suspended rep. The blocker may be any rep of the site, including one
// that is not outdated; it then compiles from the cache or from scratch.
type Selector struct {
	todo     []*site.ItemRep
	reps     *site.RepSet
	done     map[site.Ref]bool
	failures map[site.Ref]error
	cycles   *CycleDetector
	quota    *QuotaEnforcer

	// keepGoing scopes failures to the failing rep instead of ending the
	// run.
	keepGoing bool
}

// NewSelector creates a selector over todo, drawing blockers from reps.
func NewSelector(todo []*site.ItemRep, reps *site.RepSet, quota *QuotaEnforcer, keepGoing bool) *Selector {
	return &Selector{
		todo:      slices.Clone(todo),
		reps:      reps,
		done:      map[site.Ref]bool{},
		failures:  map[site.Ref]error{},
		cycles:    NewCycleDetector(),
		quota:     quota,
		keepGoing: keepGoing,
	}
}

// Each calls compile until every selected rep has completed or failed.
//
// The returned error is the first failure, a cycle or quota error, or,
// with keepGoing, every failure joined.
func (s *Selector) Each(compile func(rep *site.ItemRep) Result) error {
	for len(s.todo) > 0 {
		rep := s.todo[0]
		ref := rep.Ref()
		if s.done[ref] || s.failures[ref] != nil {
			s.todo = s.todo[1:]
			continue
		}

		res := compile(rep)
		switch res.Outcome {
		case Completed:
			s.done[ref] = true
			s.cycles.Unblock(ref)
			s.todo = s.todo[1:]

		case Suspended:
			if err := s.suspend(rep, res.Blocker); err != nil {
				if !s.keepGoing || isFatal(err) {
					return err
				}
				s.fail(ref, err)
			}

		case Failed:
			err := attribute(ref, res.Err)
			if !s.keepGoing || isFatal(err) {
				return err
			}
			s.fail(ref, err)
		}
	}
	return s.failure()
}

func (s *Selector) suspend(rep *site.ItemRep, blockerRef site.Ref) error {
	ref := rep.Ref()
	blocker, ok := s.reps.Get(blockerRef)
	if !ok {
		return site.Inconsistency("%s suspended on unknown rep %s", ref, blockerRef)
	}
	if err := s.failures[blockerRef]; err != nil {
		return attribute(ref, fmt.Errorf("depends on %s, which failed", blockerRef))
	}
	if s.done[blockerRef] {
		return site.Inconsistency("%s suspended on %s, which is already compiled", ref, blockerRef)
	}
	if err := s.quota.Check(ref); err != nil {
		var se *SuspensionsExceededError
		if errors.As(err, &se) {
			return NewQuotaError(se)
		}
		return err
	}
	if path := s.cycles.Block(ref, blockerRef); path != nil {
		return NewCycleError(path)
	}

	// Retry rep right after its blocker.
	s.todo = slices.Insert(s.todo, 0, blocker)
	return nil
}

func (s *Selector) fail(ref site.Ref, err error) {
	s.failures[ref] = err
	s.cycles.Unblock(ref)
	s.todo = s.todo[1:]
}

func (s *Selector) failure() error {
	if len(s.failures) == 0 {
		return nil
	}
	refs := make([]site.Ref, 0, len(s.failures))
	for ref := range s.failures {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, compareRefs)
	errs := make([]error, len(refs))
	for i, ref := range refs {
		errs[i] = s.failures[ref]
	}
	return errors.Join(errs...)
}

// Done reports whether rep completed during this run.
func (s *Selector) Done(ref site.Ref) bool { return s.done[ref] }

// Failed returns the reps that failed, sorted.
func (s *Selector) Failed() []site.Ref {
	refs := make([]site.Ref, 0, len(s.failures))
	for ref := range s.failures {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, compareRefs)
	return refs
}

// isFatal reports errors that end the run even when failures are scoped
// to reps.
func isFatal(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) || site.IsInternalInconsistency(err)
}
