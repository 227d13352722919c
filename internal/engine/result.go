package engine

import "github.com/Reality2byte/nanoc/internal/site"

// Outcome is the kind of a Result.
type Outcome int

const (
	// Completed means every action ran.
	Completed Outcome = iota
	// Suspended means an action read a snapshot that is not available
	// yet. Actions that ran before it stay done.
	Suspended
	// Failed means an action returned an error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Suspended:
		return "suspended"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of running a rep's actions.
type Result struct {
	Outcome Outcome
	// Blocker and Snapshot name what a suspended rep waits on.
	Blocker  site.Ref
	Snapshot string
	// Err is set when Outcome is Failed.
	Err error
}

func completed() Result { return Result{Outcome: Completed} }

func suspended(blocker site.Ref, snapshot string) Result {
	return Result{Outcome: Suspended, Blocker: blocker, Snapshot: snapshot}
}

func failed(err error) Result { return Result{Outcome: Failed, Err: err} }
