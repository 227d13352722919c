package harness

import (
	"fmt"

	"github.com/Reality2byte/nanoc/internal/engine"
)

// traced lists the event types kept in step traces. Phase, stage and
// filter events are left out; they are covered by the engine's own tests
// and would make traces churn on every internal change.
var traced = map[engine.EventType]bool{
	engine.EventCompilationStarted:   true,
	engine.EventCompilationSuspended: true,
	engine.EventCompilationEnded:     true,
	engine.EventCompilationFailed:    true,
	engine.EventCachedContentUsed:    true,
	engine.EventRepWriteEnded:        true,
}

// traceLine renders an event without its sequence number or time:
//
//	compilation_suspended rep:/bar.md#default blocker=rep:/foo.md#default
//	rep_write_ended rep:/foo.md#default create /foo.html
func traceLine(e engine.Event) string {
	line := fmt.Sprintf("%s %s", e.Type, e.Rep)
	if !e.Blocker.IsNone() {
		line += " blocker=" + e.Blocker.String()
	}
	if e.Path != "" {
		line += fmt.Sprintf(" %s %s", e.Action, e.Path)
	}
	return line
}

// StepResult is what one step of a scenario produced.
type StepResult struct {
	Name     string   `json:"name"`
	RunID    string   `json:"run_id"`
	Outdated []string `json:"outdated"`
	Written  []string `json:"written"`
	Pending  []string `json:"pending"`
	Failed   []string `json:"failed"`
	Error    string   `json:"error,omitempty"`
	Trace    []string `json:"trace"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	Steps []StepResult `json:"steps"`

	// Errors contains one message per failed check.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError records a failed check and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
