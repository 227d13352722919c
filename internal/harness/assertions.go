package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Reality2byte/nanoc/internal/output"
)

// AssertionError is returned when an assertion fails.
// It carries the step trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, line := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, line)
		}
	}
	return buf.String()
}

// assertTraceContains checks that some trace line starts with the event.
func assertTraceContains(trace []string, a Assertion) error {
	if slices.ContainsFunc(trace, func(line string) bool { return strings.HasPrefix(line, a.Event) }) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: a.Event,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the events appear in order. Other lines
// may come between them, and each match must come after the previous one.
func assertTraceOrder(trace []string, a Assertion) error {
	pos := 0
	for _, want := range a.Events {
		i := slices.IndexFunc(trace[pos:], func(line string) bool { return strings.HasPrefix(line, want) })
		if i < 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual:   fmt.Sprintf("no %q after position %d", want, pos),
				Trace:    trace,
			}
		}
		pos += i + 1
	}
	return nil
}

// assertTraceCount checks that exactly Count lines start with the event.
func assertTraceCount(trace []string, a Assertion) error {
	count := 0
	for _, line := range trace {
		if strings.HasPrefix(line, a.Event) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertOutputContains checks that an output file exists and holds the
// given text.
func assertOutputContains(out *output.Memory, a Assertion) error {
	data, ok := out.File(a.Path)
	if !ok {
		return &AssertionError{
			Type:     AssertOutputContains,
			Expected: fmt.Sprintf("file %s", a.Path),
			Actual:   "not written",
		}
	}
	if !strings.Contains(string(data), a.Contains) {
		return &AssertionError{
			Type:     AssertOutputContains,
			Expected: fmt.Sprintf("%s containing %q", a.Path, a.Contains),
			Actual:   fmt.Sprintf("%q", data),
		}
	}
	return nil
}

// EvaluateAssertions runs every assertion against a step and returns one
// message per failure.
func EvaluateAssertions(sr *StepResult, assertions []Assertion, out *output.Memory) []string {
	var failures []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(sr.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(sr.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(sr.Trace, a)
		case AssertOutputContains:
			err = assertOutputContains(out, a)
		default:
			err = fmt.Errorf("unknown assertion type: %s", a.Type)
		}
		if err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

// checkExpect compares a step with its exact expectations.
func checkExpect(exp *Expect, sr *StepResult, out *output.Memory) []string {
	var failures []string
	compare := func(field string, want, got []string) {
		if want != nil && !slices.Equal(want, got) {
			failures = append(failures, fmt.Sprintf("%s: expected %v, got %v", field, want, got))
		}
	}
	compare("outdated", exp.Outdated, sr.Outdated)
	compare("written", exp.Written, sr.Written)
	compare("pending", exp.Pending, sr.Pending)

	switch {
	case exp.Error == "" && sr.Error != "":
		failures = append(failures, "unexpected error: "+sr.Error)
	case exp.Error != "" && sr.Error == "":
		failures = append(failures, fmt.Sprintf("expected error containing %q, run succeeded", exp.Error))
	case exp.Error != "" && !strings.Contains(sr.Error, exp.Error):
		failures = append(failures, fmt.Sprintf("expected error containing %q, got %q", exp.Error, sr.Error))
	}

	for _, p := range sortedPaths(exp.Files) {
		data, ok := out.File(p)
		switch {
		case !ok:
			failures = append(failures, fmt.Sprintf("file %s: not written", p))
		case string(data) != exp.Files[p]:
			failures = append(failures, fmt.Sprintf("file %s: expected %q, got %q", p, exp.Files[p], data))
		}
	}
	return failures
}

func sortedPaths(m map[string]string) []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}
