package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders the traces of every step as text, one event per line,
// under a header naming the step and its run ID.
func Snapshot(name string, result *Result) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "# %s\n", name)
	for _, step := range result.Steps {
		fmt.Fprintf(&buf, "\n## %s (%s)\n", step.Name, step.RunID)
		for _, line := range step.Trace {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
		if step.Error != "" {
			fmt.Fprintf(&buf, "error: %s\n", step.Error)
		}
	}
	return []byte(buf.String())
}

// RunWithGolden executes a scenario and compares its traces against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(name, result))
}
