package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Reality2byte/nanoc/internal/datasource"
	"github.com/Reality2byte/nanoc/internal/engine"
	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/listeners"
	"github.com/Reality2byte/nanoc/internal/output"
	"github.com/Reality2byte/nanoc/internal/rules"
	"github.com/Reality2byte/nanoc/internal/site"
	"github.com/Reality2byte/nanoc/internal/store"
	"github.com/Reality2byte/nanoc/internal/testutil"
)

// Harness holds what persists across the steps of one scenario.
type Harness struct {
	store  *store.Store
	source *datasource.Memory
	output *output.Memory
	rules  *rules.Rules
	config map[string]any

	clock  *engine.Clock
	now    *testutil.FakeTime
	runIDs *testutil.SequentialRunIDs
	logger *slog.Logger
}

// Run executes a scenario in a fresh in-memory database.
//
// Every step builds a new compiler over the same store, output and
// deterministic clocks, the way successive command invocations share the
// store on disk. An error is returned only when the scenario itself is
// broken; failed expectations are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	r, err := rules.Parse(scenario.Name+".cue", []byte(scenario.Rules))
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}

	h := &Harness{
		store:  st,
		source: datasource.NewMemory(),
		output: output.NewMemory(),
		rules:  r,
		config: scenario.Config,
		clock:  engine.NewClock(),
		now:    testutil.NewFakeTime(time.Millisecond),
		runIDs: testutil.NewSequentialRunIDs(scenario.Name),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		sr, err := h.runStep(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Name, err)
		}
		result.Steps = append(result.Steps, *sr)

		var failures []string
		if step.Expect != nil {
			failures = append(failures, checkExpect(step.Expect, sr, h.output)...)
		} else if sr.Error != "" {
			failures = append(failures, "unexpected error: "+sr.Error)
		}
		failures = append(failures, EvaluateAssertions(sr, step.Assertions, h.output)...)
		for _, msg := range failures {
			result.AddError(fmt.Sprintf("step %d (%s): %s", i+1, step.Name, msg))
		}
	}
	return result, nil
}

func (h *Harness) runStep(ctx context.Context, step Step) (*StepResult, error) {
	if err := h.apply(step); err != nil {
		return nil, err
	}

	s, err := datasource.Load(ctx, h.source, h.config)
	if err != nil {
		return nil, err
	}
	seqs, err := h.rules.Apply(s)
	if err != nil {
		return nil, err
	}
	in := engine.Input{Site: s, ActionSequences: seqs}
	for _, f := range step.Focus {
		p, err := site.ParsePattern(f)
		if err != nil {
			return nil, fmt.Errorf("focus: %w", err)
		}
		in.Focus = append(in.Focus, p)
	}

	alg, err := ir.ParseAlgorithm(step.ChecksumAlgorithm)
	if err != nil {
		return nil, err
	}

	rec := &listeners.Recorder{}
	comp := engine.New(h.store, output.RepWriter{Dest: h.output},
		engine.WithEventSink(rec),
		engine.WithLogger(h.logger),
		engine.WithClock(h.clock),
		engine.WithNow(h.now.Now),
		engine.WithRunIDGenerator(h.runIDs),
		engine.WithChecksumAlgorithm(alg),
		engine.WithMaxSuspensions(step.MaxSuspensions),
	)
	report, runErr := comp.Compile(ctx, in)
	if report == nil {
		return nil, runErr
	}

	sr := &StepResult{
		Name:     step.Name,
		RunID:    report.RunID,
		Outdated: refStrings(report.Outdated),
		Pending:  refStrings(report.Pending),
		Failed:   refStrings(report.Failed),
		Written:  []string{},
		Trace:    []string{},
	}
	if runErr != nil {
		sr.Error = runErr.Error()
	}
	for _, e := range rec.Events() {
		if !traced[e.Type] {
			continue
		}
		sr.Trace = append(sr.Trace, traceLine(e))
		if e.Type == engine.EventRepWriteEnded && e.Action != output.Identical {
			sr.Written = append(sr.Written, e.Path)
		}
	}
	return sr, nil
}

// apply makes the step's changes to the source and rules.
func (h *Harness) apply(step Step) error {
	if step.Rules != "" {
		r, err := rules.Parse(step.Name+".cue", []byte(step.Rules))
		if err != nil {
			return fmt.Errorf("rules: %w", err)
		}
		h.rules = r
	}
	for _, id := range step.RemoveItems {
		h.source.RemoveItem(id)
	}
	for _, id := range step.RemoveLayouts {
		h.source.RemoveLayout(id)
	}
	for _, doc := range step.Items {
		attrs, err := ir.ObjectFromGo(doc.Attributes)
		if err != nil {
			return fmt.Errorf("item %s: %w", doc.ID, err)
		}
		h.source.SetItem(doc.ID, doc.Content, attrs)
	}
	for _, doc := range step.Layouts {
		attrs, err := ir.ObjectFromGo(doc.Attributes)
		if err != nil {
			return fmt.Errorf("layout %s: %w", doc.ID, err)
		}
		h.source.SetLayout(doc.ID, doc.Content, attrs)
	}
	return nil
}

func refStrings(refs []site.Ref) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}
