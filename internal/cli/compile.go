package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Reality2byte/nanoc/internal/engine"
	"github.com/Reality2byte/nanoc/internal/listeners"
	"github.com/Reality2byte/nanoc/internal/site"
	"github.com/Reality2byte/nanoc/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Focus  []string
	Timing bool
}

// CompileSummary is the result of one compilation run.
type CompileSummary struct {
	RunID    string         `json:"run_id"`
	Outdated []string       `json:"outdated"`
	Compiled []string       `json:"compiled"`
	Failed   []string       `json:"failed,omitempty"`
	Pending  []string       `json:"pending,omitempty"`
	Writes   []WriteSummary `json:"writes"`
}

// WriteSummary is one output path written during a run.
type WriteSummary struct {
	Rep    string `json:"rep"`
	Path   string `json:"path"`
	Action string `json:"action"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile the outdated reps of the site",
		Long: `Compile the site rooted at --root.

Only reps that are outdated since the previous run are recompiled. Reps
that an outdated rep reads from are taken from the compiled-content cache
when their content is cached, and compiled otherwise.

With --focus, only outdated reps of items matching one of the patterns
are compiled; the rest stay outdated for a later run.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringArrayVar(&opts.Focus, "focus", nil, "only compile items matching this pattern (repeatable)")
	cmd.Flags().BoolVar(&opts.Timing, "timing", false, "print filter, phase and stage timings")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, out, errOut)
	logger := opts.Logger()

	p, err := openProject(opts.Root, logger)
	if err != nil {
		return formatter.Fail(err, nil)
	}
	st, err := p.openStore()
	if err != nil {
		return formatter.Fail(err, nil)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Error("closing store failed", "error", cerr)
		}
	}()

	timing := listeners.NewTimingRecorder()
	summary, err := compileOnce(ctx, p, st, opts.Focus, timing)
	if opts.Timing {
		if terr := timing.WriteSummary(formatter.errWriter()); terr != nil {
			logger.Warn("writing timings failed", "error", terr)
		}
	}
	if err != nil {
		return formatter.Fail(err, summary)
	}
	return outputCompileSuccess(formatter, summary)
}

// compileOnce loads the site and compiles it once against st. The summary
// is returned whenever compilation started, including on failure.
func compileOnce(ctx context.Context, p *project, st *store.Store, focus []string, extra ...engine.EventSink) (*CompileSummary, error) {
	in, err := p.input(ctx, focus)
	if err != nil {
		return nil, err
	}

	// Log lines are written from a separate goroutine.
	logs := listeners.NewAsync(listeners.Logging{Logger: p.logger})
	defer logs.Close()

	rec := &listeners.Recorder{}
	sinks := append(listeners.Aggregate{rec, logs}, extra...)
	comp, err := p.compiler(st, engine.WithEventSink(sinks))
	if err != nil {
		return nil, err
	}
	report, err := comp.Compile(ctx, in)
	if report == nil {
		return nil, err
	}

	summary := &CompileSummary{
		RunID:    report.RunID,
		Outdated: refStrings(report.Outdated),
		Compiled: refStrings(report.Compiled),
		Failed:   refStrings(report.Failed),
		Pending:  refStrings(report.Pending),
		Writes:   []WriteSummary{},
	}
	for _, e := range rec.Events() {
		if e.Type == engine.EventRepWriteEnded {
			summary.Writes = append(summary.Writes, WriteSummary{Rep: e.Rep.String(), Path: e.Path, Action: string(e.Action)})
		}
	}
	return summary, err
}

func refStrings(refs []site.Ref) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}

func outputCompileSuccess(formatter *OutputFormatter, s *CompileSummary) error {
	if formatter.Format == "json" {
		return formatter.Success(s)
	}
	if len(s.Outdated) == 0 {
		fmt.Fprintln(formatter.Writer, "✓ Site is up to date")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d rep(s), %d outdated\n", len(s.Compiled), len(s.Outdated))
	for _, w := range s.Writes {
		fmt.Fprintf(formatter.Writer, "  %9s  %s\n", w.Action, w.Path)
	}
	if len(s.Pending) > 0 {
		fmt.Fprintf(formatter.Writer, "%d rep(s) left outdated\n", len(s.Pending))
	}
	return nil
}
