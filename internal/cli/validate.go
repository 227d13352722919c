package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/Reality2byte/nanoc/internal/deps"
	"github.com/Reality2byte/nanoc/internal/rules"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Errors   []ValidationIssue   `json:"errors,omitempty"`
	Warnings []deps.CycleWarning `json:"warnings,omitempty"`
}

// ValidationIssue is one problem that keeps the site from compiling.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check configuration and rules without compiling",
		Long: `Check that the configuration parses, that the rules file parses, and that
every item and layout is matched by a rule.

When a previous run left a dependency graph, items that read each other's
compiled content are reported as warnings: their next compilation fails
with a dependency cycle.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func runValidate(ctx context.Context, opts *RootOptions, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts, out, errOut)

	p, err := openProject(opts.Root, opts.Logger())
	if err != nil {
		return formatter.Fail(err, nil)
	}

	result := ValidationResult{}
	if _, err := p.input(ctx, nil); err != nil {
		result.Errors = append(result.Errors, toIssue(err))
		return outputValidationErrors(formatter, result)
	}
	formatter.VerboseLog("rules and sources valid")

	warnings, err := cycleWarnings(ctx, p)
	if err != nil {
		return formatter.Fail(err, nil)
	}
	result.Valid = true
	result.Warnings = warnings
	return outputValidateSuccess(formatter, result)
}

// cycleWarnings analyzes the graph the previous run persisted. A site that
// was never compiled has no graph and no warnings.
func cycleWarnings(ctx context.Context, p *project) ([]deps.CycleWarning, error) {
	if _, err := os.Stat(p.cfg.Path(p.cfg.StorePath)); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	st, err := p.openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()

	state, err := st.Load(ctx)
	if err != nil {
		return nil, &CommandError{Code: ErrCodeStore, Message: "loading store failed", Err: err}
	}
	if state.Dependencies == nil {
		return nil, nil
	}
	return deps.AnalyzeCycles(state.Dependencies.Edges), nil
}

func toIssue(err error) ValidationIssue {
	code, _ := classify(err)
	issue := ValidationIssue{Code: code, Message: err.Error()}
	var perr *rules.ParseError
	if errors.As(err, &perr) {
		issue.Message = perr.Field + ": " + perr.Message
		if perr.Pos.IsValid() {
			issue.File = perr.Pos.Filename()
			issue.Line = perr.Pos.Line()
		}
	}
	return issue
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintln(formatter.Writer, "✓ Site valid")
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", w.Level, w.Message)
	}
	return nil
}

// outputValidationErrors reports a site that failed validation. Validation
// failures exit with ExitFailure.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	msg := fmt.Sprintf("validation failed with %d error(s)", len(result.Errors))
	if formatter.Format == "json" {
		first := result.Errors[0]
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: first.Code, Message: first.Message},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range result.Errors {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", issue.File, issue.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	return NewExitError(ExitFailure, msg)
}
