package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Reality2byte/nanoc/internal/datasource"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Recompile whenever content or layouts change",
		Long: `Compile the site, then recompile every time files under the content or
layouts directory change. Bursts of changes are coalesced into one run.

Runs share one store, so each run only recompiles what changed. A failed
run is reported and watching continues.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 100*time.Millisecond, "quiet period before recompiling")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, out, errOut io.Writer) error {
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
	defer st.Close()

	changes, err := p.source.Changes(ctx)
	if err != nil {
		return formatter.Fail(&CommandError{Code: ErrCodeSource, Message: "watching sources failed", Err: err}, nil)
	}

	compile := func() {
		summary, err := compileOnce(ctx, p, st, nil)
		switch {
		case errors.Is(err, context.Canceled):
		case err != nil:
			_ = formatter.Fail(err, summary)
		default:
			_ = outputCompileSuccess(formatter, summary)
		}
	}

	compile()
	logger.Info("watching for changes", "content", p.source.ContentDir, "layouts", p.source.LayoutsDir)
	for batch := range debounce(ctx, changes, opts.Debounce) {
		logger.Info("change detected", "paths", len(batch), "first", batch[0].Path)
		compile()
	}
	logger.Info("watch stopped")
	return nil
}

// debounce groups changes into batches separated by at least wait of
// quiet. The returned channel closes when in closes or ctx is done.
func debounce(ctx context.Context, in <-chan datasource.Change, wait time.Duration) <-chan []datasource.Change {
	out := make(chan []datasource.Change)
	go func() {
		defer close(out)
		var pending []datasource.Change
		timer := time.NewTimer(wait)
		timer.Stop()
		defer timer.Stop()

		flush := func() bool {
			batch := pending
			pending = nil
			select {
			case out <- batch:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-in:
				if !ok {
					if len(pending) > 0 {
						flush()
					}
					return
				}
				pending = append(pending, c)
				timer.Reset(wait)
			case <-timer.C:
				if len(pending) > 0 && !flush() {
					return
				}
			}
		}
	}()
	return out
}
