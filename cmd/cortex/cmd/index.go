package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/cortexlabs/cortex/internal/cerrors"
	"github.com/cortexlabs/cortex/pkg/cortex"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the indexing run",
	}
	cmd.AddCommand(newIndexStartCmd())
	cmd.AddCommand(newIndexStopCmd())
	cmd.AddCommand(newIndexStatusCmd())
	return cmd
}

func newIndexStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start [roots...]",
		Short: "Scan and index one or more directories, then watch them for changes",
		Long: `Runs a full scan-extract-store pass over the given directories (the
current directory if none are given), then keeps watching them for
creates, modifies, and deletes until interrupted with Ctrl-C.

Because this process holds the run's state in memory, "cortex index
stop" and "cortex index status" only see a run started by the same
invocation; there is no background daemon to attach to from another
process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cwd, err := os.Getwd()
				if err != nil {
					return err
				}
				args = []string{cwd}
			}

			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := e.StartIndexing(ctx, args); err != nil {
				return err
			}

			printProgress(ctx, cmd, e)

			if ctx.Err() != nil {
				_ = e.StopIndexing()
			}
			return nil
		},
	}
	return cmd
}

// printProgress polls GetIndexStatus until the run leaves its active
// state or ctx is cancelled, printing a throttled progress line to a TTY
// (nothing to a pipe) and a summary line once the run finishes.
func printProgress(ctx context.Context, cmd *cobra.Command, e *cortex.Engine) {
	out := cmd.OutOrStdout()
	interactive := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := e.GetIndexStatus()
			if interactive {
				fmt.Fprintf(out, "\r%s: %d/%d files (%.0f%%)    ", st.State, st.Processed, st.Total, st.Percent)
			}
			if !st.Active() {
				if interactive {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "%s: %d/%d files indexed, %d errors, took %s; watching for changes (Ctrl-C to stop)\n",
					st.State, st.Processed, st.Total, len(st.Errors), st.Duration.Round(time.Millisecond))
				<-ctx.Done()
				return
			}
		}
	}
}

func newIndexStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Cancel an active indexing run",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.StopIndexing(); err != nil {
				if cerrors.Is(err, cerrors.NotRunning) {
					fmt.Fprintln(cmd.OutOrStdout(), "no run active in this process")
					return nil
				}
				return err
			}
			return nil
		},
	}
}

func newIndexStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the current process's indexing run status",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			st := e.GetIndexStatus()
			fmt.Fprintf(cmd.OutOrStdout(), "state: %s\nprocessed: %d/%d (%.1f%%)\ncurrent_file: %s\nerrors: %d\n",
				st.State, st.Processed, st.Total, st.Percent, st.CurrentFile, len(st.Errors))
			for _, fe := range st.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "  error: %s: %s\n", fe.Path, fe.Cause)
			}
			return nil
		},
	}
}
