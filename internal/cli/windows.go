package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cartography/internal/ledger"
)

// WindowsOptions holds flags for the windows command.
type WindowsOptions struct {
	*RootOptions
	Database string
	Example  string // optional - show one example's history
	ID       string // optional - show one window
}

// ExampleHistoryOutput is the payload of windows --example.
type ExampleHistoryOutput struct {
	ExampleID    string                 `json:"example_id"`
	Windows      []ledger.ExampleWindow `json:"windows"`
	Observations int                    `json:"observations"`
}

// NewWindowsCommand creates the windows command.
func NewWindowsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WindowsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "windows",
		Short: "List flushed windows from the ledger",
		Long: `List the accumulation windows recorded in the SQLite ledger, in flush order.

With --id, show a single window. With --example, show the windows one example was observed in and its
observation count in each. Counts across windows sum to the example's total
observations, since each observation is flushed exactly once.

Examples:
  cartography windows --db ./ledger.db
  cartography windows --db ./ledger.db --id 0190f3c1-...
  cartography windows --db ./ledger.db --example 1042 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWindows(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite window ledger (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Example, "example", "", "example id to trace across windows")
	cmd.Flags().StringVar(&opts.ID, "id", "", "window id to show")
	cmd.MarkFlagsMutuallyExclusive("example", "id")

	return cmd
}

func runWindows(opts *WindowsOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.newFormatter(cmd)

	st, err := ledger.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeLedger, "failed to open database", err.Error())
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Example != "" {
		return runExampleHistory(ctx, opts, st, formatter, cmd)
	}
	if opts.ID != "" {
		return runShowWindow(ctx, opts, st, formatter, cmd)
	}

	windows, err := st.ListWindows(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeLedger, "failed to list windows", err.Error())
		return WrapExitError(ExitCommandError, "failed to list windows", err)
	}

	if opts.Format == "json" {
		return formatter.Success(windows)
	}

	w := cmd.OutOrStdout()
	if len(windows) == 0 {
		fmt.Fprintln(w, "No windows recorded")
		return nil
	}
	for _, win := range windows {
		writeWindowLine(w, win)
	}
	return nil
}

func runShowWindow(ctx context.Context, opts *WindowsOptions, st *ledger.Store, formatter *OutputFormatter, cmd *cobra.Command) error {
	win, err := st.GetWindow(ctx, opts.ID)
	if errors.Is(err, sql.ErrNoRows) {
		_ = formatter.Error(ErrCodeNotFound, "window not found", opts.ID)
		return WrapExitError(ExitFailure, "window not found", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeLedger, "failed to read window", err.Error())
		return WrapExitError(ExitCommandError, "failed to read window", err)
	}

	if opts.Format == "json" {
		return formatter.Success(win)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Window %s\n", win.ID)
	writeWindowLine(cmd.OutOrStdout(), win)
	return nil
}

func writeWindowLine(w io.Writer, win ledger.WindowRecord) {
	fmt.Fprintf(w, "#%d checkpoint-%d  %d examples  %d observations  steps %d-%d  %s\n",
		win.Seq, win.CheckpointStep, win.Examples, win.Observations, win.FirstStep, win.LastStep, win.Path)
}

func runExampleHistory(ctx context.Context, opts *WindowsOptions, st *ledger.Store, formatter *OutputFormatter, cmd *cobra.Command) error {
	history, err := st.ExampleHistory(ctx, opts.Example)
	if err != nil {
		_ = formatter.Error(ErrCodeLedger, "failed to read example history", err.Error())
		return WrapExitError(ExitCommandError, "failed to read example history", err)
	}

	out := ExampleHistoryOutput{ExampleID: opts.Example, Windows: history}
	for _, h := range history {
		out.Observations += h.Observations
	}

	if opts.Format == "json" {
		return formatter.Success(out)
	}

	w := cmd.OutOrStdout()
	if len(history) == 0 {
		fmt.Fprintf(w, "No windows found for example: %s\n", opts.Example)
		return nil
	}
	fmt.Fprintf(w, "Example %s: %d observations in %d windows\n", out.ExampleID, out.Observations, len(history))
	for _, h := range history {
		fmt.Fprintf(w, "  #%d checkpoint-%d: %d\n", h.Seq, h.CheckpointStep, h.Observations)
	}
	return nil
}
