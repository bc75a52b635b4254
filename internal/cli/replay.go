package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/cartography/internal/dynamics"
	"github.com/roach88/cartography/internal/ledger"
	"github.com/roach88/cartography/internal/session"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	OutputDir string
	Database  string

	// WindowIDs overrides the window id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	WindowIDs dynamics.WindowIDGenerator
}

// ReplayOutput is the result payload of the replay command.
type ReplayOutput struct {
	Session   string                 `json:"session"`
	OutputDir string                 `json:"output_dir"`
	Recorded  int                    `json:"recorded"`
	Skipped   int                    `json:"skipped"`
	Pending   int                    `json:"pending"`
	Flushes   []dynamics.FlushResult `json:"flushes"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <session.yaml>",
		Short: "Replay a training session through the recorder",
		Long: `Replay a scripted training session through the dynamics recorder.

Each log event records one batch; each save event flushes the accumulated
dynamics to <output-dir>/checkpoint-<step>/training_dynamics.json. When --db is
set, every written window is also indexed in the SQLite ledger.

Examples:
  cartography replay ./session.yaml
  cartography replay ./session.yaml --output-dir ./run-1 --db ./ledger.db
  cartography replay ./session.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", "", "checkpoint root (overrides the session's output_dir)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite window ledger (optional)")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	logger := opts.newLogger(cmd.ErrOrStderr())

	sess, err := session.LoadSession(path)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidSession, "failed to load session", err.Error())
		return WrapExitError(ExitCommandError, "failed to load session", err)
	}
	if opts.OutputDir != "" {
		sess.OutputDir = opts.OutputDir
	}
	formatter.VerboseLog("Loaded session %s (%d events)", sess.Name, len(sess.Events))

	recOpts := []dynamics.Option{dynamics.WithLogger(logger)}
	if opts.WindowIDs != nil {
		recOpts = append(recOpts, dynamics.WithWindowIDs(opts.WindowIDs))
	}

	if opts.Database != "" {
		st, err := ledger.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeLedger, "failed to open database", err.Error())
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		recOpts = append(recOpts, dynamics.WithSink(st))
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	// Interrupting stops replay between events; windows already flushed stay on disk.
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := session.Run(ctx, sess, dynamics.New(recOpts...))
	if err != nil {
		code := ErrCodeGeneric
		if dynamics.IsSchemaError(err) {
			code = ErrCodeRejectedBatch
		}
		_ = formatter.Error(code, "replay failed", err.Error())
		return WrapExitError(ExitFailure, "replay failed", err)
	}

	out := ReplayOutput{
		Session:   sess.Name,
		OutputDir: sess.OutputDir,
		Recorded:  result.Recorded,
		Skipped:   result.Skipped,
		Pending:   result.Pending,
		Flushes:   result.Flushes,
	}
	failed := 0
	for _, f := range result.Flushes {
		if f.Status == dynamics.FlushFailed {
			failed++
		}
	}

	if opts.Format != "json" {
		writeReplayText(cmd, out)
	}
	if failed > 0 {
		msg := fmt.Sprintf("%d of %d flushes failed", failed, len(result.Flushes))
		logger.Error("replay finished with failed flushes", "failed", failed)
		_ = formatter.Error(ErrCodeFlushFailed, msg, out)
		return NewExitError(ExitFailure, msg)
	}
	if opts.Format == "json" {
		return formatter.Success(out)
	}
	return nil
}

func writeReplayText(cmd *cobra.Command, out ReplayOutput) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Session: %s\n", out.Session)
	fmt.Fprintf(w, "Batches: %d recorded, %d skipped\n", out.Recorded, out.Skipped)
	for _, f := range out.Flushes {
		switch f.Status {
		case dynamics.FlushWritten:
			fmt.Fprintf(w, "  %s: %s (%d examples, %d observations)\n", f.Status, f.Path, f.Examples, f.Observations)
		default:
			fmt.Fprintf(w, "  %s (%d examples, %d observations retained)\n", f.Status, f.Examples, f.Observations)
		}
	}
	if out.Pending > 0 {
		fmt.Fprintf(w, "Unflushed observations: %d\n", out.Pending)
	}
}
