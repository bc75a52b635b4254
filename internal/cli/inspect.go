package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/cartography/internal/dynamics"
)

// InspectOutput is the result payload of the inspect command.
type InspectOutput struct {
	Path string `json:"path"`
	dynamics.Summary
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file-or-checkpoint-dir>",
		Short: "Validate and summarize a training_dynamics.json file",
		Long: `Validate a flushed training_dynamics.json and summarize its window.

Validation checks value types and ranges against the file schema, that every
per-example mapping covers exactly the listed example_ids, and that all
sequences of an example have the same length.

Examples:
  cartography inspect ./run-1/checkpoint-500
  cartography inspect ./run-1/checkpoint-500/training_dynamics.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInspect(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)

	info, err := os.Stat(path)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, "path not found", path)
		return WrapExitError(ExitCommandError, "path not found", err)
	}
	if info.IsDir() {
		path = filepath.Join(path, dynamics.FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, "failed to read dynamics file", err.Error())
		return WrapExitError(ExitCommandError, "failed to read dynamics file", err)
	}

	if err := dynamics.ValidateDocument(data); err != nil {
		_ = formatter.Error(ErrCodeInvalidDocument, "invalid dynamics file", validationDetails(err))
		return WrapExitError(ExitFailure, "invalid dynamics file", err)
	}

	doc, err := dynamics.ReadDocument(path)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read dynamics file", err)
	}

	out := InspectOutput{Path: path, Summary: doc.Summary()}
	if opts.Format == "json" {
		return formatter.Success(out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "File: %s\n", out.Path)
	fmt.Fprintf(w, "Examples: %d\n", out.Examples)
	fmt.Fprintf(w, "Observations: %d\n", out.Observations)
	if out.Observations > 0 {
		fmt.Fprintf(w, "Steps: %d-%d\n", out.FirstStep, out.LastStep)
	}
	for _, group := range out.Confusable {
		fmt.Fprintf(w, "Warning: ids %q render alike but are recorded separately\n", group)
	}
	return nil
}

// validationDetails splits a joined validation error into its messages.
func validationDetails(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		details := []string{}
		for _, e := range joined.Unwrap() {
			details = append(details, e.Error())
		}
		return details
	}
	return []string{err.Error()}
}
