package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartography/internal/dynamics"
)

const testSession = `name: cli_run
events:
  - type: begin
  - type: log
    epoch: 0
    step: 1
    logits: [[2, 0], [0, 2]]
    labels: [0, 0]
    ids: [a, b]
  - type: save
    step: 1
  - type: log
    epoch: 1
    step: 2
    logits: [[2, 0]]
    labels: [0]
    ids: [a]
  - type: save
    step: 2
`

// writeSession writes a session file into a temp dir and returns its path.
func writeSession(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func executeReplay(t *testing.T, format string, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	opts := &RootOptions{Format: format}
	cmd := NewReplayCommand(opts)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestReplay_WritesCheckpoints(t *testing.T) {
	sessionPath := writeSession(t, testSession)
	outDir := t.TempDir()

	out, logs, err := executeReplay(t, "text", sessionPath, "--output-dir", outDir)
	require.NoError(t, err)

	assert.Contains(t, out, "Session: cli_run")
	assert.Contains(t, out, "Batches: 2 recorded, 0 skipped")
	assert.Contains(t, logs, "saved training dynamics")

	first, err := dynamics.ReadDocument(filepath.Join(dynamics.CheckpointDir(outDir, 1), dynamics.FileName))
	require.NoError(t, err)
	assert.Equal(t, []dynamics.ExampleID{"a", "b"}, first.ExampleIDs)
	assert.Equal(t, []int{1}, first.Correctness["a"])
	assert.Equal(t, []int{0}, first.Correctness["b"])

	second, err := dynamics.ReadDocument(filepath.Join(dynamics.CheckpointDir(outDir, 2), dynamics.FileName))
	require.NoError(t, err)
	assert.Equal(t, []dynamics.ExampleID{"a"}, second.ExampleIDs)
}

func TestReplay_JSONOutput(t *testing.T) {
	sessionPath := writeSession(t, testSession)
	outDir := t.TempDir()

	out, _, err := executeReplay(t, "json", sessionPath, "--output-dir", outDir)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "cli_run", resp.Data.Session)
	assert.Equal(t, 2, resp.Data.Recorded)
	require.Len(t, resp.Data.Flushes, 2)
	assert.Equal(t, dynamics.FlushWritten, resp.Data.Flushes[0].Status)
	assert.Equal(t, 2, resp.Data.Flushes[0].Observations)
}

func TestReplay_NoOutputDirSkipsFlushes(t *testing.T) {
	sessionPath := writeSession(t, testSession)

	out, logs, err := executeReplay(t, "text", sessionPath)
	require.NoError(t, err)

	assert.Contains(t, out, string(dynamics.FlushSkippedNoOutputDir))
	assert.Contains(t, out, "Unflushed observations: 3")
	assert.Contains(t, logs, "no checkpoint directory inferred")
}

func TestReplay_IndexesLedger(t *testing.T) {
	sessionPath := writeSession(t, testSession)
	outDir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	_, _, err := executeReplay(t, "text", sessionPath, "--output-dir", outDir, "--db", dbPath)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	cmd := NewWindowsCommand(&RootOptions{Format: "text"})
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--db", dbPath, "--example", "a"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Example a: 2 observations in 2 windows")
	assert.Contains(t, out.String(), "#1 checkpoint-1: 1")
	assert.Contains(t, out.String(), "#2 checkpoint-2: 1")
}

func TestReplay_FlushFailureExitCode(t *testing.T) {
	sessionPath := writeSession(t, testSession)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	out, _, err := executeReplay(t, "text", sessionPath, "--output-dir", blocker)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "2 of 2 flushes failed")
	assert.Contains(t, out, string(dynamics.FlushFailed))
}

func TestReplay_FlushFailureJSON(t *testing.T) {
	sessionPath := writeSession(t, testSession)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	out, _, err := executeReplay(t, "json", sessionPath, "--output-dir", blocker)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string       `json:"code"`
			Message string       `json:"message"`
			Details ReplayOutput `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeFlushFailed, resp.Error.Code)
	assert.Equal(t, "2 of 2 flushes failed", resp.Error.Message)
	require.Len(t, resp.Error.Details.Flushes, 2)
	assert.Equal(t, dynamics.FlushFailed, resp.Error.Details.Flushes[1].Status)
	assert.Equal(t, 3, resp.Error.Details.Pending)
}

func TestReplay_RejectedBatchJSONCode(t *testing.T) {
	sessionPath := writeSession(t, `name: bad
events:
  - type: log
    step: 1
    logits: [[1, 0]]
    labels: [0, 1]
    ids: [a]
`)

	out, _, err := executeReplay(t, "json", sessionPath)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRejectedBatch, resp.Error.Code)
}

func TestReplay_CancelledContext(t *testing.T) {
	sessionPath := writeSession(t, testSession)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := &bytes.Buffer{}
	cmd := NewReplayCommand(&RootOptions{Format: "json"})
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{sessionPath, "--output-dir", t.TempDir()})
	err := cmd.ExecuteContext(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out.String()), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeGeneric, resp.Error.Code)
}

func TestReplay_RejectedBatch(t *testing.T) {
	sessionPath := writeSession(t, `name: bad
events:
  - type: log
    step: 1
    logits: [[1, 0]]
    labels: [0, 1]
    ids: [a]
`)

	_, _, err := executeReplay(t, "text", sessionPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, dynamics.HasSchemaCode(err, dynamics.ErrCodeLengthMismatch))
}

func TestReplay_MissingSession(t *testing.T) {
	_, _, err := executeReplay(t, "text", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load session")
}

func TestReplay_RequiresArgument(t *testing.T) {
	_, _, err := executeReplay(t, "text")
	require.Error(t, err)
}
