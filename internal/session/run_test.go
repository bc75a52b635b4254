package session

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartography/internal/dynamics"
)

func newTestRecorder(t *testing.T) (*dynamics.Recorder, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return dynamics.New(
		dynamics.WithLogger(logger),
		dynamics.WithWindowIDs(dynamics.NewFixedGenerator("w-1", "w-2", "w-3")),
	), buf
}

func loadTwoWindows(t *testing.T) *Session {
	t.Helper()
	sess, err := LoadSession(filepath.Join("testdata", "sessions", "two_windows.yaml"))
	require.NoError(t, err)
	sess.OutputDir = t.TempDir()
	return sess
}

func TestRun_TwoWindowsGolden(t *testing.T) {
	sess := loadTwoWindows(t)
	rec, logs := newTestRecorder(t)

	result, err := Run(context.Background(), sess, rec)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Recorded)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Pending)
	require.Len(t, result.Flushes, 2)
	assert.Equal(t, dynamics.FlushWritten, result.Flushes[0].Status)
	assert.Equal(t, "w-1", result.Flushes[0].WindowID)
	assert.Equal(t, 2, result.Flushes[0].Observations)
	assert.Equal(t, 1, result.Flushes[1].Observations)
	assert.Contains(t, logs.String(), "training started")

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, step := range []int64{2, 3} {
		data, err := os.ReadFile(filepath.Join(dynamics.CheckpointDir(sess.OutputDir, step), dynamics.FileName))
		require.NoError(t, err)
		require.NoError(t, dynamics.ValidateDocument(data))
		g.Assert(t, fmt.Sprintf("two_windows_checkpoint-%d", step), data)
	}
}

func TestRun_NoOutputDirKeepsPending(t *testing.T) {
	sess := loadTwoWindows(t)
	sess.OutputDir = ""
	rec, _ := newTestRecorder(t)

	result, err := Run(context.Background(), sess, rec)
	require.NoError(t, err)

	require.Len(t, result.Flushes, 2)
	for _, f := range result.Flushes {
		assert.Equal(t, dynamics.FlushSkippedNoOutputDir, f.Status)
	}
	assert.Equal(t, 3, result.Pending)
	assert.Equal(t, 2, rec.Len())
}

func TestRun_RejectedBatchStops(t *testing.T) {
	sess, err := ParseSession([]byte(`
name: misaligned
events:
  - type: log
    step: 1
    logits: [[1, 0], [0, 1]]
    labels: [0]
    ids: [a, b]
  - type: save
    step: 1
`))
	require.NoError(t, err)
	rec, _ := newTestRecorder(t)

	result, err := Run(context.Background(), sess, rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events[0]")
	assert.True(t, dynamics.HasSchemaCode(err, dynamics.ErrCodeLengthMismatch))
	assert.Empty(t, result.Flushes)
}

func TestRun_CancelledContext(t *testing.T) {
	sess := loadTwoWindows(t)
	rec, _ := newTestRecorder(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, sess, rec)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, rec.Len())
}
