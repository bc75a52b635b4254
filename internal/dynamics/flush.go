package dynamics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// CheckpointPrefix names checkpoint subdirectories: checkpoint-<step>.
	CheckpointPrefix = "checkpoint-"

	// FileName is the dynamics file written inside each checkpoint directory.
	FileName = "training_dynamics.json"
)

// FlushStatus reports what Flush did.
type FlushStatus string

const (
	// FlushWritten means the file was written and the store was reset.
	FlushWritten FlushStatus = "written"

	// FlushSkippedNoOutputDir means no output directory was available.
	// The store is retained.
	FlushSkippedNoOutputDir FlushStatus = "skipped_no_output_dir"

	// FlushFailed means creating the directory or writing the file failed.
	// The store is retained.
	FlushFailed FlushStatus = "failed"
)

// FlushResult describes the outcome of a Flush.
// Examples and Observations count the window that was written or retained.
type FlushResult struct {
	Status       FlushStatus `json:"status"`
	Path         string      `json:"path,omitempty"`
	WindowID     string      `json:"window_id,omitempty"`
	Examples     int         `json:"examples"`
	Observations int         `json:"observations"`
}

// CheckpointDir returns <baseDir>/checkpoint-<step>.
func CheckpointDir(baseDir string, step int64) string {
	return filepath.Join(baseDir, fmt.Sprintf("%s%d", CheckpointPrefix, step))
}

// Flush writes the current window to <baseDir>/checkpoint-<step>/training_dynamics.json
// and then replaces the store with an empty one.
//
// An empty baseDir is logged and skipped with a nil error. Directory creation
// and write failures return FlushFailed with the error; in both cases the
// store is kept, so a later successful flush includes the retained window.
// The file is written to a temporary name and renamed into place.
func (r *Recorder) Flush(ctx context.Context, baseDir string, step int64) (FlushResult, error) {
	result := FlushResult{
		Examples:     r.store.Len(),
		Observations: r.store.Observations(),
	}

	if baseDir == "" {
		r.logger.Warn("no checkpoint directory inferred, skipping training dynamics",
			"step", step,
			"examples", result.Examples,
		)
		result.Status = FlushSkippedNoOutputDir
		return result, nil
	}

	dir := CheckpointDir(baseDir, step)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.logger.Error("failed to create checkpoint directory", "dir", dir, "error", err)
		result.Status = FlushFailed
		return result, fmt.Errorf("flush dynamics: create checkpoint dir: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if err := writeDocument(path, r.store.Document()); err != nil {
		r.logger.Error("failed to save training dynamics", "path", path, "error", err)
		result.Status = FlushFailed
		return result, fmt.Errorf("flush dynamics: %w", err)
	}

	window := r.store.window()
	window.ID = r.ids.Generate()
	window.CheckpointStep = step
	window.Path = path

	r.store = NewStore()

	result.Status = FlushWritten
	result.Path = path
	result.WindowID = window.ID
	r.logger.Info("saved training dynamics",
		"path", path,
		"examples", result.Examples,
		"observations", result.Observations,
	)

	if r.sink != nil {
		if err := r.sink.RecordWindow(ctx, window); err != nil {
			r.logger.Error("failed to record window", "window", window.ID, "error", err)
		}
	}

	return result, nil
}

// writeDocument encodes doc as JSON next to path and renames it into place.
func writeDocument(path string, doc Document) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".training_dynamics-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()

	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(doc); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode document: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
