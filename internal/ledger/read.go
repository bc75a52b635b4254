package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// WindowRecord is one flushed window as stored in the ledger.
type WindowRecord struct {
	ID             string `json:"id"`
	Seq            int64  `json:"seq"`
	CheckpointStep int64  `json:"checkpoint_step"`
	Path           string `json:"path"`
	Examples       int    `json:"examples"`
	Observations   int    `json:"observations"`
	FirstStep      int64  `json:"first_step"`
	LastStep       int64  `json:"last_step"`
}

// ExampleWindow is an example's observation count in one window.
type ExampleWindow struct {
	WindowID       string `json:"window_id"`
	Seq            int64  `json:"seq"`
	CheckpointStep int64  `json:"checkpoint_step"`
	Observations   int    `json:"observations"`
}

// ListWindows returns all windows in flush order.
// Returns an empty slice (not nil) if no windows exist.
func (s *Store) ListWindows(ctx context.Context) ([]WindowRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, checkpoint_step, path, examples, observations, first_step, last_step
		FROM windows
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query windows: %w", err)
	}
	defer rows.Close()

	windows := []WindowRecord{}
	for rows.Next() {
		var w WindowRecord
		if err := rows.Scan(&w.ID, &w.Seq, &w.CheckpointStep, &w.Path, &w.Examples, &w.Observations, &w.FirstStep, &w.LastStep); err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate windows: %w", err)
	}
	return windows, nil
}

// GetWindow returns the window with the given id.
// Returns sql.ErrNoRows (wrapped) if it does not exist.
func (s *Store) GetWindow(ctx context.Context, id string) (WindowRecord, error) {
	var w WindowRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seq, checkpoint_step, path, examples, observations, first_step, last_step
		FROM windows
		WHERE id = ?
	`, id).Scan(&w.ID, &w.Seq, &w.CheckpointStep, &w.Path, &w.Examples, &w.Observations, &w.FirstStep, &w.LastStep)
	if err == sql.ErrNoRows {
		return WindowRecord{}, fmt.Errorf("window %s: %w", id, err)
	}
	if err != nil {
		return WindowRecord{}, fmt.Errorf("get window: %w", err)
	}
	return w, nil
}

// ExampleHistory returns the windows an example was observed in, in flush order.
// Returns an empty slice (not nil) if the example was never flushed.
func (s *Store) ExampleHistory(ctx context.Context, exampleID string) ([]ExampleWindow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.seq, w.checkpoint_step, e.observations
		FROM window_examples e
		JOIN windows w ON e.window_id = w.id
		WHERE e.example_id = ?
		ORDER BY w.seq ASC
	`, exampleID)
	if err != nil {
		return nil, fmt.Errorf("query example history: %w", err)
	}
	defer rows.Close()

	history := []ExampleWindow{}
	for rows.Next() {
		var ew ExampleWindow
		if err := rows.Scan(&ew.WindowID, &ew.Seq, &ew.CheckpointStep, &ew.Observations); err != nil {
			return nil, fmt.Errorf("scan example history: %w", err)
		}
		history = append(history, ew)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate example history: %w", err)
	}
	return history, nil
}
