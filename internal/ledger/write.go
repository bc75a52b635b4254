package ledger

import (
	"context"
	"fmt"

	"github.com/roach88/cartography/internal/dynamics"
)

var _ dynamics.WindowSink = (*Store)(nil)

// RecordWindow inserts a flushed window and its per-example counts in one
// transaction. The window is assigned the next seq.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency - recording the same window
// id twice leaves the first record in place.
func (s *Store) RecordWindow(ctx context.Context, w dynamics.Window) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record window: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM windows`).Scan(&seq); err != nil {
		return fmt.Errorf("record window: next seq: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO windows
		(id, seq, checkpoint_step, path, examples, observations, first_step, last_step)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		w.ID,
		seq,
		w.CheckpointStep,
		w.Path,
		w.Examples,
		w.Observations,
		w.FirstStep,
		w.LastStep,
	)
	if err != nil {
		return fmt.Errorf("record window: insert: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("record window: rows affected: %w", err)
	}
	if inserted == 0 {
		return tx.Commit()
	}

	for i, c := range w.Counts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO window_examples
			(window_id, example_id, position, observations)
			VALUES (?, ?, ?, ?)
		`, w.ID, string(c.ExampleID), i, c.Observations)
		if err != nil {
			return fmt.Errorf("record window: insert example %q: %w", c.ExampleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record window: commit: %w", err)
	}
	return nil
}
