package session

import (
	"context"
	"fmt"

	"github.com/roach88/cartography/internal/dynamics"
)

// Result summarizes a session replay.
type Result struct {
	// Recorded counts log events whose batch was recorded.
	Recorded int `json:"recorded"`

	// Skipped counts log events skipped for missing data.
	Skipped int `json:"skipped"`

	// Flushes holds one result per save event, in order.
	Flushes []dynamics.FlushResult `json:"flushes"`

	// Pending counts observations still unflushed when the session ended.
	Pending int `json:"pending"`
}

// Run replays the session's events through rec.
//
// Flush failures are recorded in the result and replay continues, as a
// training loop would. A batch rejected by the recorder stops the replay and
// returns the *dynamics.SchemaError wrapped with the event index.
func Run(ctx context.Context, s *Session, rec *dynamics.Recorder) (*Result, error) {
	cb := dynamics.NewCallback(rec)
	result := &Result{Flushes: []dynamics.FlushResult{}}

	for i, e := range s.Events {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		state := trainerState(e)
		switch e.Type {
		case EventBegin:
			cb.OnTrainBegin(state)

		case EventLog:
			status, err := cb.OnLog(state)
			if err != nil {
				return result, fmt.Errorf("events[%d]: %w", i, err)
			}
			if status == dynamics.StatusSkippedMissingData {
				result.Skipped++
			} else {
				result.Recorded++
			}

		case EventSave:
			// Failures are already logged by the recorder.
			flush, _ := cb.OnSave(ctx, dynamics.TrainingArgs{OutputDir: s.OutputDir}, state)
			result.Flushes = append(result.Flushes, flush)
		}
	}

	result.Pending = rec.Observations()
	return result, nil
}

// trainerState converts an event into the trainer's view of the batch.
func trainerState(e Event) dynamics.TrainerState {
	state := dynamics.TrainerState{
		Epoch:      e.Epoch,
		GlobalStep: e.Step,
	}
	if e.Labels != nil {
		state.Inputs = &dynamics.Inputs{Labels: e.Labels}
	}
	if e.Logits != nil {
		state.Outputs = &dynamics.Outputs{Logits: e.Logits}
	}
	if e.IDs != nil {
		state.ExampleIDs = make([]dynamics.ExampleID, len(e.IDs))
		for i, id := range e.IDs {
			state.ExampleIDs[i] = dynamics.ExampleID(id)
		}
	}
	return state
}
