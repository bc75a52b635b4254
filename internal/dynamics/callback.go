package dynamics

import (
	"context"
	"log/slog"
)

// TrainerState is the view of training progress a trainer exposes to hooks.
type TrainerState struct {
	// Epoch is the fractional epoch, or nil when unknown.
	Epoch *float64

	// GlobalStep is the number of optimizer steps taken.
	GlobalStep int64

	// Inputs and Outputs are nil when the trainer did not expose them.
	Inputs  *Inputs
	Outputs *Outputs

	// ExampleIDs identifies the rows of the current batch.
	ExampleIDs []ExampleID
}

// Inputs is the batch fed to the model.
type Inputs struct {
	Labels []int
}

// Outputs is the model's output for the batch.
type Outputs struct {
	Logits [][]float64
}

// TrainingArgs carries the trainer's configuration relevant to checkpoints.
type TrainingArgs struct {
	OutputDir string
}

// Callback adapts a Recorder to trainer lifecycle hooks.
type Callback struct {
	rec    *Recorder
	logger *slog.Logger
}

// NewCallback wraps rec. The callback logs through the recorder's logger.
func NewCallback(rec *Recorder) *Callback {
	return &Callback{rec: rec, logger: rec.logger}
}

// Recorder returns the wrapped recorder.
func (c *Callback) Recorder() *Recorder {
	return c.rec
}

// OnTrainBegin marks the start of training.
func (c *Callback) OnTrainBegin(state TrainerState) {
	c.logger.Info("training started", "step", state.GlobalStep)
}

// OnLog records the current batch. The fractional epoch is truncated to an
// integer epoch.
func (c *Callback) OnLog(state TrainerState) (RecordStatus, error) {
	if state.Inputs == nil || state.Outputs == nil {
		c.logger.Debug("skipping batch",
			"reason", "trainer exposed no inputs or outputs",
			"step", state.GlobalStep,
		)
		return StatusSkippedMissingData, nil
	}

	var epoch *int64
	if state.Epoch != nil {
		epoch = Epoch(int64(*state.Epoch))
	}

	return c.rec.Record(Batch{
		Logits: state.Outputs.Logits,
		Labels: state.Inputs.Labels,
		IDs:    state.ExampleIDs,
		Epoch:  epoch,
		Step:   state.GlobalStep,
	})
}

// OnSave flushes the accumulated dynamics under args.OutputDir.
func (c *Callback) OnSave(ctx context.Context, args TrainingArgs, state TrainerState) (FlushResult, error) {
	return c.rec.Flush(ctx, args.OutputDir, state.GlobalStep)
}
