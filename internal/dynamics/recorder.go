package dynamics

import (
	"log/slog"
	"math"
)

// RecordStatus reports what Record did with a batch.
type RecordStatus string

const (
	// StatusRecorded means every row of the batch was appended to the store.
	StatusRecorded RecordStatus = "recorded"

	// StatusSkippedMissingData means logits or labels were unavailable and
	// the batch was ignored.
	StatusSkippedMissingData RecordStatus = "skipped_missing_data"

	// StatusRejected means the batch violated the Record contract.
	// The accompanying error is a *SchemaError.
	StatusRejected RecordStatus = "rejected"
)

// Recorder accumulates training dynamics and flushes them at checkpoints.
//
// Create one with New and pass the single instance to the training loop.
// Recorder is not safe for concurrent use.
type Recorder struct {
	store  *Store
	logger *slog.Logger
	sink   WindowSink
	ids    WindowIDGenerator
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger for diagnostic lines. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSink registers a sink notified after every successful flush.
func WithSink(sink WindowSink) Option {
	return func(r *Recorder) {
		r.sink = sink
	}
}

// WithWindowIDs overrides the window id generator (for deterministic tests).
// Defaults to UUIDv7Generator.
func WithWindowIDs(gen WindowIDGenerator) Option {
	return func(r *Recorder) {
		if gen != nil {
			r.ids = gen
		}
	}
}

// New creates a Recorder with an empty store.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		store:  NewStore(),
		logger: slog.Default(),
		ids:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Len returns the number of distinct examples accumulated since the last flush.
func (r *Recorder) Len() int {
	return r.store.Len()
}

// Observations returns the number of observations accumulated since the last flush.
func (r *Recorder) Observations() int {
	return r.store.Observations()
}

// Snapshot returns a copy of the current window's dynamics.
func (r *Recorder) Snapshot() Document {
	return r.store.Document()
}

// Record appends one observation per batch row to the store.
//
// For each row the logits are normalized with a numerically stable softmax;
// confidence is the largest probability, the prediction is its index (lowest
// index on ties), and the row is correct when the prediction equals the label.
//
// A batch with nil Logits or nil Labels is skipped. A batch whose inputs are
// misaligned or malformed is rejected with a *SchemaError before any row is
// recorded.
func (r *Recorder) Record(b Batch) (RecordStatus, error) {
	if b.Logits == nil || b.Labels == nil {
		r.logger.Debug("skipping batch",
			"reason", "missing logits or labels",
			"step", b.Step,
		)
		return StatusSkippedMissingData, nil
	}

	if err := validateBatch(b); err != nil {
		r.logger.Error("rejecting batch", "step", b.Step, "error", err)
		return StatusRejected, err
	}

	var epoch *int64
	if b.Epoch != nil {
		epoch = Epoch(*b.Epoch)
	}

	for i, row := range b.Logits {
		probs := Softmax(row)
		prediction, confidence := Argmax(probs)
		correct := 0
		if prediction == b.Labels[i] {
			correct = 1
		}
		r.store.append(b.IDs[i], observation{
			confidence:    confidence,
			probabilities: probs,
			correct:       correct,
			label:         b.Labels[i],
			epoch:         epoch,
			step:          b.Step,
		})
	}

	return StatusRecorded, nil
}

// validateBatch checks the Record contract.
func validateBatch(b Batch) error {
	n := len(b.Logits)
	if n > 0 && b.IDs == nil {
		return newBatchError(ErrCodeMissingIDs, "batch of %d rows has no example ids", n)
	}
	if len(b.Labels) != n || len(b.IDs) != n {
		return newBatchError(ErrCodeLengthMismatch,
			"logits=%d labels=%d ids=%d", n, len(b.Labels), len(b.IDs))
	}

	width := -1
	for i, row := range b.Logits {
		if len(row) == 0 {
			return newRowError(ErrCodeEmptyRow, i, "logits row has no classes")
		}
		if width >= 0 && len(row) != width {
			return newRowError(ErrCodeRaggedRow, i, "row has %d classes, expected %d", len(row), width)
		}
		width = len(row)
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return newRowError(ErrCodeNonFiniteLogit, i, "logit[%d] = %v", j, v)
			}
		}
	}

	return nil
}
