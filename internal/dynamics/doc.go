// Package dynamics records per-example training dynamics for dataset cartography.
//
// A Recorder observes a training loop. Once per logging event the loop hands it a
// Batch of raw logits, true labels and example identifiers; the recorder converts
// each row to a probability distribution and appends one observation to that
// example's trajectory. Once per checkpoint event the loop calls Flush, which
// writes everything accumulated since the previous flush to
//
//	<output_dir>/checkpoint-<step>/training_dynamics.json
//
// and then starts a fresh, empty store.
//
// # Accumulation Windows
//
// Each flushed file covers a disjoint window of training steps:
//   - An observation is written to exactly one file
//   - A failed or skipped flush retains the store, so the next successful flush
//     carries the retained observations
//   - The store is replaced only after the file is in place
//
// # Concurrency
//
// Record and Flush are ordinary blocking calls and are not internally
// synchronized. Callers embedding a Recorder in a multi-goroutine host must
// serialize both methods. Data-parallel training should use one Recorder per
// worker; merging per-worker files is outside this package.
//
// # Failure Policy
//
// Observability must never break training:
//   - Batches without logits or labels are skipped (StatusSkippedMissingData)
//   - Flushes without an output directory are skipped and logged
//   - Malformed batches (misaligned lengths, ragged or non-finite logits) are
//     rejected with a *SchemaError, since recording them would corrupt
//     trajectories
package dynamics
