// Package session replays scripted training sessions through a dynamics Recorder.
//
// A session stands in for the training loop: it lists the logging and
// checkpoint events a trainer would emit, in order.
//
// # Session Format
//
// Sessions are defined in YAML files with the following structure:
//
//	name: tiny_run
//	description: "Two examples over two checkpoints"
//	output_dir: out            # relative to the session file
//	events:
//	  - type: begin
//	  - type: log
//	    epoch: 0.5
//	    step: 1
//	    logits: [[2.0, 0.1], [0.3, 1.2]]
//	    labels: [0, 1]
//	    ids: [ex-1, ex-2]
//	  - type: save
//	    step: 1
//
// # Event Types
//
//   - begin: training started (logged only)
//   - log: one batch of model outputs; omitting logits or labels makes the
//     batch a missing-data skip
//   - save: checkpoint boundary; flushes under output_dir/checkpoint-<step>
package session
