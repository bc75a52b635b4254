// Package ledger provides a SQLite index of flushed training dynamics windows.
//
// Every successful flush appends one window row (checkpoint step, file path,
// example and observation counts, step range) and one row per example with
// its observation count in that window. The ledger never stores the
// trajectories themselves; those live in training_dynamics.json files.
//
// # Ordering
//
// Windows carry a seq INTEGER assigned at insert time, strictly increasing in
// flush order. All queries ORDER BY seq ASC, so an example's history reads
// back in training order.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package ledger
