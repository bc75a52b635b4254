package dynamics

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Window describes one successfully flushed accumulation window.
type Window struct {
	// ID uniquely identifies the window.
	ID string

	// CheckpointStep is the step passed to Flush.
	CheckpointStep int64

	// Path is the written training_dynamics.json.
	Path string

	Examples     int
	Observations int

	// FirstStep and LastStep bound the observation steps in the window.
	// Both are zero for an empty window.
	FirstStep int64
	LastStep  int64

	// Counts lists observations per example, in first-seen order.
	Counts []ExampleCount
}

// ExampleCount is the number of observations of one example in a window.
type ExampleCount struct {
	ExampleID    ExampleID
	Observations int
}

// WindowSink receives a Window after each successful flush.
// Sink errors are logged by the Recorder and never fail the flush.
type WindowSink interface {
	RecordWindow(ctx context.Context, w Window) error
}

// WindowIDGenerator produces window ids.
type WindowIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 window ids.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined window ids for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
// Panics if all ids have been consumed.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
