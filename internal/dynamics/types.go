package dynamics

import "strconv"

// ExampleID is a stable, caller-assigned identifier for one training example.
//
// IDs are serialized as JSON object keys, so the textual form is the identity.
// Record keys examples on the exact string the caller passed; IDs that differ
// in any byte are different examples.
type ExampleID string

// IntID returns the ExampleID for an integer-indexed example.
func IntID(n int64) ExampleID {
	return ExampleID(strconv.FormatInt(n, 10))
}

// Epoch returns a pointer to n, for populating Batch.Epoch.
func Epoch(n int64) *int64 {
	return &n
}

// Batch is one logging event's worth of model outputs.
//
// Logits, Labels and IDs are aligned by position: row i of Logits, Labels[i]
// and IDs[i] describe the same example. A nil Logits or Labels means the
// training loop did not expose them for this batch.
type Batch struct {
	// Logits is the batch x num-classes matrix of raw, pre-softmax outputs.
	Logits [][]float64

	// Labels holds the true class index for each row.
	Labels []int

	// IDs holds the example identifier for each row.
	IDs []ExampleID

	// Epoch is the epoch at observation time; nil when unavailable.
	Epoch *int64

	// Step is the global training step at observation time.
	Step int64
}

// Trajectory is the per-observation history of one example.
// All six slices always have the same length.
type Trajectory struct {
	Confidence    []float64
	Probabilities [][]float64
	Correctness   []int
	Label         []int
	Epoch         []*int64
	Step          []int64
}

// Len returns the number of observations.
func (t *Trajectory) Len() int {
	return len(t.Confidence)
}

type observation struct {
	confidence    float64
	probabilities []float64
	correct       int
	label         int
	epoch         *int64
	step          int64
}

func (t *Trajectory) append(obs observation) {
	t.Confidence = append(t.Confidence, obs.confidence)
	t.Probabilities = append(t.Probabilities, obs.probabilities)
	t.Correctness = append(t.Correctness, obs.correct)
	t.Label = append(t.Label, obs.label)
	t.Epoch = append(t.Epoch, obs.epoch)
	t.Step = append(t.Step, obs.step)
}

// Store is the in-memory training dynamics for one accumulation window.
//
// Store only grows: IDs are registered once at first sight and trajectories
// are append-only. It is owned by a single Recorder.
type Store struct {
	ids    []ExampleID
	series map[ExampleID]*Trajectory
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		ids:    []ExampleID{},
		series: make(map[ExampleID]*Trajectory),
	}
}

// Len returns the number of distinct examples seen.
func (s *Store) Len() int {
	return len(s.ids)
}

// Observations returns the total number of observations across all examples.
func (s *Store) Observations() int {
	total := 0
	for _, tr := range s.series {
		total += tr.Len()
	}
	return total
}

func (s *Store) append(id ExampleID, obs observation) {
	tr, ok := s.series[id]
	if !ok {
		tr = &Trajectory{}
		s.series[id] = tr
		s.ids = append(s.ids, id)
	}
	tr.append(obs)
}

// Document returns a deep copy of the store in its persisted form.
func (s *Store) Document() Document {
	doc := newDocument(len(s.ids))
	for _, id := range s.ids {
		tr := s.series[id]
		doc.ExampleIDs = append(doc.ExampleIDs, id)
		doc.Confidence[id] = append([]float64{}, tr.Confidence...)
		probs := make([][]float64, len(tr.Probabilities))
		for i, p := range tr.Probabilities {
			probs[i] = append([]float64{}, p...)
		}
		doc.Probabilities[id] = probs
		doc.Correctness[id] = append([]int{}, tr.Correctness...)
		doc.Label[id] = append([]int{}, tr.Label...)
		doc.Epoch[id] = append([]*int64{}, tr.Epoch...)
		doc.Step[id] = append([]int64{}, tr.Step...)
	}
	return doc
}

// window summarizes the store for the window ledger.
func (s *Store) window() Window {
	w := Window{
		Examples: len(s.ids),
		Counts:   make([]ExampleCount, 0, len(s.ids)),
	}
	first := true
	for _, id := range s.ids {
		tr := s.series[id]
		w.Counts = append(w.Counts, ExampleCount{ExampleID: id, Observations: tr.Len()})
		w.Observations += tr.Len()
		for _, step := range tr.Step {
			if first || step < w.FirstStep {
				w.FirstStep = step
			}
			if first || step > w.LastStep {
				w.LastStep = step
			}
			first = false
		}
	}
	return w
}

// Document is the persisted form of a Store, one per training_dynamics.json.
//
// Every key of the five per-example mappings appears in ExampleIDs, and every
// per-example sequence has one entry per observation in the window.
type Document struct {
	ExampleIDs    []ExampleID               `json:"example_ids"`
	Confidence    map[ExampleID][]float64   `json:"confidence"`
	Probabilities map[ExampleID][][]float64 `json:"probabilities"`
	Correctness   map[ExampleID][]int       `json:"correctness"`
	Label         map[ExampleID][]int       `json:"label"`
	Epoch         map[ExampleID][]*int64    `json:"epoch"`
	Step          map[ExampleID][]int64     `json:"step"`
}

func newDocument(capacity int) Document {
	return Document{
		ExampleIDs:    make([]ExampleID, 0, capacity),
		Confidence:    make(map[ExampleID][]float64, capacity),
		Probabilities: make(map[ExampleID][][]float64, capacity),
		Correctness:   make(map[ExampleID][]int, capacity),
		Label:         make(map[ExampleID][]int, capacity),
		Epoch:         make(map[ExampleID][]*int64, capacity),
		Step:          make(map[ExampleID][]int64, capacity),
	}
}
