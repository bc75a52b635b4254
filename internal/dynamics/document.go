package dynamics

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"golang.org/x/text/unicode/norm"
)

// documentSchema constrains the shape of training_dynamics.json.
// Parallel-length and key agreement are checked in Go by checkDocument.
const documentSchema = `
#Document: {
	example_ids: [...string]
	confidence: [string]: [...(number & >=0 & <=1)]
	probabilities: [string]: [...[...(number & >=0 & <=1)]]
	correctness: [string]: [...(0 | 1)]
	label: [string]: [...int]
	epoch: [string]: [...(int | null)]
	step: [string]: [...int]
}
`

// Summary describes the contents of a Document.
type Summary struct {
	Examples     int   `json:"examples"`
	Observations int   `json:"observations"`
	FirstStep    int64 `json:"first_step"`
	LastStep     int64 `json:"last_step"`

	// Confusable groups distinct ids that render as the same text
	// (equal under Unicode NFC). They are still recorded separately.
	Confusable [][]ExampleID `json:"confusable,omitempty"`
}

// Summary counts examples and observations and finds the step range.
func (d Document) Summary() Summary {
	s := Summary{Examples: len(d.ExampleIDs)}
	first := true
	for _, id := range d.ExampleIDs {
		steps := d.Step[id]
		s.Observations += len(steps)
		for _, step := range steps {
			if first || step < s.FirstStep {
				s.FirstStep = step
			}
			if first || step > s.LastStep {
				s.LastStep = step
			}
			first = false
		}
	}
	s.Confusable = ConfusableIDs(d.ExampleIDs)
	return s
}

// ConfusableIDs groups ids whose NFC forms coincide, in first-seen order.
// Ids without a confusable partner are left out; nil means none.
func ConfusableIDs(ids []ExampleID) [][]ExampleID {
	groups := make(map[string][]ExampleID)
	var order []string
	for _, id := range ids {
		key := norm.NFC.String(string(id))
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], id)
	}

	var out [][]ExampleID
	for _, key := range order {
		if len(groups[key]) > 1 {
			out = append(out, groups[key])
		}
	}
	return out
}

// ReadDocument loads a training_dynamics.json file.
// It does not validate; use ValidateDocument on the raw bytes for that.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read dynamics file: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse dynamics file: %w", err)
	}
	return doc, nil
}

// ValidateDocument checks raw file contents against the persisted format.
//
// The CUE schema checks value types and ranges. The Go pass then checks that
// example_ids is unique, that every mapping has exactly the listed ids as keys,
// and that all six sequences of each id have equal length.
func ValidateDocument(data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(documentSchema).LookupPath(cue.ParsePath("#Document"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(FileName))
	if err := value.Err(); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema violation: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	return checkDocument(doc)
}

func checkDocument(doc Document) error {
	var errs []error

	seen := make(map[ExampleID]bool, len(doc.ExampleIDs))
	for _, id := range doc.ExampleIDs {
		if seen[id] {
			errs = append(errs, fmt.Errorf("example_ids: duplicate id %q", id))
		}
		seen[id] = true
	}

	keys := map[string][]ExampleID{
		"confidence":    keysOf(doc.Confidence),
		"probabilities": keysOf(doc.Probabilities),
		"correctness":   keysOf(doc.Correctness),
		"label":         keysOf(doc.Label),
		"epoch":         keysOf(doc.Epoch),
		"step":          keysOf(doc.Step),
	}
	for _, field := range []string{"confidence", "probabilities", "correctness", "label", "epoch", "step"} {
		if len(keys[field]) != len(seen) {
			errs = append(errs, fmt.Errorf("%s: %d ids, example_ids lists %d", field, len(keys[field]), len(seen)))
		}
		for _, id := range keys[field] {
			if !seen[id] {
				errs = append(errs, fmt.Errorf("%s: id %q missing from example_ids", field, id))
			}
		}
	}

	for _, id := range doc.ExampleIDs {
		n := len(doc.Confidence[id])
		lengths := []int{
			len(doc.Probabilities[id]),
			len(doc.Correctness[id]),
			len(doc.Label[id]),
			len(doc.Epoch[id]),
			len(doc.Step[id]),
		}
		for _, l := range lengths {
			if l != n {
				errs = append(errs, fmt.Errorf("id %q: sequence lengths differ %v vs %d", id, lengths, n))
				break
			}
		}
	}

	return errors.Join(errs...)
}

func keysOf[V any](m map[ExampleID]V) []ExampleID {
	keys := make([]ExampleID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
