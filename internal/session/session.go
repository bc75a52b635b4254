package session

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Event type constants.
const (
	EventBegin = "begin"
	EventLog   = "log"
	EventSave  = "save"
)

// Session is a scripted sequence of training events.
type Session struct {
	// Name uniquely identifies this session.
	Name string `yaml:"name"`

	// Description explains what the session exercises.
	Description string `yaml:"description,omitempty"`

	// OutputDir is the checkpoint root for save events.
	// Relative paths resolve against the session file's directory.
	// Empty means no output directory, so saves are skipped.
	OutputDir string `yaml:"output_dir,omitempty"`

	// Events are replayed in order.
	Events []Event `yaml:"events"`
}

// Event is one training-loop callback.
type Event struct {
	// Type is one of begin, log, save.
	Type string `yaml:"type"`

	// Epoch is the fractional epoch; omit when unknown.
	Epoch *float64 `yaml:"epoch,omitempty"`

	// Step is the global step.
	Step int64 `yaml:"step"`

	// Logits, Labels and IDs describe a log event's batch.
	Logits [][]float64 `yaml:"logits,omitempty"`
	Labels []int       `yaml:"labels,omitempty"`
	IDs    []string    `yaml:"ids,omitempty"`
}

// LoadSession reads and parses a session YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	sess, err := ParseSession(data)
	if err != nil {
		return nil, err
	}

	if sess.OutputDir != "" && !filepath.IsAbs(sess.OutputDir) {
		sess.OutputDir = filepath.Join(filepath.Dir(path), sess.OutputDir)
	}
	return sess, nil
}

// ParseSession parses session YAML with strict field validation.
// Relative output directories are left as-is.
func ParseSession(data []byte) (*Session, error) {
	var sess Session
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&sess); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateSession(&sess); err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}
	return &sess, nil
}

// validateSession checks that required fields are present and valid.
// Batch shape is not checked here; the recorder rejects malformed batches.
func validateSession(s *Session) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}

	for i, e := range s.Events {
		switch e.Type {
		case EventBegin, EventLog, EventSave:
		case "":
			return fmt.Errorf("events[%d]: type is required", i)
		default:
			return fmt.Errorf("events[%d]: unknown event type %q", i, e.Type)
		}
		if e.Type != EventLog && (e.Logits != nil || e.Labels != nil || e.IDs != nil) {
			return fmt.Errorf("events[%d]: logits, labels and ids are only valid on log events", i)
		}
		if e.Step < 0 {
			return fmt.Errorf("events[%d]: step must be non-negative", i)
		}
	}
	return nil
}
