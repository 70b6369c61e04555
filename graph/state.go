package graph

import (
	"encoding/json"
	"fmt"
	"time"
)

// HistoryEntry records one executed step.
type HistoryEntry struct {
	NodeID    string    `json:"node_id"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Err       string    `json:"error,omitempty"`
}

// WorkflowState is the mutable data threaded through an execution: a string
// keyed document plus an append-only execution history.
//
// The engine is the single writer during an execution; parallel branches each
// receive their own Clone and are merged at the join barrier, so no locking
// is needed here. Values must stay JSON-serializable: Clone and
// checkpointing both round-trip through encoding/json, and non-serializable
// values surface as errors at those boundaries rather than silently
// corrupting a checkpoint.
type WorkflowState struct {
	values       map[string]any
	history      []HistoryEntry
	historyLimit int
}

// NewState creates an empty state. A historyLimit of 0 means unbounded.
func NewState(historyLimit int) *WorkflowState {
	return &WorkflowState{values: make(map[string]any), historyLimit: historyLimit}
}

// SeedState creates a state pre-populated with the given values.
func SeedState(seed map[string]any, historyLimit int) *WorkflowState {
	s := NewState(historyLimit)
	for k, v := range seed {
		s.values[k] = v
	}
	return s
}

// Get returns the value for key and whether it exists.
func (s *WorkflowState) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value under key.
func (s *WorkflowState) Set(key string, v any) { s.values[key] = v }

// Delete removes key from the state. Removing an absent key is a no-op.
func (s *WorkflowState) Delete(key string) { delete(s.values, key) }

// Values returns a shallow copy of the key/value document. Mutating the
// returned map does not affect the state.
func (s *WorkflowState) Values() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Len returns the number of keys in the state.
func (s *WorkflowState) Len() int { return len(s.values) }

// ApplyDelta merges a handler's returned delta into the state. Keys present
// in the delta overwrite existing keys wholesale; absent keys are untouched.
// There is no deep merge: a handler replacing a nested map replaces the whole
// value.
func (s *WorkflowState) ApplyDelta(delta map[string]any) {
	for k, v := range delta {
		s.values[k] = v
	}
}

// AppendHistory records an executed step. When a history limit is set, the
// oldest entries are dropped to stay within it; the key/value document is
// never trimmed.
func (s *WorkflowState) AppendHistory(e HistoryEntry) {
	s.history = append(s.history, e)
	if s.historyLimit > 0 && len(s.history) > s.historyLimit {
		s.history = s.history[len(s.history)-s.historyLimit:]
	}
}

// History returns a copy of the execution history, oldest first.
func (s *WorkflowState) History() []HistoryEntry {
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// Clone returns a deep copy produced by a JSON round-trip. Parallel branches
// execute on clones so branch writes stay invisible to each other until the
// join merge.
func (s *WorkflowState) Clone() (*WorkflowState, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("clone state: %w", err)
	}
	out := NewState(s.historyLimit)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("clone state: %w", err)
	}
	return out, nil
}

// stateDoc is the serialized shape of a WorkflowState.
type stateDoc struct {
	Values  map[string]any `json:"values"`
	History []HistoryEntry `json:"history,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s *WorkflowState) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateDoc{Values: s.values, History: s.history})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *WorkflowState) UnmarshalJSON(data []byte) error {
	var doc stateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Values == nil {
		doc.Values = make(map[string]any)
	}
	s.values = doc.Values
	s.history = doc.History
	return nil
}
