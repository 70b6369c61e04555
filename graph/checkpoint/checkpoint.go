// Package checkpoint provides durable execution snapshots and pluggable
// storage backends for workflow recovery.
//
// A Checkpoint captures everything needed to resume an execution after a
// suspension or a crash: the serialized workflow state, the position in the
// graph, loop counters and execution status. Backends store checkpoints
// keyed by execution ID with a monotonically increasing sequence number; the
// Manager assigns sequences and applies the write policy so backends stay
// dumb stores.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no checkpoint exists for an execution ID.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is one durable snapshot of an execution.
//
// Sequence is assigned by the Manager and increases monotonically per
// execution ID, including across process restarts. Checkpoints are immutable
// once written; recovery always targets the highest sequence.
type Checkpoint struct {
	ExecutionID string          `json:"execution_id"`
	Sequence    int64           `json:"sequence"`
	CreatedAt   time.Time       `json:"created_at"`
	Status      string          `json:"status"`
	NodeID      string          `json:"node_id"`
	StepCount   int             `json:"step_count"`
	State       json.RawMessage `json:"state"`
	LoopCounts  map[string]int  `json:"loop_counts,omitempty"`
}

// Meta is the listing view of a stored checkpoint, without the state
// payload.
type Meta struct {
	ExecutionID string    `json:"execution_id"`
	Sequence    int64     `json:"sequence"`
	CreatedAt   time.Time `json:"created_at"`
	Status      string    `json:"status"`
	NodeID      string    `json:"node_id"`
	StepCount   int       `json:"step_count"`
}

// Backend is the storage interface checkpoints are written to.
//
// Implementations must be safe for concurrent use and must treat
// (ExecutionID, Sequence) as the unique key. LoadLatest and List return
// ErrNotFound (or an empty list) for unknown execution IDs; backend I/O
// failures are wrapped in IOError.
type Backend interface {
	// Save persists a checkpoint. The Manager guarantees Sequence is set
	// and unique per execution.
	Save(ctx context.Context, cp *Checkpoint) error

	// LoadLatest returns the checkpoint with the highest sequence for
	// executionID, or ErrNotFound.
	LoadLatest(ctx context.Context, executionID string) (*Checkpoint, error)

	// List returns metadata for all checkpoints of executionID, newest
	// first.
	List(ctx context.Context, executionID string) ([]Meta, error)

	// Delete removes the checkpoint with the given sequence. Deleting an
	// absent checkpoint is a no-op.
	Delete(ctx context.Context, executionID string, sequence int64) error
}

// IOError wraps a backend storage failure so callers can distinguish
// infrastructure problems from absent data.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("checkpoint %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
