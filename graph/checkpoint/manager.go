package checkpoint

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Policy controls when the Manager writes checkpoints and what Cleanup
// removes.
type Policy struct {
	// Interval is the minimum gap between two non-forced checkpoints of the
	// same execution. Zero writes a checkpoint after every step.
	Interval time.Duration

	// KeepLatest is the number of most recent checkpoints Cleanup always
	// retains per execution. Zero keeps only what MaxAge allows.
	KeepLatest int

	// MaxAge is the default age threshold for Cleanup when the caller
	// passes a zero olderThan. Zero means no age-based default.
	MaxAge time.Duration
}

// Manager assigns checkpoint sequences and applies the write policy on top
// of a Backend.
//
// Sequences are monotonic per execution ID across restarts: the first Record
// for an unseen ID initializes the counter from the backend's latest stored
// checkpoint. Interval throttling applies only to routine step checkpoints;
// forced writes (suspension, termination) always go through.
type Manager struct {
	backend Backend
	policy  Policy

	mu        sync.Mutex
	seq       map[string]int64
	lastWrite map[string]time.Time
}

// NewManager creates a Manager over the given backend.
func NewManager(backend Backend, policy Policy) *Manager {
	return &Manager{
		backend:   backend,
		policy:    policy,
		seq:       make(map[string]int64),
		lastWrite: make(map[string]time.Time),
	}
}

// Backend returns the underlying storage backend.
func (m *Manager) Backend() Backend { return m.backend }

// Record writes cp if the policy allows it, assigning the next sequence.
// It returns whether a write happened. Forced records bypass the interval
// throttle; use them at suspension and terminal transitions so the latest
// checkpoint always reflects a resumable state.
func (m *Manager) Record(ctx context.Context, cp *Checkpoint, forced bool) (bool, error) {
	m.mu.Lock()
	next, err := m.nextSequenceLocked(ctx, cp.ExecutionID)
	if err != nil {
		m.mu.Unlock()
		return false, err
	}
	now := time.Now()
	if !forced && m.policy.Interval > 0 {
		if last, ok := m.lastWrite[cp.ExecutionID]; ok && now.Sub(last) < m.policy.Interval {
			m.mu.Unlock()
			return false, nil
		}
	}
	m.seq[cp.ExecutionID] = next
	prev, hadPrev := m.lastWrite[cp.ExecutionID]
	m.lastWrite[cp.ExecutionID] = now
	m.mu.Unlock()

	cp.Sequence = next
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	if err := m.backend.Save(ctx, cp); err != nil {
		// A failed save must not arm the interval throttle, or the next
		// attempt would be suppressed for a full interval.
		m.mu.Lock()
		if m.lastWrite[cp.ExecutionID].Equal(now) {
			if hadPrev {
				m.lastWrite[cp.ExecutionID] = prev
			} else {
				delete(m.lastWrite, cp.ExecutionID)
			}
		}
		m.mu.Unlock()
		return false, err
	}
	return true, nil
}

// nextSequenceLocked returns the next sequence for executionID, consulting
// the backend once per ID so counters survive restarts.
func (m *Manager) nextSequenceLocked(ctx context.Context, executionID string) (int64, error) {
	if cur, ok := m.seq[executionID]; ok {
		return cur + 1, nil
	}
	latest, err := m.backend.LoadLatest(ctx, executionID)
	switch {
	case errors.Is(err, ErrNotFound):
		return 1, nil
	case err != nil:
		return 0, err
	default:
		return latest.Sequence + 1, nil
	}
}

// Latest returns the most recent checkpoint for executionID, or ErrNotFound.
func (m *Manager) Latest(ctx context.Context, executionID string) (*Checkpoint, error) {
	return m.backend.LoadLatest(ctx, executionID)
}

// List returns checkpoint metadata for executionID, newest first.
func (m *Manager) List(ctx context.Context, executionID string) ([]Meta, error) {
	return m.backend.List(ctx, executionID)
}

// Cleanup deletes checkpoints of executionID older than olderThan, always
// retaining the keepLatest most recent regardless of age. Zero olderThan
// falls back to the policy's MaxAge; zero keepLatest falls back to the
// policy's KeepLatest. It returns the number of checkpoints deleted.
func (m *Manager) Cleanup(ctx context.Context, executionID string, olderThan time.Duration, keepLatest int) (int, error) {
	if olderThan == 0 {
		olderThan = m.policy.MaxAge
	}
	if keepLatest == 0 {
		keepLatest = m.policy.KeepLatest
	}

	metas, err := m.backend.List(ctx, executionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	deleted := 0
	// metas is newest first; the first keepLatest entries are untouchable.
	for i, meta := range metas {
		if i < keepLatest {
			continue
		}
		if olderThan > 0 && meta.CreatedAt.After(cutoff) {
			continue
		}
		if err := m.backend.Delete(ctx, executionID, meta.Sequence); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
