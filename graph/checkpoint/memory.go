package checkpoint

import (
	"context"
	"sort"
	"sync"
)

// MemoryBackend stores checkpoints in process memory. It is the default for
// tests and single-process workloads; checkpoints do not survive a restart.
type MemoryBackend struct {
	mu   sync.RWMutex
	byID map[string][]*Checkpoint // sorted ascending by sequence
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{byID: make(map[string][]*Checkpoint)}
}

// Save implements Backend.
func (b *MemoryBackend) Save(_ context.Context, cp *Checkpoint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := *cp
	stored.State = append([]byte(nil), cp.State...)
	if cp.LoopCounts != nil {
		stored.LoopCounts = make(map[string]int, len(cp.LoopCounts))
		for k, v := range cp.LoopCounts {
			stored.LoopCounts[k] = v
		}
	}

	list := b.byID[cp.ExecutionID]
	list = append(list, &stored)
	sort.Slice(list, func(i, j int) bool { return list[i].Sequence < list[j].Sequence })
	b.byID[cp.ExecutionID] = list
	return nil
}

// LoadLatest implements Backend.
func (b *MemoryBackend) LoadLatest(_ context.Context, executionID string) (*Checkpoint, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	list := b.byID[executionID]
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	cp := *list[len(list)-1]
	cp.State = append([]byte(nil), cp.State...)
	return &cp, nil
}

// List implements Backend.
func (b *MemoryBackend) List(_ context.Context, executionID string) ([]Meta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	list := b.byID[executionID]
	metas := make([]Meta, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		cp := list[i]
		metas = append(metas, Meta{
			ExecutionID: cp.ExecutionID,
			Sequence:    cp.Sequence,
			CreatedAt:   cp.CreatedAt,
			Status:      cp.Status,
			NodeID:      cp.NodeID,
			StepCount:   cp.StepCount,
		})
	}
	return metas, nil
}

// Delete implements Backend.
func (b *MemoryBackend) Delete(_ context.Context, executionID string, sequence int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.byID[executionID]
	for i, cp := range list {
		if cp.Sequence == sequence {
			b.byID[executionID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}
