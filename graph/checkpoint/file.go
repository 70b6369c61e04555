package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// FileBackend stores each checkpoint as a JSON file under
// <dir>/<executionID>/checkpoint-<sequence>.json. Writes go through a temp
// file and rename so a crash mid-write never leaves a truncated checkpoint
// as the latest.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file backend rooted at dir, creating it if
// needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &IOError{Op: "init", Err: err}
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) execDir(executionID string) string {
	return filepath.Join(b.dir, executionID)
}

func (b *FileBackend) path(executionID string, sequence int64) string {
	return filepath.Join(b.execDir(executionID), fmt.Sprintf("checkpoint-%010d.json", sequence))
}

// Save implements Backend.
func (b *FileBackend) Save(_ context.Context, cp *Checkpoint) error {
	dir := b.execDir(cp.ExecutionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Op: "save", Err: err}
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return &IOError{Op: "save", Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return &IOError{Op: "save", Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &IOError{Op: "save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &IOError{Op: "save", Err: err}
	}
	if err := os.Rename(tmpName, b.path(cp.ExecutionID, cp.Sequence)); err != nil {
		os.Remove(tmpName)
		return &IOError{Op: "save", Err: err}
	}
	return nil
}

// sequences returns the stored sequence numbers for executionID, ascending.
func (b *FileBackend) sequences(executionID string) ([]int64, error) {
	entries, err := os.ReadDir(b.execDir(executionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &IOError{Op: "list", Err: err}
	}
	var seqs []int64
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "checkpoint-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(name, "checkpoint-"), ".json")
		seq, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	return seqs, nil
}

func (b *FileBackend) load(executionID string, sequence int64) (*Checkpoint, error) {
	data, err := os.ReadFile(b.path(executionID, sequence))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, &IOError{Op: "load", Err: err}
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, &IOError{Op: "load", Err: err}
	}
	return &cp, nil
}

// LoadLatest implements Backend.
func (b *FileBackend) LoadLatest(_ context.Context, executionID string) (*Checkpoint, error) {
	seqs, err := b.sequences(executionID)
	if err != nil {
		return nil, err
	}
	if len(seqs) == 0 {
		return nil, ErrNotFound
	}
	return b.load(executionID, seqs[len(seqs)-1])
}

// List implements Backend.
func (b *FileBackend) List(_ context.Context, executionID string) ([]Meta, error) {
	seqs, err := b.sequences(executionID)
	if err != nil {
		return nil, err
	}
	metas := make([]Meta, 0, len(seqs))
	for i := len(seqs) - 1; i >= 0; i-- {
		cp, err := b.load(executionID, seqs[i])
		if err != nil {
			return nil, err
		}
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
func (b *FileBackend) Delete(_ context.Context, executionID string, sequence int64) error {
	err := os.Remove(b.path(executionID, sequence))
	if err != nil && !os.IsNotExist(err) {
		return &IOError{Op: "delete", Err: err}
	}
	return nil
}
