package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

// testBackend runs the Backend contract against an implementation.
func testBackend(t *testing.T, backend Backend) {
	t.Helper()
	ctx := context.Background()

	save := func(execID string, seq int64, status string) {
		t.Helper()
		err := backend.Save(ctx, &Checkpoint{
			ExecutionID: execID,
			Sequence:    seq,
			CreatedAt:   time.Now().Add(time.Duration(seq) * time.Second).UTC(),
			Status:      status,
			NodeID:      "node",
			StepCount:   int(seq),
			State:       json.RawMessage(fmt.Sprintf(`{"values":{"seq":%d}}`, seq)),
			LoopCounts:  map[string]int{"check->work#3": int(seq)},
		})
		if err != nil {
			t.Fatalf("Save(seq=%d) error: %v", seq, err)
		}
	}

	t.Run("load latest of unknown execution", func(t *testing.T) {
		_, err := backend.LoadLatest(ctx, "unknown")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("latest returns highest sequence", func(t *testing.T) {
		save("exec-a", 1, "RUNNING")
		save("exec-a", 2, "RUNNING")
		save("exec-a", 3, "WAITING_FOR_HUMAN")

		cp, err := backend.LoadLatest(ctx, "exec-a")
		if err != nil {
			t.Fatalf("LoadLatest() error: %v", err)
		}
		if cp.Sequence != 3 || cp.Status != "WAITING_FOR_HUMAN" {
			t.Errorf("unexpected latest checkpoint: seq=%d status=%s", cp.Sequence, cp.Status)
		}
		if cp.LoopCounts["check->work#3"] != 3 {
			t.Errorf("loop counts not round-tripped: %v", cp.LoopCounts)
		}
		var doc struct {
			Values map[string]any `json:"values"`
		}
		if err := json.Unmarshal(cp.State, &doc); err != nil {
			t.Fatalf("state not valid JSON: %v", err)
		}
		if doc.Values["seq"] != float64(3) {
			t.Errorf("state payload mismatch: %v", doc.Values)
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		metas, err := backend.List(ctx, "exec-a")
		if err != nil {
			t.Fatalf("List() error: %v", err)
		}
		if len(metas) != 3 {
			t.Fatalf("expected 3 checkpoints, got %d", len(metas))
		}
		if metas[0].Sequence != 3 || metas[2].Sequence != 1 {
			t.Errorf("expected newest first, got %v", metas)
		}
	})

	t.Run("executions are independent", func(t *testing.T) {
		save("exec-b", 1, "RUNNING")
		metas, err := backend.List(ctx, "exec-a")
		if err != nil {
			t.Fatalf("List() error: %v", err)
		}
		if len(metas) != 3 {
			t.Errorf("exec-b write leaked into exec-a listing: %d entries", len(metas))
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := backend.Delete(ctx, "exec-a", 1); err != nil {
			t.Fatalf("Delete() error: %v", err)
		}
		metas, _ := backend.List(ctx, "exec-a")
		if len(metas) != 2 {
			t.Errorf("expected 2 checkpoints after delete, got %d", len(metas))
		}
		// deleting an absent checkpoint is a no-op
		if err := backend.Delete(ctx, "exec-a", 99); err != nil {
			t.Errorf("expected no-op delete, got %v", err)
		}
	})
}

func TestMemoryBackend(t *testing.T) {
	testBackend(t, NewMemoryBackend())
}

func TestMemoryBackend_Isolation(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	state := json.RawMessage(`{"values":{"a":1}}`)
	cp := &Checkpoint{ExecutionID: "x", Sequence: 1, CreatedAt: time.Now(), Status: "RUNNING", State: state}
	if err := backend.Save(ctx, cp); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// mutating the caller's copy after Save must not affect the store
	cp.State[10] = 'X'

	loaded, err := backend.LoadLatest(ctx, "x")
	if err != nil {
		t.Fatalf("LoadLatest() error: %v", err)
	}
	if string(loaded.State) != `{"values":{"a":1}}` {
		t.Errorf("stored state aliased caller's buffer: %s", loaded.State)
	}
}

func TestFileBackend(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend() error: %v", err)
	}
	testBackend(t, backend)
}

func TestFileBackend_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend() error: %v", err)
	}
	err = first.Save(ctx, &Checkpoint{
		ExecutionID: "exec-1", Sequence: 7, CreatedAt: time.Now().UTC(),
		Status: "RUNNING", NodeID: "work", StepCount: 7,
		State: json.RawMessage(`{"values":{}}`),
	})
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	second, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend() error: %v", err)
	}
	cp, err := second.LoadLatest(ctx, "exec-1")
	if err != nil {
		t.Fatalf("LoadLatest() after reopen error: %v", err)
	}
	if cp.Sequence != 7 || cp.NodeID != "work" {
		t.Errorf("unexpected checkpoint after reopen: %+v", cp)
	}
}

func TestSQLiteBackend(t *testing.T) {
	backend, err := NewSQLiteBackend(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteBackend() error: %v", err)
	}
	defer backend.Close()
	testBackend(t, backend)
}

func TestSQLiteBackend_File(t *testing.T) {
	path := t.TempDir() + "/checkpoints.db"
	backend, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("NewSQLiteBackend() error: %v", err)
	}
	ctx := context.Background()
	err = backend.Save(ctx, &Checkpoint{
		ExecutionID: "exec-1", Sequence: 1, CreatedAt: time.Now().UTC(),
		Status: "COMPLETED", NodeID: "done", StepCount: 4,
		State: json.RawMessage(`{"values":{"x":true}}`),
	})
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reopened, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()
	cp, err := reopened.LoadLatest(ctx, "exec-1")
	if err != nil {
		t.Fatalf("LoadLatest() error: %v", err)
	}
	if cp.Status != "COMPLETED" || cp.StepCount != 4 {
		t.Errorf("unexpected checkpoint after reopen: %+v", cp)
	}
}
