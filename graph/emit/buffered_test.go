package emit

import (
	"sync"
	"testing"
)

func TestBufferedEmitter_History(t *testing.T) {
	emitter := NewBufferedEmitter()

	emitter.Emit(Event{ExecutionID: "exec-1", Step: 1, NodeID: "a", Msg: "node_start"})
	emitter.Emit(Event{ExecutionID: "exec-1", Step: 1, NodeID: "a", Msg: "node_end"})
	emitter.Emit(Event{ExecutionID: "exec-2", Step: 1, NodeID: "x", Msg: "node_start"})

	history := emitter.History("exec-1")
	if len(history) != 2 {
		t.Fatalf("expected 2 events for exec-1, got %d", len(history))
	}
	if history[0].Msg != "node_start" || history[1].Msg != "node_end" {
		t.Errorf("expected emission order preserved, got %v", history)
	}
	if len(emitter.History("exec-2")) != 1 {
		t.Error("expected exec-2 events kept separately")
	}
	if len(emitter.History("ghost")) != 0 {
		t.Error("expected empty history for unknown execution")
	}

	t.Run("history returns a copy", func(t *testing.T) {
		h := emitter.History("exec-1")
		h[0].Msg = "mutated"
		if emitter.History("exec-1")[0].Msg != "node_start" {
			t.Error("mutating returned slice changed the buffer")
		}
	})
}

func TestBufferedEmitter_Filter(t *testing.T) {
	emitter := NewBufferedEmitter()
	for step := 1; step <= 5; step++ {
		emitter.Emit(Event{ExecutionID: "exec-1", Step: step, NodeID: "worker", Msg: "node_start"})
		emitter.Emit(Event{ExecutionID: "exec-1", Step: step, NodeID: "worker", Msg: "node_end"})
	}
	emitter.Emit(Event{ExecutionID: "exec-1", Step: 6, NodeID: "other", Msg: "node_start"})

	t.Run("by message", func(t *testing.T) {
		got := emitter.HistoryWithFilter("exec-1", HistoryFilter{Msg: "node_end"})
		if len(got) != 5 {
			t.Errorf("expected 5 node_end events, got %d", len(got))
		}
	})

	t.Run("by node", func(t *testing.T) {
		got := emitter.HistoryWithFilter("exec-1", HistoryFilter{NodeID: "other"})
		if len(got) != 1 {
			t.Errorf("expected 1 event for other, got %d", len(got))
		}
	})

	t.Run("by step range", func(t *testing.T) {
		minStep, maxStep := 2, 3
		got := emitter.HistoryWithFilter("exec-1", HistoryFilter{MinStep: &minStep, MaxStep: &maxStep})
		if len(got) != 4 {
			t.Errorf("expected 4 events in steps 2-3, got %d", len(got))
		}
	})

	t.Run("combined filters use AND", func(t *testing.T) {
		minStep := 6
		got := emitter.HistoryWithFilter("exec-1", HistoryFilter{Msg: "node_start", MinStep: &minStep})
		if len(got) != 1 || got[0].NodeID != "other" {
			t.Errorf("unexpected filtered events: %v", got)
		}
	})
}

func TestBufferedEmitter_Clear(t *testing.T) {
	emitter := NewBufferedEmitter()
	emitter.Emit(Event{ExecutionID: "exec-1", Msg: "node_start"})
	emitter.Emit(Event{ExecutionID: "exec-2", Msg: "node_start"})

	emitter.Clear("exec-1")
	if len(emitter.History("exec-1")) != 0 {
		t.Error("expected exec-1 cleared")
	}
	if len(emitter.History("exec-2")) != 1 {
		t.Error("expected exec-2 untouched")
	}

	emitter.ClearAll()
	if len(emitter.History("exec-2")) != 0 {
		t.Error("expected all executions cleared")
	}
}

func TestBufferedEmitter_Concurrent(t *testing.T) {
	emitter := NewBufferedEmitter()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				emitter.Emit(Event{ExecutionID: "exec-1", Msg: "node_start"})
			}
		}()
	}
	wg.Wait()

	if got := len(emitter.History("exec-1")); got != 1000 {
		t.Errorf("expected 1000 events, got %d", got)
	}
}
