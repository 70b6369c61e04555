package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogEmitter_Text(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{
		ExecutionID: "exec-001",
		Step:        2,
		NodeID:      "fetch",
		Msg:         "node_start",
	})

	line := buf.String()
	if !strings.HasPrefix(line, "[node_start]") {
		t.Errorf("expected [node_start] prefix, got %q", line)
	}
	for _, want := range []string{"executionID=exec-001", "step=2", "nodeID=fetch"} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %q in output, got %q", want, line)
		}
	}

	t.Run("meta is appended as JSON", func(t *testing.T) {
		buf.Reset()
		emitter.Emit(Event{
			ExecutionID: "exec-001",
			Msg:         "node_end",
			Meta:        map[string]any{"duration_ms": 12},
		})
		if !strings.Contains(buf.String(), `meta={"duration_ms":12}`) {
			t.Errorf("expected meta JSON, got %q", buf.String())
		}
	})
}

func TestLogEmitter_JSON(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(Event{
		ExecutionID: "exec-001",
		Step:        1,
		NodeID:      "fetch",
		Msg:         "node_start",
		Meta:        map[string]any{"attempt": float64(1)},
	})

	var decoded struct {
		ExecutionID string         `json:"executionID"`
		Step        int            `json:"step"`
		NodeID      string         `json:"nodeID"`
		Msg         string         `json:"msg"`
		Meta        map[string]any `json:"meta"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output not valid JSON: %v (%q)", err, buf.String())
	}
	if decoded.ExecutionID != "exec-001" || decoded.Step != 1 || decoded.Msg != "node_start" {
		t.Errorf("unexpected decoded event: %+v", decoded)
	}
	if decoded.Meta["attempt"] != float64(1) {
		t.Errorf("meta not round-tripped: %v", decoded.Meta)
	}

	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("expected JSONL line to end with newline")
	}
}

func TestNullEmitter(t *testing.T) {
	// must not panic or block
	NewNullEmitter().Emit(Event{ExecutionID: "x", Msg: "anything"})
}
