package tool

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("routes input and output through state keys", func(t *testing.T) {
		mock := &MockTool{
			ToolName:  "search",
			Responses: []map[string]any{{"hits": 3}},
		}
		h := NewHandler(mock, "query", "results")

		delta, err := h.Handle(ctx, map[string]any{
			"query": map[string]any{"term": "golang"},
		})
		if err != nil {
			t.Fatalf("Handle() error: %v", err)
		}
		if !reflect.DeepEqual(delta, map[string]any{"results": map[string]any{"hits": 3}}) {
			t.Errorf("unexpected delta: %v", delta)
		}
		if mock.CallCount() != 1 {
			t.Fatalf("expected 1 tool call, got %d", mock.CallCount())
		}
		if mock.Calls[0].Input["term"] != "golang" {
			t.Errorf("tool did not receive input: %v", mock.Calls[0].Input)
		}
	})

	t.Run("default keys derive from tool name", func(t *testing.T) {
		mock := &MockTool{ToolName: "search", Responses: []map[string]any{{"ok": true}}}
		h := NewHandler(mock, "", "")

		delta, err := h.Handle(ctx, map[string]any{
			"search_input": map[string]any{"term": "x"},
		})
		if err != nil {
			t.Fatalf("Handle() error: %v", err)
		}
		if _, ok := delta["search_output"]; !ok {
			t.Errorf("expected output under search_output, got %v", delta)
		}
	})

	t.Run("missing input key calls tool with empty map", func(t *testing.T) {
		mock := &MockTool{ToolName: "ping", Responses: []map[string]any{{"pong": true}}}
		h := NewHandler(mock, "", "")

		if _, err := h.Handle(ctx, map[string]any{}); err != nil {
			t.Fatalf("Handle() error: %v", err)
		}
		if mock.Calls[0].Input == nil || len(mock.Calls[0].Input) != 0 {
			t.Errorf("expected empty input map, got %v", mock.Calls[0].Input)
		}
	})

	t.Run("tool error is wrapped with tool name", func(t *testing.T) {
		cause := errors.New("backend down")
		mock := &MockTool{ToolName: "search", Err: cause}
		h := NewHandler(mock, "", "")

		_, err := h.Handle(ctx, map[string]any{})
		if !errors.Is(err, cause) {
			t.Fatalf("expected wrapped cause, got %v", err)
		}
	})
}

func TestMockTool(t *testing.T) {
	ctx := context.Background()

	t.Run("responses in order then repeat", func(t *testing.T) {
		mock := &MockTool{
			ToolName:  "m",
			Responses: []map[string]any{{"n": 1}, {"n": 2}},
		}
		for _, want := range []int{1, 2, 2} {
			out, err := mock.Call(ctx, nil)
			if err != nil {
				t.Fatalf("Call() error: %v", err)
			}
			if out["n"] != want {
				t.Errorf("expected n=%d, got %v", want, out["n"])
			}
		}
	})

	t.Run("reset", func(t *testing.T) {
		mock := &MockTool{ToolName: "m", Responses: []map[string]any{{"n": 1}, {"n": 2}}}
		_, _ = mock.Call(ctx, nil)
		mock.Reset()
		if mock.CallCount() != 0 {
			t.Errorf("expected cleared history, got %d", mock.CallCount())
		}
		out, _ := mock.Call(ctx, nil)
		if out["n"] != 1 {
			t.Errorf("expected response cursor reset, got %v", out["n"])
		}
	})
}
