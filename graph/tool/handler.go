package tool

import (
	"context"
	"fmt"
)

// Handler adapts a Tool into a workflow task handler. It reads the tool
// input from a state key, invokes the tool, and writes the output under
// another key.
//
// Handler structurally satisfies the graph package's Handler interface:
//
//	fetch := tool.NewHandler(tool.NewHTTPTool(), "request", "response")
//	builder.Task("fetch", fetch)
type Handler struct {
	tool      Tool
	inputKey  string
	outputKey string
}

// NewHandler creates a Handler around t. inputKey names the state key
// holding the tool input (a map); outputKey names the key the tool output is
// stored under. Empty keys default to the tool's name with "_input" and
// "_output" suffixes.
func NewHandler(t Tool, inputKey, outputKey string) *Handler {
	if inputKey == "" {
		inputKey = t.Name() + "_input"
	}
	if outputKey == "" {
		outputKey = t.Name() + "_output"
	}
	return &Handler{tool: t, inputKey: inputKey, outputKey: outputKey}
}

// Handle invokes the tool with the input found in the state. A missing
// input key invokes the tool with an empty input map.
func (h *Handler) Handle(ctx context.Context, state map[string]any) (map[string]any, error) {
	input, _ := state[h.inputKey].(map[string]any)
	if input == nil {
		input = map[string]any{}
	}

	output, err := h.tool.Call(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", h.tool.Name(), err)
	}
	return map[string]any{h.outputKey: output}, nil
}
