// Package tool provides external tools callable from workflow task handlers.
package tool

import "context"

// Tool is an external capability a workflow can invoke: an HTTP API, a
// database query, a shell command.
//
// Implementations must respect context cancellation and be safe for
// concurrent use; parallel branches may call the same tool.
type Tool interface {
	// Name uniquely identifies the tool.
	Name() string

	// Call executes the tool with the given input and returns its output.
	Call(ctx context.Context, input map[string]any) (map[string]any, error)
}
