// Package emit provides pluggable observability events for workflow
// execution.
package emit

// Event is an observability event emitted during workflow execution.
//
// The engine emits events for node starts and completions, execution
// transitions (completed, failed, suspended, resumed, cancelled), checkpoint
// writes, loop iterations and parallel branch lifecycle. Emitters route them
// to logs, buffers or OpenTelemetry.
type Event struct {
	// ExecutionID identifies the workflow execution that emitted the event.
	ExecutionID string

	// Step is the sequential step number in the execution (1-indexed).
	// Zero for execution-level events.
	Step int

	// NodeID identifies the node the event concerns. Empty for
	// execution-level events.
	NodeID string

	// Msg names the event, e.g. "node_start", "checkpoint_saved",
	// "execution_suspended".
	Msg string

	// Meta carries additional structured data. Common keys:
	//   - "duration_ms": step duration in milliseconds
	//   - "error": error details
	//   - "status": execution status after the event
	//   - "sequence": checkpoint sequence number
	//   - "branch": parallel branch entry node
	Meta map[string]any
}
