package emit

// Emitter receives observability events from workflow execution.
//
// Implementations should be:
//   - Non-blocking: never slow down workflow execution
//   - Thread-safe: parallel branches emit concurrently
//   - Resilient: an emitter failure must not crash the workflow
//
// Emit must not panic; internal errors should be swallowed or logged by the
// implementation.
type Emitter interface {
	Emit(event Event)
}
