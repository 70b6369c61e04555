package graph

import (
	"fmt"
	"time"
)

// GraphStructureError reports a structural problem found during Build.
type GraphStructureError struct {
	GraphID string
	NodeID  string
	Msg     string
}

func (e *GraphStructureError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("graph %q: node %q: %s", e.GraphID, e.NodeID, e.Msg)
	}
	return fmt.Sprintf("graph %q: %s", e.GraphID, e.Msg)
}

// NoMatchingConditionError reports a CONDITION node where every outgoing
// predicate evaluated false.
type NoMatchingConditionError struct {
	NodeID string
}

func (e *NoMatchingConditionError) Error() string {
	return fmt.Sprintf("condition node %q: no outgoing condition matched", e.NodeID)
}

// LoopLimitExceededError reports a loop that hit the iteration ceiling
// without its exit condition turning true.
type LoopLimitExceededError struct {
	NodeID string
	Limit  int
}

func (e *LoopLimitExceededError) Error() string {
	return fmt.Sprintf("loop node %q: exceeded %d iterations", e.NodeID, e.Limit)
}

// HumanInputTimeoutError reports a HUMAN_INPUT node whose bridge timed out
// and which declared no default response.
type HumanInputTimeoutError struct {
	NodeID  string
	Timeout time.Duration
}

func (e *HumanInputTimeoutError) Error() string {
	return fmt.Sprintf("human input node %q: no response within %s", e.NodeID, e.Timeout)
}

// HandlerError wraps an error returned by a node handler, attaching the node
// ID for diagnostics. Use errors.As to recover it from a failed Result and
// errors.Is/As on the wrapped cause.
type HandlerError struct {
	NodeID string
	Err    error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("node %q: %v", e.NodeID, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
