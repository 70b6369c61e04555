package graph

import (
	"context"
	"time"
)

// NodeType identifies the execution semantics of a node.
//
// The engine dispatches on this type: TASK nodes invoke a handler, CONDITION
// nodes select an outgoing edge, PARALLEL nodes fan out branches to a join,
// LOOP nodes repeat a body handler until an exit condition holds, SUBGRAPH
// nodes run a nested graph, and HUMAN_INPUT nodes suspend execution until a
// response arrives.
type NodeType string

const (
	// NodeStart is the unique entry point of a graph. It carries no handler.
	NodeStart NodeType = "START"

	// NodeEnd terminates an execution with status COMPLETED.
	NodeEnd NodeType = "END"

	// NodeTask invokes a Handler and merges its partial-state result.
	NodeTask NodeType = "TASK"

	// NodeCondition selects the first outgoing edge whose predicate matches.
	NodeCondition NodeType = "CONDITION"

	// NodeParallel fans out to branch entry nodes and barriers at a join.
	NodeParallel NodeType = "PARALLEL"

	// NodeLoop repeats a body handler until its exit condition returns true.
	NodeLoop NodeType = "LOOP"

	// NodeSubgraph runs a nested graph and merges its final state back.
	NodeSubgraph NodeType = "SUBGRAPH"

	// NodeHumanInput suspends execution until a human response is supplied.
	NodeHumanInput NodeType = "HUMAN_INPUT"
)

// Handler is the capability interface implemented by external node logic.
//
// A handler receives a copy of the workflow state and returns a partial-state
// update: returned keys overwrite existing keys, keys not returned are left
// untouched. Handlers may be long-running and should respect context
// cancellation. Handlers never call back into the engine.
//
// Handlers should be idempotent: a crash between handler completion and the
// following checkpoint write causes that one step to re-execute on resume.
type Handler interface {
	Handle(ctx context.Context, state map[string]any) (map[string]any, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
//
// Example:
//
//	double := graph.HandlerFunc(func(ctx context.Context, state map[string]any) (map[string]any, error) {
//	    n, _ := state["counter"].(float64)
//	    return map[string]any{"counter": n * 2}, nil
//	})
type HandlerFunc func(ctx context.Context, state map[string]any) (map[string]any, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, state map[string]any) (map[string]any, error) {
	return f(ctx, state)
}

// Condition evaluates workflow state to a boolean.
//
// Conditions drive CONDITIONAL edge selection and LOOP exit decisions. They
// must be pure with respect to engine state: side effects are undefined
// behavior for replay determinism.
type Condition func(state map[string]any) bool

// Node is a single vertex in a workflow graph.
//
// Nodes are created at build time and immutable once the graph is built.
// Which fields are meaningful depends on Type; the Builder helpers populate
// the right combination and Build validates it.
type Node struct {
	// ID uniquely identifies the node within its graph.
	ID string

	// Type selects the execution semantics for this node.
	Type NodeType

	// Handler is the external logic for TASK nodes and the body of LOOP nodes.
	Handler Handler

	// Metadata is an opaque bag passed through to handlers and bridges.
	Metadata map[string]any

	// HandlerTimeout overrides the engine-wide handler timeout for this node.
	// Zero means use the engine default.
	HandlerTimeout time.Duration

	// Branches lists the entry node of each PARALLEL branch, in declaration
	// order. Declaration order is also the deterministic merge order at the
	// join: later branches overwrite overlapping keys.
	Branches []string

	// Join is the node where all PARALLEL branches barrier-synchronize.
	Join string

	// Exit is the LOOP exit condition, evaluated after each body iteration.
	Exit Condition

	// Sub is the nested graph run by a SUBGRAPH node.
	Sub *Graph

	// Isolate controls the state view handed to a SUBGRAPH. When false the
	// nested graph starts from a copy of the full current state and its whole
	// final state merges back. When true it starts empty except for the keys
	// named in Metadata["inputs"], and only Metadata["outputs"] keys merge
	// back.
	Isolate bool

	// Prompt is the message presented at a HUMAN_INPUT node.
	Prompt string

	// InputType hints the expected shape of the human response (free text,
	// approval, choice). Opaque to the engine.
	InputType string

	// InputTimeout bounds the wait for a human response when an InputBridge
	// is configured. Zero means wait indefinitely.
	InputTimeout time.Duration

	// Default resolves a timed-out HUMAN_INPUT node instead of failing.
	// Nil means a timeout fails the execution with HumanInputTimeoutError.
	Default map[string]any
}
