// Package graph provides the workflow graph model and execution engine for
// GraphFlow.
package graph

// EdgeType identifies how the engine treats a transition.
type EdgeType string

const (
	// EdgeNormal is an unconditional transition.
	EdgeNormal EdgeType = "NORMAL"

	// EdgeConditional is traversed only when its predicate returns true.
	// Predicates on a CONDITION node are evaluated in declaration order and
	// the first match wins.
	EdgeConditional EdgeType = "CONDITIONAL"

	// EdgeLoopBack closes a loop. Cycles are only legal through LOOP_BACK
	// edges, and every traversal counts against the loop iteration ceiling.
	EdgeLoopBack EdgeType = "LOOP_BACK"
)

// Edge is a directed connection between two nodes.
//
// Edges are declared at build time; their declaration order is the
// deterministic tie-break order for conditional evaluation.
type Edge struct {
	// From is the source node ID.
	From string

	// To is the destination node ID.
	To string

	// Type selects the traversal semantics for this edge.
	Type EdgeType

	// When is the predicate for CONDITIONAL edges (and for LOOP_BACK edges
	// leaving a CONDITION node). Nil on NORMAL edges.
	When Condition

	// Label optionally names the edge when a condition set is expressed as a
	// mapping of label to predicate. Informational only.
	Label string
}
