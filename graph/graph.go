package graph

import (
	"fmt"
	"time"
)

// Graph is an immutable, validated workflow graph.
//
// A Graph is produced by Builder.Build and never mutated afterwards, so it may
// be shared across concurrent executions without synchronization. Outgoing
// edges keep their declaration order; that order is the deterministic
// tie-break for conditional evaluation.
type Graph struct {
	id       string
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]int // node ID -> edge indexes, declaration order
	start    string
}

// ID returns the graph identifier.
func (g *Graph) ID() string { return g.id }

// Start returns the ID of the START node.
func (g *Graph) Start() string { return g.start }

// Node returns the node with the given ID, or nil if it does not exist.
func (g *Graph) Node(id string) *Node { return g.nodes[id] }

// Outgoing returns the outgoing edges of a node in declaration order.
func (g *Graph) Outgoing(id string) []Edge {
	idxs := g.outgoing[id]
	out := make([]Edge, len(idxs))
	for i, idx := range idxs {
		out[i] = g.edges[idx]
	}
	return out
}

// edgeKey identifies an edge for loop accounting. Stable across resumes
// because it is derived from declaration position, not runtime state.
func (g *Graph) edgeKey(idx int) string {
	e := g.edges[idx]
	return fmt.Sprintf("%s->%s#%d", e.From, e.To, idx)
}

// normalTarget returns the single NORMAL outgoing edge of a node. Nodes that
// are not branch points must have exactly one.
func (g *Graph) normalTarget(id string) (string, error) {
	var target string
	count := 0
	for _, idx := range g.outgoing[id] {
		if g.edges[idx].Type == EdgeNormal {
			target = g.edges[idx].To
			count++
		}
	}
	if count != 1 {
		return "", &GraphStructureError{
			GraphID: g.id,
			NodeID:  id,
			Msg:     fmt.Sprintf("expected exactly one outgoing NORMAL edge, found %d", count),
		}
	}
	return target, nil
}

// Builder assembles nodes and edges and validates them into a Graph.
//
// Builder methods return the builder for chaining and accumulate errors;
// Build reports the first one. A built graph is frozen: grow a running
// workflow by substituting a SUBGRAPH node, not by mutating the graph.
//
// Example:
//
//	g, err := graph.NewBuilder("pipeline").
//	    Start("start").
//	    Task("fetch", fetchHandler).
//	    Task("transform", transformHandler).
//	    End("done").
//	    Connect("start", "fetch").
//	    Connect("fetch", "transform").
//	    Connect("transform", "done").
//	    Build()
type Builder struct {
	id    string
	nodes []*Node
	edges []Edge
	err   error
}

// NewBuilder creates a Builder for a graph with the given ID.
func NewBuilder(graphID string) *Builder {
	return &Builder{id: graphID}
}

func (b *Builder) fail(nodeID, msg string) *Builder {
	if b.err == nil {
		b.err = &GraphStructureError{GraphID: b.id, NodeID: nodeID, Msg: msg}
	}
	return b
}

// AddNode adds a fully specified node. The helper methods below cover the
// common shapes; AddNode is the escape hatch for unusual combinations.
func (b *Builder) AddNode(n *Node) *Builder {
	if n == nil {
		return b.fail("", "node cannot be nil")
	}
	if n.ID == "" {
		return b.fail("", "node ID cannot be empty")
	}
	b.nodes = append(b.nodes, n)
	return b
}

// Start declares the graph entry node.
func (b *Builder) Start(id string) *Builder {
	return b.AddNode(&Node{ID: id, Type: NodeStart})
}

// End declares a terminal node.
func (b *Builder) End(id string) *Builder {
	return b.AddNode(&Node{ID: id, Type: NodeEnd})
}

// Task declares a handler node.
func (b *Builder) Task(id string, h Handler) *Builder {
	return b.AddNode(&Node{ID: id, Type: NodeTask, Handler: h})
}

// Condition declares a branch point. Attach the predicates with When or
// Switch; the node itself carries no logic.
func (b *Builder) Condition(id string) *Builder {
	return b.AddNode(&Node{ID: id, Type: NodeCondition})
}

// Parallel declares a fan-out node with its branch entries and join node.
func (b *Builder) Parallel(id string, branches []string, join string) *Builder {
	return b.AddNode(&Node{ID: id, Type: NodeParallel, Branches: branches, Join: join})
}

// Loop declares a loop node whose body handler repeats until exit returns
// true. The iteration ceiling is an engine option. A LOOP_BACK self-edge is
// added so the loop shape is explicit in the edge list.
func (b *Builder) Loop(id string, body Handler, exit Condition) *Builder {
	b.AddNode(&Node{ID: id, Type: NodeLoop, Handler: body, Exit: exit})
	b.edges = append(b.edges, Edge{From: id, To: id, Type: EdgeLoopBack})
	return b
}

// Subgraph declares a nested-graph node. isolate controls the state view per
// the Node.Isolate documentation.
func (b *Builder) Subgraph(id string, sub *Graph, isolate bool) *Builder {
	return b.AddNode(&Node{ID: id, Type: NodeSubgraph, Sub: sub, Isolate: isolate})
}

// HumanInput declares a suspension point that waits for an external response.
func (b *Builder) HumanInput(id, prompt string) *Builder {
	return b.AddNode(&Node{ID: id, Type: NodeHumanInput, Prompt: prompt})
}

// Connect adds an unconditional NORMAL edge.
func (b *Builder) Connect(from, to string) *Builder {
	b.edges = append(b.edges, Edge{From: from, To: to, Type: EdgeNormal})
	return b
}

// When adds a CONDITIONAL edge with an optional label.
func (b *Builder) When(from, to string, cond Condition, label string) *Builder {
	if cond == nil {
		return b.fail(from, "conditional edge requires a condition")
	}
	b.edges = append(b.edges, Edge{From: from, To: to, Type: EdgeConditional, When: cond, Label: label})
	return b
}

// LoopBack adds a LOOP_BACK edge, optionally guarded by a predicate when it
// leaves a CONDITION node.
func (b *Builder) LoopBack(from, to string, cond Condition) *Builder {
	b.edges = append(b.edges, Edge{From: from, To: to, Type: EdgeLoopBack, When: cond})
	return b
}

// Case names one arm of a conditional fan-out.
type Case struct {
	Label string
	When  Condition
	To    string
}

// Switch is sugar for a conditional fan-out: one CONDITION source node and N
// labelled predicates, evaluated in the order given.
func (b *Builder) Switch(from string, cases ...Case) *Builder {
	for _, c := range cases {
		b.When(from, c.To, c.When, c.Label)
	}
	return b
}

// Build validates the assembled nodes and edges and returns the frozen Graph.
//
// Validation enforces, eagerly and before any handler runs:
//   - exactly one START and at least one END node
//   - unique node IDs and resolvable edge endpoints
//   - every node reachable from START
//   - no cycles except through LOOP_BACK edges
//   - every CONDITION outgoing edge carries a predicate
//   - every TASK, LOOP, SUBGRAPH and HUMAN_INPUT node has exactly one
//     outgoing NORMAL edge (they are not branch points)
//   - every PARALLEL node declares a join reachable from each branch entry,
//     with no HUMAN_INPUT node between a branch entry and the join
//   - every LOOP_BACK target can reach the edge source without LOOP_BACK
//     edges, so the loop can terminate deterministically
func (b *Builder) Build() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}

	g := &Graph{
		id:       b.id,
		nodes:    make(map[string]*Node, len(b.nodes)),
		edges:    b.edges,
		outgoing: make(map[string][]int),
	}

	starts, ends := 0, 0
	for _, n := range b.nodes {
		if _, dup := g.nodes[n.ID]; dup {
			return nil, &GraphStructureError{GraphID: b.id, NodeID: n.ID, Msg: "duplicate node ID"}
		}
		g.nodes[n.ID] = n
		switch n.Type {
		case NodeStart:
			starts++
			g.start = n.ID
		case NodeEnd:
			ends++
		}
	}
	if starts != 1 {
		return nil, &GraphStructureError{GraphID: b.id, Msg: fmt.Sprintf("graph requires exactly one START node, found %d", starts)}
	}
	if ends == 0 {
		return nil, &GraphStructureError{GraphID: b.id, Msg: "graph requires at least one END node"}
	}

	for i, e := range g.edges {
		if g.nodes[e.From] == nil {
			return nil, &GraphStructureError{GraphID: b.id, NodeID: e.From, Msg: "edge references undefined source node"}
		}
		if g.nodes[e.To] == nil {
			return nil, &GraphStructureError{GraphID: b.id, NodeID: e.To, Msg: "edge references undefined target node"}
		}
		if e.Type == EdgeConditional && e.When == nil {
			return nil, &GraphStructureError{GraphID: b.id, NodeID: e.From, Msg: "conditional edge requires a condition"}
		}
		g.outgoing[e.From] = append(g.outgoing[e.From], i)
	}

	if err := g.validateNodes(); err != nil {
		return nil, err
	}
	if err := g.validateReachability(); err != nil {
		return nil, err
	}
	if err := g.validateAcyclic(); err != nil {
		return nil, err
	}
	if err := g.validateLoopBacks(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) validateNodes() error {
	for _, n := range g.nodes {
		switch n.Type {
		case NodeTask, NodeLoop, NodeSubgraph, NodeHumanInput:
			if _, err := g.normalTarget(n.ID); err != nil {
				return err
			}
		}
		switch n.Type {
		case NodeTask:
			if n.Handler == nil {
				return &GraphStructureError{GraphID: g.id, NodeID: n.ID, Msg: "task node requires a handler"}
			}
		case NodeCondition:
			idxs := g.outgoing[n.ID]
			if len(idxs) == 0 {
				return &GraphStructureError{GraphID: g.id, NodeID: n.ID, Msg: "condition node requires outgoing edges"}
			}
			for _, idx := range idxs {
				if g.edges[idx].When == nil {
					return &GraphStructureError{GraphID: g.id, NodeID: n.ID, Msg: "condition node edges must all carry a predicate"}
				}
			}
		case NodeLoop:
			if n.Handler == nil {
				return &GraphStructureError{GraphID: g.id, NodeID: n.ID, Msg: "loop node requires a body handler"}
			}
			if n.Exit == nil {
				return &GraphStructureError{GraphID: g.id, NodeID: n.ID, Msg: "loop node requires an exit condition"}
			}
		case NodeSubgraph:
			if n.Sub == nil {
				return &GraphStructureError{GraphID: g.id, NodeID: n.ID, Msg: "subgraph node requires a nested graph"}
			}
		case NodeParallel:
			if err := g.validateParallel(n); err != nil {
				return err
			}
		case NodeEnd:
			if len(g.outgoing[n.ID]) != 0 {
				return &GraphStructureError{GraphID: g.id, NodeID: n.ID, Msg: "end node cannot have outgoing edges"}
			}
		}
	}
	return nil
}

func (g *Graph) validateParallel(n *Node) error {
	if len(n.Branches) == 0 {
		return &GraphStructureError{GraphID: g.id, NodeID: n.ID, Msg: "parallel node requires at least one branch"}
	}
	if n.Join == "" || g.nodes[n.Join] == nil {
		return &GraphStructureError{GraphID: g.id, NodeID: n.ID, Msg: "parallel node requires a declared join node"}
	}
	for _, entry := range n.Branches {
		if g.nodes[entry] == nil {
			return &GraphStructureError{GraphID: g.id, NodeID: n.ID, Msg: "parallel branch references undefined node: " + entry}
		}
		seen := map[string]bool{}
		if !g.reaches(entry, n.Join, seen) {
			return &GraphStructureError{GraphID: g.id, NodeID: n.ID, Msg: fmt.Sprintf("join %q not reachable from branch entry %q", n.Join, entry)}
		}
		// Branches cannot suspend (the barrier would deadlock on a branch
		// waiting for human input) and cannot terminate the execution before
		// the join.
		for id := range seen {
			if id == n.Join {
				continue
			}
			switch g.nodes[id].Type {
			case NodeHumanInput:
				return &GraphStructureError{GraphID: g.id, NodeID: n.ID, Msg: "human input node " + id + " not allowed inside a parallel branch"}
			case NodeEnd:
				return &GraphStructureError{GraphID: g.id, NodeID: n.ID, Msg: "end node " + id + " not allowed inside a parallel branch"}
			}
		}
	}
	return nil
}

// reaches reports whether target is reachable from id over non-LOOP_BACK
// edges, recording visited nodes in seen.
func (g *Graph) reaches(id, target string, seen map[string]bool) bool {
	if id == target {
		seen[id] = true
		return true
	}
	if seen[id] {
		return false
	}
	seen[id] = true
	found := false
	for _, idx := range g.outgoing[id] {
		if g.edges[idx].Type == EdgeLoopBack {
			continue
		}
		if g.reaches(g.edges[idx].To, target, seen) {
			found = true
		}
	}
	return found
}

func (g *Graph) validateReachability() error {
	seen := map[string]bool{}
	var walk func(id string)
	walk = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, idx := range g.outgoing[id] {
			walk(g.edges[idx].To)
		}
		// PARALLEL branch entries are reached through the node declaration,
		// not necessarily through explicit edges.
		if n := g.nodes[id]; n.Type == NodeParallel {
			for _, entry := range n.Branches {
				walk(entry)
			}
			walk(n.Join)
		} else if n.Type == NodeSubgraph {
			// nested graphs validate themselves at their own Build
		}
	}
	walk(g.start)
	for id := range g.nodes {
		if !seen[id] {
			return &GraphStructureError{GraphID: g.id, NodeID: id, Msg: "node unreachable from START"}
		}
	}
	return nil
}

// validateAcyclic rejects cycles that do not pass through a LOOP_BACK edge.
func (g *Graph) validateAcyclic() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for _, idx := range g.outgoing[id] {
			if g.edges[idx].Type == EdgeLoopBack {
				continue
			}
			to := g.edges[idx].To
			switch color[to] {
			case gray:
				return &GraphStructureError{GraphID: g.id, NodeID: to, Msg: "cycle detected without a LOOP_BACK edge"}
			case white:
				if err := visit(to); err != nil {
					return err
				}
			}
		}
		if n := g.nodes[id]; n.Type == NodeParallel {
			for _, entry := range n.Branches {
				if color[entry] == white {
					if err := visit(entry); err != nil {
						return err
					}
				}
			}
		}
		color[id] = black
		return nil
	}
	for id := range g.nodes {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateLoopBacks verifies each LOOP_BACK target can flow back to the edge
// source without further LOOP_BACK edges; otherwise the loop cannot
// terminate deterministically.
func (g *Graph) validateLoopBacks() error {
	for _, e := range g.edges {
		if e.Type != EdgeLoopBack {
			continue
		}
		if e.From == e.To {
			continue // self loop on a LOOP node
		}
		if !g.reaches(e.To, e.From, map[string]bool{}) {
			return &GraphStructureError{
				GraphID: g.id,
				NodeID:  e.From,
				Msg:     fmt.Sprintf("LOOP_BACK target %q cannot reach %q without another LOOP_BACK edge", e.To, e.From),
			}
		}
	}
	return nil
}

// sanity guard for metadata timeouts used by bridges; kept here so builders
// of raw Node values share the same clamp as helper-built nodes.
func clampTimeout(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
