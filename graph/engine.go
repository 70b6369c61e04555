package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/graphflow/graph/checkpoint"
	"github.com/dshills/graphflow/graph/emit"
)

// Execution statuses. An execution moves RUNNING -> {COMPLETED, FAILED,
// CANCELLED} or suspends at WAITING_FOR_HUMAN until resumed with input.
const (
	StatusRunning   = "RUNNING"
	StatusWaiting   = "WAITING_FOR_HUMAN"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// ErrNoCheckpointManager is returned by Resume when the engine was built
// without a checkpoint manager.
var ErrNoCheckpointManager = errors.New("engine has no checkpoint manager configured")

// Engine executes a Graph step by step.
//
// An Engine is immutable after New and safe for concurrent use; each Run or
// Resume call owns its ExecutionContext. Execution is stepwise, one node at
// a time (parallel branches excepted), so cancellation, checkpointing and
// suspension all happen at step boundaries, never mid-handler.
type Engine struct {
	graph *Graph
	cfg   *config
}

// New creates an Engine for the given validated graph.
func New(g *Graph, opts ...Option) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("graph cannot be nil")
	}
	cfg := newConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return &Engine{graph: g, cfg: cfg}, nil
}

// ExecutionContext is the runtime bookkeeping of one execution.
type ExecutionContext struct {
	ExecutionID   string
	CurrentNodeID string
	Status        string
	StepCount     int
	State         *WorkflowState

	loopCounts   map[string]int
	pendingInput map[string]any
}

// Result summarizes a finished or suspended execution.
type Result struct {
	ExecutionID string
	Status      string
	State       map[string]any
	History     []HistoryEntry
	StoppedAt   string
	StepCount   int
	FailedNode  string
	Err         error
}

// Run starts a new execution of the graph with the given seed state. An
// empty executionID gets a generated UUID.
//
// Run returns a non-nil error only for FAILED executions and infrastructure
// failures; COMPLETED, CANCELLED and WAITING_FOR_HUMAN all return a Result
// with a nil error. Inspect Result.Status to distinguish them. A
// WAITING_FOR_HUMAN result means the execution suspended at a HUMAN_INPUT
// node; continue it later with ResumeWithInput.
func (e *Engine) Run(ctx context.Context, executionID string, seed map[string]any) (*Result, error) {
	if executionID == "" {
		executionID = uuid.NewString()
	}
	ec := &ExecutionContext{
		ExecutionID:   executionID,
		CurrentNodeID: e.graph.Start(),
		Status:        StatusRunning,
		State:         SeedState(seed, e.cfg.historyLimit),
		loopCounts:    make(map[string]int),
	}
	return e.loop(ctx, ec)
}

// Resume continues an execution from its latest checkpoint. For a
// WAITING_FOR_HUMAN checkpoint with no input bridge configured the execution
// suspends again immediately; use ResumeWithInput to supply the answer.
func (e *Engine) Resume(ctx context.Context, executionID string) (*Result, error) {
	return e.resume(ctx, executionID, nil)
}

// ResumeWithInput continues a suspended execution, delivering input to the
// HUMAN_INPUT node it is waiting at. The input delta is merged into the
// state when the node executes.
func (e *Engine) ResumeWithInput(ctx context.Context, executionID string, input map[string]any) (*Result, error) {
	return e.resume(ctx, executionID, input)
}

func (e *Engine) resume(ctx context.Context, executionID string, input map[string]any) (*Result, error) {
	if e.cfg.manager == nil {
		return nil, ErrNoCheckpointManager
	}
	cp, err := e.cfg.manager.Latest(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", executionID, err)
	}

	state := NewState(e.cfg.historyLimit)
	if err := json.Unmarshal(cp.State, state); err != nil {
		return nil, fmt.Errorf("resume %s: decode state: %w", executionID, err)
	}

	if cp.Status == StatusCompleted {
		return &Result{
			ExecutionID: executionID,
			Status:      StatusCompleted,
			State:       state.Values(),
			History:     state.History(),
			StoppedAt:   cp.NodeID,
			StepCount:   cp.StepCount,
		}, nil
	}

	loopCounts := make(map[string]int, len(cp.LoopCounts))
	for k, v := range cp.LoopCounts {
		loopCounts[k] = v
	}
	ec := &ExecutionContext{
		ExecutionID:   executionID,
		CurrentNodeID: cp.NodeID,
		Status:        StatusRunning,
		StepCount:     cp.StepCount,
		State:         state,
		loopCounts:    loopCounts,
		pendingInput:  input,
	}
	e.emit(emit.Event{ExecutionID: executionID, Step: ec.StepCount, NodeID: cp.NodeID,
		Msg: "execution_resumed", Meta: map[string]any{"from_sequence": cp.Sequence, "from_status": cp.Status}})
	return e.loop(ctx, ec)
}

// loop drives the execution one node at a time until a terminal status or a
// suspension.
func (e *Engine) loop(ctx context.Context, ec *ExecutionContext) (*Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return e.finishCancelled(ctx, ec)
		}

		node := e.graph.Node(ec.CurrentNodeID)
		if node == nil {
			return e.finishFailed(ctx, ec, ec.CurrentNodeID,
				&GraphStructureError{GraphID: e.graph.ID(), NodeID: ec.CurrentNodeID, Msg: "execution reached undefined node"})
		}

		if node.Type == NodeEnd {
			return e.finishCompleted(ctx, ec, node)
		}
		if node.Type == NodeHumanInput {
			next, suspended, err := e.stepHumanInput(ctx, ec, node)
			if err != nil {
				return e.finishStepError(ctx, ec, node.ID, err)
			}
			if suspended {
				return e.finishSuspended(ctx, ec, node)
			}
			ec.CurrentNodeID = next
			if err := e.writeCheckpoint(ctx, ec, false); err != nil && e.cfg.strictCheckpoints {
				return e.finishFailed(ctx, ec, node.ID, err)
			}
			continue
		}

		next, err := e.step(ctx, ec, node)
		if err != nil {
			return e.finishStepError(ctx, ec, node.ID, err)
		}
		ec.CurrentNodeID = next
		if err := e.writeCheckpoint(ctx, ec, false); err != nil && e.cfg.strictCheckpoints {
			return e.finishFailed(ctx, ec, node.ID, err)
		}
	}
}

// step executes one non-terminal, non-human node and returns the next node
// ID. It updates step count and history on the execution context.
func (e *Engine) step(ctx context.Context, ec *ExecutionContext, node *Node) (string, error) {
	started := time.Now()
	e.emit(emit.Event{ExecutionID: ec.ExecutionID, Step: ec.StepCount + 1, NodeID: node.ID, Msg: "node_start"})

	next, err := e.dispatch(ctx, ec, node, ec.State, ec.loopCounts)

	status := "completed"
	if err != nil {
		status = "failed"
	}
	ec.StepCount++
	entry := HistoryEntry{NodeID: node.ID, Timestamp: time.Now(), Status: status}
	if err != nil {
		entry.Err = err.Error()
	}
	ec.State.AppendHistory(entry)
	e.cfg.metrics.RecordStep(e.graph.ID(), node.Type, status, time.Since(started))

	meta := map[string]any{"duration_ms": time.Since(started).Milliseconds()}
	if err != nil {
		meta["error"] = err.Error()
	}
	e.emit(emit.Event{ExecutionID: ec.ExecutionID, Step: ec.StepCount, NodeID: node.ID, Msg: "node_end", Meta: meta})

	return next, err
}

// dispatch routes and executes a single node against the given state. It is
// shared between the main loop and parallel branch execution; branch calls
// pass the branch's cloned state and a branch-local loop count map.
func (e *Engine) dispatch(ctx context.Context, ec *ExecutionContext, node *Node, state *WorkflowState, loopCounts map[string]int) (string, error) {
	switch node.Type {
	case NodeStart:
		return e.graph.normalTarget(node.ID)

	case NodeTask:
		delta, err := e.invoke(ctx, node, node.Handler, state)
		if err != nil {
			return "", err
		}
		state.ApplyDelta(delta)
		return e.graph.normalTarget(node.ID)

	case NodeCondition:
		return e.route(ec, node, state, loopCounts)

	case NodeLoop:
		return e.stepLoop(ctx, ec, node, state)

	case NodeParallel:
		if err := e.stepParallel(ctx, ec, node, state); err != nil {
			return "", err
		}
		return node.Join, nil

	case NodeSubgraph:
		if err := e.stepSubgraph(ctx, ec, node, state); err != nil {
			return "", err
		}
		return e.graph.normalTarget(node.ID)

	default:
		return "", &GraphStructureError{GraphID: e.graph.ID(), NodeID: node.ID, Msg: "unsupported node type: " + string(node.Type)}
	}
}

// route picks the first outgoing edge, in declaration order, whose predicate
// holds. Unconditional NORMAL edges match unconditionally. LOOP_BACK edges
// count against the loop iteration ceiling.
func (e *Engine) route(ec *ExecutionContext, node *Node, state *WorkflowState, loopCounts map[string]int) (string, error) {
	values := state.Values()
	for _, idx := range e.graph.outgoing[node.ID] {
		edge := e.graph.edges[idx]
		if edge.When != nil && !edge.When(values) {
			continue
		}
		if edge.Type == EdgeLoopBack {
			key := e.graph.edgeKey(idx)
			loopCounts[key]++
			e.cfg.metrics.RecordLoopIteration(e.graph.ID(), node.ID)
			e.emit(emit.Event{ExecutionID: ec.ExecutionID, Step: ec.StepCount + 1, NodeID: node.ID,
				Msg: "loop_iteration", Meta: map[string]any{"iteration": loopCounts[key]}})
			if loopCounts[key] > e.cfg.maxLoopIterations {
				return "", &LoopLimitExceededError{NodeID: node.ID, Limit: e.cfg.maxLoopIterations}
			}
		}
		return edge.To, nil
	}
	return "", &NoMatchingConditionError{NodeID: node.ID}
}

// stepLoop runs the loop body until the exit condition holds or the
// iteration ceiling is hit. The whole loop is one step: checkpoints never
// land mid-loop, so recovery restarts the loop from its first iteration.
func (e *Engine) stepLoop(ctx context.Context, ec *ExecutionContext, node *Node, state *WorkflowState) (string, error) {
	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if iteration > e.cfg.maxLoopIterations {
			return "", &LoopLimitExceededError{NodeID: node.ID, Limit: e.cfg.maxLoopIterations}
		}

		delta, err := e.invoke(ctx, node, node.Handler, state)
		if err != nil {
			return "", err
		}
		state.ApplyDelta(delta)

		e.cfg.metrics.RecordLoopIteration(e.graph.ID(), node.ID)
		e.emit(emit.Event{ExecutionID: ec.ExecutionID, Step: ec.StepCount + 1, NodeID: node.ID,
			Msg: "loop_iteration", Meta: map[string]any{"iteration": iteration}})

		if node.Exit(state.Values()) {
			return e.graph.normalTarget(node.ID)
		}
	}
}

// invoke runs a handler with the node's timeout (or the engine default),
// wrapping failures in HandlerError.
//
// Only the per-node timeout cuts an invocation short. When the run context
// itself is cancelled, invoke waits for the handler to return and hands its
// delta back, so the in-flight step completes and the cancellation is
// observed at the next step boundary.
func (e *Engine) invoke(ctx context.Context, node *Node, h Handler, state *WorkflowState) (map[string]any, error) {
	parent := ctx
	timeout := node.HandlerTimeout
	if timeout == 0 {
		timeout = e.cfg.defaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		delta map[string]any
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		delta, err := h.Handle(ctx, state.Values())
		done <- outcome{delta: delta, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, &HandlerError{NodeID: node.ID, Err: out.err}
		}
		return out.delta, nil
	case <-ctx.Done():
		if parent.Err() != nil {
			out := <-done
			if out.err != nil {
				return nil, &HandlerError{NodeID: node.ID, Err: out.err}
			}
			return out.delta, nil
		}
		return nil, &HandlerError{NodeID: node.ID, Err: ctx.Err()}
	}
}

// branchResult carries the outcome of one parallel branch, indexed by
// declaration order so merges and error selection stay deterministic.
type branchResult struct {
	state *WorkflowState
	err   error
}

// stepParallel fans the branches out on cloned states and joins them,
// merging branch values back in declaration order. Any branch failure fails
// the whole node; when several branches fail, the first by declaration order
// wins.
func (e *Engine) stepParallel(ctx context.Context, ec *ExecutionContext, node *Node, state *WorkflowState) error {
	results := make([]branchResult, len(node.Branches))

	// Clone every branch state up front: once a goroutine has launched there
	// is no clean way to abandon it, so all fallible setup happens first.
	states := make([]*WorkflowState, len(node.Branches))
	for i := range node.Branches {
		branchState, err := state.Clone()
		if err != nil {
			return &HandlerError{NodeID: node.ID, Err: err}
		}
		states[i] = branchState
	}

	var sem chan struct{}
	if e.cfg.maxBranches > 0 {
		sem = make(chan struct{}, e.cfg.maxBranches)
	}

	var wg sync.WaitGroup
	for i, entry := range node.Branches {
		wg.Add(1)
		go func(i int, entry string, branchState *WorkflowState) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			e.cfg.metrics.BranchStarted()
			defer e.cfg.metrics.BranchFinished()

			e.emit(emit.Event{ExecutionID: ec.ExecutionID, Step: ec.StepCount + 1, NodeID: node.ID,
				Msg: "branch_start", Meta: map[string]any{"branch": entry}})
			err := e.runBranch(ctx, ec, entry, node.Join, branchState)
			meta := map[string]any{"branch": entry}
			if err != nil {
				meta["error"] = err.Error()
			}
			e.emit(emit.Event{ExecutionID: ec.ExecutionID, Step: ec.StepCount + 1, NodeID: node.ID,
				Msg: "branch_end", Meta: meta})
			results[i] = branchResult{state: branchState, err: err}
		}(i, entry, states[i])
	}
	wg.Wait()

	for _, res := range results {
		if res.err != nil {
			return res.err
		}
	}
	// Merge in declaration order: later branches overwrite earlier ones on
	// key conflicts. Branch-local histories are discarded.
	for _, res := range results {
		state.ApplyDelta(res.state.Values())
	}
	return nil
}

// runBranch executes nodes from entry until reaching the join node. Branch
// execution never checkpoints and keeps branch-local loop counters.
func (e *Engine) runBranch(ctx context.Context, ec *ExecutionContext, entry, join string, state *WorkflowState) error {
	loopCounts := make(map[string]int)
	current := entry
	for current != join {
		if err := ctx.Err(); err != nil {
			return err
		}
		node := e.graph.Node(current)
		if node == nil {
			return &GraphStructureError{GraphID: e.graph.ID(), NodeID: current, Msg: "branch reached undefined node"}
		}
		next, err := e.dispatch(ctx, ec, node, state, loopCounts)
		if err != nil {
			return err
		}
		current = next
	}
	return nil
}

// stepSubgraph runs the nested graph to completion as a single atomic step.
// The child runs without checkpointing; recovery re-enters the subgraph from
// its start.
//
// An isolated subgraph sees only the keys named by Metadata["inputs"] and
// contributes back only the keys named by Metadata["outputs"]; a shared one
// sees and returns the full state.
func (e *Engine) stepSubgraph(ctx context.Context, ec *ExecutionContext, node *Node, state *WorkflowState) error {
	seed := state.Values()
	if node.Isolate {
		seed = pickKeys(state, metadataKeys(node, "inputs"))
	}

	childCfg := *e.cfg
	childCfg.manager = nil
	child := &Engine{graph: node.Sub, cfg: &childCfg}

	result, err := child.Run(ctx, ec.ExecutionID+"/"+node.ID, seed)
	if err != nil {
		return &HandlerError{NodeID: node.ID, Err: err}
	}
	switch result.Status {
	case StatusCompleted:
	case StatusWaiting:
		return &HandlerError{NodeID: node.ID, Err: errors.New("human input inside a subgraph requires an input bridge")}
	case StatusCancelled:
		return &HandlerError{NodeID: node.ID, Err: context.Canceled}
	default:
		return &HandlerError{NodeID: node.ID, Err: fmt.Errorf("subgraph finished with status %s", result.Status)}
	}

	if node.Isolate {
		for _, key := range metadataKeys(node, "outputs") {
			if v, ok := result.State[key]; ok {
				state.Set(key, v)
			}
		}
		return nil
	}
	state.ApplyDelta(result.State)
	return nil
}

// stepHumanInput resolves a HUMAN_INPUT node. Resolution order: pending
// resume input, then a configured bridge, otherwise suspension. It returns
// the next node, or suspended=true when the execution must wait.
func (e *Engine) stepHumanInput(ctx context.Context, ec *ExecutionContext, node *Node) (next string, suspended bool, err error) {
	if ec.pendingInput != nil {
		input := ec.pendingInput
		ec.pendingInput = nil
		return e.resolveHumanInput(ec, node, input)
	}

	if e.cfg.bridge != nil {
		req := InputRequest{
			NodeID:    node.ID,
			Prompt:    node.Prompt,
			Context:   ec.State.Values(),
			InputType: node.InputType,
			Timeout:   clampTimeout(node.InputTimeout),
		}
		response, err := e.cfg.bridge.Request(ctx, req)
		if errors.Is(err, ErrInputTimedOut) {
			if node.Default != nil {
				return e.resolveHumanInput(ec, node, node.Default)
			}
			return "", false, &HumanInputTimeoutError{NodeID: node.ID, Timeout: req.Timeout}
		}
		if err != nil {
			return "", false, &HandlerError{NodeID: node.ID, Err: err}
		}
		if delta, ok := response.(map[string]any); ok {
			return e.resolveHumanInput(ec, node, delta)
		}
		return e.resolveHumanInput(ec, node, map[string]any{node.ID: response})
	}

	return "", true, nil
}

// resolveHumanInput merges the answer into the state and records the node as
// an executed step.
func (e *Engine) resolveHumanInput(ec *ExecutionContext, node *Node, delta map[string]any) (string, bool, error) {
	ec.State.ApplyDelta(delta)
	ec.StepCount++
	ec.State.AppendHistory(HistoryEntry{NodeID: node.ID, Timestamp: time.Now(), Status: "completed"})
	e.cfg.metrics.RecordStep(e.graph.ID(), node.Type, "completed", 0)
	e.emit(emit.Event{ExecutionID: ec.ExecutionID, Step: ec.StepCount, NodeID: node.ID, Msg: "node_end",
		Meta: map[string]any{"input_received": true}})
	next, err := e.graph.normalTarget(node.ID)
	if err != nil {
		return "", false, err
	}
	return next, false, nil
}

// writeCheckpoint persists the current position when a manager is
// configured. The checkpoint's NodeID is the next node to execute, so
// recovery re-runs a step whose checkpoint never landed (at-least-once).
// Non-strict engines emit and count a failed write but keep running.
func (e *Engine) writeCheckpoint(ctx context.Context, ec *ExecutionContext, forced bool) error {
	if e.cfg.manager == nil {
		return nil
	}
	stateJSON, err := json.Marshal(ec.State)
	if err != nil {
		e.cfg.metrics.RecordCheckpoint(e.graph.ID(), "error")
		return &checkpoint.IOError{Op: "encode", Err: err}
	}
	cp := &checkpoint.Checkpoint{
		ExecutionID: ec.ExecutionID,
		Status:      ec.Status,
		NodeID:      ec.CurrentNodeID,
		StepCount:   ec.StepCount,
		State:       stateJSON,
		LoopCounts:  ec.loopCounts,
	}
	saved, err := e.cfg.manager.Record(ctx, cp, forced)
	switch {
	case err != nil:
		e.cfg.metrics.RecordCheckpoint(e.graph.ID(), "error")
		e.emit(emit.Event{ExecutionID: ec.ExecutionID, Step: ec.StepCount, NodeID: ec.CurrentNodeID,
			Msg: "checkpoint_failed", Meta: map[string]any{"error": err.Error()}})
		return err
	case saved:
		e.cfg.metrics.RecordCheckpoint(e.graph.ID(), "saved")
		e.emit(emit.Event{ExecutionID: ec.ExecutionID, Step: ec.StepCount, NodeID: ec.CurrentNodeID,
			Msg: "checkpoint_saved", Meta: map[string]any{"sequence": cp.Sequence}})
	default:
		e.cfg.metrics.RecordCheckpoint(e.graph.ID(), "skipped")
	}
	return nil
}

func (e *Engine) finishCompleted(ctx context.Context, ec *ExecutionContext, node *Node) (*Result, error) {
	ec.Status = StatusCompleted
	ec.StepCount++
	ec.State.AppendHistory(HistoryEntry{NodeID: node.ID, Timestamp: time.Now(), Status: "completed"})
	e.cfg.metrics.RecordStep(e.graph.ID(), node.Type, "completed", 0)
	e.cfg.metrics.RecordExecution(e.graph.ID(), StatusCompleted)
	if err := e.writeCheckpoint(ctx, ec, true); err != nil && e.cfg.strictCheckpoints {
		return nil, err
	}
	e.emit(emit.Event{ExecutionID: ec.ExecutionID, Step: ec.StepCount, NodeID: node.ID, Msg: "execution_completed"})
	return e.result(ec, node.ID, "", nil), nil
}

func (e *Engine) finishSuspended(ctx context.Context, ec *ExecutionContext, node *Node) (*Result, error) {
	ec.Status = StatusWaiting
	if err := e.writeCheckpoint(ctx, ec, true); err != nil && e.cfg.strictCheckpoints {
		return nil, err
	}
	e.emit(emit.Event{ExecutionID: ec.ExecutionID, Step: ec.StepCount, NodeID: node.ID, Msg: "execution_suspended",
		Meta: map[string]any{"prompt": node.Prompt}})
	return e.result(ec, node.ID, "", nil), nil
}

func (e *Engine) finishCancelled(ctx context.Context, ec *ExecutionContext) (*Result, error) {
	ec.Status = StatusCancelled
	e.cfg.metrics.RecordExecution(e.graph.ID(), StatusCancelled)
	// The run context is already cancelled; checkpoint with a fresh context
	// so the cancellation point is durable.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.writeCheckpoint(saveCtx, ec, true); err != nil && e.cfg.strictCheckpoints {
		return nil, err
	}
	e.emit(emit.Event{ExecutionID: ec.ExecutionID, Step: ec.StepCount, NodeID: ec.CurrentNodeID, Msg: "execution_cancelled"})
	return e.result(ec, ec.CurrentNodeID, "", nil), nil
}

// finishStepError classifies a step error. An error carrying the run
// context's own cancellation is a cancellation observed at the step boundary,
// not a failure; everything else is terminal FAILED.
func (e *Engine) finishStepError(ctx context.Context, ec *ExecutionContext, nodeID string, cause error) (*Result, error) {
	if cerr := ctx.Err(); cerr != nil && errors.Is(cause, cerr) {
		return e.finishCancelled(ctx, ec)
	}
	return e.finishFailed(ctx, ec, nodeID, cause)
}

func (e *Engine) finishFailed(ctx context.Context, ec *ExecutionContext, nodeID string, cause error) (*Result, error) {
	ec.Status = StatusFailed
	e.cfg.metrics.RecordExecution(e.graph.ID(), StatusFailed)
	if err := e.writeCheckpoint(ctx, ec, true); err != nil && e.cfg.strictCheckpoints {
		return nil, errors.Join(cause, err)
	}
	e.emit(emit.Event{ExecutionID: ec.ExecutionID, Step: ec.StepCount, NodeID: nodeID, Msg: "execution_failed",
		Meta: map[string]any{"error": cause.Error()}})
	return e.result(ec, nodeID, nodeID, cause), cause
}

func (e *Engine) result(ec *ExecutionContext, stoppedAt, failedNode string, cause error) *Result {
	return &Result{
		ExecutionID: ec.ExecutionID,
		Status:      ec.Status,
		State:       ec.State.Values(),
		History:     ec.State.History(),
		StoppedAt:   stoppedAt,
		StepCount:   ec.StepCount,
		FailedNode:  failedNode,
		Err:         cause,
	}
}

func (e *Engine) emit(event emit.Event) {
	e.cfg.emitter.Emit(event)
}

// metadataKeys reads a []string (or []any of strings) list from node
// metadata.
func metadataKeys(node *Node, key string) []string {
	switch v := node.Metadata[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func pickKeys(state *WorkflowState, keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		if v, ok := state.Get(key); ok {
			out[key] = v
		}
	}
	return out
}
