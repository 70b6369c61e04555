package graph

import (
	"context"
	"errors"
	"time"
)

// ErrInputTimedOut is returned by an InputBridge when no response arrived
// within the request's timeout. The engine translates it into the node's
// default response, or a HumanInputTimeoutError when no default exists.
var ErrInputTimedOut = errors.New("input request timed out")

// InputRequest describes the input a HUMAN_INPUT node is waiting for.
type InputRequest struct {
	NodeID    string
	Prompt    string
	Context   map[string]any
	InputType string
	Timeout   time.Duration
}

// InputBridge delivers input requests to an external responder synchronously.
// When an engine has a bridge configured, HUMAN_INPUT nodes block on
// Request instead of suspending the execution.
//
// Implementations should honor both ctx and req.Timeout, returning
// ErrInputTimedOut when the window closes without a response.
type InputBridge interface {
	Request(ctx context.Context, req InputRequest) (any, error)
}

// BridgeFunc adapts a function to the InputBridge interface.
type BridgeFunc func(ctx context.Context, req InputRequest) (any, error)

// Request implements InputBridge.
func (f BridgeFunc) Request(ctx context.Context, req InputRequest) (any, error) {
	return f(ctx, req)
}
