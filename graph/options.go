package graph

import (
	"fmt"
	"time"

	"github.com/dshills/graphflow/graph/checkpoint"
	"github.com/dshills/graphflow/graph/emit"
)

const defaultMaxLoopIterations = 1000

// config holds engine settings assembled from Options.
type config struct {
	manager           *checkpoint.Manager
	emitter           emit.Emitter
	metrics           *Metrics
	bridge            InputBridge
	maxLoopIterations int
	defaultTimeout    time.Duration
	historyLimit      int
	maxBranches       int
	strictCheckpoints bool
}

func newConfig() *config {
	return &config{
		emitter:           emit.NewNullEmitter(),
		maxLoopIterations: defaultMaxLoopIterations,
	}
}

// Option configures an Engine.
type Option func(*config) error

// WithCheckpointManager enables checkpointing through the given manager.
// Without one the engine runs checkpoint-free and Resume is unavailable.
func WithCheckpointManager(m *checkpoint.Manager) Option {
	return func(c *config) error {
		if m == nil {
			return fmt.Errorf("checkpoint manager cannot be nil")
		}
		c.manager = m
		return nil
	}
}

// WithEmitter sets the event emitter. Defaults to a NullEmitter.
func WithEmitter(e emit.Emitter) Option {
	return func(c *config) error {
		if e == nil {
			return fmt.Errorf("emitter cannot be nil")
		}
		c.emitter = e
		return nil
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(c *config) error {
		c.metrics = m
		return nil
	}
}

// WithInputBridge makes HUMAN_INPUT nodes block on the bridge instead of
// suspending the execution.
func WithInputBridge(b InputBridge) Option {
	return func(c *config) error {
		if b == nil {
			return fmt.Errorf("input bridge cannot be nil")
		}
		c.bridge = b
		return nil
	}
}

// WithMaxLoopIterations sets the per-loop iteration ceiling. Defaults to
// 1000. A loop reaching the ceiling fails with LoopLimitExceededError.
func WithMaxLoopIterations(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("max loop iterations must be positive, got %d", n)
		}
		c.maxLoopIterations = n
		return nil
	}
}

// WithDefaultHandlerTimeout bounds each handler invocation that does not set
// its own Node.HandlerTimeout. Zero means no bound.
func WithDefaultHandlerTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return fmt.Errorf("handler timeout cannot be negative")
		}
		c.defaultTimeout = d
		return nil
	}
}

// WithHistoryLimit caps the retained execution history per state. Zero
// (the default) keeps all entries.
func WithHistoryLimit(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return fmt.Errorf("history limit cannot be negative")
		}
		c.historyLimit = n
		return nil
	}
}

// WithMaxConcurrentBranches bounds how many parallel branches run at once.
// Zero (the default) runs every branch concurrently.
func WithMaxConcurrentBranches(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return fmt.Errorf("max concurrent branches cannot be negative")
		}
		c.maxBranches = n
		return nil
	}
}

// WithStrictCheckpointing makes a failed checkpoint write abort the
// execution. By default write failures are emitted and counted but the
// execution continues.
func WithStrictCheckpointing() Option {
	return func(c *config) error {
		c.strictCheckpoints = true
		return nil
	}
}
