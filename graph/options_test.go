package graph

import (
	"testing"
	"time"
)

func TestOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := newConfig()
		if c.emitter == nil {
			t.Error("expected a default emitter")
		}
		if c.maxLoopIterations != defaultMaxLoopIterations {
			t.Errorf("expected default loop ceiling %d, got %d", defaultMaxLoopIterations, c.maxLoopIterations)
		}
		if c.manager != nil || c.metrics != nil || c.bridge != nil {
			t.Error("expected manager, metrics and bridge unset by default")
		}
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		cases := []struct {
			name string
			opt  Option
		}{
			{"nil checkpoint manager", WithCheckpointManager(nil)},
			{"nil emitter", WithEmitter(nil)},
			{"nil input bridge", WithInputBridge(nil)},
			{"zero loop iterations", WithMaxLoopIterations(0)},
			{"negative loop iterations", WithMaxLoopIterations(-1)},
			{"negative handler timeout", WithDefaultHandlerTimeout(-time.Second)},
			{"negative history limit", WithHistoryLimit(-1)},
			{"negative branch bound", WithMaxConcurrentBranches(-1)},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if err := tc.opt(newConfig()); err == nil {
					t.Error("expected an error")
				}
			})
		}
	})

	t.Run("engine rejects bad option", func(t *testing.T) {
		g := linearGraph(t)
		if _, err := New(g, WithMaxLoopIterations(-5)); err == nil {
			t.Error("expected New to surface the option error")
		}
	})
}
