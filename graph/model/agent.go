package model

import (
	"context"
	"fmt"
)

// AgentHandler turns a ChatModel into a workflow task handler: it reads a
// prompt from the state, sends it to the model with an optional system
// message, and writes the response text back into the state.
//
// AgentHandler satisfies the graph package's Handler interface, so it can be
// attached to a TASK node directly:
//
//	agent := model.NewAgentHandler(chatModel,
//	    model.WithSystem("You are a reviewer."),
//	    model.WithPromptKey("draft"),
//	    model.WithOutputKey("review"))
//	builder.Task("review", agent)
type AgentHandler struct {
	model     ChatModel
	system    string
	promptKey string
	outputKey string
}

// AgentOption configures an AgentHandler.
type AgentOption func(*AgentHandler)

// WithSystem sets a system message sent before the prompt.
func WithSystem(system string) AgentOption {
	return func(a *AgentHandler) { a.system = system }
}

// WithPromptKey sets the state key the prompt is read from. Defaults to
// "prompt".
func WithPromptKey(key string) AgentOption {
	return func(a *AgentHandler) { a.promptKey = key }
}

// WithOutputKey sets the state key the response text is written to.
// Defaults to "response".
func WithOutputKey(key string) AgentOption {
	return func(a *AgentHandler) { a.outputKey = key }
}

// NewAgentHandler creates an AgentHandler over the given model.
func NewAgentHandler(m ChatModel, opts ...AgentOption) *AgentHandler {
	a := &AgentHandler{model: m, promptKey: "prompt", outputKey: "response"}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle reads the prompt from state, calls the model, and returns a delta
// containing the response text plus token usage under "<outputKey>_tokens"
// when the provider reports it.
func (a *AgentHandler) Handle(ctx context.Context, state map[string]any) (map[string]any, error) {
	prompt, ok := state[a.promptKey].(string)
	if !ok || prompt == "" {
		return nil, fmt.Errorf("agent handler: state key %q missing or not a string", a.promptKey)
	}

	messages := make([]Message, 0, 2)
	if a.system != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: a.system})
	}
	messages = append(messages, Message{Role: RoleUser, Content: prompt})

	out, err := a.model.Chat(ctx, messages, nil)
	if err != nil {
		return nil, fmt.Errorf("agent handler: %w", err)
	}

	delta := map[string]any{a.outputKey: out.Text}
	if out.TokensIn > 0 || out.TokensOut > 0 {
		delta[a.outputKey+"_tokens"] = out.TokensIn + out.TokensOut
	}
	return delta, nil
}
