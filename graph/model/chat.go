// Package model provides LLM integration adapters for workflow task
// handlers.
package model

import "context"

// ChatModel abstracts chat-based LLM providers (OpenAI, Anthropic, Google)
// behind one API.
//
// Implementations handle provider authentication, convert Message values to
// the provider's wire format, parse responses back into ChatOut, and respect
// context cancellation.
//
// Example:
//
//	m := openai.New(os.Getenv("OPENAI_API_KEY"), "gpt-4o")
//	out, err := m.Chat(ctx, []model.Message{
//	    {Role: model.RoleUser, Content: "Summarize the report."},
//	}, nil)
type ChatModel interface {
	// Chat sends the conversation to the provider, optionally offering
	// tools the model may call. The model can answer with text, tool
	// calls, or both.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// Message is a single message in an LLM conversation.
type Message struct {
	// Role identifies the sender; use the Role* constants.
	Role string

	// Content is the message text. May be empty for tool-call-only
	// messages.
	Content string
}

// Standard conversation roles, matching the conventions of the major
// providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool the model may call. Schema follows JSON Schema
// and describes the expected input parameters.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]any
}

// ChatOut is the model's response: generated text, requested tool calls, or
// both.
type ChatOut struct {
	Text      string
	ToolCalls []ToolCall

	// TokensIn and TokensOut report usage when the provider supplies it.
	TokensIn  int
	TokensOut int
}

// ToolCall is a request from the model to invoke a tool. Input matches the
// tool's declared schema.
type ToolCall struct {
	Name  string
	Input map[string]any
}
