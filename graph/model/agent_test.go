package model

import (
	"context"
	"errors"
	"testing"
)

func TestAgentHandler_Handle(t *testing.T) {
	t.Run("reads prompt and writes response", func(t *testing.T) {
		mock := &MockChatModel{Responses: []ChatOut{{Text: "summary text", TokensIn: 10, TokensOut: 5}}}
		agent := NewAgentHandler(mock,
			WithSystem("You are a summarizer."),
			WithPromptKey("document"),
			WithOutputKey("summary"))

		delta, err := agent.Handle(context.Background(), map[string]any{"document": "long text"})
		if err != nil {
			t.Fatalf("Handle() error: %v", err)
		}
		if delta["summary"] != "summary text" {
			t.Errorf("expected summary written, got %v", delta)
		}
		if delta["summary_tokens"] != 15 {
			t.Errorf("expected token usage recorded, got %v", delta["summary_tokens"])
		}

		if mock.CallCount() != 1 {
			t.Fatalf("expected 1 model call, got %d", mock.CallCount())
		}
		messages := mock.Calls[0].Messages
		if len(messages) != 2 {
			t.Fatalf("expected system + user message, got %d", len(messages))
		}
		if messages[0].Role != RoleSystem || messages[0].Content != "You are a summarizer." {
			t.Errorf("unexpected system message: %+v", messages[0])
		}
		if messages[1].Role != RoleUser || messages[1].Content != "long text" {
			t.Errorf("unexpected user message: %+v", messages[1])
		}
	})

	t.Run("default keys", func(t *testing.T) {
		mock := &MockChatModel{Responses: []ChatOut{{Text: "hi"}}}
		agent := NewAgentHandler(mock)
		delta, err := agent.Handle(context.Background(), map[string]any{"prompt": "hello"})
		if err != nil {
			t.Fatalf("Handle() error: %v", err)
		}
		if delta["response"] != "hi" {
			t.Errorf("expected response key, got %v", delta)
		}
	})

	t.Run("missing prompt key", func(t *testing.T) {
		agent := NewAgentHandler(&MockChatModel{})
		if _, err := agent.Handle(context.Background(), map[string]any{}); err == nil {
			t.Error("expected error for missing prompt")
		}
	})

	t.Run("model error propagates", func(t *testing.T) {
		cause := errors.New("rate limited")
		agent := NewAgentHandler(&MockChatModel{Err: cause})
		_, err := agent.Handle(context.Background(), map[string]any{"prompt": "x"})
		if !errors.Is(err, cause) {
			t.Errorf("expected wrapped model error, got %v", err)
		}
	})
}

func TestMockChatModel(t *testing.T) {
	t.Run("responses in order then repeat", func(t *testing.T) {
		mock := &MockChatModel{Responses: []ChatOut{{Text: "one"}, {Text: "two"}}}
		ctx := context.Background()
		msgs := []Message{{Role: RoleUser, Content: "q"}}

		for _, want := range []string{"one", "two", "two"} {
			out, err := mock.Chat(ctx, msgs, nil)
			if err != nil {
				t.Fatalf("Chat() error: %v", err)
			}
			if out.Text != want {
				t.Errorf("expected %q, got %q", want, out.Text)
			}
		}
	})

	t.Run("reset", func(t *testing.T) {
		mock := &MockChatModel{Responses: []ChatOut{{Text: "one"}, {Text: "two"}}}
		ctx := context.Background()
		_, _ = mock.Chat(ctx, nil, nil)
		mock.Reset()
		if mock.CallCount() != 0 {
			t.Errorf("expected cleared history, got %d", mock.CallCount())
		}
		out, _ := mock.Chat(ctx, nil, nil)
		if out.Text != "one" {
			t.Errorf("expected response cursor reset, got %q", out.Text)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		mock := &MockChatModel{Responses: []ChatOut{{Text: "x"}}}
		if _, err := mock.Chat(ctx, nil, nil); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
