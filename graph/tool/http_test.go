package tool

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPTool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("X-Test", "yes")
			_, _ = io.WriteString(w, "get response")
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"echo":         string(body),
				"content_type": r.Header.Get("Content-Type"),
			})
		}
	}))
	defer server.Close()

	ht := NewHTTPTool()
	ctx := context.Background()

	t.Run("GET", func(t *testing.T) {
		out, err := ht.Call(ctx, map[string]any{"url": server.URL})
		if err != nil {
			t.Fatalf("Call() error: %v", err)
		}
		if out["status_code"] != http.StatusOK {
			t.Errorf("expected status 200, got %v", out["status_code"])
		}
		if out["body"] != "get response" {
			t.Errorf("unexpected body: %v", out["body"])
		}
		headers, ok := out["headers"].(map[string]any)
		if !ok || headers["X-Test"] != "yes" {
			t.Errorf("expected response headers surfaced, got %v", out["headers"])
		}
	})

	t.Run("POST with body and headers", func(t *testing.T) {
		out, err := ht.Call(ctx, map[string]any{
			"url":    server.URL,
			"method": "post",
			"body":   `{"q":"hello"}`,
			"headers": map[string]any{
				"Content-Type": "application/json",
			},
		})
		if err != nil {
			t.Fatalf("Call() error: %v", err)
		}
		if out["status_code"] != http.StatusCreated {
			t.Errorf("expected status 201, got %v", out["status_code"])
		}
		var echoed map[string]string
		if err := json.Unmarshal([]byte(out["body"].(string)), &echoed); err != nil {
			t.Fatalf("decoding response body: %v", err)
		}
		if echoed["echo"] != `{"q":"hello"}` {
			t.Errorf("server did not receive body: %v", echoed)
		}
		if echoed["content_type"] != "application/json" {
			t.Errorf("request header not forwarded: %v", echoed)
		}
	})

	t.Run("missing url", func(t *testing.T) {
		if _, err := ht.Call(ctx, map[string]any{}); err == nil {
			t.Error("expected error for missing url")
		}
	})

	t.Run("unsupported method", func(t *testing.T) {
		_, err := ht.Call(ctx, map[string]any{"url": server.URL, "method": "DELETE"})
		if err == nil || !strings.Contains(err.Error(), "unsupported HTTP method") {
			t.Errorf("expected unsupported method error, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := ht.Call(cancelled, map[string]any{"url": server.URL}); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}
