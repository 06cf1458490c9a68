package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/todoagent/config"
)

func testLLMConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		Model:        "gpt-test",
		Timeout:      5 * time.Second,
		MaxToolSteps: 8,
	}
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewOpenAIProvider(config.LLMConfig{Model: "m"}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-test" {
			t.Errorf("unexpected model %q", req.Model)
		}
		if len(req.Tools) != 1 || req.Tools[0].Function.Name != "lookup" {
			t.Errorf("tools not forwarded: %+v", req.Tools)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"choices": [{
				"finish_reason": "tool_calls",
				"message": {
					"content": "",
					"tool_calls": [{"id":"c1","type":"function","function":{"name":"lookup","arguments":"{\"todo_id\":3}"}}]
				}
			}],
			"usage": {"prompt_tokens": 20, "completion_tokens": 4}
		}`)
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(testLLMConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}

	res, err := p.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "get todo 3"}},
		Tools:    []ToolDefinition{{Name: "lookup", Description: "d", Parameters: json.RawMessage(`{}`)}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.StopReason != "tool_calls" {
		t.Fatalf("unexpected stop reason %q", res.StopReason)
	}
	if len(res.ToolCalls) != 1 || res.ToolCalls[0].Name != "lookup" || res.ToolCalls[0].ID != "c1" {
		t.Fatalf("unexpected tool calls: %+v", res.ToolCalls)
	}
	if res.PromptTokens != 20 || res.CompletionTokens != 4 {
		t.Fatalf("unexpected usage: %+v", res)
	}
}

func TestChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "bad key"}}`)
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(testLLMConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}

	_, err = p.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !req.Stream {
			t.Error("stream flag not set")
		}
		if req.StreamOptions == nil || !req.StreamOptions.IncludeUsage {
			t.Error("stream usage not requested")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`{"choices":[{"delta":{"content":"Hel"}}]}`,
			`{"choices":[{"delta":{"content":"lo"}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"c1","function":{"name":"lookup","arguments":"{\"todo"}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"_id\":3}"}}]},"finish_reason":"tool_calls"}]}`,
			`{"choices":[],"usage":{"prompt_tokens":11,"completion_tokens":7}}`,
			`[DONE]`,
		}
		for _, f := range frames {
			fmt.Fprintf(w, "data: %s\n\n", f)
		}
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(testLLMConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}

	stream, err := p.ChatStream(context.Background(), &ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	defer stream.Close()

	var text strings.Builder
	var args strings.Builder
	var usage *TokenUsage
	for {
		delta, err := stream.Recv(context.Background())
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if delta.Done {
			break
		}
		text.WriteString(delta.Text)
		for _, tc := range delta.ToolCalls {
			args.WriteString(tc.Arguments)
		}
		if delta.Usage != nil {
			usage = delta.Usage
		}
	}

	if text.String() != "Hello" {
		t.Fatalf("unexpected text %q", text.String())
	}
	if args.String() != `{"todo_id":3}` {
		t.Fatalf("unexpected accumulated arguments %q", args.String())
	}
	if usage == nil || usage.PromptTokens != 11 || usage.CompletionTokens != 7 {
		t.Fatalf("usage not reported: %+v", usage)
	}

	// a drained stream keeps returning Done
	delta, err := stream.Recv(context.Background())
	if err != nil || !delta.Done {
		t.Fatalf("expected Done after end, got %+v, %v", delta, err)
	}
}

func TestChatStreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(testLLMConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}

	if _, err := p.ChatStream(context.Background(), &ChatRequest{}); err == nil || !strings.Contains(err.Error(), "status 503") {
		t.Fatalf("expected status error, got %v", err)
	}
}
