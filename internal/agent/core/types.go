package core

import (
	"context"
	"encoding/json"
)

// Message roles understood by the chat completions wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single entry in a conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on assistant messages that requested tool invocations.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID links a tool-role message back to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolDefinition declares a callable tool to the remote model. Parameters is a
// JSON Schema object describing the tool's arguments.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolCall is a completed tool invocation request from the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ChatRequest is one model call: transcript, tool declarations, and sampling
// settings.
type ChatRequest struct {
	Messages    []Message
	Tools       []ToolDefinition
	Temperature float64
	MaxTokens   int
}

// ChatResult is the model's complete reply for a blocking call.
type ChatResult struct {
	Text             string
	ToolCalls        []ToolCall
	StopReason       string
	PromptTokens     int64
	CompletionTokens int64
}

// ToolCallDelta is a streamed fragment of a tool call. The model delivers
// tool-call arguments incrementally; fragments sharing an Index belong to the
// same call and their Arguments concatenate in arrival order.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// TokenUsage reports tokens consumed by one model call.
type TokenUsage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// Delta is one streamed fragment of a model reply. Usage is set at most once,
// on the final chunk, when the platform reports it.
type Delta struct {
	Text      string
	ToolCalls []ToolCallDelta
	Usage     *TokenUsage
	Done      bool
}

// Stream delivers a model reply incrementally. Recv blocks until the next
// fragment is available; a Delta with Done set ends the stream.
type Stream interface {
	Recv(ctx context.Context) (*Delta, error)
	Close() error
}

// ChatProvider is the contract for remote model platforms.
type ChatProvider interface {
	// Chat performs one blocking conversation turn.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// ChatStream opens one streaming conversation turn.
	ChatStream(ctx context.Context, req *ChatRequest) (Stream, error)

	// Model returns the deployment name requests are routed to.
	Model() string
}
