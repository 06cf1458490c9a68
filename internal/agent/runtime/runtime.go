package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammad-safakhou/todoagent/config"
	"github.com/mohammad-safakhou/todoagent/internal/agent/core"
	"github.com/mohammad-safakhou/todoagent/internal/agent/telemetry"
	"github.com/mohammad-safakhou/todoagent/internal/todos"
)

// EventType describes the kind of event emitted during a streaming turn.
type EventType string

const (
	EventMessage    EventType = "message"
	EventToolStart  EventType = "tool_start"
	EventToolResult EventType = "tool_result"
	EventError      EventType = "error"
	// EventSession is emitted by the HTTP layer to hand the client its
	// session identifier before any model output.
	EventSession EventType = "session"
)

// Event is one observable step of a turn, suitable for SSE framing.
type Event struct {
	Type    EventType `json:"type"`
	Content string    `json:"content,omitempty"`
	Tool    string    `json:"tool,omitempty"`
}

// EventFunc observes turn events as they happen.
type EventFunc func(Event)

// ProviderFactory builds the chat provider on first use. Separated out so
// tests can substitute a fake platform.
type ProviderFactory func() (core.ChatProvider, error)

// Runtime owns the shared agent state: the provider connection, the rendered
// todo context, and the tool bindings. One Runtime is constructed per process
// and shared by all request handlers; initialization is lazy and guarded so
// concurrent first requests construct the provider exactly once.
type Runtime struct {
	cfg     *config.Config
	source  *todos.Client
	tele    *telemetry.Telemetry
	factory ProviderFactory
	logger  *log.Logger

	initOnce     sync.Once
	initErr      error
	provider     core.ChatProvider
	systemPrompt string
	tools        map[string]Tool
	toolDefs     []core.ToolDefinition
}

// NewRuntime creates the shared runtime. A nil factory defaults to the
// OpenAI-compatible provider from config.
func NewRuntime(cfg *config.Config, source *todos.Client, tele *telemetry.Telemetry, factory ProviderFactory) *Runtime {
	if factory == nil {
		factory = func() (core.ChatProvider, error) {
			return core.NewOpenAIProvider(cfg.LLM)
		}
	}
	return &Runtime{
		cfg:     cfg,
		source:  source,
		tele:    tele,
		factory: factory,
		logger:  log.New(log.Writer(), "[AGENT] ", log.LstdFlags),
	}
}

// Model returns the configured model deployment name.
func (r *Runtime) Model() string { return r.cfg.LLM.Model }

// init constructs the provider and renders the todo context into the system
// prompt. A provider construction failure (missing key, bad config) is
// remembered and returned on every subsequent call; a todo fetch failure is
// not fatal and merely leaves the context empty.
func (r *Runtime) init(ctx context.Context) error {
	r.initOnce.Do(func() {
		provider, err := r.factory()
		if err != nil {
			r.initErr = fmt.Errorf("agent provider: %w", err)
			return
		}
		r.provider = provider

		items, err := r.source.List(ctx)
		if err != nil {
			r.logger.Printf("todo fetch failed, starting with empty context: %v", err)
			items = nil
		}
		todoContext := FormatTodos(items, r.cfg.TodoSource.ContextLimit)
		r.systemPrompt = SystemPrompt + "\n\n--- TODO DATA ---\n" + todoContext

		lookup := NewLookupTool(r.source)
		r.tools = map[string]Tool{lookup.Definition.Name: lookup}
		r.toolDefs = []core.ToolDefinition{lookup.Definition}

		r.logger.Printf("agent runtime initialized (model=%s, todos=%d)", r.provider.Model(), len(items))
	})
	return r.initErr
}

// pendingCall accumulates streamed tool-call fragments for one index slot.
type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

// StreamTurn runs one conversation turn, emitting events as the remote model
// streams its reply. The model may invoke tools zero or more times; each
// invocation is surfaced as tool_start/tool_result events and its result is
// fed back into the transcript before the loop continues. Each call is an
// independent turn built from the supplied history.
func (r *Runtime) StreamTurn(ctx context.Context, history []core.Message, message string, emit EventFunc) error {
	if err := r.init(ctx); err != nil {
		return err
	}
	if emit == nil {
		emit = func(Event) {}
	}

	turnID := uuid.NewString()
	tracer := otel.Tracer(telemetry.TracerName)
	ctx, span := tracer.Start(ctx, "agent.turn", trace.WithAttributes(
		attribute.String("agent.turn_id", turnID),
		attribute.String("agent.model", r.provider.Model()),
	))
	defer span.End()

	messages := make([]core.Message, 0, len(history)+2)
	messages = append(messages, core.Message{Role: core.RoleSystem, Content: r.systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, core.Message{Role: core.RoleUser, Content: message})

	for step := 0; step < r.cfg.LLM.MaxToolSteps; step++ {
		assistant, calls, err := r.streamOnce(ctx, messages, emit)
		if err != nil {
			span.RecordError(err)
			return err
		}

		if len(calls) == 0 {
			return nil
		}

		messages = append(messages, core.Message{
			Role:      core.RoleAssistant,
			Content:   assistant,
			ToolCalls: calls,
		})
		for _, call := range calls {
			messages = append(messages, r.executeCall(ctx, call, emit))
		}
	}

	err := fmt.Errorf("tool loop exceeded %d steps", r.cfg.LLM.MaxToolSteps)
	span.RecordError(err)
	return err
}

// streamOnce drives a single model call to completion, emitting message
// fragments and collecting any tool calls the model requested.
func (r *Runtime) streamOnce(ctx context.Context, messages []core.Message, emit EventFunc) (string, []core.ToolCall, error) {
	started := time.Now()
	stream, err := r.provider.ChatStream(ctx, &core.ChatRequest{
		Messages: messages,
		Tools:    r.toolDefs,
	})
	r.tele.RecordLLMCall(r.provider.Model(), time.Since(started), err)
	if err != nil {
		return "", nil, fmt.Errorf("chat stream: %w", err)
	}
	defer stream.Close()

	var reply strings.Builder
	pending := make(map[int]*pendingCall)
	maxIndex := -1

	for {
		delta, err := stream.Recv(ctx)
		if err != nil {
			return "", nil, fmt.Errorf("stream recv: %w", err)
		}
		if delta.Text != "" {
			reply.WriteString(delta.Text)
			emit(Event{Type: EventMessage, Content: delta.Text})
		}
		for _, tc := range delta.ToolCalls {
			pc, ok := pending[tc.Index]
			if !ok {
				pc = &pendingCall{}
				pending[tc.Index] = pc
				if tc.Index > maxIndex {
					maxIndex = tc.Index
				}
			}
			if tc.ID != "" {
				pc.id = tc.ID
			}
			if tc.Name != "" {
				pc.name = tc.Name
			}
			pc.args.WriteString(tc.Arguments)
		}
		if delta.Usage != nil {
			r.tele.RecordTokens(r.provider.Model(), delta.Usage.PromptTokens, delta.Usage.CompletionTokens)
		}
		if delta.Done {
			break
		}
	}

	var calls []core.ToolCall
	for i := 0; i <= maxIndex; i++ {
		pc, ok := pending[i]
		if !ok {
			continue
		}
		args := pc.args.String()
		if args == "" {
			args = "{}"
		}
		calls = append(calls, core.ToolCall{
			ID:        pc.id,
			Name:      pc.name,
			Arguments: json.RawMessage(args),
		})
	}

	return reply.String(), calls, nil
}

// executeCall runs one tool invocation and packages its outcome as a
// tool-role message. Tool failures are reported back to the model as text so
// the conversation can continue; they never abort the turn.
func (r *Runtime) executeCall(ctx context.Context, call core.ToolCall, emit EventFunc) core.Message {
	emit(Event{Type: EventToolStart, Tool: call.Name})

	var result string
	tool, ok := r.tools[call.Name]
	if !ok {
		result = fmt.Sprintf("Error: no tool registered with name %q", call.Name)
		r.tele.RecordToolInvocation(call.Name, fmt.Errorf("unknown tool"))
	} else {
		out, err := tool.Execute(ctx, call.Arguments)
		r.tele.RecordToolInvocation(call.Name, err)
		if err != nil {
			result = fmt.Sprintf("Error executing %s: %v", call.Name, err)
		} else {
			result = out
		}
	}

	emit(Event{Type: EventToolResult, Tool: call.Name, Content: result})
	return core.Message{
		Role:       core.RoleTool,
		Content:    result,
		ToolCallID: call.ID,
	}
}

// RunTurn runs one turn and returns the concatenated reply text. It drains
// the same streaming path the SSE endpoint uses.
func (r *Runtime) RunTurn(ctx context.Context, history []core.Message, message string) (string, error) {
	var reply strings.Builder
	err := r.StreamTurn(ctx, history, message, func(e Event) {
		if e.Type == EventMessage {
			reply.WriteString(e.Content)
		}
	})
	if err != nil {
		return "", err
	}
	return reply.String(), nil
}
