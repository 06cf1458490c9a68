package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/todoagent/internal/agent/core"
	"github.com/mohammad-safakhou/todoagent/internal/agent/runtime"
	"github.com/mohammad-safakhou/todoagent/internal/agent/telemetry"
	"github.com/mohammad-safakhou/todoagent/internal/session"
)

// ChatHandler exposes the agent over single-shot and streaming endpoints.
type ChatHandler struct {
	Runtime   *runtime.Runtime
	Sessions  *session.Store
	Telemetry *telemetry.Telemetry
}

// Register mounts the chat routes on the given group.
func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("/chat", h.chat)
	g.POST("/chat/stream", h.chatStream)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message string `json:"message"`
	// History is an optional client-supplied transcript; ignored when a
	// session is used.
	History []chatMessage `json:"history"`
	// SessionID selects server-side history. Empty with UseSession set
	// starts a new session.
	SessionID  string `json:"session_id"`
	UseSession bool   `json:"use_session"`
}

type chatResponse struct {
	Reply     string `json:"reply"`
	Model     string `json:"model"`
	SessionID string `json:"session_id,omitempty"`
}

// resolveHistory picks the transcript for this turn: the server-side session
// log when a session is requested, otherwise whatever the client supplied.
func (h *ChatHandler) resolveHistory(req *chatRequest) ([]core.Message, *session.Session) {
	if req.SessionID != "" || req.UseSession {
		sess := h.Sessions.Ensure(req.SessionID)
		return sess.History(), sess
	}

	var history []core.Message
	for _, m := range req.History {
		role := m.Role
		if role != core.RoleUser && role != core.RoleAssistant {
			continue
		}
		history = append(history, core.Message{Role: role, Content: m.Content})
	}
	return history, nil
}

// chat runs one turn and returns the complete reply.
func (h *ChatHandler) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message required")
	}

	history, sess := h.resolveHistory(&req)

	started := time.Now()
	reply, err := h.Runtime.RunTurn(c.Request().Context(), history, req.Message)
	h.Telemetry.RecordRequest("chat", err == nil, time.Since(started))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := chatResponse{Reply: reply, Model: h.Runtime.Model()}
	if sess != nil {
		sess.Append(core.RoleUser, req.Message)
		sess.Append(core.RoleAssistant, reply)
		resp.SessionID = sess.ID()
	}
	return c.JSON(http.StatusOK, resp)
}

// chatStream runs one turn and emits each event as an SSE data frame. Events
// are JSON objects; the stream is terminated by a [DONE] frame. A mid-stream
// failure is surfaced as a final error event before the stream closes.
func (h *ChatHandler) chatStream(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message required")
	}

	history, sess := h.resolveHistory(&req)

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	writeFrame := func(e runtime.Event) {
		b, err := json.Marshal(e)
		if err != nil {
			return
		}
		fmt.Fprintf(resp, "data: %s\n\n", b)
		resp.Flush()
	}

	if sess != nil {
		writeFrame(runtime.Event{Type: runtime.EventSession, Content: sess.ID()})
	}

	var reply strings.Builder
	started := time.Now()
	err := h.Runtime.StreamTurn(c.Request().Context(), history, req.Message, func(e runtime.Event) {
		if e.Type == runtime.EventMessage {
			reply.WriteString(e.Content)
		}
		writeFrame(e)
	})
	h.Telemetry.RecordRequest("chat_stream", err == nil, time.Since(started))
	if err != nil {
		// headers are already out; best we can do is a structured error frame
		writeFrame(runtime.Event{Type: runtime.EventError, Content: err.Error()})
	} else if sess != nil {
		sess.Append(core.RoleUser, req.Message)
		sess.Append(core.RoleAssistant, reply.String())
	}

	fmt.Fprint(resp, "data: [DONE]\n\n")
	resp.Flush()
	return nil
}
