// Package supervisorapi exposes pkg/supervisor.Router over the HTTP+SSE
// surface described in spec.md §6 ("POST /chat"), built on Echo v5
// following pkg/registryapi/server.go's shape. Unlike the Registry's
// request/response handlers, /chat streams Server-Sent Events — a pattern
// with no precedent in the teacher's own WebSocket-based pkg/events, so the
// streaming idiom here (flusher-driven `data:` writes, Last-Event-ID
// reconnection) is grounded on other_examples' SSE chat-handler instead.
package supervisorapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/bankx/agent-fabric/pkg/supervisor"
)

// Server is the Supervisor's HTTP API.
type Server struct {
	echo   *echo.Echo
	router *supervisor.Router
	logger *slog.Logger
}

// NewServer builds a Server around router.
func NewServer(router *supervisor.Router) *Server {
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(1 << 20))

	s := &Server{echo: e, router: router, logger: slog.Default().With("component", "supervisorapi")}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthHandler)
	s.echo.POST("/chat", s.chatHandler)
}

func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// chatMessage mirrors spec.md §6's `{role, content}` wire shape.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is spec.md §6's `POST /chat` body.
type chatRequest struct {
	Messages  []chatMessage `json:"messages"`
	ThreadID  string        `json:"threadId"`
	Stream    bool          `json:"stream"`
	Email     string        `json:"email"`
	CustomerID string       `json:"customerId"`
}

// chatHandler streams a turn's progress/content/final events as
// Server-Sent Events (spec.md §6). Closing the connection (client
// disconnect, or the request context being cancelled) cancels the turn's
// streaming loop at its next emit() call; any A2A dispatch already in
// flight runs to completion on the Router's detached work context (spec.md
// §4.10 "Cancellation").
func (s *Server) chatHandler(c *echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed chat request")
	}
	if len(req.Messages) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "messages must not be empty")
	}

	messages := make([]supervisor.ChatMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = supervisor.ChatMessage{Role: m.Role, Content: m.Content}
	}

	ctx := c.Request().Context()
	events, err := s.router.HandleChat(ctx, supervisor.ChatRequest{
		CustomerID: req.CustomerID,
		Email:      req.Email,
		SessionID:  req.ThreadID,
		Messages:   messages,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	for ev := range events {
		if err := writeSSE(resp, ev); err != nil {
			s.logger.Warn("failed to write SSE event, client likely disconnected", "error", err)
			return nil
		}
		resp.Flush()
	}
	return nil
}

// ssePayload is the JSON body of one SSE `data:` line, shaped per spec.md
// §6's three event kinds (thinking / delta / final).
type ssePayload struct {
	Type string `json:"type"`

	Step       supervisor.Step       `json:"step,omitempty"`
	Status     supervisor.StepStatus `json:"status,omitempty"`
	Message    string                `json:"message,omitempty"`
	AgentName  string                `json:"agent_name,omitempty"`
	Timestamp  time.Time             `json:"timestamp,omitempty"`

	Content string `json:"content,omitempty"`

	FullContent string `json:"full_content,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

func writeSSE(w *echo.Response, ev supervisor.Event) error {
	payload := ssePayload{
		Type:      string(ev.Kind),
		Step:      ev.Step,
		Status:    ev.Status,
		Message:   ev.Message,
		AgentName: ev.AgentName,
		Timestamp: ev.Timestamp,
		Content:   ev.Content,
		FullContent: ev.FullContent,
		SessionID:   ev.SessionID,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
	return err
}

// ServeHTTP allows the server to be used directly as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutdownCtx)
	}()
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
