package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/bankx/agent-fabric/pkg/a2a"
	"github.com/bankx/agent-fabric/pkg/telemetry"
)

// Request is one turn's worth of input to a specialist's business logic,
// extracted from the A2A envelope payload the Supervisor Router builds
// (pkg/supervisor/dispatch.go's buildDispatchPayload: query, history,
// customer_id, session_id).
type Request struct {
	Query      string
	History    []HistoryMessage
	CustomerID string
	SessionID  string
}

// HistoryMessage is one turn of prior conversation, role either "user" or
// "assistant".
type HistoryMessage struct {
	Role    string
	Content string
}

// Result is the business logic's answer, folded back into the A2A response
// body under "content" and "tools_invoked" -- the two keys
// pkg/supervisor/dispatch.go's dispatch reads back out.
type Result struct {
	Content      string
	ToolsInvoked []string
}

// BusinessLogic is what a specialist agent actually does with a turn. It is
// intentionally the only piece left pluggable here: tool-server business
// logic for the six specialists is out of scope, so a deployment supplies
// its own implementation (or the thin DefaultBusinessLogic below) and lets
// Host handle everything else. Grounded on original_source's
// agents/*-a2a/agent_handler.py's process_message, minus its Azure AI
// Foundry session plumbing, which Host replaces with A2A/telemetry
// plumbing generic to any specialist.
type BusinessLogic interface {
	Handle(ctx context.Context, req Request) (Result, error)
}

// Host wraps a BusinessLogic implementation with the A2A envelope and
// telemetry/logging plumbing every specialist needs, mirroring
// agent_handler.py's accept -> invoke -> respond -> log-telemetry shape
// without binding it to any one specialist's domain logic.
type Host struct {
	// AgentName labels telemetry events, e.g. "Payment Agent"
	// (classifier.Agent's string value -- not imported here to keep this
	// package independent of the supervisor's routing vocabulary).
	AgentName string
	// TriageRule is stamped into every AgentDecisionEvent this host emits,
	// e.g. "UC4_PAYMENT_AGENT" per original_source's telemetry call sites.
	TriageRule string

	Logic     BusinessLogic
	Telemetry telemetry.Sink // optional; nil disables telemetry recording
	Logger    *slog.Logger
}

// Handler adapts h to an a2a.Handler usable with a2a.ServeHTTP.
func (h *Host) Handler() a2a.Handler {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, msg a2a.Message) a2a.Response {
		start := time.Now()
		req := requestFromPayload(msg.Payload)

		result, err := h.Logic.Handle(ctx, req)
		duration := time.Since(start).Seconds()

		if err != nil {
			logger.Error("specialist business logic failed", "agent", h.AgentName, "error", err)
			h.record(telemetry.AgentDecisionEvent{
				Timestamp:       time.Now().UTC(),
				Agent:           h.AgentName,
				SessionID:       req.SessionID,
				UserQuery:       req.Query,
				TriageRule:      h.TriageRule,
				ResultStatus:    "failed",
				DurationSeconds: duration,
			})
			return a2a.ErrorResponse(msg, a2a.StatusError, "business_logic_error", err.Error())
		}

		h.record(telemetry.AgentDecisionEvent{
			Timestamp:       time.Now().UTC(),
			Agent:           h.AgentName,
			SessionID:       req.SessionID,
			UserQuery:       req.Query,
			TriageRule:      h.TriageRule,
			ToolsInvoked:    result.ToolsInvoked,
			ResultStatus:    "dispatched",
			DurationSeconds: duration,
		})

		return a2a.SuccessResponse(msg, map[string]any{
			"content":       result.Content,
			"tools_invoked": toAnySlice(result.ToolsInvoked),
		}, time.Since(start).Milliseconds())
	}
}

func (h *Host) record(ev telemetry.AgentDecisionEvent) {
	if h.Telemetry == nil {
		return
	}
	h.Telemetry.Record(telemetry.CategoryAgentDecision, ev)
}

func requestFromPayload(payload map[string]any) Request {
	req := Request{}
	if q, ok := payload["query"].(string); ok {
		req.Query = q
	}
	if cid, ok := payload["customer_id"].(string); ok {
		req.CustomerID = cid
	}
	if sid, ok := payload["session_id"].(string); ok {
		req.SessionID = sid
	}
	if rawHistory, ok := payload["history"].([]any); ok {
		for _, item := range rawHistory {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			role, _ := entry["role"].(string)
			content, _ := entry["content"].(string)
			req.History = append(req.History, HistoryMessage{Role: role, Content: content})
		}
	}
	return req
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
