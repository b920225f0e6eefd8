package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankx/agent-fabric/pkg/a2a"
	"github.com/bankx/agent-fabric/pkg/telemetry"
)

type stubLogic struct {
	result Result
	err    error
}

func (s stubLogic) Handle(ctx context.Context, req Request) (Result, error) {
	return s.result, s.err
}

func newTestMessage(payload map[string]any) a2a.Message {
	return a2a.NewMessage(
		a2a.AgentIdentifier{AgentID: "supervisor-1", Name: "Supervisor"},
		a2a.AgentIdentifier{AgentID: "payment-1", Name: "Payment Agent"},
		"chat",
		payload,
		a2a.Metadata{},
	)
}

func TestHost_HandlerReturnsSuccessResponseAndRecordsTelemetry(t *testing.T) {
	sink := telemetry.NewMemorySink()
	h := &Host{
		AgentName:  "Payment Agent",
		TriageRule: "UC4_PAYMENT_AGENT",
		Logic:      stubLogic{result: Result{Content: "done", ToolsInvoked: []string{"transfer_funds"}}},
		Telemetry:  sink,
	}

	msg := newTestMessage(map[string]any{
		"query":       "send $20 to mom",
		"customer_id": "CUST-001",
		"session_id":  "sess-1",
		"history":     []any{map[string]any{"role": "user", "content": "hi"}},
	})

	resp := h.Handler()(context.Background(), msg)

	require.Equal(t, a2a.StatusSuccess, resp.Status)
	assert.Equal(t, "done", resp.Response["content"])
	assert.Equal(t, []any{"transfer_funds"}, resp.Response["tools_invoked"])

	decisions := sink.Events(telemetry.CategoryAgentDecision)
	require.Len(t, decisions, 1)
	decision := decisions[0].(telemetry.AgentDecisionEvent)
	assert.Equal(t, "dispatched", decision.ResultStatus)
	assert.Equal(t, "UC4_PAYMENT_AGENT", decision.TriageRule)
	assert.Equal(t, "sess-1", decision.SessionID)
}

func TestHost_HandlerTranslatesBusinessLogicErrorToErrorResponse(t *testing.T) {
	sink := telemetry.NewMemorySink()
	h := &Host{
		AgentName: "Payment Agent",
		Logic:     stubLogic{err: assert.AnError},
		Telemetry: sink,
	}

	msg := newTestMessage(map[string]any{"query": "send money", "session_id": "sess-2"})
	resp := h.Handler()(context.Background(), msg)

	require.Equal(t, a2a.StatusError, resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "business_logic_error", resp.Error.Code)

	decisions := sink.Events(telemetry.CategoryAgentDecision)
	require.Len(t, decisions, 1)
	assert.Equal(t, "failed", decisions[0].(telemetry.AgentDecisionEvent).ResultStatus)
}

func TestHost_HandlerWorksWithoutTelemetrySink(t *testing.T) {
	h := &Host{Logic: stubLogic{result: Result{Content: "ok"}}}
	resp := h.Handler()(context.Background(), newTestMessage(map[string]any{"query": "hi"}))
	assert.Equal(t, a2a.StatusSuccess, resp.Status)
}

func TestRequestFromPayload_ParsesHistoryAndFields(t *testing.T) {
	req := requestFromPayload(map[string]any{
		"query":       "q",
		"customer_id": "CUST-009",
		"session_id":  "sess-3",
		"history": []any{
			map[string]any{"role": "user", "content": "a"},
			map[string]any{"role": "assistant", "content": "b"},
		},
	})

	assert.Equal(t, "q", req.Query)
	assert.Equal(t, "CUST-009", req.CustomerID)
	assert.Equal(t, "sess-3", req.SessionID)
	require.Len(t, req.History, 2)
	assert.Equal(t, HistoryMessage{Role: "user", Content: "a"}, req.History[0])
}
