package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateSetGetActiveAgentRoundTrip(t *testing.T) {
	m := NewManager(nil)

	sid := m.CreateSession("cust-1")
	require.NotEmpty(t, sid)

	_, ok := m.ActiveAgentForSession(sid)
	assert.False(t, ok)

	require.NoError(t, m.SetActiveAgent(sid, "Payment Agent", "http://payment-agent:8080"))

	agent, ok := m.ActiveAgentForSession(sid)
	require.True(t, ok)
	assert.Equal(t, "Payment Agent", agent.Name)
	assert.Equal(t, "http://payment-agent:8080", agent.Endpoint)
}

func TestManager_GetActiveAgentFallsBackByCustomerAcrossSessions(t *testing.T) {
	m := NewManager(nil)

	sid1 := m.CreateSession("cust-1")
	require.NoError(t, m.SetActiveAgent(sid1, "Account Agent", "http://account-agent:8080"))

	// A brand new session for the same customer (e.g. a new browser tab)
	// has no active agent of its own, but the customer-level fallback
	// should still resolve to the most recent one.
	sid2 := m.CreateSession("cust-1")
	_, ok := m.ActiveAgentForSession(sid2)
	assert.False(t, ok)

	agent, resolvedSession, ok := m.GetActiveAgent("cust-1")
	require.True(t, ok)
	assert.Equal(t, "Account Agent", agent.Name)
	assert.Equal(t, sid1, resolvedSession)
}

func TestManager_EnsureSessionMintsWhenEmptyAndReusesWhenKnown(t *testing.T) {
	m := NewManager(nil)

	minted := m.EnsureSession("", "cust-1")
	assert.NotEmpty(t, minted)

	reused := m.EnsureSession(minted, "cust-1")
	assert.Equal(t, minted, reused)

	// An unknown, client-supplied session ID is registered rather than rejected.
	adopted := m.EnsureSession("client-thread-42", "cust-2")
	assert.Equal(t, "client-thread-42", adopted)
	agent, ok := m.ActiveAgentForSession(adopted)
	assert.False(t, ok)
	_ = agent
}

func TestManager_GetActiveAgentUnknownCustomerReturnsFalse(t *testing.T) {
	m := NewManager(nil)
	_, _, ok := m.GetActiveAgent("nobody")
	assert.False(t, ok)
}

func TestManager_SetActiveAgentUnknownSessionErrors(t *testing.T) {
	m := NewManager(nil)
	err := m.SetActiveAgent("no-such-session", "Account Agent", "http://account-agent:8080")
	assert.Error(t, err)
}

func TestManager_AddMessageForwardsToTurnLogger(t *testing.T) {
	logger := &recordingTurnLogger{}
	m := NewManager(logger)

	sid := m.CreateSession("cust-1")
	require.NoError(t, m.AddMessage(context.Background(), sid, "user", "what is my balance?"))
	require.NoError(t, m.AddMessage(context.Background(), sid, "assistant", "your balance is $100"))

	require.Len(t, logger.calls, 2)
	assert.Equal(t, "cust-1", logger.calls[0].customerID)
	assert.Equal(t, "user", logger.calls[0].messages[0].Role)
	assert.Equal(t, "assistant", logger.calls[1].messages[0].Role)
}

func TestManager_AddMessageUnknownSessionErrors(t *testing.T) {
	m := NewManager(nil)
	err := m.AddMessage(context.Background(), "no-such-session", "user", "hi")
	assert.Error(t, err)
}

func TestManager_EndSessionClearsCustomerFallback(t *testing.T) {
	m := NewManager(nil)

	sid := m.CreateSession("cust-1")
	require.NoError(t, m.SetActiveAgent(sid, "Account Agent", "http://account-agent:8080"))

	require.NoError(t, m.EndSession(sid))

	_, _, ok := m.GetActiveAgent("cust-1")
	assert.False(t, ok, "ending the session with the active agent should clear the customer fallback")
}

func TestManager_EndSessionUnknownSessionErrors(t *testing.T) {
	m := NewManager(nil)
	err := m.EndSession("no-such-session")
	assert.Error(t, err)
}

type turnLoggerCall struct {
	sessionID  string
	customerID string
	messages   []Message
}

type recordingTurnLogger struct {
	calls []turnLoggerCall
}

func (r *recordingTurnLogger) LogTurn(_ context.Context, sessionID, customerID string, messages []Message) error {
	r.calls = append(r.calls, turnLoggerCall{sessionID: sessionID, customerID: customerID, messages: messages})
	return nil
}
