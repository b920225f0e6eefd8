package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink_WritesOneNDJSONLinePerCategoryPerDay(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	require.NoError(t, err)

	sink.Record(CategoryUserMessage, UserMessageEvent{
		Timestamp:       time.Now().UTC(),
		SessionID:       "sess-1",
		CustomerID:      "cust-1",
		Query:           "what is my balance",
		ResponsePreview: "your balance is...",
		DurationSeconds: 1.2,
	})
	sink.Record(CategoryAgentDecision, AgentDecisionEvent{
		Timestamp:  time.Now().UTC(),
		Agent:      "Account Agent",
		SessionID:  "sess-1",
		TriageRule: "keyword:balance",
	})

	today := time.Now().UTC().Format("2006-01-02")
	userPath := filepath.Join(dir, "user_message_"+today+".json")
	decisionPath := filepath.Join(dir, "agent_decision_"+today+".json")

	raw, err := os.ReadFile(userPath)
	require.NoError(t, err)
	var decoded UserMessageEvent
	require.NoError(t, json.Unmarshal(raw[:len(raw)-1], &decoded))
	assert.Equal(t, "cust-1", decoded.CustomerID)
	assert.Equal(t, "what is my balance", decoded.Query)

	raw, err = os.ReadFile(decisionPath)
	require.NoError(t, err)
	var decision AgentDecisionEvent
	require.NoError(t, json.Unmarshal(raw[:len(raw)-1], &decision))
	assert.Equal(t, "Account Agent", decision.Agent)
	assert.Equal(t, "keyword:balance", decision.TriageRule)
}

func TestFileSink_AppendsMultipleEventsToSameCategoryFile(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	require.NoError(t, err)

	sink.Record(CategoryError, ErrorEvent{Message: "first"})
	sink.Record(CategoryError, ErrorEvent{Message: "second"})

	today := time.Now().UTC().Format("2006-01-02")
	raw, err := os.ReadFile(filepath.Join(dir, "error_"+today+".json"))
	require.NoError(t, err)

	var lines []string
	start := 0
	for i, b := range raw {
		if b == '\n' {
			lines = append(lines, string(raw[start:i]))
			start = i + 1
		}
	}
	require.Len(t, lines, 2)

	var first, second ErrorEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "first", first.Message)
	assert.Equal(t, "second", second.Message)
}

func TestMemorySink_RecordsAndFiltersByCategory(t *testing.T) {
	sink := NewMemorySink()
	sink.Record(CategoryUserMessage, UserMessageEvent{Query: "q1"})
	sink.Record(CategoryError, ErrorEvent{Message: "boom"})
	sink.Record(CategoryUserMessage, UserMessageEvent{Query: "q2"})

	all := sink.Events("")
	assert.Len(t, all, 3)

	userEvents := sink.Events(CategoryUserMessage)
	require.Len(t, userEvents, 2)
	first, ok := userEvents[0].(UserMessageEvent)
	require.True(t, ok)
	assert.Equal(t, "q1", first.Query)
}

func TestMemorySink_SubscribeReceivesFutureEvents(t *testing.T) {
	sink := NewMemorySink()
	ch, unsubscribe := sink.Subscribe(4)
	defer unsubscribe()

	sink.Record(CategoryToolInvocation, ToolInvocationEvent{Tool: "get_balance"})

	select {
	case rec := <-ch:
		assert.Equal(t, CategoryToolInvocation, rec.Category)
		evt, ok := rec.Event.(ToolInvocationEvent)
		require.True(t, ok)
		assert.Equal(t, "get_balance", evt.Tool)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscribed event")
	}
}

func TestMemorySink_UnsubscribeStopsDelivery(t *testing.T) {
	sink := NewMemorySink()
	ch, unsubscribe := sink.Subscribe(1)
	unsubscribe()

	sink.Record(CategoryAudit, struct{ Note string }{Note: "after unsubscribe"})

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
}
