package opsstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankx/agent-fabric/pkg/telemetry"
)

func newTestServer(t *testing.T, hub *Hub) (*httptest.Server, string) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)
		hub.HandleConnection(r.Context(), conn)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, "ws" + srv.URL[len("http"):] + "/ws"
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(context.Background(), wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestHub_HandleConnection_SendsConnectionEstablished(t *testing.T) {
	hub := NewHub(time.Second)
	_, wsURL := newTestServer(t, hub)

	conn := dial(t, wsURL)
	msg := readJSON(t, conn)

	assert.Equal(t, "connection.established", msg["type"])
	assert.NotEmpty(t, msg["connection_id"])
}

func TestHub_Broadcast_DeliversToAllChannelByDefault(t *testing.T) {
	hub := NewHub(time.Second)
	_, wsURL := newTestServer(t, hub)

	conn := dial(t, wsURL)
	_ = readJSON(t, conn) // connection.established

	require.Eventually(t, func() bool { return hub.ActiveConnections() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(AllChannel, []byte(`{"type":"telemetry.event","category":"agent_decision"}`))

	msg := readJSON(t, conn)
	assert.Equal(t, "telemetry.event", msg["type"])
}

func TestHub_Subscribe_NarrowsToRequestedChannel(t *testing.T) {
	hub := NewHub(time.Second)
	_, wsURL := newTestServer(t, hub)

	conn := dial(t, wsURL)
	_ = readJSON(t, conn) // connection.established

	require.NoError(t, conn.Write(context.Background(), websocket.MessageText,
		[]byte(`{"action":"subscribe","channel":"category:agent_decision"}`)))

	confirmed := readJSON(t, conn)
	assert.Equal(t, "subscription.confirmed", confirmed["type"])
	assert.Equal(t, "category:agent_decision", confirmed["channel"])

	hub.Broadcast("category:agent_decision", []byte(`{"type":"telemetry.event"}`))
	msg := readJSON(t, conn)
	assert.Equal(t, "telemetry.event", msg["type"])
}

func TestHub_Run_BroadcastsRecordedTelemetryEvents(t *testing.T) {
	hub := NewHub(time.Second)
	_, wsURL := newTestServer(t, hub)

	sink := telemetry.NewMemorySink()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx, sink)

	conn := dial(t, wsURL)
	_ = readJSON(t, conn) // connection.established

	require.Eventually(t, func() bool { return hub.ActiveConnections() == 1 }, time.Second, 10*time.Millisecond)

	sink.Record(telemetry.CategoryAgentDecision, telemetry.AgentDecisionEvent{Agent: "account"})

	msg := readJSON(t, conn)
	assert.Equal(t, "telemetry.event", msg["type"])
	assert.Equal(t, string(telemetry.CategoryAgentDecision), msg["category"])
}

func TestHub_Unregister_RemovesConnectionFromActiveCount(t *testing.T) {
	hub := NewHub(time.Second)
	_, wsURL := newTestServer(t, hub)

	conn := dial(t, wsURL)
	_ = readJSON(t, conn)

	require.Eventually(t, func() bool { return hub.ActiveConnections() == 1 }, time.Second, 10*time.Millisecond)

	_ = conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return hub.ActiveConnections() == 0 }, time.Second, 10*time.Millisecond)
}
