package a2a

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDiscoverer struct {
	agents []DiscoveredAgent
	err    error
}

func (f *fakeDiscoverer) DiscoverByCapability(ctx context.Context, capability string) ([]DiscoveredAgent, error) {
	return f.agents, f.err
}

func TestClient_SendSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		resp := SuccessResponse(msg, map[string]any{"balance": 100}, 0)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	disc := &fakeDiscoverer{agents: []DiscoveredAgent{{AgentID: "account-1", Name: "Account Agent", A2AEndpoint: srv.URL}}}
	client := NewClient(AgentIdentifier{AgentID: "supervisor-1"}, disc, DefaultClientConfig(), nil)

	resp, err := client.Send(context.Background(), SendParams{TargetCapability: "account.balance", Intent: "account.balance"})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, resp.Status)
	require.Equal(t, BreakerClosed, client.Breaker().State("account-1"))
}

func TestClient_NoAgentForCapability(t *testing.T) {
	disc := &fakeDiscoverer{agents: nil}
	client := NewClient(AgentIdentifier{AgentID: "supervisor-1"}, disc, DefaultClientConfig(), nil)

	_, err := client.Send(context.Background(), SendParams{TargetCapability: "account.balance", Intent: "x"})
	require.ErrorIs(t, err, ErrNoAgentAvailable)
}

func TestClient_BreakerOpenSkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	disc := &fakeDiscoverer{agents: []DiscoveredAgent{{AgentID: "account-1", A2AEndpoint: srv.URL}}}
	cfg := DefaultClientConfig()
	client := NewClient(AgentIdentifier{AgentID: "supervisor-1"}, disc, cfg, nil)
	client.Breaker().RecordFailure("account-1")
	client.Breaker().RecordFailure("account-1")
	client.Breaker().RecordFailure("account-1")
	client.Breaker().RecordFailure("account-1")
	client.Breaker().RecordFailure("account-1")
	require.Equal(t, BreakerOpen, client.Breaker().State("account-1"))

	_, err := client.Send(context.Background(), SendParams{TargetCapability: "account.balance", Intent: "x"})
	require.ErrorIs(t, err, ErrBreakerOpen)
	require.False(t, called, "breaker-open send must not attempt the network")
}

func TestClient_MaxRetriesZeroIsOneAttempt(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	disc := &fakeDiscoverer{agents: []DiscoveredAgent{{AgentID: "account-1", A2AEndpoint: srv.URL}}}
	cfg := DefaultClientConfig()
	cfg.MaxRetries = 0
	client := NewClient(AgentIdentifier{AgentID: "supervisor-1"}, disc, cfg, nil)

	_, err := client.Send(context.Background(), SendParams{TargetCapability: "account.balance", Intent: "x"})
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}
