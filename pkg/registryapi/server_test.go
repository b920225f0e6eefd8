package registryapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankx/agent-fabric/pkg/registry"
)

func newTestServer(t *testing.T, auth *Authenticator) *Server {
	svc, err := registry.NewService(registry.NewMemoryHotStore(300*time.Second), registry.NewMemoryDurableStore())
	require.NoError(t, err)
	return NewServer(svc, auth)
}

func doJSON(t *testing.T, s *Server, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestServer_RegisterDiscoverGetRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/agents/register", registerRequest{
		AgentName:    "Account Agent",
		AgentType:    registry.AgentTypeDomain,
		Capabilities: []string{"account.balance"},
		Endpoints:    registry.Endpoints{A2A: "https://account/a2a/invoke", Health: "https://account/health"},
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var created registerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.AgentID)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/agents/discover?capability=account.balance", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var discovered struct {
		Agents []registry.Registration `json:"agents"`
		Count  int                     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &discovered))
	require.Equal(t, 1, discovered.Count)
	assert.Equal(t, created.AgentID, discovered.Agents[0].AgentID)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/agents/"+created.AgentID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_GetUnknownAgentReturns404(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doJSON(t, s, http.MethodGet, "/api/v1/agents/does-not-exist", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_DeregisterRequiresMatchingToken(t *testing.T) {
	auth := NewAuthenticator("test-secret", "", 0)
	s := newTestServer(t, auth)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/agents/register", registerRequest{
		AgentName: "X", AgentType: registry.AgentTypeDomain,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created registerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Token)

	// No token at all.
	rec = doJSON(t, s, http.MethodDelete, "/api/v1/agents/"+created.AgentID, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Token for a different agent.
	otherToken, err := auth.IssueToken("someone-else", false)
	require.NoError(t, err)
	rec = doJSON(t, s, http.MethodDelete, "/api/v1/agents/"+created.AgentID, nil, otherToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Correct token.
	rec = doJSON(t, s, http.MethodDelete, "/api/v1/agents/"+created.AgentID, nil, created.Token)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Idempotent: second deregister of the same (now-gone) agent is a 404.
	rec = doJSON(t, s, http.MethodDelete, "/api/v1/agents/"+created.AgentID, nil, created.Token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_HeartbeatAndStatusUpdate(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/agents/register", registerRequest{
		AgentName: "X", AgentType: registry.AgentTypeDomain,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created registerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, s, http.MethodPost, "/api/v1/agents/"+created.AgentID+"/heartbeat", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPut, "/api/v1/agents/"+created.AgentID+"/status?new_status=maintenance", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/agents/"+created.AgentID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var reg registry.Registration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	assert.Equal(t, registry.StatusMaintenance, reg.Status)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	doJSON(t, s, http.MethodPost, "/api/v1/agents/register", registerRequest{
		AgentName: "X", AgentType: registry.AgentTypeDomain,
	}, "")

	rec = doJSON(t, s, http.MethodGet, "/api/v1/agents/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var metrics struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Equal(t, 1, metrics.Total)
}
