package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	svc, err := NewService(NewMemoryHotStore(300*time.Second), NewMemoryDurableStore())
	require.NoError(t, err)
	return svc
}

func TestService_RegisterDiscoverGetRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegistrationRequest{
		AgentName:    "Account Agent",
		AgentType:    AgentTypeDomain,
		Version:      "1.0.0",
		Capabilities: []string{"account.balance"},
		Endpoints:    Endpoints{A2A: "https://account/a2a/invoke", Health: "https://account/health"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, reg.AgentID)

	found, err := svc.GetAgent(ctx, reg.AgentID)
	require.NoError(t, err)
	assert.Equal(t, reg.AgentName, found.AgentName)

	discovered, err := svc.Discover(ctx, Filter{Capability: "account.balance"})
	require.NoError(t, err)
	require.Len(t, discovered, 1)
	assert.Equal(t, reg.AgentID, discovered[0].AgentID)
}

func TestService_DiscoverExcludesNonActiveByDefault(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegistrationRequest{AgentName: "X", AgentType: AgentTypeDomain, Capabilities: []string{"c"}})
	require.NoError(t, err)
	require.NoError(t, svc.UpdateStatus(ctx, reg.AgentID, StatusMaintenance))

	discovered, err := svc.Discover(ctx, Filter{Capability: "c"})
	require.NoError(t, err)
	assert.Empty(t, discovered)
}

func TestService_DeregisterIsIdempotentAndRemovesFromDiscovery(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegistrationRequest{AgentName: "X", AgentType: AgentTypeDomain, Capabilities: []string{"c"}})
	require.NoError(t, err)

	require.NoError(t, svc.Deregister(ctx, reg.AgentID))
	_, err = svc.GetAgent(ctx, reg.AgentID)
	assert.ErrorIs(t, err, ErrNotFound)

	discovered, err := svc.Discover(ctx, Filter{Capability: "c"})
	require.NoError(t, err)
	assert.Empty(t, discovered)

	err = svc.Deregister(ctx, reg.AgentID)
	assert.ErrorIs(t, err, ErrNotFound, "second deregister on an unknown agent must fail without side effects")
}

func TestService_HeartbeatUpdatesTimestamp(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegistrationRequest{AgentName: "X", AgentType: AgentTypeDomain})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	ts, err := svc.Heartbeat(ctx, reg.AgentID, nil)
	require.NoError(t, err)
	assert.True(t, ts.After(reg.LastHeartbeat))
}

func TestFilter_DiscoveredAgentsSatisfyQuery(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegistrationRequest{AgentName: "A", AgentType: AgentTypeDomain, Capabilities: []string{"account.balance", "account.details"}})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegistrationRequest{AgentName: "B", AgentType: AgentTypeKnowledge, Capabilities: []string{"product.faq"}})
	require.NoError(t, err)

	regs, err := svc.Discover(ctx, Filter{Capability: "account.balance", Status: StatusActive})
	require.NoError(t, err)
	for _, r := range regs {
		assert.True(t, r.HasCapability("account.balance"))
		assert.Equal(t, StatusActive, r.Status)
	}
}
