package registry

import (
	"context"

	"github.com/bankx/agent-fabric/pkg/a2a"
)

// A2ADiscoverer adapts Service to a2a.Discoverer.
type A2ADiscoverer struct {
	Service *Service
}

// DiscoverByCapability implements a2a.Discoverer.
func (d A2ADiscoverer) DiscoverByCapability(ctx context.Context, capability string) ([]a2a.DiscoveredAgent, error) {
	eps, err := d.Service.DiscoverByCapability(ctx, capability)
	if err != nil {
		return nil, err
	}
	out := make([]a2a.DiscoveredAgent, len(eps))
	for i, e := range eps {
		out[i] = a2a.DiscoveredAgent{AgentID: e.AgentID, Name: e.Name, A2AEndpoint: e.A2AEndpoint}
	}
	return out, nil
}
