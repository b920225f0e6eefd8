package supervisorapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bankx/agent-fabric/pkg/a2a"
)

// RegistryDiscoverer resolves capabilities against the Registry's HTTP
// discovery endpoint (spec.md §6 `GET /api/v1/agents/discover`). It is the
// out-of-process counterpart to pkg/registry.A2ADiscoverer, needed because
// the Supervisor runs as a separate process from the Registry and cannot
// call its in-process registry.Service directly — the same reasoning
// behind pkg/agent.RegistryClient's self-registration over REST.
type RegistryDiscoverer struct {
	baseURL string
	http    *http.Client
}

// NewRegistryDiscoverer builds a discoverer against the registry at baseURL.
func NewRegistryDiscoverer(baseURL string) *RegistryDiscoverer {
	return &RegistryDiscoverer{baseURL: baseURL, http: &http.Client{}}
}

type discoverResponse struct {
	Agents []discoveredRegistration `json:"agents"`
	Count  int                      `json:"count"`
}

type discoveredRegistration struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	Status    string `json:"status"`
	Endpoints struct {
		A2A string `json:"a2a"`
	} `json:"endpoints"`
}

// DiscoverByCapability implements a2a.Discoverer.
func (d *RegistryDiscoverer) DiscoverByCapability(ctx context.Context, capability string) ([]a2a.DiscoveredAgent, error) {
	reqURL := fmt.Sprintf("%s/api/v1/agents/discover?capability=%s", d.baseURL, url.QueryEscape(capability))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supervisorapi: discover %q: %w", capability, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("supervisorapi: discover %q: registry returned %d", capability, resp.StatusCode)
	}

	var out discoverResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("supervisorapi: decode discover response: %w", err)
	}

	agents := make([]a2a.DiscoveredAgent, 0, len(out.Agents))
	for _, reg := range out.Agents {
		if reg.Status != "" && reg.Status != "active" {
			continue
		}
		agents = append(agents, a2a.DiscoveredAgent{
			AgentID:     reg.AgentID,
			Name:        reg.AgentName,
			A2AEndpoint: reg.Endpoints.A2A,
		})
	}
	return agents, nil
}
