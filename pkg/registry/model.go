// Package registry implements the agent registry: the two-tier store
// (hot TTL'd index + durable document store), the registration service, and
// the background health monitor (spec.md C3/C4/C5).
package registry

import "time"

// AgentType mirrors pkg/a2a.AgentType to keep this package import-light; the
// two are kept in sync by convention (supervisor, domain, knowledge, utility).
type AgentType string

const (
	AgentTypeSupervisor AgentType = "supervisor"
	AgentTypeDomain     AgentType = "domain"
	AgentTypeKnowledge  AgentType = "knowledge"
	AgentTypeUtility    AgentType = "utility"
)

// Status is the closed set of registration lifecycle states.
type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusMaintenance Status = "maintenance"
	StatusDegraded    Status = "degraded"
)

// Endpoints holds the URLs an agent advertises on registration.
type Endpoints struct {
	HTTP    string `json:"http"`
	Health  string `json:"health"`
	Metrics string `json:"metrics,omitempty"`
	A2A     string `json:"a2a"`
}

// Registration is the full record of one agent (spec.md §3 "Agent
// Registration").
type Registration struct {
	AgentID       string         `json:"agent_id"`
	AgentName     string         `json:"agent_name"`
	AgentType     AgentType      `json:"agent_type"`
	Version       string         `json:"version"`
	Capabilities  []string       `json:"capabilities"`
	Endpoints     Endpoints      `json:"endpoints"`
	Status        Status         `json:"status"`
	RegisteredAt  time.Time      `json:"registered_at"`
	LastHeartbeat time.Time      `json:"last_heartbeat"`
	Tags          []string       `json:"tags"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// HasCapability reports whether r advertises capability.
func (r Registration) HasCapability(capability string) bool {
	for _, c := range r.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// HasAnyTag reports whether r carries any of tags (OR semantics, spec.md §4.3
// "Tag filtering is post-filter (OR across requested tags)").
func (r Registration) HasAnyTag(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(r.Tags))
	for _, t := range r.Tags {
		set[t] = struct{}{}
	}
	for _, want := range tags {
		if _, ok := set[want]; ok {
			return true
		}
	}
	return false
}

// Filter is a discovery query (spec.md §4.3).
type Filter struct {
	Capability string
	AgentType  AgentType
	Status     Status // empty means "any"; callers default to StatusActive per §6
	Tags       []string
}

// Matches reports whether r satisfies the conjunction of non-empty fields in f.
func (f Filter) Matches(r Registration) bool {
	if f.Capability != "" && !r.HasCapability(f.Capability) {
		return false
	}
	if f.AgentType != "" && r.AgentType != f.AgentType {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if !r.HasAnyTag(f.Tags) {
		return false
	}
	return true
}
