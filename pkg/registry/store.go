package registry

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a store when the requested agent_id does not
// exist.
var ErrNotFound = errors.New("registry: agent not found")

// HotStore is the TTL'd, set-indexed index described in spec.md §4.3. It is
// optimized for fast discovery and may lose data if it restarts; Store
// repopulates it from the durable store on a miss.
type HotStore interface {
	// Put writes the registration and refreshes its secondary indexes
	// (capability, type, status), with a TTL on every key.
	Put(ctx context.Context, reg Registration) error
	// Get returns the registration or ErrNotFound.
	Get(ctx context.Context, agentID string) (Registration, error)
	// Delete removes the registration and its index entries.
	Delete(ctx context.Context, agentID string) error
	// IDsByCapability returns agent ids in the capability index.
	IDsByCapability(ctx context.Context, capability string) ([]string, error)
	// IDsByType returns agent ids in the type index.
	IDsByType(ctx context.Context, agentType AgentType) ([]string, error)
	// IDsByStatus returns agent ids in the status index.
	IDsByStatus(ctx context.Context, status Status) ([]string, error)
	// All returns every agent id currently indexed (used to pair with
	// Filter.Matches when no single index covers the query).
	All(ctx context.Context) ([]string, error)
	// Ping reports hot-store reachability for the registry health endpoint.
	Ping(ctx context.Context) error
}

// DurableStore is the authoritative, partitioned-by-agent_id document store
// described in spec.md §4.3. Failures here must never be silently dropped
// for register/deregister.
type DurableStore interface {
	Put(ctx context.Context, reg Registration) error
	Get(ctx context.Context, agentID string) (Registration, error)
	Delete(ctx context.Context, agentID string) error
	List(ctx context.Context) ([]Registration, error)
	Ping(ctx context.Context) error
}
