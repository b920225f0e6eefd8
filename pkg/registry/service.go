package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service is the Registry Service (spec.md §4.4, C4): register, discover,
// get, heartbeat, update-status, deregister, backed by a two-tier store.
// Registry writes for a given agent_id are serialized (spec.md §5 "Shared
// resources") via a per-agent_id mutex; reads are lock-free.
type Service struct {
	hot     HotStore // may be nil if not configured
	durable DurableStore // may be nil if not configured

	writeMu sync.Map // agent_id -> *sync.Mutex

	logger *slog.Logger
}

// NewService builds a Service over at least one of hot/durable (spec.md §4.3
// "either may be absent; at least one required").
func NewService(hot HotStore, durable DurableStore) (*Service, error) {
	if hot == nil && durable == nil {
		return nil, fmt.Errorf("registry: at least one of hot store or durable store is required")
	}
	return &Service{hot: hot, durable: durable, logger: slog.Default().With("component", "registry_service")}, nil
}

func (s *Service) lockFor(agentID string) func() {
	muI, _ := s.writeMu.LoadOrStore(agentID, &sync.Mutex{})
	mu := muI.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// RegistrationRequest is the input to Register.
type RegistrationRequest struct {
	AgentName    string
	AgentType    AgentType
	Version      string
	Capabilities []string
	Endpoints    Endpoints
	Tags         []string
	Metadata     map[string]any
}

// Register assigns a fresh agent_id and persists the registration to both
// tiers. Not idempotent: every call mints a new id (spec.md §4.4).
func (s *Service) Register(ctx context.Context, req RegistrationRequest) (Registration, error) {
	now := time.Now().UTC()
	reg := Registration{
		AgentID:       uuid.NewString(),
		AgentName:     req.AgentName,
		AgentType:     req.AgentType,
		Version:       req.Version,
		Capabilities:  req.Capabilities,
		Endpoints:     req.Endpoints,
		Status:        StatusActive,
		RegisteredAt:  now,
		LastHeartbeat: now,
		Tags:          req.Tags,
		Metadata:      req.Metadata,
	}

	unlock := s.lockFor(reg.AgentID)
	defer unlock()

	if err := s.writeBoth(ctx, reg); err != nil {
		return Registration{}, err
	}
	return reg, nil
}

// writeBoth writes to durable first (authoritative; failures here are
// fatal), then hot (best-effort; failures are logged and tolerated) per
// spec.md §4.3 "Write path".
func (s *Service) writeBoth(ctx context.Context, reg Registration) error {
	if s.durable != nil {
		if err := s.durable.Put(ctx, reg); err != nil {
			return fmt.Errorf("registry: durable write failed for %s: %w", reg.AgentID, err)
		}
	}
	if s.hot != nil {
		if err := s.hot.Put(ctx, reg); err != nil {
			s.logger.Warn("hot store write failed, continuing on durable copy", "agent_id", reg.AgentID, "error", err)
		}
	}
	return nil
}

// GetAgent returns a single registration, reading hot first and
// repopulating it from durable on a miss (spec.md §4.3 "Read path").
func (s *Service) GetAgent(ctx context.Context, agentID string) (Registration, error) {
	if s.hot != nil {
		reg, err := s.hot.Get(ctx, agentID)
		if err == nil {
			return reg, nil
		}
	}
	if s.durable == nil {
		return Registration{}, ErrNotFound
	}
	reg, err := s.durable.Get(ctx, agentID)
	if err != nil {
		return Registration{}, err
	}
	if s.hot != nil {
		if err := s.hot.Put(ctx, reg); err != nil {
			s.logger.Warn("hot index repopulation failed", "agent_id", agentID, "error", err)
		}
	}
	return reg, nil
}

// Discover returns every registration matching f. When every non-empty
// filter field maps to an indexed hot-store set, the intersection of those
// sets is computed; otherwise (or when the hot store is absent) it falls
// through to a durable scan with equivalent filtering (spec.md §4.3).
func (s *Service) Discover(ctx context.Context, f Filter) ([]Registration, error) {
	if f.Status == "" {
		f.Status = StatusActive
	}

	if s.hot != nil {
		ids, ok, err := s.hotCandidateIDs(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("registry: discover via hot store: %w", err)
		}
		if ok {
			return s.hydrateAndFilter(ctx, ids, f)
		}
	}

	if s.durable == nil {
		return nil, nil
	}
	all, err := s.durable.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: discover via durable store: %w", err)
	}
	var out []Registration
	for _, r := range all {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// hotCandidateIDs computes the intersection of indexed sets for the filters
// that map to an index (capability, agent_type, status). ok=false means the
// hot store cannot serve this query on its own (e.g. no indexed field given)
// and the caller should fall through to durable.
func (s *Service) hotCandidateIDs(ctx context.Context, f Filter) (ids []string, ok bool, err error) {
	var sets [][]string

	if f.Capability != "" {
		s1, err := s.hot.IDsByCapability(ctx, f.Capability)
		if err != nil {
			return nil, false, err
		}
		sets = append(sets, s1)
	}
	if f.AgentType != "" {
		s2, err := s.hot.IDsByType(ctx, f.AgentType)
		if err != nil {
			return nil, false, err
		}
		sets = append(sets, s2)
	}
	if f.Status != "" {
		s3, err := s.hot.IDsByStatus(ctx, f.Status)
		if err != nil {
			return nil, false, err
		}
		sets = append(sets, s3)
	}

	if len(sets) == 0 {
		return nil, false, nil
	}
	return intersect(sets), true, nil
}

func intersect(sets [][]string) []string {
	counts := make(map[string]int)
	for _, set := range sets {
		seen := make(map[string]struct{}, len(set))
		for _, id := range set {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			counts[id]++
		}
	}
	var out []string
	for id, c := range counts {
		if c == len(sets) {
			out = append(out, id)
		}
	}
	return out
}

func (s *Service) hydrateAndFilter(ctx context.Context, ids []string, f Filter) ([]Registration, error) {
	var out []Registration
	for _, id := range ids {
		reg, err := s.GetAgent(ctx, id)
		if err != nil {
			continue
		}
		if f.Matches(reg) {
			out = append(out, reg)
		}
	}
	return out, nil
}

// Heartbeat updates last_heartbeat (and optionally status). Best-effort:
// never returns an error the caller must treat as fatal, per spec.md §4.4.
func (s *Service) Heartbeat(ctx context.Context, agentID string, status *Status) (time.Time, error) {
	unlock := s.lockFor(agentID)
	defer unlock()

	reg, err := s.GetAgent(ctx, agentID)
	if err != nil {
		return time.Time{}, err
	}
	reg.LastHeartbeat = time.Now().UTC()
	if status != nil {
		reg.Status = *status
	}
	if err := s.writeBoth(ctx, reg); err != nil {
		s.logger.Warn("heartbeat persistence failed", "agent_id", agentID, "error", err)
	}
	return reg.LastHeartbeat, nil
}

// UpdateStatus is idempotent: setting the same status twice is a no-op
// beyond a repeated write.
func (s *Service) UpdateStatus(ctx context.Context, agentID string, status Status) error {
	unlock := s.lockFor(agentID)
	defer unlock()

	reg, err := s.GetAgent(ctx, agentID)
	if err != nil {
		return err
	}
	reg.Status = status
	return s.writeBoth(ctx, reg)
}

// Deregister removes the registration from both tiers. Idempotent: a second
// call on an unknown agent returns ErrNotFound without side effects.
func (s *Service) Deregister(ctx context.Context, agentID string) error {
	unlock := s.lockFor(agentID)
	defer unlock()

	if _, err := s.GetAgent(ctx, agentID); err != nil {
		return ErrNotFound
	}
	if s.durable != nil {
		if err := s.durable.Delete(ctx, agentID); err != nil {
			return fmt.Errorf("registry: durable delete failed for %s: %w", agentID, err)
		}
	}
	if s.hot != nil {
		if err := s.hot.Delete(ctx, agentID); err != nil {
			s.logger.Warn("hot store delete failed", "agent_id", agentID, "error", err)
		}
	}
	return nil
}

// Health reports whether both configured tiers are reachable, for the
// registry's GET /health endpoint (spec.md §6).
func (s *Service) Health(ctx context.Context) error {
	if s.hot != nil {
		if err := s.hot.Ping(ctx); err != nil {
			return fmt.Errorf("hot store unreachable: %w", err)
		}
	}
	if s.durable != nil {
		if err := s.durable.Ping(ctx); err != nil {
			return fmt.Errorf("durable store unreachable: %w", err)
		}
	}
	return nil
}

// Metrics reports simple counts for the registry's GET /metrics endpoint.
func (s *Service) Metrics(ctx context.Context) (total int, byStatus map[Status]int, byType map[AgentType]int, err error) {
	regs, err := s.Discover(ctx, Filter{Status: ""})
	if err != nil {
		return 0, nil, nil, err
	}
	byStatus = make(map[Status]int)
	byType = make(map[AgentType]int)
	for _, r := range regs {
		byStatus[r.Status]++
		byType[r.AgentType]++
	}
	return len(regs), byStatus, byType, nil
}

// DiscoverByCapability adapts Discover to a2a.Discoverer, so pkg/a2a need
// not import this package.
func (s *Service) DiscoverByCapability(ctx context.Context, capability string) ([]AgentEndpoint, error) {
	regs, err := s.Discover(ctx, Filter{Capability: capability, Status: StatusActive})
	if err != nil {
		return nil, err
	}
	out := make([]AgentEndpoint, 0, len(regs))
	for _, r := range regs {
		out = append(out, AgentEndpoint{AgentID: r.AgentID, Name: r.AgentName, A2AEndpoint: r.Endpoints.A2A})
	}
	return out, nil
}

// AgentEndpoint is the minimal shape pkg/a2a.DiscoveredAgent needs; kept
// separate so this package has no compile-time dependency on pkg/a2a.
type AgentEndpoint struct {
	AgentID     string
	Name        string
	A2AEndpoint string
}
