package registry

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthMonitorConfig holds the registry.health_check_* configuration block
// (spec.md §6).
type HealthMonitorConfig struct {
	Enabled                   bool
	CheckIntervalSeconds      int
	ProbeTimeoutSeconds       int
	StaleAgentThresholdMinute int
}

// DefaultHealthMonitorConfig returns spec.md §6's defaults.
func DefaultHealthMonitorConfig() HealthMonitorConfig {
	return HealthMonitorConfig{Enabled: true, CheckIntervalSeconds: 30, ProbeTimeoutSeconds: 5, StaleAgentThresholdMinute: 5}
}

// HealthMonitor runs the background probe/eviction loop (spec.md §4.5, C5).
// Grounded on original_source's agent-registry/services/health_service.py
// loop shape and teacher pkg/mcp/health.go's Start/Stop lifecycle.
type HealthMonitor struct {
	svc    *Service
	cfg    HealthMonitorConfig
	client *http.Client

	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger
}

// NewHealthMonitor builds a monitor over svc.
func NewHealthMonitor(svc *Service, cfg HealthMonitorConfig) *HealthMonitor {
	return &HealthMonitor{
		svc:    svc,
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.ProbeTimeoutSeconds) * time.Second},
		logger: slog.Default().With("component", "health_monitor"),
	}
}

// Start launches the background loop. A no-op if already running or if the
// monitor is disabled.
func (m *HealthMonitor) Start(ctx context.Context) {
	if !m.cfg.Enabled || m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(time.Duration(m.cfg.CheckIntervalSeconds) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.runOnce(ctx)
			}
		}
	}()
}

// Stop halts the background loop and waits for the in-flight iteration to
// finish.
func (m *HealthMonitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
}

// runOnce fetches all registrations, probes each in parallel (bounded by
// registration count per spec.md §4.5), applies status transitions, and
// evicts stale agents. Probe failures are never fatal to the loop.
func (m *HealthMonitor) runOnce(ctx context.Context) {
	regs, err := m.svc.Discover(ctx, Filter{Status: ""})
	if err != nil {
		m.logger.Warn("health monitor: failed to list registrations", "error", err)
		return
	}

	staleThreshold := time.Duration(m.cfg.StaleAgentThresholdMinute) * time.Minute
	now := time.Now()

	var mu sync.Mutex
	var toEvict []string

	g, gctx := errgroup.WithContext(ctx)
	for _, reg := range regs {
		reg := reg
		if now.Sub(reg.LastHeartbeat) >= staleThreshold {
			mu.Lock()
			toEvict = append(toEvict, reg.AgentID)
			mu.Unlock()
			continue
		}
		if reg.Status != StatusActive && reg.Status != StatusDegraded {
			continue // no transition for maintenance/inactive (spec.md §4.5)
		}
		g.Go(func() error {
			m.probeAndTransition(gctx, reg)
			return nil
		})
	}
	_ = g.Wait()

	for _, id := range toEvict {
		if err := m.svc.Deregister(ctx, id); err != nil {
			m.logger.Warn("health monitor: failed to evict stale agent", "agent_id", id, "error", err)
		} else {
			m.logger.Info("health monitor: evicted stale agent", "agent_id", id)
		}
	}
}

func (m *HealthMonitor) probeAndTransition(ctx context.Context, reg Registration) {
	healthy := m.probe(ctx, reg.Endpoints.Health)

	var newStatus Status
	switch {
	case healthy && reg.Status == StatusDegraded:
		newStatus = StatusActive
	case !healthy && reg.Status == StatusActive:
		newStatus = StatusDegraded
	default:
		return
	}

	if err := m.svc.UpdateStatus(ctx, reg.AgentID, newStatus); err != nil {
		m.logger.Warn("health monitor: status transition failed", "agent_id", reg.AgentID, "error", err)
	}
}

func (m *HealthMonitor) probe(ctx context.Context, healthEndpoint string) bool {
	if healthEndpoint == "" {
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, time.Duration(m.cfg.ProbeTimeoutSeconds)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, healthEndpoint, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
