// Package cleanup runs the background retention sweep for the User Cache
// (C8): periodically deleting on-disk cache entries older than
// cache.CleanupAge (spec.md §4.8 "cleanup_old"). Stale-agent eviction is
// a separate concern already owned by the Registry's own Health Monitor
// (pkg/registry/health.go) and is not duplicated here.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/bankx/agent-fabric/pkg/cache"
)

// Service periodically enforces the cache's retention policy. All
// operations are idempotent and safe to run from multiple pods, since
// each pod owns a disjoint set of customer cache files on its local disk.
type Service struct {
	manager  *cache.Manager
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service. interval <= 0 defaults to
// cache.CleanupAge, matching the Python original's cleanup loop cadence.
func NewService(manager *cache.Manager, interval time.Duration) *Service {
	if interval <= 0 {
		interval = cache.CleanupAge
	}
	return &Service{
		manager:  manager,
		interval: interval,
		logger:   slog.Default().With("component", "cache_cleanup"),
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("cache cleanup service started", "interval", s.interval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("cache cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	deleted, err := s.manager.CleanupOld()
	if err != nil {
		s.logger.Error("cache cleanup sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("cache cleanup: removed stale entries", "count", deleted)
	}
}
