package a2a

import (
	"log/slog"
	"sync"
	"time"
)

// BreakerState is the closed tri-state lifecycle of a single breaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerConfig holds the tunables from spec.md §4.1 / §6 (a2a client block).
type BreakerConfig struct {
	FailureThreshold int
	TimeoutSeconds   int
	HalfOpenMaxCalls int
}

// DefaultBreakerConfig returns the spec's defaults: failure_threshold=5,
// timeout_seconds=60, half_open_max_calls=1.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, TimeoutSeconds: 60, HalfOpenMaxCalls: 1}
}

// breaker is the mutable state for one (source_agent, target_agent_id) pair.
type breaker struct {
	mu            sync.Mutex
	state         BreakerState
	failureCount  int
	successCount  int
	halfOpenCalls int
	lastFailure   time.Time
	cfg           BreakerConfig
}

func newBreaker(cfg BreakerConfig) *breaker {
	return &breaker{state: BreakerClosed, cfg: cfg}
}

// CircuitBreaker manages one breaker per target, keyed by target agent id.
// Mutation of an individual breaker's state is a small critical section
// (spec.md §5 "Shared resources"); the map itself is additionally guarded so
// breakers for new targets can be created concurrently without contention on
// existing ones.
type CircuitBreaker struct {
	mu       sync.RWMutex
	breakers map[string]*breaker
	cfg      BreakerConfig
	onEvent  func(targetAgentID string, from, to BreakerState)
	logger   *slog.Logger
}

// NewCircuitBreaker constructs a breaker registry. onEvent, if non-nil, is
// invoked synchronously on every state transition so telemetry (C12) can
// record it; it must not block.
func NewCircuitBreaker(cfg BreakerConfig, onEvent func(targetAgentID string, from, to BreakerState)) *CircuitBreaker {
	return &CircuitBreaker{
		breakers: make(map[string]*breaker),
		cfg:      cfg,
		onEvent:  onEvent,
		logger:   slog.Default().With("component", "circuit_breaker"),
	}
}

func (cb *CircuitBreaker) get(target string) *breaker {
	cb.mu.RLock()
	b, ok := cb.breakers[target]
	cb.mu.RUnlock()
	if ok {
		return b
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if b, ok = cb.breakers[target]; ok {
		return b
	}
	b = newBreaker(cb.cfg)
	cb.breakers[target] = b
	return b
}

// CanExecute reports whether a call to target may proceed. A half-open
// breaker allows at most HalfOpenMaxCalls probes before further calls are
// rejected until the next success/failure resolves the probe.
func (cb *CircuitBreaker) CanExecute(target string) bool {
	b := cb.get(target)
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if time.Since(b.lastFailure) >= time.Duration(b.cfg.TimeoutSeconds)*time.Second {
			cb.transition(target, b, BreakerHalfOpen)
			b.halfOpenCalls = 0
			return true
		}
		return false
	case BreakerHalfOpen:
		if b.halfOpenCalls < b.cfg.HalfOpenMaxCalls {
			b.halfOpenCalls++
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess registers a successful call against target.
func (cb *CircuitBreaker) RecordSuccess(target string) {
	b := cb.get(target)
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerHalfOpen:
		cb.transition(target, b, BreakerClosed)
		b.failureCount = 0
		b.successCount = 0
		b.halfOpenCalls = 0
	case BreakerClosed:
		b.successCount++
		if b.failureCount > 0 {
			b.failureCount--
		}
	}
}

// RecordFailure registers a failed call against target.
func (cb *CircuitBreaker) RecordFailure(target string) {
	b := cb.get(target)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = time.Now()

	switch b.state {
	case BreakerHalfOpen:
		cb.transition(target, b, BreakerOpen)
	case BreakerClosed:
		b.failureCount++
		if b.failureCount >= b.cfg.FailureThreshold {
			cb.transition(target, b, BreakerOpen)
		}
	}
}

// Reset forces target's breaker back to closed with zeroed counters.
func (cb *CircuitBreaker) Reset(target string) {
	b := cb.get(target)
	b.mu.Lock()
	defer b.mu.Unlock()
	cb.transition(target, b, BreakerClosed)
	b.failureCount = 0
	b.successCount = 0
	b.halfOpenCalls = 0
}

// State reports the current state of target's breaker (closed if unknown).
func (cb *CircuitBreaker) State(target string) BreakerState {
	b := cb.get(target)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// transition must be called with b.mu held.
func (cb *CircuitBreaker) transition(target string, b *breaker, to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	cb.logger.Info("breaker state transition", "target", target, "from", from, "to", to)
	if cb.onEvent != nil {
		cb.onEvent(target, from, to)
	}
}
