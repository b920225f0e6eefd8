package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DiscoveredAgent is the subset of a registry entry the client needs to
// route a message. It is intentionally narrow so this package does not
// import pkg/registry.
type DiscoveredAgent struct {
	AgentID     string
	Name        string
	A2AEndpoint string
}

// Discoverer resolves a capability to candidate agents. pkg/registry's
// Service satisfies this via a thin adapter.
type Discoverer interface {
	DiscoverByCapability(ctx context.Context, capability string) ([]DiscoveredAgent, error)
}

// ClientConfig holds the a2a-client configuration block from spec.md §6.
type ClientConfig struct {
	TimeoutSeconds        int
	MaxRetries            int
	RetryBackoffSeconds   int
	CircuitBreakerConfig  BreakerConfig
	EnableTracing         bool
}

// DefaultClientConfig returns spec.md §6's defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		TimeoutSeconds:       30,
		MaxRetries:           3,
		RetryBackoffSeconds:  2,
		CircuitBreakerConfig: DefaultBreakerConfig(),
		EnableTracing:        true,
	}
}

// Tracer receives per-send spans. A no-op implementation is used when
// EnableTracing is false or no tracer is supplied.
type Tracer interface {
	StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(attrs map[string]any))
}

type noopTracer struct{}

func (noopTracer) StartSpan(ctx context.Context, _ string, _ map[string]any) (context.Context, func(map[string]any)) {
	return ctx, func(map[string]any) {}
}

// Client is the discovery-driven A2A sender (spec.md §4.6, C6). It resolves
// a target capability via Discoverer, checks the per-target circuit breaker,
// and sends with exponential backoff.
type Client struct {
	self       AgentIdentifier
	http       *http.Client
	discoverer Discoverer
	breaker    *CircuitBreaker
	codec      *Codec
	cfg        ClientConfig
	tracer     Tracer
	logger     *slog.Logger
}

// NewClient builds an A2A client identifying itself as self.
func NewClient(self AgentIdentifier, discoverer Discoverer, cfg ClientConfig, tracer Tracer) *Client {
	if tracer == nil {
		tracer = noopTracer{}
	}
	return &Client{
		self:       self,
		http:       &http.Client{},
		discoverer: discoverer,
		breaker:    NewCircuitBreaker(cfg.CircuitBreakerConfig, nil),
		codec:      NewCodec(),
		cfg:        cfg,
		tracer:     tracer,
		logger:     slog.Default().With("component", "a2a_client"),
	}
}

// Breaker exposes the client's circuit breaker registry so callers (e.g. the
// supervisor's backpressure check) can inspect state without sending.
func (c *Client) Breaker() *CircuitBreaker { return c.breaker }

// Discover resolves a target agent for capability without sending a
// message, for callers that need the endpoint independently of Send (e.g.
// the supervisor recording active_agent's endpoint for continuation per
// spec.md §4.10 step 8).
func (c *Client) Discover(ctx context.Context, capability string) (DiscoveredAgent, error) {
	agent, _, err := c.resolveTarget(ctx, SendParams{TargetCapability: capability})
	return agent, err
}

// SendParams are the arguments to Send (spec.md §4.6).
type SendParams struct {
	TargetCapability string
	Intent           string
	Payload          map[string]any
	TargetAgentID    string // optional: bypass discovery
	TargetAgentName  string
	TraceID          string
	SpanID           string
	TimeoutSeconds   int // optional override of cfg.TimeoutSeconds
	Priority         Priority
}

// Send resolves a target for TargetCapability (unless TargetAgentID is given),
// checks the breaker, and sends with retry/backoff per spec.md §4.6.
func (c *Client) Send(ctx context.Context, p SendParams) (Response, error) {
	ctx, finish := c.tracer.StartSpan(ctx, "a2a.send."+p.Intent, map[string]any{
		"target.capability": p.TargetCapability,
		"intent":            p.Intent,
	})
	start := time.Now()
	defer func() { finish(map[string]any{"duration_ms": time.Since(start).Milliseconds()}) }()

	target, endpoint, err := c.resolveTarget(ctx, p)
	if err != nil {
		return Response{}, err
	}

	if !c.breaker.CanExecute(target.AgentID) {
		return Response{}, fmt.Errorf("a2a: %s: %w", target.AgentID, ErrBreakerOpen)
	}

	timeoutSeconds := p.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = c.cfg.TimeoutSeconds
	}

	msg := NewMessage(c.self, AgentIdentifier{AgentID: target.AgentID, Name: target.Name}, p.Intent, p.Payload, Metadata{
		TimeoutSeconds: timeoutSeconds,
		TraceID:        p.TraceID,
		SpanID:         p.SpanID,
		Priority:       p.Priority,
	})

	var lastErr error
	attempts := 0
	for attempt := 0; attempt < maxAttempts(c.cfg.MaxRetries); attempt++ {
		attempts++
		attemptStart := time.Now()
		resp, err := c.attempt(ctx, endpoint, msg, time.Duration(timeoutSeconds)*time.Second)
		if err == nil && resp.Status != StatusError && resp.Status != StatusTimeout {
			c.breaker.RecordSuccess(target.AgentID)
			resp.Meta.ProcessingTimeMs = time.Since(attemptStart).Milliseconds()
			return resp, nil
		}
		if err == nil {
			// A well-formed response carrying status=error is still a
			// protocol-level success for breaker purposes per spec.md §7
			// ("Tool failure: surfaced to the calling agent... supervisor
			// passes through") — only transport failures trip the breaker.
			return resp, nil
		}
		lastErr = err
		c.breaker.RecordFailure(target.AgentID)
		c.logger.Warn("a2a send attempt failed", "target", target.AgentID, "intent", p.Intent, "attempt", attempt, "error", err)

		if attempt < maxAttempts(c.cfg.MaxRetries)-1 {
			backoff := time.Duration(c.cfg.RetryBackoffSeconds) * time.Second * time.Duration(pow2(attempt))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return Response{}, ctx.Err()
			}
		}
	}

	return Response{}, &SendError{Intent: p.Intent, Attempts: attempts, Err: lastErr}
}

// maxAttempts interprets MaxRetries as "retries after the first attempt",
// matching spec.md's boundary test ("max_retries=0 performs exactly one
// attempt").
func maxAttempts(maxRetries int) int {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return maxRetries + 1
}

func pow2(n int) int64 {
	r := int64(1)
	for i := 0; i < n; i++ {
		r *= 2
	}
	return r
}

func (c *Client) resolveTarget(ctx context.Context, p SendParams) (DiscoveredAgent, string, error) {
	if p.TargetAgentID != "" {
		return DiscoveredAgent{AgentID: p.TargetAgentID, Name: p.TargetAgentName}, "", nil
	}
	candidates, err := c.discoverer.DiscoverByCapability(ctx, p.TargetCapability)
	if err != nil {
		return DiscoveredAgent{}, "", fmt.Errorf("a2a: discover %q: %w", p.TargetCapability, err)
	}
	if len(candidates) == 0 {
		return DiscoveredAgent{}, "", fmt.Errorf("a2a: capability %q: %w", p.TargetCapability, ErrNoAgentAvailable)
	}
	// Default load-balancing policy: first-available.
	chosen := candidates[0]
	return chosen, chosen.A2AEndpoint, nil
}

func (c *Client) attempt(ctx context.Context, endpoint string, msg Message, timeout time.Duration) (Response, error) {
	if endpoint == "" {
		return Response{}, fmt.Errorf("a2a: no endpoint for target %s", msg.Target.AgentID)
	}

	body, err := c.codec.Encode(msg)
	if err != nil {
		return Response{}, fmt.Errorf("a2a: encode: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("a2a: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("a2a: transport: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 500 {
		return Response{}, fmt.Errorf("a2a: target returned %d", httpResp.StatusCode)
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("a2a: decode response: %w", err)
	}
	return resp, nil
}
