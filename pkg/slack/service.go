package slack

import (
	"context"
	"log/slog"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token        string
	Channel      string
	DashboardURL string
}

// TicketInput contains the data for one escalation ticket notification
// (spec.md §8 scenario 4: a specialist that cannot resolve a query, or a
// query matching an escalation phrase, files a support ticket through the
// Escalation Agent). Fingerprint keys thread reuse: a second ticket filed
// for the same session_id threads onto the first rather than posting a new
// top-level message, so a customer's ongoing escalation reads as one
// conversation in Slack.
type TicketInput struct {
	SessionID   string
	CustomerID  string
	Query       string
	Reason      string // triage rule that routed here: "escalation_phrase", "continuation", dispatch failure, ...
	Response    string // the Escalation Agent's reply, shown once resolved
	Fingerprint string // dedup key for thread reuse; defaults to SessionID when empty
}

// Service handles Slack notification delivery. Nil-safe: all methods are
// no-ops when service is nil, so callers can wire *Service straight into
// business logic without a separate enabled check (spec.md §6
// "slack.enabled").
type Service struct {
	client       *Client
	dashboardURL string
	logger       *slog.Logger
}

// NewService creates a new Slack notification service. Returns nil if
// Token or Channel is empty.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client:       NewClient(cfg.Token, cfg.Channel),
		dashboardURL: cfg.DashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client, dashboardURL string) *Service {
	return &Service{
		client:       client,
		dashboardURL: dashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NotifyTicket posts an escalation ticket notification. If a message for
// this fingerprint already exists in the channel's last 24 hours (an
// earlier ticket in the same session), it is posted as a threaded reply;
// otherwise it starts a new thread. Fail-open: errors are logged, never
// returned, since a Slack outage must never fail the customer's turn.
func (s *Service) NotifyTicket(ctx context.Context, input TicketInput) {
	if s == nil {
		return
	}

	fingerprint := input.Fingerprint
	if fingerprint == "" {
		fingerprint = input.SessionID
	}

	threadTS, err := s.client.FindMessageByFingerprint(ctx, fingerprint)
	if err != nil {
		s.logger.Warn("failed to find existing Slack thread for ticket",
			"session_id", input.SessionID,
			"fingerprint", fingerprint,
			"error", err)
	}

	blocks := BuildTicketMessage(input, s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks, threadTS, 10*time.Second); err != nil {
		s.logger.Error("failed to send Slack ticket notification",
			"session_id", input.SessionID,
			"error", err)
	}
}
