package classifier

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bankx/agent-fabric/pkg/llmprovider"
)

const routingSystemPrompt = `You are a routing classifier for a banking assistant. Given a user query, respond with exactly one agent name from this fixed set, and nothing else:
Payment Agent
Transaction Agent
Account Agent
Product Info Agent
AI Money Coach
Escalation Agent`

// RoutingClassifier runs Classify-for-routing (spec.md §4.9), used only
// when the keyword hybrid classifier (spec.md §4.10 step 6) is ambiguous.
type RoutingClassifier struct {
	provider llmprovider.Provider
	logger   *slog.Logger
}

// NewRoutingClassifier builds a RoutingClassifier over provider.
func NewRoutingClassifier(provider llmprovider.Provider) *RoutingClassifier {
	return &RoutingClassifier{provider: provider, logger: slog.Default().With("component", "routing_classifier")}
}

// Classify selects exactly one Agent. On any failure, or a response outside
// the closed set, it degrades to DefaultRoutingAgent (spec.md §4.9
// "routing-classifier failure ⇒ default to Account Agent").
func (c *RoutingClassifier) Classify(ctx context.Context, query string) Agent {
	if c.provider == nil {
		return DefaultRoutingAgent
	}

	raw, err := c.provider.Complete(ctx, llmprovider.CompletionRequest{
		SystemPrompt: routingSystemPrompt,
		UserPrompt:   query,
		Temperature:  0,
	})
	if err != nil {
		c.logger.Error("routing classification call failed", "error", err)
		return DefaultRoutingAgent
	}

	candidate := Agent(strings.TrimSpace(raw))
	if !validAgents[candidate] {
		c.logger.Warn("routing classifier returned an agent outside the closed set", "raw", raw)
		return DefaultRoutingAgent
	}
	return candidate
}
