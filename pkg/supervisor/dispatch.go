package supervisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/bankx/agent-fabric/pkg/a2a"
	"github.com/bankx/agent-fabric/pkg/classifier"
)

// emailPrefix builds the idempotent prefix spec.md §4.10 step 7 requires
// ("my username is {email}, {original content}").
func emailPrefix(email string) string {
	return fmt.Sprintf("my username is %s, ", email)
}

// prependEmail applies the payment-agent email prefix to content, but only
// once (spec.md §4.10 step 7 "idempotently (no double-prepend)").
func prependEmail(content, email string) string {
	if email == "" {
		return content
	}
	prefix := emailPrefix(email)
	if strings.HasPrefix(content, prefix) {
		return content
	}
	return prefix + content
}

// buildDispatchPayload assembles the A2A payload for the selected agent. For
// the Payment Agent, every user-role message in history and the current
// message are prefixed with the authenticated email (spec.md §4.10 step 7);
// for every other agent, history is forwarded unchanged.
func buildDispatchPayload(agent classifier.Agent, history []ChatMessage, query, email, customerID, sessionID string) map[string]any {
	forwardedQuery := query
	forwardedHistory := make([]map[string]any, 0, len(history))

	for _, m := range history {
		content := m.Content
		if agent == classifier.AgentPayment && m.Role == "user" {
			content = prependEmail(content, email)
		}
		forwardedHistory = append(forwardedHistory, map[string]any{"role": m.Role, "content": content})
	}
	if agent == classifier.AgentPayment {
		forwardedQuery = prependEmail(query, email)
	}

	return map[string]any{
		"query":       forwardedQuery,
		"history":     forwardedHistory,
		"customer_id": customerID,
		"session_id":  sessionID,
	}
}

// dispatchResult is the subset of an A2A response the supervisor cares
// about for streaming and conversation-state purposes.
type dispatchResult struct {
	Content      string
	ToolsInvoked []string
	Endpoint     string
}

// dispatch sends the turn to the selected agent's capability over A2A and
// extracts the reply. The target endpoint used is recorded (from the
// client's discovery) so the conversation state's active_agent can store it
// for continuation.
func dispatch(ctx context.Context, client *a2a.Client, cfg Config, agent classifier.Agent, payload map[string]any) (dispatchResult, error) {
	capability, ok := cfg.AgentCapabilities[agent]
	if !ok {
		return dispatchResult{}, fmt.Errorf("supervisor: no capability configured for agent %q", agent)
	}

	resp, err := client.Send(ctx, a2a.SendParams{
		TargetCapability: capability,
		Intent:           "chat",
		Payload:          payload,
	})
	if err != nil {
		return dispatchResult{}, err
	}
	if resp.Status != a2a.StatusSuccess {
		msg := "the agent could not process this request"
		if resp.Error != nil && resp.Error.Message != "" {
			msg = resp.Error.Message
		}
		return dispatchResult{}, fmt.Errorf("supervisor: %s: %s", agent, msg)
	}

	result := dispatchResult{}
	if content, ok := resp.Response["content"].(string); ok {
		result.Content = content
	} else if message, ok := resp.Response["message"].(string); ok {
		result.Content = message
	}
	if tools, ok := resp.Response["tools_invoked"].([]any); ok {
		for _, t := range tools {
			if s, ok := t.(string); ok {
				result.ToolsInvoked = append(result.ToolsInvoked, s)
			}
		}
	}
	return result, nil
}
