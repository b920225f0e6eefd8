package agent

import (
	"context"

	"github.com/bankx/agent-fabric/pkg/slack"
)

// EscalationBusinessLogic wraps DefaultBusinessLogic with the one piece of
// domain behavior the Escalation Agent adds over a generic specialist:
// filing a Slack ticket notification for every turn it handles (spec.md §8
// scenario 4; SPEC_FULL.md "Escalation ticket notification"). Notifier may
// be nil (slack.enabled=false), in which case Handle behaves exactly like
// DefaultBusinessLogic.
type EscalationBusinessLogic struct {
	DefaultBusinessLogic
	Notifier *slack.Service
}

// Handle implements BusinessLogic.
func (e *EscalationBusinessLogic) Handle(ctx context.Context, req Request) (Result, error) {
	result, err := e.DefaultBusinessLogic.Handle(ctx, req)
	if err != nil {
		return Result{}, err
	}

	e.Notifier.NotifyTicket(ctx, slack.TicketInput{
		SessionID:  req.SessionID,
		CustomerID: req.CustomerID,
		Query:      req.Query,
		Reason:     "escalation_agent_dispatch",
		Response:   result.Content,
	})

	return result, nil
}
