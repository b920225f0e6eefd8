package llmprovider

import (
	"context"
	"fmt"
	"strings"

	"github.com/bankx/agent-fabric/pkg/llm"
	"github.com/bankx/agent-fabric/pkg/session"
)

// GRPCProvider adapts teacher's *llm.Client (a session-streaming gRPC client)
// to the single-shot Provider interface classification calls need: it
// builds an ephemeral session carrying just the system and user prompt,
// streams the response, and concatenates the non-thinking chunks.
type GRPCProvider struct {
	client *llm.Client
}

// NewGRPCProvider wraps client.
func NewGRPCProvider(client *llm.Client) *GRPCProvider {
	return &GRPCProvider{client: client}
}

// Complete implements Provider.
func (p *GRPCProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	sess := &session.Session{
		ID:     "classify-" + req.UserPrompt[:minInt(16, len(req.UserPrompt))],
		Status: session.StatusProcessing,
	}
	if req.SystemPrompt != "" {
		sess.AddMessage(session.RoleSystem, req.SystemPrompt)
	}
	sess.AddMessage(session.RoleUser, req.UserPrompt)

	chunks, errs := p.client.GenerateStream(ctx, sess)

	var b strings.Builder
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return b.String(), nil
			}
			if !chunk.IsThinking {
				b.WriteString(chunk.Content)
			}
		case err, ok := <-errs:
			if ok && err != nil {
				return "", fmt.Errorf("llmprovider: completion failed: %w", err)
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
