package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bankx/agent-fabric/pkg/audit"
)

// AuditedClient wraps a Client with compliance audit logging for every
// CallTool invocation. Grounded on original_source's AuditedMCPTool (a
// Python subclass overriding call_tool); here expressed as a Go decorator
// holding the wrapped *Client, since Go has no implementation inheritance.
type AuditedClient struct {
	*Client
	wrapper *audit.Wrapper
}

// NewAuditedClient wraps client so every CallTool call emits an audit.Record
// to sink (spec.md §4.7, C7).
func NewAuditedClient(client *Client, sink audit.Sink, cfg audit.Config) *AuditedClient {
	return &AuditedClient{
		Client:  client,
		wrapper: audit.NewWrapper(auditToolCallerFunc(client.CallTool), sink, cfg),
	}
}

// CallTool overrides Client.CallTool to route through the audit wrapper.
func (a *AuditedClient) CallTool(ctx context.Context, serverID, toolName string, args map[string]any) (*mcpsdk.CallToolResult, error) {
	result, err := a.wrapper.CallTool(ctx, serverID, toolName, args)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result.(*mcpsdk.CallToolResult), nil
}

// auditToolCallerFunc adapts Client.CallTool's concrete return type to
// audit.ToolCaller's any-typed return, so pkg/audit stays free of a
// dependency on the MCP SDK's result types.
type auditToolCallerFunc func(ctx context.Context, serverID, toolName string, args map[string]any) (*mcpsdk.CallToolResult, error)

func (f auditToolCallerFunc) CallTool(ctx context.Context, serverID, toolName string, args map[string]any) (any, error) {
	result, err := f(ctx, serverID, toolName, args)
	if err != nil {
		return nil, err
	}
	return result, nil
}
