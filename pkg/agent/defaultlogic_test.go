package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankx/agent-fabric/pkg/llmprovider"
)

type stubProvider struct {
	lastRequest llmprovider.CompletionRequest
	response    string
	err         error
}

func (s *stubProvider) Complete(ctx context.Context, req llmprovider.CompletionRequest) (string, error) {
	s.lastRequest = req
	return s.response, s.err
}

func TestDefaultBusinessLogic_RendersHistoryAndCallsProvider(t *testing.T) {
	provider := &stubProvider{response: "your balance is $42"}
	logic := &DefaultBusinessLogic{Provider: provider, Instructions: "You are the Account Agent."}

	result, err := logic.Handle(context.Background(), Request{
		Query:   "what is my balance",
		History: []HistoryMessage{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "your balance is $42", result.Content)
	assert.Equal(t, "You are the Account Agent.", provider.lastRequest.SystemPrompt)
	assert.Contains(t, provider.lastRequest.UserPrompt, "user: hi")
	assert.Contains(t, provider.lastRequest.UserPrompt, "assistant: hello")
	assert.Contains(t, provider.lastRequest.UserPrompt, "user: what is my balance")
	assert.Equal(t, float32(0), provider.lastRequest.Temperature)
}

func TestDefaultBusinessLogic_PropagatesProviderError(t *testing.T) {
	logic := &DefaultBusinessLogic{Provider: &stubProvider{err: assert.AnError}}
	_, err := logic.Handle(context.Background(), Request{Query: "hi"})
	require.Error(t, err)
}

// sequencedProvider returns one response per call, in order, routing the
// JSON-mode dispatch-decision call and the final completion call to
// different canned responses.
type sequencedProvider struct {
	responses []string
	requests  []llmprovider.CompletionRequest
	err       error
}

func (s *sequencedProvider) Complete(ctx context.Context, req llmprovider.CompletionRequest) (string, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	idx := len(s.requests) - 1
	if idx >= len(s.responses) {
		return "", nil
	}
	return s.responses[idx], nil
}

type stubToolExecutor struct {
	tools      []ToolDefinition
	result     *ToolResult
	execErr    error
	lastCall   ToolCall
	listErr    error
	closeCalls int
}

func (s *stubToolExecutor) ListTools(_ context.Context) ([]ToolDefinition, error) {
	return s.tools, s.listErr
}

func (s *stubToolExecutor) Execute(_ context.Context, call ToolCall) (*ToolResult, error) {
	s.lastCall = call
	if s.execErr != nil {
		return nil, s.execErr
	}
	return s.result, nil
}

func (s *stubToolExecutor) Close() error { s.closeCalls++; return nil }

func TestDefaultBusinessLogic_DispatchesToolWhenSelected(t *testing.T) {
	provider := &sequencedProvider{responses: []string{
		`{"use_tool": true, "tool_name": "accounts.get_balance", "arguments": "{\"account_id\":\"123\"}"}`,
		"your balance is $42",
	}}
	executor := &stubToolExecutor{
		tools:  []ToolDefinition{{Name: "accounts.get_balance", Description: "Look up an account balance"}},
		result: &ToolResult{CallID: "dispatch-1", Name: "accounts.get_balance", Content: "$42"},
	}
	logic := &DefaultBusinessLogic{Provider: provider, Instructions: "You are the Account Agent.", Executor: executor}

	result, err := logic.Handle(context.Background(), Request{Query: "what is my balance"})

	require.NoError(t, err)
	assert.Equal(t, "your balance is $42", result.Content)
	assert.Equal(t, []string{"accounts.get_balance"}, result.ToolsInvoked)
	assert.Equal(t, "accounts.get_balance", executor.lastCall.Name)
	require.Len(t, provider.requests, 2)
	assert.True(t, provider.requests[0].JSONMode)
	assert.Contains(t, provider.requests[1].UserPrompt, "$42")
}

func TestDefaultBusinessLogic_SkipsDispatchWhenNoToolSelected(t *testing.T) {
	provider := &sequencedProvider{responses: []string{
		`{"use_tool": false, "tool_name": "", "arguments": ""}`,
		"here's general product info",
	}}
	executor := &stubToolExecutor{
		tools: []ToolDefinition{{Name: "products.list", Description: "List banking products"}},
	}
	logic := &DefaultBusinessLogic{Provider: provider, Executor: executor}

	result, err := logic.Handle(context.Background(), Request{Query: "tell me about savings accounts"})

	require.NoError(t, err)
	assert.Equal(t, "here's general product info", result.Content)
	assert.Empty(t, result.ToolsInvoked)
	assert.Equal(t, ToolCall{}, executor.lastCall, "tool should never have been executed")
}

func TestDefaultBusinessLogic_DegradesOnToolExecutionError(t *testing.T) {
	provider := &sequencedProvider{responses: []string{
		`{"use_tool": true, "tool_name": "accounts.get_balance", "arguments": "{}"}`,
		"sorry, I couldn't retrieve that",
	}}
	executor := &stubToolExecutor{
		tools:   []ToolDefinition{{Name: "accounts.get_balance", Description: "Look up an account balance"}},
		execErr: assert.AnError,
	}
	logic := &DefaultBusinessLogic{Provider: provider, Executor: executor}

	result, err := logic.Handle(context.Background(), Request{Query: "what is my balance"})

	require.NoError(t, err)
	assert.Equal(t, "sorry, I couldn't retrieve that", result.Content)
	assert.Empty(t, result.ToolsInvoked, "a failed tool call should not be reported as invoked")
}

func TestDefaultBusinessLogic_SkipsDispatchWhenNoToolsAvailable(t *testing.T) {
	provider := &sequencedProvider{responses: []string{"plain answer"}}
	executor := &stubToolExecutor{}
	logic := &DefaultBusinessLogic{Provider: provider, Executor: executor}

	result, err := logic.Handle(context.Background(), Request{Query: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "plain answer", result.Content)
	require.Len(t, provider.requests, 1, "should skip straight to the final completion with no tools configured")
}
