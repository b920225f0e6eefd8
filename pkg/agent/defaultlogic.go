package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bankx/agent-fabric/pkg/llmprovider"
)

// DefaultBusinessLogic is the out-of-the-box BusinessLogic every cmd/agent
// process falls back to: a single deterministic LLM completion grounded on
// the specialist's own instructions, with at most one round of tool
// dispatch through Executor. Tool-server business logic is out of scope for
// this repo (it is the one piece agent_handler.py itself treats as
// pluggable), so this stays deliberately thin -- a real deployment can
// still replace it wholesale with a richer BusinessLogic, but the common
// case of "call one MCP tool, then answer" is handled here so that
// pkg/mcp.AuditedClient actually sits on a live dispatch path (spec.md
// §4.7, C7).
type DefaultBusinessLogic struct {
	Provider     llmprovider.Provider
	Instructions string // loaded from prompts/<agent>.md, mirroring agent_handler.py's initialize()

	// Executor is optional. When nil, Handle behaves exactly like a plain
	// completion with no tool awareness.
	Executor ToolExecutor
	Logger   *slog.Logger
}

// toolDecision is the shape the dispatch-decision completion is asked to
// return, mirroring pkg/classifier's JSON-mode decision idiom.
type toolDecision struct {
	UseTool   bool   `json:"use_tool"`
	ToolName  string `json:"tool_name"`
	Arguments string `json:"arguments"` // JSON-encoded arguments object, verbatim
}

const toolDecisionPromptTemplate = `You may call at most one tool to answer this query before giving your final answer.

Available tools:
%s

Respond only with JSON: {"use_tool": bool, "tool_name": string, "arguments": string (a JSON object encoded as a string, or "{}" if none)}. Set use_tool to false if no tool is needed.`

// Handle implements BusinessLogic. When Executor is configured and lists at
// least one tool, it first asks the model whether a tool call would help,
// executes at most one tool call, then folds the (masked) result into the
// final completion. Any failure in the dispatch step degrades to a plain
// completion -- the same fail-open posture pkg/classifier uses for its
// decision calls.
func (d *DefaultBusinessLogic) Handle(ctx context.Context, req Request) (Result, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conversation := renderConversation(req)
	toolResult, toolName := d.dispatchTool(ctx, logger, conversation)

	prompt := conversation
	var toolsInvoked []string
	if toolResult != "" {
		prompt = fmt.Sprintf("%s\n\ntool %q returned:\n%s\n\nUse this result to answer the user.", conversation, toolName, toolResult)
		toolsInvoked = []string{toolName}
	}

	content, err := d.Provider.Complete(ctx, llmprovider.CompletionRequest{
		SystemPrompt: d.Instructions,
		UserPrompt:   prompt,
		Temperature:  0,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Content: content, ToolsInvoked: toolsInvoked}, nil
}

// dispatchTool runs the single-step "decide then execute" round trip. It
// returns an empty toolResult when no tool is available, no tool is
// selected, or any step fails -- callers fall back to a plain completion.
func (d *DefaultBusinessLogic) dispatchTool(ctx context.Context, logger *slog.Logger, conversation string) (toolResult, toolName string) {
	if d.Executor == nil {
		return "", ""
	}

	tools, err := d.Executor.ListTools(ctx)
	if err != nil {
		logger.Warn("failed to list tools, skipping dispatch", "error", err)
		return "", ""
	}
	if len(tools) == 0 {
		return "", ""
	}

	decision, err := d.decideTool(ctx, tools, conversation)
	if err != nil {
		logger.Warn("tool dispatch decision failed, skipping dispatch", "error", err)
		return "", ""
	}
	if !decision.UseTool || decision.ToolName == "" {
		return "", ""
	}

	result, err := d.Executor.Execute(ctx, ToolCall{
		ID:        "dispatch-1",
		Name:      decision.ToolName,
		Arguments: decision.Arguments,
	})
	if err != nil {
		logger.Warn("tool execution failed, skipping dispatch", "tool", decision.ToolName, "error", err)
		return "", ""
	}
	if result.IsError {
		logger.Warn("tool returned an error, skipping dispatch", "tool", decision.ToolName, "content", result.Content)
		return "", ""
	}
	return result.Content, decision.ToolName
}

// decideTool runs the JSON-mode completion that picks (at most) one tool,
// mirroring pkg/classifier/cache_classifier.go's Complete -> extractJSON ->
// json.Unmarshal shape.
func (d *DefaultBusinessLogic) decideTool(ctx context.Context, tools []ToolDefinition, conversation string) (toolDecision, error) {
	var b strings.Builder
	for _, t := range tools {
		b.WriteString("- ")
		b.WriteString(t.Name)
		b.WriteString(": ")
		b.WriteString(t.Description)
		b.WriteString("\n")
	}

	raw, err := d.Provider.Complete(ctx, llmprovider.CompletionRequest{
		SystemPrompt: fmt.Sprintf(toolDecisionPromptTemplate, b.String()),
		UserPrompt:   conversation,
		Temperature:  0,
		JSONMode:     true,
	})
	if err != nil {
		return toolDecision{}, err
	}

	var decision toolDecision
	if err := json.Unmarshal([]byte(extractJSON(raw)), &decision); err != nil {
		return toolDecision{}, err
	}
	return decision, nil
}

// extractJSON trims any prose wrapping a JSON object, defending against
// providers that ignore JSON-mode framing. Mirrors
// pkg/classifier/cache_classifier.go's helper of the same name.
func extractJSON(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}

// renderConversation flattens history and the current query into a single
// prompt, since llmprovider.Provider is single-shot rather than
// multi-message (spec.md §4.9's classifier calls are the only other
// consumer of this interface and have the same shape).
func renderConversation(req Request) string {
	var b strings.Builder
	for _, m := range req.History {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("user: ")
	b.WriteString(req.Query)
	return b.String()
}
