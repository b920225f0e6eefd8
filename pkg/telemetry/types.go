// Package telemetry implements the Telemetry Sink (spec.md §4.12, C12):
// structured, pluggable observability events, one shape per category,
// grounded on original_source's BankingTelemetry (the OpenTelemetry
// span/metric machinery it layers on top is out of scope here — see
// DESIGN.md — but its local NDJSON fallback is exactly what this package
// implements).
package telemetry

import "time"

// Category is the closed set of telemetry event kinds (spec.md §4.12).
type Category string

const (
	CategoryUserMessage     Category = "user_message"
	CategoryAgentDecision   Category = "agent_decision"
	CategoryTriageRuleMatch Category = "triage_rule_match"
	CategoryToolInvocation  Category = "tool_invocation"
	CategoryError           Category = "error"
	CategoryAudit           Category = "audit"
)

// UserMessageEvent is emitted once per turn (spec.md §4.12).
type UserMessageEvent struct {
	Timestamp       time.Time `json:"ts"`
	SessionID       string    `json:"session_id"`
	CustomerID      string    `json:"customer_id"`
	Query           string    `json:"query"`
	ResponsePreview string    `json:"response_preview"`
	DurationSeconds float64   `json:"duration_s"`
}

// AgentDecisionEvent records why a turn was routed the way it was.
type AgentDecisionEvent struct {
	Timestamp       time.Time      `json:"ts"`
	Agent           string         `json:"agent"`
	SessionID       string         `json:"session_id"`
	UserQuery       string         `json:"user_query"`
	TriageRule      string         `json:"triage_rule"`
	Reasoning       string         `json:"reasoning"`
	ToolsConsidered []string       `json:"tools_considered"`
	ToolsInvoked    []string       `json:"tools_invoked"`
	ResultStatus    string         `json:"result_status"`
	DurationSeconds float64        `json:"duration_s"`
	Context         map[string]any `json:"context,omitempty"`
}

// TriageRuleMatchEvent records one keyword/pattern rule firing during
// classification (spec.md §4.10 step 6).
type TriageRuleMatchEvent struct {
	Timestamp   time.Time `json:"ts"`
	RuleName    string    `json:"rule_name"`
	TargetAgent string    `json:"target_agent"`
	Confidence  float64   `json:"confidence"`
	Query       string    `json:"query"`
}

// ToolInvocationEvent is emitted per tool call, independent of (but
// overlapping in content with) the MCP Audit Wrapper's own Record.
type ToolInvocationEvent struct {
	Timestamp     time.Time      `json:"ts"`
	Tool          string         `json:"tool"`
	Agent         string         `json:"agent"`
	Params        map[string]any `json:"params"`
	ResultSummary string         `json:"result_summary"`
}

// ErrorEvent is emitted for any error surfaced per spec.md §7's error kinds.
type ErrorEvent struct {
	Timestamp time.Time      `json:"ts"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}
