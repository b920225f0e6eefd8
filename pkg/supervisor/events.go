// Package supervisor implements the Supervisor Router (spec.md §4.10, C10):
// the central per-turn state machine that classifies a user query, serves it
// from cache when possible, and otherwise dispatches it to exactly one
// specialist agent over A2A, streaming progress events throughout.
package supervisor

import "time"

// Step is one of the fixed, ordered progress-event names a turn may emit
// (spec.md §6 "Step names (ordered)"). The sequence a turn actually emits is
// always a prefix-compatible subsequence of this order (spec.md §8).
type Step string

const (
	StepAnalyzing       Step = "analyzing"
	StepCheckingCache   Step = "checking_cache"
	StepContinuation    Step = "continuation"
	StepRouting         Step = "routing"
	StepAgentSelected   Step = "agent_selected"
	StepMCPToolsInvoked Step = "mcp_tools_invoked"
	StepGatheringData   Step = "gathering_data"
	StepGenerating      Step = "generating"
)

// StepStatus is the closed set of per-step statuses (spec.md §6).
type StepStatus string

const (
	StatusInProgress StepStatus = "in_progress"
	StatusCompleted  StepStatus = "completed"
)

// EventKind discriminates the three SSE payload shapes spec.md §6 defines.
type EventKind string

const (
	EventKindThinking EventKind = "thinking"
	EventKindDelta    EventKind = "delta"
	EventKindFinal    EventKind = "final"
)

// Event is one item on a turn's event stream. Exactly one of the payload
// groups (Thinking / Delta / Final) is populated, selected by Kind; the HTTP
// edge (pkg/supervisorapi, not built here) renders each into the matching
// SSE `data:` line.
type Event struct {
	Kind EventKind

	// Thinking fields (EventKindThinking).
	Step       Step
	Status     StepStatus
	Message    string
	AgentName  string
	Timestamp  time.Time
	DurationMS int64

	// Delta fields (EventKindDelta): one streamed content chunk.
	Content string

	// Final fields (EventKindFinal): the terminal marker.
	FullContent string
	SessionID   string
}

func thinkingEvent(step Step, status StepStatus, message, agentName string) Event {
	return Event{
		Kind:      EventKindThinking,
		Step:      step,
		Status:    status,
		Message:   message,
		AgentName: agentName,
		Timestamp: time.Now().UTC(),
	}
}

func deltaEvent(content string) Event {
	return Event{Kind: EventKindDelta, Content: content}
}

func finalEvent(sessionID, fullContent string) Event {
	return Event{Kind: EventKindFinal, SessionID: sessionID, FullContent: fullContent}
}
