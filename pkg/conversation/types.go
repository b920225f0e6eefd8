// Package conversation implements Conversation State (spec.md §4.11, C11):
// per-session turn history and the "active agent" continuation pointer the
// Supervisor Router uses to keep a follow-up "yes" on the same specialist.
package conversation

import "time"

// ActiveAgent is the specialist currently handling a session, set after a
// successful dispatch so a short affirmation can continue the conversation
// without re-routing (spec.md §4.10 step 2 "Continuation check").
type ActiveAgent struct {
	Name     string
	Endpoint string
}

// Message is one turn in a session's durable log.
type Message struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// Session is one (customer_id, session_id) conversation's in-memory state.
type Session struct {
	SessionID   string
	CustomerID  string
	ActiveAgent *ActiveAgent
	CreatedAt   time.Time
	EndedAt     *time.Time
}
