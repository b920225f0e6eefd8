package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager is the in-memory Conversation State store (C11), backed by a
// TurnLogger for the durable Q&A trail. Grounded on teacher
// pkg/session.Manager's map-plus-RWMutex shape, extended with a
// customer_id secondary index for cross-session continuation lookups
// (spec.md §4.11 "get_active_agent(customer_id) ... fallback lookup by
// customer").
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session // session_id -> session
	byCustomer map[string]string   // customer_id -> most recent session_id with an active agent

	logger TurnLogger
}

// NewManager builds a Manager. logger may be NoopTurnLogger{} to disable
// durable persistence.
func NewManager(logger TurnLogger) *Manager {
	if logger == nil {
		logger = NoopTurnLogger{}
	}
	return &Manager{
		sessions:   make(map[string]*Session),
		byCustomer: make(map[string]string),
		logger:     logger,
	}
}

// CreateSession mints a fresh session_id for customerID (spec.md §4.11
// "create_session").
func (m *Manager) CreateSession(customerID string) string {
	sessionID := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = &Session{
		SessionID:  sessionID,
		CustomerID: customerID,
		CreatedAt:  time.Now().UTC(),
	}
	return sessionID
}

// EnsureSession returns sessionID unchanged if it already exists; if
// sessionID is empty, it mints a fresh one (CreateSession); if sessionID is
// non-empty but unknown (e.g. a client-supplied thread ID from a previous
// process), it registers a new in-memory Session under that ID rather than
// rejecting it. Grounds spec.md §4.10 step 1 ("If no session_id was
// supplied, mint one and create a conversation record").
func (m *Manager) EnsureSession(sessionID, customerID string) string {
	if sessionID == "" {
		return m.CreateSession(customerID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		m.sessions[sessionID] = &Session{
			SessionID:  sessionID,
			CustomerID: customerID,
			CreatedAt:  time.Now().UTC(),
		}
	}
	return sessionID
}

// SetActiveAgent records the specialist currently handling sessionID
// (spec.md §4.11 "set_active_agent").
func (m *Manager) SetActiveAgent(sessionID, name, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("conversation: unknown session %q", sessionID)
	}
	sess.ActiveAgent = &ActiveAgent{Name: name, Endpoint: endpoint}
	m.byCustomer[sess.CustomerID] = sessionID
	return nil
}

// GetActiveAgent resolves the active agent for customerID, falling back
// across sessions to the customer's most recent one (spec.md §4.11
// "fallback lookup by customer for cross-session continuation"). Returns
// ok=false if no session for this customer has an active agent.
func (m *Manager) GetActiveAgent(customerID string) (agent ActiveAgent, sessionID string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sid, found := m.byCustomer[customerID]
	if !found {
		return ActiveAgent{}, "", false
	}
	sess, found := m.sessions[sid]
	if !found || sess.ActiveAgent == nil {
		return ActiveAgent{}, "", false
	}
	return *sess.ActiveAgent, sid, true
}

// ActiveAgentForSession returns sessionID's own active agent, without the
// cross-session customer fallback (used by the continuation check, which
// operates on a known session).
func (m *Manager) ActiveAgentForSession(sessionID string) (ActiveAgent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	if !ok || sess.ActiveAgent == nil {
		return ActiveAgent{}, false
	}
	return *sess.ActiveAgent, true
}

// AddMessage appends role/content to sessionID's durable turn log (spec.md
// §4.11 "add_message"). A logging failure is returned but never blocks the
// caller from continuing to serve the user — callers should log and
// proceed on error.
func (m *Manager) AddMessage(ctx context.Context, sessionID, role, content string) error {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("conversation: unknown session %q", sessionID)
	}

	return m.logger.LogTurn(ctx, sessionID, sess.CustomerID, []Message{{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}})
}

// EndSession marks sessionID ended and clears it from the customer's
// active-agent index (spec.md §4.11 "end_session").
func (m *Manager) EndSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("conversation: unknown session %q", sessionID)
	}
	now := time.Now().UTC()
	sess.EndedAt = &now
	if m.byCustomer[sess.CustomerID] == sessionID {
		delete(m.byCustomer, sess.CustomerID)
	}
	return nil
}
