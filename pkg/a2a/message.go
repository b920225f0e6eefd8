// Package a2a implements the Agent-to-Agent message envelope, wire codec,
// per-target circuit breaker, and discovery-driven client used by the
// supervisor and specialist agents to invoke one another.
package a2a

import "time"

// ProtocolVersion is the major.minor version this package emits and accepts.
// Codec.Decode rejects any envelope whose major component differs.
const ProtocolVersion = "1.0"

// Priority is the delivery priority carried in a message's metadata.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Status is the closed set of terminal outcomes an A2A response may carry.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// AgentType is the closed set of roles an agent registration may declare.
type AgentType string

const (
	AgentTypeSupervisor AgentType = "supervisor"
	AgentTypeDomain     AgentType = "domain"
	AgentTypeKnowledge  AgentType = "knowledge"
	AgentTypeUtility    AgentType = "utility"
)

// AgentIdentifier names the sender or recipient of a message. AgentID is
// unique and opaque; Name is a human label and is not required to be unique.
type AgentIdentifier struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"agent_name"`
}

// Metadata carries per-message delivery and tracing hints. Unknown fields in
// the wire JSON are preserved via Extra so the codec stays forward-compatible.
type Metadata struct {
	TimeoutSeconds int            `json:"timeout_seconds,omitempty"`
	RetryCount     int            `json:"retry_count,omitempty"`
	TraceID        string         `json:"trace_id,omitempty"`
	SpanID         string         `json:"span_id,omitempty"`
	Priority       Priority       `json:"priority,omitempty"`
	Extra          map[string]any `json:"-"`
}

// ResponseMetadata carries response-side observability fields.
type ResponseMetadata struct {
	ProcessingTimeMs int64          `json:"processing_time_ms,omitempty"`
	Extra            map[string]any `json:"-"`
}

// Error is the structured error block an A2A response carries on failure.
type Error struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	Details          string `json:"details,omitempty"`
	RetryAfterSecond int    `json:"retry_after_seconds,omitempty"`
}

// Message is the A2A request envelope (spec.md §3 "A2A Message").
type Message struct {
	MessageID     string          `json:"message_id"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	ProtocolVer   string          `json:"protocol_version"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        AgentIdentifier `json:"source"`
	Target        AgentIdentifier `json:"target"`
	Intent        string          `json:"intent"`
	Payload       map[string]any  `json:"payload"`
	Meta          Metadata        `json:"metadata"`
}

// Response is the A2A response envelope (spec.md §3 "A2A Response").
type Response struct {
	MessageID     string           `json:"message_id"`
	CorrelationID string           `json:"correlation_id"`
	Status        Status           `json:"status"`
	Response      map[string]any   `json:"response,omitempty"`
	Error         *Error           `json:"error,omitempty"`
	Meta          ResponseMetadata `json:"metadata"`
}

// NewMessage builds a request envelope with a fresh MessageID and the
// package's ProtocolVersion stamped in. CorrelationID is left empty; callers
// that are themselves replying to something set it explicitly.
func NewMessage(source, target AgentIdentifier, intent string, payload map[string]any, meta Metadata) Message {
	return Message{
		MessageID:   NewMessageID(),
		ProtocolVer: ProtocolVersion,
		Timestamp:   time.Now().UTC(),
		Source:      source,
		Target:      target,
		Intent:      intent,
		Payload:     payload,
		Meta:        meta,
	}
}

// SuccessResponse builds a response with CorrelationID copied from the
// request's MessageID, per the envelope contract.
func SuccessResponse(req Message, response map[string]any, processingTimeMs int64) Response {
	return Response{
		MessageID:     NewMessageID(),
		CorrelationID: req.MessageID,
		Status:        StatusSuccess,
		Response:      response,
		Meta:          ResponseMetadata{ProcessingTimeMs: processingTimeMs},
	}
}

// ErrorResponse builds a response carrying a structured error block, with
// CorrelationID copied from the request's MessageID.
func ErrorResponse(req Message, status Status, errCode, errMsg string) Response {
	return Response{
		MessageID:     NewMessageID(),
		CorrelationID: req.MessageID,
		Status:        status,
		Error:         &Error{Code: errCode, Message: errMsg},
	}
}
