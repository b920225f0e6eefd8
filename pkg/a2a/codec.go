package a2a

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Codec encodes and decodes A2A envelopes to/from their wire JSON form.
type Codec struct{}

// NewCodec returns a ready-to-use Codec. It holds no state; a value type
// would do equally well, but a constructor keeps call sites consistent with
// the rest of the package.
func NewCodec() *Codec {
	return &Codec{}
}

// Encode serializes a Message to its wire JSON form.
func (c *Codec) Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Decode parses a wire-format A2A Message, enforcing the envelope contract:
// protocol_version major component must match, source/target/intent must be
// present, and unknown top-level fields inside metadata are preserved rather
// than rejected.
func (c *Codec) Decode(data []byte) (Message, error) {
	var wire struct {
		MessageID     string          `json:"message_id"`
		CorrelationID string          `json:"correlation_id"`
		ProtocolVer   string          `json:"protocol_version"`
		Timestamp     json.RawMessage `json:"timestamp"`
		Source        AgentIdentifier `json:"source"`
		Target        AgentIdentifier `json:"target"`
		Intent        string          `json:"intent"`
		Payload       map[string]any  `json:"payload"`
		Meta          map[string]any  `json:"metadata"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return Message{}, fmt.Errorf("a2a: malformed envelope: %w", err)
	}

	if wire.Source.AgentID == "" {
		return Message{}, fmt.Errorf("a2a: %w: source", ErrMissingField)
	}
	if wire.Target.AgentID == "" {
		return Message{}, fmt.Errorf("a2a: %w: target", ErrMissingField)
	}
	if wire.Intent == "" {
		return Message{}, fmt.Errorf("a2a: %w: intent", ErrMissingField)
	}
	if !sameMajorVersion(wire.ProtocolVer, ProtocolVersion) {
		return Message{}, fmt.Errorf("a2a: %w: got %q, want major %q", ErrVersionMismatch, wire.ProtocolVer, majorOf(ProtocolVersion))
	}

	msg := Message{
		MessageID:     wire.MessageID,
		CorrelationID: wire.CorrelationID,
		ProtocolVer:   wire.ProtocolVer,
		Source:        wire.Source,
		Target:        wire.Target,
		Intent:        wire.Intent,
		Payload:       wire.Payload,
	}
	if len(wire.Timestamp) > 0 {
		_ = json.Unmarshal(wire.Timestamp, &msg.Timestamp)
	}
	msg.Meta = metadataFromWire(wire.Meta)
	return msg, nil
}

// DecodeResponse parses a wire-format A2A Response.
func (c *Codec) DecodeResponse(data []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("a2a: malformed response: %w", err)
	}
	return resp, nil
}

// EncodeResponse serializes a Response to its wire JSON form.
func (c *Codec) EncodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

func metadataFromWire(raw map[string]any) Metadata {
	m := Metadata{Extra: map[string]any{}}
	for k, v := range raw {
		switch k {
		case "timeout_seconds":
			if f, ok := v.(float64); ok {
				m.TimeoutSeconds = int(f)
			}
		case "retry_count":
			if f, ok := v.(float64); ok {
				m.RetryCount = int(f)
			}
		case "trace_id":
			if s, ok := v.(string); ok {
				m.TraceID = s
			}
		case "span_id":
			if s, ok := v.(string); ok {
				m.SpanID = s
			}
		case "priority":
			if s, ok := v.(string); ok {
				m.Priority = Priority(s)
			}
		default:
			m.Extra[k] = v
		}
	}
	return m
}

func majorOf(version string) string {
	parts := strings.SplitN(version, ".", 2)
	return parts[0]
}

func sameMajorVersion(got, want string) bool {
	if got == "" {
		return false
	}
	return majorOf(got) == majorOf(want)
}
