package a2a

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_EncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec()
	source := AgentIdentifier{AgentID: "supervisor-1", Name: "Supervisor"}
	target := AgentIdentifier{AgentID: "account-1", Name: "Account Agent"}
	msg := NewMessage(source, target, "account.balance", map[string]any{"customer_id": "cust-1"}, Metadata{TimeoutSeconds: 30})
	msg.CorrelationID = "corr-1"

	data, err := codec.Encode(msg)
	require.NoError(t, err)

	decoded, err := codec.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, msg.MessageID, decoded.MessageID)
	assert.Equal(t, msg.CorrelationID, decoded.CorrelationID, "correlation_id must round-trip")
	assert.Equal(t, msg.Source, decoded.Source)
	assert.Equal(t, msg.Target, decoded.Target)
	assert.Equal(t, msg.Intent, decoded.Intent)
	assert.Equal(t, 30, decoded.Meta.TimeoutSeconds)
}

func TestCodec_RejectsMissingFields(t *testing.T) {
	codec := NewCodec()

	_, err := codec.Decode([]byte(`{"protocol_version":"1.0","intent":"x","target":{"agent_id":"a"}}`))
	require.ErrorIs(t, err, ErrMissingField)

	_, err = codec.Decode([]byte(`{"protocol_version":"1.0","source":{"agent_id":"a"},"target":{"agent_id":"b"}}`))
	require.ErrorIs(t, err, ErrMissingField)
}

func TestCodec_RejectsMajorVersionMismatch(t *testing.T) {
	codec := NewCodec()
	_, err := codec.Decode([]byte(`{"protocol_version":"2.0","source":{"agent_id":"a"},"target":{"agent_id":"b"},"intent":"x"}`))
	require.ErrorIs(t, err, ErrVersionMismatch)
}

func TestCodec_ToleratesUnknownFields(t *testing.T) {
	codec := NewCodec()
	raw := []byte(`{
		"protocol_version":"1.0",
		"source":{"agent_id":"a","agent_name":"A"},
		"target":{"agent_id":"b","agent_name":"B"},
		"intent":"x",
		"payload":{"known":1,"future_field":"ignored-by-old-clients"},
		"metadata":{"timeout_seconds":5,"brand_new_hint":"keep-me"}
	}`)

	msg, err := codec.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "ignored-by-old-clients", msg.Payload["future_field"])
	assert.Equal(t, "keep-me", msg.Meta.Extra["brand_new_hint"])
}
