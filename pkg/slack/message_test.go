package slack

import (
	"strings"
	"testing"
	"unicode/utf8"

	goslack "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTicketMessage_WithQueryAndResponse(t *testing.T) {
	input := TicketInput{
		SessionID:  "sess-1",
		CustomerID: "cust-42",
		Query:      "I was charged twice for the same transfer",
		Reason:     "escalation_phrase",
		Response:   "A ticket has been filed; support will follow up within 24 hours.",
	}
	blocks := BuildTicketMessage(input, "https://dash.example.com")

	require.Len(t, blocks, 3)

	header := blocks[0].(*goslack.SectionBlock)
	assert.Contains(t, header.Text.Text, ":rotating_light:")
	assert.Contains(t, header.Text.Text, "escalation_phrase")

	queryBlock := blocks[1].(*goslack.SectionBlock)
	assert.Contains(t, queryBlock.Text.Text, "cust-42")
	assert.Contains(t, queryBlock.Text.Text, "charged twice")

	action := blocks[2].(*goslack.ActionBlock)
	require.Len(t, action.Elements.ElementSet, 1)
	btn, ok := action.Elements.ElementSet[0].(*goslack.ButtonBlockElement)
	require.True(t, ok)
	assert.Equal(t, "View Conversation", btn.Text.Text)
	assert.Contains(t, btn.URL, "https://dash.example.com/conversations/sess-1")
}

func TestBuildTicketMessage_WithoutQueryOrResponse(t *testing.T) {
	input := TicketInput{
		SessionID: "sess-2",
		Reason:    "continuation",
	}
	blocks := BuildTicketMessage(input, "https://dash.example.com")

	require.Len(t, blocks, 2)
	header := blocks[0].(*goslack.SectionBlock)
	assert.Contains(t, header.Text.Text, "continuation")

	action := blocks[1].(*goslack.ActionBlock)
	require.Len(t, action.Elements.ElementSet, 1)
}

func TestBuildTicketMessage_ResponseIncludedWhenPresent(t *testing.T) {
	input := TicketInput{
		SessionID: "sess-3",
		Reason:    "dispatch_failure",
		Response:  "We were unable to process that request automatically.",
	}
	blocks := BuildTicketMessage(input, "https://dash.example.com")

	require.Len(t, blocks, 2)
	content := blocks[1].(*goslack.SectionBlock)
	assert.Contains(t, content.Text.Text, "unable to process")
}

func TestTruncateForSlack(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		assert.Equal(t, "hello", truncateForSlack("hello"))
	})

	t.Run("exact limit unchanged", func(t *testing.T) {
		text := strings.Repeat("a", maxBlockTextLength)
		assert.Equal(t, text, truncateForSlack(text))
	})

	t.Run("over limit truncated", func(t *testing.T) {
		text := strings.Repeat("a", maxBlockTextLength+100)
		result := truncateForSlack(text)
		assert.True(t, len(result) < len(text))
		assert.Contains(t, result, "truncated")
	})

	t.Run("multi-byte runes not split", func(t *testing.T) {
		text := strings.Repeat("a", maxBlockTextLength-4) + strings.Repeat("🔥", 10)
		result := truncateForSlack(text)
		assert.True(t, utf8.ValidString(result), "result should be valid UTF-8")
	})
}
