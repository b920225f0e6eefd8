package slack

import (
	"fmt"

	goslack "github.com/slack-go/slack"
)

const maxBlockTextLength = 2900

func conversationURL(sessionID, dashboardURL string) string {
	return fmt.Sprintf("%s/conversations/%s", dashboardURL, sessionID)
}

// BuildTicketMessage creates Block Kit blocks for an escalation ticket
// notification (spec.md §8 scenario 4).
func BuildTicketMessage(input TicketInput, dashboardURL string) []goslack.Block {
	headerText := fmt.Sprintf(":rotating_light: *Support ticket filed* (`%s`)", input.Reason)

	var blocks []goslack.Block
	blocks = append(blocks, goslack.NewSectionBlock(
		goslack.NewTextBlockObject(goslack.MarkdownType, headerText, false, false),
		nil, nil,
	))

	if input.Query != "" {
		queryText := fmt.Sprintf("*Customer:* %s\n*Query:*\n%s", input.CustomerID, truncateForSlack(input.Query))
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, queryText, false, false),
			nil, nil,
		))
	}

	if input.Response != "" {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, truncateForSlack(input.Response), false, false),
			nil, nil,
		))
	}

	url := conversationURL(input.SessionID, dashboardURL)
	btn := goslack.NewButtonBlockElement("", "", goslack.NewTextBlockObject(goslack.PlainTextType, "View Conversation", false, false))
	btn.URL = url
	blocks = append(blocks, goslack.NewActionBlock("", btn))

	return blocks
}

func truncateForSlack(text string) string {
	if len(text) <= maxBlockTextLength {
		return text
	}
	return text[:maxBlockTextLength] + "\n\n_... (truncated — view full conversation in dashboard)_"
}
