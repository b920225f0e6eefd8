package supervisor

import (
	"context"
	"fmt"

	"github.com/bankx/agent-fabric/pkg/classifier"
	"github.com/bankx/agent-fabric/pkg/llmprovider"
)

// dataTypeFormatPrompts are the data-type-specific system prompts spec.md
// §4.10 step 4 calls for ("format with an LLM call using a data-type-specific
// system prompt"), grounded on original_source's per-intent cache-agent
// response templates (supervisor_agent_foundry.py's cache_agent branch).
var dataTypeFormatPrompts = map[classifier.DataType]string{
	classifier.DataTypeBalance:        "You are a banking assistant. Given the user's cached balance data as JSON, answer their question in one short, friendly sentence stating the balance with its currency, formatted with thousands separators.",
	classifier.DataTypeAccountDetails: "You are a banking assistant. Given the user's cached account details as JSON, answer their question in one short, friendly sentence.",
	classifier.DataTypeTransactions:   "You are a banking assistant. Given the user's cached recent-transaction data as JSON, summarize the relevant transactions in a short, friendly reply.",
	classifier.DataTypeBeneficiaries:  "You are a banking assistant. Given the user's cached beneficiary data as JSON, answer their question in a short, friendly reply.",
	classifier.DataTypeLimits:         "You are a banking assistant. Given the user's cached transaction-limit data as JSON, answer their question in a short, friendly reply.",
}

// formatCacheHit turns a cached data_type's JSON value into natural-language
// text via a single LLM call (spec.md §4.10 step 4). If no provider is
// configured, it falls back to a plain textual rendering rather than
// failing the turn — a cache hit with degraded formatting is still
// preferable to a spurious live dispatch.
func formatCacheHit(ctx context.Context, provider llmprovider.Provider, dataType classifier.DataType, query string, value any) (string, error) {
	if provider == nil {
		return fmt.Sprintf("%v", value), nil
	}

	prompt, ok := dataTypeFormatPrompts[dataType]
	if !ok {
		prompt = dataTypeFormatPrompts[classifier.DataTypeAccountDetails]
	}

	response, err := provider.Complete(ctx, llmprovider.CompletionRequest{
		SystemPrompt: prompt,
		UserPrompt:   fmt.Sprintf("User question: %q\n\nCached data: %v", query, value),
		Temperature:  0,
	})
	if err != nil {
		return "", err
	}
	return response, nil
}
