package classifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/bankx/agent-fabric/pkg/llmprovider"
)

// cacheSystemPrompt is grounded verbatim (content, not wording style) on
// original_source's supervisor_agent_foundry.py::_classify_query_with_llm
// system prompt: cache is read-only, write-intent queries must always
// return can_use_cache=false.
const cacheSystemPrompt = `You are a query classifier for a banking system. Determine if the user's query can be answered using cached data.

Cache is ONLY for READ operations. Never use cache for transfers, payments, money movements, or anything that creates, updates, or deletes account data — those must go to a live agent.

Cache CAN be used only for READ queries about: balance, account_details, transactions, beneficiaries, limits.

Respond only with JSON: {"can_use_cache": bool, "data_type": one of [balance, account_details, transactions, beneficiaries, limits] or null, "reasoning": string}.`

// CacheClassifier runs Classify-for-cache (spec.md §4.9).
type CacheClassifier struct {
	provider llmprovider.Provider
	logger   *slog.Logger
}

// NewCacheClassifier builds a CacheClassifier over provider.
func NewCacheClassifier(provider llmprovider.Provider) *CacheClassifier {
	return &CacheClassifier{provider: provider, logger: slog.Default().With("component", "cache_classifier")}
}

// Classify runs the cache classification call. On any failure it degrades
// safely to can_use_cache=false (spec.md §4.9 "cache-classifier failure ⇒
// can_use_cache=false").
func (c *CacheClassifier) Classify(ctx context.Context, query string) CacheClassification {
	if c.provider == nil {
		return CacheClassification{CanUseCache: false, Reasoning: "LLM provider unavailable"}
	}

	raw, err := c.provider.Complete(ctx, llmprovider.CompletionRequest{
		SystemPrompt: cacheSystemPrompt,
		UserPrompt:   `Current user query: "` + query + `"\n\nCan this query be answered using cached data? Which type?`,
		Temperature:  0,
		JSONMode:     true,
	})
	if err != nil {
		c.logger.Error("cache classification call failed", "error", err)
		return CacheClassification{CanUseCache: false, Reasoning: "classification error: " + err.Error()}
	}

	var result CacheClassification
	if err := json.Unmarshal([]byte(extractJSON(raw)), &result); err != nil {
		c.logger.Error("cache classification response was not valid JSON", "error", err, "raw", raw)
		return CacheClassification{CanUseCache: false, Reasoning: "malformed classifier response"}
	}
	return result
}

// extractJSON trims any prose wrapping a JSON object, defending against
// providers that ignore JSON-mode framing.
func extractJSON(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}
