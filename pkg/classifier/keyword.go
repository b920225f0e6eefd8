package classifier

import (
	"regexp"
	"strings"
)

// keywordSets mirror original_source's cache_agent attribution heuristic
// (supervisor_agent_foundry.py::processMessageStream, the
// `if any(word in user_message.lower() for word in [...])` chain),
// generalized from an if/elif chain into per-agent keyword-count scoring
// (spec.md §4.10 step 6 "score each candidate agent by keyword counts over
// predefined keyword sets per agent").
var keywordSets = map[Agent][]string{
	AgentAccount:     {"balance", "account", "detail", "how much"},
	AgentPayment:     {"transfer", "payment", "pay", "send", "send money"},
	AgentTransaction: {"transaction", "history", "last", "spending"},
	AgentProductInfo: {"product", "service", "loan", "card", "interest rate", "fee"},
	AgentMoneyCoach:  {"debt", "saving", "financial", "budget", "avalanche", "snowball"},
}

// fuzzyTransferPattern catches common misspellings of "transfer" (spec.md
// §4.10 "trnasfer|trasfer|tranfer → +2 for Payment").
var fuzzyTransferPattern = regexp.MustCompile(`(?i)trnasfer|trasfer|tranfer`)

// amountToNamePattern catches "<currency-amount> to <name>" phrasing, a
// strong payment signal (spec.md §4.10 "currency-amount-followed-by-`to
// <name>` pattern → +3 for Payment").
var amountToNamePattern = regexp.MustCompile(`(?i)[\$£€]?\d[\d,]*(\.\d+)?\s+to\s+[a-z]`)

// MinConfidentScore is the score an agent must reach, as the unique
// argmax, for the keyword classifier to decide without consulting the LLM
// routing classifier (spec.md §4.10 step 6: "if max_score ≥ 2 and the
// argmax is unique, select it").
const MinConfidentScore = 2

// KeywordScore returns the keyword-count score for every candidate agent
// against query.
func KeywordScore(query string) map[Agent]int {
	lower := strings.ToLower(query)
	scores := make(map[Agent]int, len(keywordSets))

	for agent, words := range keywordSets {
		count := 0
		for _, word := range words {
			if strings.Contains(lower, word) {
				count++
			}
		}
		scores[agent] = count
	}

	if fuzzyTransferPattern.MatchString(lower) {
		scores[AgentPayment] += 2
	}
	if amountToNamePattern.MatchString(lower) {
		scores[AgentPayment] += 3
	}

	return scores
}

// KeywordClassify applies the hybrid scoring rule: if the top score is
// unique and at least MinConfidentScore, that agent is returned with
// confident=true; otherwise confident is false and the caller should fall
// back to RoutingClassifier (spec.md §4.10 step 6).
func KeywordClassify(query string) (agent Agent, confident bool) {
	scores := KeywordScore(query)

	var best Agent
	bestScore := -1
	tie := false
	for a, s := range scores {
		switch {
		case s > bestScore:
			best, bestScore, tie = a, s, false
		case s == bestScore:
			tie = true
		}
	}

	if bestScore >= MinConfidentScore && !tie {
		return best, true
	}
	return "", false
}
