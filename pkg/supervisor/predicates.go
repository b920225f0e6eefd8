package supervisor

import (
	"regexp"
	"strings"
)

// continuationPattern matches the short affirmations spec.md §4.10 step 2
// names ("yes|confirm|proceed|ok|sure|create ticket|..."). Anchored to the
// whole (trimmed) message so that e.g. "yes please transfer the rest to
// Apichat" — a new instruction, not a bare affirmation — does not bypass
// classification.
var continuationPattern = regexp.MustCompile(`(?i)^(yes|yeah|yep|confirm|confirmed|proceed|ok|okay|sure|create ticket|create a ticket|go ahead)\.?!?$`)

// isContinuation reports whether message is a short affirmation (spec.md
// §4.10 step 2).
func isContinuation(message string) bool {
	return continuationPattern.MatchString(strings.TrimSpace(message))
}

// escalationPattern matches the escalation phrases spec.md §4.10 step 3
// names.
var escalationPattern = regexp.MustCompile(`(?i)speak to someone|talk to (a )?human|human agent|support ticket|escalate|complaint`)

func isEscalation(message string) bool {
	return escalationPattern.MatchString(message)
}

// financialAdvicePattern matches AI Money Coach-only territory (spec.md
// §4.10 step 5 "financial-advice keywords ⇒ force AI Money Coach path"),
// grounded on the same keyword set keyword.go scores AgentMoneyCoach with.
var financialAdvicePattern = regexp.MustCompile(`(?i)debt|saving|financial advice|budget|avalanche|snowball`)

// productInfoPattern matches Product Info-only territory (spec.md §4.10
// step 5 "product-info keywords ⇒ force Product Info path").
var productInfoPattern = regexp.MustCompile(`(?i)interest rate|what (products|cards|loans)|product (info|information)|apply for a (card|loan)`)

// writeIntentPattern matches mutation phrasing that must always skip the
// cache and go through live routing (spec.md §4.10 step 5 "write-intent
// keywords (pay, transfer, send money, create, add) ⇒ force live routing").
var writeIntentPattern = regexp.MustCompile(`(?i)\b(pay|transfer|send money|create|add|cancel|delete|update)\b`)

// skipCacheReason is the knowledge-only or write-intent classification of a
// query that bypasses the cache probe entirely (spec.md §4.10 step 5).
type skipCacheReason int

const (
	skipCacheNone skipCacheReason = iota
	skipCacheMoneyCoach
	skipCacheProductInfo
	skipCacheWriteIntent
)

func classifySkipCache(message string) skipCacheReason {
	switch {
	case writeIntentPattern.MatchString(message):
		return skipCacheWriteIntent
	case financialAdvicePattern.MatchString(message):
		return skipCacheMoneyCoach
	case productInfoPattern.MatchString(message):
		return skipCacheProductInfo
	default:
		return skipCacheNone
	}
}
