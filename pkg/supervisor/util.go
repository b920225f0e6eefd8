package supervisor

import (
	"context"
	"strings"
)

// contextWithoutCancel detaches ctx's cancellation from its values, so work
// that must run to completion despite the caller disconnecting (A2A
// dispatch, conversation-state writes) is not aborted mid-flight (spec.md
// §4.10 "Cancellation: ... downstream A2A sends in flight proceed to
// completion").
func contextWithoutCancel(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// splitWords splits content into the chunks streamContent emits, one per
// word (spec.md §4.10 step 9 "streamed word-by-word or by chunk").
func splitWords(content string) []string {
	return strings.Fields(content)
}
