// Package llmprovider abstracts the single-shot, deterministic completion
// calls the classifier and cache formatter need (spec.md §4.9) behind a
// narrow interface, independent of the teacher's session-streaming gRPC
// transport (pkg/llm).
package llmprovider

import "context"

// CompletionRequest is one request/response LLM call.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	// Temperature is passed through to the provider; classifier calls
	// always use 0 (spec.md §4.9 "both with temperature=0").
	Temperature float32
	// JSONMode requests a structured JSON response where the provider
	// supports it (spec.md §4.9 "JSON response mode where available").
	JSONMode bool
}

// Provider performs one completion call and returns the raw text response.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
