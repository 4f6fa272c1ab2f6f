// Package completion defines the Provider interface for text-completion
// backends.
//
// A completion provider wraps a remote LLM service (e.g., OpenAI GPT-4o or
// Google Gemini) and exposes one uniform operation: map a fully rendered
// prompt to generated text. Providers are deliberately narrow — the gateway
// needs nothing beyond a single attemptable completion, so provider-specific
// request envelopes and response shapes stay inside each implementation and
// only the normalized [Response] crosses the package boundary.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly.
package completion

import "context"

// Response is the normalized result of one completion call. It is extracted
// from whichever provider answered and discarded after formatting; nothing in
// it is persisted.
type Response struct {
	// Text is the raw generated reply, before any display formatting.
	Text string
}

// Request carries the single rendered prompt for one completion call.
// The prompt already contains the persona preamble, the serialized
// conversation history, and the new user utterance.
type Request struct {
	// Prompt is the complete prompt text, sent as the sole message.
	Prompt string
}

// Provider is the abstraction over any completion backend.
//
// Complete sends the prompt and waits for the full reply. It returns a
// non-nil error on network failure, a non-success status, a malformed
// response payload, or a missing credential — all of which the gateway
// treats identically as "this provider failed, try the next one".
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Name returns a short stable identifier for logs and metrics
	// (e.g. "openai", "gemini").
	Name() string
}
