// Package mock provides a test double for the completion.Provider interface.
//
// Use Provider in unit tests to feed controlled replies and failures without
// a live backend, and to assert on the exact prompt each attempt received.
//
// Example:
//
//	p := &mock.Provider{Response: &completion.Response{Text: "Hello!"}}
//	resp, err := p.Complete(ctx, completion.Request{Prompt: "hi"})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/docbuddy/pkg/provider/completion"
)

// Call records a single invocation of Complete.
type Call struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the Request passed to Complete.
	Req completion.Request
}

// Provider is a mock implementation of completion.Provider.
// Zero values cause Complete to return (nil, nil); set Err to inject a failure.
type Provider struct {
	mu sync.Mutex

	// ProviderName is returned by Name. Defaults to "mock" when empty.
	ProviderName string

	// Response is returned by Complete when Err is nil.
	Response *completion.Response

	// Err, if non-nil, is returned as the error from Complete.
	Err error

	// CompleteFunc, if non-nil, overrides Response/Err entirely.
	CompleteFunc func(ctx context.Context, req completion.Request) (*completion.Response, error)

	// Calls records every Complete invocation in order.
	Calls []Call
}

// Compile-time assertion that Provider satisfies completion.Provider.
var _ completion.Provider = (*Provider)(nil)

// Name implements completion.Provider.
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Complete implements completion.Provider.
func (p *Provider) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, Call{Ctx: ctx, Req: req})
	fn := p.CompleteFunc
	resp, err := p.Response, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// CallCount returns the number of Complete invocations so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
