// Package gateway sends prompts to an ordered chain of completion providers.
//
// The chain is tried in registration order until the first success: the
// primary provider first, then each fallback with the identical prompt.
// Every provider is attempted at most once per call — there is no retry, no
// backoff, and no cross-call suppression, so a provider that failed on one
// turn is attempted again on the next. Different vendors have incompatible
// request/response envelopes and divergent availability; the ordered chain
// keeps the conversation uninterrupted when one vendor is rate-limited or
// misconfigured without growing into a general plugin system.
//
// The caller is always given a definite outcome: the first successful reply,
// or [ErrAllFailed] wrapping the last provider error.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/docbuddy/internal/observe"
	"github.com/MrWong99/docbuddy/pkg/provider/completion"
)

// ErrAllFailed is returned when every provider in the chain fails.
var ErrAllFailed = errors.New("all providers failed")

// ErrNoProviders is returned by Complete when the chain is empty. This can
// only happen with a configuration that names no provider at all; Validate
// warns about it at startup.
var ErrNoProviders = errors.New("no completion providers configured")

// Chain is an ordered list of completion providers polymorphic over one
// capability: attempt a completion, succeed or fail. Adding a provider never
// touches the orchestrator.
//
// Chain is safe for concurrent use; in practice the session layer serializes
// calls behind its pending-request flag.
type Chain struct {
	providers []completion.Provider
	metrics   *observe.Metrics
}

// Option is a functional option for NewChain.
type Option func(*Chain)

// WithMetrics injects a Metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Chain) { c.metrics = m }
}

// NewChain creates a Chain that tries providers in the given order.
func NewChain(providers []completion.Provider, opts ...Option) *Chain {
	c := &Chain{providers: providers}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Len returns the number of providers in the chain.
func (c *Chain) Len() int { return len(c.providers) }

// Complete sends prompt to each provider in order until one succeeds and
// returns that provider's raw reply text. It suspends the caller until a
// provider answers or the chain is exhausted; there is no cancellation of an
// individual in-flight attempt beyond ctx, and no timeout policy beyond what
// each provider's transport configures.
func (c *Chain) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := observe.StartSpan(ctx, "gateway.Complete",
		trace.WithAttributes(attribute.Int("chain.len", len(c.providers))))
	defer span.End()

	if len(c.providers) == 0 {
		span.SetStatus(codes.Error, ErrNoProviders.Error())
		return "", ErrNoProviders
	}

	start := time.Now()
	defer func() {
		c.metrics.CompletionDuration.Record(ctx, time.Since(start).Seconds())
	}()

	var lastErr error
	for _, p := range c.providers {
		resp, err := p.Complete(ctx, completion.Request{Prompt: prompt})
		if err == nil && resp != nil {
			c.metrics.ProviderRequests.Add(ctx, 1,
				metric.WithAttributes(
					attribute.String("provider", p.Name()),
					attribute.String("status", "ok"),
				))
			span.SetAttributes(attribute.String("provider.answered", p.Name()))
			return resp.Text, nil
		}
		if err == nil {
			err = fmt.Errorf("provider %s returned no response", p.Name())
		}
		lastErr = err

		c.metrics.ProviderRequests.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("provider", p.Name()),
				attribute.String("status", "error"),
			))
		c.metrics.ProviderErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("provider", p.Name())))
		observe.Logger(ctx).Warn("provider failed, trying next",
			"provider", p.Name(), "error", err)
	}

	c.metrics.FallbackExhausted.Add(ctx, 1)
	span.SetStatus(codes.Error, "all providers failed")
	return "", fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
