package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/docbuddy/pkg/provider/completion"
	"github.com/MrWong99/docbuddy/pkg/provider/completion/mock"
)

func TestCompletePrimarySuccess(t *testing.T) {
	primary := &mock.Provider{ProviderName: "primary", Response: &completion.Response{Text: "hello from primary"}}
	secondary := &mock.Provider{ProviderName: "secondary", Response: &completion.Response{Text: "hello from secondary"}}
	chain := NewChain([]completion.Provider{primary, secondary})

	got, err := chain.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "hello from primary" {
		t.Errorf("got %q, want primary response", got)
	}
	if secondary.CallCount() != 0 {
		t.Errorf("secondary called %d times, want 0", secondary.CallCount())
	}
}

func TestCompleteFallbackGetsIdenticalPrompt(t *testing.T) {
	primary := &mock.Provider{ProviderName: "primary", Err: errors.New("rate limited")}
	secondary := &mock.Provider{ProviderName: "secondary", Response: &completion.Response{Text: "fallback reply"}}
	chain := NewChain([]completion.Provider{primary, secondary})

	got, err := chain.Complete(context.Background(), "describe your symptoms")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "fallback reply" {
		t.Errorf("got %q, want fallback reply", got)
	}
	if len(secondary.Calls) != 1 {
		t.Fatalf("secondary called %d times, want 1", len(secondary.Calls))
	}
	if secondary.Calls[0].Req.Prompt != "describe your symptoms" {
		t.Errorf("fallback prompt = %q, want the original prompt unchanged", secondary.Calls[0].Req.Prompt)
	}
}

func TestCompleteAllFail(t *testing.T) {
	primary := &mock.Provider{ProviderName: "primary", Err: errors.New("boom")}
	secondary := &mock.Provider{ProviderName: "secondary", Err: errors.New("also boom")}
	chain := NewChain([]completion.Provider{primary, secondary})

	_, err := chain.Complete(context.Background(), "prompt")
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	if primary.CallCount() != 1 || secondary.CallCount() != 1 {
		t.Errorf("calls = %d/%d, want exactly one attempt per provider",
			primary.CallCount(), secondary.CallCount())
	}
}

func TestCompleteFreshAttemptsPerCall(t *testing.T) {
	primary := &mock.Provider{ProviderName: "primary", Err: errors.New("down")}
	secondary := &mock.Provider{ProviderName: "secondary", Response: &completion.Response{Text: "ok"}}
	chain := NewChain([]completion.Provider{primary, secondary})

	for i := 0; i < 3; i++ {
		if _, err := chain.Complete(context.Background(), "prompt"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	// A failing provider is still attempted first on every call.
	if primary.CallCount() != 3 {
		t.Errorf("primary called %d times, want 3", primary.CallCount())
	}
}

func TestCompleteEmptyChain(t *testing.T) {
	chain := NewChain(nil)
	_, err := chain.Complete(context.Background(), "prompt")
	if !errors.Is(err, ErrNoProviders) {
		t.Fatalf("err = %v, want ErrNoProviders", err)
	}
}

func TestCompleteNilResponseCountsAsFailure(t *testing.T) {
	primary := &mock.Provider{
		ProviderName: "primary",
		CompleteFunc: func(ctx context.Context, req completion.Request) (*completion.Response, error) {
			return nil, nil
		},
	}
	secondary := &mock.Provider{ProviderName: "secondary", Response: &completion.Response{Text: "recovered"}}
	chain := NewChain([]completion.Provider{primary, secondary})

	got, err := chain.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "recovered" {
		t.Errorf("got %q, want fallback to recover from nil response", got)
	}
}
