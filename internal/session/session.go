// Package session orchestrates a single conversation: it serializes user
// turns, drives the prompt builder and completion chain, formats replies and
// hands voiced replies to the speaker.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/docbuddy/internal/format"
	"github.com/MrWong99/docbuddy/internal/observe"
	"github.com/MrWong99/docbuddy/internal/prompt"
	"github.com/MrWong99/docbuddy/internal/transcript"
)

// ErrBusy is returned by Submit while a previous turn is still waiting for
// its reply. The conversation is strictly turn-based: one outstanding request
// at a time, later submissions are rejected rather than queued.
var ErrBusy = errors.New("a reply is still pending")

// failureReply is appended as the assistant's turn when every completion
// provider fails. The conversation stays intact and the user can simply try
// again.
const failureReply = "DocBuddy is having trouble answering right now. Please try again."

// Source says how an utterance entered the conversation.
type Source int

const (
	// SourceText is a typed submission.
	SourceText Source = iota
	// SourceVoice is a recognized spoken utterance. Replies to voice
	// submissions are also spoken.
	SourceVoice
)

// Completer produces a raw reply for a fully built prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Voicer speaks a display-formatted reply aloud.
type Voicer interface {
	Say(ctx context.Context, display string)
}

// Option is a functional option for New.
type Option func(*Session)

// WithVoicer attaches a speaker for replies to voice submissions. When nil,
// every reply stays text-only.
func WithVoicer(v Voicer) Option {
	return func(s *Session) { s.voicer = v }
}

// WithAssistantName overrides the assistant persona name. Default: "DocBuddy".
func WithAssistantName(name string) Option {
	return func(s *Session) { s.assistantName = name }
}

// WithOnBusy registers a callback invoked on every busy-state transition.
// The callback runs on the submitting goroutine after the session lock is
// released, so it may call back into the session; keep it cheap.
func WithOnBusy(fn func(busy bool)) Option {
	return func(s *Session) { s.onBusy = fn }
}

// WithMetrics injects a Metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Session is the conversation orchestrator. All methods are safe for
// concurrent use; Submit rejects overlap instead of blocking.
type Session struct {
	store         *transcript.Store
	completer     Completer
	voicer        Voicer
	assistantName string
	builder       *prompt.Builder
	formatter     *format.Formatter
	metrics       *observe.Metrics
	onBusy        func(bool)

	mu   sync.Mutex
	busy bool
}

// New creates a Session over the given transcript store and completion
// backend.
func New(store *transcript.Store, completer Completer, opts ...Option) *Session {
	s := &Session{
		store:         store,
		completer:     completer,
		assistantName: string(transcript.SenderAssistant),
	}
	for _, o := range opts {
		o(s)
	}
	s.builder = prompt.NewBuilder(s.assistantName)
	s.formatter = format.New(s.assistantName)
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Busy reports whether a reply is currently pending.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Transcript returns a snapshot of the conversation so far.
func (s *Session) Transcript() []transcript.Turn {
	return s.store.Snapshot()
}

// Submit runs one full conversation turn: record the user's utterance, build
// the prompt from the history before it, obtain a reply through the
// completion chain, format it and record it as the assistant's turn. It
// blocks until the reply (or the failure turn) has been recorded.
//
// Whitespace-only text is dropped without any side effect. While a turn is
// pending, further submissions return [ErrBusy] and leave no trace in the
// transcript. A reply to a voice submission is additionally spoken; a failed
// turn never is.
func (s *Session) Submit(ctx context.Context, text string, src Source) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.busy = true
	onBusy := s.onBusy
	s.mu.Unlock()
	if onBusy != nil {
		onBusy(true)
	}
	s.metrics.PendingCompletions.Add(ctx, 1)

	defer func() {
		s.metrics.PendingCompletions.Add(ctx, -1)
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
		if onBusy != nil {
			onBusy(false)
		}
	}()

	ctx, span := observe.StartSpan(ctx, "session.Submit",
		trace.WithAttributes(attribute.Bool("voice", src == SourceVoice)))
	defer span.End()

	// The prompt's history covers everything before this utterance; the
	// utterance itself goes into its own prompt slot.
	history := s.store.Snapshot()
	s.store.Append(transcript.Turn{Sender: transcript.SenderUser, Text: text, Timestamp: time.Now()})

	p, err := s.builder.Build(history, text)
	if err != nil {
		return err
	}

	raw, err := s.completer.Complete(ctx, p)
	if err != nil {
		observe.Logger(ctx).Error("completion failed for this turn", "error", err)
		s.store.Append(transcript.Turn{Sender: transcript.SenderAssistant, Text: failureReply, Timestamp: time.Now()})
		return nil
	}

	display := s.formatter.Format(raw)
	s.store.Append(transcript.Turn{Sender: transcript.SenderAssistant, Text: display, Timestamp: time.Now()})

	if src == SourceVoice && s.voicer != nil {
		s.voicer.Say(ctx, display)
	}
	return nil
}
