// Package speech adapts the speech providers to the conversation loop: a
// one-shot listener that turns microphone audio into a corrected utterance,
// and a speaker that voices assistant replies with at most one utterance in
// flight.
package speech

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MrWong99/docbuddy/internal/observe"
	"github.com/MrWong99/docbuddy/pkg/provider/stt"
)

// ErrAlreadyListening is returned by Listen when a capture is in progress.
// Listening is one-shot: a second trigger while the first is still open is
// rejected rather than queued.
var ErrAlreadyListening = errors.New("already listening")

// ListenerOption is a functional option for NewListener.
type ListenerOption func(*Listener)

// WithCorrector attaches a vocabulary corrector applied to every recognized
// utterance. When nil, recognized text passes through unchanged.
func WithCorrector(c *Corrector) ListenerOption {
	return func(l *Listener) { l.corrector = c }
}

// WithListenerMetrics injects a Metrics instance. Defaults to [observe.DefaultMetrics].
func WithListenerMetrics(m *observe.Metrics) ListenerOption {
	return func(l *Listener) { l.metrics = m }
}

// Listener performs one-shot speech capture. Each Listen call runs a single
// recognition over the supplied audio stream, applies vocabulary correction
// and returns the utterance. The listener is either idle or listening; it
// always returns to idle when Listen returns, whatever the outcome.
type Listener struct {
	rec       stt.Recognizer
	cfg       stt.Config
	corrector *Corrector
	metrics   *observe.Metrics

	mu        sync.Mutex
	listening bool
}

// NewListener creates a Listener over the given recognizer and audio config.
func NewListener(rec stt.Recognizer, cfg stt.Config, opts ...ListenerOption) *Listener {
	l := &Listener{rec: rec, cfg: cfg}
	for _, o := range opts {
		o(l)
	}
	if l.metrics == nil {
		l.metrics = observe.DefaultMetrics()
	}
	return l
}

// Listening reports whether a capture is currently in progress.
func (l *Listener) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listening
}

// Listen captures a single utterance from frames and returns the corrected
// text. It blocks until the recognizer yields a result, the stream is
// exhausted or ctx is cancelled.
//
// No-speech outcomes and recognition failures return an error without any
// side effect; the caller decides whether it is worth surfacing. Returns
// [ErrAlreadyListening] when a capture is already open, and [stt.ErrNoSpeech]
// when the stream ended without usable speech.
func (l *Listener) Listen(ctx context.Context, frames <-chan []byte) (string, error) {
	l.mu.Lock()
	if l.listening {
		l.mu.Unlock()
		return "", ErrAlreadyListening
	}
	l.listening = true
	l.mu.Unlock()

	l.metrics.ActiveListens.Add(ctx, 1)
	defer func() {
		l.metrics.ActiveListens.Add(ctx, -1)
		l.mu.Lock()
		l.listening = false
		l.mu.Unlock()
	}()

	ctx, span := observe.StartSpan(ctx, "speech.Listen")
	defer span.End()

	start := time.Now()
	result, err := l.rec.Recognize(ctx, l.cfg, frames)
	l.metrics.RecognitionDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		if !errors.Is(err, stt.ErrNoSpeech) {
			span.SetStatus(codes.Error, err.Error())
		}
		return "", err
	}

	text := result.Text
	if l.corrector != nil {
		if corrected := l.corrector.Correct(text); corrected != text {
			observe.Logger(ctx).Debug("vocabulary correction applied",
				"recognized", text, "corrected", corrected)
			text = corrected
		}
	}
	span.SetAttributes(
		attribute.Float64("stt.confidence", result.Confidence),
		attribute.Int("stt.text_len", len(text)),
	)
	return text, nil
}
