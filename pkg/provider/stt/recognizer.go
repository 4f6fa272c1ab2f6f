// Package stt defines the Recognizer interface for Speech-to-Text backends.
//
// Recognition is one-shot: a Recognizer consumes raw PCM audio frames for a
// single utterance and returns exactly one final transcript. No interim
// partial results are surfaced — the conversation flow only ever sees settled
// text, as if the user had typed it.
//
// Implementations must be safe for concurrent use, although the speech
// adapter guarantees at most one recognition cycle is active at a time.
package stt

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned when the audio input ends without any speech being
// detected. Callers treat it as a silent reset, never as a chat-visible error.
var ErrNoSpeech = errors.New("no speech detected")

// Result is the final transcript of one recognized utterance.
type Result struct {
	// Text is the transcribed speech content.
	Text string

	// Confidence is the overall confidence score (0.0–1.0). Zero when the
	// backend does not report confidence.
	Confidence float64
}

// Config describes the audio format and recognition hints for one utterance.
type Config struct {
	// SampleRate is the audio sample rate in Hz (e.g., 16000).
	SampleRate int

	// Channels is the number of audio channels. 1 = mono.
	Channels int

	// Language is the recognition language code (e.g., "en"). Recognition is
	// fixed to one spoken language per session.
	Language string
}

// Recognizer is the abstraction over any one-shot STT backend.
type Recognizer interface {
	// Recognize consumes raw 16-bit little-endian PCM frames for a single
	// utterance and returns the final transcript. The frames channel is
	// supplied by the caller and may be closed to signal end of input.
	//
	// Recognize returns ErrNoSpeech when the input contains no detectable
	// speech, a wrapped transport error when the backend fails, or ctx.Err()
	// when the context is cancelled first. It never returns an empty Result
	// with a nil error.
	Recognize(ctx context.Context, cfg Config, frames <-chan []byte) (Result, error)
}
