// Package tts defines the Synthesizer interface for Text-to-Speech backends.
//
// Synthesis is single-utterance: the speech adapter hands over one complete,
// markup-stripped reply and receives raw PCM audio back. Preemption (at most
// one utterance playing, a new one always cancels the old) is the speech
// adapter's job, not the backend's — implementations only need to respect
// context cancellation so an abandoned synthesis stops promptly.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Voice describes one voice offered by a synthesizer.
type Voice struct {
	// ID is the backend-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Locale is the BCP-47 language tag the voice speaks (e.g., "en-US").
	// Empty when the backend does not report one.
	Locale string
}

// Synthesizer is the abstraction over any TTS backend.
type Synthesizer interface {
	// Synthesize converts text to raw 16-bit little-endian PCM audio using
	// the given voice. A zero-value voice requests the backend default.
	//
	// Returns an error if the backend cannot be reached, rejects the voice,
	// or ctx is cancelled first.
	Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error)

	// Voices returns the backend's current voice catalogue. The result may
	// change between calls if the underlying service adds or removes voices.
	Voices(ctx context.Context) ([]Voice, error)
}
