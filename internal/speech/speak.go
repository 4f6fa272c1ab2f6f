package speech

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/docbuddy/internal/format"
	"github.com/MrWong99/docbuddy/internal/observe"
	"github.com/MrWong99/docbuddy/pkg/provider/tts"
)

// 100ms of 16 kHz mono s16le per write keeps preemption latency low without
// flooding the transport with tiny frames.
const playbackChunkBytes = 3200

// SinkFunc receives synthesized PCM chunks in playback order. A non-nil error
// aborts the utterance.
type SinkFunc func(ctx context.Context, pcm []byte) error

// SpeakerOption is a functional option for NewSpeaker.
type SpeakerOption func(*Speaker)

// WithSpeakerMetrics injects a Metrics instance. Defaults to [observe.DefaultMetrics].
func WithSpeakerMetrics(m *observe.Metrics) SpeakerOption {
	return func(s *Speaker) { s.metrics = m }
}

// Speaker voices assistant replies. At most one utterance is in flight: Say
// preempts whatever is currently playing, waits for the old playback to
// acknowledge cancellation, then starts the new utterance. There is no queue
// and no timer — a reply is either playing or replaced.
//
// Synthesis or playback failures are logged and swallowed; the conversation
// continues in text regardless.
type Speaker struct {
	synth   tts.Synthesizer
	voice   tts.Voice
	out     SinkFunc
	metrics *observe.Metrics

	mu      sync.Mutex
	current *utterance
}

type utterance struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSpeaker creates a Speaker that synthesizes with synth using voice and
// streams PCM to out.
func NewSpeaker(synth tts.Synthesizer, voice tts.Voice, out SinkFunc, opts ...SpeakerOption) *Speaker {
	s := &Speaker{synth: synth, voice: voice, out: out}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Say voices display text. Formatting markup and bullet markers are stripped
// first so the synthesizer never reads tag soup aloud. Empty text after
// stripping is a no-op.
//
// Say returns once the utterance has been handed to the playback goroutine;
// it does not wait for audio to finish. Any utterance still playing is
// cancelled and fully drained before the new one starts, so audio from two
// replies never interleaves.
func (s *Speaker) Say(ctx context.Context, display string) {
	text := strings.TrimSpace(format.StripMarkup(display))
	if text == "" {
		return
	}

	// Detach from the request context: playback outlives the turn that
	// produced it, but keeps its trace and log attributes.
	playCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	u := &utterance{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	prev := s.current
	s.current = u
	s.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	go s.play(playCtx, u, text)
}

// Stop cancels any in-flight utterance and waits for playback to wind down.
func (s *Speaker) Stop() {
	s.mu.Lock()
	u := s.current
	s.current = nil
	s.mu.Unlock()

	if u != nil {
		u.cancel()
		<-u.done
	}
}

// Speaking reports whether an utterance is currently in flight.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false
	}
	select {
	case <-s.current.done:
		return false
	default:
		return true
	}
}

func (s *Speaker) play(ctx context.Context, u *utterance, text string) {
	defer close(u.done)
	defer u.cancel()

	ctx, span := observe.StartSpan(ctx, "speech.Say",
		trace.WithAttributes(attribute.String("tts.voice", s.voice.Name)))
	defer span.End()
	log := observe.Logger(ctx)

	start := time.Now()
	pcm, err := s.synth.Synthesize(ctx, text, s.voice)
	s.metrics.SynthesisDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Warn("speech synthesis failed, reply stays text-only", "error", err)
		return
	}

	for off := 0; off < len(pcm); off += playbackChunkBytes {
		if ctx.Err() != nil {
			return
		}
		end := off + playbackChunkBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := s.out(ctx, pcm[off:end]); err != nil {
			if ctx.Err() == nil {
				log.Warn("audio playback aborted", "error", err)
			}
			return
		}
	}
}

// SelectVoice picks a synthesis voice: the first preferred name that exists,
// then the first voice whose locale shares a language prefix with locale,
// then the platform default (first listed). ok is false only when voices is
// empty.
func SelectVoice(voices []tts.Voice, preferred []string, locale string) (tts.Voice, bool) {
	if len(voices) == 0 {
		return tts.Voice{}, false
	}
	for _, name := range preferred {
		for _, v := range voices {
			if strings.EqualFold(v.Name, name) || strings.EqualFold(v.ID, name) {
				return v, true
			}
		}
	}
	if lang, _, found := strings.Cut(locale, "-"); found || lang != "" {
		for _, v := range voices {
			if vlang, _, _ := strings.Cut(v.Locale, "-"); strings.EqualFold(vlang, lang) {
				return v, true
			}
		}
	}
	return voices[0], true
}
