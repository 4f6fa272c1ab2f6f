package speech

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/docbuddy/pkg/provider/tts"
	ttsmock "github.com/MrWong99/docbuddy/pkg/provider/tts/mock"
)

// collectSink gathers PCM chunks and signals when n bytes have arrived.
type collectSink struct {
	mu   sync.Mutex
	got  []byte
	want int
	full chan struct{}
}

func newCollectSink(want int) *collectSink {
	return &collectSink{want: want, full: make(chan struct{})}
}

func (s *collectSink) write(ctx context.Context, pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := len(s.got)
	s.got = append(s.got, pcm...)
	if prev < s.want && len(s.got) >= s.want {
		close(s.full)
	}
	return nil
}

func (s *collectSink) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.got...)
}

func waitIdle(t *testing.T, s *Speaker) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Speaking() {
		if time.Now().After(deadline) {
			t.Fatal("speaker did not go idle")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSayStreamsSynthesizedAudio(t *testing.T) {
	audio := bytes.Repeat([]byte{0xAB}, playbackChunkBytes*2+100)
	synth := &ttsmock.Synthesizer{Audio: audio}
	sink := newCollectSink(len(audio))
	s := NewSpeaker(synth, tts.Voice{Name: "en-test"}, sink.write)

	s.Say(context.Background(), "Hello there")
	select {
	case <-sink.full:
	case <-time.After(2 * time.Second):
		t.Fatal("audio never fully arrived")
	}
	if !bytes.Equal(sink.bytes(), audio) {
		t.Error("sink received different bytes than synthesized")
	}
	waitIdle(t, s)
}

func TestSayStripsMarkupBeforeSynthesis(t *testing.T) {
	synth := &ttsmock.Synthesizer{Audio: []byte{1, 2}}
	sink := newCollectSink(2)
	s := NewSpeaker(synth, tts.Voice{}, sink.write)

	s.Say(context.Background(), "Please tell me:\n- your <strong>age</strong> and **gender**")
	<-sink.full
	waitIdle(t, s)

	if n := synth.CallCount(); n != 1 {
		t.Fatalf("synthesize calls = %d, want 1", n)
	}
	got := synth.SynthesizeCalls[0].Text
	if bytes.ContainsAny([]byte(got), "<>*") {
		t.Errorf("markup leaked into synthesis input: %q", got)
	}
}

func TestSayEmptyAfterStripIsNoOp(t *testing.T) {
	synth := &ttsmock.Synthesizer{Audio: []byte{1}}
	s := NewSpeaker(synth, tts.Voice{}, func(ctx context.Context, pcm []byte) error { return nil })

	s.Say(context.Background(), "   ")
	s.Say(context.Background(), "")
	time.Sleep(20 * time.Millisecond)
	if n := synth.CallCount(); n != 0 {
		t.Errorf("synthesize calls = %d, want 0 for empty text", n)
	}
}

func TestSayPreemptsCurrentUtterance(t *testing.T) {
	firstAudio := bytes.Repeat([]byte{0x01}, playbackChunkBytes*10)
	secondAudio := bytes.Repeat([]byte{0x02}, playbackChunkBytes)

	synth := &ttsmock.Synthesizer{
		SynthesizeFunc: func(ctx context.Context, text string, voice tts.Voice) ([]byte, error) {
			if text == "first" {
				return firstAudio, nil
			}
			return secondAudio, nil
		},
	}

	firstChunk := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	var order []byte

	sink := func(ctx context.Context, pcm []byte) error {
		mu.Lock()
		order = append(order, pcm[0])
		mu.Unlock()
		once.Do(func() { close(firstChunk) })
		// Slow playback so the first utterance is still in flight when
		// the replacement arrives.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
			return nil
		}
	}

	s := NewSpeaker(synth, tts.Voice{}, sink)
	s.Say(context.Background(), "first")
	<-firstChunk
	s.Say(context.Background(), "second")
	waitIdle(t, s)

	mu.Lock()
	defer mu.Unlock()
	if len(order) == 0 {
		t.Fatal("no chunks played")
	}
	// Once a chunk of the second utterance appears, no first-utterance
	// chunk may follow: the old playback must be fully drained first.
	seenSecond := false
	for _, b := range order {
		if b == 0x02 {
			seenSecond = true
		} else if seenSecond {
			t.Fatal("first utterance audio played after the replacement started")
		}
	}
	if !seenSecond {
		t.Error("replacement utterance never played")
	}
}

func TestSaySynthesisFailureIsSilent(t *testing.T) {
	synth := &ttsmock.Synthesizer{SynthesizeErr: errors.New("tts down")}
	var called bool
	s := NewSpeaker(synth, tts.Voice{}, func(ctx context.Context, pcm []byte) error {
		called = true
		return nil
	})

	s.Say(context.Background(), "hello")
	waitIdle(t, s)
	if called {
		t.Error("sink called despite synthesis failure")
	}
}

func TestStop(t *testing.T) {
	synth := &ttsmock.Synthesizer{Audio: bytes.Repeat([]byte{0x01}, playbackChunkBytes*100)}
	started := make(chan struct{})
	var once sync.Once
	s := NewSpeaker(synth, tts.Voice{}, func(ctx context.Context, pcm []byte) error {
		once.Do(func() { close(started) })
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
			return nil
		}
	})

	s.Say(context.Background(), "long reply")
	<-started
	s.Stop()
	if s.Speaking() {
		t.Error("still speaking after Stop")
	}
}

func TestSelectVoice(t *testing.T) {
	voices := []tts.Voice{
		{ID: "v1", Name: "Karen", Locale: "en-AU"},
		{ID: "v2", Name: "Daniel", Locale: "en-GB"},
		{ID: "v3", Name: "Anna", Locale: "de-DE"},
	}

	tests := []struct {
		name      string
		preferred []string
		locale    string
		wantID    string
	}{
		{"preferred name wins", []string{"Daniel"}, "de-DE", "v2"},
		{"preferred order respected", []string{"Zarvox", "Karen"}, "de-DE", "v1"},
		{"locale language match", nil, "de-AT", "v3"},
		{"default is first listed", nil, "fr-FR", "v1"},
		{"case-insensitive name", []string{"daniel"}, "", "v2"},
		{"match by id", []string{"v3"}, "", "v3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := SelectVoice(voices, tt.preferred, tt.locale)
			if !ok {
				t.Fatal("ok = false")
			}
			if v.ID != tt.wantID {
				t.Errorf("got %s, want %s", v.ID, tt.wantID)
			}
		})
	}

	if _, ok := SelectVoice(nil, []string{"Karen"}, "en-US"); ok {
		t.Error("ok = true with no voices")
	}
}
