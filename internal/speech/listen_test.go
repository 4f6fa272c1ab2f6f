package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/docbuddy/pkg/provider/stt"
	sttmock "github.com/MrWong99/docbuddy/pkg/provider/stt/mock"
)

func TestListenReturnsCorrectedText(t *testing.T) {
	rec := &sttmock.Recognizer{Result: stt.Result{Text: "I have a migrane", Confidence: 0.9}}
	l := NewListener(rec, stt.Config{SampleRate: 16000, Channels: 1}, WithCorrector(NewCorrector()))

	got, err := l.Listen(context.Background(), nil)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if got != "I have a migraine" {
		t.Errorf("got %q, want corrected utterance", got)
	}
	if l.Listening() {
		t.Error("listener still listening after Listen returned")
	}
}

func TestListenWithoutCorrector(t *testing.T) {
	rec := &sttmock.Recognizer{Result: stt.Result{Text: "hello there"}}
	l := NewListener(rec, stt.Config{})

	got, err := l.Listen(context.Background(), nil)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if got != "hello there" {
		t.Errorf("got %q", got)
	}
}

func TestListenRejectsConcurrentCapture(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var startedOnce sync.Once
	rec := &sttmock.Recognizer{
		RecognizeFunc: func(ctx context.Context, cfg stt.Config, frames <-chan []byte) (stt.Result, error) {
			startedOnce.Do(func() { close(started) })
			<-release
			return stt.Result{Text: "done"}, nil
		},
	}
	l := NewListener(rec, stt.Config{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := l.Listen(context.Background(), nil); err != nil {
			t.Errorf("first Listen: %v", err)
		}
	}()

	<-started
	if !l.Listening() {
		t.Error("Listening() = false during capture")
	}
	if _, err := l.Listen(context.Background(), nil); !errors.Is(err, ErrAlreadyListening) {
		t.Errorf("second Listen err = %v, want ErrAlreadyListening", err)
	}
	close(release)
	wg.Wait()

	// The listener is idle again and accepts a fresh capture.
	if _, err := l.Listen(context.Background(), nil); err != nil {
		t.Errorf("third Listen: %v", err)
	}
}

func TestListenNoSpeech(t *testing.T) {
	rec := &sttmock.Recognizer{Err: stt.ErrNoSpeech, Drain: true}
	l := NewListener(rec, stt.Config{})

	frames := make(chan []byte, 1)
	frames <- make([]byte, 320)
	close(frames)

	_, err := l.Listen(context.Background(), frames)
	if !errors.Is(err, stt.ErrNoSpeech) {
		t.Fatalf("err = %v, want ErrNoSpeech", err)
	}
	if l.Listening() {
		t.Error("listener stuck in listening state after no-speech outcome")
	}
}

func TestListenRecognizerErrorResetsState(t *testing.T) {
	rec := &sttmock.Recognizer{Err: errors.New("backend down")}
	l := NewListener(rec, stt.Config{})

	if _, err := l.Listen(context.Background(), nil); err == nil {
		t.Fatal("want error from failing recognizer")
	}
	rec.Err = nil
	rec.Result = stt.Result{Text: "recovered"}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if got, err := l.Listen(context.Background(), nil); err != nil || got != "recovered" {
			t.Errorf("Listen after failure = %q, %v", got, err)
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen did not complete after earlier failure")
	}
}
