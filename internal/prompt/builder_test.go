package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/docbuddy/internal/transcript"
)

func TestBuild_ContainsHistoryInOrder(t *testing.T) {
	b := NewBuilder("DocBuddy")
	turns := []transcript.Turn{
		{Sender: transcript.SenderUser, Text: "I have a headache"},
		{Sender: transcript.SenderAssistant, Text: "How long has it lasted?"},
		{Sender: transcript.SenderUser, Text: "Two days"},
	}

	got, err := b.Build(turns, "It is getting worse")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wantLines := []string{
		"You: I have a headache",
		"DocBuddy: How long has it lasted?",
		"You: Two days",
	}
	lastIdx := -1
	for _, line := range wantLines {
		idx := strings.Index(got, line)
		if idx < 0 {
			t.Fatalf("prompt missing history line %q", line)
		}
		if idx < lastIdx {
			t.Errorf("history line %q out of order", line)
		}
		lastIdx = idx
	}

	// The new utterance appears verbatim, after the history.
	uttIdx := strings.Index(got, "It is getting worse")
	if uttIdx < 0 {
		t.Fatal("prompt missing new utterance")
	}
	if uttIdx < lastIdx {
		t.Error("new utterance appears before history")
	}
}

func TestBuild_PersonaPreamble(t *testing.T) {
	b := NewBuilder("DocBuddy")
	got, err := b.Build(nil, "hello")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(got, "Your name is DocBuddy") {
		t.Error("prompt missing persona name line")
	}
	if !strings.Contains(got, "chief complaint") {
		t.Error("prompt missing chief-complaint instructions")
	}
	if !strings.Contains(got, "care plan") {
		t.Error("prompt missing care-plan instructions")
	}
}

func TestBuild_EmptyUtterance(t *testing.T) {
	b := NewBuilder("DocBuddy")
	for _, utt := range []string{"", "   ", "\n\t  "} {
		_, err := b.Build(nil, utt)
		if !errors.Is(err, ErrEmptyUtterance) {
			t.Errorf("Build(%q) err = %v, want ErrEmptyUtterance", utt, err)
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := NewBuilder("DocBuddy")
	turns := []transcript.Turn{
		{Sender: transcript.SenderUser, Text: "sore throat"},
	}
	a, err := b.Build(turns, "and a fever")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c, err := b.Build(turns, "and a fever")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if a != c {
		t.Error("Build is not deterministic for identical input")
	}
}
