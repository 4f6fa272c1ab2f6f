// Package prompt renders the completion prompt: a fixed persona preamble,
// the serialized conversation history, and the new user utterance.
//
// Building is pure, deterministic, and synchronous — no retries, no I/O.
// The transcript snapshot is the builder's only input besides the pending
// utterance.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/docbuddy/internal/transcript"
)

// ErrEmptyUtterance is returned when the new utterance is empty or
// whitespace-only. Callers treat it as a silent no-op and never call the
// completion gateway.
var ErrEmptyUtterance = errors.New("utterance is empty")

// persona is the fixed system preamble. The assistant name placeholder is
// filled at construction so the formatter can later recognise and strip a
// leading self-identification echo.
const persona = `Your name is %s, an empathetic, helpful, and respectful senior general practitioner.
You are currently talking to a user who is experiencing some symptoms and seeking clarity. Your goal is to:
1. Collect basic information about the user (age, name, gender, medical history), one group of fields at a time.
2. Gather detailed information about the chief complaint and related symptoms (onset, duration, severity, triggers, what alleviates it).
3. Provide a diagnosis recommendation and a possible care plan after collecting all necessary information.
4. At the end of the conversation only, provide a single structured point-by-point summary of the symptoms discussed.

Please follow these steps:
- Keep responses short, crisp, and to the point.
- Ask one question at a time, grouping related questions together where possible.
- Use **bold** and **highlighted text** for key points to make it easier for the user to read.
- Be empathetic and professional in tone, while remaining concise.

Here is the conversation history:
%s

Now, here is the user's new input:
%s
`

// Builder renders completion prompts for one assistant persona.
type Builder struct {
	assistantName string
}

// NewBuilder returns a Builder for the given assistant display name.
func NewBuilder(assistantName string) *Builder {
	if assistantName == "" {
		assistantName = string(transcript.SenderAssistant)
	}
	return &Builder{assistantName: assistantName}
}

// Build renders the full prompt from the transcript snapshot and the new
// user utterance. History is serialized as one "sender: text" line per turn,
// in transcript order, followed by the utterance verbatim.
//
// Returns ErrEmptyUtterance when utterance is blank or whitespace-only.
func (b *Builder) Build(turns []transcript.Turn, utterance string) (string, error) {
	if strings.TrimSpace(utterance) == "" {
		return "", ErrEmptyUtterance
	}

	var history strings.Builder
	for i, t := range turns {
		if i > 0 {
			history.WriteByte('\n')
		}
		history.WriteString(string(t.Sender))
		history.WriteString(": ")
		history.WriteString(t.Text)
	}

	return fmt.Sprintf(persona, b.assistantName, history.String(), utterance), nil
}
