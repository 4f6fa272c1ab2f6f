// Package transcript holds the conversation transcript: an ordered,
// append-only log of exchange turns. It is the single source of truth both
// for rendering and for prompt construction.
//
// Turns are immutable once appended, total order equals insertion order, and
// no turn is ever removed or edited. The store never contains partial or
// in-flight turns — a User turn is appended only once input is finalized, an
// Assistant turn only once a provider response is fully formatted.
package transcript

import (
	"sync"
	"time"
)

// Sender identifies who produced a turn.
type Sender string

const (
	SenderUser      Sender = "You"
	SenderAssistant Sender = "DocBuddy"
)

// Turn is one conversational exchange unit.
type Turn struct {
	// Sender attributes the turn to the user or the assistant.
	Sender Sender

	// Text is the message body. Assistant turns carry the lightweight display
	// markup produced by the formatter.
	Text string

	// Timestamp is the wall-clock creation time, for display only — it is
	// never used in logic.
	Timestamp time.Time
}

// Watcher observes appended turns. Watchers are invoked synchronously under
// the append, in registration order, so every watcher sees turns in exact
// transcript order. A watcher must not call back into the Store.
type Watcher func(Turn)

// Store is the append-only transcript log, scoped to one session.
// It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	turns    []Turn
	watchers []Watcher
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Append adds a Turn at the end of the transcript. It never fails.
// Registered watchers are notified before Append returns; the attached view
// uses this to re-render in order and scroll to the latest turn.
func (s *Store) Append(t Turn) {
	s.mu.Lock()
	s.turns = append(s.turns, t)
	watchers := s.watchers
	s.mu.Unlock()

	for _, w := range watchers {
		w(t)
	}
}

// Snapshot returns a copy of the current ordered turn sequence for read-only
// use by the prompt builder and the renderer.
func (s *Store) Snapshot() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns appended so far.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Watch registers w to be called for every subsequently appended turn.
// Turns already in the store are not replayed; callers that need the full
// history take a Snapshot first, then Watch, under their own sequencing.
func (s *Store) Watch(w Watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, w)
}
