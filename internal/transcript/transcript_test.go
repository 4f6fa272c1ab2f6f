package transcript

import (
	"testing"
	"time"
)

func TestStore_AppendAndSnapshot(t *testing.T) {
	s := NewStore()
	s.Append(Turn{Sender: SenderUser, Text: "hello", Timestamp: time.Now()})
	s.Append(Turn{Sender: SenderAssistant, Text: "hi there", Timestamp: time.Now()})

	snap := s.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot len = %d, want 2", len(snap))
	}
	if snap[0].Sender != SenderUser || snap[0].Text != "hello" {
		t.Errorf("turn[0] = %+v, want user hello", snap[0])
	}
	if snap[1].Sender != SenderAssistant || snap[1].Text != "hi there" {
		t.Errorf("turn[1] = %+v, want assistant hi there", snap[1])
	}
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.Append(Turn{Sender: SenderUser, Text: "original"})

	snap := s.Snapshot()
	snap[0].Text = "mutated"

	if got := s.Snapshot()[0].Text; got != "original" {
		t.Errorf("store turn text = %q after mutating snapshot, want original", got)
	}
}

func TestStore_OrderMatchesInsertion(t *testing.T) {
	s := NewStore()
	texts := []string{"a", "b", "c", "d", "e"}
	for _, txt := range texts {
		s.Append(Turn{Sender: SenderUser, Text: txt})
	}

	snap := s.Snapshot()
	for i, txt := range texts {
		if snap[i].Text != txt {
			t.Errorf("turn[%d] = %q, want %q", i, snap[i].Text, txt)
		}
	}
}

func TestStore_WatchObservesAppendsInOrder(t *testing.T) {
	s := NewStore()
	s.Append(Turn{Sender: SenderUser, Text: "before watch"})

	var seen []string
	s.Watch(func(turn Turn) {
		seen = append(seen, turn.Text)
	})

	s.Append(Turn{Sender: SenderAssistant, Text: "first"})
	s.Append(Turn{Sender: SenderUser, Text: "second"})

	if len(seen) != 2 {
		t.Fatalf("watcher saw %d turns, want 2 (no replay of history)", len(seen))
	}
	if seen[0] != "first" || seen[1] != "second" {
		t.Errorf("watcher order = %v, want [first second]", seen)
	}
}

func TestStore_MultipleWatchers(t *testing.T) {
	s := NewStore()
	var a, b int
	s.Watch(func(Turn) { a++ })
	s.Watch(func(Turn) { b++ })

	s.Append(Turn{Sender: SenderUser, Text: "x"})

	if a != 1 || b != 1 {
		t.Errorf("watcher counts = %d, %d; want 1, 1", a, b)
	}
}
