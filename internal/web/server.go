// Package web exposes the conversation over HTTP: a websocket endpoint
// carrying chat events as JSON text frames and raw PCM audio as binary
// frames, plus health and metrics endpoints and the embedded chat page.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/docbuddy/internal/session"
	"github.com/MrWong99/docbuddy/internal/speech"
	"github.com/MrWong99/docbuddy/internal/transcript"
	"github.com/MrWong99/docbuddy/pkg/provider/stt"
)

//go:embed static
var staticFiles embed.FS

// Conversation is the session surface the server drives.
type Conversation interface {
	Submit(ctx context.Context, text string, src session.Source) error
	Busy() bool
}

// Capturer is the one-shot speech capture surface.
type Capturer interface {
	Listen(ctx context.Context, frames <-chan []byte) (string, error)
	Listening() bool
}

// clientEvent is a JSON text frame from the browser.
type clientEvent struct {
	// Type is "submit" or "mic".
	Type string `json:"type"`
	// Text carries the typed utterance for "submit".
	Text string `json:"text,omitempty"`
	// Active toggles microphone capture for "mic".
	Active bool `json:"active,omitempty"`
}

// turnEvent pushes one transcript turn to the browser.
type turnEvent struct {
	Type   string    `json:"type"` // always "turn"
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}

// stateEvent pushes the conversation state to the browser.
type stateEvent struct {
	Type      string `json:"type"` // always "state"
	Busy      bool   `json:"busy"`
	Listening bool   `json:"listening"`
}

// Option is a functional option for New.
type Option func(*Server)

// WithLogger sets the server logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// Server serves the chat UI and fans transcript turns, state changes and
// synthesized audio out to every connected client. Audio captured by a
// client is fed to the capturer; recognized utterances enter the
// conversation like typed ones.
type Server struct {
	store *transcript.Store
	conv  Conversation
	rec   Capturer
	log   *slog.Logger

	mu    sync.Mutex
	conns map[*conn]struct{}
}

// conn is one websocket client with its write lock and microphone state.
type conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	micMu  sync.Mutex
	frames chan []byte
}

// New creates a Server over the given transcript store. Bind must be called
// before serving.
func New(store *transcript.Store, opts ...Option) *Server {
	s := &Server{
		store: store,
		conns: make(map[*conn]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.store.Watch(s.broadcastTurn)
	return s
}

// Bind attaches the conversation and the speech capturer. The capturer may
// be nil when no STT provider is configured; microphone events are then
// ignored.
func (s *Server) Bind(conv Conversation, rec Capturer) {
	s.conv = conv
	s.rec = rec
}

// Handler returns the full HTTP handler: the chat page at /, the websocket
// at /ws, health at /healthz and Prometheus metrics at /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("/", http.FileServer(http.FS(static)))
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// NotifyBusy pushes the new busy state to every client. Wire it as the
// session's busy-transition callback.
func (s *Server) NotifyBusy(busy bool) {
	s.broadcastState()
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err)
		return
	}
	c := &conn{ws: ws}

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		c.stopMic()
		ws.CloseNow()
	}()

	ctx := r.Context()

	// Replay the conversation so far, then the current state. Later turns
	// arrive through the store watcher.
	for _, t := range s.store.Snapshot() {
		if err := c.writeJSON(ctx, turnFromTranscript(t)); err != nil {
			return
		}
	}
	if err := c.writeJSON(ctx, s.currentState()); err != nil {
		return
	}

	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				s.log.Debug("websocket read ended", "error", err)
			}
			return
		}
		switch typ {
		case websocket.MessageBinary:
			c.feedMic(data)
		case websocket.MessageText:
			s.dispatch(ctx, c, data)
		}
	}
}

func (s *Server) dispatch(ctx context.Context, c *conn, data []byte) {
	var ev clientEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Debug("bad client event", "error", err)
		return
	}
	switch ev.Type {
	case "submit":
		// Submit blocks until the reply is recorded; run it off the read
		// loop so the client can keep interacting.
		go func() {
			if err := s.conv.Submit(context.WithoutCancel(ctx), ev.Text, session.SourceText); err != nil {
				s.log.Debug("submission rejected", "error", err)
			}
		}()
	case "mic":
		if ev.Active {
			s.startMic(ctx, c)
		} else {
			c.stopMic()
		}
	default:
		s.log.Debug("unknown client event", "type", ev.Type)
	}
}

// startMic opens a capture stream for this connection and runs one
// recognition over it. The recognized utterance enters the conversation as a
// voice submission; no-speech and recognition failures end the capture
// without a turn.
func (s *Server) startMic(ctx context.Context, c *conn) {
	if s.rec == nil {
		s.log.Debug("mic event ignored, no recognizer configured")
		return
	}

	c.micMu.Lock()
	if c.frames != nil {
		c.micMu.Unlock()
		return
	}
	frames := make(chan []byte, 32)
	c.frames = frames
	c.micMu.Unlock()

	go func() {
		defer func() {
			c.stopMic()
			s.broadcastState()
		}()

		text, err := s.rec.Listen(context.WithoutCancel(ctx), frames)
		if err != nil {
			if errors.Is(err, stt.ErrNoSpeech) || errors.Is(err, speech.ErrAlreadyListening) {
				s.log.Debug("capture ended without utterance", "reason", err)
			} else {
				s.log.Warn("speech recognition failed", "error", err)
			}
			return
		}
		if err := s.conv.Submit(context.WithoutCancel(ctx), text, session.SourceVoice); err != nil {
			s.log.Debug("voice submission rejected", "error", err)
		}
	}()

	s.broadcastState()
}

// feedMic forwards one binary audio frame to the open capture stream.
// Frames arriving while no capture is open are dropped.
func (c *conn) feedMic(data []byte) {
	c.micMu.Lock()
	frames := c.frames
	c.micMu.Unlock()
	if frames == nil {
		return
	}
	// Never block the read loop on a slow recognizer.
	select {
	case frames <- data:
	default:
	}
}

// stopMic closes the capture stream, letting the recognizer finalize on
// whatever audio it has.
func (c *conn) stopMic() {
	c.micMu.Lock()
	defer c.micMu.Unlock()
	if c.frames != nil {
		close(c.frames)
		c.frames = nil
	}
}

// SendAudio broadcasts one chunk of synthesized PCM to every client as a
// binary frame. Wire it as the speaker's sink.
func (s *Server) SendAudio(ctx context.Context, pcm []byte) error {
	for _, c := range s.snapshotConns() {
		if err := c.writeBinary(ctx, pcm); err != nil {
			s.log.Debug("audio write failed", "error", err)
		}
	}
	return nil
}

func (s *Server) broadcastTurn(t transcript.Turn) {
	ev := turnFromTranscript(t)
	for _, c := range s.snapshotConns() {
		if err := c.writeJSON(context.Background(), ev); err != nil {
			s.log.Debug("turn push failed", "error", err)
		}
	}
}

func (s *Server) broadcastState() {
	ev := s.currentState()
	for _, c := range s.snapshotConns() {
		if err := c.writeJSON(context.Background(), ev); err != nil {
			s.log.Debug("state push failed", "error", err)
		}
	}
}

func (s *Server) currentState() stateEvent {
	ev := stateEvent{Type: "state"}
	if s.conv != nil {
		ev.Busy = s.conv.Busy()
	}
	if s.rec != nil {
		ev.Listening = s.rec.Listening()
	}
	return ev
}

func (s *Server) snapshotConns() []*conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		out = append(out, c)
	}
	return out
}

func (c *conn) writeJSON(ctx context.Context, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(ctx, c.ws, v)
}

func (c *conn) writeBinary(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.ws.Write(ctx, websocket.MessageBinary, data)
}

func turnFromTranscript(t transcript.Turn) turnEvent {
	return turnEvent{
		Type:   "turn",
		Sender: string(t.Sender),
		Text:   t.Text,
		Time:   t.Timestamp,
	}
}
