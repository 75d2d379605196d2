package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/rbright/voiceprompt/internal/logging"
	"github.com/rbright/voiceprompt/internal/recognition"
)

// ErrNoBridge is returned by Open while no browser recognizer is connected.
var ErrNoBridge = errors.New("no recognizer bridge connected")

const writeTimeout = 2 * time.Second

// bridgeFrame is the JSON exchanged with the browser page on /ws/recognizer.
type bridgeFrame struct {
	Type    string `json:"type"`
	Lang    string `json:"lang,omitempty"`
	Text    string `json:"text,omitempty"`
	IsFinal bool   `json:"isFinal,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Recognizer is a recognition.Source backed by a browser running the Web Speech API.
// The most recent bridge connection wins.
type Recognizer struct {
	logger *slog.Logger

	mu     sync.Mutex
	bridge *bridge
	active *bridgeSession
}

type bridge struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (b *bridge) send(ctx context.Context, frame bridgeFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.Write(ctx, websocket.MessageText, data)
}

type bridgeSession struct {
	r      *Recognizer
	bridge *bridge
	emit   func(recognition.Event)
	once   sync.Once
}

// Close tells the browser to stop listening. It never waits on emit.
func (s *bridgeSession) Close() error {
	var err error
	s.once.Do(func() {
		s.r.mu.Lock()
		if s.r.active == s {
			s.r.active = nil
		}
		s.r.mu.Unlock()
		err = s.bridge.send(context.Background(), bridgeFrame{Type: "stop"})
	})
	return err
}

func NewRecognizer(logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Recognizer{logger: logger}
}

// Connected reports whether a bridge is attached.
func (r *Recognizer) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bridge != nil
}

// Open asks the connected browser to start continuous recognition.
func (r *Recognizer) Open(ctx context.Context, opts recognition.Options, emit func(recognition.Event)) (recognition.Session, error) {
	r.mu.Lock()
	b := r.bridge
	if b == nil {
		r.mu.Unlock()
		return nil, ErrNoBridge
	}
	sess := &bridgeSession{r: r, bridge: b, emit: emit}
	r.active = sess
	r.mu.Unlock()

	if err := b.send(ctx, bridgeFrame{Type: "start", Lang: opts.Lang}); err != nil {
		r.mu.Lock()
		if r.active == sess {
			r.active = nil
		}
		r.mu.Unlock()
		return nil, fmt.Errorf("start recognizer: %w", err)
	}
	return sess, nil
}

// ServeHTTP accepts a bridge connection and relays its events until it disconnects.
func (r *Recognizer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := websocket.Accept(w, req, nil)
	if err != nil {
		r.logger.Warn("recognizer bridge accept failed", "error", err.Error())
		return
	}

	b := &bridge{id: uuid.NewString(), conn: conn}
	r.attach(b)
	defer r.detach(b)

	logger := r.logger.With("bridge", b.id)
	logger.Info("recognizer bridge connected", "remote", req.RemoteAddr)

	ctx := req.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				logger.Info("recognizer bridge disconnected")
			} else {
				logger.Warn("recognizer bridge read failed", "error", err.Error())
			}
			return
		}

		var frame bridgeFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Debug("ignoring malformed bridge frame", "error", err.Error())
			continue
		}
		ev, ok := bridgeEvent(frame)
		if !ok {
			logger.Debug("ignoring unknown bridge frame", "type", frame.Type)
			continue
		}
		r.dispatch(b, ev)
	}
}

func (r *Recognizer) attach(b *bridge) {
	r.mu.Lock()
	prev := r.bridge
	orphan := r.sessionOn(prev)
	r.bridge = b
	r.mu.Unlock()

	if prev != nil {
		_ = prev.conn.Close(websocket.StatusPolicyViolation, "replaced by a newer bridge")
	}
	if orphan != nil {
		orphan.emit(recognition.Event{Kind: recognition.KindEnd})
	}
}

func (r *Recognizer) detach(b *bridge) {
	r.mu.Lock()
	orphan := r.sessionOn(b)
	if r.bridge == b {
		r.bridge = nil
	}
	r.mu.Unlock()

	_ = b.conn.Close(websocket.StatusNormalClosure, "")
	if orphan != nil {
		orphan.emit(recognition.Event{Kind: recognition.KindEnd})
	}
}

// sessionOn detaches and returns the active session when it runs on b. Callers hold mu.
func (r *Recognizer) sessionOn(b *bridge) *bridgeSession {
	if b == nil || r.active == nil || r.active.bridge != b {
		return nil
	}
	s := r.active
	r.active = nil
	return s
}

func (r *Recognizer) dispatch(b *bridge, ev recognition.Event) {
	r.mu.Lock()
	s := r.active
	r.mu.Unlock()
	if s == nil || s.bridge != b {
		return
	}
	s.emit(ev)
}

func bridgeEvent(frame bridgeFrame) (recognition.Event, bool) {
	switch frame.Type {
	case "result":
		return recognition.Event{
			Kind:  recognition.KindResult,
			Chunk: recognition.Chunk{Text: frame.Text, IsFinal: frame.IsFinal},
		}, true
	case "end":
		return recognition.Event{Kind: recognition.KindEnd}, true
	case "unsupported":
		return recognition.Event{Kind: recognition.KindError, Err: recognition.ErrUnsupported}, true
	case "error":
		return recognition.Event{Kind: recognition.KindError, Err: bridgeError(frame.Error)}, true
	default:
		return recognition.Event{}, false
	}
}

func bridgeError(code string) error {
	switch strings.TrimSpace(code) {
	case "no-speech":
		return recognition.ErrNoSpeech
	case "aborted":
		return recognition.ErrAborted
	case "":
		return errors.New("unknown")
	default:
		return errors.New(code)
	}
}
