// Package recognition defines the boundary to a live speech recognizer.
package recognition

import (
	"context"
	"errors"
)

var (
	// ErrUnsupported means no recognizer is available; callers should not retry.
	ErrUnsupported = errors.New("speech recognition not supported")
	// ErrNoSpeech is reported when the recognizer heard silence. It is not a failure.
	ErrNoSpeech = errors.New("no speech")
	// ErrAborted is reported when the recognizer session was torn down on purpose.
	ErrAborted = errors.New("aborted")
)

// Kind classifies recognizer events.
type Kind string

const (
	KindResult Kind = "result"
	KindEnd    Kind = "end"
	KindError  Kind = "error"
)

// Chunk is one piece of recognized text. Interim chunks may be revised by later ones.
type Chunk struct {
	Text    string
	IsFinal bool
}

// Event is delivered by a session to its emit callback.
type Event struct {
	Kind  Kind
	Chunk Chunk
	Err   error
}

// Options configure one recognizer session.
type Options struct {
	Lang           string
	Continuous     bool
	InterimResults bool
}

// Session is a live recognizer stream.
type Session interface {
	Close() error
}

// Source opens recognizer sessions. emit may be called from any goroutine until Close
// returns; events after that are allowed and must be tolerated by the receiver.
type Source interface {
	Open(ctx context.Context, opts Options, emit func(Event)) (Session, error)
}

// Ignorable reports whether err is a benign recognizer condition.
func Ignorable(err error) bool {
	return errors.Is(err, ErrNoSpeech) || errors.Is(err, ErrAborted)
}

// Unavailable is the fallback source used when no recognizer is wired.
type Unavailable struct{}

func (Unavailable) Open(context.Context, Options, func(Event)) (Session, error) {
	return nil, ErrUnsupported
}

// SessionFunc adapts a function to the Session interface.
type SessionFunc func() error

func (f SessionFunc) Close() error {
	return f()
}
