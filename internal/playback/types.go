package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rbright/voiceprompt/internal/cursor"
	"github.com/rbright/voiceprompt/internal/fsm"
	"github.com/rbright/voiceprompt/internal/script"
	"github.com/rbright/voiceprompt/internal/store"
)

var (
	// ErrScriptLocked rejects script replacement while playback is active.
	ErrScriptLocked = errors.New("script cannot change while playback is running")
	// ErrUnknownAction is returned for a command whose action is not recognized.
	ErrUnknownAction = errors.New("unknown action")
	// ErrMissingAction is returned for a command without an action.
	ErrMissingAction = errors.New("missing action")
	// ErrInvalidSpeed is returned for a scroll speed outside [MinSpeed, MaxSpeed].
	ErrInvalidSpeed = errors.New("invalid scroll speed")
	// ErrInvalidMode is returned for a scroll mode other than voice or auto.
	ErrInvalidMode = errors.New("invalid scroll mode")
	// ErrClosed is returned once the controller loop has exited.
	ErrClosed = errors.New("playback controller closed")
)

// Mode selects the advance mechanism.
type Mode string

const (
	ModeVoice Mode = "voice"
	ModeAuto  Mode = "auto"
)

// ParseMode accepts "voice" or "auto", case-insensitively.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeVoice:
		return ModeVoice, nil
	case ModeAuto:
		return ModeAuto, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, raw)
	}
}

const (
	MinSpeed     = 1
	MaxSpeed     = 10
	DefaultSpeed = 3
)

// AutoInterval maps a scroll speed to the auto-scroll tick period: 800ms at speed 1 down
// to 150ms at speed 10.
func AutoInterval(speed int) time.Duration {
	speed = min(max(speed, MinSpeed), MaxSpeed)
	ms := math.Round(800 - float64(speed-1)*(650.0/9))
	return time.Duration(ms) * time.Millisecond
}

// StatusKind classifies user-visible playback status.
type StatusKind string

const (
	StatusStopped     StatusKind = "stopped"
	StatusCountdown   StatusKind = "countdown"
	StatusListening   StatusKind = "listening"
	StatusHeard       StatusKind = "heard"
	StatusAuto        StatusKind = "auto"
	StatusRetrying    StatusKind = "retrying"
	StatusUnsupported StatusKind = "unsupported"
)

// Status is a user-visible playback message.
type Status struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message"`
}

// StatusSink receives every status change from the playback loop. Implementations must
// return promptly.
type StatusSink interface {
	Status(context.Context, Status)
}

// Countdown runs before playback starts. Returning an error (including ctx cancellation)
// aborts the start.
type Countdown interface {
	Countdown(context.Context) error
}

// Persister receives the record to save after script or settings changes.
type Persister interface {
	Schedule(store.Record)
}

type noopStatus struct{}

func (noopStatus) Status(context.Context, Status) {}

type noopPersister struct{}

func (noopPersister) Schedule(store.Record) {}

// Snapshot is an immutable view of playback state published after every event.
type Snapshot struct {
	State    fsm.State
	Cursor   int
	Script   script.Script
	Settings store.Settings
	Status   Status
	Seq      uint64
}

// Running reports whether an advance mechanism is live. Countdown is not running.
func (s Snapshot) Running() bool {
	return s.State == fsm.StateRunning
}

// Mode returns the selected scroll mode.
func (s Snapshot) Mode() Mode {
	return Mode(s.Settings.ScrollMode)
}

// Speed returns the selected auto-scroll speed.
func (s Snapshot) Speed() int {
	return s.Settings.ScrollSpeed
}

// Sentence returns the 0-based sentence under the cursor.
func (s Snapshot) Sentence() int {
	return s.cursorState().Sentence()
}

// Progress returns the percentage of the script covered.
func (s Snapshot) Progress() float64 {
	return cursor.ProgressPct(s.Cursor, s.Script.Len())
}

// ReadingLeft estimates the reading time from the cursor word to the end of the script.
func (s Snapshot) ReadingLeft() string {
	return script.FormatReadingTime(s.Script.Len() - s.Cursor)
}

// Position renders "sentence S/T · word W/N".
func (s Snapshot) Position() string {
	return s.cursorState().Position()
}

// Record returns the persisted form of the snapshot.
func (s Snapshot) Record() store.Record {
	return store.Record{Script: s.Script.Text, Settings: s.Settings, WordCursor: s.Cursor}
}

func (s Snapshot) cursorState() *cursor.State {
	st := cursor.New(s.Script)
	st.Restore(s.Cursor)
	return st
}
