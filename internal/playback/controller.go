// Package playback owns the teleprompter cursor and serializes every change to it.
//
// All mutations run on one loop goroutine (Run). Commands, auto-scroll ticks, countdown
// completion, recognizer events and recognizer restarts are events on a single channel,
// processed one at a time in arrival order. Each advance mechanism is tagged with a
// generation number; stopping bumps the generation so anything a torn-down mechanism had
// already queued is dropped.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/voiceprompt/internal/align"
	"github.com/rbright/voiceprompt/internal/cursor"
	"github.com/rbright/voiceprompt/internal/fsm"
	"github.com/rbright/voiceprompt/internal/logging"
	"github.com/rbright/voiceprompt/internal/observe"
	"github.com/rbright/voiceprompt/internal/recognition"
	"github.com/rbright/voiceprompt/internal/script"
	"github.com/rbright/voiceprompt/internal/store"
)

// Options tune controller timing and defaults.
type Options struct {
	Countdown        bool
	EndRetryDelay    time.Duration
	ErrorRetryDelay  time.Duration
	InterimTailWords int
	InterimMinChars  int
	Settings         store.Settings
}

// DefaultOptions mirrors the recognizer restart delays and interim handling of the web
// teleprompter.
func DefaultOptions() Options {
	return Options{
		Countdown:        true,
		EndRetryDelay:    100 * time.Millisecond,
		ErrorRetryDelay:  500 * time.Millisecond,
		InterimTailWords: 8,
		InterimMinChars:  5,
		Settings: store.Settings{
			ScrollMode:  string(ModeVoice),
			ScrollSpeed: DefaultSpeed,
			Lang:        "en-US",
		},
	}
}

// Config wires a controller. Nil collaborators get safe fallbacks.
type Config struct {
	Logger    *slog.Logger
	Engine    *align.Engine
	Source    recognition.Source
	Status    StatusSink
	Countdown Countdown
	Persist   Persister
	Metrics   *observe.Metrics
	Options   Options
}

type eventKind int

const (
	evCommand eventKind = iota + 1
	evTick
	evCountdownDone
	evRecognition
	evRestart
)

type event struct {
	kind  eventKind
	gen   uint64
	fn    func() error
	reply chan error
	rec   recognition.Event
	err   error
}

// Controller is the only writer of the cursor.
type Controller struct {
	logger    *slog.Logger
	engine    *align.Engine
	source    recognition.Source
	status    StatusSink
	countdown Countdown
	persist   Persister
	metrics   *observe.Metrics
	opts      Options

	events  chan event
	done    chan struct{}
	runOnce sync.Once

	// Owned by the loop goroutine.
	ctx             context.Context
	cur             *cursor.State
	state           fsm.State
	settings        store.Settings
	current         Status
	mech            uint64
	stopTicker      func()
	cancelCountdown context.CancelFunc
	session         recognition.Session
	lastInterim     string

	mu   sync.RWMutex
	snap Snapshot
	seq  uint64
}

// NewController constructs a stopped controller with an empty script.
func NewController(cfg Config) *Controller {
	def := DefaultOptions()
	opts := cfg.Options
	if opts.EndRetryDelay <= 0 {
		opts.EndRetryDelay = def.EndRetryDelay
	}
	if opts.ErrorRetryDelay <= 0 {
		opts.ErrorRetryDelay = def.ErrorRetryDelay
	}
	if opts.InterimTailWords <= 0 {
		opts.InterimTailWords = def.InterimTailWords
	}
	if opts.InterimMinChars < 0 {
		opts.InterimMinChars = def.InterimMinChars
	}
	if _, err := ParseMode(opts.Settings.ScrollMode); err != nil {
		opts.Settings.ScrollMode = def.Settings.ScrollMode
	}
	if opts.Settings.ScrollSpeed < MinSpeed || opts.Settings.ScrollSpeed > MaxSpeed {
		opts.Settings.ScrollSpeed = def.Settings.ScrollSpeed
	}
	if strings.TrimSpace(opts.Settings.Lang) == "" {
		opts.Settings.Lang = def.Settings.Lang
	}

	c := &Controller{
		logger:    cfg.Logger,
		engine:    cfg.Engine,
		source:    cfg.Source,
		status:    cfg.Status,
		countdown: cfg.Countdown,
		persist:   cfg.Persist,
		metrics:   cfg.Metrics,
		opts:      opts,
		events:    make(chan event, 64),
		done:      make(chan struct{}),
		ctx:       context.Background(),
		cur:       cursor.New(script.Script{}),
		state:     fsm.StateStopped,
		settings:  opts.Settings,
		current:   Status{Kind: StatusStopped, Message: "Stopped"},
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	if c.engine == nil {
		c.engine = align.New(align.DefaultParams())
	}
	if c.source == nil {
		c.source = recognition.Unavailable{}
	}
	if c.status == nil {
		c.status = noopStatus{}
	}
	if c.countdown == nil {
		c.countdown = TimedCountdown{}
	}
	if c.persist == nil {
		c.persist = noopPersister{}
	}
	if c.metrics == nil {
		c.metrics = observe.Discard()
	}
	c.publish()
	return c
}

// Run processes events until ctx is cancelled, then halts any live mechanism. It may be
// called once.
func (c *Controller) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("playback controller already running")
	}
	defer close(c.done)

	c.ctx = ctx
	for {
		select {
		case <-ctx.Done():
			c.halt()
			c.publish()
			return nil
		case ev := <-c.events:
			err := c.handle(ev)
			c.publish()
			if ev.reply != nil {
				ev.reply <- err
			}
		}
	}
}

// Snapshot returns the most recently published state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// State returns the current FSM state.
func (c *Controller) State() fsm.State {
	return c.Snapshot().State
}

func (c *Controller) publish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.snap = Snapshot{
		State:    c.state,
		Cursor:   c.cur.Index(),
		Script:   c.cur.Script(),
		Settings: c.settings,
		Status:   c.current,
		Seq:      c.seq,
	}
}

// do runs fn on the loop and waits for its result.
func (c *Controller) do(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	select {
	case c.events <- event{kind: evCommand, fn: fn, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrClosed
		}
	}
}

// post enqueues an asynchronous event. It reports false once the loop has exited.
func (c *Controller) post(ev event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Controller) handle(ev event) error {
	switch ev.kind {
	case evCommand:
		return ev.fn()
	case evTick:
		if c.stale(ev) {
			return nil
		}
		c.onTick()
	case evCountdownDone:
		if ev.gen != c.mech || c.state != fsm.StateCountdown {
			return nil
		}
		c.onCountdownDone(ev.err)
	case evRecognition:
		if c.stale(ev) {
			return nil
		}
		c.onRecognition(ev.rec)
	case evRestart:
		if c.stale(ev) || c.mode() != ModeVoice {
			return nil
		}
		c.openRecognition()
	}
	return nil
}

// stale reports whether ev came from a mechanism that has since been torn down.
func (c *Controller) stale(ev event) bool {
	return ev.gen != c.mech || c.state != fsm.StateRunning
}

func (c *Controller) mode() Mode {
	return Mode(c.settings.ScrollMode)
}

func (c *Controller) setStatus(kind StatusKind, message string) {
	c.current = Status{Kind: kind, Message: message}
	c.status.Status(c.ctx, c.current)
}

func (c *Controller) transition(event fsm.Event) error {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

func (c *Controller) schedulePersist() {
	c.persist.Schedule(store.Record{
		Script:     c.cur.Script().Text,
		Settings:   c.settings,
		WordCursor: c.cur.Index(),
	})
}
