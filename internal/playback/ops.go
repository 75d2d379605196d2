package playback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rbright/voiceprompt/internal/align"
	"github.com/rbright/voiceprompt/internal/fsm"
	"github.com/rbright/voiceprompt/internal/recognition"
	"github.com/rbright/voiceprompt/internal/script"
	"github.com/rbright/voiceprompt/internal/store"
)

// Start begins playback in the selected mode. It is a no-op when already active or when
// the script is empty.
func (c *Controller) Start(ctx context.Context) error { return c.do(ctx, c.start) }

// Stop halts playback. It is idempotent.
func (c *Controller) Stop(ctx context.Context) error { return c.do(ctx, c.stop) }

// Toggle stops when active, otherwise starts.
func (c *Controller) Toggle(ctx context.Context) error { return c.do(ctx, c.toggle) }

// Reset stops playback and moves the cursor to the first word.
func (c *Controller) Reset(ctx context.Context) error { return c.do(ctx, c.reset) }

// Nudge moves the cursor one word forward (delta > 0) or back (delta < 0).
func (c *Controller) Nudge(ctx context.Context, delta int) error {
	return c.do(ctx, c.nudge(delta))
}

// JumpSentence moves the cursor to the start of the sentence delta away.
func (c *Controller) JumpSentence(ctx context.Context, delta int) error {
	return c.do(ctx, c.jump(delta))
}

// SetSpeed changes the auto-scroll speed, retiming a running auto-scroll.
func (c *Controller) SetSpeed(ctx context.Context, speed int) error {
	return c.do(ctx, func() error { return c.setSpeed(speed) })
}

// SetMode switches between voice and auto, swapping mechanisms when running.
func (c *Controller) SetMode(ctx context.Context, mode Mode) error {
	return c.do(ctx, func() error { return c.setMode(mode) })
}

// LoadScript parses text and replaces the script, resetting the cursor. It fails with
// ErrScriptLocked while playback is active.
func (c *Controller) LoadScript(ctx context.Context, text string) error {
	return c.do(ctx, func() error { return c.loadScript(text) })
}

// UpdateSettings replaces the settings, applying mode and speed changes.
func (c *Controller) UpdateSettings(ctx context.Context, s store.Settings) error {
	return c.do(ctx, func() error { return c.updateSettings(s) })
}

// Restore applies a persisted record without starting playback.
func (c *Controller) Restore(ctx context.Context, rec store.Record) error {
	return c.do(ctx, func() error { return c.restore(rec) })
}

func (c *Controller) start() error {
	if fsm.Active(c.state) || c.cur.Len() == 0 {
		return nil
	}
	if err := c.transition(fsm.EventStart); err != nil {
		return err
	}

	c.mech++
	if !c.opts.Countdown {
		return c.begin()
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelCountdown = cancel
	gen := c.mech
	c.setStatus(StatusCountdown, "Starting…")
	go func() {
		err := c.countdown.Countdown(ctx)
		c.post(event{kind: evCountdownDone, gen: gen, err: err})
	}()
	return nil
}

func (c *Controller) onCountdownDone(err error) {
	c.cancelCountdown = nil
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.logger.Warn("countdown failed; starting anyway", "error", err.Error())
	}
	if err := c.begin(); err != nil {
		c.logger.Error("begin playback failed", "error", err.Error())
	}
}

// begin moves countdown -> running and starts the mechanism for the current mode.
func (c *Controller) begin() error {
	if err := c.transition(fsm.EventGo); err != nil {
		return err
	}
	c.logger.Info("playback started", "mode", string(c.mode()), "cursor", c.cur.Index())
	c.startMechanism()
	return nil
}

func (c *Controller) stop() error {
	if !fsm.Active(c.state) {
		if c.current.Kind != StatusStopped {
			c.setStatus(StatusStopped, "Stopped")
		}
		return nil
	}
	c.halt()
	return nil
}

// halt tears down every mechanism before the state becomes stopped.
func (c *Controller) halt() {
	if !fsm.Active(c.state) {
		return
	}
	c.stopMechanism()
	if err := c.transition(fsm.EventStop); err != nil {
		c.logger.Error("stop transition failed", "error", err.Error())
		return
	}
	c.logger.Info("playback stopped", "cursor", c.cur.Index())
	c.setStatus(StatusStopped, "Stopped")
}

func (c *Controller) toggle() error {
	if fsm.Active(c.state) {
		return c.stop()
	}
	return c.start()
}

func (c *Controller) reset() error {
	if err := c.stop(); err != nil {
		return err
	}
	c.cur.Reset()
	return nil
}

func (c *Controller) nudge(delta int) func() error {
	return func() error {
		c.cur.Step(delta)
		return nil
	}
}

func (c *Controller) jump(delta int) func() error {
	return func() error {
		c.cur.JumpToSentence(delta)
		return nil
	}
}

func (c *Controller) setSpeed(speed int) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w: %d (want %d-%d)", ErrInvalidSpeed, speed, MinSpeed, MaxSpeed)
	}
	if speed == c.settings.ScrollSpeed {
		return nil
	}
	c.settings.ScrollSpeed = speed
	if c.state == fsm.StateRunning && c.mode() == ModeAuto {
		c.stopMechanism()
		c.startTicker()
	}
	c.schedulePersist()
	return nil
}

func (c *Controller) setMode(mode Mode) error {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return err
	}
	if mode == c.mode() {
		return nil
	}
	c.settings.ScrollMode = string(mode)
	if c.state == fsm.StateRunning {
		c.stopMechanism()
		c.startMechanism()
	}
	c.schedulePersist()
	return nil
}

func (c *Controller) loadScript(text string) error {
	if fsm.Active(c.state) {
		return ErrScriptLocked
	}
	c.cur.Load(script.Parse(text))
	c.schedulePersist()
	return nil
}

func (c *Controller) updateSettings(s store.Settings) error {
	mode := c.mode()
	if s.ScrollMode != "" {
		parsed, err := ParseMode(s.ScrollMode)
		if err != nil {
			return err
		}
		mode = parsed
	}
	speed := c.settings.ScrollSpeed
	if s.ScrollSpeed != 0 {
		if s.ScrollSpeed < MinSpeed || s.ScrollSpeed > MaxSpeed {
			return fmt.Errorf("%w: %d (want %d-%d)", ErrInvalidSpeed, s.ScrollSpeed, MinSpeed, MaxSpeed)
		}
		speed = s.ScrollSpeed
	}
	if s.Lang == "" {
		s.Lang = c.settings.Lang
	}

	s.ScrollMode = c.settings.ScrollMode
	s.ScrollSpeed = c.settings.ScrollSpeed
	c.settings = s
	if err := c.setMode(mode); err != nil {
		return err
	}
	if err := c.setSpeed(speed); err != nil {
		return err
	}
	c.schedulePersist()
	return nil
}

func (c *Controller) restore(rec store.Record) error {
	if fsm.Active(c.state) {
		return ErrScriptLocked
	}
	if strings.TrimSpace(rec.Script) != "" {
		c.cur.Load(script.Parse(rec.Script))
	}
	c.cur.Restore(rec.WordCursor)

	s := rec.Settings
	if s.FontSize > 0 {
		c.settings.FontSize = s.FontSize
	}
	if mode, err := ParseMode(s.ScrollMode); err == nil {
		c.settings.ScrollMode = string(mode)
	}
	if s.ScrollSpeed >= MinSpeed && s.ScrollSpeed <= MaxSpeed {
		c.settings.ScrollSpeed = s.ScrollSpeed
	}
	if s.Lang != "" {
		c.settings.Lang = s.Lang
	}
	if s.FontFamily != "" {
		c.settings.FontFamily = s.FontFamily
	}
	c.settings.Mirror = s.Mirror
	c.settings.LightMode = s.LightMode

	c.logger.Info("state restored", "words", c.cur.Len(), "cursor", c.cur.Index())
	return nil
}

func (c *Controller) startMechanism() {
	switch c.mode() {
	case ModeAuto:
		c.startTicker()
		c.setStatus(StatusAuto, "Auto-scrolling…")
	default:
		c.openRecognition()
	}
}

// stopMechanism cancels the ticker, countdown and recognizer synchronously and invalidates
// anything they already queued.
func (c *Controller) stopMechanism() {
	c.mech++
	if c.stopTicker != nil {
		c.stopTicker()
		c.stopTicker = nil
	}
	if c.cancelCountdown != nil {
		c.cancelCountdown()
		c.cancelCountdown = nil
	}
	c.dropSession()
}

func (c *Controller) startTicker() {
	interval := AutoInterval(c.settings.ScrollSpeed)
	gen := c.mech
	quit := make(chan struct{})
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-quit:
				return
			case <-t.C:
				if !c.post(event{kind: evTick, gen: gen}) {
					return
				}
			}
		}
	}()
	c.stopTicker = func() { close(quit) }
}

func (c *Controller) onTick() {
	if !c.cur.AtEnd() {
		c.cur.Step(1)
		return
	}
	c.stopMechanism()
	if err := c.transition(fsm.EventFinish); err != nil {
		c.logger.Error("finish transition failed", "error", err.Error())
		return
	}
	c.logger.Info("auto-scroll reached end of script")
	c.setStatus(StatusStopped, "Stopped")
}

func (c *Controller) openRecognition() {
	gen := c.mech
	opts := recognition.Options{Lang: c.settings.Lang, Continuous: true, InterimResults: true}
	sess, err := c.source.Open(c.ctx, opts, func(ev recognition.Event) {
		c.post(event{kind: evRecognition, gen: gen, rec: ev})
	})
	switch {
	case errors.Is(err, recognition.ErrUnsupported):
		c.setStatus(StatusUnsupported, "Speech recognition not supported")
		return
	case err != nil:
		c.logger.Warn("recognizer open failed", "error", err.Error())
		c.setStatus(StatusRetrying, fmt.Sprintf("Voice error: %s (retrying…)", err))
		c.scheduleRestart(c.opts.ErrorRetryDelay, "error")
		return
	}
	c.session = sess
	c.lastInterim = ""
	c.setStatus(StatusListening, "Listening…")
}

// dropSession closes the live recognizer session, if any, and retires its generation.
func (c *Controller) dropSession() {
	if c.session == nil {
		return
	}
	if err := c.session.Close(); err != nil {
		c.logger.Debug("recognizer close failed", "error", err.Error())
	}
	c.session = nil
	c.mech++
}

func (c *Controller) scheduleRestart(delay time.Duration, reason string) {
	gen := c.mech
	c.metrics.RecordRestart(c.ctx, reason)
	time.AfterFunc(delay, func() {
		c.post(event{kind: evRestart, gen: gen})
	})
}

func (c *Controller) onRecognition(ev recognition.Event) {
	switch ev.Kind {
	case recognition.KindResult:
		c.onChunk(ev.Chunk)
	case recognition.KindEnd:
		c.dropSession()
		c.scheduleRestart(c.opts.EndRetryDelay, "end")
	case recognition.KindError:
		switch {
		case recognition.Ignorable(ev.Err):
			return
		case errors.Is(ev.Err, recognition.ErrUnsupported):
			c.dropSession()
			c.setStatus(StatusUnsupported, "Speech recognition not supported")
		default:
			msg := "unknown"
			if ev.Err != nil {
				msg = ev.Err.Error()
			}
			c.logger.Warn("recognizer error", "error", msg)
			c.dropSession()
			c.setStatus(StatusRetrying, fmt.Sprintf("Voice error: %s (retrying…)", msg))
			c.scheduleRestart(c.opts.ErrorRetryDelay, "error")
		}
	}
}

func (c *Controller) onChunk(chunk recognition.Chunk) {
	text := strings.TrimSpace(chunk.Text)
	if text == "" {
		return
	}

	if chunk.IsFinal {
		c.alignChunk("final", text)
	} else if text != c.lastInterim && len(text) > c.opts.InterimMinChars {
		c.lastInterim = text
		c.alignChunk("interim", align.TailWords(text, c.opts.InterimTailWords))
	}

	c.setStatus(StatusHeard, `"`+lastRunes(text, 80)+`"`)
}

func (c *Controller) alignChunk(kind, heard string) {
	started := time.Now()
	res := c.engine.Align(c.cur.Script(), c.cur.Index(), heard)
	c.metrics.RecordAlign(c.ctx, kind, time.Since(started), res.Advanced())
	if res.Moved {
		c.cur.AdvanceTo(res.To)
	}
}

func lastRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[len(r)-n:])
}
