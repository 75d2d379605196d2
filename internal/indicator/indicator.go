// Package indicator mirrors playback status on the desktop and plays short audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/voiceprompt/internal/config"
	"github.com/rbright/voiceprompt/internal/hypr"
	"github.com/rbright/voiceprompt/internal/playback"
)

const (
	colorListening = "rgb(89b4fa)"
	colorAuto      = "rgb(a6e3a1)"
	colorCountdown = "rgb(f9e2af)"
	colorError     = "rgb(f38ba8)"

	dispatchTimeout = 400 * time.Millisecond
	stickyTimeoutMS = 300000
)

// Notifier implements playback.StatusSink. Dispatch runs off the playback loop; when
// statuses arrive faster than hyprctl or busctl can show them only the newest is shown.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	notifyFn  func(ctx context.Context, icon, timeoutMS int, color, text string) error
	dismissFn func(ctx context.Context) error
	cueFn     func(cueKind) error

	latest     atomic.Uint64
	dispatchMu sync.Mutex
	soundMu    sync.Mutex
	wg         sync.WaitGroup

	mu                    sync.Mutex
	last                  playback.StatusKind
	desktopNotificationID uint32
}

// New creates a notifier routed through the configured backend.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	n := &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
		last:     playback.StatusStopped,
		cueFn:    emitCue,
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Backend), config.IndicatorDesktop) {
		n.notifyFn = n.notifyDesktop
		n.dismissFn = n.dismissDesktop
	} else {
		n.notifyFn = hypr.Notify
		n.dismissFn = hypr.DismissNotify
	}
	return n
}

// Status maps a playback status change to a notification and, on running edges, a cue.
// Heard-text updates are ignored; they change several times a second.
func (n *Notifier) Status(ctx context.Context, status playback.Status) {
	if status.Kind == playback.StatusHeard {
		return
	}

	n.mu.Lock()
	prev := n.last
	n.last = status.Kind
	n.mu.Unlock()

	switch {
	case isRunning(status.Kind) && !isRunning(prev):
		n.playCue(cueStart)
	case status.Kind == playback.StatusStopped && prev != playback.StatusStopped:
		n.playCue(cueStop)
	case status.Kind == playback.StatusUnsupported && prev != playback.StatusUnsupported:
		n.playCue(cueError)
	}

	if !n.cfg.Enable {
		return
	}
	n.dispatch(ctx, func(ctx context.Context) error {
		switch status.Kind {
		case playback.StatusStopped:
			return n.dismissFn(ctx)
		case playback.StatusCountdown:
			return n.notifyFn(ctx, 1, stickyTimeoutMS, colorCountdown, orDefault(status.Message, n.messages.starting))
		case playback.StatusListening:
			return n.notifyFn(ctx, 1, stickyTimeoutMS, colorListening, orDefault(status.Message, n.messages.listening))
		case playback.StatusAuto:
			return n.notifyFn(ctx, 1, stickyTimeoutMS, colorAuto, orDefault(status.Message, n.messages.auto))
		default:
			return n.notifyFn(ctx, 3, n.errorTimeout(), colorError, orDefault(status.Message, n.messages.errorText))
		}
	})
}

// CountdownStep shows the remaining count and plays a tick. It is the OnStep hook of
// playback.TimedCountdown.
func (n *Notifier) CountdownStep(ctx context.Context, remaining int) {
	n.playCue(cueTick)
	if !n.cfg.Enable {
		return
	}
	n.dispatch(ctx, func(ctx context.Context) error {
		return n.notifyFn(ctx, 1, stickyTimeoutMS, colorCountdown, n.messages.countdown(remaining))
	})
}

// Countdown returns a countdown that waits steps*step and announces each remaining step.
func (n *Notifier) Countdown(steps int, step time.Duration) playback.Countdown {
	return playback.TimedCountdown{Steps: steps, Step: step, OnStep: n.CountdownStep}
}

// Wait blocks until queued notifications and cues have finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) errorTimeout() int {
	if n.cfg.ErrorTimeoutMS <= 0 {
		return 1200
	}
	return n.cfg.ErrorTimeoutMS
}

// dispatch runs fn on its own goroutine. A dispatch superseded by a newer one before it
// acquires the lock is skipped.
func (n *Notifier) dispatch(ctx context.Context, fn func(context.Context) error) {
	seq := n.latest.Add(1)
	base := context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.dispatchMu.Lock()
		defer n.dispatchMu.Unlock()
		if n.latest.Load() != seq {
			return
		}

		runCtx, cancel := context.WithTimeout(base, dispatchTimeout)
		defer cancel()
		if err := fn(runCtx); err != nil {
			n.log("indicator dispatch failed", err)
		}
	}()
}

func (n *Notifier) notifyDesktop(ctx context.Context, _ int, timeoutMS int, _ string, text string) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "voiceprompt"
	}

	id, err := desktopNotify(ctx, appName, replaceID, text, timeoutMS)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.cueFn(kind); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}

func isRunning(kind playback.StatusKind) bool {
	switch kind {
	case playback.StatusListening, playback.StatusHeard, playback.StatusAuto, playback.StatusRetrying:
		return true
	default:
		return false
	}
}

func orDefault(text, fallback string) string {
	if strings.TrimSpace(text) == "" {
		return fallback
	}
	return text
}
