package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/voiceprompt/internal/config"
	"github.com/rbright/voiceprompt/internal/fsm"
	"github.com/rbright/voiceprompt/internal/ipc"
	"github.com/rbright/voiceprompt/internal/logging"
	"github.com/rbright/voiceprompt/internal/observe"
	"github.com/rbright/voiceprompt/internal/playback"
	"github.com/rbright/voiceprompt/internal/script"
	"github.com/rbright/voiceprompt/internal/store"
)

type stubCommander struct {
	got  []playback.Command
	snap playback.Snapshot
	err  error
}

func (s *stubCommander) Apply(_ context.Context, cmd playback.Command) (playback.Snapshot, error) {
	s.got = append(s.got, cmd)
	return s.snap, s.err
}

type kickCounter struct{ n int }

func (k *kickCounter) Kick() { k.n++ }

func newTestHandler(cmdr *stubCommander, hub *kickCounter) *controlHandler {
	return &controlHandler{ctrl: cmdr, hub: hub, metrics: observe.Discard(), logger: logging.Discard()}
}

func stoppedSnapshot() playback.Snapshot {
	return playback.Snapshot{
		Script:   script.Parse("One two. Three."),
		Cursor:   1,
		State:    fsm.StateStopped,
		Settings: store.Settings{ScrollMode: "voice", ScrollSpeed: 4, Lang: "en-US"},
		Status:   playback.Status{Kind: playback.StatusStopped, Message: "stopped"},
	}
}

func TestControlHandlerAppliesAndKicks(t *testing.T) {
	cmdr := &stubCommander{snap: stoppedSnapshot()}
	hub := &kickCounter{}
	h := newTestHandler(cmdr, hub)

	resp := h.Handle(context.Background(), ipc.Request{Command: "set_speed", Value: float64(4)})
	require.True(t, resp.OK)
	require.Equal(t, "stopped", resp.State)
	require.Equal(t, "voice", resp.Mode)
	require.Equal(t, 4, resp.Speed)
	require.Equal(t, "sentence 1/2 · word 2/3", resp.Position)
	require.Equal(t, 50.0, resp.Progress)
	require.Equal(t, "~1s read", resp.Reading)
	require.Equal(t, "stopped", resp.Message)
	require.Equal(t, []playback.Command{{Action: "set_speed", Value: float64(4)}}, cmdr.got)
	require.Equal(t, 1, hub.n)
}

func TestControlHandlerStatusDoesNotKick(t *testing.T) {
	cmdr := &stubCommander{snap: stoppedSnapshot()}
	hub := &kickCounter{}

	resp := newTestHandler(cmdr, hub).Handle(context.Background(), ipc.Request{Command: "status"})
	require.True(t, resp.OK)
	require.Zero(t, hub.n)
}

func TestControlHandlerReportsErrors(t *testing.T) {
	cmdr := &stubCommander{snap: stoppedSnapshot(), err: errors.New("unknown action \"dance\"")}
	hub := &kickCounter{}

	resp := newTestHandler(cmdr, hub).Handle(context.Background(), ipc.Request{Command: "dance"})
	require.False(t, resp.OK)
	require.Equal(t, "unknown action \"dance\"", resp.Error)
	require.Equal(t, "stopped", resp.State)
	require.Zero(t, hub.n)
}

func TestPlaybackOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Playback.Mode = "auto"
	cfg.Playback.Speed = 9
	cfg.Playback.Countdown = false

	opts := playbackOptions(cfg.Playback)
	require.False(t, opts.Countdown)
	require.Equal(t, "auto", opts.Settings.ScrollMode)
	require.Equal(t, 9, opts.Settings.ScrollSpeed)
	require.Equal(t, "en-US", opts.Settings.Lang)
	require.Equal(t, 8, opts.InterimTailWords)

	params := alignParams(cfg.Alignment)
	require.Equal(t, 30, params.LookAhead)
	require.Equal(t, 1.5, params.AdvancePerWord)
}
