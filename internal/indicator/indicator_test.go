package indicator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rbright/voiceprompt/internal/config"
	"github.com/rbright/voiceprompt/internal/playback"
	"github.com/stretchr/testify/require"
)

type cueRecorder struct {
	mu    sync.Mutex
	kinds []cueKind
}

func (r *cueRecorder) play(kind cueKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	return nil
}

func (r *cueRecorder) played() []cueKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]cueKind(nil), r.kinds...)
}

func newTestNotifier(cfg config.IndicatorConfig) (*Notifier, *cueRecorder) {
	n := New(cfg, nil)
	n.messages = indicatorMessages(localeEnglish)
	rec := &cueRecorder{}
	n.cueFn = rec.play
	return n, rec
}

func TestNotifierDispatchesStatusToHyprctl(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	n, _ := newTestNotifier(cfg)

	ctx := context.Background()
	for _, status := range []playback.Status{
		{Kind: playback.StatusCountdown, Message: "Starting…"},
		{Kind: playback.StatusListening, Message: "Listening…"},
		{Kind: playback.StatusHeard, Message: `"hello"`},
		{Kind: playback.StatusRetrying, Message: "Voice error: network (retrying…)"},
		{Kind: playback.StatusAuto},
		{Kind: playback.StatusStopped, Message: "Stopped"},
	} {
		n.Status(ctx, status)
		n.Wait()
	}

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Equal(t, []string{
		"--quiet dispatch notify 1 300000 rgb(f9e2af) Starting…",
		"--quiet dispatch notify 1 300000 rgb(89b4fa) Listening…",
		"--quiet dispatch notify 3 1600 rgb(f38ba8) Voice error: network (retrying…)",
		"--quiet dispatch notify 1 300000 rgb(a6e3a1) Auto-scrolling…",
		"--quiet dispatch dismissnotify",
	}, lines)
}

func TestNotifierCuesOnRunningEdges(t *testing.T) {
	installHyprctlStub(t, "exit 0")

	cfg := config.Default().Indicator
	n, rec := newTestNotifier(cfg)

	ctx := context.Background()
	n.Status(ctx, playback.Status{Kind: playback.StatusCountdown})
	n.Status(ctx, playback.Status{Kind: playback.StatusListening})
	n.Status(ctx, playback.Status{Kind: playback.StatusHeard})
	n.Status(ctx, playback.Status{Kind: playback.StatusListening})
	n.Status(ctx, playback.Status{Kind: playback.StatusStopped})
	n.Status(ctx, playback.Status{Kind: playback.StatusStopped})
	n.Status(ctx, playback.Status{Kind: playback.StatusUnsupported})
	n.Wait()

	require.ElementsMatch(t, []cueKind{cueStart, cueStop, cueError}, rec.played())
}

func TestNotifierCountdownStep(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	n, rec := newTestNotifier(config.Default().Indicator)
	n.CountdownStep(context.Background(), 2)
	n.Wait()

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Equal(t, "--quiet dispatch notify 1 300000 rgb(f9e2af) Starting in 2…\n", string(data))
	require.Equal(t, []cueKind{cueTick}, rec.played())
}

func TestNotifierCountdownTicksEachStep(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Enable = false
	n, rec := newTestNotifier(cfg)

	err := n.Countdown(3, time.Millisecond).Countdown(context.Background())
	require.NoError(t, err)
	n.Wait()
	require.Equal(t, []cueKind{cueTick, cueTick, cueTick}, rec.played())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, n.Countdown(3, time.Hour).Countdown(ctx), context.Canceled)
	n.Wait()
}

func TestNotifierErrorUsesDefaultTextAndTimeout(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.ErrorTimeoutMS = 0
	n, _ := newTestNotifier(cfg)
	n.Status(context.Background(), playback.Status{Kind: playback.StatusUnsupported})
	n.Wait()

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Equal(t, "--quiet dispatch notify 3 1200 rgb(f38ba8) Speech recognition error\n", string(data))
}

func TestNotifierDisabledSkipsDispatchAndSound(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.SoundEnable = false
	n, rec := newTestNotifier(cfg)

	n.Status(context.Background(), playback.Status{Kind: playback.StatusListening})
	n.CountdownStep(context.Background(), 3)
	n.Status(context.Background(), playback.Status{Kind: playback.StatusStopped})
	n.Wait()

	_, err := os.Stat(argsFile)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Empty(t, rec.played())
}

func TestNotifierSurvivesCancelledContext(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	n, _ := newTestNotifier(config.Default().Indicator)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Status(ctx, playback.Status{Kind: playback.StatusStopped, Message: "Stopped"})
	n.Status(ctx, playback.Status{Kind: playback.StatusListening, Message: "Listening…"})
	n.Wait()

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "Listening…")
}

func TestDesktopBackendUsesBusctl(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installStub(t, "busctl", `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "$*" == *" Notify "* ]]; then
  echo 'u 42'
fi
`)

	cfg := config.Default().Indicator
	cfg.Backend = config.IndicatorDesktop
	cfg.DesktopAppName = "voiceprompt-test"
	n, _ := newTestNotifier(cfg)

	n.Status(context.Background(), playback.Status{Kind: playback.StatusListening, Message: "Listening…"})
	n.Wait()
	n.Status(context.Background(), playback.Status{Kind: playback.StatusStopped})
	n.Wait()

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "Notify susssasa{sv}i voiceprompt-test 0  Listening…")
	require.Contains(t, lines[1], "CloseNotification u 42")
}

func installHyprctlStub(t *testing.T, body string) {
	t.Helper()
	installStub(t, "hyprctl", body)
}

func installStub(t *testing.T, name, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
