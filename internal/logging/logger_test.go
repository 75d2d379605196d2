package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateDirUsesXDGStateHome(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("HOME", t.TempDir())

	dir, err := StateDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdgStateHome, "voiceprompt"), dir)
}

func TestStateDirFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", home)

	dir, err := StateDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "state", "voiceprompt"), dir)
}

func TestNewCreatesWritableJSONLogFile(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	runtime, err := New("info")
	require.NoError(t, err)

	runtime.Logger.Info("unit-test-log", "component", "logging")
	runtime.Logger.Debug("filtered-out")
	require.NoError(t, runtime.Close())

	contents, err := os.ReadFile(runtime.Path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"msg":"unit-test-log"`)
	require.Contains(t, string(contents), `"component":"logging"`)
	require.Contains(t, string(contents), `"app":"voiceprompt"`)
	require.NotContains(t, string(contents), "filtered-out")
	require.Equal(t, "log.jsonl", filepath.Base(runtime.Path))

	stat, err := os.Stat(runtime.Path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLevel(" WARN "))
	require.Equal(t, slog.LevelInfo, parseLevel(""))
	require.Equal(t, slog.LevelInfo, parseLevel("loud"))
}
