package doctor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rbright/voiceprompt/internal/audio"
	"github.com/rbright/voiceprompt/internal/config"
	"github.com/rbright/voiceprompt/internal/observe"
	"github.com/rbright/voiceprompt/internal/playback"
	"github.com/rbright/voiceprompt/internal/remote"
	"github.com/rbright/voiceprompt/internal/script"
	"github.com/stretchr/testify/require"
)

func stubDevices(t *testing.T, devices []audio.Device, err error) {
	t.Helper()
	orig := listDevices
	listDevices = func(context.Context) ([]audio.Device, error) { return devices, err }
	t.Cleanup(func() { listDevices = orig })
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func findCheck(t *testing.T, report Report, name string) Check {
	t.Helper()
	for _, check := range report.Checks {
		if check.Name == name {
			return check
		}
	}
	require.Failf(t, "check not found", "no check named %q", name)
	return Check{}
}

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	require.Equal(t, "[OK] one: good\n[FAIL] two: bad", report.String())
	require.True(t, Report{Checks: []Check{{Pass: true}}}.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "abc")

	check := checkEnv("TEST_DOCTOR_ENV", func(v string) bool { return v != "" }, "looks good", "unexpected")
	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckBinary(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")

	check = checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckListen(t *testing.T) {
	addr := freeAddr(t)
	require.True(t, checkListen("server.listen", addr).Pass)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	check := checkListen("server.listen", ln.Addr().String())
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "in use")
}

func TestCheckServerRecognizesRunningInstance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/healthz", r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true,"state":"running"}`))
	}))
	t.Cleanup(server.Close)

	check := checkServer(context.Background(), strings.TrimPrefix(server.URL, "http://"))
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "already serving")
}

func TestCheckServerFailsForForeignListener(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	check := checkServer(context.Background(), strings.TrimPrefix(server.URL, "http://"))
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "in use")
}

func TestCheckPersistWritable(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	check := checkPersist(config.PersistConfig{Enable: true, Backend: "file"})
	require.True(t, check.Pass, check.Message)
	require.Contains(t, check.Message, "state.json")
}

func TestCheckPersistUnwritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.Mkdir(locked, 0o500))

	check := checkPersist(config.PersistConfig{Enable: true, Backend: "sqlite", Path: filepath.Join(locked, "state.db")})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "not writable")
}

func TestCheckAudioInput(t *testing.T) {
	stubDevices(t, []audio.Device{
		{ID: "usb-mic", Description: "USB Mic", State: "idle", Available: true, Default: true},
		{ID: "headset", Description: "Headset", Available: true, Muted: true},
	}, nil)

	check := checkAudioInput(context.Background(), "default")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "usb-mic")

	check = checkAudioInput(context.Background(), "headset")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "muted")

	check = checkAudioInput(context.Background(), "missing")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "did not match")
}

func TestCheckAudioInputPulseFailure(t *testing.T) {
	stubDevices(t, nil, errors.New("connect pulse server: refused"))

	check := checkAudioInput(context.Background(), "default")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "connect pulse server")
}

func TestRunSelectsChecksFromConfig(t *testing.T) {
	stubDevices(t, []audio.Device{{ID: "mic", Available: true, Default: true}}, nil)
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "abc123")

	binDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "hyprctl"), []byte("#!/usr/bin/env sh\necho '[{\"name\":\"DP-1\",\"focused\":true}]'\n"), 0o755))
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))

	cfg := config.Default()
	cfg.Server.Listen = freeAddr(t)
	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Format: config.FormatJSONC, Config: cfg, Exists: true})

	require.True(t, report.OK(), report.String())
	require.Contains(t, findCheck(t, report, "config").Message, "jsonc")
	findCheck(t, report, "server.listen")
	findCheck(t, report, "persist")
	require.Contains(t, findCheck(t, report, "hyprctl").Message, "focused monitor DP-1")
	findCheck(t, report, "audio.input")
	for _, check := range report.Checks {
		require.NotEqual(t, "remote.listen", check.Name)
		require.NotEqual(t, "busctl", check.Name)
	}
}

func TestRunDesktopBackendWithoutVoice(t *testing.T) {
	stubDevices(t, nil, errors.New("must not be called"))

	cfg := config.Default()
	cfg.Server.Listen = freeAddr(t)
	cfg.Persist.Enable = false
	cfg.Indicator.Backend = config.IndicatorDesktop
	cfg.Recognition.Source = config.RecognitionNone
	cfg.Remote.Enable = true
	cfg.Remote.Listen = freeAddr(t)

	report := Run(context.Background(), config.Loaded{Path: "/tmp/missing.jsonc", Config: cfg})

	require.Contains(t, findCheck(t, report, "config").Message, "using defaults")
	require.True(t, findCheck(t, report, "remote.listen").Pass)
	findCheck(t, report, "busctl")
	for _, check := range report.Checks {
		require.NotEqual(t, "audio.input", check.Name)
		require.NotEqual(t, "persist", check.Name)
		require.NotEqual(t, "hyprctl", check.Name)
	}
}

func TestCheckHyprctlReportsQueryFailure(t *testing.T) {
	binDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "hyprctl"), []byte("#!/bin/sh\necho 'no socket' >&2\nexit 1\n"), 0o755))
	t.Setenv("PATH", binDir)

	check := checkHyprctl(context.Background())
	require.False(t, check.Pass)
	require.Equal(t, "hyprctl", check.Name)
}

type statusCommander struct{}

func (statusCommander) Apply(_ context.Context, cmd playback.Command) (playback.Snapshot, error) {
	return playback.Snapshot{Script: script.Parse("one two three")}, nil
}

func TestCheckRemoteRecognizesRunningInstance(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	srv := remote.NewServer(remote.Config{Metrics: observe.Discard(), Commander: statusCommander{}})
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	check := checkRemote(context.Background(), ln.Addr().String())
	require.True(t, check.Pass, check.Message)
	require.Contains(t, check.Message, "3 words loaded")
}

func TestCheckRemoteFailsForForeignListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	check := checkRemote(context.Background(), ln.Addr().String())
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "in use")
}
