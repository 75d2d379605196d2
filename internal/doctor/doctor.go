// Package doctor runs readiness diagnostics for config, listeners, persistence, the
// indicator backend, and audio input.
package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rbright/voiceprompt/internal/audio"
	"github.com/rbright/voiceprompt/internal/config"
	"github.com/rbright/voiceprompt/internal/hypr"
	"github.com/rbright/voiceprompt/internal/logging"
	"github.com/rbright/voiceprompt/internal/playback"
	"github.com/rbright/voiceprompt/internal/remote"
	"github.com/rbright/voiceprompt/internal/store"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	lines := make([]string, 0, len(r.Checks))
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", status, check.Name, check.Message))
	}
	return strings.Join(lines, "\n")
}

var listDevices = audio.ListDevices

// Run executes every check that applies to the loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	checks = append(checks, checkServer(ctx, cfg.Server.Listen))
	if cfg.Remote.Enable {
		checks = append(checks, checkRemote(ctx, cfg.Remote.Listen))
	}
	if cfg.Persist.Enable {
		checks = append(checks, checkPersist(cfg.Persist))
	}

	if cfg.Indicator.Enable {
		if strings.EqualFold(cfg.Indicator.Backend, config.IndicatorDesktop) {
			checks = append(checks, checkBinary("busctl", "desktop notifications use busctl"))
		} else {
			checks = append(checks, checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
				return strings.TrimSpace(v) != ""
			}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"))
			checks = append(checks, checkHyprctl(ctx))
		}
	}

	if cfg.Recognition.Source == config.RecognitionBridge {
		checks = append(checks, checkAudioInput(ctx, cfg.Audio.Input))
	}

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	}
	message := fmt.Sprintf("loaded %q (%s)", loaded.Path, loaded.Format)
	if n := len(loaded.Warnings); n > 0 {
		message += fmt.Sprintf(", %d warning(s)", n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	if predicate(os.Getenv(name)) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkServer passes when the listen address is free, or when a voiceprompt instance
// already answers /healthz on it.
func checkServer(ctx context.Context, addr string) Check {
	check := checkListen("server.listen", addr)
	if check.Pass || !strings.Contains(check.Message, "in use") {
		return check
	}

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, "http://"+addr+"/healthz", nil)
	if err != nil {
		return check
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return check
	}
	defer resp.Body.Close()

	var health struct {
		OK    bool   `json:"ok"`
		State string `json:"state"`
	}
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&health) != nil || !health.OK {
		return check
	}
	return Check{Name: "server.listen", Pass: true, Message: fmt.Sprintf("voiceprompt already serving on %s (state %s)", addr, health.State)}
}

// checkRemote is checkServer for the gRPC listener: a voiceprompt remote answering a
// status command counts as healthy.
func checkRemote(ctx context.Context, addr string) Check {
	check := checkListen("remote.listen", addr)
	if check.Pass || !strings.Contains(check.Message, "in use") {
		return check
	}

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	client, err := remote.Dial(probeCtx, addr, time.Second)
	if err != nil {
		return check
	}
	defer client.Close()

	st, err := client.Command(probeCtx, playback.Command{Action: playback.ActionStatus})
	if err != nil {
		return check
	}
	return Check{Name: "remote.listen", Pass: true, Message: fmt.Sprintf("voiceprompt remote already serving on %s (%d words loaded)", addr, st.TotalWords)}
}

// checkHyprctl confirms hyprctl is installed and the compositor answers a monitor query.
func checkHyprctl(ctx context.Context) Check {
	check := checkBinary("hyprctl", "hypr notifications use hyprctl")
	if !check.Pass {
		return check
	}

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	monitor, err := hypr.FocusedMonitor(probeCtx)
	if err != nil {
		return Check{Name: "hyprctl", Pass: false, Message: err.Error()}
	}
	return Check{Name: "hyprctl", Pass: true, Message: fmt.Sprintf("compositor answers (focused monitor %s)", monitor)}
}

func checkListen(name, addr string) Check {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is in use", addr)}
		}
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	_ = ln.Close()
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s is available", addr)}
}

// checkPersist confirms the state file's directory can be created and written.
func checkPersist(cfg config.PersistConfig) Check {
	stateDir, err := logging.StateDir()
	if err != nil {
		return Check{Name: "persist", Pass: false, Message: err.Error()}
	}
	path, err := store.ResolvePath(stateDir, cfg.Backend, cfg.Path)
	if err != nil {
		return Check{Name: "persist", Pass: false, Message: err.Error()}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Check{Name: "persist", Pass: false, Message: fmt.Sprintf("create %s: %v", dir, err)}
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Check{Name: "persist", Pass: false, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	return Check{Name: "persist", Pass: true, Message: fmt.Sprintf("%s backend at %s", cfg.Backend, path)}
}

// checkAudioInput resolves audio.input against live Pulse sources.
func checkAudioInput(ctx context.Context, input string) Check {
	devices, err := listDevices(ctx)
	if err != nil {
		return Check{Name: "audio.input", Pass: false, Message: err.Error()}
	}
	dev, err := audio.Resolve(devices, input)
	if err != nil {
		return Check{Name: "audio.input", Pass: false, Message: err.Error()}
	}
	switch {
	case dev.Muted:
		return Check{Name: "audio.input", Pass: false, Message: fmt.Sprintf("%q is muted", dev.ID)}
	case !dev.Available:
		return Check{Name: "audio.input", Pass: false, Message: fmt.Sprintf("%q is not available", dev.ID)}
	}
	return Check{Name: "audio.input", Pass: true, Message: fmt.Sprintf("using %q (%s)", dev.ID, dev.State)}
}
