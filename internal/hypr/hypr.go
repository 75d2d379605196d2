// Package hypr wraps the hyprctl commands voiceprompt uses for on-screen status.
package hypr

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultColor is used when Notify is called without a color.
const DefaultColor = "rgb(89b4fa)"

// Notify shows a Hyprland notification for timeoutMS milliseconds.
func Notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = DefaultColor
	}
	return run(ctx, "--quiet", "dispatch", "notify", strconv.Itoa(icon), strconv.Itoa(timeoutMS), color, text)
}

// DismissNotify clears every visible Hyprland notification.
func DismissNotify(ctx context.Context) error {
	return run(ctx, "--quiet", "dispatch", "dismissnotify")
}

// FocusedMonitor returns the focused monitor name, or the first monitor when none
// reports focus. doctor uses it to confirm the compositor answers.
func FocusedMonitor(ctx context.Context) (string, error) {
	out, err := output(ctx, "-j", "monitors")
	if err != nil {
		return "", err
	}

	var monitors []struct {
		Name    string `json:"name"`
		Focused bool   `json:"focused"`
	}
	if err := json.Unmarshal(out, &monitors); err != nil {
		return "", fmt.Errorf("decode hyprctl monitors json: %w", err)
	}
	if len(monitors) == 0 {
		return "", fmt.Errorf("hyprctl monitors returned no outputs")
	}
	for _, mon := range monitors {
		if mon.Focused {
			return strings.TrimSpace(mon.Name), nil
		}
	}
	return strings.TrimSpace(monitors[0].Name), nil
}

func run(ctx context.Context, args ...string) error {
	_, err := output(ctx, args...)
	return err
}

func output(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "hyprctl", args...).CombinedOutput()
	if err != nil {
		if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
			return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
		}
		return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
	}
	return out, nil
}
