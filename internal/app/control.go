package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rbright/voiceprompt/internal/cli"
	"github.com/rbright/voiceprompt/internal/ipc"
	"github.com/rbright/voiceprompt/internal/playback"
)

const forwardTimeout = 500 * time.Millisecond

// controlActions maps CLI commands to playback command actions.
var controlActions = map[cli.Command]string{
	cli.CommandStart:   playback.ActionStart,
	cli.CommandStop:    playback.ActionStop,
	cli.CommandToggle:  playback.ActionToggle,
	cli.CommandReset:   playback.ActionReset,
	cli.CommandForward: playback.ActionNudgeForward,
	cli.CommandBack:    playback.ActionNudgeBack,
	cli.CommandNext:    playback.ActionNextSentence,
	cli.CommandPrev:    playback.ActionPrevSentence,
	cli.CommandSpeed:   playback.ActionSetSpeed,
	cli.CommandMode:    playback.ActionSetMode,
	cli.CommandLoad:    playback.ActionLoadScript,
	cli.CommandStatus:  playback.ActionStatus,
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: playback.ActionStatus})
	if !handled {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, formatResponse(resp))
	return 0
}

func (r Runner) commandControl(ctx context.Context, parsed cli.Parsed) int {
	action, ok := controlActions[parsed.Command]
	if !ok {
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}

	req := ipc.Request{Command: action}
	switch parsed.Command {
	case cli.CommandSpeed, cli.CommandMode:
		req.Value = strings.TrimSpace(parsed.Arg)
	case cli.CommandLoad:
		text, err := r.readScript(parsed.Arg)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		req.Value = text
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: voiceprompt is not running (start it with `voiceprompt serve`)")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, formatResponse(resp))
	return 0
}

func (r Runner) readScript(path string) (string, error) {
	if path == "-" {
		in := r.Stdin
		if in == nil {
			in = os.Stdin
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read script from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(data), nil
}

// formatResponse renders "state · mode · speed N · position · NN% · ~Ns read".
func formatResponse(resp ipc.Response) string {
	parts := []string{resp.State}
	if resp.Mode != "" {
		parts = append(parts, resp.Mode)
	}
	if resp.Speed > 0 {
		parts = append(parts, fmt.Sprintf("speed %d", resp.Speed))
	}
	if resp.Position != "" {
		parts = append(parts, resp.Position, fmt.Sprintf("%.0f%%", resp.Progress))
	}
	if resp.Reading != "" {
		parts = append(parts, resp.Reading)
	}
	return strings.Join(parts, " · ")
}

// tryForward sends req to a running server. handled is false when nobody is listening.
func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) || isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}
	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
