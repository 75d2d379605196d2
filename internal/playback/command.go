package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Remote command actions.
const (
	ActionStart        = "start"
	ActionStop         = "stop"
	ActionToggle       = "toggle"
	ActionNudgeForward = "nudge_forward"
	ActionNudgeBack    = "nudge_back"
	ActionNextSentence = "next_sentence"
	ActionPrevSentence = "prev_sentence"
	ActionReset        = "reset"
	ActionSetSpeed     = "set_speed"
	ActionSetMode      = "set_mode"
	ActionLoadScript   = "load_script"
	ActionStatus       = "status"
)

// ErrInvalidValue is returned when a command value has the wrong shape.
var ErrInvalidValue = errors.New("invalid command value")

// Command is one inbound control request. Value is decoded JSON: a number or a string.
type Command struct {
	Action string `json:"action"`
	Value  any    `json:"value,omitempty"`
}

// Apply runs cmd on the loop and returns the state published afterwards.
func (c *Controller) Apply(ctx context.Context, cmd Command) (Snapshot, error) {
	fn, err := c.commandFunc(cmd)
	if err != nil {
		return c.Snapshot(), err
	}
	if fn == nil {
		return c.Snapshot(), nil
	}
	if err := c.do(ctx, fn); err != nil {
		return c.Snapshot(), err
	}
	return c.Snapshot(), nil
}

func (c *Controller) commandFunc(cmd Command) (func() error, error) {
	action := strings.ToLower(strings.TrimSpace(cmd.Action))
	switch action {
	case "":
		return nil, ErrMissingAction
	case ActionStatus:
		return nil, nil
	case ActionStart:
		return c.start, nil
	case ActionStop:
		return c.stop, nil
	case ActionToggle:
		return c.toggle, nil
	case ActionReset:
		return c.reset, nil
	case ActionNudgeForward:
		return c.nudge(1), nil
	case ActionNudgeBack:
		return c.nudge(-1), nil
	case ActionNextSentence:
		return c.jump(1), nil
	case ActionPrevSentence:
		return c.jump(-1), nil
	case ActionSetSpeed:
		speed, err := IntValue(cmd.Value)
		if err != nil {
			return nil, err
		}
		return func() error { return c.setSpeed(speed) }, nil
	case ActionSetMode:
		raw, ok := cmd.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: mode must be a string", ErrInvalidValue)
		}
		mode, err := ParseMode(raw)
		if err != nil {
			return nil, err
		}
		return func() error { return c.setMode(mode) }, nil
	case ActionLoadScript:
		text, ok := cmd.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: script must be a string", ErrInvalidValue)
		}
		return func() error { return c.loadScript(text) }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
}

// IntValue converts a decoded command value to an int. Numeric strings are accepted.
func IntValue(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidValue, n)
		}
		return i, nil
	case nil:
		return 0, fmt.Errorf("%w: missing value", ErrInvalidValue)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidValue, v)
	}
}
