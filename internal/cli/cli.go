// Package cli parses voiceprompt's command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandServe   Command = "serve"
	CommandStart   Command = "start"
	CommandStop    Command = "stop"
	CommandToggle  Command = "toggle"
	CommandReset   Command = "reset"
	CommandForward Command = "forward"
	CommandBack    Command = "back"
	CommandNext    Command = "next"
	CommandPrev    Command = "prev"
	CommandSpeed   Command = "speed"
	CommandMode    Command = "mode"
	CommandLoad    Command = "load"
	CommandStatus  Command = "status"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

// arity is the number of positional arguments each command takes.
var arity = map[Command]int{
	CommandServe:   0,
	CommandStart:   0,
	CommandStop:    0,
	CommandToggle:  0,
	CommandReset:   0,
	CommandForward: 0,
	CommandBack:    0,
	CommandNext:    0,
	CommandPrev:    0,
	CommandSpeed:   1,
	CommandMode:    1,
	CommandLoad:    1,
	CommandStatus:  0,
	CommandDevices: 0,
	CommandDoctor:  0,
	CommandVersion: 0,
	CommandHelp:    0,
}

type Parsed struct {
	Command    Command
	Arg        string
	ConfigPath string
	ShowHelp   bool
}

// Remote reports whether the command is sent to a running serve process.
func (p Parsed) Remote() bool {
	switch p.Command {
	case CommandServe, CommandDevices, CommandDoctor, CommandVersion, CommandHelp:
		return false
	default:
		return true
	}
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			want, ok := arity[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			rest := args[i+1:]
			switch {
			case len(rest) < want:
				return Parsed{}, fmt.Errorf("command %q requires an argument", arg)
			case len(rest) > want:
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if want == 1 {
				parsed.Arg = rest[0]
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [ARG]

Commands:
  serve       Run the teleprompter (bridge page, remotes, playback loop)
  start       Start playback in the current mode
  stop        Stop playback
  toggle      Start or stop playback
  reset       Stop and move the cursor to the first word
  forward     Move the cursor one word forward
  back        Move the cursor one word back
  next        Jump to the start of the next sentence
  prev        Jump to the start of the current or previous sentence
  speed N     Set auto-scroll speed (1-10)
  mode MODE   Set scroll mode (voice or auto)
  load PATH   Load a script from a file ("-" reads stdin)
  status      Print playback state
  devices     List audio input devices
  doctor      Run configuration and environment checks
  version     Print version information
  help        Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/voiceprompt/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
