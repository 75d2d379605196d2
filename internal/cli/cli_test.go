package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/voiceprompt.jsonc", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/voiceprompt.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
	require.False(t, parsed.Remote())
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantErr    string
		wantCmd    Command
		wantArg    string
		wantHelp   bool
		wantPath   string
		wantRemote bool
	}{
		{name: "help short flag", args: []string{"-h"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help long flag", args: []string{"--help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "version flag", args: []string{"--version"}, wantCmd: CommandVersion},
		{name: "config after command", args: []string{"status", "--config", "/tmp/cfg"}, wantErr: "unexpected arguments after command"},
		{name: "missing config path", args: []string{"--config"}, wantErr: "requires a path"},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"bogus"}, wantErr: "unknown command"},
		{name: "extra args after command", args: []string{"doctor", "extra"}, wantErr: "unexpected arguments"},
		{name: "speed without value", args: []string{"speed"}, wantErr: "requires an argument"},
		{name: "mode with two values", args: []string{"mode", "auto", "voice"}, wantErr: "unexpected arguments"},
		{name: "serve", args: []string{"serve"}, wantCmd: CommandServe},
		{name: "toggle", args: []string{"toggle"}, wantCmd: CommandToggle, wantRemote: true},
		{name: "speed value", args: []string{"speed", "7"}, wantCmd: CommandSpeed, wantArg: "7", wantRemote: true},
		{name: "negative speed is an argument", args: []string{"speed", "-1"}, wantCmd: CommandSpeed, wantArg: "-1", wantRemote: true},
		{name: "load stdin", args: []string{"load", "-"}, wantCmd: CommandLoad, wantArg: "-", wantRemote: true},
		{
			name:       "stop with config",
			args:       []string{"--config", "/tmp/cfg", "stop"},
			wantCmd:    CommandStop,
			wantPath:   "/tmp/cfg",
			wantRemote: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantArg, parsed.Arg)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
			require.Equal(t, tc.wantRemote, parsed.Remote())
		})
	}
}

func TestHelpTextListsEveryCommand(t *testing.T) {
	text := HelpText("voiceprompt")
	for cmd := range arity {
		require.Contains(t, text, "  "+string(cmd))
	}
	require.Contains(t, text, "--config PATH")
}
