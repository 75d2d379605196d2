package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEmptyContentReturnsDefaults(t *testing.T) {
	cfg, warnings, err := Parse("  \n\t", Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, Default(), cfg)
}

func TestParseYAML(t *testing.T) {
	cfg, _, err := Parse(`
server:
  listen: 0.0.0.0:8080
  rate_limit: 20
playback:
  mode: auto
  speed: 5
  countdown: false
persist:
  backend: sqlite
  path: /tmp/voiceprompt.db
log:
  level: DEBUG
`, Default())
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:8080", cfg.Server.Listen)
	require.InDelta(t, 20.0, cfg.Server.RateLimit, 0.0001)
	require.Equal(t, 5, cfg.Server.RateBurst)
	require.Equal(t, "auto", cfg.Playback.Mode)
	require.Equal(t, 5, cfg.Playback.Speed)
	require.False(t, cfg.Playback.Countdown)
	require.Equal(t, "sqlite", cfg.Persist.Backend)
	require.Equal(t, "/tmp/voiceprompt.db", cfg.Persist.Path)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestParseYAMLRejectsUnknownField(t *testing.T) {
	_, _, err := Parse("playback:\n  tempo: 3\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "tempo")
}

func TestParseYAMLRejectsMultipleDocuments(t *testing.T) {
	_, _, err := Parse("log:\n  level: info\n---\nlog:\n  level: debug\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple YAML documents")
}

func TestParseSelectsJSONCByLeadingBrace(t *testing.T) {
	cfg, _, err := Parse("  {\"playback\": {\"speed\": 4}}", Default())
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Playback.Speed)
}
