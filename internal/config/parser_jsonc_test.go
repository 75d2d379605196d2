package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeJSONCRemovesCommentsAndTrailingCommas(t *testing.T) {
	input := `
{
  // line comment
  "items": [
    "one", /* block comment */
    "two",
  ],
  "nested": {
    "enabled": true,
  },
}
`

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.NotContains(t, normalized, "//")
	require.NotContains(t, normalized, "/*")
	require.NotContains(t, normalized, ",]")
	require.NotContains(t, normalized, ",}")
}

func TestNormalizeJSONCRetainsCommentLikeTextInsideStrings(t *testing.T) {
	input := `{"value":"contains // and /* comment-like */ text",}`
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Contains(t, normalized, "// and /* comment-like */")
}

func TestNormalizeJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := normalizeJSONC("{ /* unterminated ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated block comment")
}

func TestEnsureSingleJSONValueRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))

	err := ensureSingleJSONValue(decoder)
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestOffsetToLineCol(t *testing.T) {
	content := "line1\nline2\nline3"
	line, col := offsetToLineCol(content, 1)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = offsetToLineCol(content, 8) // line2, col2
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)

	line, col = offsetToLineCol(content, 999)
	require.Equal(t, 3, line)
	require.Equal(t, 5, col)
}

func TestNormalizeJSONCTrailingCommaBeforeComment(t *testing.T) {
	normalized, err := normalizeJSONC("{\"a\": 1, // last\n}")
	require.NoError(t, err)

	var payload map[string]int
	require.NoError(t, json.Unmarshal([]byte(normalized), &payload))
	require.Equal(t, 1, payload["a"])
}

func TestParseJSONCOverlaysPlaybackAndAlignment(t *testing.T) {
	cfg, _, err := parseJSONC(`{
  "playback": {"mode": " AUTO ", "speed": 9, "lang": "de-DE"},
  "alignment": {"look_ahead": 40, "advance_per_word": 2.0},
  /* legacy listener */
  "remote": {"enable": true, "listen": "127.0.0.1:9000"},
}`, Default())
	require.NoError(t, err)
	require.Equal(t, "auto", cfg.Playback.Mode)
	require.Equal(t, 9, cfg.Playback.Speed)
	require.Equal(t, "de-DE", cfg.Playback.Lang)
	require.Equal(t, 40, cfg.Alignment.LookAhead)
	require.InDelta(t, 2.0, cfg.Alignment.AdvancePerWord, 0.0001)
	require.Equal(t, 2, cfg.Alignment.LookBehind)
	require.True(t, cfg.Remote.Enable)
}

func TestParseJSONCTrimsIndicatorFields(t *testing.T) {
	cfg, _, err := parseJSONC(`{
  "indicator": {
    "backend": " desktop ",
    "desktop_app_name": "  voiceprompt-indicator  "
  }
}`, Default())
	require.NoError(t, err)
	require.Equal(t, "desktop", cfg.Indicator.Backend)
	require.Equal(t, "voiceprompt-indicator", cfg.Indicator.DesktopAppName)
}

func TestParseJSONCRejectsUnknownField(t *testing.T) {
	_, _, err := parseJSONC(`{"playback": {"tempo": 4}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseJSONCRejectsMultipleTopLevelValues(t *testing.T) {
	_, _, err := parseJSONC(`{"log":{"level":"debug"}}{"log":{"level":"info"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestParseJSONCTypeErrorIncludesLocation(t *testing.T) {
	_, _, err := parseJSONC(`{
  "playback": {"speed": "fast"}
}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
	require.Contains(t, err.Error(), "column")
}

func TestParseJSONCPersistPathWithoutEnableWarns(t *testing.T) {
	_, warnings, err := parseJSONC(`{"persist": {"enable": false, "path": "/tmp/state.json"}}`, Default())
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "persist.enable=false")
}

func TestParseJSONCValidatesResult(t *testing.T) {
	_, _, err := parseJSONC(`{"playback": {"speed": 0}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "playback.speed")
}
