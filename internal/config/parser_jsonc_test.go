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

func TestParseJSONCRejectsInvalidScreenCmd(t *testing.T) {
	_, _, err := parseJSONC(`{"wake_lock":{"screen_cmd":"unterminated ' quote"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid wake_lock.screen_cmd")
}

func TestParseJSONCEmptyScreenCmdWarns(t *testing.T) {
	cfg, warnings, err := parseJSONC(`{"wake_lock":{"screen_cmd":""}}`, Default())
	require.NoError(t, err)
	require.Empty(t, cfg.WakeLock.ScreenCmd.Argv)
	require.NotEmpty(t, warnings)
	require.Contains(t, warnings[0].Message, "screen_cmd is empty")
}

func TestParseJSONCNormalizesModesAndBackends(t *testing.T) {
	cfg, _, err := parseJSONC(`{
  "alerts": {"flash_mode": " Strobe "},
  "poi": {"flash_mode": "OFF", "vibrate": false},
  "vibrate": {"backend": " None"},
  "notification": {
    "backend": " hypr ",
    "desktop_app_name": "  debate-timer  "
  }
}`, Default())
	require.NoError(t, err)
	require.Equal(t, "strobe", cfg.Alerts.FlashMode)
	require.Equal(t, "off", cfg.POI.FlashMode)
	require.False(t, cfg.POI.Vibrate)
	require.Equal(t, "none", cfg.Vibrate.Backend)
	require.Equal(t, "hypr", cfg.Notification.Backend)
	require.Equal(t, "debate-timer", cfg.Notification.DesktopAppName)
}

func TestParseJSONCRejectsUnknownField(t *testing.T) {
	_, _, err := parseJSONC(`{"alerts":{"loud":true}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseJSONCRejectsMultipleTopLevelValues(t *testing.T) {
	_, _, err := parseJSONC(`{"alerts":{"silent":false}}{"alerts":{"silent":true}}`, Default())
	require.Error(t, err)
	require.True(
		t,
		strings.Contains(err.Error(), "multiple JSON values") || strings.Contains(err.Error(), "unknown field"),
		"unexpected error: %v",
		err,
	)
}

func TestParseJSONCTypeErrorIncludesLocation(t *testing.T) {
	_, _, err := parseJSONC(`{
  "sound": {"volume": "loud"}
}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
	require.Contains(t, err.Error(), "column")
}

func TestParseEmptyContentReturnsBase(t *testing.T) {
	cfg, _, err := Parse("  \n", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestParseRejectsNonObject(t *testing.T) {
	_, _, err := Parse("\n\nsilent = true", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 3 column 1")
	require.Contains(t, err.Error(), "JSONC object")
}
