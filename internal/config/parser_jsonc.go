package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Alerts       *jsoncAlerts       `json:"alerts"`
	POI          *jsoncPOI          `json:"poi"`
	Sound        *jsoncSound        `json:"sound"`
	Vibrate      *jsoncVibrate      `json:"vibrate"`
	Notification *jsoncNotification `json:"notification"`
	WakeLock     *jsoncWakeLock     `json:"wake_lock"`
	Flash        *jsoncFlash        `json:"flash"`
	PrepBells    *jsoncPrepBells    `json:"prep_bells"`
	Overtime     *jsoncOvertime     `json:"overtime"`
	Metrics      *jsoncMetrics      `json:"metrics"`
}

type jsoncAlerts struct {
	Silent    *bool   `json:"silent"`
	Vibrate   *bool   `json:"vibrate"`
	FlashMode *string `json:"flash_mode"`
}

type jsoncPOI struct {
	Vibrate   *bool   `json:"vibrate"`
	FlashMode *string `json:"flash_mode"`
}

type jsoncSound struct {
	Enable           *bool    `json:"enable"`
	Volume           *float64 `json:"volume"`
	RepeatIntervalMS *int     `json:"repeat_interval_ms"`
}

type jsoncVibrate struct {
	Backend *string `json:"backend"`
}

type jsoncNotification struct {
	Enable         *bool   `json:"enable"`
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
}

type jsoncWakeLock struct {
	Enable    *bool   `json:"enable"`
	ScreenCmd *string `json:"screen_cmd"`
}

type jsoncFlash struct {
	BeginTimeoutMS *int `json:"begin_timeout_ms"`
}

type jsoncPrepBells struct {
	Path *string `json:"path"`
}

type jsoncOvertime struct {
	FirstBellSeconds *int `json:"first_bell_seconds"`
	PeriodSeconds    *int `json:"period_seconds"`
}

type jsoncMetrics struct {
	Listen *string `json:"listen"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if a := payload.Alerts; a != nil {
		if a.Silent != nil {
			cfg.Alerts.Silent = *a.Silent
		}
		if a.Vibrate != nil {
			cfg.Alerts.Vibrate = *a.Vibrate
		}
		if a.FlashMode != nil {
			cfg.Alerts.FlashMode = normalize(*a.FlashMode)
		}
	}

	if p := payload.POI; p != nil {
		if p.Vibrate != nil {
			cfg.POI.Vibrate = *p.Vibrate
		}
		if p.FlashMode != nil {
			cfg.POI.FlashMode = normalize(*p.FlashMode)
		}
	}

	if s := payload.Sound; s != nil {
		if s.Enable != nil {
			cfg.Sound.Enable = *s.Enable
		}
		if s.Volume != nil {
			cfg.Sound.Volume = *s.Volume
		}
		if s.RepeatIntervalMS != nil {
			cfg.Sound.RepeatIntervalMS = *s.RepeatIntervalMS
		}
	}

	if payload.Vibrate != nil && payload.Vibrate.Backend != nil {
		cfg.Vibrate.Backend = normalize(*payload.Vibrate.Backend)
	}

	if n := payload.Notification; n != nil {
		if n.Enable != nil {
			cfg.Notification.Enable = *n.Enable
		}
		if n.Backend != nil {
			cfg.Notification.Backend = normalize(*n.Backend)
		}
		if n.DesktopAppName != nil {
			cfg.Notification.DesktopAppName = strings.TrimSpace(*n.DesktopAppName)
		}
	}

	if w := payload.WakeLock; w != nil {
		if w.Enable != nil {
			cfg.WakeLock.Enable = *w.Enable
		}
		if w.ScreenCmd != nil {
			raw := *w.ScreenCmd
			argv, err := splitCommand(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid wake_lock.screen_cmd: %w", err)
			}
			cfg.WakeLock.ScreenCmd = CommandConfig{Raw: raw, Argv: argv}
			if len(argv) == 0 {
				warnings = append(warnings, Warning{Message: "wake_lock.screen_cmd is empty; bells will not wake the screen"})
			}
		}
	}

	if payload.Flash != nil && payload.Flash.BeginTimeoutMS != nil {
		cfg.Flash.BeginTimeoutMS = *payload.Flash.BeginTimeoutMS
	}

	if payload.PrepBells != nil && payload.PrepBells.Path != nil {
		cfg.PrepBells.Path = strings.TrimSpace(*payload.PrepBells.Path)
	}

	if o := payload.Overtime; o != nil {
		if o.FirstBellSeconds != nil {
			cfg.Overtime.FirstBellSeconds = *o.FirstBellSeconds
		}
		if o.PeriodSeconds != nil {
			cfg.Overtime.PeriodSeconds = *o.PeriodSeconds
		}
	}

	if payload.Metrics != nil && payload.Metrics.Listen != nil {
		cfg.Metrics.Listen = strings.TrimSpace(*payload.Metrics.Listen)
	}

	return warnings, nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
