package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rbright/debatebell/internal/bell"
	"github.com/rbright/debatebell/internal/prepbells"
)

// ParseClock reads m:ss, h:mm:ss, or a Go duration such as 90s.
func ParseClock(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("time is empty")
	}
	if !strings.Contains(raw, ":") {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid time %q", raw)
		}
		if d < 0 {
			return 0, fmt.Errorf("time %q is negative", raw)
		}
		return d, nil
	}

	parts := strings.Split(raw, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	var total int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time %q", raw)
		}
		if i > 0 && (len(part) != 2 || n > 59) {
			return 0, fmt.Errorf("invalid time %q", raw)
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}

// ParseBell reads TIME[/RINGS][/pause]. Rings default to one.
func ParseBell(raw string) (bell.Event, error) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	at, err := ParseClock(parts[0])
	if err != nil {
		return bell.Event{}, err
	}
	event := bell.Event{Time: at, Sound: bell.Rings(1)}

	rest := parts[1:]
	if len(rest) > 0 && !strings.EqualFold(rest[0], "pause") {
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 0 || n > maxRings {
			return bell.Event{}, fmt.Errorf("rings must be a number from 0 to %d", maxRings)
		}
		event.Sound = bell.Rings(n)
		rest = rest[1:]
	}
	switch {
	case len(rest) == 0:
	case len(rest) == 1 && strings.EqualFold(rest[0], "pause"):
		event.PauseOnBell = true
	default:
		return bell.Event{}, fmt.Errorf("unexpected %q", strings.Join(rest, "/"))
	}
	return event, nil
}

// ParseRule reads a prep bell rule. Proportions accept 0.5 or 50%.
func ParseRule(kind, value string) (prepbells.Rule, error) {
	var rule prepbells.Rule
	switch prepbells.Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case prepbells.KindStart:
		d, err := ParseClock(value)
		if err != nil {
			return prepbells.Rule{}, err
		}
		rule = prepbells.FromStart(d)
	case prepbells.KindFinish:
		d, err := ParseClock(value)
		if err != nil {
			return prepbells.Rule{}, err
		}
		rule = prepbells.FromFinish(d)
	case prepbells.KindProportional:
		value = strings.TrimSpace(value)
		scale := 1.0
		if strings.HasSuffix(value, "%") {
			value = strings.TrimSuffix(value, "%")
			scale = 100
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return prepbells.Rule{}, fmt.Errorf("invalid proportion %q", value)
		}
		rule = prepbells.Proportional(f / scale)
	default:
		return prepbells.Rule{}, fmt.Errorf("%w: %q", prepbells.ErrUnknownKind, kind)
	}
	if err := rule.Validate(); err != nil {
		return prepbells.Rule{}, err
	}
	return rule, nil
}
