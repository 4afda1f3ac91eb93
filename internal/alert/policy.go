package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/rbright/debatebell/internal/bell"
)

// FlashMode selects how the screen flashes for an alert.
type FlashMode int

const (
	FlashOff FlashMode = iota
	FlashSolid
	FlashStrobe
)

func (m FlashMode) String() string {
	switch m {
	case FlashSolid:
		return "solid"
	case FlashStrobe:
		return "strobe"
	default:
		return "off"
	}
}

// ParseFlashMode accepts off, solid, or strobe.
func ParseFlashMode(raw string) (FlashMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "off", "none":
		return FlashOff, nil
	case "solid":
		return FlashSolid, nil
	case "strobe":
		return FlashStrobe, nil
	default:
		return FlashOff, fmt.Errorf("unknown flash mode %q", raw)
	}
}

// Policy holds the user-configurable alert channel switches.
type Policy struct {
	Silent     bool
	Vibrate    bool
	Flash      FlashMode
	POIVibrate bool
	POIFlash   FlashMode
}

const (
	vibrateGapThreshold = 500 * time.Millisecond
	vibrateGap          = 100 * time.Millisecond
)

// VibrationPattern matches a vibration to the bell's rhythm: alternating
// off/on durations starting with a zero delay and ending on an on segment.
// A silent spec yields nil.
func VibrationPattern(spec bell.SoundSpec) []time.Duration {
	if spec.RingCount <= 0 {
		return nil
	}
	interval := spec.Interval()

	off := vibrateGap
	if interval < vibrateGapThreshold {
		off = interval / 5
	}
	on := interval - off

	pattern := make([]time.Duration, 2*spec.RingCount)
	for i := 1; i < len(pattern)-1; i += 2 {
		pattern[i] = on
		pattern[i+1] = off
	}
	pattern[len(pattern)-1] = on
	return pattern
}
