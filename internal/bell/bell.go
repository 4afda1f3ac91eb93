// Package bell defines the bell events, sound specs, and period descriptors shared by the engine.
package bell

import (
	"fmt"
	"time"
)

// DefaultRepeatInterval is the gap between rings when a sound spec leaves it unset.
const DefaultRepeatInterval = 500 * time.Millisecond

// Asset identifies one of the bundled bell recordings.
type Asset int

const (
	AssetNone Asset = iota
	AssetSingle
	AssetDouble
	AssetTriple
)

func (a Asset) String() string {
	switch a {
	case AssetSingle:
		return "single"
	case AssetDouble:
		return "double"
	case AssetTriple:
		return "triple"
	default:
		return "none"
	}
}

// SoundSpec describes how a bell sounds: how many rings and how far apart.
type SoundSpec struct {
	RingCount      int
	RepeatInterval time.Duration
}

// Rings returns a spec with the default repeat interval.
func Rings(n int) SoundSpec {
	return SoundSpec{RingCount: n, RepeatInterval: DefaultRepeatInterval}
}

// Interval returns the repeat interval, substituting the default when unset.
func (s SoundSpec) Interval() time.Duration {
	if s.RepeatInterval <= 0 {
		return DefaultRepeatInterval
	}
	return s.RepeatInterval
}

// IsSilent reports whether the spec produces no rings.
func (s SoundSpec) IsSilent() bool {
	return s.RingCount <= 0
}

// Asset selects the recording for this spec. Counts with a dedicated
// recording play it once; larger counts repeat the single ring.
func (s SoundSpec) Asset() Asset {
	switch {
	case s.RingCount <= 0:
		return AssetNone
	case s.RingCount == 2:
		return AssetDouble
	case s.RingCount == 3:
		return AssetTriple
	default:
		return AssetSingle
	}
}

// TimesToRepeat reports how many times the selected asset plays.
func (s SoundSpec) TimesToRepeat() int {
	if s.RingCount >= 1 && s.RingCount <= 3 {
		return 1
	}
	if s.RingCount <= 0 {
		return 0
	}
	return s.RingCount
}

func (s SoundSpec) String() string {
	return fmt.Sprintf("%d ring(s) every %s", s.RingCount, s.Interval())
}

// Event is one bell at a fixed offset from the start of a phase.
type Event struct {
	Time        time.Duration
	Sound       SoundSpec
	PauseOnBell bool
	NextPeriod  *Period
}

// IsSilent reports whether the event rings zero times.
func (e Event) IsSilent() bool {
	return e.Sound.IsSilent()
}

// Clock formats a duration as m:ss (or h:mm:ss past an hour).
func Clock(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	total := int64(d / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	out := fmt.Sprintf("%d:%02d", m, s)
	if h > 0 {
		out = fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	if neg {
		return "-" + out
	}
	return out
}
