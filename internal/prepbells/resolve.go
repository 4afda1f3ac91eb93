package prepbells

import (
	"sort"
	"time"

	"github.com/rbright/debatebell/internal/bell"
)

// CollisionWindow is the distance under which two resolved bells are treated
// as the same bell. Kept at 15s for compatibility with existing rule files.
const CollisionWindow = 15 * time.Second

// Resolve turns rules into bell events for a phase of the given length.
//
// Rules outside the phase are dropped. Bells at the finish ring twice, all
// others once. When two bells land within CollisionWindow of each other, the
// one with more rings wins; ties go to the rule listed first. The result is
// sorted by time.
func Resolve(rules []Rule, length time.Duration) []bell.Event {
	if len(rules) == 0 {
		return nil
	}

	candidates := make([]bell.Event, 0, len(rules))
	for _, rule := range rules {
		at, ok := rule.candidate(length)
		if !ok {
			continue
		}
		rings := 1
		if rule.IsAtFinish() {
			rings = 2
		}
		candidates = append(candidates, bell.Event{Time: at, Sound: bell.Rings(rings)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Sound.RingCount > candidates[j].Sound.RingCount
	})

	accepted := make([]bell.Event, 0, len(candidates))
	for _, c := range candidates {
		if collides(accepted, c.Time) {
			continue
		}
		accepted = append(accepted, c)
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Time < accepted[j].Time
	})
	return accepted
}

func collides(accepted []bell.Event, at time.Duration) bool {
	for _, a := range accepted {
		delta := a.Time - at
		if delta < 0 {
			delta = -delta
		}
		if delta < CollisionWindow {
			return true
		}
	}
	return false
}
