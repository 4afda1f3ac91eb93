package phase

import "time"

// OvertimeRings is the ring count of every overtime bell.
const OvertimeRings = 3

// Overtime schedules the bells that ring after a phase runs past its length.
// A zero First disables overtime bells; a zero Period rings only once.
type Overtime struct {
	First  time.Duration
	Period time.Duration
}

// Next returns the time of the first overtime bell strictly after elapsed.
func (o Overtime) Next(elapsed, length time.Duration) (time.Duration, bool) {
	if o.First <= 0 {
		return 0, false
	}
	over := elapsed - length
	if over < o.First {
		return length + o.First, true
	}
	if o.Period <= 0 {
		return 0, false
	}
	steps := (over-o.First)/o.Period + 1
	return length + o.First + steps*o.Period, true
}
