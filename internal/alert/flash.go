package alert

import (
	"sync"
	"time"

	"github.com/rbright/debatebell/internal/bell"
	"github.com/rbright/debatebell/internal/metrics"
	"github.com/rbright/debatebell/internal/timers"
)

const (
	maxFlashTime = 500 * time.Millisecond
	strobePeriod = 100 * time.Millisecond
	// two thirds of the strobe period, in whole milliseconds
	strobeFlashTime = 66 * time.Millisecond
)

// FlashScreenListener is the view that renders screen flashes. Begin may
// block briefly; returning false abandons the flash with no display change.
// Done is called exactly once after a successful Begin.
type FlashScreenListener interface {
	Begin() bool
	FlashOn(colour bell.Colour)
	FlashOff()
	Done()
}

// flashSequence is one begun flash. Every pulse schedules its own off timer
// when it turns on, so the last display call is always FlashOff. Cancelling
// stops future pulses; offs already armed still fire.
type flashSequence struct {
	listener FlashScreenListener
	sched    timers.Scheduler
	colour   bell.Colour

	mu          sync.Mutex
	cancelled   bool
	finalFired  bool
	pendingOffs int
	repeats     []timers.Cancel

	doneOnce sync.Once
}

func newFlashSequence(listener FlashScreenListener, sched timers.Scheduler, colour bell.Colour) *flashSequence {
	return &flashSequence{listener: listener, sched: sched, colour: colour}
}

// runBell flashes once per ring of spec.
func (s *flashSequence) runBell(spec bell.SoundSpec, mode FlashMode) {
	rings := spec.RingCount
	interval := spec.Interval()
	cancel := s.sched.Repeat(interval, rings, func(i int) {
		flashTime := interval / 2
		if flashTime > maxFlashTime {
			flashTime = maxFlashTime
		}
		final := i == rings-1
		if final {
			flashTime = maxFlashTime
		}
		s.flash(mode, flashTime, final)
	})
	s.track(cancel)
}

// runSingle flashes one max-length pulse.
func (s *flashSequence) runSingle(mode FlashMode) {
	s.flash(mode, maxFlashTime, true)
}

func (s *flashSequence) flash(mode FlashMode, flashTime time.Duration, final bool) {
	switch mode {
	case FlashStrobe:
		s.strobe(flashTime, final)
	default:
		s.pulse(flashTime, final)
	}
}

func (s *flashSequence) strobe(flashTime time.Duration, final bool) {
	n := int(flashTime / strobePeriod)
	if flashTime%strobePeriod > strobePeriod/2 {
		n++
	}
	if n == 0 {
		if final {
			s.markFinal()
		}
		return
	}
	cancel := s.sched.Repeat(strobePeriod, n, func(j int) {
		s.pulse(strobeFlashTime, final && j == n-1)
	})
	s.track(cancel)
}

func (s *flashSequence) pulse(d time.Duration, final bool) {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.pendingOffs++
	s.mu.Unlock()

	s.listener.FlashOn(s.colour)
	s.sched.After(d, func() {
		s.listener.FlashOff()
		s.offFired(final)
	})
}

func (s *flashSequence) offFired(final bool) {
	s.mu.Lock()
	s.pendingOffs--
	if final {
		s.finalFired = true
	}
	finished := s.pendingOffs == 0 && (s.finalFired || s.cancelled)
	cancelled := s.cancelled
	s.mu.Unlock()

	if finished {
		s.finish(cancelled)
	}
}

// markFinal ends a sequence whose last ring produced no pulse.
func (s *flashSequence) markFinal() {
	s.mu.Lock()
	s.finalFired = true
	finished := s.pendingOffs == 0
	s.mu.Unlock()
	if finished {
		s.finish(false)
	}
}

func (s *flashSequence) track(cancel timers.Cancel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		cancel()
		return
	}
	s.repeats = append(s.repeats, cancel)
}

// cancel stops future pulses. With nothing outstanding the display is reset
// and Done is called immediately; otherwise the last armed off calls it.
func (s *flashSequence) cancel() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	repeats := s.repeats
	s.repeats = nil
	idle := s.pendingOffs == 0 && !s.finalFired
	s.mu.Unlock()

	for _, c := range repeats {
		c()
	}
	if idle {
		s.listener.FlashOff()
		s.finish(true)
	}
}

func (s *flashSequence) finish(cancelled bool) {
	s.doneOnce.Do(func() {
		outcome := "completed"
		if cancelled {
			outcome = "cancelled"
		}
		metrics.FlashSequences.WithLabelValues(outcome).Inc()
		s.listener.Done()
	})
}
