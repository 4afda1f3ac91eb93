// Package timers provides the one-shot and repeating timers used by bell playback and flash sequencing.
package timers

import (
	"sync"
	"time"
)

// Cancel stops a scheduled task. Calling it more than once is harmless.
type Cancel func()

// Scheduler runs callbacks after a delay or on a fixed period.
type Scheduler interface {
	// Now reports monotonic time since an arbitrary fixed origin.
	Now() time.Duration
	// After runs fn once after d.
	After(d time.Duration, fn func()) Cancel
	// Repeat runs fn immediately and then every period, n times in total.
	// fn receives the zero-based run index.
	Repeat(period time.Duration, n int, fn func(i int)) Cancel
}

// Real schedules on the wall clock.
type Real struct{}

var epoch = time.Now()

func (Real) Now() time.Duration { return time.Since(epoch) }

func (Real) After(d time.Duration, fn func()) Cancel {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

func (Real) Repeat(period time.Duration, n int, fn func(i int)) Cancel {
	if n <= 0 {
		return func() {}
	}

	stop := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(stop) }) }

	go func() {
		select {
		case <-stop:
			return
		default:
		}
		fn(0)
		if n == 1 {
			return
		}
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for i := 1; i < n; i++ {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
			select {
			case <-stop:
				return
			default:
			}
			fn(i)
		}
	}()

	return cancel
}
