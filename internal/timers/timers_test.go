package timers

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestManualAfterRunsWhenDue(t *testing.T) {
	m := NewManual()
	var fired []time.Duration
	m.After(300*time.Millisecond, func() { fired = append(fired, m.Now()) })
	m.After(100*time.Millisecond, func() { fired = append(fired, m.Now()) })

	m.Advance(99 * time.Millisecond)
	require.Empty(t, fired)

	m.Advance(250 * time.Millisecond)
	require.Equal(t, []time.Duration{100 * time.Millisecond, 300 * time.Millisecond}, fired)
	require.Equal(t, 349*time.Millisecond, m.Now())
}

func TestManualCancelPreventsRun(t *testing.T) {
	m := NewManual()
	ran := false
	cancel := m.After(time.Second, func() { ran = true })
	cancel()
	cancel()
	m.Advance(2 * time.Second)
	require.False(t, ran)
	require.Zero(t, m.Pending())
}

func TestManualRepeatRunsNTimes(t *testing.T) {
	m := NewManual()
	var runs []int
	var at []time.Duration
	m.Repeat(500*time.Millisecond, 3, func(i int) {
		runs = append(runs, i)
		at = append(at, m.Now())
	})

	m.Advance(0)
	require.Equal(t, []int{0}, runs)

	m.Advance(5 * time.Second)
	require.Equal(t, []int{0, 1, 2}, runs)
	require.Equal(t, []time.Duration{0, 500 * time.Millisecond, time.Second}, at)
	require.Zero(t, m.Pending())
}

func TestManualRepeatCancelFromCallback(t *testing.T) {
	m := NewManual()
	var runs int
	var cancel Cancel
	cancel = m.Repeat(100*time.Millisecond, 10, func(i int) {
		runs++
		if i == 1 {
			cancel()
		}
	})
	m.Advance(time.Second)
	require.Equal(t, 2, runs)
}

func TestManualTasksScheduledDuringAdvanceRun(t *testing.T) {
	m := NewManual()
	var order []string
	m.After(100*time.Millisecond, func() {
		order = append(order, "first")
		m.After(50*time.Millisecond, func() { order = append(order, "nested") })
	})
	m.After(200*time.Millisecond, func() { order = append(order, "second") })

	m.Advance(time.Second)
	require.Equal(t, []string{"first", "nested", "second"}, order)
}

func TestRealAfterAndCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var wg sync.WaitGroup
	wg.Add(1)
	Real{}.After(5*time.Millisecond, wg.Done)
	wg.Wait()

	var ran atomic.Bool
	cancel := Real{}.After(50*time.Millisecond, func() { ran.Store(true) })
	cancel()
	time.Sleep(80 * time.Millisecond)
	require.False(t, ran.Load())
}

func TestRealRepeatRunsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	done := make(chan struct{})
	var count atomic.Int32
	Real{}.Repeat(5*time.Millisecond, 3, func(i int) {
		if count.Add(1) == 3 {
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("repeat did not complete")
	}
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(3), count.Load())
}

func TestRealRepeatCancelStopsGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var count atomic.Int32
	cancel := Real{}.Repeat(time.Hour, 5, func(int) { count.Add(1) })
	require.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	cancel()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, int32(1), count.Load())
}

func TestRealNowIsMonotonic(t *testing.T) {
	var clock Scheduler = Real{}
	first := clock.Now()
	time.Sleep(5 * time.Millisecond)
	second := clock.Now()
	require.GreaterOrEqual(t, second-first, 5*time.Millisecond)
}
