package timers

import (
	"sort"
	"sync"
	"time"
)

// Manual is a virtual clock for tests. Tasks only run inside Advance, on the
// caller's goroutine, in due-time order.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	due       time.Duration
	seq       int
	fn        func()
	cancelled bool
}

// NewManual returns a virtual clock at zero.
func NewManual() *Manual {
	return &Manual{}
}

// Now returns the virtual time elapsed.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of tasks not yet run or cancelled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

func (m *Manual) schedule(d time.Duration, fn func()) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTask{due: m.now + d, seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

func (m *Manual) cancel(t *manualTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.cancelled = true
}

func (m *Manual) After(d time.Duration, fn func()) Cancel {
	t := m.schedule(d, fn)
	return func() { m.cancel(t) }
}

func (m *Manual) Repeat(period time.Duration, n int, fn func(i int)) Cancel {
	if n <= 0 {
		return func() {}
	}

	var (
		mu      sync.Mutex
		stopped bool
		current *manualTask
	)

	var run func(i int)
	run = func(i int) {
		mu.Lock()
		if stopped {
			mu.Unlock()
			return
		}
		if i+1 < n {
			current = m.schedule(period, func() { run(i + 1) })
		}
		mu.Unlock()
		fn(i)
	}

	mu.Lock()
	current = m.schedule(0, func() { run(0) })
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		stopped = true
		if current != nil {
			m.cancel(current)
		}
	}
}

// Advance moves the clock forward by d, running every task that falls due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		next.cancelled = true
		if next.due > m.now {
			m.now = next.due
		}
		m.mu.Unlock()

		next.fn()
	}
}

func (m *Manual) nextDueLocked(target time.Duration) *manualTask {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	m.tasks = live

	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].due != m.tasks[j].due {
			return m.tasks[i].due < m.tasks[j].due
		}
		return m.tasks[i].seq < m.tasks[j].seq
	})
	if len(m.tasks) == 0 || m.tasks[0].due > target {
		return nil
	}
	return m.tasks[0]
}
