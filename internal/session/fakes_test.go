package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rbright/debatebell/internal/bell"
)

type fakeAlerter struct {
	mu        sync.Mutex
	events    []string
	intervals []time.Duration
}

func (f *fakeAlerter) ring(e string, spec bell.SoundSpec) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	f.intervals = append(f.intervals, spec.Interval())
}

func (f *fakeAlerter) ringIntervals() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.intervals...)
}

func (f *fakeAlerter) add(e string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeAlerter) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeAlerter) MakeActive(_ context.Context, label string) { f.add("active:" + label) }
func (f *fakeAlerter) MakeInactive(context.Context)               { f.add("inactive") }

func (f *fakeAlerter) TriggerAlert(_ context.Context, spec bell.SoundSpec) {
	f.ring(fmt.Sprintf("alert:%d", spec.RingCount), spec)
}

func (f *fakeAlerter) PlayBell(spec bell.SoundSpec) {
	f.ring(fmt.Sprintf("bell:%d", spec.RingCount), spec)
}

func (f *fakeAlerter) PlaySingleBell()     { f.add("single") }
func (f *fakeAlerter) TriggerPOIAlert()    { f.add("poi") }
func (f *fakeAlerter) WakeScreenForPause() { f.add("wake") }
func (f *fakeAlerter) IsPlaying() bool     { return false }
