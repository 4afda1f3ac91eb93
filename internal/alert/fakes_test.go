package alert

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rbright/debatebell/internal/bell"
	"github.com/rbright/debatebell/internal/playback"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type stubClip struct {
	name string
	log  *recorder
	hold chan struct{}
}

func (c *stubClip) Start() error {
	c.log.add(c.name + ":start")
	if c.hold != nil {
		<-c.hold
	}
	return nil
}

func (c *stubClip) Rewind() error {
	c.log.add(c.name + ":rewind")
	return nil
}

func (c *stubClip) Stop()               { c.log.add(c.name + ":stop") }
func (c *stubClip) Release()            { c.log.add(c.name + ":release") }
func (c *stubClip) OnComplete(func())   {}
func (c *stubClip) OnError(func(error)) {}

type stubPlayer struct {
	log   *recorder
	count int
	// hold, when set, blocks the next clip's Start until it is closed.
	hold chan struct{}
}

func (p *stubPlayer) Open(asset bell.Asset) (playback.Clip, error) {
	p.count++
	name := asset.String()
	p.log.add(name + ":open")
	clip := &stubClip{name: name, log: p.log, hold: p.hold}
	p.hold = nil
	return clip, nil
}

type stubVibrator struct {
	mu       sync.Mutex
	patterns [][]time.Duration
	cancels  int
	err      error
}

func (v *stubVibrator) Vibrate(p []time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.patterns = append(v.patterns, p)
	return v.err
}

func (v *stubVibrator) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancels++
}

type stubNotifier struct {
	log *recorder
}

func (n *stubNotifier) Show(_ context.Context, text string) error {
	n.log.add("show:" + text)
	return nil
}

func (n *stubNotifier) Refresh(context.Context) error {
	n.log.add("refresh")
	return nil
}

func (n *stubNotifier) Dismiss(context.Context) error {
	n.log.add("dismiss")
	return nil
}

type stubWakeLock struct {
	log        *recorder
	acquireErr error
}

func (w *stubWakeLock) Acquire() error {
	w.log.add("acquire")
	return w.acquireErr
}

func (w *stubWakeLock) Release() error {
	w.log.add("release")
	return nil
}

func (w *stubWakeLock) WakeScreen(d time.Duration) error {
	w.log.add("wake:" + d.String())
	return nil
}

// flashRecorder records display calls with their virtual times.
type flashRecorder struct {
	mu     sync.Mutex
	now    func() time.Duration
	allow  bool
	calls  []flashCall
	dones  int
	begins int
	// onBegin runs at the start of every Begin, outside the recorder lock.
	onBegin func()
}

type flashCall struct {
	at time.Duration
	on bool
}

func (f *flashRecorder) Begin() bool {
	if f.onBegin != nil {
		f.onBegin()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begins++
	return f.allow
}

func (f *flashRecorder) FlashOn(bell.Colour) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, flashCall{at: f.now(), on: true})
}

func (f *flashRecorder) FlashOff() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, flashCall{at: f.now(), on: false})
}

func (f *flashRecorder) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dones++
}

func (f *flashRecorder) snapshot() ([]flashCall, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]flashCall(nil), f.calls...), f.dones
}

var errBoom = errors.New("boom")

var allChannels = Policy{
	Vibrate:    true,
	Flash:      FlashSolid,
	POIVibrate: true,
	POIFlash:   FlashSolid,
}

func (m *Manager) currentBell() *playback.Repeater {
	m.bellMu.Lock()
	defer m.bellMu.Unlock()
	return m.repeater
}

func (m *Manager) isActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.showing
}

func (m *Manager) activeLabel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.label
}

func (m *Manager) stuckBells() int {
	m.bellMu.Lock()
	defer m.bellMu.Unlock()
	return len(m.stuck)
}
