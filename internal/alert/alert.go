// Package alert rings bells across every alert channel: sound, vibration,
// screen flash, the persistent notification, and the wake lock.
package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/debatebell/internal/bell"
	"github.com/rbright/debatebell/internal/metrics"
	"github.com/rbright/debatebell/internal/playback"
	"github.com/rbright/debatebell/internal/timers"
)

const (
	poiVibrateTime   = 350 * time.Millisecond
	pauseWakeTime    = 3 * time.Second
	sourceBell       = "bell"
	sourceSingleBell = "single"
	sourcePOI        = "poi"
)

// Vibrator plays vibration patterns of alternating off/on durations.
type Vibrator interface {
	Vibrate(pattern []time.Duration) error
	Cancel()
}

// Notifier shows the persistent "phase running" notification.
type Notifier interface {
	Show(ctx context.Context, text string) error
	Refresh(ctx context.Context) error
	Dismiss(ctx context.Context) error
}

// WakeLock keeps the machine awake while a phase runs and can briefly wake the screen.
type WakeLock interface {
	Acquire() error
	Release() error
	WakeScreen(d time.Duration) error
}

type noopVibrator struct{}

func (noopVibrator) Vibrate([]time.Duration) error { return nil }
func (noopVibrator) Cancel()                       {}

type noopNotifier struct{}

func (noopNotifier) Show(context.Context, string) error { return nil }
func (noopNotifier) Refresh(context.Context) error      { return nil }
func (noopNotifier) Dismiss(context.Context) error      { return nil }

type noopWakeLock struct{}

func (noopWakeLock) Acquire() error                 { return nil }
func (noopWakeLock) Release() error                 { return nil }
func (noopWakeLock) WakeScreen(time.Duration) error { return nil }

// Options wires a Manager's collaborators. Nil collaborators are replaced by no-ops.
type Options struct {
	Player    playback.Player
	Vibrator  Vibrator
	Notifier  Notifier
	WakeLock  WakeLock
	Scheduler timers.Scheduler
	Logger    *slog.Logger
	Policy    Policy
	// LockTimeout bounds each bell's playback lock waits; zero keeps
	// playback.DefaultLockTimeout.
	LockTimeout time.Duration
}

// Manager is the single owner of alert state for a running timer.
type Manager struct {
	player   playback.Player
	vibrator Vibrator
	notifier Notifier
	wakeLock WakeLock
	sched    timers.Scheduler
	logger   *slog.Logger
	lockWait time.Duration

	mu             sync.Mutex
	policy         Policy
	listener       FlashScreenListener
	showing        bool
	activityActive bool
	label          string
	bellFlash      *flashSequence
	poiFlash       *flashSequence
	// generation advances on every MakeInactive so a flash that began
	// concurrently can tell it is stale.
	generation uint64

	// bellMu orders stopping the old repeater before starting the next.
	bellMu   sync.Mutex
	repeater *playback.Repeater
	// stuck holds repeaters whose Stop timed out; every later stop retries them.
	stuck []*playback.Repeater
}

// New builds a Manager with safe fallbacks for missing collaborators.
func New(opts Options) *Manager {
	if opts.Vibrator == nil {
		opts.Vibrator = noopVibrator{}
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	if opts.WakeLock == nil {
		opts.WakeLock = noopWakeLock{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = timers.Real{}
	}
	return &Manager{
		player:   opts.Player,
		vibrator: opts.Vibrator,
		notifier: opts.Notifier,
		wakeLock: opts.WakeLock,
		sched:    opts.Scheduler,
		logger:   opts.Logger,
		lockWait: opts.LockTimeout,
		policy:   opts.Policy,
	}
}

// Policy returns the current policy snapshot.
func (m *Manager) Policy() Policy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.policy
}

func (m *Manager) IsSilentMode() bool {
	return m.Policy().Silent
}

func (m *Manager) SetSilentMode(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy.Silent = v
}

func (m *Manager) SetVibrateMode(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy.Vibrate = v
}

func (m *Manager) SetFlashScreenMode(mode FlashMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy.Flash = mode
}

func (m *Manager) SetPOIVibrateEnabled(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy.POIVibrate = v
}

func (m *Manager) SetPOIFlashScreenMode(mode FlashMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy.POIFlash = mode
}

// SetFlashScreenListener registers the view that renders flashes. Nil disables flashing.
func (m *Manager) SetFlashScreenListener(l FlashScreenListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// IsPlaying reports whether a bell sound is still in progress.
func (m *Manager) IsPlaying() bool {
	m.bellMu.Lock()
	defer m.bellMu.Unlock()
	if m.repeater != nil && m.repeater.IsPlaying() {
		return true
	}
	for _, r := range m.stuck {
		if r.IsPlaying() {
			return true
		}
	}
	return false
}

// PlaySingleBell rings once, for a user-pressed bell button.
func (m *Manager) PlaySingleBell() {
	m.playBell(bell.Rings(1), sourceSingleBell)
}

// PlayBell rings spec on every enabled channel. Any bell still sounding is
// stopped first. Channels fail independently.
func (m *Manager) PlayBell(spec bell.SoundSpec) {
	m.playBell(spec, sourceBell)
}

// TriggerAlert refreshes the notification and rings spec. It does nothing
// unless a phase is active.
func (m *Manager) TriggerAlert(ctx context.Context, spec bell.SoundSpec) {
	m.mu.Lock()
	showing := m.showing
	m.mu.Unlock()
	if !showing {
		m.debug("alert ignored while inactive", "rings", spec.RingCount)
		return
	}

	if err := m.notifier.Refresh(ctx); err != nil {
		m.degrade("notification", err)
	}
	m.PlayBell(spec)
}

func (m *Manager) playBell(spec bell.SoundSpec, source string) {
	policy := m.Policy()
	metrics.BellsRung.WithLabelValues(source).Inc()

	m.bellMu.Lock()
	m.stopBellsLocked()
	if !policy.Silent {
		r := playback.NewRepeater(spec, m.player, m.sched, m.logger, playback.WithLockTimeout(m.lockWait))
		m.repeater = r
		r.Play()
	}
	m.bellMu.Unlock()

	if policy.Vibrate {
		if pattern := VibrationPattern(spec); pattern != nil {
			if err := m.vibrator.Vibrate(pattern); err != nil {
				m.degrade("vibrate", err)
			}
		}
	}

	if policy.Flash != FlashOff {
		m.flashBell(spec, policy.Flash)
	}
}

// stopBellsLocked stops the current bell and retries any stuck ones.
// Callers hold bellMu.
func (m *Manager) stopBellsLocked() {
	pending := m.stuck
	if m.repeater != nil {
		pending = append(pending, m.repeater)
		m.repeater = nil
	}
	m.stuck = nil
	for _, r := range pending {
		if r.Stop() {
			continue
		}
		metrics.ChannelFailures.WithLabelValues("sound").Inc()
		if m.logger != nil {
			m.logger.Warn("bell did not stop; retrying on next stop", "playback", r.ID(), "rings", r.Spec().RingCount)
		}
		m.stuck = append(m.stuck, r)
	}
}

func (m *Manager) flashBell(spec bell.SoundSpec, mode FlashMode) {
	if spec.RingCount <= 0 {
		return
	}

	m.mu.Lock()
	listener := m.listener
	previous := m.bellFlash
	m.bellFlash = nil
	gen := m.generation
	m.mu.Unlock()

	if previous != nil {
		previous.cancel()
	}
	if listener == nil {
		return
	}
	if !listener.Begin() {
		metrics.FlashSequences.WithLabelValues("refused").Inc()
		m.debug("flash refused", "source", sourceBell)
		return
	}

	seq := newFlashSequence(listener, m.sched, bell.FlashWhite)
	if !m.claimFlash(gen, &m.bellFlash, seq) {
		listener.Done()
		m.debug("flash dropped after phase ended", "source", sourceBell)
		return
	}

	m.wakeScreenForBell(spec.Interval() * time.Duration(spec.RingCount))
	seq.runBell(spec, mode)
}

// TriggerPOIAlert signals a point of information: a short vibration and a
// single flash in the POI colour. It never rings a bell sound.
func (m *Manager) TriggerPOIAlert() {
	policy := m.Policy()
	metrics.BellsRung.WithLabelValues(sourcePOI).Inc()

	if policy.POIVibrate {
		if err := m.vibrator.Vibrate([]time.Duration{0, poiVibrateTime}); err != nil {
			m.degrade("vibrate", err)
		}
	}

	if policy.POIFlash == FlashOff {
		return
	}

	m.mu.Lock()
	listener := m.listener
	gen := m.generation
	m.mu.Unlock()
	if listener == nil {
		return
	}
	if !listener.Begin() {
		metrics.FlashSequences.WithLabelValues("refused").Inc()
		m.debug("flash refused", "source", sourcePOI)
		return
	}

	seq := newFlashSequence(listener, m.sched, bell.FlashPOI)
	if !m.claimFlash(gen, &m.poiFlash, seq) {
		listener.Done()
		m.debug("flash dropped after phase ended", "source", sourcePOI)
		return
	}
	seq.runSingle(policy.POIFlash)
}

// claimFlash stores seq in slot unless MakeInactive ran since gen was read.
func (m *Manager) claimFlash(gen uint64, slot **flashSequence, seq *flashSequence) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return false
	}
	*slot = seq
	return true
}

// MakeActive shows the notification for a running phase and takes the wake lock.
func (m *Manager) MakeActive(ctx context.Context, label string) {
	m.mu.Lock()
	show := !m.showing
	m.showing = true
	m.label = label
	m.mu.Unlock()

	if show {
		if err := m.notifier.Show(ctx, label); err != nil {
			m.degrade("notification", err)
		}
	}
	if err := m.wakeLock.Acquire(); err != nil {
		m.degrade("wake_lock", err)
	}
}

// MakeInactive hides the notification, stops the bell and any vibration,
// cancels flashes, and releases the wake lock.
func (m *Manager) MakeInactive(ctx context.Context) {
	m.mu.Lock()
	wasShowing := m.showing
	m.showing = false
	m.generation++
	flashes := []*flashSequence{m.bellFlash, m.poiFlash}
	m.bellFlash, m.poiFlash = nil, nil
	m.mu.Unlock()

	for _, seq := range flashes {
		if seq != nil {
			seq.cancel()
		}
	}
	if !wasShowing {
		return
	}

	if err := m.wakeLock.Release(); err != nil {
		m.degrade("wake_lock", err)
	}
	if err := m.notifier.Dismiss(ctx); err != nil {
		m.degrade("notification", err)
	}

	m.bellMu.Lock()
	m.stopBellsLocked()
	m.bellMu.Unlock()
	m.vibrator.Cancel()
}

// ActivityStart marks the UI as visible. Safe to call repeatedly.
func (m *Manager) ActivityStart() {
	m.mu.Lock()
	m.activityActive = true
	showing := m.showing
	m.mu.Unlock()

	if showing {
		if err := m.wakeLock.Acquire(); err != nil {
			m.degrade("wake_lock", err)
		}
	}
}

// ActivityStop marks the UI as hidden and releases the wake lock.
func (m *Manager) ActivityStop() {
	m.mu.Lock()
	m.activityActive = false
	m.mu.Unlock()

	if err := m.wakeLock.Release(); err != nil {
		m.degrade("wake_lock", err)
	}
}

// WakeScreenForPause wakes the screen briefly when a bell pauses the timer.
func (m *Manager) WakeScreenForPause() {
	if err := m.wakeLock.WakeScreen(pauseWakeTime); err != nil {
		m.degrade("wake_screen", err)
	}
}

func (m *Manager) wakeScreenForBell(d time.Duration) {
	m.mu.Lock()
	active := m.activityActive
	m.mu.Unlock()
	if !active {
		return
	}
	if err := m.wakeLock.WakeScreen(d); err != nil {
		m.degrade("wake_screen", err)
	}
}

func (m *Manager) degrade(channel string, err error) {
	metrics.ChannelFailures.WithLabelValues(channel).Inc()
	if m.logger != nil {
		m.logger.Warn("alert channel failed", "channel", channel, "error", err.Error())
	}
}

func (m *Manager) debug(msg string, attrs ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, attrs...)
	}
}
