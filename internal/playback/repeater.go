// Package playback rings one bell: a sound clip repeated a fixed number of
// times at a fixed interval, driven by an explicit state machine.
package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/rbright/debatebell/internal/bell"
	"github.com/rbright/debatebell/internal/fsm"
	"github.com/rbright/debatebell/internal/metrics"
	"github.com/rbright/debatebell/internal/timers"
)

// DefaultLockTimeout bounds how long any caller waits for the playback lock.
const DefaultLockTimeout = 2 * time.Second

// Clip is one loaded bell sound. Callbacks are delivered asynchronously,
// never from inside a Clip method.
type Clip interface {
	// Start plays the clip from the beginning.
	Start() error
	// Rewind restarts a playing clip from position zero.
	Rewind() error
	Stop()
	Release()
	// OnComplete replaces the natural-completion callback.
	OnComplete(fn func())
	// OnError sets the engine failure callback.
	OnError(fn func(error))
}

// Player loads clips for bell assets.
type Player interface {
	Open(asset bell.Asset) (Clip, error)
}

// Repeater drives a single bell from Play to Finished or Stopped.
type Repeater struct {
	id     string
	spec   bell.SoundSpec
	player Player
	sched  timers.Scheduler
	logger *slog.Logger

	lockTimeout time.Duration
	sem         *semaphore.Weighted

	// guarded by sem
	clip       Clip
	cancelTick timers.Cancel

	stateMu  sync.RWMutex
	state    fsm.State
	done     chan struct{}
	doneOnce sync.Once
}

// Option adjusts a Repeater at construction.
type Option func(*Repeater)

// WithLockTimeout bounds how long each operation waits for the playback
// lock. Non-positive values keep DefaultLockTimeout.
func WithLockTimeout(d time.Duration) Option {
	return func(r *Repeater) {
		if d > 0 {
			r.lockTimeout = d
		}
	}
}

// NewRepeater builds a repeater in the initial state.
func NewRepeater(spec bell.SoundSpec, player Player, sched timers.Scheduler, logger *slog.Logger, opts ...Option) *Repeater {
	if sched == nil {
		sched = timers.Real{}
	}
	r := &Repeater{
		id:          uuid.NewString(),
		spec:        spec,
		player:      player,
		sched:       sched,
		logger:      logger,
		lockTimeout: DefaultLockTimeout,
		sem:         semaphore.NewWeighted(1),
		state:       fsm.StateInitial,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID identifies this playback session in logs.
func (r *Repeater) ID() string {
	return r.id
}

// Spec returns the sound spec being played.
func (r *Repeater) Spec() bell.SoundSpec {
	return r.spec
}

// State returns the current state snapshot.
func (r *Repeater) State() fsm.State {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.state
}

// IsPlaying reports whether the bell still owns a sound.
func (r *Repeater) IsPlaying() bool {
	return fsm.Active(r.State())
}

// Done is closed once the repeater reaches Finished or Stopped.
func (r *Repeater) Done() <-chan struct{} {
	return r.done
}

// Play loads the clip and schedules the rings. Only the first call from the
// initial state has any effect. Silent specs do nothing.
func (r *Repeater) Play() {
	if !r.lock("play") {
		return
	}
	defer r.unlock()

	if r.State() != fsm.StateInitial {
		r.debug("play ignored", "state", string(r.State()))
		return
	}

	asset := r.spec.Asset()
	times := r.spec.TimesToRepeat()
	if asset == bell.AssetNone || times == 0 || r.player == nil {
		return
	}

	clip, err := r.player.Open(asset)
	if err != nil {
		r.warn("open bell clip failed", "asset", asset.String(), "error", err.Error())
		metrics.ChannelFailures.WithLabelValues("sound").Inc()
		r.transition(fsm.EventFail)
		return
	}

	r.clip = clip
	clip.OnError(func(err error) { r.onEngineError(clip, err) })
	r.transition(fsm.EventPrepare)
	r.cancelTick = r.sched.Repeat(r.spec.Interval(), times, func(i int) {
		r.tick(clip, i, times)
	})
}

// Stop halts the bell from any state. Repeated calls are no-ops. It
// reports false when the playback lock could not be taken, in which case
// the bell may still be sounding and Stop should be retried.
func (r *Repeater) Stop() bool {
	if !r.lock("stop") {
		return false
	}
	defer r.unlock()

	if r.State() == fsm.StateStopped {
		return true
	}
	r.cancelTicksLocked()
	if r.clip != nil {
		r.clip.Stop()
	}
	r.releaseLocked()
	r.transition(fsm.EventStop)
	return true
}

func (r *Repeater) tick(clip Clip, i, total int) {
	if !r.lock("tick") {
		return
	}
	defer r.unlock()

	if r.clip != clip {
		return
	}

	var err error
	switch r.State() {
	case fsm.StatePrepared:
		err = clip.Start()
	case fsm.StatePlaying:
		err = clip.Rewind()
	default:
		return
	}
	if err != nil {
		r.warn("bell clip start failed", "ring", i, "error", err.Error())
		metrics.ChannelFailures.WithLabelValues("sound").Inc()
		r.cancelTicksLocked()
		r.releaseLocked()
		r.transition(fsm.EventFail)
		return
	}

	r.transition(fsm.EventRing)
	last := i == total-1
	clip.OnComplete(func() { r.onClipEnd(clip, last) })
}

func (r *Repeater) onClipEnd(clip Clip, last bool) {
	if !r.lock("clip_end") {
		return
	}
	defer r.unlock()

	if r.clip != clip || r.State() != fsm.StatePlaying {
		return
	}
	if !last {
		r.transition(fsm.EventClipEnd)
		return
	}
	r.cancelTicksLocked()
	r.releaseLocked()
	r.transition(fsm.EventFinish)
}

func (r *Repeater) onEngineError(clip Clip, err error) {
	if !r.lock("engine_error") {
		return
	}
	defer r.unlock()

	if r.clip != clip {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.warn("bell playback engine error", "error", msg)
	metrics.ChannelFailures.WithLabelValues("sound").Inc()
	r.cancelTicksLocked()
	r.releaseLocked()
	r.transition(fsm.EventFail)
}

func (r *Repeater) lock(op string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), r.lockTimeout)
	defer cancel()
	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.warn("playback lock timed out", "op", op)
		metrics.LockTimeouts.WithLabelValues("playback").Inc()
		return false
	}
	return true
}

func (r *Repeater) unlock() {
	r.sem.Release(1)
}

func (r *Repeater) cancelTicksLocked() {
	if r.cancelTick != nil {
		r.cancelTick()
		r.cancelTick = nil
	}
}

func (r *Repeater) releaseLocked() {
	if r.clip != nil {
		r.clip.Release()
		r.clip = nil
	}
}

func (r *Repeater) transition(event fsm.Event) {
	r.stateMu.Lock()
	next, err := fsm.Transition(r.state, event)
	if err == nil {
		r.state = next
	}
	r.stateMu.Unlock()

	if err != nil {
		r.debug("playback transition rejected", "event", string(event), "error", err.Error())
		return
	}
	metrics.PlaybackTransitions.WithLabelValues(string(next)).Inc()
	if next == fsm.StateFinished || next == fsm.StateStopped {
		r.doneOnce.Do(func() { close(r.done) })
	}
}

func (r *Repeater) debug(msg string, attrs ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Debug(msg, append([]any{"playback", r.id}, attrs...)...)
}

func (r *Repeater) warn(msg string, attrs ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(msg, append([]any{"playback", r.id}, attrs...)...)
}
