// Package session runs one debate phase: it counts elapsed time, rings the
// phase's bells through the alert layer, and serves control commands.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/rbright/debatebell/internal/bell"
	"github.com/rbright/debatebell/internal/fsm"
	"github.com/rbright/debatebell/internal/ipc"
	"github.com/rbright/debatebell/internal/phase"
	"github.com/rbright/debatebell/internal/timers"
)

const (
	// DefaultTick is how often the clock is sampled for due bells.
	DefaultTick    = time.Second
	cleanupTimeout = 800 * time.Millisecond
)

var (
	// ErrPOINotAllowed rejects a point of information outside a POI period.
	ErrPOINotAllowed = errors.New("points of information are not allowed in this period")
	// ErrNoPOIs rejects a point of information in a phase that never allows one.
	ErrNoPOIs = errors.New("this phase has no points of information")
)

// Alerter is the session-facing subset of the alert manager.
type Alerter interface {
	MakeActive(ctx context.Context, label string)
	MakeInactive(ctx context.Context)
	TriggerAlert(ctx context.Context, spec bell.SoundSpec)
	PlayBell(spec bell.SoundSpec)
	PlaySingleBell()
	TriggerPOIAlert()
	WakeScreenForPause()
	IsPlaying() bool
}

// noopAlerter keeps the timer counting when no alert layer is wired.
type noopAlerter struct{}

func (noopAlerter) MakeActive(context.Context, string)           {}
func (noopAlerter) MakeInactive(context.Context)                 {}
func (noopAlerter) TriggerAlert(context.Context, bell.SoundSpec) {}
func (noopAlerter) PlayBell(bell.SoundSpec)                      {}
func (noopAlerter) PlaySingleBell()                              {}
func (noopAlerter) TriggerPOIAlert()                             {}
func (noopAlerter) WakeScreenForPause()                          {}
func (noopAlerter) IsPlaying() bool                              { return false }

// Options configures a Controller.
type Options struct {
	Label     string
	Format    phase.Format
	Alerts    Alerter
	Scheduler timers.Scheduler
	Logger    *slog.Logger
	// Tick is how often elapsed time is sampled. Elapsed time itself
	// comes from the scheduler clock, so a late tick loses nothing.
	Tick     time.Duration
	Overtime phase.Overtime
	// EndAfter, when positive, ends the run once elapsed reaches the
	// phase length plus EndAfter. Otherwise the run lasts until stopped.
	EndAfter time.Duration
	// RingInterval, when positive, replaces the gap between rings of
	// every bell this session rings.
	RingInterval time.Duration
}

// Status is a point-in-time view of a running phase.
type Status struct {
	State    fsm.TimerState
	Label    string
	Elapsed  time.Duration
	Length   time.Duration
	Period   bell.Period
	NextBell time.Duration
	HasNext  bool
	Ringing  bool
	// POIs reports whether any period of the phase allows points of information.
	POIs bool
}

// Overtime reports whether the phase has run past its length.
func (s Status) Overtime() bool {
	return s.Elapsed > s.Length
}

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	State      fsm.TimerState
	Elapsed    time.Duration
	BellsRung  int
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Controller owns the elapsed time and timer state of one phase.
type Controller struct {
	label    string
	format   phase.Format
	alerts   Alerter
	sched    timers.Scheduler
	logger   *slog.Logger
	tick     time.Duration
	overtime phase.Overtime
	endAfter time.Duration
	interval time.Duration

	mu    sync.RWMutex
	state fsm.TimerState
	// banked holds time counted before the current running stretch,
	// which began at since on the scheduler clock.
	banked  time.Duration
	since   time.Duration
	elapsed time.Duration
	// checked is the elapsed time up to which bells have been rung.
	checked   time.Duration
	bellsRung int

	done     chan struct{}
	doneOnce sync.Once
}

// NewController constructs a phase controller with safe default fallbacks.
func NewController(opts Options) (*Controller, error) {
	if opts.Format == nil {
		return nil, errors.New("session requires a phase format")
	}
	if opts.Alerts == nil {
		opts.Alerts = noopAlerter{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = timers.Real{}
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	return &Controller{
		label:    opts.Label,
		format:   opts.Format,
		alerts:   opts.Alerts,
		sched:    opts.Scheduler,
		logger:   opts.Logger,
		tick:     opts.Tick,
		overtime: opts.Overtime,
		endAfter: opts.EndAfter,
		interval: opts.RingInterval,
		state:    fsm.TimerIdle,
		done:     make(chan struct{}),
	}, nil
}

// State returns the current timer state snapshot.
func (c *Controller) State() fsm.TimerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Status returns the current phase view.
func (c *Controller) Status() Status {
	c.mu.RLock()
	state, elapsed := c.state, c.elapsed
	c.mu.RUnlock()

	length := c.format.Length()
	status := Status{
		State:   state,
		Label:   c.label,
		Elapsed: elapsed,
		Length:  length,
		Period:  c.format.ActivePeriod(elapsed),
		Ringing: c.alerts.IsPlaying(),
		POIs:    c.format.HasPOIsAllowedSomewhere(),
	}
	for _, b := range c.format.BellsSorted() {
		if b.Time > elapsed {
			status.NextBell, status.HasNext = b.Time, true
			return status
		}
	}
	status.NextBell, status.HasNext = c.overtime.Next(elapsed, length)
	return status
}

// Done is closed when the run ends.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Run counts the phase until it is stopped, ctx is cancelled, or EndAfter passes.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now()}

	if err := c.transition(fsm.TimerStart); err != nil {
		result.State = c.State()
		result.Err = err
		result.FinishedAt = time.Now()
		return result
	}

	c.alerts.MakeActive(ctx, c.label)
	c.logInfo("phase started", "label", c.label, "length", bell.Clock(c.format.Length()))

	cancel := c.sched.Repeat(c.tick, math.MaxInt, func(i int) {
		if i > 0 {
			c.advance(ctx)
		}
	})

	select {
	case <-ctx.Done():
		c.logInfo("phase interrupted", "label", c.label)
	case <-c.done:
	}
	cancel()
	_ = c.transition(fsm.TimerStop)
	c.finish()

	cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cleanupCancel()
	c.alerts.MakeInactive(cleanupCtx)

	c.mu.RLock()
	result.State = c.state
	result.Elapsed = c.elapsed
	result.BellsRung = c.bellsRung
	c.mu.RUnlock()
	result.FinishedAt = time.Now()
	c.logInfo("phase ended", "label", c.label, "elapsed", bell.Clock(result.Elapsed), "bells", result.BellsRung)
	return result
}

// advance samples the clock and rings every bell that fell due since the
// previous sample.
func (c *Controller) advance(ctx context.Context) {
	c.mu.Lock()
	if !fsm.Counting(c.state) {
		c.mu.Unlock()
		return
	}
	prev := c.checked
	t := c.banked + c.sched.Now() - c.since
	c.elapsed, c.checked = t, t
	c.mu.Unlock()

	length := c.format.Length()
	for _, b := range c.format.BellsSorted() {
		if b.Time <= prev || b.Time > t {
			continue
		}
		if c.handleBell(ctx, b) {
			// Bells after a pausing bell wait for the resume.
			c.mu.Lock()
			c.checked = b.Time
			c.mu.Unlock()
			return
		}
	}
	if next, ok := c.overtime.Next(prev, length); ok && next <= t {
		c.logInfo("overtime bell", "at", bell.Clock(next))
		c.countBell()
		c.alerts.PlayBell(c.sound(bell.Rings(phase.OvertimeRings)))
	}
	if c.endAfter > 0 && t >= length+c.endAfter {
		_ = c.transition(fsm.TimerStop)
		c.finish()
	}
}

// handleBell rings b and reports whether it paused the clock.
func (c *Controller) handleBell(ctx context.Context, b bell.Event) bool {
	c.logInfo("bell", "at", bell.Clock(b.Time), "rings", b.Sound.RingCount, "pause", b.PauseOnBell)
	paused := false
	if b.PauseOnBell {
		if err := c.transition(fsm.TimerBellPause); err == nil {
			paused = true
			c.alerts.WakeScreenForPause()
		}
	}
	if !b.IsSilent() {
		c.countBell()
	}
	c.alerts.TriggerAlert(ctx, c.sound(b.Sound))
	return paused
}

func (c *Controller) countBell() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bellsRung++
}

// Pause halts the clock.
func (c *Controller) Pause() error {
	return c.transition(fsm.TimerPause)
}

// Resume restarts the clock after a user or bell pause.
func (c *Controller) Resume() error {
	return c.transition(fsm.TimerResume)
}

// Stop ends the run.
func (c *Controller) Stop() error {
	if err := c.transition(fsm.TimerStop); err != nil {
		return err
	}
	c.finish()
	return nil
}

// RingBell rings rings bells by hand; zero is a single ring.
func (c *Controller) RingBell(rings int) {
	if rings <= 1 {
		c.alerts.PlaySingleBell()
		return
	}
	c.alerts.PlayBell(c.sound(bell.Rings(rings)))
}

func (c *Controller) sound(spec bell.SoundSpec) bell.SoundSpec {
	if c.interval > 0 {
		spec.RepeatInterval = c.interval
	}
	return spec
}

// POI signals a point of information when the current period allows one.
func (c *Controller) POI() error {
	if !c.format.HasPOIsAllowedSomewhere() {
		return ErrNoPOIs
	}
	c.mu.RLock()
	elapsed := c.elapsed
	c.mu.RUnlock()

	if !c.format.ActivePeriod(elapsed).POIsAllowed {
		return ErrPOINotAllowed
	}
	c.alerts.TriggerPOIAlert()
	return nil
}

// Handle serves IPC commands for the running phase.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return c.response("status", nil)
	case ipc.CommandPause:
		return c.response("paused", c.Pause())
	case ipc.CommandResume:
		return c.response("resumed", c.Resume())
	case ipc.CommandStop:
		return c.response("stop requested", c.Stop())
	case ipc.CommandBell:
		if c.State() == fsm.TimerStopped {
			return c.response("", fmt.Errorf("cannot ring from state %s", fsm.TimerStopped))
		}
		c.RingBell(req.Rings)
		return c.response("bell rung", nil)
	case ipc.CommandPOI:
		return c.response("point of information", c.POI())
	default:
		return c.response("", fmt.Errorf("unknown command: %s", req.Command))
	}
}

func (c *Controller) response(message string, err error) ipc.Response {
	s := c.Status()
	resp := ipc.Response{
		OK:        err == nil,
		State:     string(s.State),
		Phase:     s.Label,
		Period:    s.Period.DescriptionText(),
		ElapsedMS: s.Elapsed.Milliseconds(),
		LengthMS:  s.Length.Milliseconds(),
		Ringing:   s.Ringing,
	}
	if s.HasNext {
		resp.NextBellMS = s.NextBell.Milliseconds()
	}
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Message = message
	return resp
}

// transition applies one timer event to the controller state.
func (c *Controller) transition(event fsm.TimerEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.TimerTransition(c.state, event)
	if err != nil {
		return err
	}
	switch was, now := fsm.Counting(c.state), fsm.Counting(next); {
	case was && !now:
		c.banked += c.sched.Now() - c.since
		c.elapsed = c.banked
	case !was && now:
		c.since = c.sched.Now()
	}
	c.state = next
	return nil
}

func (c *Controller) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Controller) logInfo(msg string, attrs ...any) {
	if c.logger != nil {
		c.logger.Info(msg, attrs...)
	}
}
