package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/rbright/debatebell/internal/alert"
	"github.com/rbright/debatebell/internal/bell"
	"github.com/rbright/debatebell/internal/cli"
	"github.com/rbright/debatebell/internal/config"
	"github.com/rbright/debatebell/internal/flash"
	"github.com/rbright/debatebell/internal/indicator"
	"github.com/rbright/debatebell/internal/ipc"
	"github.com/rbright/debatebell/internal/metrics"
	"github.com/rbright/debatebell/internal/phase"
	"github.com/rbright/debatebell/internal/session"
	"github.com/rbright/debatebell/internal/sound"
	"github.com/rbright/debatebell/internal/timers"
	"github.com/rbright/debatebell/internal/tui"
	"github.com/rbright/debatebell/internal/wakelock"
)

const (
	appName         = "debatebell"
	acquireProbe    = 180 * time.Millisecond
	acquireRetries  = 8
	poiMargin       = time.Minute
	defaultPrepName = "Prep time"
)

// Run times one phase until it is stopped, interrupted, or ends on its own.
func (r Runner) Run(ctx context.Context, g cli.Globals, opts cli.RunOptions) error {
	e, err := r.prepare(g, "run")
	if err != nil {
		return err
	}
	defer e.close()
	cfg := e.cfg.Config
	logger := e.logger

	format, label, err := r.buildPhase(e, opts)
	if err != nil {
		return err
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return err
	}
	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{
		ProbeTimeout: acquireProbe,
		Retries:      acquireRetries,
		OnStale: func(path string) {
			logger.Info("removed stale timer socket", "path", path)
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	alerts, closeAlerts := newAlerts(cfg, logger)
	defer closeAlerts()

	controller, err := session.NewController(session.Options{
		Label:  label,
		Format: format,
		Alerts: alerts,
		Logger: logger,
		Overtime: phase.Overtime{
			First:  time.Duration(cfg.Overtime.FirstBellSeconds) * time.Second,
			Period: time.Duration(cfg.Overtime.PeriodSeconds) * time.Second,
		},
		EndAfter:     opts.EndAfter,
		RingInterval: time.Duration(cfg.Sound.RepeatIntervalMS) * time.Millisecond,
	})
	if err != nil {
		return err
	}

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	if err := metrics.Serve(serverCtx, cfg.Metrics.Listen, logger); err != nil {
		fmt.Fprintf(r.Stderr, "warning: metrics disabled: %v\n", err)
		logger.Warn("metrics listen failed", "addr", cfg.Metrics.Listen, "error", err.Error())
	}

	serverErrCh := make(chan error, 1)
	go func() {
		server := &ipc.Server{Handler: controller, Logger: logger}
		serverErrCh <- server.Serve(serverCtx, listener)
	}()

	var result session.Result
	if r.useTUI(opts) {
		result = r.runTUI(ctx, controller, alerts, cfg, logger)
	} else {
		fmt.Fprintf(r.Stdout, "timing %s (%s); control it with debatebell pause|resume|ring|poi|stop\n",
			label, bell.Clock(format.Length()))
		result = controller.Run(ctx)
	}

	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		return fmt.Errorf("ipc server failed: %w", serverErr)
	}

	logSessionResult(logger, label, result)
	if result.Err != nil {
		return result.Err
	}
	fmt.Fprintf(r.Stdout, "%s stopped at %s after %d bell(s)\n", label, bell.Clock(result.Elapsed), result.BellsRung)
	return nil
}

func (r Runner) useTUI(opts cli.RunOptions) bool {
	if opts.NoTUI {
		return false
	}
	f, ok := r.Stdout.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// runTUI drives the controller from the terminal clock and paints flashes there.
func (r Runner) runTUI(
	ctx context.Context,
	controller *session.Controller,
	alerts *alert.Manager,
	cfg config.Config,
	logger *slog.Logger,
) session.Result {
	screen := tui.NewScreen()
	gate := flash.NewGate(screen, time.Duration(cfg.Flash.BeginTimeoutMS)*time.Millisecond, logger)
	alerts.SetFlashScreenListener(gate)

	program := tea.NewProgram(
		tui.NewClock(controller, screen),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithOutput(r.Stdout),
	)
	screen.Attach(program)

	alerts.ActivityStart()
	defer alerts.ActivityStop()

	resultCh := make(chan session.Result, 1)
	go func() {
		resultCh <- controller.Run(ctx)
	}()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Warn("terminal clock failed", "error", err.Error())
	}
	_ = controller.Stop()
	return <-resultCh
}

// newAlerts builds the alert manager and the channels config enables.
func newAlerts(cfg config.Config, logger *slog.Logger) (*alert.Manager, func()) {
	engine := sound.NewEngine(sound.Options{AppName: appName, Volume: cfg.Sound.Volume, Logger: logger})

	opts := alert.Options{
		Player:    engine,
		Scheduler: timers.Real{},
		Logger:    logger,
		Policy:    policyFromConfig(cfg),
	}
	if cfg.Vibrate.Backend == "buzzer" {
		opts.Vibrator = engine.NewBuzzer()
	}
	if cfg.Notification.Enable {
		opts.Notifier = indicator.New(cfg.Notification)
	}
	if cfg.WakeLock.Enable {
		opts.WakeLock = wakelock.New(appName, cfg.WakeLock.ScreenCmd.Argv, logger)
	}
	return alert.New(opts), func() { _ = engine.Close() }
}

func policyFromConfig(cfg config.Config) alert.Policy {
	bellFlash, _ := alert.ParseFlashMode(cfg.Alerts.FlashMode)
	poiFlash, _ := alert.ParseFlashMode(cfg.POI.FlashMode)
	return alert.Policy{
		Silent:     cfg.Alerts.Silent || !cfg.Sound.Enable,
		Vibrate:    cfg.Alerts.Vibrate,
		Flash:      bellFlash,
		POIVibrate: cfg.POI.Vibrate,
		POIFlash:   poiFlash,
	}
}

// buildPhase turns run options into a phase format and its display label.
func (r Runner) buildPhase(e env, opts cli.RunOptions) (phase.Format, string, error) {
	if opts.Prep {
		_, rules, err := r.loadRules(e)
		if err != nil {
			return nil, "", err
		}
		label := opts.Name
		if label == "" {
			label = defaultPrepName
		}
		return phase.NewPrep(opts.Length, rules), label, nil
	}
	speech := buildSpeech(opts)
	return speech, speech.Reference(), nil
}

// buildSpeech lays out a speech's bells and periods.
func buildSpeech(opts cli.RunOptions) *phase.Controlled {
	speech := phase.NewSpeech(opts.Name, opts.Length)
	bells := append([]bell.Event(nil), opts.Bells...)
	if len(bells) == 0 {
		bells = defaultSpeechBells(opts.Length)
	}

	if opts.POIs && opts.Length > 2*poiMargin {
		speech.SetFirstPeriod(bell.NewPeriod(opts.Name, "", "Protected time", false))
		bells = withPeriod(bells, poiMargin, bell.NewPeriod(opts.Name, "", "POIs allowed", true))
		bells = withPeriod(bells, opts.Length-poiMargin, bell.NewPeriod(opts.Name, "", "Protected time", false))
	}
	bells = withPeriod(bells, opts.Length, bell.NewPeriod(opts.Name, "", "Overtime", false))

	for _, b := range bells {
		speech.AddBell(b)
	}
	return speech
}

// defaultSpeechBells rings once a minute in, once a minute from the end, and
// twice at the end.
func defaultSpeechBells(length time.Duration) []bell.Event {
	var bells []bell.Event
	if length > 2*poiMargin {
		bells = append(bells,
			bell.Event{Time: poiMargin, Sound: bell.Rings(1)},
			bell.Event{Time: length - poiMargin, Sound: bell.Rings(1)},
		)
	}
	return append(bells, bell.Event{Time: length, Sound: bell.Rings(2)})
}

// withPeriod attaches p to the bell at t, adding a silent bell when none rings then.
func withPeriod(bells []bell.Event, t time.Duration, p bell.Period) []bell.Event {
	for i := range bells {
		if bells[i].Time == t {
			bells[i].NextPeriod = &p
			return bells
		}
	}
	return append(bells, bell.Event{Time: t, Sound: bell.Rings(0), NextPeriod: &p})
}

func logSessionResult(logger *slog.Logger, label string, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"label", label,
		"state", result.State,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"elapsed", bell.Clock(result.Elapsed),
		"bells_rung", result.BellsRung,
	}

	if result.Err != nil {
		logger.Error("phase failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("phase complete", fields...)
}
