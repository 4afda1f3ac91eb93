package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/debatebell/internal/bell"
	"github.com/rbright/debatebell/internal/cli"
	"github.com/rbright/debatebell/internal/fsm"
	"github.com/rbright/debatebell/internal/ipc"
	"github.com/rbright/debatebell/internal/playback"
	"github.com/rbright/debatebell/internal/sound"
	"github.com/rbright/debatebell/internal/timers"
)

const (
	forwardTimeout = 220 * time.Millisecond
	ringGrace      = 3 * time.Second
)

var errNoTimer = errors.New("no active debatebell timer")

// Forward sends one control command to the running timer.
func (r Runner) Forward(ctx context.Context, g cli.Globals, req ipc.Request) error {
	e, err := r.prepare(g, req.Command)
	if err != nil {
		return err
	}
	defer e.close()

	status := req.Command == ipc.CommandStatus
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		if status {
			fmt.Fprintln(r.Stdout, "idle")
			return nil
		}
		return err
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		if status {
			fmt.Fprintln(r.Stdout, "idle")
			return nil
		}
		return errNoTimer
	}
	if err != nil {
		return err
	}

	if status {
		fmt.Fprintln(r.Stdout, formatStatus(resp))
		return nil
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return nil
}

// Ring rings the running timer's bell, or rings here when no timer is running.
func (r Runner) Ring(ctx context.Context, g cli.Globals, rings int) error {
	e, err := r.prepare(g, ipc.CommandBell)
	if err != nil {
		return err
	}
	defer e.close()

	if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
		resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandBell, Rings: rings})
		if handled {
			if err != nil {
				return err
			}
			fmt.Fprintln(r.Stdout, resp.Message)
			return nil
		}
	}

	e.logger.Info("ringing without a running timer", "rings", rings)
	return ringHere(ctx, e, rings)
}

// ringHere plays rings through a private sound engine and waits for the last ring.
func ringHere(ctx context.Context, e env, rings int) error {
	cfg := e.cfg.Config
	if !cfg.Sound.Enable || cfg.Alerts.Silent {
		return errors.New("sound is disabled in config")
	}

	engine := sound.NewEngine(sound.Options{AppName: "debatebell", Volume: cfg.Sound.Volume, Logger: e.logger})
	defer func() { _ = engine.Close() }()

	spec := bell.SoundSpec{
		RingCount:      rings,
		RepeatInterval: time.Duration(cfg.Sound.RepeatIntervalMS) * time.Millisecond,
	}
	repeater := playback.NewRepeater(spec, engine, timers.Real{}, e.logger)
	repeater.Play()
	defer repeater.Stop()

	wait := time.Duration(spec.TimesToRepeat())*spec.Interval() + ringGrace
	select {
	case <-repeater.Done():
	case <-ctx.Done():
		return nil
	case <-time.After(wait):
	}
	if repeater.State() != fsm.StateFinished {
		return fmt.Errorf("bell did not finish playing (state %s)", repeater.State())
	}
	return nil
}

// formatStatus renders a status response on one line.
func formatStatus(resp ipc.Response) string {
	state := resp.State
	if state == "" {
		state = "idle"
	}
	parts := []string{state}
	if resp.Phase != "" {
		parts = append(parts, resp.Phase)
	}
	if resp.LengthMS > 0 {
		elapsed := time.Duration(resp.ElapsedMS) * time.Millisecond
		length := time.Duration(resp.LengthMS) * time.Millisecond
		parts = append(parts, bell.Clock(elapsed)+"/"+bell.Clock(length))
	}
	if resp.NextBellMS > 0 {
		parts = append(parts, "next bell "+bell.Clock(time.Duration(resp.NextBellMS)*time.Millisecond))
	}
	if resp.Period != "" {
		parts = append(parts, resp.Period)
	}
	if resp.Ringing {
		parts = append(parts, "ringing")
	}
	return strings.Join(parts, "  ")
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.IsNoTimer(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}
