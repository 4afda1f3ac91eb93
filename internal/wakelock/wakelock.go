// Package wakelock keeps the session awake while a phase runs, using
// systemd-inhibit, and wakes the screen for visual bells.
package wakelock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	inhibitBinary  = "systemd-inhibit"
	screenCmdLimit = 2 * time.Second
)

// Inhibitor holds a systemd-inhibit child for as long as the lock is held.
// Acquire and Release are idempotent.
type Inhibitor struct {
	who       string
	screenCmd []string
	logger    *slog.Logger

	mu   sync.Mutex
	held *exec.Cmd
	done chan struct{}
}

// New builds an Inhibitor. screenCmd, when non-empty, is run to turn the
// display on before a screen wake.
func New(who string, screenCmd []string, logger *slog.Logger) *Inhibitor {
	if strings.TrimSpace(who) == "" {
		who = "debatebell"
	}
	return &Inhibitor{
		who:       who,
		screenCmd: append([]string(nil), screenCmd...),
		logger:    logger,
	}
}

// Held reports whether the long-lived inhibitor is running.
func (i *Inhibitor) Held() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.held != nil
}

// Acquire blocks sleep and idle until Release.
func (i *Inhibitor) Acquire() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.held != nil {
		return nil
	}

	cmd := exec.Command(inhibitBinary, i.args("sleep:idle", "debate phase running", "infinity")...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", inhibitBinary, err)
	}
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	i.held = cmd
	i.done = done
	return nil
}

// Release ends the inhibitor started by Acquire.
func (i *Inhibitor) Release() error {
	i.mu.Lock()
	cmd, done := i.held, i.done
	i.held, i.done = nil, nil
	i.mu.Unlock()

	if cmd == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("stop %s: %w", inhibitBinary, err)
	}
	<-done
	return nil
}

// WakeScreen turns the display on and keeps it from idling for d.
func (i *Inhibitor) WakeScreen(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if len(i.screenCmd) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), screenCmdLimit)
		defer cancel()
		out, err := exec.CommandContext(ctx, i.screenCmd[0], i.screenCmd[1:]...).CombinedOutput()
		if err != nil {
			trimmed := strings.TrimSpace(string(out))
			if trimmed == "" {
				return fmt.Errorf("wake screen %v failed: %w", i.screenCmd, err)
			}
			return fmt.Errorf("wake screen %v failed: %w (%s)", i.screenCmd, err, trimmed)
		}
	}

	seconds := int((d + time.Second - 1) / time.Second)
	cmd := exec.Command(inhibitBinary, i.args("idle", "debate bell", strconv.Itoa(seconds))...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", inhibitBinary, err)
	}
	go func() {
		if err := cmd.Wait(); err != nil && i.logger != nil {
			i.logger.Debug("screen wake inhibitor exited", "error", err.Error())
		}
	}()
	return nil
}

func (i *Inhibitor) args(what, why, sleepFor string) []string {
	return []string{
		"--what=" + what,
		"--who=" + i.who,
		"--why=" + why,
		"--mode=block",
		"sleep",
		sleepFor,
	}
}
