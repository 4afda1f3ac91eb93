// Package doctor runs readiness diagnostics for config, alert channels, and audio output.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/debatebell/internal/audio"
	"github.com/rbright/debatebell/internal/config"
	"github.com/rbright/debatebell/internal/hypr"
	"github.com/rbright/debatebell/internal/ipc"
	"github.com/rbright/debatebell/internal/prepbells"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkControlSocket())

	if cfg.Config.Notification.Enable {
		checks = append(checks, checkNotificationBackend(ctx, cfg.Config.Notification)...)
	}

	if cfg.Config.WakeLock.Enable {
		checks = append(checks, checkBinary("systemd-inhibit", "sleep inhibitor available"))
		checks = append(checks, checkCommand(cfg.Config.WakeLock.ScreenCmd.Argv, "wake_lock.screen_cmd"))
	}

	if cfg.Config.Sound.Enable || cfg.Config.Vibrate.Backend == "buzzer" {
		checks = append(checks, checkAudioSelection(ctx))
	}

	checks = append(checks, checkPrepBells(cfg.Config.PrepBells.Path))

	return Report{Checks: checks}
}

// checkNotificationBackend validates the tools the notification backend shells out to.
func checkNotificationBackend(ctx context.Context, cfg config.NotificationConfig) []Check {
	if cfg.Backend != "hypr" {
		return []Check{checkBinary("busctl", "desktop notifications go through busctl")}
	}

	checks := []Check{
		checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"),
		checkBinary("hyprctl", "Hyprland notifications go through hyprctl"),
	}
	checks = append(checks, checkHyprMonitor(ctx))
	return checks
}

// checkHyprMonitor confirms hyprctl can answer queries in this session.
func checkHyprMonitor(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	monitor, err := hypr.QueryFocusedMonitor(ctx)
	if err != nil {
		return Check{Name: "hypr.monitor", Pass: false, Message: err.Error()}
	}
	return Check{Name: "hypr.monitor", Pass: true, Message: fmt.Sprintf("notifications appear on %q", monitor)}
}

// checkControlSocket confirms there is somewhere for a timer to listen.
func checkControlSocket() Check {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		return Check{Name: "control_socket", Message: err.Error() + "; ring/pause/stop cannot reach a running timer"}
	}
	return Check{Name: "control_socket", Pass: true, Message: path}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	check := checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
	check.Name = name
	return check
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection finds the sink bells will play through.
func checkAudioSelection(ctx context.Context) Check {
	selection, err := audio.SelectDevice(ctx)
	if err != nil {
		return Check{Name: "audio.sink", Pass: false, Message: err.Error()}
	}
	if selection.Warning != "" {
		return Check{Name: "audio.sink", Pass: false, Message: selection.Warning}
	}
	return Check{Name: "audio.sink", Pass: true, Message: fmt.Sprintf("bells play on %q", selection.Device.ID)}
}

// checkPrepBells loads the saved prep bell rules.
func checkPrepBells(path string) Check {
	if strings.TrimSpace(path) == "" {
		resolved, err := prepbells.DefaultPath()
		if err != nil {
			return Check{Name: "prep_bells", Pass: false, Message: err.Error()}
		}
		path = resolved
	}

	loaded, err := prepbells.Load(path)
	if err != nil {
		return Check{Name: "prep_bells", Pass: false, Message: err.Error()}
	}
	if len(loaded.Warnings) > 0 {
		return Check{Name: "prep_bells", Pass: false, Message: strings.Join(loaded.Warnings, "; ")}
	}
	if !loaded.Exists {
		return Check{Name: "prep_bells", Pass: true, Message: "no saved rules; using the default finish bell"}
	}
	return Check{Name: "prep_bells", Pass: true, Message: fmt.Sprintf("%d rule(s) in %q", loaded.Rules.Len(), path)}
}
