package hypr

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type monitor struct {
	Name    string `json:"name"`
	Focused bool   `json:"focused"`
}

// QueryFocusedMonitor returns the focused monitor name (or the first monitor fallback).
func QueryFocusedMonitor(ctx context.Context) (string, error) {
	monitors, err := queryMonitors(ctx)
	if err != nil {
		return "", err
	}
	for _, mon := range monitors {
		if mon.Focused {
			return strings.TrimSpace(mon.Name), nil
		}
	}
	return strings.TrimSpace(monitors[0].Name), nil
}

// Notify sends a Hyprland notification payload.
func Notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = "rgb(89b4fa)"
	}
	return runHyprctl(
		ctx,
		"--quiet",
		"dispatch",
		"notify",
		strconv.Itoa(icon),
		strconv.Itoa(timeoutMS),
		color,
		text,
	)
}

// DismissNotify dismisses active Hyprland notifications.
func DismissNotify(ctx context.Context) error {
	return runHyprctl(ctx, "--quiet", "dispatch", "dismissnotify")
}

func queryMonitors(ctx context.Context) ([]monitor, error) {
	output, err := runHyprctlJSON(ctx, "monitors")
	if err != nil {
		return nil, err
	}

	var monitors []monitor
	if err := json.Unmarshal(output, &monitors); err != nil {
		return nil, fmt.Errorf("decode hyprctl monitors json: %w", err)
	}
	if len(monitors) == 0 {
		return nil, fmt.Errorf("hyprctl monitors returned no outputs")
	}
	return monitors, nil
}

// runHyprctlJSON executes a JSON-returning hyprctl subcommand.
func runHyprctlJSON(ctx context.Context, target string) ([]byte, error) {
	output, err := runHyprctlOutput(ctx, "-j", target)
	if err != nil {
		return nil, err
	}
	return output, nil
}
