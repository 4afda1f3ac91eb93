package config

import (
	"fmt"
	"net"
	"strings"
)

var flashModes = []string{"off", "solid", "strobe"}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if !oneOf(cfg.Alerts.FlashMode, flashModes) {
		return nil, fmt.Errorf("alerts.flash_mode must be one of: off, solid, strobe")
	}
	if !oneOf(cfg.POI.FlashMode, flashModes) {
		return nil, fmt.Errorf("poi.flash_mode must be one of: off, solid, strobe")
	}
	if cfg.Sound.Volume < 0 || cfg.Sound.Volume > 1 {
		return nil, fmt.Errorf("sound.volume must be between 0 and 1")
	}
	if cfg.Sound.RepeatIntervalMS <= 0 {
		return nil, fmt.Errorf("sound.repeat_interval_ms must be > 0")
	}
	if !oneOf(cfg.Vibrate.Backend, []string{"buzzer", "none"}) {
		return nil, fmt.Errorf("vibrate.backend must be one of: buzzer, none")
	}
	backend := strings.ToLower(strings.TrimSpace(cfg.Notification.Backend))
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("notification.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Notification.DesktopAppName) == "" {
		return nil, fmt.Errorf("notification.desktop_app_name must not be empty when notification.backend=desktop")
	}
	if cfg.Flash.BeginTimeoutMS <= 0 {
		return nil, fmt.Errorf("flash.begin_timeout_ms must be > 0")
	}
	if cfg.Overtime.FirstBellSeconds < 0 || cfg.Overtime.PeriodSeconds < 0 {
		return nil, fmt.Errorf("overtime bell times must be >= 0")
	}
	if listen := strings.TrimSpace(cfg.Metrics.Listen); listen != "" {
		if _, _, err := net.SplitHostPort(listen); err != nil {
			return nil, fmt.Errorf("metrics.listen must be host:port: %w", err)
		}
	}

	if !cfg.Sound.Enable && !cfg.Alerts.Silent {
		warnings = append(warnings, Warning{Message: "sound.enable=false; bells will ring without audio"})
	}
	if cfg.Alerts.Silent && !cfg.Alerts.Vibrate && normalize(cfg.Alerts.FlashMode) == "off" {
		warnings = append(warnings, Warning{Message: "every bell alert channel is disabled"})
	}

	return warnings, nil
}

func oneOf(value string, allowed []string) bool {
	value = normalize(value)
	for _, candidate := range allowed {
		if value == candidate {
			return true
		}
	}
	return false
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
