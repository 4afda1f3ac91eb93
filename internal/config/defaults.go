package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	screen := "hyprctl dispatch dpms on"

	return Config{
		Alerts: AlertsConfig{
			Silent:    false,
			Vibrate:   true,
			FlashMode: "solid",
		},
		POI: POIConfig{
			Vibrate:   true,
			FlashMode: "solid",
		},
		Sound: SoundConfig{
			Enable:           true,
			Volume:           0.8,
			RepeatIntervalMS: 500,
		},
		Vibrate: VibrateConfig{Backend: "buzzer"},
		Notification: NotificationConfig{
			Enable:         true,
			Backend:        "desktop",
			DesktopAppName: "debatebell",
		},
		WakeLock: WakeLockConfig{
			Enable:    true,
			ScreenCmd: CommandConfig{Raw: screen, Argv: mustSplitCommand(screen)},
		},
		Flash:     FlashConfig{BeginTimeoutMS: 2000},
		PrepBells: PrepBellsConfig{},
		Overtime:  OvertimeConfig{FirstBellSeconds: 30, PeriodSeconds: 20},
		Metrics:   MetricsConfig{},
	}
}
