// Package config resolves, parses, validates, and defaults debatebell configuration.
package config

// Config is the fully materialized runtime configuration used by debatebell.
type Config struct {
	Alerts       AlertsConfig
	POI          POIConfig
	Sound        SoundConfig
	Vibrate      VibrateConfig
	Notification NotificationConfig
	WakeLock     WakeLockConfig
	Flash        FlashConfig
	PrepBells    PrepBellsConfig
	Overtime     OvertimeConfig
	Metrics      MetricsConfig
}

// AlertsConfig holds the bell alert switches.
type AlertsConfig struct {
	Silent    bool
	Vibrate   bool
	FlashMode string
}

// POIConfig holds the point-of-information alert switches.
type POIConfig struct {
	Vibrate   bool
	FlashMode string
}

// SoundConfig controls the bell audio engine.
type SoundConfig struct {
	Enable           bool
	Volume           float64
	RepeatIntervalMS int
}

// VibrateConfig selects how vibration patterns are rendered.
type VibrateConfig struct {
	Backend string
}

// NotificationConfig controls the persistent "phase running" notification.
type NotificationConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
}

// WakeLockConfig controls sleep inhibition and screen waking.
type WakeLockConfig struct {
	Enable    bool
	ScreenCmd CommandConfig
}

// FlashConfig controls screen flash rendering.
type FlashConfig struct {
	BeginTimeoutMS int
}

// PrepBellsConfig points at the persisted prep-time bell rules.
type PrepBellsConfig struct {
	Path string
}

// OvertimeConfig schedules the bells rung after a phase's length. A zero
// FirstBellSeconds disables them.
type OvertimeConfig struct {
	FirstBellSeconds int
	PeriodSeconds    int
}

// MetricsConfig controls the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
