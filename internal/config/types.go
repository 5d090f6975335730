package config

// Config is the full daemon configuration.
//
// All durations are Go duration strings (e.g. "500ms", "15s", "1h").
// The file may be JSON or YAML; both decode strictly (unknown fields
// are rejected).
type Config struct {
	Alarm    AlarmConfig     `json:"alarm"`
	Storage  StorageConfig   `json:"storage"`
	Logging  LoggingConfig   `json:"logging"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

// AlarmConfig holds the scheduling tunables. These reload at runtime.
//
// Defaults (when fields are omitted/empty):
//   - lead_time: "15s"
//   - ring_interval: "15s"
//   - snooze_max: "1h"
//   - timezone: process local
type AlarmConfig struct {
	// LeadTime is the minimum gap between creating an alarm and its
	// first firing.
	LeadTime string `json:"lead_time,omitempty"`

	// RingInterval is how often a ringing alarm re-notifies until
	// acknowledged.
	RingInterval string `json:"ring_interval,omitempty"`

	// SnoozeMax caps a single snooze.
	SnoozeMax string `json:"snooze_max,omitempty"`

	// Timezone is an IANA name ("Europe/Paris"). Boot-time only.
	Timezone string `json:"timezone,omitempty"`
}

// StorageConfig controls the durable alarm records.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./chimed_data" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    FileLogConfig `json:"file,omitempty"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// TelegramConfig wires the optional dialog boundary: alarm-due
// notifications go to ChatID with Stop/Snooze buttons. If the section
// is omitted or disabled the core runs headless (events are still
// published on the bus).
type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chat_id"`

	// Snooze is the duration bound to the snooze button.
	Snooze string `json:"snooze,omitempty"`

	// RatePerSec limits outbound messages (ring re-notifications can
	// be chatty).
	RatePerSec int `json:"rate_per_sec,omitempty"`
}
