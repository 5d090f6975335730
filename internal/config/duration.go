package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration-valued fields (alarm.lead_time, alarm.ring_interval,
// alarm.snooze_max, telegram.snooze, storage.busy_timeout) are Go
// duration strings. path names the field in error messages.

// ParseDurationField parses raw; empty means unset and yields 0.
// Negative durations are rejected: none of the tunables has a
// meaningful negative value.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault substitutes def when the field is unset.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
