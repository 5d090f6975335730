package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free backend, one JSON file per alarm
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled and alarms do not
// survive restarts.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Record is the durable form of one alarm.
// Keep it compact and schema-stable.
type Record struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	Due        time.Time `json:"due"`
	Recurrence string    `json:"recurrence,omitempty"`
	Schedule   string    `json:"schedule"`
	Expired    bool      `json:"expired,omitempty"`
}
