package alarm

import "errors"

// Validation and lookup errors are surfaced to the caller; the dialog
// layer turns them into spoken responses instead of crashes.
var (
	// ErrPastOrTooSoon rejects alarms whose first firing would land
	// before now plus the configured lead time.
	ErrPastOrTooSoon = errors.New("alarm time is in the past or too soon")

	// ErrNotFound is returned by id lookups and deletes for unknown alarms.
	ErrNotFound = errors.New("alarm not found")

	// ErrDurationTooLong rejects snoozes above the configured cap.
	ErrDurationTooLong = errors.New("snooze duration too long")
)

// Internal invariant violations. These indicate a timer-lifetime bug,
// never a user mistake; they are logged with full context and the
// affected alarm is left alone.
var (
	// ErrDanglingTimer marks a timer callback that fired after its
	// owning alarm was removed from the store.
	ErrDanglingTimer = errors.New("timer fired for a released alarm")

	// ErrMissingRingTimer marks a ringing alarm that has lost its ring
	// timer handle.
	ErrMissingRingTimer = errors.New("ringing alarm has no ring timer")
)
