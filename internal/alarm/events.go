package alarm

import "time"

// Event types published on the bus. The dialog layer subscribes to
// these and renders the spoken/printed side; the store never formats
// user-facing text.
const (
	// EventDue fires when the primary timer elapses, and again when a
	// snooze ends and ringing resumes.
	EventDue = "alarm.due"
	// EventRing is the periodic re-notification while ringing.
	EventRing = "alarm.ring"
	// EventSnoozed fires when ringing is suppressed.
	EventSnoozed = "alarm.snoozed"
	// EventRearmed fires when a recurring alarm advances to its next
	// occurrence after acknowledgment.
	EventRearmed = "alarm.rearmed"
	// EventExpired fires when a one-shot alarm reaches its terminal state.
	EventExpired = "alarm.expired"
	// EventDeleted fires on explicit deletion.
	EventDeleted = "alarm.deleted"
)

// Notification is the Data payload for every alarm event.
type Notification struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	Due        time.Time `json:"due"`
	Recurrence string    `json:"recurrence,omitempty"`
	Ringing    bool      `json:"ringing"`
}
