package alarm

import (
	"time"

	"chimed/internal/schedule"
	"chimed/internal/storage"
)

// State is an alarm's position in its lifecycle.
type State int

const (
	// StateArmed: the primary due timer is pending.
	StateArmed State = iota
	// StateRinging: the primary timer fired; the ring timer re-notifies
	// until the user acknowledges.
	StateRinging
	// StateSnoozed: ringing is suppressed; it resumes automatically when
	// the snooze elapses.
	StateSnoozed
	// StateExpired: terminal. One-shot alarms land here after
	// acknowledgment; timers are released, the record is kept for audit.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateRinging:
		return "ringing"
	case StateSnoozed:
		return "snoozed"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// AckKind distinguishes the two spoken acknowledgments. Both silence
// the alarm; the distinction is kept for the dialog layer's phrasing.
type AckKind int

const (
	AckStop AckKind = iota
	AckSilence
)

func (k AckKind) String() string {
	if k == AckSilence {
		return "silence"
	}
	return "stop"
}

// alarm is the lifecycle unit. The store exclusively owns every
// instance and its timer handles; nothing outside this package ever
// holds a mutable reference (callers get View copies). All fields are
// guarded by the store mutex.
type alarm struct {
	id         string
	name       string
	recurrence string
	expr       schedule.Expression
	due        time.Time
	state      State

	// gen is bumped whenever the alarm's timers are released. Timer
	// callbacks capture the value at arm time; a mismatch means the
	// callback belongs to a previous lifecycle and must be ignored.
	gen uint64

	dueTimer    *time.Timer
	ringTimer   *time.Timer
	snoozeTimer *time.Timer
}

// newFromRequest builds an alarm from fresh user input. The first
// firing is computed from the compiled schedule and must clear the
// minimum lead time.
func newFromRequest(id string, due time.Time, recurrence, name string, now time.Time, lead time.Duration) (*alarm, error) {
	expr, err := schedule.Compile(due, recurrence)
	if err != nil {
		return nil, err
	}
	// A one-shot's intended firing is the stated instant itself; without
	// this check a past instant would sail through because its cron
	// expression (which has no year field) matches again next year.
	if recurrence == "" && due.Before(now.Add(lead)) {
		return nil, ErrPastOrTooSoon
	}
	next := expr.Next(now)
	if next.IsZero() || next.Before(now.Add(lead)) {
		return nil, ErrPastOrTooSoon
	}
	return &alarm{
		id:         id,
		name:       name,
		recurrence: recurrence,
		expr:       expr,
		due:        next,
		state:      StateArmed,
	}, nil
}

// newFromRecord rebuilds an alarm from its durable record. A recurring
// alarm whose recorded instant has passed advances to the next
// occurrence; a missed one-shot comes back expired.
func newFromRecord(r storage.Record, now time.Time) (*alarm, error) {
	expr, err := schedule.Parse(r.Schedule)
	if err != nil {
		return nil, err
	}
	a := &alarm{
		id:         r.ID,
		name:       r.Name,
		recurrence: r.Recurrence,
		expr:       expr,
		due:        r.Due,
		state:      StateArmed,
	}
	if r.Expired {
		a.state = StateExpired
		return a, nil
	}
	if a.recurrence != "" {
		if !a.due.After(now) {
			a.due = expr.Next(now)
		}
	} else if !a.due.After(now) {
		a.state = StateExpired
	}
	return a, nil
}

// releaseTimers stops and drops every timer handle and invalidates
// in-flight callbacks. Idempotent.
func (a *alarm) releaseTimers() {
	a.gen++
	if a.dueTimer != nil {
		a.dueTimer.Stop()
		a.dueTimer = nil
	}
	if a.ringTimer != nil {
		a.ringTimer.Stop()
		a.ringTimer = nil
	}
	if a.snoozeTimer != nil {
		a.snoozeTimer.Stop()
		a.snoozeTimer = nil
	}
}

func (a *alarm) record() storage.Record {
	return storage.Record{
		ID:         a.id,
		Name:       a.name,
		Due:        a.due,
		Recurrence: a.recurrence,
		Schedule:   a.expr.String(),
		Expired:    a.state == StateExpired,
	}
}

// View is an immutable snapshot of one alarm, safe to hand out.
type View struct {
	ID         string
	Name       string
	Due        time.Time
	Recurrence string
	Schedule   string
	State      State
}

// Ringing reports whether the alarm is actively re-notifying.
// A snoozed alarm is not ringing until its snooze elapses.
func (v View) Ringing() bool { return v.State == StateRinging }

func (a *alarm) view() View {
	return View{
		ID:         a.id,
		Name:       a.name,
		Due:        a.due,
		Recurrence: a.recurrence,
		Schedule:   a.expr.String(),
		State:      a.state,
	}
}
