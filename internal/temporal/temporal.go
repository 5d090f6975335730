// Package temporal turns coarse spoken time references into exact
// instants or query ranges.
//
// A reference like "tomorrow" only carries day precision; the missing
// hour and minute are adopted from the current wall clock. For lookups
// the same reference instead widens into a half-open range sized by its
// grain. All functions are pure: "now" is an explicit argument.
package temporal

import (
	"strings"
	"time"
)

// Grain is the coarseness of a time reference.
type Grain string

const (
	GrainMinute Grain = "minute"
	GrainHour   Grain = "hour"
	GrainDay    Grain = "day"
	GrainWeek   Grain = "week"
	GrainMonth  Grain = "month"
	GrainYear   Grain = "year"
)

// ParseGrain normalizes a raw grain string. Unrecognized values come
// back unchanged (lowercased); RangeFor and Complete treat them as
// already-exact references.
func ParseGrain(s string) Grain {
	return Grain(strings.ToLower(strings.TrimSpace(s)))
}

// DateRange is a half-open interval: Min <= x < Max.
type DateRange struct {
	Min time.Time
	Max time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Min) && t.Before(r.Max)
}

func (r DateRange) IsZero() bool { return r.Min.IsZero() && r.Max.IsZero() }

// RangeFor widens an ambiguous reference into the interval it could
// mean, sized by grain. Used to match existing alarms against a spoken
// time ("the alarm at nine", "the alarms next week").
func RangeFor(t time.Time, g Grain) DateRange {
	var span time.Duration
	switch g {
	case GrainMinute:
		span = time.Minute
	case GrainHour:
		span = time.Hour
	case GrainDay:
		span = 24 * time.Hour
	case GrainWeek:
		span = 7 * 24 * time.Hour
	case GrainMonth:
		span = 30 * 24 * time.Hour
	case GrainYear:
		span = 365 * 24 * time.Hour
	default:
		span = time.Minute
	}
	return DateRange{Min: t, Max: t.Add(span)}
}

// Complete fills the fields of t that are coarser than the grain from
// now, producing the exact instant a new alarm should fire.
//
//   - minute/hour (and anything finer): t is already exact, passthrough
//   - day:   keep the stated date, adopt now's hour and minute
//   - week:  snap to the Monday of the stated week, adopt now's hour and minute
//   - month: keep the stated month, adopt now's day, hour and minute
//   - year:  keep the stated year, adopt now's month, day, hour and minute
func Complete(t time.Time, g Grain, now time.Time) time.Time {
	switch g {
	case GrainDay:
		return time.Date(t.Year(), t.Month(), t.Day(),
			now.Hour(), now.Minute(), t.Second(), 0, t.Location())
	case GrainWeek:
		m := mondayOf(t)
		return time.Date(m.Year(), m.Month(), m.Day(),
			now.Hour(), now.Minute(), t.Second(), 0, t.Location())
	case GrainMonth:
		return time.Date(t.Year(), t.Month(), now.Day(),
			now.Hour(), now.Minute(), t.Second(), 0, t.Location())
	case GrainYear:
		return time.Date(t.Year(), now.Month(), now.Day(),
			now.Hour(), now.Minute(), t.Second(), 0, t.Location())
	default:
		return t
	}
}

func mondayOf(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7 // Sunday belongs to the week it ends
	}
	return t.AddDate(0, 0, 1-wd)
}

// DurationComponents is a spoken duration broken into calendar parts
// ("snooze for one hour and a half", "give me ten more minutes").
type DurationComponents struct {
	Years    int
	Quarters int
	Months   int
	Weeks    int
	Days     int
	Hours    int
	Minutes  int
	Seconds  int
}

// Duration resolves the components against now using calendar
// arithmetic (months and years are not fixed lengths). Negative
// results clamp to zero.
func (c DurationComponents) Duration(now time.Time) time.Duration {
	end := now.
		AddDate(c.Years, c.Quarters*3+c.Months, c.Weeks*7+c.Days).
		Add(time.Duration(c.Hours)*time.Hour +
			time.Duration(c.Minutes)*time.Minute +
			time.Duration(c.Seconds)*time.Second)
	d := end.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
