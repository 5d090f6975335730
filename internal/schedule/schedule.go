// Package schedule compiles an alarm's fire instant and optional
// recurrence token into a six-field cron expression
// ("sec min hour dom month dow") and computes next occurrences from it.
//
// Expressing one-shot and repeating alarms in the same dialect means a
// single next-occurrence computation serves both.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrUnknownRecurrence is returned for a recurrence token outside the
	// recognized set (mondays..sundays, daily, weekly, monthly, weekends).
	ErrUnknownRecurrence = errors.New("unknown recurrence token")

	// ErrInvalidExpression is returned when an expression does not parse
	// in the six-field dialect.
	ErrInvalidExpression = errors.New("invalid schedule expression")
)

// parser accepts the six-field dialect with a seconds column.
var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Expression is a validated schedule. The zero value is not usable;
// obtain one from Compile or Parse.
type Expression struct {
	expr  string
	sched cron.Schedule
}

func (e Expression) String() string { return e.expr }

func (e Expression) IsZero() bool { return e.sched == nil }

// Next returns the first occurrence strictly after t,
// or the zero time if there is none.
func (e Expression) Next(t time.Time) time.Time {
	if e.sched == nil {
		return time.Time{}
	}
	return e.sched.Next(t)
}

// Parse validates a stored expression string (e.g. reloaded from disk).
func Parse(expr string) (Expression, error) {
	s, err := parser.Parse(expr)
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %q: %v", ErrInvalidExpression, expr, err)
	}
	return Expression{expr: expr, sched: s}, nil
}

// recurrences maps a token to its "dom month dow" tail. Tokens that
// depend on the alarm's instant (weekly, monthly) are resolved at
// compile time.
var recurrences = map[string]func(t time.Time) string{
	"mondays":    fixed("* * MON"),
	"tuesdays":   fixed("* * TUE"),
	"wednesdays": fixed("* * WED"),
	"thursdays":  fixed("* * THU"),
	"fridays":    fixed("* * FRI"),
	"saturdays":  fixed("* * SAT"),
	"sundays":    fixed("* * SUN"),
	"daily":      fixed("* * *"),
	"weekends":   fixed("* * SAT,SUN"),
	"weekly": func(t time.Time) string {
		return fmt.Sprintf("* * %d", int(t.Weekday()))
	},
	"monthly": func(t time.Time) string {
		return fmt.Sprintf("%d * *", t.Day())
	},
}

func fixed(tail string) func(time.Time) string {
	return func(time.Time) string { return tail }
}

// Tokens returns the recognized recurrence tokens, sorted.
func Tokens() []string {
	out := make([]string, 0, len(recurrences))
	for k := range recurrences {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Compile builds the expression for an alarm firing at t, repeating per
// the recurrence token (empty means one-shot).
//
// Seconds, minutes and hours always come verbatim from t. Without a
// recurrence, day-of-month and month pin t's calendar date while
// day-of-week stays unrestricted: the cron dialect fires on dom OR dow
// when both are restricted, which would turn a one-shot into a weekly
// repeat on t's weekday.
func Compile(t time.Time, recurrence string) (Expression, error) {
	var tail string
	if recurrence == "" {
		tail = fmt.Sprintf("%d %d *", t.Day(), int(t.Month()))
	} else {
		pattern, ok := recurrences[strings.ToLower(strings.TrimSpace(recurrence))]
		if !ok {
			return Expression{}, fmt.Errorf("%w: %q", ErrUnknownRecurrence, recurrence)
		}
		tail = pattern(t)
	}
	expr := fmt.Sprintf("%d %d %d %s", t.Second(), t.Minute(), t.Hour(), tail)
	return Parse(expr)
}
