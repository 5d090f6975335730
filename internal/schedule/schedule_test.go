package schedule

import (
	"errors"
	"testing"
	"time"
)

// Schedules compile and match in the process-local timezone, so test
// instants are built with time.Local.
func localDate(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.Local)
}

func TestCompileExpressions(t *testing.T) {
	t.Parallel()
	// 2024-06-05 is a Wednesday.
	at := localDate(2024, time.June, 5, 20, 15, 30)

	tests := []struct {
		name       string
		recurrence string
		want       string
	}{
		{name: "one-shot", recurrence: "", want: "30 15 20 5 6 *"},
		{name: "mondays", recurrence: "mondays", want: "30 15 20 * * MON"},
		{name: "sundays", recurrence: "sundays", want: "30 15 20 * * SUN"},
		{name: "daily", recurrence: "daily", want: "30 15 20 * * *"},
		{name: "weekly pins weekday", recurrence: "weekly", want: "30 15 20 * * 3"},
		{name: "monthly pins day", recurrence: "monthly", want: "30 15 20 5 * *"},
		{name: "weekends", recurrence: "weekends", want: "30 15 20 * * SAT,SUN"},
		{name: "token is case-insensitive", recurrence: " Fridays ", want: "30 15 20 * * FRI"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Compile(at, tt.recurrence)
			if err != nil {
				t.Fatalf("Compile error: %v", err)
			}
			if expr.String() != tt.want {
				t.Fatalf("expression = %q, want %q", expr.String(), tt.want)
			}
		})
	}
}

func TestCompileUnknownRecurrence(t *testing.T) {
	t.Parallel()
	_, err := Compile(localDate(2024, time.June, 5, 20, 0, 0), "fortnightly")
	if !errors.Is(err, ErrUnknownRecurrence) {
		t.Fatalf("err = %v, want ErrUnknownRecurrence", err)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "0 0", "61 0 0 * * *", "0 0 0 * * FUNDAY"} {
		if _, err := Parse(raw); !errors.Is(err, ErrInvalidExpression) {
			t.Fatalf("Parse(%q) err = %v, want ErrInvalidExpression", raw, err)
		}
	}
}

func TestOneShotNextIsTheInstant(t *testing.T) {
	t.Parallel()
	at := localDate(2024, time.June, 5, 20, 15, 30)
	expr, err := Compile(at, "")
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	// From any point earlier the same year, the next occurrence is the
	// instant itself (cron has no year field, so it repeats annually;
	// one-shot alarms expire after the first firing).
	got := expr.Next(localDate(2024, time.June, 1, 0, 0, 0))
	if !got.Equal(at) {
		t.Fatalf("Next = %v, want %v", got, at)
	}
}

func TestRecurringNextOccurrences(t *testing.T) {
	t.Parallel()
	// Wednesday 20:00.
	at := localDate(2024, time.June, 5, 20, 0, 0)

	expr, err := Compile(at, "wednesdays")
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}

	// Just before the instant: fires at the instant.
	if got := expr.Next(at.Add(-time.Minute)); !got.Equal(at) {
		t.Fatalf("Next before = %v, want %v", got, at)
	}
	// At the instant (strictly after): exactly one week later.
	if got, want := expr.Next(at), at.AddDate(0, 0, 7); !got.Equal(want) {
		t.Fatalf("Next after fire = %v, want %v", got, want)
	}

	daily, err := Compile(at, "daily")
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if got, want := daily.Next(at), at.AddDate(0, 0, 1); !got.Equal(want) {
		t.Fatalf("daily Next = %v, want %v", got, want)
	}

	weekends, err := Compile(at, "weekends")
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	// Next weekend day after Wednesday evening is Saturday June 8.
	sat := localDate(2024, time.June, 8, 20, 0, 0)
	if got := weekends.Next(at); !got.Equal(sat) {
		t.Fatalf("weekends Next = %v, want %v", got, sat)
	}
	// And after Saturday comes Sunday.
	if got, want := weekends.Next(sat), localDate(2024, time.June, 9, 20, 0, 0); !got.Equal(want) {
		t.Fatalf("weekends Next from Saturday = %v, want %v", got, want)
	}
}

func TestMonthlyAdvancesAMonth(t *testing.T) {
	t.Parallel()
	at := localDate(2024, time.June, 5, 7, 30, 0)
	expr, err := Compile(at, "monthly")
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if got, want := expr.Next(at), localDate(2024, time.July, 5, 7, 30, 0); !got.Equal(want) {
		t.Fatalf("monthly Next = %v, want %v", got, want)
	}
}

func TestTokensStable(t *testing.T) {
	t.Parallel()
	toks := Tokens()
	if len(toks) != 11 {
		t.Fatalf("Tokens() returned %d entries, want 11", len(toks))
	}
	for i := 1; i < len(toks); i++ {
		if toks[i-1] >= toks[i] {
			t.Fatalf("Tokens() not sorted: %q before %q", toks[i-1], toks[i])
		}
	}
}
