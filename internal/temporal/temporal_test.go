package temporal

import (
	"testing"
	"time"
)

func TestRangeForSpans(t *testing.T) {
	t.Parallel()
	base := time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		grain Grain
		span  time.Duration
	}{
		{GrainMinute, time.Minute},
		{GrainHour, time.Hour},
		{GrainDay, 24 * time.Hour},
		{GrainWeek, 7 * 24 * time.Hour},
		{GrainMonth, 30 * 24 * time.Hour},
		{GrainYear, 365 * 24 * time.Hour},
		{Grain("second"), time.Minute}, // unsupported grain defaults to a minute
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.grain), func(t *testing.T) {
			r := RangeFor(base, tt.grain)
			if !r.Min.Equal(base) {
				t.Fatalf("Min = %v, want %v", r.Min, base)
			}
			if got := r.Max.Sub(r.Min); got != tt.span {
				t.Fatalf("span = %v, want %v", got, tt.span)
			}
		})
	}
}

func TestRangeIsHalfOpen(t *testing.T) {
	t.Parallel()
	base := time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC)
	r := RangeFor(base, GrainHour)

	if !r.Contains(r.Min) {
		t.Fatal("Min must be included")
	}
	if r.Contains(r.Max) {
		t.Fatal("Max must be excluded")
	}
	if !r.Contains(r.Max.Add(-time.Nanosecond)) {
		t.Fatal("instant just before Max must be included")
	}
}

func TestCompleteFillsCoarseFields(t *testing.T) {
	t.Parallel()
	// 2024-05-10 is a Friday.
	now := time.Date(2024, 5, 10, 14, 45, 0, 0, time.UTC)

	tests := []struct {
		name  string
		in    time.Time
		grain Grain
		want  time.Time
	}{
		{
			name:  "minute passes through",
			in:    time.Date(2024, 5, 11, 9, 15, 0, 0, time.UTC),
			grain: GrainMinute,
			want:  time.Date(2024, 5, 11, 9, 15, 0, 0, time.UTC),
		},
		{
			name:  "hour passes through",
			in:    time.Date(2024, 5, 11, 9, 0, 0, 0, time.UTC),
			grain: GrainHour,
			want:  time.Date(2024, 5, 11, 9, 0, 0, 0, time.UTC),
		},
		{
			name:  "day adopts current time of day",
			in:    time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC),
			grain: GrainDay,
			want:  time.Date(2024, 5, 12, 14, 45, 0, 0, time.UTC),
		},
		{
			name:  "week snaps to monday",
			in:    time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), // Wednesday
			grain: GrainWeek,
			want:  time.Date(2024, 5, 13, 14, 45, 0, 0, time.UTC),
		},
		{
			name:  "week starting sunday stays in its week",
			in:    time.Date(2024, 5, 19, 0, 0, 0, 0, time.UTC), // Sunday
			grain: GrainWeek,
			want:  time.Date(2024, 5, 13, 14, 45, 0, 0, time.UTC),
		},
		{
			name:  "month adopts current day",
			in:    time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
			grain: GrainMonth,
			want:  time.Date(2024, 7, 10, 14, 45, 0, 0, time.UTC),
		},
		{
			name:  "year adopts current month and day",
			in:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			grain: GrainYear,
			want:  time.Date(2025, 5, 10, 14, 45, 0, 0, time.UTC),
		},
		{
			name:  "finer-than-minute grain passes through",
			in:    time.Date(2024, 5, 11, 9, 15, 30, 0, time.UTC),
			grain: Grain("second"),
			want:  time.Date(2024, 5, 11, 9, 15, 30, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := Complete(tt.in, tt.grain, now)
			if !got.Equal(tt.want) {
				t.Fatalf("Complete(%v, %s) = %v, want %v", tt.in, tt.grain, got, tt.want)
			}
		})
	}
}

func TestDurationComponents(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 10, 14, 45, 0, 0, time.UTC)

	d := DurationComponents{Minutes: 5, Seconds: 30}.Duration(now)
	if d != 5*time.Minute+30*time.Second {
		t.Fatalf("Duration = %v, want 5m30s", d)
	}

	// Calendar parts resolve against now.
	d = DurationComponents{Weeks: 1}.Duration(now)
	if d != 7*24*time.Hour {
		t.Fatalf("Duration = %v, want 168h", d)
	}

	d = DurationComponents{Minutes: -1}.Duration(now)
	if d != 0 {
		t.Fatalf("negative duration must clamp to zero, got %v", d)
	}
}
