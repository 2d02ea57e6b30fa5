package core

import (
	"testing"
	"time"
)

var saoPaulo = func() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		panic(err)
	}
	return loc
}()

func TestDayRange(t *testing.T) {
	now := time.Date(2025, 3, 12, 14, 30, 45, 0, saoPaulo)
	w := DayRange(now)

	wantStart := time.Date(2025, 3, 12, 0, 0, 0, 0, saoPaulo)
	if !w.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", w.Start, wantStart)
	}
	if got := w.End.Sub(w.Start); got != 24*time.Hour {
		t.Errorf("span = %v, want 24h", got)
	}
	if !w.Contains(now) {
		t.Error("window should contain its reference instant")
	}
	if w.Contains(w.End) {
		t.Error("window must be half-open at End")
	}
}

func TestWeekRange(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want time.Time // Monday midnight
	}{
		{"wednesday", time.Date(2025, 3, 12, 10, 0, 0, 0, saoPaulo), time.Date(2025, 3, 10, 0, 0, 0, 0, saoPaulo)},
		{"monday", time.Date(2025, 3, 10, 0, 0, 1, 0, saoPaulo), time.Date(2025, 3, 10, 0, 0, 0, 0, saoPaulo)},
		{"sunday", time.Date(2025, 3, 16, 23, 59, 0, 0, saoPaulo), time.Date(2025, 3, 10, 0, 0, 0, 0, saoPaulo)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := WeekRange(tc.in)
			if !w.Start.Equal(tc.want) {
				t.Errorf("start = %v, want %v", w.Start, tc.want)
			}
			if !w.End.Equal(tc.want.AddDate(0, 0, 7)) {
				t.Errorf("end = %v, want %v", w.End, tc.want.AddDate(0, 0, 7))
			}
		})
	}
}

func TestMonthToDate(t *testing.T) {
	now := time.Date(2025, 3, 12, 14, 0, 0, 0, saoPaulo)
	w := MonthToDate(now)
	if !w.Start.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, saoPaulo)) {
		t.Errorf("start = %v", w.Start)
	}
	if !w.End.Equal(now.AddDate(0, 0, 1)) {
		t.Errorf("end = %v", w.End)
	}
}

func TestWindowDays(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, saoPaulo)
	cases := []struct {
		w    Window
		want int
	}{
		{Window{Start: start, End: start.AddDate(0, 0, 5)}, 5},
		{Window{Start: start, End: start.AddDate(0, 0, 5).Add(3 * time.Hour)}, 6},
		{Window{Start: start, End: start.Add(time.Hour)}, 1},
	}
	for i, tc := range cases {
		if got := tc.w.Days(); got != tc.want {
			t.Errorf("case %d: Days() = %d, want %d", i, got, tc.want)
		}
	}
}
