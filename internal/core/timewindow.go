package core

import "time"

// Window is a half-open interval [Start, End) used for aggregation. Both
// bounds carry the configured local zone.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Days returns the number of calendar days covered from Start to End
// inclusive of the day End falls on when it is past midnight.
func (w Window) Days() int {
	start := Midnight(w.Start)
	end := Midnight(w.End)
	n := int(end.Sub(start).Hours()/24) + 1
	if w.End.Equal(end) {
		// End exactly at midnight belongs to the previous day.
		n--
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Midnight truncates t to local midnight of its own date.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayRange is [local midnight of t, +24h).
func DayRange(t time.Time) Window {
	start := Midnight(t)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// WeekRange is [most recent Monday at local midnight, +7d).
func WeekRange(t time.Time) Window {
	start := Midnight(t)
	// time.Weekday has Sunday == 0; weeks here start on Monday.
	offset := (int(t.Weekday()) + 6) % 7
	start = start.AddDate(0, 0, -offset)
	return Window{Start: start, End: start.AddDate(0, 0, 7)}
}

// MonthToDate is [first day of t's month at midnight, t+24h). The open upper
// bound past "now" keeps entries written later the same day inside the
// current balance.
func MonthToDate(t time.Time) Window {
	y, m, _ := t.Date()
	return Window{
		Start: time.Date(y, m, 1, 0, 0, 0, 0, t.Location()),
		End:   t.AddDate(0, 0, 1),
	}
}

// LastNDays is [midnight n days before t, t).
func LastNDays(t time.Time, n int) Window {
	return Window{Start: Midnight(t.AddDate(0, 0, -n)), End: t}
}

// LastNWeeks is [midnight n*7 days before t, t).
func LastNWeeks(t time.Time, n int) Window {
	return Window{Start: Midnight(t.AddDate(0, 0, -7*n)), End: t}
}
