package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"grana/internal/core"
)

// compressionRatio is the max/median threshold above which a daily series
// gets a compressed (symlog-like) scale so outliers do not flatten the rest.
const compressionRatio = 8

// DailyPoint is one day of a dense chart series.
type DailyPoint struct {
	Day time.Time       `json:"day"`
	Sum decimal.Decimal `json:"sum"`
}

// DailySeries is a gap-filled day-by-day series ready for plotting.
type DailySeries struct {
	Window     core.Window  `json:"window"`
	Points     []DailyPoint `json:"points"`
	Total      decimal.Decimal `json:"total"`
	ActiveDays int          `json:"active_days"`
	DailyMean  decimal.Decimal `json:"daily_mean"`
	Max        decimal.Decimal `json:"max"`
	Compressed bool         `json:"compressed_scale"`
	TopDays    []DailyPoint `json:"top_days"`
}

// FillDaily expands sparse per-day totals into a dense series covering every
// day of the window, inserting zeros for days with no activity.
func FillDaily(w core.Window, sparse []core.DailyTotal, loc *time.Location) []DailyPoint {
	byDay := make(map[time.Time]decimal.Decimal, len(sparse))
	for _, d := range sparse {
		byDay[core.Midnight(d.Day.In(loc))] = d.Sum
	}

	var points []DailyPoint
	for cur := core.Midnight(w.Start.In(loc)); cur.Before(w.End); cur = cur.AddDate(0, 0, 1) {
		points = append(points, DailyPoint{Day: cur, Sum: byDay[cur]})
	}
	return points
}

// BuildDailySeries assembles the dense series plus the derived figures the
// chart renders: footer totals, scale compression, and label candidates.
func BuildDailySeries(w core.Window, sparse []core.DailyTotal, loc *time.Location) DailySeries {
	points := FillDaily(w, sparse, loc)

	s := DailySeries{Window: w, Points: points}
	for _, p := range points {
		s.Total = s.Total.Add(p.Sum)
		if p.Sum.GreaterThan(decimal.Zero) {
			s.ActiveDays++
		}
		if p.Sum.GreaterThan(s.Max) {
			s.Max = p.Sum
		}
	}
	if s.ActiveDays > 0 {
		s.DailyMean = s.Total.DivRound(decimal.NewFromInt(int64(s.ActiveDays)), 2)
	}

	s.Compressed = CompressedScale(points)
	s.TopDays = TopDays(points, 5)
	return s
}

// CompressedScale reports whether the series should be drawn on a compressed
// scale. It compares the largest positive value against the median positive
// value; a ratio of compressionRatio or more means outliers dominate.
func CompressedScale(points []DailyPoint) bool {
	var positives []decimal.Decimal
	for _, p := range points {
		if p.Sum.GreaterThan(decimal.Zero) {
			positives = append(positives, p.Sum)
		}
	}
	if len(positives) == 0 {
		return false
	}

	sort.Slice(positives, func(i, j int) bool {
		return positives[i].LessThan(positives[j])
	})

	median := positives[len(positives)/2]
	max := positives[len(positives)-1]
	if median.IsZero() {
		return false
	}
	return max.DivRound(median, 6).GreaterThanOrEqual(decimal.NewFromInt(compressionRatio))
}

// TopDays returns the n highest-valued active days, largest first.
// Ties keep the earlier day first.
func TopDays(points []DailyPoint, n int) []DailyPoint {
	var active []DailyPoint
	for _, p := range points {
		if p.Sum.GreaterThan(decimal.Zero) {
			active = append(active, p)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Sum.GreaterThan(active[j].Sum)
	})

	if len(active) > n {
		active = active[:n]
	}
	return active
}

// WeeklyPoint is one week of the balance chart series.
type WeeklyPoint struct {
	WeekStart  time.Time       `json:"week_start"`
	ExpenseSum decimal.Decimal `json:"expense_sum"`
	IncomeSum  decimal.Decimal `json:"income_sum"`
	Net        decimal.Decimal `json:"net"`
}

// WeeklySeries is the gastos-versus-ganhos series with running totals.
type WeeklySeries struct {
	Window       core.Window     `json:"window"`
	Points       []WeeklyPoint   `json:"points"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalNet     decimal.Decimal `json:"total_net"`
}

// BuildWeeklySeries converts per-week balances into chart points and totals.
// Weeks with no activity inside the window are omitted, matching the bars.
func BuildWeeklySeries(w core.Window, rows []core.WeeklyBalance) WeeklySeries {
	s := WeeklySeries{Window: w}
	for _, r := range rows {
		p := WeeklyPoint{
			WeekStart:  r.WeekStart,
			ExpenseSum: r.ExpenseSum,
			IncomeSum:  r.IncomeSum,
			Net:        r.IncomeSum.Sub(r.ExpenseSum),
		}
		s.Points = append(s.Points, p)
		s.TotalExpense = s.TotalExpense.Add(r.ExpenseSum)
		s.TotalIncome = s.TotalIncome.Add(r.IncomeSum)
	}
	s.TotalNet = s.TotalIncome.Sub(s.TotalExpense)
	return s
}
