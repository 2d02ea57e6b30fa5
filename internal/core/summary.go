package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Totals is a sum/count pair over a window. Empty windows yield {0, 0}.
type Totals struct {
	Sum   decimal.Decimal
	Count int64
}

// CategoryTotal is one row of a per-category breakdown.
type CategoryTotal struct {
	Category string
	Sum      decimal.Decimal
	Count    int64
}

// DailyTotal is the sum for one calendar day. Day is local midnight.
type DailyTotal struct {
	Day time.Time
	Sum decimal.Decimal
}

// Balance carries expense and income totals computed in one pass.
type Balance struct {
	ExpenseSum   decimal.Decimal
	ExpenseCount int64
	IncomeSum    decimal.Decimal
	IncomeCount  int64
}

// Net is income minus expense; the sign drives the report indicator.
func (b Balance) Net() decimal.Decimal {
	return b.IncomeSum.Sub(b.ExpenseSum)
}

// WeeklyBalance is one week's expense/income pair. WeekStart is the Monday
// at local midnight.
type WeeklyBalance struct {
	WeekStart  time.Time
	ExpenseSum decimal.Decimal
	IncomeSum  decimal.Decimal
}
