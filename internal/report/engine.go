// Package report aggregates ledger entries into the summaries, balances and
// chart series the bot sends out.
package report

import (
	"context"
	"fmt"
	"time"

	"grana/internal/cache"
	"grana/internal/core"
	"grana/internal/storage"
)

const (
	summaryCacheSize = 256
	summaryCacheTTL  = time.Minute

	categoryLimit = 8

	// DefaultChartDays and DefaultChartWeeks are the chart window sizes.
	DefaultChartDays  = 30
	DefaultChartWeeks = 8
)

// Section is one slice of a summary: a window with its total and breakdown.
type Section struct {
	Window     core.Window          `json:"window"`
	Totals     core.Totals          `json:"totals"`
	Categories []core.CategoryTotal `json:"categories"`
}

// Summary is the day-plus-week expense report for a single user.
type Summary struct {
	Day  Section `json:"day"`
	Week Section `json:"week"`
}

// MonthBalance pairs the month-to-date balance with the window it covers.
type MonthBalance struct {
	Window  core.Window  `json:"window"`
	Balance core.Balance `json:"balance"`
}

// Engine computes reports against a ledger store, memoizing the summary
// per user until the cache entry expires or a write invalidates it.
type Engine struct {
	store   storage.LedgerStore
	summary *cache.LRU[Summary]
	loc     *time.Location

	now func() time.Time
}

func NewEngine(store storage.LedgerStore, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		store:   store,
		summary: cache.NewLRU[Summary](summaryCacheSize, summaryCacheTTL),
		loc:     loc,
		now:     func() time.Time { return time.Now().In(loc) },
	}
}

// Invalidate drops the cached summary for userID. Callers invoke it after
// every successful write so reports never show stale totals.
func (e *Engine) Invalidate(userID string) {
	e.summary.Delete(userID)
}

// Summary returns the expense report for today and the current week.
func (e *Engine) Summary(ctx context.Context, userID string) (Summary, error) {
	if s, ok := e.summary.Get(userID); ok {
		return s, nil
	}

	now := e.now()
	day, err := e.section(ctx, userID, core.DayRange(now))
	if err != nil {
		return Summary{}, fmt.Errorf("day section: %w", err)
	}
	week, err := e.section(ctx, userID, core.WeekRange(now))
	if err != nil {
		return Summary{}, fmt.Errorf("week section: %w", err)
	}

	s := Summary{Day: day, Week: week}
	e.summary.Set(userID, s)
	return s, nil
}

func (e *Engine) section(ctx context.Context, userID string, w core.Window) (Section, error) {
	totals, err := e.store.TotalsOverall(ctx, userID, core.Expense, w)
	if err != nil {
		return Section{}, err
	}

	cats, err := e.store.TotalsByCategory(ctx, userID, core.Expense, w)
	if err != nil {
		return Section{}, err
	}
	if len(cats) > categoryLimit {
		cats = cats[:categoryLimit]
	}

	return Section{Window: w, Totals: totals, Categories: cats}, nil
}

// MonthBalance returns incomes versus expenses for the month so far.
func (e *Engine) MonthBalance(ctx context.Context, userID string) (MonthBalance, error) {
	w := core.MonthToDate(e.now())
	b, err := e.store.MonthlyBalance(ctx, userID, w)
	if err != nil {
		return MonthBalance{}, fmt.Errorf("monthly balance: %w", err)
	}
	return MonthBalance{Window: w, Balance: b}, nil
}

// DailyChart builds the dense expense-per-day series for the last days days.
func (e *Engine) DailyChart(ctx context.Context, userID string, days int) (DailySeries, error) {
	if days <= 0 {
		days = DefaultChartDays
	}
	w := core.LastNDays(e.now(), days)

	sparse, err := e.store.DailyTotals(ctx, userID, core.Expense, w, 0)
	if err != nil {
		return DailySeries{}, fmt.Errorf("daily totals: %w", err)
	}
	return BuildDailySeries(w, sparse, e.loc), nil
}

// BalanceChart builds the weekly income-versus-expense series for the last
// weeks weeks.
func (e *Engine) BalanceChart(ctx context.Context, userID string, weeks int) (WeeklySeries, error) {
	if weeks <= 0 {
		weeks = DefaultChartWeeks
	}
	w := core.LastNWeeks(e.now(), weeks)

	rows, err := e.store.WeeklyBalance(ctx, userID, w, 0)
	if err != nil {
		return WeeklySeries{}, fmt.Errorf("weekly balance: %w", err)
	}
	return BuildWeeklySeries(w, rows), nil
}

// LastEntries returns the newest limit entries of the given type.
func (e *Engine) LastEntries(ctx context.Context, userID string, typ core.EntryType, limit int) ([]core.Entry, error) {
	entries, err := e.store.LastN(ctx, userID, typ, limit)
	if err != nil {
		return nil, fmt.Errorf("last entries: %w", err)
	}
	return entries, nil
}
