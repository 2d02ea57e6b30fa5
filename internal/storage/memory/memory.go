// Package memory is the in-process LedgerStore used as the default backend
// and as the test double everywhere persistence is touched.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"grana/internal/core"
	"grana/internal/storage"
)

type Store struct {
	mu      sync.RWMutex
	entries []core.Entry
	loc     *time.Location

	now func() time.Time
}

var _ storage.LedgerStore = (*Store)(nil)

func NewStore(loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{loc: loc, now: time.Now}
}

// SetClock overrides the insert timestamp source. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Insert assigns id and createdAt and appends the entry. A pre-set
// CreatedAt is honored so tests and backfills can seed history; createdAt
// is still forced to be strictly increasing.
func (s *Store) Insert(_ context.Context, e core.Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().In(s.loc)
	} else {
		e.CreatedAt = e.CreatedAt.In(s.loc)
	}
	if n := len(s.entries); n > 0 {
		if last := s.entries[n-1].CreatedAt; !e.CreatedAt.After(last) {
			e.CreatedAt = last.Add(time.Nanosecond)
		}
	}

	s.entries = append(s.entries, e)
	return e.ID, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Entry{}, storage.ErrNotFound
}

func (s *Store) LastN(_ context.Context, userID string, typ core.EntryType, limit int) ([]core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Entry
	// Entries are append-ordered by createdAt; walk backwards for newest first.
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.entries[i]
		if e.UserID == userID && e.Type == typ {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) LastChatID(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.UserID == userID && e.ChatID != "" {
			return e.ChatID, nil
		}
	}
	return "", nil
}

func (s *Store) TotalsOverall(_ context.Context, userID string, typ core.EntryType, w core.Window) (core.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t core.Totals
	for _, e := range s.entries {
		if e.UserID == userID && e.Type == typ && w.Contains(e.CreatedAt) {
			t.Sum = t.Sum.Add(e.Amount)
			t.Count++
		}
	}
	return t, nil
}

func (s *Store) TotalsByCategory(_ context.Context, userID string, typ core.EntryType, w core.Window) ([]core.CategoryTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCat := make(map[string]*core.CategoryTotal)
	for _, e := range s.entries {
		if e.UserID != userID || e.Type != typ || !w.Contains(e.CreatedAt) {
			continue
		}
		ct, ok := byCat[e.Category]
		if !ok {
			ct = &core.CategoryTotal{Category: e.Category}
			byCat[e.Category] = ct
		}
		ct.Sum = ct.Sum.Add(e.Amount)
		ct.Count++
	}

	out := make([]core.CategoryTotal, 0, len(byCat))
	for _, ct := range byCat {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Sum.Equal(out[j].Sum) {
			return out[i].Sum.GreaterThan(out[j].Sum)
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (s *Store) DailyTotals(_ context.Context, userID string, typ core.EntryType, w core.Window, dayLimit int) ([]core.DailyTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := make(map[time.Time]*core.DailyTotal)
	for _, e := range s.entries {
		if e.UserID != userID || e.Type != typ || !w.Contains(e.CreatedAt) {
			continue
		}
		day := core.Midnight(e.CreatedAt.In(s.loc))
		dt, ok := byDay[day]
		if !ok {
			dt = &core.DailyTotal{Day: day}
			byDay[day] = dt
		}
		dt.Sum = dt.Sum.Add(e.Amount)
	}

	out := make([]core.DailyTotal, 0, len(byDay))
	for _, dt := range byDay {
		out = append(out, *dt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	if dayLimit > 0 && len(out) > dayLimit {
		out = out[:dayLimit]
	}
	return out, nil
}

func (s *Store) MonthlyBalance(_ context.Context, userID string, w core.Window) (core.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b core.Balance
	for _, e := range s.entries {
		if e.UserID != userID || !w.Contains(e.CreatedAt) {
			continue
		}
		switch e.Type {
		case core.Expense:
			b.ExpenseSum = b.ExpenseSum.Add(e.Amount)
			b.ExpenseCount++
		case core.Income:
			b.IncomeSum = b.IncomeSum.Add(e.Amount)
			b.IncomeCount++
		}
	}
	return b, nil
}

func (s *Store) WeeklyBalance(_ context.Context, userID string, w core.Window, weekLimit int) ([]core.WeeklyBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byWeek := make(map[time.Time]*core.WeeklyBalance)
	for _, e := range s.entries {
		if e.UserID != userID || !w.Contains(e.CreatedAt) {
			continue
		}
		wk := core.WeekRange(e.CreatedAt.In(s.loc)).Start
		wb, ok := byWeek[wk]
		if !ok {
			wb = &core.WeeklyBalance{WeekStart: wk}
			byWeek[wk] = wb
		}
		switch e.Type {
		case core.Expense:
			wb.ExpenseSum = wb.ExpenseSum.Add(e.Amount)
		case core.Income:
			wb.IncomeSum = wb.IncomeSum.Add(e.Amount)
		}
	}

	out := make([]core.WeeklyBalance, 0, len(byWeek))
	for _, wb := range byWeek {
		out = append(out, *wb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.Before(out[j].WeekStart) })
	if weekLimit > 0 && len(out) > weekLimit {
		out = out[:weekLimit]
	}
	return out, nil
}

func (s *Store) DistinctUsers(_ context.Context, onlyWithChatID bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range s.entries {
		if onlyWithChatID && e.ChatID == "" {
			continue
		}
		seen[e.UserID] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Close() error { return nil }

// Len reports the number of stored entries. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
