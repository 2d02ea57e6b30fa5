package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"grana/internal/core"
	"grana/internal/storage"
)

var loc = func() *time.Location {
	l, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		panic(err)
	}
	return l
}()

func seed(t *testing.T, s *Store, user string, typ core.EntryType, amount string, category string, at time.Time) string {
	t.Helper()
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatal(err)
	}
	id, err := s.Insert(context.Background(), core.Entry{
		UserID:    user,
		ChatID:    "chat-" + user,
		RawText:   "seed",
		Amount:    amt,
		Currency:  core.DefaultCurrency,
		Category:  category,
		Type:      typ,
		CreatedAt: at,
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestInsertAssignsIDAndMonotonicCreatedAt(t *testing.T) {
	s := NewStore(loc)
	at := time.Date(2025, 3, 12, 10, 0, 0, 0, loc)

	id1 := seed(t, s, "u", core.Expense, "10", "outros", at)
	id2 := seed(t, s, "u", core.Expense, "20", "outros", at) // same instant

	if id1 == "" || id1 == id2 {
		t.Fatalf("ids must be unique and non-empty: %q %q", id1, id2)
	}

	e1, err := s.GetEntry(context.Background(), id1)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := s.GetEntry(context.Background(), id2)
	if err != nil {
		t.Fatal(err)
	}
	if !e2.CreatedAt.After(e1.CreatedAt) {
		t.Fatalf("createdAt must be strictly increasing: %v then %v", e1.CreatedAt, e2.CreatedAt)
	}
}

func TestGetEntryNotFound(t *testing.T) {
	s := NewStore(loc)
	if _, err := s.GetEntry(context.Background(), "nope"); err != storage.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestLastNNewestFirst(t *testing.T) {
	s := NewStore(loc)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, loc)
	seed(t, s, "u", core.Expense, "1", "outros", base)
	seed(t, s, "u", core.Income, "2", "salario", base.Add(time.Hour))
	seed(t, s, "u", core.Expense, "3", "outros", base.Add(2*time.Hour))
	seed(t, s, "other", core.Expense, "4", "outros", base.Add(3*time.Hour))

	got, err := s.LastN(context.Background(), "u", core.Expense, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if !got[0].Amount.Equal(decimal.NewFromInt(3)) || !got[1].Amount.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("wrong order: %s then %s", got[0].Amount, got[1].Amount)
	}
}

func TestLastChatIDLatestWins(t *testing.T) {
	s := NewStore(loc)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, loc)

	seed(t, s, "u", core.Expense, "1", "outros", base)
	_, err := s.Insert(context.Background(), core.Entry{
		UserID: "u", RawText: "x", Amount: decimal.NewFromInt(1),
		Category: "outros", Type: core.Expense, ChatID: "newer-chat",
		CreatedAt: base.Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	chat, err := s.LastChatID(context.Background(), "u")
	if err != nil {
		t.Fatal(err)
	}
	if chat != "newer-chat" {
		t.Fatalf("chat = %q, want newer-chat", chat)
	}

	if chat, _ = s.LastChatID(context.Background(), "ghost"); chat != "" {
		t.Fatalf("unknown user should yield empty chat, got %q", chat)
	}
}

func TestTotalsOverallEmptyWindow(t *testing.T) {
	s := NewStore(loc)
	w := core.DayRange(time.Date(2025, 3, 12, 10, 0, 0, 0, loc))

	got, err := s.TotalsOverall(context.Background(), "u", core.Expense, w)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Sum.IsZero() || got.Count != 0 {
		t.Fatalf("empty window must be (0, 0), got (%s, %d)", got.Sum, got.Count)
	}
}

func TestTotalsByCategoryDescending(t *testing.T) {
	s := NewStore(loc)
	at := time.Date(2025, 3, 12, 10, 0, 0, 0, loc)
	seed(t, s, "u", core.Expense, "30", "transporte", at)
	seed(t, s, "u", core.Expense, "50", "alimentacao", at.Add(time.Minute))
	seed(t, s, "u", core.Expense, "20", "alimentacao", at.Add(2*time.Minute))

	rows, err := s.TotalsByCategory(context.Background(), "u", core.Expense, core.DayRange(at))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Category != "alimentacao" || !rows[0].Sum.Equal(decimal.NewFromInt(70)) || rows[0].Count != 2 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Category != "transporte" {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}

func TestDailyTotalsSparse(t *testing.T) {
	s := NewStore(loc)
	day1 := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)
	day3 := day1.AddDate(0, 0, 2)
	seed(t, s, "u", core.Expense, "10", "outros", day1)
	seed(t, s, "u", core.Expense, "5", "outros", day1.Add(time.Hour))
	seed(t, s, "u", core.Expense, "20", "outros", day3)

	w := core.Window{Start: core.Midnight(day1), End: core.Midnight(day3).AddDate(0, 0, 1)}
	rows, err := s.DailyTotals(context.Background(), "u", core.Expense, w, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("sparse result should only hold active days, got %d", len(rows))
	}
	if !rows[0].Day.Equal(core.Midnight(day1)) || !rows[0].Sum.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("unexpected first day: %+v", rows[0])
	}
	if !rows[1].Day.Equal(core.Midnight(day3)) || !rows[1].Sum.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected second day: %+v", rows[1])
	}
}

func TestMonthlyBalanceOnePass(t *testing.T) {
	s := NewStore(loc)
	at := time.Date(2025, 3, 5, 10, 0, 0, 0, loc)
	seed(t, s, "u", core.Expense, "100", "casa", at)
	seed(t, s, "u", core.Expense, "50", "lazer", at.Add(time.Hour))
	seed(t, s, "u", core.Income, "3000", "salario", at.Add(2*time.Hour))

	b, err := s.MonthlyBalance(context.Background(), "u", core.MonthToDate(at.AddDate(0, 0, 10)))
	if err != nil {
		t.Fatal(err)
	}
	if !b.ExpenseSum.Equal(decimal.NewFromInt(150)) || b.ExpenseCount != 2 {
		t.Fatalf("expense side wrong: %+v", b)
	}
	if !b.IncomeSum.Equal(decimal.NewFromInt(3000)) || b.IncomeCount != 1 {
		t.Fatalf("income side wrong: %+v", b)
	}
	if !b.Net().Equal(decimal.NewFromInt(2850)) {
		t.Fatalf("net = %s", b.Net())
	}
}

func TestWeeklyBalanceAscending(t *testing.T) {
	s := NewStore(loc)
	// Monday 2025-03-03 and Monday 2025-03-10 weeks.
	week1 := time.Date(2025, 3, 4, 10, 0, 0, 0, loc)
	week2 := time.Date(2025, 3, 12, 10, 0, 0, 0, loc)
	seed(t, s, "u", core.Expense, "10", "outros", week2)
	seed(t, s, "u", core.Income, "100", "salario", week1)
	seed(t, s, "u", core.Expense, "40", "outros", week1.Add(time.Hour))

	w := core.Window{Start: core.Midnight(week1.AddDate(0, 0, -7)), End: week2.AddDate(0, 0, 1)}
	rows, err := s.WeeklyBalance(context.Background(), "u", w, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d weeks, want 2", len(rows))
	}
	wantWeek1 := time.Date(2025, 3, 3, 0, 0, 0, 0, loc)
	if !rows[0].WeekStart.Equal(wantWeek1) {
		t.Fatalf("first week start = %v, want %v", rows[0].WeekStart, wantWeek1)
	}
	if !rows[0].ExpenseSum.Equal(decimal.NewFromInt(40)) || !rows[0].IncomeSum.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected week 1 sums: %+v", rows[0])
	}
}

func TestDistinctUsers(t *testing.T) {
	s := NewStore(loc)
	at := time.Date(2025, 3, 12, 10, 0, 0, 0, loc)
	seed(t, s, "b", core.Expense, "1", "outros", at)
	seed(t, s, "a", core.Expense, "1", "outros", at.Add(time.Minute))
	_, err := s.Insert(context.Background(), core.Entry{
		UserID: "c", RawText: "x", Amount: decimal.NewFromInt(1),
		Category: "outros", Type: core.Expense, CreatedAt: at.Add(2 * time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}

	all, _ := s.DistinctUsers(context.Background(), false)
	if len(all) != 3 {
		t.Fatalf("all users = %v", all)
	}
	withChat, _ := s.DistinctUsers(context.Background(), true)
	if len(withChat) != 2 {
		t.Fatalf("users with chat = %v, want [a b]", withChat)
	}
}
