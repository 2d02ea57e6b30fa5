// Package sqlite persists the ledger in a local SQLite file. Amounts are
// stored as integer cents; createdAt is stored as local-time text in a
// fixed-width layout so string comparison matches time order.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"grana/internal/core"
	"grana/internal/storage"
)

// timeLayout keeps lexicographic order aligned with chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000"

type Store struct {
	db  *sql.DB
	loc *time.Location

	now func() time.Time
}

var _ storage.LedgerStore = (*Store)(nil)

func NewStore(dbPath string, loc *time.Location) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if loc == nil {
		loc = time.UTC
	}
	return &Store{db: db, loc: loc, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) fmtTime(t time.Time) string {
	return t.In(s.loc).Format(timeLayout)
}

func (s *Store) parseTime(v string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, v, s.loc)
}

func (s *Store) Insert(ctx context.Context, e core.Entry) (string, error) {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (user_id, chat_id, raw_text, amount_cents, currency, category, description, confidence, entry_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.ChatID, e.RawText, core.Cents(e.Amount), e.Currency,
		e.Category, e.Description, e.Confidence, string(e.Type), s.fmtTime(createdAt),
	)
	if err != nil {
		return "", fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("read inserted id: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved to SQLite",
		"id", id,
		"user_id", e.UserID,
		"entry_type", string(e.Type),
		"amount_cents", core.Cents(e.Amount),
		"category", e.Category)

	return strconv.FormatInt(id, 10), nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (core.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, chat_id, raw_text, amount_cents, currency, category, description, confidence, entry_type, created_at
		FROM entries WHERE id = ?`, id)

	e, err := s.scanEntry(row)
	if err == sql.ErrNoRows {
		return core.Entry{}, storage.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry %s: %w", id, err)
	}
	return e, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanEntry(row rowScanner) (core.Entry, error) {
	var (
		e         core.Entry
		id        int64
		cents     int64
		typ       string
		createdAt string
	)
	if err := row.Scan(&id, &e.UserID, &e.ChatID, &e.RawText, &cents, &e.Currency,
		&e.Category, &e.Description, &e.Confidence, &typ, &createdAt); err != nil {
		return core.Entry{}, err
	}

	e.ID = strconv.FormatInt(id, 10)
	e.Amount = core.FromCents(cents)
	e.Type = core.EntryType(typ)

	t, err := s.parseTime(createdAt)
	if err != nil {
		return core.Entry{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	e.CreatedAt = t
	return e, nil
}

func (s *Store) LastN(ctx context.Context, userID string, typ core.EntryType, limit int) ([]core.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, chat_id, raw_text, amount_cents, currency, category, description, confidence, entry_type, created_at
		FROM entries
		WHERE user_id = ? AND entry_type = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, string(typ), limit)
	if err != nil {
		return nil, fmt.Errorf("query last entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := s.scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) LastChatID(ctx context.Context, userID string) (string, error) {
	var chatID string
	err := s.db.QueryRowContext(ctx, `
		SELECT chat_id FROM entries
		WHERE user_id = ? AND chat_id <> ''
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userID).Scan(&chatID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query last chat id: %w", err)
	}
	return chatID, nil
}

func (s *Store) TotalsOverall(ctx context.Context, userID string, typ core.EntryType, w core.Window) (core.Totals, error) {
	var (
		cents sql.NullInt64
		count int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0), COUNT(*)
		FROM entries
		WHERE user_id = ? AND entry_type = ? AND created_at >= ? AND created_at < ?`,
		userID, string(typ), s.fmtTime(w.Start), s.fmtTime(w.End)).Scan(&cents, &count)
	if err != nil {
		return core.Totals{}, fmt.Errorf("query totals: %w", err)
	}
	return core.Totals{Sum: core.FromCents(cents.Int64), Count: count}, nil
}

func (s *Store) TotalsByCategory(ctx context.Context, userID string, typ core.EntryType, w core.Window) ([]core.CategoryTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COALESCE(SUM(amount_cents), 0) AS total, COUNT(*)
		FROM entries
		WHERE user_id = ? AND entry_type = ? AND created_at >= ? AND created_at < ?
		GROUP BY category
		ORDER BY total DESC, category ASC`,
		userID, string(typ), s.fmtTime(w.Start), s.fmtTime(w.End))
	if err != nil {
		return nil, fmt.Errorf("query category totals: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var (
			ct    core.CategoryTotal
			cents int64
		)
		if err := rows.Scan(&ct.Category, &cents, &ct.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		ct.Sum = core.FromCents(cents)
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (s *Store) DailyTotals(ctx context.Context, userID string, typ core.EntryType, w core.Window, dayLimit int) ([]core.DailyTotal, error) {
	if dayLimit <= 0 {
		dayLimit = -1 // SQLite: negative LIMIT means no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(created_at, 1, 10) AS day, COALESCE(SUM(amount_cents), 0)
		FROM entries
		WHERE user_id = ? AND entry_type = ? AND created_at >= ? AND created_at < ?
		GROUP BY day
		ORDER BY day ASC
		LIMIT ?`,
		userID, string(typ), s.fmtTime(w.Start), s.fmtTime(w.End), dayLimit)
	if err != nil {
		return nil, fmt.Errorf("query daily totals: %w", err)
	}
	defer rows.Close()

	var out []core.DailyTotal
	for rows.Next() {
		var (
			day   string
			cents int64
		)
		if err := rows.Scan(&day, &cents); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		d, err := time.ParseInLocation("2006-01-02", day, s.loc)
		if err != nil {
			return nil, fmt.Errorf("parse day %q: %w", day, err)
		}
		out = append(out, core.DailyTotal{Day: d, Sum: core.FromCents(cents)})
	}
	return out, rows.Err()
}

func (s *Store) MonthlyBalance(ctx context.Context, userID string, w core.Window) (core.Balance, error) {
	var expCents, incCents, expCount, incCount int64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN entry_type = 'expense' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN entry_type = 'expense' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN entry_type = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN entry_type = 'income' THEN 1 ELSE 0 END), 0)
		FROM entries
		WHERE user_id = ? AND created_at >= ? AND created_at < ?`,
		userID, s.fmtTime(w.Start), s.fmtTime(w.End)).
		Scan(&expCents, &expCount, &incCents, &incCount)
	if err != nil {
		return core.Balance{}, fmt.Errorf("query monthly balance: %w", err)
	}
	return core.Balance{
		ExpenseSum:   core.FromCents(expCents),
		ExpenseCount: expCount,
		IncomeSum:    core.FromCents(incCents),
		IncomeCount:  incCount,
	}, nil
}

func (s *Store) WeeklyBalance(ctx context.Context, userID string, w core.Window, weekLimit int) ([]core.WeeklyBalance, error) {
	if weekLimit <= 0 {
		weekLimit = -1
	}
	// date(d, '-6 days', 'weekday 1') is the Monday on or before d.
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(created_at, '-6 days', 'weekday 1') AS week_start,
			COALESCE(SUM(CASE WHEN entry_type = 'expense' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN entry_type = 'income' THEN amount_cents ELSE 0 END), 0)
		FROM entries
		WHERE user_id = ? AND created_at >= ? AND created_at < ?
		GROUP BY week_start
		ORDER BY week_start ASC
		LIMIT ?`,
		userID, s.fmtTime(w.Start), s.fmtTime(w.End), weekLimit)
	if err != nil {
		return nil, fmt.Errorf("query weekly balance: %w", err)
	}
	defer rows.Close()

	var out []core.WeeklyBalance
	for rows.Next() {
		var (
			week              string
			expCents, incCents int64
		)
		if err := rows.Scan(&week, &expCents, &incCents); err != nil {
			return nil, fmt.Errorf("scan weekly balance: %w", err)
		}
		ws, err := time.ParseInLocation("2006-01-02", week, s.loc)
		if err != nil {
			return nil, fmt.Errorf("parse week start %q: %w", week, err)
		}
		out = append(out, core.WeeklyBalance{
			WeekStart:  ws,
			ExpenseSum: core.FromCents(expCents),
			IncomeSum:  core.FromCents(incCents),
		})
	}
	return out, rows.Err()
}

func (s *Store) DistinctUsers(ctx context.Context, onlyWithChatID bool) ([]string, error) {
	query := `SELECT DISTINCT user_id FROM entries ORDER BY user_id`
	if onlyWithChatID {
		query = `SELECT DISTINCT user_id FROM entries WHERE chat_id <> '' ORDER BY user_id`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query distinct users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
