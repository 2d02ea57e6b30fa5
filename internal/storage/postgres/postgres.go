// Package postgres persists the ledger in PostgreSQL. Amounts are NUMERIC;
// createdAt is stored as a naive local timestamp in the configured zone so
// calendar grouping happens inside the database.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"grana/internal/core"
	"grana/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const timeLayout = "2006-01-02 15:04:05.000000"

type Store struct {
	db  *sql.DB
	loc *time.Location

	now func() time.Time
}

var _ storage.LedgerStore = (*Store)(nil)

func NewStore(dsn string, loc *time.Location) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if loc == nil {
		loc = time.UTC
	}
	return &Store{db: db, loc: loc, now: time.Now}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// fmtTime renders a naive local timestamp so the TIMESTAMP column keeps the
// configured zone's wall time regardless of server settings.
func (s *Store) fmtTime(t time.Time) string {
	return t.In(s.loc).Format(timeLayout)
}

func (s *Store) Insert(ctx context.Context, e core.Entry) (string, error) {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO entries (user_id, chat_id, raw_text, amount, currency, category, description, confidence, entry_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::timestamp)
		RETURNING id`,
		e.UserID, e.ChatID, e.RawText, e.Amount.StringFixed(2), e.Currency,
		e.Category, e.Description, e.Confidence, string(e.Type), s.fmtTime(createdAt),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert entry: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved to Postgres",
		"id", id,
		"user_id", e.UserID,
		"entry_type", string(e.Type),
		"category", e.Category)

	return strconv.FormatInt(id, 10), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanEntry(row rowScanner) (core.Entry, error) {
	var (
		e         core.Entry
		id        int64
		amount    string
		typ       string
		createdAt string
	)
	if err := row.Scan(&id, &e.UserID, &e.ChatID, &e.RawText, &amount, &e.Currency,
		&e.Category, &e.Description, &e.Confidence, &typ, &createdAt); err != nil {
		return core.Entry{}, err
	}

	e.ID = strconv.FormatInt(id, 10)
	e.Type = core.EntryType(typ)

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Entry{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	e.Amount = amt

	t, err := time.ParseInLocation(timeLayout, createdAt, s.loc)
	if err != nil {
		return core.Entry{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	e.CreatedAt = t
	return e, nil
}

const entryColumns = `id, user_id, chat_id, raw_text, amount::text, currency, category, description, confidence, entry_type, to_char(created_at, 'YYYY-MM-DD HH24:MI:SS.US')`

func (s *Store) GetEntry(ctx context.Context, id string) (core.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = $1`, id)

	e, err := s.scanEntry(row)
	if err == sql.ErrNoRows {
		return core.Entry{}, storage.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry %s: %w", id, err)
	}
	return e, nil
}

func (s *Store) LastN(ctx context.Context, userID string, typ core.EntryType, limit int) ([]core.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE user_id = $1 AND entry_type = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3`, userID, string(typ), limit)
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
		WHERE user_id = $1 AND chat_id <> ''
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
		sum   string
		count int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)::text, COUNT(*)
		FROM entries
		WHERE user_id = $1 AND entry_type = $2
		  AND created_at >= $3::timestamp AND created_at < $4::timestamp`,
		userID, string(typ), s.fmtTime(w.Start), s.fmtTime(w.End)).Scan(&sum, &count)
	if err != nil {
		return core.Totals{}, fmt.Errorf("query totals: %w", err)
	}

	total, err := decimal.NewFromString(sum)
	if err != nil {
		return core.Totals{}, fmt.Errorf("parse sum %q: %w", sum, err)
	}
	return core.Totals{Sum: total, Count: count}, nil
}

func (s *Store) TotalsByCategory(ctx context.Context, userID string, typ core.EntryType, w core.Window) ([]core.CategoryTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COALESCE(SUM(amount), 0)::text AS total, COUNT(*)
		FROM entries
		WHERE user_id = $1 AND entry_type = $2
		  AND created_at >= $3::timestamp AND created_at < $4::timestamp
		GROUP BY category
		ORDER BY SUM(amount) DESC, category ASC`,
		userID, string(typ), s.fmtTime(w.Start), s.fmtTime(w.End))
	if err != nil {
		return nil, fmt.Errorf("query category totals: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var (
			ct  core.CategoryTotal
			sum string
		)
		if err := rows.Scan(&ct.Category, &sum, &ct.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		if ct.Sum, err = decimal.NewFromString(sum); err != nil {
			return nil, fmt.Errorf("parse sum %q: %w", sum, err)
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (s *Store) DailyTotals(ctx context.Context, userID string, typ core.EntryType, w core.Window, dayLimit int) ([]core.DailyTotal, error) {
	limit := "ALL"
	if dayLimit > 0 {
		limit = strconv.Itoa(dayLimit)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD') AS day,
		       COALESCE(SUM(amount), 0)::text
		FROM entries
		WHERE user_id = $1 AND entry_type = $2
		  AND created_at >= $3::timestamp AND created_at < $4::timestamp
		GROUP BY 1
		ORDER BY 1 ASC
		LIMIT `+limit,
		userID, string(typ), s.fmtTime(w.Start), s.fmtTime(w.End))
	if err != nil {
		return nil, fmt.Errorf("query daily totals: %w", err)
	}
	defer rows.Close()

	var out []core.DailyTotal
	for rows.Next() {
		var day, sum string
		if err := rows.Scan(&day, &sum); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		d, err := time.ParseInLocation("2006-01-02", day, s.loc)
		if err != nil {
			return nil, fmt.Errorf("parse day %q: %w", day, err)
		}
		total, err := decimal.NewFromString(sum)
		if err != nil {
			return nil, fmt.Errorf("parse sum %q: %w", sum, err)
		}
		out = append(out, core.DailyTotal{Day: d, Sum: total})
	}
	return out, rows.Err()
}

func (s *Store) MonthlyBalance(ctx context.Context, userID string, w core.Window) (core.Balance, error) {
	var expSum, incSum string
	var expCount, incCount int64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'expense'), 0)::text,
			COUNT(*) FILTER (WHERE entry_type = 'expense'),
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'income'), 0)::text,
			COUNT(*) FILTER (WHERE entry_type = 'income')
		FROM entries
		WHERE user_id = $1 AND created_at >= $2::timestamp AND created_at < $3::timestamp`,
		userID, s.fmtTime(w.Start), s.fmtTime(w.End)).
		Scan(&expSum, &expCount, &incSum, &incCount)
	if err != nil {
		return core.Balance{}, fmt.Errorf("query monthly balance: %w", err)
	}

	b := core.Balance{ExpenseCount: expCount, IncomeCount: incCount}
	if b.ExpenseSum, err = decimal.NewFromString(expSum); err != nil {
		return core.Balance{}, fmt.Errorf("parse expense sum %q: %w", expSum, err)
	}
	if b.IncomeSum, err = decimal.NewFromString(incSum); err != nil {
		return core.Balance{}, fmt.Errorf("parse income sum %q: %w", incSum, err)
	}
	return b, nil
}

func (s *Store) WeeklyBalance(ctx context.Context, userID string, w core.Window, weekLimit int) ([]core.WeeklyBalance, error) {
	limit := "ALL"
	if weekLimit > 0 {
		limit = strconv.Itoa(weekLimit)
	}
	// date_trunc('week', ...) is ISO: Monday start.
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(date_trunc('week', created_at), 'YYYY-MM-DD') AS week_start,
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'expense'), 0)::text,
			COALESCE(SUM(amount) FILTER (WHERE entry_type = 'income'), 0)::text
		FROM entries
		WHERE user_id = $1 AND created_at >= $2::timestamp AND created_at < $3::timestamp
		GROUP BY 1
		ORDER BY 1 ASC
		LIMIT `+limit,
		userID, s.fmtTime(w.Start), s.fmtTime(w.End))
	if err != nil {
		return nil, fmt.Errorf("query weekly balance: %w", err)
	}
	defer rows.Close()

	var out []core.WeeklyBalance
	for rows.Next() {
		var week, expSum, incSum string
		if err := rows.Scan(&week, &expSum, &incSum); err != nil {
			return nil, fmt.Errorf("scan weekly balance: %w", err)
		}
		wb := core.WeeklyBalance{}
		if wb.WeekStart, err = time.ParseInLocation("2006-01-02", week, s.loc); err != nil {
			return nil, fmt.Errorf("parse week start %q: %w", week, err)
		}
		if wb.ExpenseSum, err = decimal.NewFromString(expSum); err != nil {
			return nil, fmt.Errorf("parse expense sum %q: %w", expSum, err)
		}
		if wb.IncomeSum, err = decimal.NewFromString(incSum); err != nil {
			return nil, fmt.Errorf("parse income sum %q: %w", incSum, err)
		}
		out = append(out, wb)
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
