// Package storage defines the ledger's query contract. The core only ever
// talks to this port; memory, sqlite and postgres implementations live in
// the subpackages.
package storage

import (
	"context"
	"errors"

	"grana/internal/core"
)

// ErrNotFound is returned by GetEntry for unknown ids.
var ErrNotFound = errors.New("entry not found")

// LedgerStore is the durable, append-only record of entries keyed by user.
// Entries are never updated or deleted; createdAt ordering is the sole sort
// and windowing key. All windows are half-open [Start, End).
type LedgerStore interface {
	// Insert persists one entry and returns its store-assigned id.
	Insert(ctx context.Context, e core.Entry) (string, error)

	// GetEntry loads one entry by id; ErrNotFound when absent.
	GetEntry(ctx context.Context, id string) (core.Entry, error)

	// LastN returns up to limit entries of the given type, newest first.
	LastN(ctx context.Context, userID string, typ core.EntryType, limit int) ([]core.Entry, error)

	// LastChatID returns the most recent non-empty chat id for the user,
	// or "" when none exists.
	LastChatID(ctx context.Context, userID string) (string, error)

	// TotalsOverall sums entries of one type in the window; {0, 0} when empty.
	TotalsOverall(ctx context.Context, userID string, typ core.EntryType, w core.Window) (core.Totals, error)

	// TotalsByCategory breaks the window down per category, descending by sum.
	TotalsByCategory(ctx context.Context, userID string, typ core.EntryType, w core.Window) ([]core.CategoryTotal, error)

	// DailyTotals returns per-calendar-day sums ascending. Only days with
	// activity appear; gap filling is the caller's concern. dayLimit <= 0
	// means unlimited.
	DailyTotals(ctx context.Context, userID string, typ core.EntryType, w core.Window, dayLimit int) ([]core.DailyTotal, error)

	// MonthlyBalance computes expense and income totals in one pass.
	MonthlyBalance(ctx context.Context, userID string, w core.Window) (core.Balance, error)

	// WeeklyBalance returns per-week expense/income pairs ascending by week
	// start (Monday). weekLimit <= 0 means unlimited.
	WeeklyBalance(ctx context.Context, userID string, w core.Window, weekLimit int) ([]core.WeeklyBalance, error)

	// DistinctUsers lists user ids, optionally only those with a known chat.
	DistinctUsers(ctx context.Context, onlyWithChatID bool) ([]string, error)

	Close() error
}
