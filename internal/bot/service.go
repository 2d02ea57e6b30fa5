// Package bot is the conversational façade: it applies the inbound guard,
// drives the extraction pipeline and renders every reply the user sees.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"grana/internal/core"
	"grana/internal/extract"
	"grana/internal/guard"
	"grana/internal/report"
)

const lastEntriesLimit = 10

// ErrNotAllowed marks chart requests from users outside the allowlist.
var ErrNotAllowed = errors.New("user not allowed")

// Reply is what goes back to the chat. Silent means nothing is sent at all,
// which is how unknown senders are handled.
type Reply struct {
	Text   string
	Silent bool
}

type Service struct {
	guard     *guard.Guard
	extractor *extract.Extractor
	reports   *report.Engine
}

func NewService(g *guard.Guard, x *extract.Extractor, r *report.Engine) *Service {
	return &Service{guard: g, extractor: x, reports: r}
}

// HandleMessage runs one chat message through guard and pipeline and returns
// the reply to send.
func (s *Service) HandleMessage(ctx context.Context, userID, chatID, text string) Reply {
	decision := s.guard.Check(userID, text)
	if !decision.Allowed {
		if !decision.Visible {
			return Reply{Silent: true}
		}
		return Reply{Text: decision.Message}
	}

	res := s.extractor.Process(ctx, userID, chatID, text)
	switch res.Status {
	case extract.StatusRecorded:
		s.reports.Invalidate(userID)
		slog.InfoContext(ctx, "Entry recorded",
			"user_id", userID,
			"entry_id", res.Entry.ID,
			"entry_type", string(res.Entry.Type),
			"category", res.Entry.Category)
		return Reply{Text: report.RenderRecorded(res.Entry)}
	case extract.StatusUnrecognized:
		return Reply{Text: report.RenderUnrecognized()}
	default:
		return Reply{Text: res.Detail}
	}
}

// Help returns the greeting with the command list, or a silent reply for
// unknown senders.
func (s *Service) Help(userID string) Reply {
	if !s.guard.Allowed(userID) {
		return Reply{Silent: true}
	}
	return Reply{Text: report.RenderHelp()}
}

// LastEntries lists the newest entries of the given type.
func (s *Service) LastEntries(ctx context.Context, userID string, typ core.EntryType) (Reply, error) {
	if !s.guard.Allowed(userID) {
		return Reply{Silent: true}, nil
	}

	entries, err := s.reports.LastEntries(ctx, userID, typ, lastEntriesLimit)
	if err != nil {
		return Reply{}, fmt.Errorf("list entries: %w", err)
	}
	return Reply{Text: report.RenderEntryList(typ, entries)}, nil
}

// Summary returns the day-plus-week expense report.
func (s *Service) Summary(ctx context.Context, userID string) (Reply, error) {
	if !s.guard.Allowed(userID) {
		return Reply{Silent: true}, nil
	}

	sum, err := s.reports.Summary(ctx, userID)
	if err != nil {
		return Reply{}, fmt.Errorf("build summary: %w", err)
	}
	return Reply{Text: report.RenderSummary(sum)}, nil
}

// MonthBalance returns the month-to-date incomes-versus-expenses report.
func (s *Service) MonthBalance(ctx context.Context, userID string) (Reply, error) {
	if !s.guard.Allowed(userID) {
		return Reply{Silent: true}, nil
	}

	mb, err := s.reports.MonthBalance(ctx, userID)
	if err != nil {
		return Reply{}, fmt.Errorf("build month balance: %w", err)
	}
	return Reply{Text: report.RenderMonthBalance(mb)}, nil
}

// DailyChart returns the gap-filled expense-per-day series.
func (s *Service) DailyChart(ctx context.Context, userID string, days int) (report.DailySeries, error) {
	if !s.guard.Allowed(userID) {
		return report.DailySeries{}, ErrNotAllowed
	}
	return s.reports.DailyChart(ctx, userID, days)
}

// BalanceChart returns the weekly income-versus-expense series.
func (s *Service) BalanceChart(ctx context.Context, userID string, weeks int) (report.WeeklySeries, error) {
	if !s.guard.Allowed(userID) {
		return report.WeeklySeries{}, ErrNotAllowed
	}
	return s.reports.BalanceChart(ctx, userID, weeks)
}
