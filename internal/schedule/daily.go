// Package schedule sends the automatic end-of-day report to every user with
// a known chat.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"grana/internal/report"
	"grana/internal/storage"
)

const maxConcurrentSends = 4

// Sender delivers a rendered report to a chat. The Telegram transport
// implements it in production; tests use a recorder.
type Sender interface {
	Send(ctx context.Context, chatID, text string) error
}

// ChartSender is implemented by senders that can also deliver the daily
// chart series alongside the text report.
type ChartSender interface {
	SendDailyChart(ctx context.Context, chatID string, series report.DailySeries) error
}

// DailyReport fires once a day at the configured hour in the configured
// zone and pushes the summary to everyone who has interacted before.
type DailyReport struct {
	store   storage.LedgerStore
	reports *report.Engine
	sender  Sender
	hour    int
	loc     *time.Location

	now func() time.Time
}

func NewDailyReport(store storage.LedgerStore, reports *report.Engine, sender Sender, hour int, loc *time.Location) *DailyReport {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyReport{
		store:   store,
		reports: reports,
		sender:  sender,
		hour:    hour,
		loc:     loc,
		now:     func() time.Time { return time.Now().In(loc) },
	}
}

// next returns the first future occurrence of the configured hour.
func (d *DailyReport) next(from time.Time) time.Time {
	t := time.Date(from.Year(), from.Month(), from.Day(), d.hour, 0, 0, 0, d.loc)
	if !t.After(from) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// Run blocks until ctx is done, firing RunOnce at every occurrence of the
// configured hour. A failed run is logged and the loop keeps going.
func (d *DailyReport) Run(ctx context.Context) error {
	for {
		fireAt := d.next(d.now())
		slog.InfoContext(ctx, "Next scheduled report", "at", fireAt)

		timer := time.NewTimer(fireAt.Sub(d.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := d.RunOnce(ctx); err != nil {
			slog.ErrorContext(ctx, "Scheduled report run failed", "error", err)
		}
	}
}

// RunOnce sends the current summary to every user with a stored chat id.
// One user's failure never blocks the others.
func (d *DailyReport) RunOnce(ctx context.Context) error {
	users, err := d.store.DistinctUsers(ctx, true)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSends)

	for _, userID := range users {
		userID := userID
		g.Go(func() error {
			if err := d.sendTo(ctx, userID); err != nil {
				// Log and continue; the group only fails on ctx errors.
				slog.ErrorContext(ctx, "Failed to send scheduled report",
					"error", err,
					"user_id", userID)
			}
			return ctx.Err()
		})
	}

	return g.Wait()
}

func (d *DailyReport) sendTo(ctx context.Context, userID string) error {
	chatID, err := d.store.LastChatID(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve chat: %w", err)
	}
	if chatID == "" {
		slog.WarnContext(ctx, "User has no stored chat, skipping", "user_id", userID)
		return nil
	}

	sum, err := d.reports.Summary(ctx, userID)
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}

	if err := d.sender.Send(ctx, chatID, report.RenderScheduled(sum, d.hour)); err != nil {
		return fmt.Errorf("send report: %w", err)
	}

	if cs, ok := d.sender.(ChartSender); ok {
		series, err := d.reports.DailyChart(ctx, userID, report.DefaultChartDays)
		if err != nil {
			return fmt.Errorf("build daily chart: %w", err)
		}
		if err := cs.SendDailyChart(ctx, chatID, series); err != nil {
			return fmt.Errorf("send daily chart: %w", err)
		}
	}
	return nil
}
