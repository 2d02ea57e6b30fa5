// Package extract runs the message-to-ledger pipeline: classify the text,
// validate what came back, persist the entry and announce the write.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"grana/internal/classify"
	"grana/internal/core"
	"grana/internal/storage"
)

// Status is the pipeline outcome for one message.
type Status int

const (
	// StatusRecorded means an entry was validated and persisted.
	StatusRecorded Status = iota
	// StatusUnrecognized means no usable amount came out of classification.
	// Nothing is written.
	StatusUnrecognized
	// StatusFailed means classification or persistence errored.
	StatusFailed
)

// Result is the outcome of processing one message. Entry is populated only
// when Status is StatusRecorded. Detail carries the user-facing diagnostic
// for StatusFailed.
type Result struct {
	Status Status
	Entry  core.Entry
	Detail string
}

// Classifier turns free text into a structured classification.
type Classifier interface {
	Classify(ctx context.Context, text string) (classify.Classification, error)
}

// Publisher announces persisted entries. Publishing is best effort; the
// entry is already durable when it runs.
type Publisher interface {
	PublishEntryRecorded(ctx context.Context, entryID, userID string) error
}

type Extractor struct {
	classifier Classifier
	store      storage.LedgerStore
	publisher  Publisher // optional
	maxAmount  decimal.Decimal
}

func New(classifier Classifier, store storage.LedgerStore, publisher Publisher, maxAmount decimal.Decimal) *Extractor {
	return &Extractor{
		classifier: classifier,
		store:      store,
		publisher:  publisher,
		maxAmount:  maxAmount,
	}
}

// Process classifies text and, when a valid amount comes back, persists
// exactly one entry for it. A message that cannot be understood writes
// nothing and returns StatusUnrecognized.
func (x *Extractor) Process(ctx context.Context, userID, chatID, text string) Result {
	c, err := x.classifier.Classify(ctx, text)
	if err != nil {
		return failure(ctx, err)
	}

	amount, ok := x.validAmount(c.Amount)
	if !ok {
		slog.InfoContext(ctx, "Message not recognized as a ledger entry",
			"user_id", userID,
			"confidence", c.Confidence)
		return Result{Status: StatusUnrecognized}
	}

	currency := c.Currency
	if currency == "" {
		currency = "BRL"
	}

	entry := core.Entry{
		UserID:      userID,
		ChatID:      chatID,
		RawText:     text,
		Amount:      amount,
		Currency:    currency,
		Category:    core.NormalizeCategory(c.Category),
		Description: c.Description,
		Confidence:  c.Confidence,
		Type:        core.NormalizeType(c.Type),
	}

	if err := entry.Validate(x.maxAmount); err != nil {
		return failure(ctx, fmt.Errorf("validate entry: %w", err))
	}

	id, err := x.store.Insert(ctx, entry)
	if err != nil {
		return failure(ctx, fmt.Errorf("insert entry: %w", err))
	}
	entry.ID = id

	if x.publisher != nil {
		if err := x.publisher.PublishEntryRecorded(ctx, id, userID); err != nil {
			// The write already succeeded; the worker catches up later.
			slog.WarnContext(ctx, "Failed to publish entry recorded message",
				"error", err,
				"entry_id", id)
		}
	}

	return Result{Status: StatusRecorded, Entry: entry}
}

// validAmount applies the range gate. A missing, non-positive or oversized
// amount disqualifies the message instead of being clamped.
func (x *Extractor) validAmount(amount *float64) (decimal.Decimal, bool) {
	if amount == nil {
		return decimal.Decimal{}, false
	}
	d := decimal.NewFromFloat(*amount).Round(2)
	if !d.IsPositive() || d.GreaterThan(x.maxAmount) {
		return decimal.Decimal{}, false
	}
	return d, true
}

func failure(ctx context.Context, err error) Result {
	var statusErr *classify.StatusError
	if errors.As(err, &statusErr) {
		slog.ErrorContext(ctx, "Classification upstream error",
			"status", statusErr.StatusCode)
		return Result{
			Status: StatusFailed,
			Detail: fmt.Sprintf("Erro na classificação (status %d).\nTrecho: %s",
				statusErr.StatusCode, statusErr.Body),
		}
	}

	slog.ErrorContext(ctx, "Pipeline failure", "error", err)
	return Result{
		Status: StatusFailed,
		Detail: fmt.Sprintf("Deu erro: %v", err),
	}
}
