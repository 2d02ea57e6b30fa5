// Package worker consumes entry-recorded messages and exports each entry to
// the spreadsheet. Delivery is at least once; a failed export nacks with
// requeue and the broker redelivers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"grana/internal/amqp"
	"grana/internal/export"
	"grana/internal/storage"
)

type ExportWorker struct {
	store    storage.LedgerStore
	exporter export.Exporter
}

func NewExportWorker(store storage.LedgerStore, exporter export.Exporter) *ExportWorker {
	return &ExportWorker{store: store, exporter: exporter}
}

// HandleEntryRecorded fetches the entry named by msg and appends it to the
// spreadsheet. An entry missing from the store is dropped, not retried.
func (w *ExportWorker) HandleEntryRecorded(ctx context.Context, msg *amqp.EntryRecordedMessage) error {
	entry, err := w.store.GetEntry(ctx, msg.EntryID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Entry no longer exists, dropping message",
			"entry_id", msg.EntryID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get entry %s: %w", msg.EntryID, err)
	}

	if err := w.exporter.Append(ctx, entry); err != nil {
		return fmt.Errorf("export entry %s: %w", msg.EntryID, err)
	}

	return nil
}
