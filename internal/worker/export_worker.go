// Package worker consumes transaction export messages and appends the
// referenced rows to the backup spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finbook/internal/amqp"
	"finbook/internal/sheets"
	"finbook/internal/storage"
)

type ExportWorker struct {
	store  storage.Store
	writer sheets.TransactionWriter
}

func NewExportWorker(store storage.Store, writer sheets.TransactionWriter) *ExportWorker {
	return &ExportWorker{store: store, writer: writer}
}

// HandleExportMessage loads the transaction named by the message and
// appends it to the spreadsheet. A transaction deleted between publish and
// consume is acked and dropped; retrying cannot bring it back.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.TransactionExportMessage) error {
	t, err := w.store.GetTransaction(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Transaction gone before export, dropping message",
				"id", msg.ID)
			return nil
		}
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	owner := ""
	if u, err := w.store.GetUser(ctx, t.UserID); err == nil {
		owner = u.Username
	} else {
		slog.WarnContext(ctx, "Owner lookup failed, exporting without username",
			"user_id", t.UserID, "error", err)
	}

	ref, err := w.writer.Append(ctx, owner, *t)
	if err != nil {
		return fmt.Errorf("append transaction to spreadsheet: %w", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"id", t.ID,
		"user_id", t.UserID,
		"row_ref", ref)

	return nil
}
