package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finbook/internal/core"
	"finbook/internal/storage"
)

// Replicator clones recurring transactions on their recurrence day. It runs
// once per day from the worker binary; a five-field same-day match is the
// only duplicate guard, so a manual entry matching those fields suppresses
// the clone for that day.
type Replicator struct {
	store  storage.Store
	ledger *LedgerService
}

func NewReplicator(store storage.Store, ledger *LedgerService) *Replicator {
	return &Replicator{store: store, ledger: ledger}
}

// Run replicates every recurring transaction whose recurrence day equals
// now's day of month. A failing template is logged and skipped; the sweep
// keeps going.
func (r *Replicator) Run(ctx context.Context, now time.Time) (int, error) {
	if r.store == nil || r.ledger == nil {
		return 0, fmt.Errorf("replicator not properly initialized")
	}

	templates, err := r.store.ListRecurringByDay(ctx, now.Day())
	if err != nil {
		return 0, fmt.Errorf("list recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Replicating recurring transactions",
		"total_due", len(templates),
		"processing_date", now.Format("2006-01-02"))

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	replicated := 0
	for _, template := range templates {
		exists, err := r.store.HasMatchingTransaction(ctx, template, dayStart, dayEnd)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to probe for same-day duplicate",
				"template_id", template.ID,
				"error", err)
			continue
		}
		if exists {
			slog.InfoContext(ctx, "Duplicate suppressed, skipping template",
				"template_id", template.ID,
				"user_id", template.UserID)
			continue
		}

		clone := core.Transaction{
			UserID:        template.UserID,
			Type:          template.Type,
			Amount:        template.Amount,
			Category:      template.Category,
			Description:   template.Description,
			PaymentMethod: template.PaymentMethod,
			IsRecurring:   template.IsRecurring,
			RecurrenceDay: template.RecurrenceDay,
			IsFixed:       template.IsFixed,
			Date:          now,
		}

		if err := r.ledger.CreateTransaction(ctx, &clone); err != nil {
			slog.ErrorContext(ctx, "Failed to replicate recurring transaction",
				"template_id", template.ID,
				"user_id", template.UserID,
				"error", err)
			continue
		}

		replicated++
		slog.InfoContext(ctx, "Replicated recurring transaction",
			"template_id", template.ID,
			"clone_id", clone.ID,
			"user_id", template.UserID,
			"amount", template.Amount.String())
	}

	slog.InfoContext(ctx, "Recurring transaction sweep complete",
		"replicated", replicated,
		"total_due", len(templates))

	return replicated, nil
}
