// Package services orchestrates domain operations across storage, AMQP and
// the checkout provider.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finbook/internal/amqp"
	"finbook/internal/core"
	"finbook/internal/storage"
)

// ErrForbidden is returned when a user targets a record they do not own.
var ErrForbidden = errors.New("operation not permitted on this record")

// LedgerService owns income and expense transactions and the per-category
// summary built from them.
type LedgerService struct {
	store           storage.Store
	amqpClient      *amqp.Client
	primaryCategory string
}

func NewLedgerService(store storage.Store, amqpClient *amqp.Client, primaryCategory string) *LedgerService {
	return &LedgerService{
		store:           store,
		amqpClient:      amqpClient,
		primaryCategory: primaryCategory,
	}
}

// CreateTransaction validates and saves a transaction, then publishes an
// export message. Export failures never fail the request; the row is
// already durable locally.
func (s *LedgerService) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	if t.Type == core.Expense && t.PaymentMethod == "" {
		t.PaymentMethod = core.FallbackPaymentMethod
	}
	if err := t.Validate(); err != nil {
		return err
	}

	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publishExport(ctx, t.ID, t.UserID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export message",
			"id", t.ID, "error", err)
	}

	return nil
}

func (s *LedgerService) publishExport(ctx context.Context, id, userID int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping export message")
		return nil
	}
	return s.amqpClient.PublishTransactionExport(ctx, id, userID)
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// DeleteTransaction removes a transaction owned by userID.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id int64) error {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if t.UserID != userID {
		return ErrForbidden
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// Summary aggregates the user's full ledger into per-category income,
// expense and availability maps.
func (s *LedgerService) Summary(ctx context.Context, userID int64) (core.Summary, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("list transactions: %w", err)
	}
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("list goals: %w", err)
	}
	return core.Aggregate(txs, goals, s.primaryCategory), nil
}
