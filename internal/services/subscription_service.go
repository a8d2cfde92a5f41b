package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"finbook/internal/core"
	"finbook/internal/storage"
)

// CheckoutClient is the slice of the payments client the subscription flow
// needs.
type CheckoutClient interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal) (string, error)
	CaptureOrder(ctx context.Context, ref string) error
}

// ErrCheckoutUnavailable is returned when no checkout provider is
// configured. The rest of the app keeps working without one.
var ErrCheckoutUnavailable = errors.New("checkout provider not configured")

// SubscriptionService runs the two-step checkout flow and the daily expiry
// sweep. Capturing an order activates the subscription for one month.
type SubscriptionService struct {
	store    storage.Store
	checkout CheckoutClient
	price    decimal.Decimal
}

func NewSubscriptionService(store storage.Store, checkout CheckoutClient, price decimal.Decimal) *SubscriptionService {
	return &SubscriptionService{
		store:    store,
		checkout: checkout,
		price:    price,
	}
}

// CreateOrder registers a new subscription order with the provider and
// records it locally in the created state.
func (s *SubscriptionService) CreateOrder(ctx context.Context, userID int64) (*core.CheckoutOrder, error) {
	if s.checkout == nil {
		return nil, ErrCheckoutUnavailable
	}

	ref, err := s.checkout.CreateOrder(ctx, s.price)
	if err != nil {
		return nil, fmt.Errorf("create checkout order: %w", err)
	}

	order := &core.CheckoutOrder{
		Ref:    ref,
		UserID: userID,
		Amount: s.price,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("save checkout order: %w", err)
	}

	slog.InfoContext(ctx, "Created subscription order",
		"ref", ref, "user_id", userID, "amount", s.price.String())

	return order, nil
}

// CaptureOrder finalizes payment for an approved order, flips the user's
// subscription to active and sets a one-month expiry.
func (s *SubscriptionService) CaptureOrder(ctx context.Context, userID int64, ref string) (*core.CheckoutOrder, error) {
	if s.checkout == nil {
		return nil, ErrCheckoutUnavailable
	}

	order, err := s.store.GetOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrForbidden
	}

	if err := s.checkout.CaptureOrder(ctx, ref); err != nil {
		return nil, fmt.Errorf("capture checkout order: %w", err)
	}

	now := time.Now().UTC()
	if err := s.store.MarkOrderCaptured(ctx, ref, now); err != nil {
		return nil, fmt.Errorf("mark order captured: %w", err)
	}

	expires := now.AddDate(0, 1, 0)
	if err := s.store.UpdateSubscription(ctx, userID, core.SubscriptionActive, &expires); err != nil {
		return nil, fmt.Errorf("activate subscription: %w", err)
	}

	slog.InfoContext(ctx, "Captured subscription order",
		"ref", ref, "user_id", userID, "expires_at", expires.Format(time.RFC3339))

	return s.store.GetOrder(ctx, ref)
}

// ExpireLapsed flips every active subscription whose paid period ended
// before now to expired. A failing user is logged and skipped.
func (s *SubscriptionService) ExpireLapsed(ctx context.Context, now time.Time) (int, error) {
	lapsed, err := s.store.ListActiveExpiredBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list lapsed subscriptions: %w", err)
	}

	expired := 0
	for _, u := range lapsed {
		if err := s.store.UpdateSubscription(ctx, u.ID, core.SubscriptionExpired, u.SubscriptionExpiresAt); err != nil {
			slog.ErrorContext(ctx, "Failed to expire subscription",
				"user_id", u.ID, "error", err)
			continue
		}
		expired++
		slog.InfoContext(ctx, "Subscription expired", "user_id", u.ID)
	}

	return expired, nil
}
