package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finbook/internal/core"
	"finbook/internal/storage"
)

type fakeCheckout struct {
	orders   int
	captured []string
	fail     bool
}

func (f *fakeCheckout) CreateOrder(_ context.Context, _ decimal.Decimal) (string, error) {
	if f.fail {
		return "", errors.New("provider unavailable")
	}
	f.orders++
	return fmt.Sprintf("ORD-%d", f.orders), nil
}

func (f *fakeCheckout) CaptureOrder(_ context.Context, ref string) error {
	if f.fail {
		return errors.New("provider unavailable")
	}
	f.captured = append(f.captured, ref)
	return nil
}

func TestCreateOrder_PersistsCreatedOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	checkout := &fakeCheckout{}
	svc := NewSubscriptionService(store, checkout, dec(t, "4.99"))
	u := newTestUser(t, store, "alice")

	order, err := svc.CreateOrder(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if order.Ref != "ORD-1" {
		t.Errorf("ref = %q, want ORD-1", order.Ref)
	}
	if order.Status != core.OrderCreated {
		t.Errorf("status = %q, want created", order.Status)
	}

	got, err := store.GetOrder(context.Background(), order.Ref)
	if err != nil {
		t.Fatalf("GetOrder() error = %v", err)
	}
	if !got.Amount.Equal(dec(t, "4.99")) {
		t.Errorf("amount = %s, want 4.99", got.Amount)
	}
}

func TestCaptureOrder_ActivatesSubscriptionForOneMonth(t *testing.T) {
	store := storage.NewMemoryStore()
	checkout := &fakeCheckout{}
	svc := NewSubscriptionService(store, checkout, dec(t, "4.99"))
	u := newTestUser(t, store, "alice")
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, u.ID)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	before := time.Now().UTC()
	captured, err := svc.CaptureOrder(ctx, u.ID, order.Ref)
	if err != nil {
		t.Fatalf("CaptureOrder() error = %v", err)
	}
	if captured.Status != core.OrderCaptured {
		t.Errorf("order status = %q, want captured", captured.Status)
	}
	if len(checkout.captured) != 1 || checkout.captured[0] != order.Ref {
		t.Errorf("provider captures = %v, want [%s]", checkout.captured, order.Ref)
	}

	got, err := store.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.SubscriptionStatus != core.SubscriptionActive {
		t.Errorf("subscription status = %q, want active", got.SubscriptionStatus)
	}
	if got.SubscriptionExpiresAt == nil {
		t.Fatal("expiry not set")
	}
	wantMin := before.AddDate(0, 1, 0).Add(-time.Minute)
	wantMax := before.AddDate(0, 1, 0).Add(time.Minute)
	if got.SubscriptionExpiresAt.Before(wantMin) || got.SubscriptionExpiresAt.After(wantMax) {
		t.Errorf("expiry = %v, want about one month out", got.SubscriptionExpiresAt)
	}
}

func TestCaptureOrder_ForeignOrderForbidden(t *testing.T) {
	store := storage.NewMemoryStore()
	checkout := &fakeCheckout{}
	svc := NewSubscriptionService(store, checkout, dec(t, "4.99"))
	owner := newTestUser(t, store, "owner")
	intruder := newTestUser(t, store, "intruder")
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, owner.ID)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if _, err := svc.CaptureOrder(ctx, intruder.ID, order.Ref); !errors.Is(err, ErrForbidden) {
		t.Errorf("CaptureOrder() by non-owner error = %v, want ErrForbidden", err)
	}
	if len(checkout.captured) != 0 {
		t.Error("provider capture was attempted for a foreign order")
	}
}

func TestCaptureOrder_ProviderFailureLeavesOrderCreated(t *testing.T) {
	store := storage.NewMemoryStore()
	checkout := &fakeCheckout{}
	svc := NewSubscriptionService(store, checkout, dec(t, "4.99"))
	u := newTestUser(t, store, "alice")
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, u.ID)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	checkout.fail = true
	if _, err := svc.CaptureOrder(ctx, u.ID, order.Ref); err == nil {
		t.Fatal("CaptureOrder() succeeded despite provider failure")
	}

	got, _ := store.GetOrder(ctx, order.Ref)
	if got.Status != core.OrderCreated {
		t.Errorf("order status = %q, want created after failed capture", got.Status)
	}
	user, _ := store.GetUser(ctx, u.ID)
	if user.SubscriptionStatus != core.SubscriptionTrial {
		t.Errorf("subscription status = %q, want unchanged trial", user.SubscriptionStatus)
	}
}

func TestExpireLapsed(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewSubscriptionService(store, &fakeCheckout{}, dec(t, "4.99"))
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(24 * time.Hour)

	lapsed := newTestUser(t, store, "lapsed")
	if err := store.UpdateSubscription(ctx, lapsed.ID, core.SubscriptionActive, &past); err != nil {
		t.Fatal(err)
	}
	current := newTestUser(t, store, "current")
	if err := store.UpdateSubscription(ctx, current.ID, core.SubscriptionActive, &future); err != nil {
		t.Fatal(err)
	}
	newTestUser(t, store, "trialist")

	n, err := svc.ExpireLapsed(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("ExpireLapsed() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("ExpireLapsed() = %d, want 1", n)
	}

	got, _ := store.GetUser(ctx, lapsed.ID)
	if got.SubscriptionStatus != core.SubscriptionExpired {
		t.Errorf("lapsed user status = %q, want expired", got.SubscriptionStatus)
	}
	stillActive, _ := store.GetUser(ctx, current.ID)
	if stillActive.SubscriptionStatus != core.SubscriptionActive {
		t.Errorf("current user status = %q, want active", stillActive.SubscriptionStatus)
	}
}
