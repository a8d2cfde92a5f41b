package services

import (
	"context"
	"errors"
	"testing"

	"finbook/internal/core"
	"finbook/internal/storage"
)

func seedIncome(t *testing.T, store storage.Store, userID int64, amount string) {
	t.Helper()
	tx := &core.Transaction{UserID: userID, Type: core.Income, Amount: dec(t, amount), Category: "Salary"}
	if err := store.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("seed income: %v", err)
	}
}

func TestCreateGoal_Feasibility(t *testing.T) {
	tests := []struct {
		name       string
		income     string
		target     string
		monthly    string
		wantErr    error
		wantMonths int
	}{
		{
			name:   "monthly exceeds available income",
			income: "2500", target: "26000", monthly: "2600",
			wantErr: core.ErrInsufficientIncome,
		},
		{
			name:   "accepted with exact division",
			income: "2500", target: "20000", monthly: "2000",
			wantMonths: 10,
		},
		{
			name:   "accepted with remainder rounds up",
			income: "2500", target: "1000", monthly: "300",
			wantMonths: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			svc := NewGoalService(store, "Salary")
			u := newTestUser(t, store, "alice")
			seedIncome(t, store, u.ID, tt.income)

			g := &core.Goal{
				UserID:                u.ID,
				Name:                  "Goal",
				TargetAmount:          dec(t, tt.target),
				DesiredMonthlyPayment: dec(t, tt.monthly),
			}
			err := svc.CreateGoal(context.Background(), g)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateGoal() error = %v, want %v", err, tt.wantErr)
				}
				goals, _ := store.ListGoals(context.Background(), u.ID)
				if len(goals) != 0 {
					t.Errorf("rejected goal was persisted")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateGoal() error = %v", err)
			}
			if g.TimePeriodMonths != tt.wantMonths {
				t.Errorf("TimePeriodMonths = %d, want %d", g.TimePeriodMonths, tt.wantMonths)
			}
		})
	}
}

func TestCreateGoal_ExistingCommitmentsReduceAvailability(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewGoalService(store, "Salary")
	u := newTestUser(t, store, "alice")
	seedIncome(t, store, u.ID, "1000")
	ctx := context.Background()

	first := &core.Goal{UserID: u.ID, Name: "First", TargetAmount: dec(t, "6000"), DesiredMonthlyPayment: dec(t, "600")}
	if err := svc.CreateGoal(ctx, first); err != nil {
		t.Fatalf("first CreateGoal() error = %v", err)
	}

	// 600 of the 1000 is committed; 500 no longer fits.
	second := &core.Goal{UserID: u.ID, Name: "Second", TargetAmount: dec(t, "5000"), DesiredMonthlyPayment: dec(t, "500")}
	if err := svc.CreateGoal(ctx, second); !errors.Is(err, core.ErrInsufficientIncome) {
		t.Fatalf("second CreateGoal() error = %v, want ErrInsufficientIncome", err)
	}

	// Deleting the first goal releases its commitment.
	if err := svc.DeleteGoal(ctx, u.ID, first.ID); err != nil {
		t.Fatalf("DeleteGoal() error = %v", err)
	}
	if err := svc.CreateGoal(ctx, second); err != nil {
		t.Fatalf("CreateGoal() after delete error = %v", err)
	}
}

func TestCreateGoal_LongHorizonStillCoversTarget(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewGoalService(store, "Salary")
	u := newTestUser(t, store, "alice")
	seedIncome(t, store, u.ID, "5000")

	g := &core.Goal{UserID: u.ID, Name: "Goal", TargetAmount: dec(t, "100000"), DesiredMonthlyPayment: dec(t, "7")}
	if err := svc.CreateGoal(context.Background(), g); err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}
	// 100000 / 7 rounds up to 14286 payments, which covers the target.
	if g.TimePeriodMonths != 14286 {
		t.Errorf("TimePeriodMonths = %d, want 14286", g.TimePeriodMonths)
	}
}

func TestDeleteGoal_OwnerOnly(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewGoalService(store, "Salary")
	owner := newTestUser(t, store, "owner")
	intruder := newTestUser(t, store, "intruder")
	seedIncome(t, store, owner.ID, "1000")

	g := &core.Goal{UserID: owner.ID, Name: "Goal", TargetAmount: dec(t, "100"), DesiredMonthlyPayment: dec(t, "50")}
	if err := svc.CreateGoal(context.Background(), g); err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}

	if err := svc.DeleteGoal(context.Background(), intruder.ID, g.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("delete by non-owner error = %v, want ErrForbidden", err)
	}
}
