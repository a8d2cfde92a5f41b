package services

import (
	"context"
	"fmt"

	"finbook/internal/core"
	"finbook/internal/storage"
)

// GoalService manages savings goals. Creation runs the feasibility
// evaluation against the user's ledger inside the storage transaction, so
// two goals can never both claim the same available income.
type GoalService struct {
	store           storage.Store
	primaryCategory string
}

func NewGoalService(store storage.Store, primaryCategory string) *GoalService {
	return &GoalService{store: store, primaryCategory: primaryCategory}
}

// CreateGoal validates the goal and saves it if the desired monthly payment
// fits within the income still available in the primary income category.
// The computed time period in months is stored on the goal.
func (s *GoalService) CreateGoal(ctx context.Context, g *core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}

	err := s.store.CreateGoal(ctx, g, func(txs []core.Transaction, goals []core.Goal) (int, error) {
		summary := core.Aggregate(txs, goals, s.primaryCategory)
		available := summary.Available(s.primaryCategory, s.primaryCategory)
		return core.EvaluateGoal(g.TargetAmount, g.DesiredMonthlyPayment, available)
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *GoalService) ListGoals(ctx context.Context, userID int64) ([]core.Goal, error) {
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

// DeleteGoal removes a goal owned by userID, releasing its monthly
// commitment from future feasibility checks.
func (s *GoalService) DeleteGoal(ctx context.Context, userID, id int64) error {
	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return err
	}
	if g.UserID != userID {
		return ErrForbidden
	}
	if err := s.store.DeleteGoal(ctx, id); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}
