package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientIncome rejects a goal whose monthly payment exceeds the
	// available balance of the primary income category.
	ErrInsufficientIncome = errors.New("insufficient income for desired monthly payment")
	// ErrTargetUnreachable guards the ceiling arithmetic: accepted goals must
	// cover their target within the computed number of payments.
	ErrTargetUnreachable = errors.New("target not reachable with desired monthly payment")
)

// MonthsToTarget returns the number of monthly payments needed to cover
// target, rounding up. Both inputs must be positive.
func MonthsToTarget(target, monthly decimal.Decimal) int {
	rem := target.Mod(monthly)
	months := target.Sub(rem).Div(monthly)
	if rem.GreaterThan(decimal.Zero) {
		months = months.Add(decimal.NewFromInt(1))
	}
	return int(months.IntPart())
}

// EvaluateGoal decides whether a goal is fundable out of the primary income
// category's available balance and returns its time to completion in months.
func EvaluateGoal(target, monthly, availablePrimaryIncome decimal.Decimal) (int, error) {
	if target.LessThanOrEqual(decimal.Zero) || monthly.LessThanOrEqual(decimal.Zero) {
		return 0, ErrInvalidAmount
	}

	months := MonthsToTarget(target, monthly)

	if monthly.GreaterThan(availablePrimaryIncome) {
		return 0, ErrInsufficientIncome
	}
	if monthly.Mul(decimal.NewFromInt(int64(months))).LessThan(target) {
		return 0, ErrTargetUnreachable
	}
	return months, nil
}
