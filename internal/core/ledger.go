package core

import "github.com/shopspring/decimal"

// Summary is the aggregated view of one user's ledger. All maps key on
// income category names; an absent key reads as zero.
type Summary struct {
	IncomePerCategory    map[string]decimal.Decimal
	ExpensePerCategory   map[string]decimal.Decimal
	AvailablePerCategory map[string]decimal.Decimal
	GoalCommitments      decimal.Decimal
	TotalIncome          decimal.Decimal
	TotalExpenses        decimal.Decimal
	AvailableIncome      decimal.Decimal
}

// Aggregate reduces a user's full transaction and goal sets into a Summary.
// Expenses bucket under their payment method, falling back to
// FallbackPaymentMethod when unset. The primary income category is the only
// bucket charged for committed goal payments.
func Aggregate(txs []Transaction, goals []Goal, primaryIncomeCategory string) Summary {
	s := Summary{
		IncomePerCategory:    make(map[string]decimal.Decimal),
		ExpensePerCategory:   make(map[string]decimal.Decimal),
		AvailablePerCategory: make(map[string]decimal.Decimal),
	}

	for _, t := range txs {
		switch t.Type {
		case Income:
			s.IncomePerCategory[t.Category] = s.IncomePerCategory[t.Category].Add(t.Amount)
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case Expense:
			method := t.PaymentMethod
			if method == "" {
				method = FallbackPaymentMethod
			}
			s.ExpensePerCategory[method] = s.ExpensePerCategory[method].Add(t.Amount)
			s.TotalExpenses = s.TotalExpenses.Add(t.Amount)
		}
	}

	for _, g := range goals {
		s.GoalCommitments = s.GoalCommitments.Add(g.DesiredMonthlyPayment)
	}

	for c := range s.IncomePerCategory {
		s.AvailablePerCategory[c] = s.available(c, primaryIncomeCategory)
	}
	for c := range s.ExpensePerCategory {
		if _, ok := s.AvailablePerCategory[c]; !ok {
			s.AvailablePerCategory[c] = s.available(c, primaryIncomeCategory)
		}
	}

	s.AvailableIncome = s.TotalIncome.Sub(s.TotalExpenses).Sub(s.GoalCommitments)
	return s
}

func (s Summary) available(category, primary string) decimal.Decimal {
	avail := s.IncomePerCategory[category].Sub(s.ExpensePerCategory[category])
	if category == primary {
		avail = avail.Sub(s.GoalCommitments)
	}
	return avail
}

// Available returns the available balance for one income category. Unknown
// categories read as zero income and zero expenses.
func (s Summary) Available(category, primaryIncomeCategory string) decimal.Decimal {
	if v, ok := s.AvailablePerCategory[category]; ok {
		return v
	}
	return s.available(category, primaryIncomeCategory)
}

// TotalBalance is income minus expenses, ignoring goal commitments.
func (s Summary) TotalBalance() decimal.Decimal {
	return s.TotalIncome.Sub(s.TotalExpenses)
}
