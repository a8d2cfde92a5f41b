package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"finbook/internal/core"
)

type transactionRequest struct {
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	PaymentMethod string          `json:"paymentMethod"`
	IsRecurring   bool            `json:"isRecurring"`
	RecurrenceDay int             `json:"recurrenceDay"`
	IsFixed       bool            `json:"isFixed"`
	Date          string          `json:"date"`
}

type transactionResponse struct {
	ID            int64           `json:"id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Description   string          `json:"description,omitempty"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	IsRecurring   bool            `json:"isRecurring"`
	RecurrenceDay int             `json:"recurrenceDay,omitempty"`
	IsFixed       bool            `json:"isFixed"`
	Date          time.Time       `json:"date"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		Type:          string(t.Type),
		Amount:        t.Amount,
		Category:      t.Category,
		Description:   t.Description,
		PaymentMethod: t.PaymentMethod,
		IsRecurring:   t.IsRecurring,
		RecurrenceDay: t.RecurrenceDay,
		IsFixed:       t.IsFixed,
		Date:          t.Date,
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, user *core.User) {
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t := core.Transaction{
		UserID:        user.ID,
		Type:          core.TransactionType(req.Type),
		Amount:        req.Amount,
		Category:      req.Category,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		IsRecurring:   req.IsRecurring,
		RecurrenceDay: req.RecurrenceDay,
		IsFixed:       req.IsFixed,
	}
	if req.Date != "" {
		d, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		t.Date = d
	}

	if err := s.ledger.CreateTransaction(r.Context(), &t); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(t))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, user *core.User) {
	txs, err := s.ledger.ListTransactions(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := s.ledger.DeleteTransaction(r.Context(), user.ID, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type summaryResponse struct {
	IncomePerCategory    map[string]decimal.Decimal `json:"incomePerCategory"`
	ExpensePerCategory   map[string]decimal.Decimal `json:"expensePerCategory"`
	AvailablePerCategory map[string]decimal.Decimal `json:"availablePerCategory"`
	GoalCommitments      decimal.Decimal            `json:"goalCommitments"`
	TotalIncome          decimal.Decimal            `json:"totalIncome"`
	TotalExpenses        decimal.Decimal            `json:"totalExpenses"`
	AvailableIncome      decimal.Decimal            `json:"availableIncome"`
	TotalBalance         decimal.Decimal            `json:"totalBalance"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, user *core.User) {
	summary, err := s.ledger.Summary(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		IncomePerCategory:    summary.IncomePerCategory,
		ExpensePerCategory:   summary.ExpensePerCategory,
		AvailablePerCategory: summary.AvailablePerCategory,
		GoalCommitments:      summary.GoalCommitments,
		TotalIncome:          summary.TotalIncome,
		TotalExpenses:        summary.TotalExpenses,
		AvailableIncome:      summary.AvailableIncome,
		TotalBalance:         summary.TotalBalance(),
	})
}
