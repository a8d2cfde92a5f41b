package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"finbook/internal/core"
)

type orderResponse struct {
	Ref        string          `json:"ref"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	CapturedAt *time.Time      `json:"capturedAt,omitempty"`
}

func toOrderResponse(o *core.CheckoutOrder) orderResponse {
	return orderResponse{
		Ref:        o.Ref,
		Amount:     o.Amount,
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
		CapturedAt: o.CapturedAt,
	}
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request, user *core.User) {
	order, err := s.subscription.CreateOrder(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (s *Server) handleCaptureOrder(w http.ResponseWriter, r *http.Request, user *core.User) {
	ref := r.PathValue("ref")
	if ref == "" {
		writeError(w, http.StatusBadRequest, "missing order ref")
		return
	}

	order, err := s.subscription.CaptureOrder(r.Context(), user.ID, ref)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	// The cached session user still carries the old status.
	if fresh, err := s.store.GetUser(r.Context(), user.ID); err == nil {
		*user = *fresh
		s.refreshSessionUser(r, user)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"order": toOrderResponse(order),
		"user":  s.userResponse(user),
	})
}
