package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"finbook/internal/core"
)

type goalRequest struct {
	Name                  string          `json:"name"`
	TargetAmount          decimal.Decimal `json:"targetAmount"`
	DesiredMonthlyPayment decimal.Decimal `json:"desiredMonthlyPayment"`
}

type goalResponse struct {
	ID                    int64            `json:"id"`
	Name                  string           `json:"name"`
	TargetAmount          decimal.Decimal  `json:"targetAmount"`
	DesiredMonthlyPayment decimal.Decimal  `json:"desiredMonthlyPayment"`
	TimePeriodMonths      int              `json:"timePeriodMonths"`
	Progress              *decimal.Decimal `json:"progress,omitempty"`
	MonthsElapsed         *int             `json:"monthsElapsed,omitempty"`
	CreatedAt             time.Time        `json:"createdAt"`
}

func toGoalResponse(g core.Goal) goalResponse {
	return goalResponse{
		ID:                    g.ID,
		Name:                  g.Name,
		TargetAmount:          g.TargetAmount,
		DesiredMonthlyPayment: g.DesiredMonthlyPayment,
		TimePeriodMonths:      g.TimePeriodMonths,
		Progress:              g.Progress,
		MonthsElapsed:         g.MonthsElapsed,
		CreatedAt:             g.CreatedAt,
	}
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, user *core.User) {
	var req goalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	g := core.Goal{
		UserID:                user.ID,
		Name:                  req.Name,
		TargetAmount:          req.TargetAmount,
		DesiredMonthlyPayment: req.DesiredMonthlyPayment,
	}
	if err := g.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.goals.CreateGoal(r.Context(), &g); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toGoalResponse(g))
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request, user *core.User) {
	goals, err := s.goals.ListGoals(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	if err := s.goals.DeleteGoal(r.Context(), user.ID, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
