package http

import (
	"net/http"

	"finbook/internal/core"
)

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	m := core.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	}
	if err := m.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.content.SubmitContactMessage(r.Context(), &m); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": m.ID, "status": string(m.Status)})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request, user *core.User) {
	var req struct {
		Rating  int    `json:"rating"`
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	f := core.Feedback{
		UserID:  user.ID,
		Rating:  req.Rating,
		Message: req.Message,
	}
	if err := f.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.content.SubmitFeedback(r.Context(), &f); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": f.ID})
}
