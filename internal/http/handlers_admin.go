package http

import (
	"net/http"
	"strconv"
	"time"

	"finbook/internal/core"
)

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request, _ *core.User) {
	users, err := s.admin.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, s.userResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request, actor *core.User) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := s.admin.DeleteUser(r.Context(), actor, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type contactMessageResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) handleAdminListContact(w http.ResponseWriter, r *http.Request, _ *core.User) {
	msgs, err := s.admin.ListContactMessages(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]contactMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, contactMessageResponse{
			ID:        m.ID,
			Name:      m.Name,
			Email:     m.Email,
			Message:   m.Message,
			Status:    string(m.Status),
			CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAdminUpdateContact(w http.ResponseWriter, r *http.Request, _ *core.User) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	status := core.ContactStatus(req.Status)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "status must be new, read or resolved")
		return
	}

	if err := s.admin.UpdateContactStatus(r.Context(), id, status); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (s *Server) handleAdminListFeedback(w http.ResponseWriter, r *http.Request, _ *core.User) {
	items, err := s.admin.ListFeedback(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	type feedbackResponse struct {
		ID        int64     `json:"id"`
		UserID    int64     `json:"userId"`
		Rating    int       `json:"rating"`
		Message   string    `json:"message,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}
	out := make([]feedbackResponse, 0, len(items))
	for _, f := range items {
		out = append(out, feedbackResponse{
			ID:        f.ID,
			UserID:    f.UserID,
			Rating:    f.Rating,
			Message:   f.Message,
			CreatedAt: f.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
