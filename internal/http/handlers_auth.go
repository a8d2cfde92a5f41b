package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"finbook/internal/auth"
	"finbook/internal/core"
	"finbook/internal/log"
	"finbook/internal/storage"
)

type userResponse struct {
	ID                    int64      `json:"id"`
	Username              string     `json:"username"`
	Email                 string     `json:"email"`
	DisplayName           string     `json:"displayName,omitempty"`
	AvatarPath            string     `json:"avatarPath,omitempty"`
	IsAdmin               bool       `json:"isAdmin"`
	SubscriptionStatus    string     `json:"subscriptionStatus"`
	SubscriptionExpiresAt *time.Time `json:"subscriptionExpiresAt,omitempty"`
}

func (s *Server) userResponse(u *core.User) userResponse {
	return userResponse{
		ID:                    u.ID,
		Username:              u.Username,
		Email:                 u.Email,
		DisplayName:           u.DisplayName,
		AvatarPath:            u.AvatarPath,
		IsAdmin:               u.IsAdmin,
		SubscriptionStatus:    string(u.EffectiveSubscription(time.Now().UTC(), s.trialDays)),
		SubscriptionExpiresAt: u.SubscriptionExpiresAt,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "username and email are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	if _, err := s.store.GetUserByUsername(r.Context(), req.Username); !errors.Is(err, storage.ErrNotFound) {
		if err == nil {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
		writeDomainError(w, r, err)
		return
	}
	if _, err := s.store.GetUserByEmail(r.Context(), req.Email); !errors.Is(err, storage.ErrNotFound) {
		if err == nil {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeDomainError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	user := &core.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := s.startSession(w, r, user); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, s.userResponse(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeDomainError(w, r, err)
		return
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := s.startSession(w, r, user); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.userResponse(user))
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, user *core.User) error {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return fmt.Errorf("generate session token: %w", err)
	}
	expiresAt := time.Now().UTC().Add(s.sessionTTL)
	if err := s.store.CreateSession(r.Context(), token, user.ID, expiresAt); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	s.sessionCache.Set(token, *user)
	s.setSessionCookie(w, token)
	return nil
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ *core.User) {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		// The cookie and cache entry go away even when the delete fails;
		// the expired row is swept later.
		if err := s.store.DeleteSession(r.Context(), c.Value); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to delete session",
				log.FieldError, err)
		}
		s.sessionCache.Delete(c.Value)
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request, user *core.User) {
	writeJSON(w, http.StatusOK, s.userResponse(user))
}

var allowedAvatarExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

func (s *Server) handleAvatarUpload(w http.ResponseWriter, r *http.Request, user *core.User) {
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing avatar file")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedAvatarExts[ext] {
		writeError(w, http.StatusBadRequest, "unsupported image format")
		return
	}

	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		writeDomainError(w, r, fmt.Errorf("create upload dir: %w", err))
		return
	}

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(s.uploadDir, name))
	if err != nil {
		writeDomainError(w, r, fmt.Errorf("create upload file: %w", err))
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(file, s.maxUploadSize)); err != nil {
		writeDomainError(w, r, fmt.Errorf("write upload file: %w", err))
		return
	}

	displayName := strings.TrimSpace(r.FormValue("displayName"))
	if displayName == "" {
		displayName = user.DisplayName
	}

	avatarPath := "/uploads/" + name
	if err := s.store.UpdateUserProfile(r.Context(), user.ID, displayName, avatarPath); err != nil {
		writeDomainError(w, r, err)
		return
	}

	user.DisplayName = displayName
	user.AvatarPath = avatarPath
	s.refreshSessionUser(r, user)
	writeJSON(w, http.StatusOK, s.userResponse(user))
}
