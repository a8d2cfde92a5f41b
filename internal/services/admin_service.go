package services

import (
	"context"
	"fmt"

	"finbook/internal/core"
	"finbook/internal/storage"
)

// AdminService backs the moderation endpoints. Handlers gate every call on
// the admin flag; the service itself only orchestrates storage.
type AdminService struct {
	store storage.Store
}

func NewAdminService(store storage.Store) *AdminService {
	return &AdminService{store: store}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]core.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user account and its sessions. Admins cannot delete
// themselves; that would orphan the moderation surface mid-request.
func (s *AdminService) DeleteUser(ctx context.Context, actor *core.User, id int64) error {
	if actor.ID == id {
		return ErrForbidden
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	return nil
}

func (s *AdminService) ListContactMessages(ctx context.Context) ([]core.ContactMessage, error) {
	msgs, err := s.store.ListContactMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	return msgs, nil
}

func (s *AdminService) UpdateContactStatus(ctx context.Context, id int64, status core.ContactStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid contact status %q", status)
	}
	if err := s.store.UpdateContactStatus(ctx, id, status); err != nil {
		return err
	}
	return nil
}

func (s *AdminService) ListFeedback(ctx context.Context) ([]core.Feedback, error) {
	items, err := s.store.ListFeedback(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return items, nil
}
