package services

import (
	"context"
	"fmt"

	"finbook/internal/core"
	"finbook/internal/storage"
)

// ContentService owns blog posts, comments, contact messages and feedback.
type ContentService struct {
	store storage.Store
}

func NewContentService(store storage.Store) *ContentService {
	return &ContentService{store: store}
}

func (s *ContentService) CreatePost(ctx context.Context, p *core.Post) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.store.CreatePost(ctx, p); err != nil {
		return fmt.Errorf("save post: %w", err)
	}
	return nil
}

func (s *ContentService) ListPosts(ctx context.Context) ([]core.Post, error) {
	posts, err := s.store.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (s *ContentService) GetPost(ctx context.Context, id int64) (*core.Post, []core.Comment, error) {
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	comments, err := s.store.ListComments(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list comments: %w", err)
	}
	return p, comments, nil
}

// DeletePost removes a post and its comments. Allowed for the author and
// for admins.
func (s *ContentService) DeletePost(ctx context.Context, actor *core.User, id int64) error {
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if p.UserID != actor.ID && !actor.IsAdmin {
		return ErrForbidden
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// CreateComment saves a comment. Replies must point at a top-level comment
// on the same post; replying to a reply is rejected.
func (s *ContentService) CreateComment(ctx context.Context, c *core.Comment) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, err := s.store.GetPost(ctx, c.PostID); err != nil {
		return err
	}

	if c.ParentID != nil {
		parent, err := s.store.GetComment(ctx, *c.ParentID)
		if err != nil {
			return err
		}
		if parent.PostID != c.PostID || parent.ParentID != nil {
			return core.ErrReplyNesting
		}
	}

	if err := s.store.CreateComment(ctx, c); err != nil {
		return fmt.Errorf("save comment: %w", err)
	}
	return nil
}

// DeleteComment removes a comment, cascading replies when it is top-level.
// Allowed for the author and for admins.
func (s *ContentService) DeleteComment(ctx context.Context, actor *core.User, id int64) error {
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return err
	}
	if c.UserID != actor.ID && !actor.IsAdmin {
		return ErrForbidden
	}
	if err := s.store.DeleteComment(ctx, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func (s *ContentService) SubmitContactMessage(ctx context.Context, m *core.ContactMessage) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := s.store.CreateContactMessage(ctx, m); err != nil {
		return fmt.Errorf("save contact message: %w", err)
	}
	return nil
}

func (s *ContentService) SubmitFeedback(ctx context.Context, f *core.Feedback) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := s.store.CreateFeedback(ctx, f); err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}
