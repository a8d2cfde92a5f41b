// Package storage persists all application entities. The SQLite repository
// is the production implementation; the memory store backs service tests.
package storage

import (
	"context"
	"errors"
	"time"

	"finbook/internal/core"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert collides with a uniqueness
// constraint, such as a taken username.
var ErrDuplicate = errors.New("record already exists")

// GoalEvaluation runs inside the goal-creation transaction with the user's
// full transaction and goal sets. It returns the computed time period in
// months, or an error to abort the insert.
type GoalEvaluation func(txs []core.Transaction, goals []core.Goal) (int, error)

// Store is the persistence surface used by the service layer.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *core.User) error
	GetUser(ctx context.Context, id int64) (*core.User, error)
	GetUserByUsername(ctx context.Context, username string) (*core.User, error)
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)
	UpdateUserProfile(ctx context.Context, id int64, displayName, avatarPath string) error
	UpdateSubscription(ctx context.Context, id int64, status core.SubscriptionStatus, expiresAt *time.Time) error
	SetUserAdmin(ctx context.Context, id int64, isAdmin bool) error
	ListUsers(ctx context.Context) ([]core.User, error)
	DeleteUser(ctx context.Context, id int64) error
	// ListActiveExpiredBefore returns users whose stored status is active
	// but whose paid period ended before the cutoff.
	ListActiveExpiredBefore(ctx context.Context, cutoff time.Time) ([]core.User, error)

	// Sessions
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	GetSessionUser(ctx context.Context, token string, now time.Time) (*core.User, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) error

	// Transactions
	CreateTransaction(ctx context.Context, t *core.Transaction) error
	GetTransaction(ctx context.Context, id int64) (*core.Transaction, error)
	ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	// ListRecurringByDay returns every user's recurring transactions whose
	// recurrence day equals day.
	ListRecurringByDay(ctx context.Context, day int) ([]core.Transaction, error)
	// HasMatchingTransaction reports whether a transaction with the same
	// user, type, amount, description and category exists in [from, to).
	HasMatchingTransaction(ctx context.Context, t core.Transaction, from, to time.Time) (bool, error)

	// Goals
	CreateGoal(ctx context.Context, g *core.Goal, evaluate GoalEvaluation) error
	GetGoal(ctx context.Context, id int64) (*core.Goal, error)
	ListGoals(ctx context.Context, userID int64) ([]core.Goal, error)
	DeleteGoal(ctx context.Context, id int64) error

	// Posts and comments
	CreatePost(ctx context.Context, p *core.Post) error
	GetPost(ctx context.Context, id int64) (*core.Post, error)
	ListPosts(ctx context.Context) ([]core.Post, error)
	DeletePost(ctx context.Context, id int64) error
	CreateComment(ctx context.Context, c *core.Comment) error
	GetComment(ctx context.Context, id int64) (*core.Comment, error)
	ListComments(ctx context.Context, postID int64) ([]core.Comment, error)
	// DeleteComment removes a comment; deleting a top-level comment also
	// removes its replies in the same transaction.
	DeleteComment(ctx context.Context, id int64) error

	// Contact and feedback
	CreateContactMessage(ctx context.Context, m *core.ContactMessage) error
	ListContactMessages(ctx context.Context) ([]core.ContactMessage, error)
	UpdateContactStatus(ctx context.Context, id int64, status core.ContactStatus) error
	CreateFeedback(ctx context.Context, f *core.Feedback) error
	ListFeedback(ctx context.Context) ([]core.Feedback, error)

	// Checkout orders
	CreateOrder(ctx context.Context, o *core.CheckoutOrder) error
	GetOrder(ctx context.Context, ref string) (*core.CheckoutOrder, error)
	MarkOrderCaptured(ctx context.Context, ref string, at time.Time) error

	Close() error
}
