package storage

import (
	"context"
	"sync"
	"time"

	"finbook/internal/core"
)

// MemoryStore is an in-memory Store used by service tests.
type MemoryStore struct {
	mu sync.Mutex

	users    map[int64]*core.User
	sessions map[string]session
	txs      map[int64]*core.Transaction
	goals    map[int64]*core.Goal
	posts    map[int64]*core.Post
	comments map[int64]*core.Comment
	contacts map[int64]*core.ContactMessage
	feedback map[int64]*core.Feedback
	orders   map[string]*core.CheckoutOrder

	nextID int64
}

type session struct {
	userID    int64
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]*core.User),
		sessions: make(map[string]session),
		txs:      make(map[int64]*core.Transaction),
		goals:    make(map[int64]*core.Goal),
		posts:    make(map[int64]*core.Post),
		comments: make(map[int64]*core.Comment),
		contacts: make(map[int64]*core.ContactMessage),
		feedback: make(map[int64]*core.Feedback),
		orders:   make(map[string]*core.CheckoutOrder),
	}
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) Close() error { return nil }

// Users

func (s *MemoryStore) CreateUser(_ context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if other.Username == u.Username || other.Email == u.Email {
			return ErrDuplicate
		}
	}
	now := time.Now().UTC()
	if u.TrialStartedAt.IsZero() {
		u.TrialStartedAt = now
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = core.SubscriptionTrial
	}
	u.CreatedAt = now
	u.ID = s.id()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id int64) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateUserProfile(_ context.Context, id int64, displayName, avatarPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.DisplayName = displayName
	u.AvatarPath = avatarPath
	return nil
}

func (s *MemoryStore) UpdateSubscription(_ context.Context, id int64, status core.SubscriptionStatus, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.SubscriptionStatus = status
	u.SubscriptionExpiresAt = expiresAt
	return nil
}

func (s *MemoryStore) SetUserAdmin(_ context.Context, id int64, isAdmin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsAdmin = isAdmin
	return nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []core.User
	for _, u := range s.users {
		users = append(users, *u)
	}
	return users, nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	for token, sess := range s.sessions {
		if sess.userID == id {
			delete(s.sessions, token)
		}
	}
	return nil
}

func (s *MemoryStore) ListActiveExpiredBefore(_ context.Context, cutoff time.Time) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []core.User
	for _, u := range s.users {
		if u.SubscriptionStatus == core.SubscriptionActive &&
			u.SubscriptionExpiresAt != nil && u.SubscriptionExpiresAt.Before(cutoff) {
			users = append(users, *u)
		}
	}
	return users, nil
}

// Sessions

func (s *MemoryStore) CreateSession(_ context.Context, token string, userID int64, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) GetSessionUser(_ context.Context, token string, now time.Time) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok || !sess.expiresAt.After(now) {
		return nil, ErrNotFound
	}
	u, ok := s.users[sess.userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *MemoryStore) DeleteExpiredSessions(_ context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, sess := range s.sessions {
		if !sess.expiresAt.After(now) {
			delete(s.sessions, token)
		}
	}
	return nil
}

// Transactions

func (s *MemoryStore) CreateTransaction(_ context.Context, t *core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}
	t.ID = s.id()
	cp := *t
	s.txs[t.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, id int64) (*core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, userID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var txs []core.Transaction
	for _, t := range s.txs {
		if t.UserID == userID {
			txs = append(txs, *t)
		}
	}
	return txs, nil
}

func (s *MemoryStore) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return ErrNotFound
	}
	delete(s.txs, id)
	return nil
}

func (s *MemoryStore) ListRecurringByDay(_ context.Context, day int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var txs []core.Transaction
	for _, t := range s.txs {
		if t.IsRecurring && t.RecurrenceDay == day {
			txs = append(txs, *t)
		}
	}
	return txs, nil
}

func (s *MemoryStore) HasMatchingTransaction(_ context.Context, t core.Transaction, from, to time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.txs {
		if existing.UserID == t.UserID && existing.Type == t.Type &&
			existing.Amount.Equal(t.Amount) && existing.Description == t.Description &&
			existing.Category == t.Category &&
			!existing.Date.Before(from) && existing.Date.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

// Goals

func (s *MemoryStore) CreateGoal(_ context.Context, g *core.Goal, evaluate GoalEvaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var txs []core.Transaction
	for _, t := range s.txs {
		if t.UserID == g.UserID {
			txs = append(txs, *t)
		}
	}
	var goals []core.Goal
	for _, existing := range s.goals {
		if existing.UserID == g.UserID {
			goals = append(goals, *existing)
		}
	}
	months, err := evaluate(txs, goals)
	if err != nil {
		return err
	}
	g.TimePeriodMonths = months
	g.CreatedAt = time.Now().UTC()
	g.ID = s.id()
	cp := *g
	s.goals[g.ID] = &cp
	return nil
}

func (s *MemoryStore) GetGoal(_ context.Context, id int64) (*core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *MemoryStore) ListGoals(_ context.Context, userID int64) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var goals []core.Goal
	for _, g := range s.goals {
		if g.UserID == userID {
			goals = append(goals, *g)
		}
	}
	return goals, nil
}

func (s *MemoryStore) DeleteGoal(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[id]; !ok {
		return ErrNotFound
	}
	delete(s.goals, id)
	return nil
}

// Posts and comments

func (s *MemoryStore) CreatePost(_ context.Context, p *core.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.CreatedAt = time.Now().UTC()
	p.ID = s.id()
	if u, ok := s.users[p.UserID]; ok {
		p.Author = u.Username
	}
	cp := *p
	s.posts[p.ID] = &cp
	return nil
}

func (s *MemoryStore) GetPost(_ context.Context, id int64) (*core.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListPosts(_ context.Context) ([]core.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var posts []core.Post
	for _, p := range s.posts {
		posts = append(posts, *p)
	}
	return posts, nil
}

func (s *MemoryStore) DeletePost(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return ErrNotFound
	}
	delete(s.posts, id)
	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
		}
	}
	return nil
}

func (s *MemoryStore) CreateComment(_ context.Context, c *core.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.CreatedAt = time.Now().UTC()
	c.ID = s.id()
	if u, ok := s.users[c.UserID]; ok {
		c.Author = u.Username
	}
	cp := *c
	s.comments[c.ID] = &cp
	return nil
}

func (s *MemoryStore) GetComment(_ context.Context, id int64) (*core.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListComments(_ context.Context, postID int64) ([]core.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var comments []core.Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			comments = append(comments, *c)
		}
	}
	return comments, nil
}

func (s *MemoryStore) DeleteComment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return ErrNotFound
	}
	delete(s.comments, id)
	for cid, c := range s.comments {
		if c.ParentID != nil && *c.ParentID == id {
			delete(s.comments, cid)
		}
	}
	return nil
}

// Contact and feedback

func (s *MemoryStore) CreateContactMessage(_ context.Context, m *core.ContactMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Status == "" {
		m.Status = core.ContactNew
	}
	m.CreatedAt = time.Now().UTC()
	m.ID = s.id()
	cp := *m
	s.contacts[m.ID] = &cp
	return nil
}

func (s *MemoryStore) ListContactMessages(_ context.Context) ([]core.ContactMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var msgs []core.ContactMessage
	for _, m := range s.contacts {
		msgs = append(msgs, *m)
	}
	return msgs, nil
}

func (s *MemoryStore) UpdateContactStatus(_ context.Context, id int64, status core.ContactStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.contacts[id]
	if !ok {
		return ErrNotFound
	}
	m.Status = status
	return nil
}

func (s *MemoryStore) CreateFeedback(_ context.Context, f *core.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.CreatedAt = time.Now().UTC()
	f.ID = s.id()
	cp := *f
	s.feedback[f.ID] = &cp
	return nil
}

func (s *MemoryStore) ListFeedback(_ context.Context) ([]core.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []core.Feedback
	for _, f := range s.feedback {
		items = append(items, *f)
	}
	return items, nil
}

// Checkout orders

func (s *MemoryStore) CreateOrder(_ context.Context, o *core.CheckoutOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Status == "" {
		o.Status = core.OrderCreated
	}
	o.CreatedAt = time.Now().UTC()
	cp := *o
	s.orders[o.Ref] = &cp
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, ref string) (*core.CheckoutOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[ref]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) MarkOrderCaptured(_ context.Context, ref string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[ref]
	if !ok || o.Status != core.OrderCreated {
		return ErrNotFound
	}
	o.Status = core.OrderCaptured
	o.CapturedAt = &at
	return nil
}
