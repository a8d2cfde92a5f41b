package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"finbook/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository implements Store on a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Users

const userColumns = `id, username, email, password_hash, display_name, avatar_path,
	is_admin, subscription_status, trial_started_at, subscription_expires_at, created_at`

func scanUser(row interface{ Scan(...any) error }) (*core.User, error) {
	var u core.User
	var status string
	var expiresAt sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName,
		&u.AvatarPath, &u.IsAdmin, &status, &u.TrialStartedAt, &expiresAt, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.SubscriptionStatus = core.SubscriptionStatus(status)
	if expiresAt.Valid {
		t := expiresAt.Time
		u.SubscriptionExpiresAt = &t
	}
	return &u, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u *core.User) error {
	now := time.Now().UTC()
	if u.TrialStartedAt.IsZero() {
		u.TrialStartedAt = now
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = core.SubscriptionTrial
	}
	u.CreatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, display_name, avatar_path,
			is_admin, subscription_status, trial_started_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.DisplayName, u.AvatarPath,
		u.IsAdmin, string(u.SubscriptionStatus), u.TrialStartedAt, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user insert id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (*core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, err
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, err
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, err
}

func (r *SQLiteRepository) UpdateUserProfile(ctx context.Context, id int64, displayName, avatarPath string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET display_name = ?, avatar_path = ? WHERE id = ?`,
		displayName, avatarPath, id)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) UpdateSubscription(ctx context.Context, id int64, status core.SubscriptionStatus, expiresAt *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET subscription_status = ?, subscription_expires_at = ? WHERE id = ?`,
		string(status), expiresAt, id)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) SetUserAdmin(ctx context.Context, id int64, isAdmin bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_admin = ? WHERE id = ?`, isAdmin, id)
	if err != nil {
		return fmt.Errorf("set user admin: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) ListActiveExpiredBefore(ctx context.Context, cutoff time.Time) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE subscription_status = ? AND subscription_expires_at IS NOT NULL
			AND subscription_expires_at < ?`,
		string(core.SubscriptionActive), cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expired subscriptions: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Sessions

func (r *SQLiteRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSessionUser(ctx context.Context, token string, now time.Time) (*core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.email, u.password_hash, u.display_name, u.avatar_path,
			u.is_admin, u.subscription_status, u.trial_started_at, u.subscription_expires_at, u.created_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?`, token, now))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get session user: %w", err)
	}
	return u, err
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	return nil
}

// Transactions

const txColumns = `id, user_id, type, amount, category, description, payment_method,
	is_recurring, recurrence_day, is_fixed, date`

func scanTransaction(row interface{ Scan(...any) error }) (*core.Transaction, error) {
	var t core.Transaction
	var typ, amount string
	err := row.Scan(&t.ID, &t.UserID, &typ, &amount, &t.Category, &t.Description,
		&t.PaymentMethod, &t.IsRecurring, &t.RecurrenceDay, &t.IsFixed, &t.Date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Type = core.TransactionType(typ)
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return &t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, type, amount, category, description,
			payment_method, is_recurring, recurrence_day, is_fixed, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, string(t.Type), t.Amount.String(), t.Category, t.Description,
		t.PaymentMethod, t.IsRecurring, t.RecurrenceDay, t.IsFixed, t.Date)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction insert id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ?`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, err
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE user_id = ? ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) ListRecurringByDay(ctx context.Context, day int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE is_recurring = 1 AND recurrence_day = ?`, day)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *SQLiteRepository) HasMatchingTransaction(ctx context.Context, t core.Transaction, from, to time.Time) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE user_id = ? AND type = ? AND amount = ? AND description = ? AND category = ?
			AND date >= ? AND date < ?`,
		t.UserID, string(t.Type), t.Amount.String(), t.Description, t.Category, from, to).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("probe matching transaction: %w", err)
	}
	return n > 0, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// Goals

const goalColumns = `id, user_id, name, target_amount, desired_monthly_payment,
	time_period_months, progress, months_elapsed, created_at`

func scanGoal(row interface{ Scan(...any) error }) (*core.Goal, error) {
	var g core.Goal
	var target, monthly string
	var progress sql.NullString
	var monthsElapsed sql.NullInt64
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &target, &monthly,
		&g.TimePeriodMonths, &progress, &monthsElapsed, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
		return nil, fmt.Errorf("parse target amount %q: %w", target, err)
	}
	if g.DesiredMonthlyPayment, err = decimal.NewFromString(monthly); err != nil {
		return nil, fmt.Errorf("parse monthly payment %q: %w", monthly, err)
	}
	if progress.Valid {
		p, err := decimal.NewFromString(progress.String)
		if err != nil {
			return nil, fmt.Errorf("parse progress %q: %w", progress.String, err)
		}
		g.Progress = &p
	}
	if monthsElapsed.Valid {
		m := int(monthsElapsed.Int64)
		g.MonthsElapsed = &m
	}
	return &g, nil
}

// CreateGoal loads the user's ledger, runs the feasibility evaluation and
// inserts the goal, all inside one immediate transaction so concurrent goal
// submissions cannot both pass the same availability check.
func (r *SQLiteRepository) CreateGoal(ctx context.Context, g *core.Goal, evaluate GoalEvaluation) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return fmt.Errorf("begin goal transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(ctx, `ROLLBACK`)
		}
	}()

	txs, err := queryTransactionsOnConn(ctx, conn, g.UserID)
	if err != nil {
		return err
	}
	goals, err := queryGoalsOnConn(ctx, conn, g.UserID)
	if err != nil {
		return err
	}

	months, err := evaluate(txs, goals)
	if err != nil {
		return err
	}
	g.TimePeriodMonths = months
	g.CreatedAt = time.Now().UTC()

	res, err := conn.ExecContext(ctx, `
		INSERT INTO goals (user_id, name, target_amount, desired_monthly_payment,
			time_period_months, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.UserID, g.Name, g.TargetAmount.String(), g.DesiredMonthlyPayment.String(),
		g.TimePeriodMonths, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	if g.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("goal insert id: %w", err)
	}

	if _, err := conn.ExecContext(ctx, `COMMIT`); err != nil {
		return fmt.Errorf("commit goal transaction: %w", err)
	}
	committed = true
	return nil
}

func queryTransactionsOnConn(ctx context.Context, conn *sql.Conn, userID int64) ([]core.Transaction, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func queryGoalsOnConn(ctx context.Context, conn *sql.Conn, userID int64) ([]core.Goal, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()
	return collectGoals(rows)
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id int64) (*core.Goal, error) {
	g, err := scanGoal(r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return g, err
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID int64) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()
	return collectGoals(rows)
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return requireAffected(res)
}

func collectGoals(rows *sql.Rows) ([]core.Goal, error) {
	var goals []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// Posts and comments

func (r *SQLiteRepository) CreatePost(ctx context.Context, p *core.Post) error {
	p.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (user_id, title, body, image_path, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.UserID, p.Title, p.Body, p.ImagePath, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("post insert id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetPost(ctx context.Context, id int64) (*core.Post, error) {
	var p core.Post
	err := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.user_id, u.username, p.title, p.body, p.image_path, p.created_at
		FROM posts p JOIN users u ON p.user_id = u.id
		WHERE p.id = ?`, id).
		Scan(&p.ID, &p.UserID, &p.Author, &p.Title, &p.Body, &p.ImagePath, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &p, nil
}

func (r *SQLiteRepository) ListPosts(ctx context.Context) ([]core.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.user_id, u.username, p.title, p.body, p.image_path, p.created_at
		FROM posts p JOIN users u ON p.user_id = u.id
		ORDER BY p.created_at DESC, p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []core.Post
	for rows.Next() {
		var p core.Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Author, &p.Title, &p.Body, &p.ImagePath, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *SQLiteRepository) DeletePost(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete post: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("delete post comments: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) CreateComment(ctx context.Context, c *core.Comment) error {
	c.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO comments (post_id, user_id, parent_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.PostID, c.UserID, c.ParentID, c.Body, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("comment insert id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetComment(ctx context.Context, id int64) (*core.Comment, error) {
	var c core.Comment
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.post_id, c.user_id, u.username, c.parent_id, c.body, c.created_at
		FROM comments c JOIN users u ON c.user_id = u.id
		WHERE c.id = ?`, id).
		Scan(&c.ID, &c.PostID, &c.UserID, &c.Author, &c.ParentID, &c.Body, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &c, nil
}

func (r *SQLiteRepository) ListComments(ctx context.Context, postID int64) ([]core.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.post_id, c.user_id, u.username, c.parent_id, c.body, c.created_at
		FROM comments c JOIN users u ON c.user_id = u.id
		WHERE c.post_id = ?
		ORDER BY c.created_at ASC, c.id ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []core.Comment
	for rows.Next() {
		var c core.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Author, &c.ParentID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *SQLiteRepository) DeleteComment(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete comment: %w", err)
	}
	defer tx.Rollback()

	// Replies of a top-level comment go with it; a reply's siblings stay.
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE parent_id = ?`, id); err != nil {
		return fmt.Errorf("delete comment replies: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// Contact and feedback

func (r *SQLiteRepository) CreateContactMessage(ctx context.Context, m *core.ContactMessage) error {
	if m.Status == "" {
		m.Status = core.ContactNew
	}
	m.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO contact_messages (name, email, message, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.Name, m.Email, m.Message, string(m.Status), m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("contact insert id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListContactMessages(ctx context.Context) ([]core.ContactMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, message, status, created_at
		FROM contact_messages ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	defer rows.Close()

	var msgs []core.ContactMessage
	for rows.Next() {
		var m core.ContactMessage
		var status string
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Message, &status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact message: %w", err)
		}
		m.Status = core.ContactStatus(status)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *SQLiteRepository) UpdateContactStatus(ctx context.Context, id int64, status core.ContactStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contact_messages SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update contact status: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) CreateFeedback(ctx context.Context, f *core.Feedback) error {
	f.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO feedback (user_id, rating, message, created_at)
		VALUES (?, ?, ?, ?)`,
		f.UserID, f.Rating, f.Message, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	if f.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("feedback insert id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListFeedback(ctx context.Context) ([]core.Feedback, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, rating, message, created_at
		FROM feedback ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var items []core.Feedback
	for rows.Next() {
		var f core.Feedback
		if err := rows.Scan(&f.ID, &f.UserID, &f.Rating, &f.Message, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

// Checkout orders

func (r *SQLiteRepository) CreateOrder(ctx context.Context, o *core.CheckoutOrder) error {
	if o.Status == "" {
		o.Status = core.OrderCreated
	}
	o.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkout_orders (ref, user_id, amount, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		o.Ref, o.UserID, o.Amount.String(), string(o.Status), o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert checkout order: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetOrder(ctx context.Context, ref string) (*core.CheckoutOrder, error) {
	var o core.CheckoutOrder
	var amount, status string
	var capturedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT ref, user_id, amount, status, created_at, captured_at
		FROM checkout_orders WHERE ref = ?`, ref).
		Scan(&o.Ref, &o.UserID, &amount, &status, &o.CreatedAt, &capturedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get checkout order: %w", err)
	}
	if o.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse order amount %q: %w", amount, err)
	}
	o.Status = core.OrderStatus(status)
	if capturedAt.Valid {
		t := capturedAt.Time
		o.CapturedAt = &t
	}
	return &o, nil
}

func (r *SQLiteRepository) MarkOrderCaptured(ctx context.Context, ref string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE checkout_orders SET status = ?, captured_at = ?
		WHERE ref = ? AND status = ?`,
		string(core.OrderCaptured), at, ref, string(core.OrderCreated))
	if err != nil {
		return fmt.Errorf("mark order captured: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
