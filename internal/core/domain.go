package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	SubscriptionTrial   SubscriptionStatus = "trial"
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
)

const (
	ContactNew      ContactStatus = "new"
	ContactRead     ContactStatus = "read"
	ContactResolved ContactStatus = "resolved"
)

const (
	OrderCreated  OrderStatus = "created"
	OrderCaptured OrderStatus = "captured"
)

// FallbackPaymentMethod is the expense bucket used when no payment method
// was recorded on an expense.
const FallbackPaymentMethod = "Other"

type (
	TransactionType    string
	SubscriptionStatus string
	ContactStatus      string
	OrderStatus        string

	User struct {
		ID                    int64
		Username              string
		Email                 string
		PasswordHash          string
		DisplayName           string
		AvatarPath            string
		IsAdmin               bool
		SubscriptionStatus    SubscriptionStatus
		TrialStartedAt        time.Time
		SubscriptionExpiresAt *time.Time
		CreatedAt             time.Time
	}

	Transaction struct {
		ID          int64
		UserID      int64
		Type        TransactionType
		Amount      decimal.Decimal
		Category    string
		Description string
		// PaymentMethod names the income category an expense draws from.
		// Matched by name at aggregation time; expenses only.
		PaymentMethod string
		IsRecurring   bool
		// RecurrenceDay is the day of month (1-31) a recurring transaction
		// is replicated on.
		RecurrenceDay int
		IsFixed       bool
		Date          time.Time
	}

	Goal struct {
		ID                    int64
		UserID                int64
		Name                  string
		TargetAmount          decimal.Decimal
		DesiredMonthlyPayment decimal.Decimal
		// TimePeriodMonths is derived at creation: the number of monthly
		// payments needed to reach the target.
		TimePeriodMonths int
		Progress         *decimal.Decimal
		MonthsElapsed    *int
		CreatedAt        time.Time
	}

	Post struct {
		ID        int64
		UserID    int64
		Author    string
		Title     string
		Body      string
		ImagePath string
		CreatedAt time.Time
	}

	Comment struct {
		ID     int64
		PostID int64
		UserID int64
		Author string
		// ParentID points at a top-level comment when this is a reply.
		// Replies cannot themselves have replies.
		ParentID  *int64
		Body      string
		CreatedAt time.Time
	}

	ContactMessage struct {
		ID        int64
		Name      string
		Email     string
		Message   string
		Status    ContactStatus
		CreatedAt time.Time
	}

	Feedback struct {
		ID        int64
		UserID    int64
		Rating    int
		Message   string
		CreatedAt time.Time
	}

	// CheckoutOrder tracks one create/capture round trip against the
	// external checkout provider.
	CheckoutOrder struct {
		Ref        string
		UserID     int64
		Amount     decimal.Decimal
		Status     OrderStatus
		CreatedAt  time.Time
		CapturedAt *time.Time
	}
)

var (
	ErrInvalidType          = errors.New("transaction type must be income or expense")
	ErrInvalidAmount        = errors.New("amount must be a positive number")
	ErrEmptyCategory        = errors.New("empty category")
	ErrMissingPaymentMethod = errors.New("missing payment method")
	ErrInvalidRecurrenceDay = errors.New("recurrence day must be between 1 and 31")
	ErrEmptyTitle           = errors.New("empty title")
	ErrEmptyBody            = errors.New("empty body")
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")
	ErrReplyNesting         = errors.New("replies to replies are not allowed")
)

func (t Transaction) Validate() error {
	if t.Type != Income && t.Type != Expense {
		return ErrInvalidType
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if t.IsRecurring && (t.RecurrenceDay < 1 || t.RecurrenceDay > 31) {
		return ErrInvalidRecurrenceDay
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return errors.New("empty goal name")
	}
	if g.TargetAmount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if g.DesiredMonthlyPayment.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return nil
}

func (p Post) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(p.Body) == "" {
		return ErrEmptyBody
	}
	return nil
}

func (c Comment) Validate() error {
	if strings.TrimSpace(c.Body) == "" {
		return ErrEmptyBody
	}
	return nil
}

func (m ContactMessage) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("empty name")
	}
	if strings.TrimSpace(m.Email) == "" {
		return errors.New("empty email")
	}
	if strings.TrimSpace(m.Message) == "" {
		return ErrEmptyBody
	}
	return nil
}

func (f Feedback) Validate() error {
	if f.Rating < 1 || f.Rating > 5 {
		return ErrInvalidRating
	}
	return nil
}

func (s ContactStatus) Valid() bool {
	switch s {
	case ContactNew, ContactRead, ContactResolved:
		return true
	}
	return false
}

// EffectiveSubscription evaluates a user's subscription state at a point in
// time. A stored "trial" reads as expired once the trial window has passed,
// a stored "active" reads as expired once the paid period has passed. The
// stored field itself is only rewritten by the daily sweep or a capture.
func (u User) EffectiveSubscription(now time.Time, trialDays int) SubscriptionStatus {
	switch u.SubscriptionStatus {
	case SubscriptionActive:
		if u.SubscriptionExpiresAt != nil && u.SubscriptionExpiresAt.Before(now) {
			return SubscriptionExpired
		}
		return SubscriptionActive
	case SubscriptionTrial:
		if now.After(u.TrialStartedAt.AddDate(0, 0, trialDays)) {
			return SubscriptionExpired
		}
		return SubscriptionTrial
	default:
		return SubscriptionExpired
	}
}
