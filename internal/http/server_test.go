package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finbook/internal/auth"
	"finbook/internal/config"
	"finbook/internal/core"
	"finbook/internal/services"
	"finbook/internal/storage"
)

type fakeCheckout struct {
	mu       sync.Mutex
	next     int
	captured map[string]bool
}

func (f *fakeCheckout) CreateOrder(ctx context.Context, amount decimal.Decimal) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return fmt.Sprintf("ORDER-%d", f.next), nil
}

func (f *fakeCheckout) CaptureOrder(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.captured == nil {
		f.captured = make(map[string]bool)
	}
	f.captured[ref] = true
	return nil
}

func newTestServer(t *testing.T, requestsPerMinute int) (*httptest.Server, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	return newTestServerWithStore(t, store, requestsPerMinute), store
}

func newTestServerWithStore(t *testing.T, store storage.Store, requestsPerMinute int) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Port:                  "0",
		SessionTTL:            time.Hour,
		TrialDays:             14,
		PrimaryIncomeCategory: "Salary",
		UploadDir:             t.TempDir(),
		MaxUploadSize:         1 << 20,
		RateLimitPerMinute:    requestsPerMinute,
	}

	srv := NewServer(
		cfg,
		store,
		services.NewLedgerService(store, nil, cfg.PrimaryIncomeCategory),
		services.NewGoalService(store, cfg.PrimaryIncomeCategory),
		services.NewContentService(store),
		services.NewSubscriptionService(store, &fakeCheckout{}, decimal.RequireFromString("9.99")),
		services.NewAdminService(store),
	)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})

	return ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

// doJSON sends body as JSON and decodes the response into out when out is
// non-nil. It returns the response status code.
func doJSON(t *testing.T, c *http.Client, method, url string, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response from %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func register(t *testing.T, ts *httptest.Server, username string) *http.Client {
	t.Helper()

	c := newClient(t)
	status := doJSON(t, c, http.MethodPost, ts.URL+"/api/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct-horse",
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d, want %d", username, status, http.StatusCreated)
	}
	return c
}

func createTransaction(t *testing.T, ts *httptest.Server, c *http.Client, body map[string]any) transactionResponse {
	t.Helper()

	var out transactionResponse
	status := doJSON(t, c, http.MethodPost, ts.URL+"/api/transactions", body, &out)
	if status != http.StatusCreated {
		t.Fatalf("create transaction: status %d, want %d", status, http.StatusCreated)
	}
	return out
}

func TestRegisterLoginSession(t *testing.T) {
	ts, _ := newTestServer(t, 1000)

	c := register(t, ts, "alice")

	var session userResponse
	if status := doJSON(t, c, http.MethodGet, ts.URL+"/api/auth/session", nil, &session); status != http.StatusOK {
		t.Fatalf("session after register: status %d", status)
	}
	if session.Username != "alice" {
		t.Errorf("session username = %q, want alice", session.Username)
	}
	if session.SubscriptionStatus != "trial" {
		t.Errorf("fresh account subscription = %q, want trial", session.SubscriptionStatus)
	}

	// A second client logs in with the same credentials.
	c2 := newClient(t)
	var user userResponse
	status := doJSON(t, c2, http.MethodPost, ts.URL+"/api/auth/login", map[string]string{
		"username": "alice",
		"password": "correct-horse",
	}, &user)
	if status != http.StatusOK {
		t.Fatalf("login: status %d", status)
	}
	if user.Username != "alice" {
		t.Errorf("login username = %q, want alice", user.Username)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	ts, _ := newTestServer(t, 1000)
	register(t, ts, "alice")

	c := newClient(t)
	status := doJSON(t, c, http.MethodPost, ts.URL+"/api/auth/login", map[string]string{
		"username": "alice",
		"password": "wrong",
	}, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("bad password login: status %d, want %d", status, http.StatusUnauthorized)
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	ts, _ := newTestServer(t, 1000)
	register(t, ts, "alice")

	c := newClient(t)
	status := doJSON(t, c, http.MethodPost, ts.URL+"/api/auth/register", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "correct-horse",
	}, nil)
	if status != http.StatusConflict {
		t.Errorf("duplicate username: status %d, want %d", status, http.StatusConflict)
	}
}

func TestAuthRequired(t *testing.T) {
	ts, _ := newTestServer(t, 1000)
	c := newClient(t)

	for _, url := range []string{
		"/api/transactions",
		"/api/goals",
		"/api/transactions/summary",
		"/api/admin/users",
	} {
		if status := doJSON(t, c, http.MethodGet, ts.URL+url, nil, nil); status != http.StatusUnauthorized {
			t.Errorf("GET %s without session: status %d, want %d", url, status, http.StatusUnauthorized)
		}
	}
}

func TestLogoutEndsSession(t *testing.T) {
	ts, _ := newTestServer(t, 1000)
	c := register(t, ts, "alice")

	if status := doJSON(t, c, http.MethodPost, ts.URL+"/api/auth/logout", nil, nil); status != http.StatusOK {
		t.Fatalf("logout: status %d", status)
	}
	if status := doJSON(t, c, http.MethodGet, ts.URL+"/api/auth/session", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("session after logout: status %d, want %d", status, http.StatusUnauthorized)
	}
}

func TestDuplicateInsertMapsToConflict(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	if err := store.CreateUser(ctx, &core.User{Username: "alice", Email: "a@example.com", PasswordHash: "x"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	err := store.CreateUser(ctx, &core.User{Username: "alice", Email: "b@example.com", PasswordHash: "x"})
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("duplicate insert error = %v, want ErrDuplicate", err)
	}

	rec := httptest.NewRecorder()
	writeDomainError(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", nil), err)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate insert maps to status %d, want %d", rec.Code, http.StatusConflict)
	}
}

// failingSessionStore simulates a storage outage on session deletion.
type failingSessionStore struct {
	storage.Store
}

func (f *failingSessionStore) DeleteSession(context.Context, string) error {
	return errors.New("storage offline")
}

func TestLogoutClearsCookieOnStorageFailure(t *testing.T) {
	store := &failingSessionStore{Store: storage.NewMemoryStore()}
	ts := newTestServerWithStore(t, store, 1000)
	c := register(t, ts, "alice")

	resp, err := c.Post(ts.URL+"/api/auth/logout", "application/json", nil)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout with failing storage: status %d, want %d", resp.StatusCode, http.StatusOK)
	}

	cleared := false
	for _, ck := range resp.Cookies() {
		if ck.Name == sessionCookieName && ck.Value == "" && ck.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("logout response did not clear the session cookie")
	}

	if status := doJSON(t, c, http.MethodGet, ts.URL+"/api/auth/session", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("session after logout: status %d, want %d", status, http.StatusUnauthorized)
	}
}

func TestAvatarUploadUpdatesSession(t *testing.T) {
	ts, _ := newTestServer(t, 1000)
	c := register(t, ts, "alice")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("avatar", "me.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write([]byte("png bytes")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.WriteField("displayName", "Alice A."); err != nil {
		t.Fatalf("write field: %v", err)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/profile/avatar", &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("upload avatar: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload avatar: status %d", resp.StatusCode)
	}

	// Subsequent requests on the same session see the new profile.
	var session userResponse
	if status := doJSON(t, c, http.MethodGet, ts.URL+"/api/auth/session", nil, &session); status != http.StatusOK {
		t.Fatalf("session: status %d", status)
	}
	if session.DisplayName != "Alice A." {
		t.Errorf("session display name = %q, want %q", session.DisplayName, "Alice A.")
	}
	if !strings.HasPrefix(session.AvatarPath, "/uploads/") {
		t.Errorf("session avatar path = %q, want /uploads/ prefix", session.AvatarPath)
	}
}

// Session reads run against their own copy of the user, so a subscription
// capture on the same session must not disturb concurrent readers.
func TestConcurrentSessionReadsDuringCapture(t *testing.T) {
	ts, _ := newTestServer(t, 100000)
	c := register(t, ts, "alice")

	var order orderResponse
	if status := doJSON(t, c, http.MethodPost, ts.URL+"/api/subscription/orders", nil, &order); status != http.StatusCreated {
		t.Fatalf("create order: status %d", status)
	}

	errs := make(chan error, 8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				resp, err := c.Get(ts.URL + "/api/auth/session")
				if err != nil {
					errs <- err
					return
				}
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					errs <- fmt.Errorf("session read: status %d", resp.StatusCode)
					return
				}
			}
		}()
	}

	captureURL := ts.URL + "/api/subscription/orders/" + order.Ref + "/capture"
	if status := doJSON(t, c, http.MethodPost, captureURL, nil, nil); status != http.StatusOK {
		t.Errorf("capture order: status %d", status)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestTransactionFlowAndSummary(t *testing.T) {
	ts, _ := newTestServer(t, 1000)
	c := register(t, ts, "alice")

	createTransaction(t, ts, c, map[string]any{
		"type": "income", "amount": "2000", "category": "Salary", "date": "2026-08-01",
	})
	expense := createTransaction(t, ts, c, map[string]any{
		"type": "expense", "amount": "350.50", "category": "Groceries", "date": "2026-08-03",
	})
	if expense.PaymentMethod != core.FallbackPaymentMethod {
		t.Errorf("expense without payment method = %q, want %q", expense.PaymentMethod, core.FallbackPaymentMethod)
	}

	var txs []transactionResponse
	if status := doJSON(t, c, http.MethodGet, ts.URL+"/api/transactions", nil, &txs); status != http.StatusOK {
		t.Fatalf("list transactions: status %d", status)
	}
	if len(txs) != 2 {
		t.Fatalf("listed %d transactions, want 2", len(txs))
	}

	var summary summaryResponse
	if status := doJSON(t, c, http.MethodGet, ts.URL+"/api/transactions/summary", nil, &summary); status != http.StatusOK {
		t.Fatalf("summary: status %d", status)
	}
	if !summary.TotalIncome.Equal(decimal.RequireFromString("2000")) {
		t.Errorf("total income = %s, want 2000", summary.TotalIncome)
	}
	if !summary.TotalExpenses.Equal(decimal.RequireFromString("350.50")) {
		t.Errorf("total expenses = %s, want 350.50", summary.TotalExpenses)
	}
	if !summary.TotalBalance.Equal(decimal.RequireFromString("1649.50")) {
		t.Errorf("total balance = %s, want 1649.50", summary.TotalBalance)
	}
	if got := summary.AvailablePerCategory["Salary"]; !got.Equal(decimal.RequireFromString("2000")) {
		t.Errorf("available Salary = %s, want 2000", got)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	ts, _ := newTestServer(t, 1000)
	c := register(t, ts, "alice")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"bad type", map[string]any{"type": "transfer", "amount": "10", "category": "Misc"}},
		{"zero amount", map[string]any{"type": "income", "amount": "0", "category": "Salary"}},
		{"empty category", map[string]any{"type": "income", "amount": "10", "category": ""}},
		{"bad recurrence day", map[string]any{"type": "expense", "amount": "10", "category": "Rent", "isRecurring": true, "recurrenceDay": 31}},
		{"bad date format", map[string]any{"type": "income", "amount": "10", "category": "Salary", "date": "01-08-2026"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := doJSON(t, c, http.MethodPost, ts.URL+"/api/transactions", tt.body, nil)
			if status != http.StatusBadRequest {
				t.Errorf("status %d, want %d", status, http.StatusBadRequest)
			}
		})
	}
}

func TestDeleteTransactionOwnership(t *testing.T) {
	ts, _ := newTestServer(t, 1000)
	alice := register(t, ts, "alice")
	bob := register(t, ts, "bob")

	tx := createTransaction(t, ts, alice, map[string]any{
		"type": "expense", "amount": "25", "category": "Books", "date": "2026-08-10",
	})

	url := fmt.Sprintf("%s/api/transactions/%d", ts.URL, tx.ID)
	if status := doJSON(t, bob, http.MethodDelete, url, nil, nil); status != http.StatusForbidden {
		t.Errorf("delete another owner's transaction: status %d, want %d", status, http.StatusForbidden)
	}
	if status := doJSON(t, alice, http.MethodDelete, url, nil, nil); status != http.StatusOK {
		t.Errorf("owner delete: status %d, want %d", status, http.StatusOK)
	}
	if status := doJSON(t, alice, http.MethodDelete, url, nil, nil); status != http.StatusNotFound {
		t.Errorf("delete twice: status %d, want %d", status, http.StatusNotFound)
	}
}

func TestGoalFeasibility(t *testing.T) {
	ts, _ := newTestServer(t, 1000)
	c := register(t, ts, "alice")

	createTransaction(t, ts, c, map[string]any{
		"type": "income", "amount": "1000", "category": "Salary", "date": "2026-08-01",
	})

	var goal goalResponse
	status := doJSON(t, c, http.MethodPost, ts.URL+"/api/goals", map[string]any{
		"name": "Bike", "targetAmount": "1200", "desiredMonthlyPayment": "100",
	}, &goal)
	if status != http.StatusCreated {
		t.Fatalf("feasible goal: status %d", status)
	}
	if goal.TimePeriodMonths != 12 {
		t.Errorf("time period = %d months, want 12", goal.TimePeriodMonths)
	}

	// Monthly payment above the available primary income.
	status = doJSON(t, c, http.MethodPost, ts.URL+"/api/goals", map[string]any{
		"name": "Car", "targetAmount": "20000", "desiredMonthlyPayment": "1500",
	}, nil)
	if status != http.StatusUnprocessableEntity {
		t.Errorf("infeasible goal: status %d, want %d", status, http.StatusUnprocessableEntity)
	}

	var goals []goalResponse
	if status := doJSON(t, c, http.MethodGet, ts.URL+"/api/goals", nil, &goals); status != http.StatusOK {
		t.Fatalf("list goals: status %d", status)
	}
	if len(goals) != 1 {
		t.Errorf("listed %d goals, want 1", len(goals))
	}
}

func TestGoalCommitmentsReduceFeasibility(t *testing.T) {
	ts, _ := newTestServer(t, 1000)
	c := register(t, ts, "alice")

	createTransaction(t, ts, c, map[string]any{
		"type": "income", "amount": "1000", "category": "Salary", "date": "2026-08-01",
	})

	first := doJSON(t, c, http.MethodPost, ts.URL+"/api/goals", map[string]any{
		"name": "First", "targetAmount": "6000", "desiredMonthlyPayment": "600",
	}, nil)
	if first != http.StatusCreated {
		t.Fatalf("first goal: status %d", first)
	}

	// 600 of the 1000 is already committed.
	second := doJSON(t, c, http.MethodPost, ts.URL+"/api/goals", map[string]any{
		"name": "Second", "targetAmount": "5000", "desiredMonthlyPayment": "500",
	}, nil)
	if second != http.StatusUnprocessableEntity {
		t.Errorf("second goal: status %d, want %d", second, http.StatusUnprocessableEntity)
	}
}

func TestPostsAndComments(t *testing.T) {
	ts, _ := newTestServer(t, 1000)
	alice := register(t, ts, "alice")
	bob := register(t, ts, "bob")

	var post postResponse
	status := doJSON(t, alice, http.MethodPost, ts.URL+"/api/posts", map[string]string{
		"title": "Budgeting in August", "body": "What worked for me this month.",
	}, &post)
	if status != http.StatusCreated {
		t.Fatalf("create post: status %d", status)
	}
	if post.Author != "alice" {
		t.Errorf("post author = %q, want alice", post.Author)
	}

	var comment commentResponse
	status = doJSON(t, bob, http.MethodPost, fmt.Sprintf("%s/api/posts/%d/comments", ts.URL, post.ID), map[string]any{
		"body": "Great write-up.",
	}, &comment)
	if status != http.StatusCreated {
		t.Fatalf("create comment: status %d", status)
	}

	var reply commentResponse
	status = doJSON(t, alice, http.MethodPost, fmt.Sprintf("%s/api/posts/%d/comments", ts.URL, post.ID), map[string]any{
		"body": "Thanks!", "parentId": comment.ID,
	}, &reply)
	if status != http.StatusCreated {
		t.Fatalf("create reply: status %d", status)
	}

	// Replies stop at one level.
	status = doJSON(t, bob, http.MethodPost, fmt.Sprintf("%s/api/posts/%d/comments", ts.URL, post.ID), map[string]any{
		"body": "Nested", "parentId": reply.ID,
	}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("reply to a reply: status %d, want %d", status, http.StatusBadRequest)
	}

	// The post page is public.
	anon := newClient(t)
	var page struct {
		Post     postResponse      `json:"post"`
		Comments []commentResponse `json:"comments"`
	}
	status = doJSON(t, anon, http.MethodGet, fmt.Sprintf("%s/api/posts/%d", ts.URL, post.ID), nil, &page)
	if status != http.StatusOK {
		t.Fatalf("get post: status %d", status)
	}
	if len(page.Comments) != 2 {
		t.Errorf("post page has %d comments, want 2", len(page.Comments))
	}

	// Only the author or an admin may delete.
	status = doJSON(t, bob, http.MethodDelete, fmt.Sprintf("%s/api/posts/%d", ts.URL, post.ID), nil, nil)
	if status != http.StatusForbidden {
		t.Errorf("non-author delete: status %d, want %d", status, http.StatusForbidden)
	}
	status = doJSON(t, alice, http.MethodDelete, fmt.Sprintf("%s/api/posts/%d", ts.URL, post.ID), nil, nil)
	if status != http.StatusOK {
		t.Errorf("author delete: status %d, want %d", status, http.StatusOK)
	}
}

func TestContactAndAdminModeration(t *testing.T) {
	ts, store := newTestServer(t, 1000)

	// Contact form needs no session.
	anon := newClient(t)
	var created struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	status := doJSON(t, anon, http.MethodPost, ts.URL+"/api/contact", map[string]string{
		"name": "Visitor", "email": "visitor@example.com", "message": "Love the goal planner.",
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("contact: status %d", status)
	}
	if created.Status != string(core.ContactNew) {
		t.Errorf("new message status = %q, want %q", created.Status, core.ContactNew)
	}

	// Regular users cannot reach moderation.
	alice := register(t, ts, "alice")
	if status := doJSON(t, alice, http.MethodGet, ts.URL+"/api/admin/contact", nil, nil); status != http.StatusForbidden {
		t.Errorf("non-admin moderation: status %d, want %d", status, http.StatusForbidden)
	}

	admin := loginAdmin(t, ts, store)

	var msgs []contactMessageResponse
	if status := doJSON(t, admin, http.MethodGet, ts.URL+"/api/admin/contact", nil, &msgs); status != http.StatusOK {
		t.Fatalf("list contact messages: status %d", status)
	}
	if len(msgs) != 1 {
		t.Fatalf("listed %d contact messages, want 1", len(msgs))
	}

	url := fmt.Sprintf("%s/api/admin/contact/%d", ts.URL, msgs[0].ID)
	if status := doJSON(t, admin, http.MethodPatch, url, map[string]string{"status": "resolved"}, nil); status != http.StatusOK {
		t.Fatalf("update contact status: status %d", status)
	}
	if status := doJSON(t, admin, http.MethodPatch, url, map[string]string{"status": "bogus"}, nil); status != http.StatusBadRequest {
		t.Errorf("bogus contact status: status %d, want %d", status, http.StatusBadRequest)
	}
}

func TestAdminUserManagement(t *testing.T) {
	ts, store := newTestServer(t, 1000)
	register(t, ts, "alice")
	admin := loginAdmin(t, ts, store)

	var users []userResponse
	if status := doJSON(t, admin, http.MethodGet, ts.URL+"/api/admin/users", nil, &users); status != http.StatusOK {
		t.Fatalf("list users: status %d", status)
	}
	if len(users) != 2 {
		t.Fatalf("listed %d users, want 2", len(users))
	}

	var adminID, aliceID int64
	for _, u := range users {
		if u.Username == "alice" {
			aliceID = u.ID
		}
		if u.IsAdmin {
			adminID = u.ID
		}
	}

	// Admins cannot delete themselves.
	status := doJSON(t, admin, http.MethodDelete, fmt.Sprintf("%s/api/admin/users/%d", ts.URL, adminID), nil, nil)
	if status != http.StatusForbidden {
		t.Errorf("self delete: status %d, want %d", status, http.StatusForbidden)
	}

	status = doJSON(t, admin, http.MethodDelete, fmt.Sprintf("%s/api/admin/users/%d", ts.URL, aliceID), nil, nil)
	if status != http.StatusOK {
		t.Fatalf("delete user: status %d", status)
	}
	if status := doJSON(t, admin, http.MethodGet, ts.URL+"/api/admin/users", nil, &users); status != http.StatusOK {
		t.Fatalf("list users: status %d", status)
	}
	if len(users) != 1 {
		t.Errorf("listed %d users after delete, want 1", len(users))
	}
}

func TestSubscriptionCheckoutFlow(t *testing.T) {
	ts, _ := newTestServer(t, 1000)
	c := register(t, ts, "alice")

	var order orderResponse
	if status := doJSON(t, c, http.MethodPost, ts.URL+"/api/subscription/orders", nil, &order); status != http.StatusCreated {
		t.Fatalf("create order: status %d", status)
	}
	if order.Status != string(core.OrderCreated) {
		t.Errorf("new order status = %q, want %q", order.Status, core.OrderCreated)
	}

	// Another user cannot capture it.
	bob := register(t, ts, "bob")
	captureURL := ts.URL + "/api/subscription/orders/" + order.Ref + "/capture"
	if status := doJSON(t, bob, http.MethodPost, captureURL, nil, nil); status != http.StatusForbidden {
		t.Errorf("capture by another user: status %d, want %d", status, http.StatusForbidden)
	}

	var result struct {
		Order orderResponse `json:"order"`
		User  userResponse  `json:"user"`
	}
	if status := doJSON(t, c, http.MethodPost, captureURL, nil, &result); status != http.StatusOK {
		t.Fatalf("capture order: status %d", status)
	}
	if result.Order.Status != string(core.OrderCaptured) {
		t.Errorf("captured order status = %q, want %q", result.Order.Status, core.OrderCaptured)
	}
	if result.User.SubscriptionStatus != string(core.SubscriptionActive) {
		t.Errorf("subscription after capture = %q, want %q", result.User.SubscriptionStatus, core.SubscriptionActive)
	}
	if result.User.SubscriptionExpiresAt == nil {
		t.Fatal("subscription expiry not set after capture")
	}

	// Capturing twice does not double-extend.
	if status := doJSON(t, c, http.MethodPost, captureURL, nil, nil); status != http.StatusNotFound {
		t.Errorf("second capture: status %d, want %d", status, http.StatusNotFound)
	}

	// The session now reports the paid status too.
	var session userResponse
	if status := doJSON(t, c, http.MethodGet, ts.URL+"/api/auth/session", nil, &session); status != http.StatusOK {
		t.Fatalf("session: status %d", status)
	}
	if session.SubscriptionStatus != string(core.SubscriptionActive) {
		t.Errorf("session subscription = %q, want %q", session.SubscriptionStatus, core.SubscriptionActive)
	}
}

func TestFeedbackRequiresValidRating(t *testing.T) {
	ts, _ := newTestServer(t, 1000)
	c := register(t, ts, "alice")

	if status := doJSON(t, c, http.MethodPost, ts.URL+"/api/feedback", map[string]any{
		"rating": 6, "message": "off the scale",
	}, nil); status != http.StatusBadRequest {
		t.Errorf("rating 6: status %d, want %d", status, http.StatusBadRequest)
	}

	if status := doJSON(t, c, http.MethodPost, ts.URL+"/api/feedback", map[string]any{
		"rating": 5, "message": "great app",
	}, nil); status != http.StatusCreated {
		t.Errorf("rating 5: status %d, want %d", status, http.StatusCreated)
	}
}

func TestRateLimit(t *testing.T) {
	ts, _ := newTestServer(t, 2)
	c := newClient(t)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := c.Get(ts.URL + "/api/posts")
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("first two requests: %v, want 200s", statuses[:2])
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("third request: %d, want %d", statuses[2], http.StatusTooManyRequests)
	}
}

// loginAdmin seeds an admin account directly in the store and logs in
// through the API.
func loginAdmin(t *testing.T, ts *httptest.Server, store *storage.MemoryStore) *http.Client {
	t.Helper()

	hash, err := auth.HashPassword("admin-secret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &core.User{
		Username:     "staff",
		Email:        "staff@example.com",
		PasswordHash: hash,
		IsAdmin:      true,
	}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	c := newClient(t)
	status := doJSON(t, c, http.MethodPost, ts.URL+"/api/auth/login", map[string]string{
		"username": "staff",
		"password": "admin-secret",
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("admin login: status %d", status)
	}
	return c
}
