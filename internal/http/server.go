// Package http exposes the JSON API. Handlers stay thin: they decode,
// call a service, and encode.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"finbook/internal/cache"
	"finbook/internal/config"
	"finbook/internal/core"
	"finbook/internal/middleware/ratelimit"
	"finbook/internal/middleware/security"
	"finbook/internal/middleware/trace"
	"finbook/internal/services"
	"finbook/internal/storage"
)

const sessionCookieName = "session_token"

type Server struct {
	http.Server

	store        storage.Store
	ledger       *services.LedgerService
	goals        *services.GoalService
	content      *services.ContentService
	subscription *services.SubscriptionService
	admin        *services.AdminService

	sessionTTL    time.Duration
	secureCookie  bool
	trialDays     int
	uploadDir     string
	maxUploadSize int64

	// Session lookups hit this cache before the database; logout and user
	// deletion invalidate entries eagerly, TTL catches the rest. Entries
	// are stored by value so every request works on its own copy.
	sessionCache *cache.LRUCache[core.User]
	cacheManager *cache.Manager

	limiter  *ratelimit.Limiter
	headers  *security.HeadersMiddleware
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

func NewServer(
	cfg *config.Config,
	store storage.Store,
	ledger *services.LedgerService,
	goals *services.GoalService,
	content *services.ContentService,
	subscription *services.SubscriptionService,
	admin *services.AdminService,
) *Server {
	mux := http.NewServeMux()
	detector := security.NewDetector()

	s := &Server{
		Server: http.Server{
			Addr:    ":" + cfg.Port,
			Handler: mux,
		},
		store:         store,
		ledger:        ledger,
		goals:         goals,
		content:       content,
		subscription:  subscription,
		admin:         admin,
		sessionTTL:    cfg.SessionTTL,
		secureCookie:  cfg.SecureCookie,
		trialDays:     cfg.TrialDays,
		uploadDir:     cfg.UploadDir,
		maxUploadSize: cfg.MaxUploadSize,
		sessionCache:  cache.NewLRUCache[core.User](1000, 5*time.Minute),
		cacheManager:  cache.NewManager(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		}),
		headers:  security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP),
	}

	s.cacheManager.Register(s.sessionCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.Handle("GET /uploads/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir)))))

	mux.Handle("POST /api/auth/register", s.public(s.handleRegister))
	mux.Handle("POST /api/auth/login", s.public(s.handleLogin))
	mux.Handle("POST /api/auth/logout", s.authed(s.handleLogout))
	mux.Handle("GET /api/auth/session", s.authed(s.handleSession))
	mux.Handle("POST /api/profile/avatar", s.authed(s.handleAvatarUpload))

	mux.Handle("POST /api/transactions", s.authed(s.handleCreateTransaction))
	mux.Handle("GET /api/transactions", s.authed(s.handleListTransactions))
	mux.Handle("GET /api/transactions/summary", s.authed(s.handleSummary))
	mux.Handle("DELETE /api/transactions/{id}", s.authed(s.handleDeleteTransaction))

	mux.Handle("POST /api/goals", s.authed(s.handleCreateGoal))
	mux.Handle("GET /api/goals", s.authed(s.handleListGoals))
	mux.Handle("DELETE /api/goals/{id}", s.authed(s.handleDeleteGoal))

	mux.Handle("GET /api/posts", s.public(s.handleListPosts))
	mux.Handle("POST /api/posts", s.authed(s.handleCreatePost))
	mux.Handle("GET /api/posts/{id}", s.public(s.handleGetPost))
	mux.Handle("DELETE /api/posts/{id}", s.authed(s.handleDeletePost))
	mux.Handle("POST /api/posts/{id}/comments", s.authed(s.handleCreateComment))
	mux.Handle("DELETE /api/comments/{id}", s.authed(s.handleDeleteComment))

	mux.Handle("POST /api/contact", s.public(s.handleContact))
	mux.Handle("POST /api/feedback", s.authed(s.handleFeedback))

	mux.Handle("POST /api/subscription/orders", s.authed(s.handleCreateOrder))
	mux.Handle("POST /api/subscription/orders/{ref}/capture", s.authed(s.handleCaptureOrder))

	mux.Handle("GET /api/admin/users", s.adminOnly(s.handleAdminListUsers))
	mux.Handle("DELETE /api/admin/users/{id}", s.adminOnly(s.handleAdminDeleteUser))
	mux.Handle("GET /api/admin/contact", s.adminOnly(s.handleAdminListContact))
	mux.Handle("PATCH /api/admin/contact/{id}", s.adminOnly(s.handleAdminUpdateContact))
	mux.Handle("GET /api/admin/feedback", s.adminOnly(s.handleAdminListFeedback))

	return s
}

// public applies tracing, security headers and rate limiting.
func (s *Server) public(next http.HandlerFunc) http.Handler {
	limited := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := s.detector.ExtractClientIP(r)
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
		}
		if !s.limiter.Allow(clientIP) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}
		next(w, r)
	})
	return s.tracer.Middleware(s.headers.Middleware(limited))
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user *core.User)

// authed resolves the session cookie to a user before calling next.
func (s *Server) authed(next authedHandler) http.Handler {
	return s.public(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.sessionUser(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r, user)
	})
}

// adminOnly is authed plus the admin flag.
func (s *Server) adminOnly(next authedHandler) http.Handler {
	return s.authed(func(w http.ResponseWriter, r *http.Request, user *core.User) {
		if !user.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) sessionUser(r *http.Request) (*core.User, error) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return nil, errors.New("missing session cookie")
	}

	if u, ok := s.sessionCache.Get(c.Value); ok {
		return &u, nil
	}

	user, err := s.store.GetSessionUser(r.Context(), c.Value, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.sessionCache.Set(c.Value, *user)
	return user, nil
}

// refreshSessionUser rewrites the cached entry for the request's session
// after a profile or subscription change so later requests see it.
func (s *Server) refreshSessionUser(r *http.Request, user *core.User) {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		s.sessionCache.Set(c.Value, *user)
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// Shutdown stops the server and its background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
