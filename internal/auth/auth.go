package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/abrezinsky/motsvote/internal/logger"
	"github.com/abrezinsky/motsvote/internal/models"
)

const (
	CookieName    = "motsvote_session"
	SessionExpiry = 24 * time.Hour

	// Headers carrying the admin token
	ResetTokenHeader = "X-Admin-Reset"
	AdminTokenHeader = "X-Admin-Token"
)

type session struct {
	voter  models.Voter
	expiry time.Time
}

// Auth tracks logged-in managers and checks the admin token
type Auth struct {
	adminToken string
	sessions   map[string]session
	mu         sync.RWMutex
	now        func() time.Time
	log        logger.Logger
}

// New creates a new Auth instance. An empty adminToken rejects every
// token-protected request.
func New(adminToken string, log logger.Logger) *Auth {
	return &Auth{
		log:        log,
		adminToken: adminToken,
		sessions:   make(map[string]session),
		now:        time.Now,
	}
}

// Login starts a session for the voter and returns its token
func (a *Auth) Login(voter models.Voter) string {
	token := generateToken()
	a.mu.Lock()
	a.sessions[token] = session{voter: voter, expiry: a.now().Add(SessionExpiry)}
	a.mu.Unlock()
	return token
}

// Logout invalidates a session token
func (a *Auth) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// ValidateSession returns the voter of a live session
func (a *Auth) ValidateSession(token string) (*models.Voter, bool) {
	a.mu.RLock()
	s, exists := a.sessions[token]
	a.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if a.now().After(s.expiry) {
		a.mu.Lock()
		delete(a.sessions, token)
		a.mu.Unlock()
		return nil, false
	}

	v := s.voter
	return &v, true
}

// GetSessionFromRequest extracts and validates the session from a request
func (a *Auth) GetSessionFromRequest(r *http.Request) (*models.Voter, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, false
	}
	return a.ValidateSession(cookie.Value)
}

// ValidAdminToken compares token with the configured admin token
func (a *Auth) ValidAdminToken(token string) bool {
	if a.adminToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.adminToken)) == 1
}

type ctxKey struct{}

// WithVoter returns a copy of ctx carrying the voter
func WithVoter(ctx context.Context, v *models.Voter) context.Context {
	return context.WithValue(ctx, ctxKey{}, v)
}

// VoterFrom returns the voter stored by the session middleware, or nil
func VoterFrom(ctx context.Context) *models.Voter {
	v, _ := ctx.Value(ctxKey{}).(*models.Voter)
	return v
}

// LoadSession attaches the session voter, if any, to the request context
func (a *Auth) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v, ok := a.GetSessionFromRequest(r); ok {
			r = r.WithContext(WithVoter(r.Context(), v))
		}
		next.ServeHTTP(w, r)
	})
}

// denied logs a rejected request. v is nil when there is no session.
func (a *Auth) denied(r *http.Request, v *models.Voter, reason string) {
	manager := ""
	if v != nil {
		manager = v.Identity.Display()
	}
	a.log.Warn("Permission denied", "method", r.Method, "path", r.URL.Path, "manager", manager, "reason", reason)
}

// RequireSession middleware for voter endpoints (returns 401). Pages poll
// GET /api/session before login, so rejected reads are only debug logged.
func (a *Auth) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, ok := a.GetSessionFromRequest(r)
		if !ok {
			if r.Method == http.MethodGet {
				a.log.Debug("No session", "path", r.URL.Path)
			} else {
				a.denied(r, nil, "no session")
			}
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized - please log in")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithVoter(r.Context(), v)))
	})
}

// RequireAdmin middleware for admin API endpoints (401 without a session,
// 403 for managers who are not admins)
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, ok := a.GetSessionFromRequest(r)
		if !ok {
			a.denied(r, nil, "no session")
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized - please log in")
			return
		}
		if !v.IsAdmin {
			a.denied(r, v, "not an admin")
			writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "Admin privileges required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithVoter(r.Context(), v)))
	})
}

// RequireAdminPage middleware for admin pages (redirects to the voting page)
func (a *Auth) RequireAdminPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, ok := a.GetSessionFromRequest(r)
		if ok && v.IsAdmin {
			next.ServeHTTP(w, r.WithContext(WithVoter(r.Context(), v)))
			return
		}
		if ok {
			a.denied(r, v, "not an admin")
		}
		http.Redirect(w, r, "/", http.StatusFound)
	})
}

func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"code":"` + code + `","error":"` + msg + `"}`))
}

// SetSessionCookie sets the session cookie on the response
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionExpiry.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// generateToken creates a random session token
func generateToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
