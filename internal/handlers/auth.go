package handlers

import (
	"net/http"

	"github.com/abrezinsky/motsvote/internal/auth"
)

// handleLogin resolves the typed manager name and starts a session
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	voter, err := h.Roster.Login(r.Context(), req.Name, req.Club)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	token := h.Auth.Login(*voter)
	auth.SetSessionCookie(w, token)
	respondOK(w, sessionResponse(voter))
}

// handleLogout clears the session
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.Auth.Logout(cookie.Value)
	}

	auth.ClearSessionCookie(w)
	respondSuccess(w, "Logged out")
}

// handleGetSession returns the logged-in manager
func (h *Handlers) handleGetSession(w http.ResponseWriter, r *http.Request) {
	respondOK(w, sessionResponse(auth.VoterFrom(r.Context())))
}
