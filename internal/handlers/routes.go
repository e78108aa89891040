package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger) // Custom conditional HTTP logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))

	// Static files (served from embedded filesystem)
	if h.staticServer != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", h.staticServer))
	}

	// Pages
	r.Get("/", h.handleIndex)
	r.With(h.Auth.RequireAdminPage).Get("/admin", h.handleAdminPage)

	// WebSocket
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	// Public API
	r.Get("/api/categories", h.handleGetCategories)
	r.Get("/api/deadline", h.handleGetDeadline)
	r.Post("/api/login", h.handleLogin)
	r.Post("/api/logout", h.handleLogout)
	r.With(h.Auth.LoadSession).Get("/api/results", h.handleGetResults)

	// Voter API
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireSession)
		r.Get("/api/session", h.handleGetSession)
		r.Get("/api/my-votes", h.handleGetMyVotes)
		r.Post("/api/vote", h.handleSubmitVote)
	})

	// Admin API (protected)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireAdmin)

		// Voting window
		r.Post("/api/deadline", h.handleSetDeadline)

		// Results
		r.Get("/api/admin/results", h.handleGetAdminResults)
		r.Get("/api/admin/voters", h.handleGetVoters)
		r.Get("/api/admin/export", h.handleExportJSON)
		r.Get("/api/admin/export.xlsx", h.handleExportXLSX)
		r.Post("/api/admin/archive", h.handleArchive)
		r.Get("/api/admin/archive", h.handleGetArchive)

		// Ballots
		r.Delete("/api/admin/votes", h.handleRemoveVote)
		r.Post("/api/admin/reset-votes", h.handleResetVotes)

		// Roster
		r.Get("/api/admin/roster", h.handleGetRoster)
		r.Post("/api/admin/roster", h.handleImportRoster)
		r.Post("/api/admin/roster/reload", h.handleReloadRoster)

		// Sharing
		r.Get("/api/admin/share", h.handleGetShare)
		r.Get("/api/admin/share-qr", h.handleGetShareQR)

		// Logging
		r.Get("/api/admin/logging", h.handleGetLogging)
		r.Post("/api/admin/http-logging", h.handleSetHTTPLogging)
		r.Post("/api/admin/log-level", h.handleSetLogLevel)
	})

	return r
}
