package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/abrezinsky/motsvote/internal/auth"
	"github.com/abrezinsky/motsvote/internal/services"
	"github.com/abrezinsky/motsvote/internal/websocket"
)

// NewStaticServer creates a static file server from an fs.FS
func NewStaticServer(staticFS fs.FS) http.Handler {
	return http.FileServer(http.FS(staticFS))
}

// PageData holds the data passed to page templates
type PageData struct {
	Title  string
	Season string
}

// Templates holds all parsed HTML templates
type Templates struct {
	Index *template.Template
	Admin *template.Template
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Roster       services.RosterServicer
	Voting       services.VotingServicer
	Settings     services.SettingsServicer
	Results      services.ResultsServicer
	Share        services.ShareServicer
	Auth         *auth.Auth
	Hub          *websocket.Hub
	Metrics      http.Handler
	Log          LogController
	templates    *Templates
	staticServer http.Handler
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// LogController is the handlers' logger plus the runtime logging control
// exposed to admins
type LogController interface {
	HTTPLogger
	EnableHTTPLogging()
	DisableHTTPLogging()
	SetLevel(level slog.Level)
	GetLevel() slog.Level
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// New creates a new Handlers instance with all dependencies
func New(
	roster services.RosterServicer,
	voting services.VotingServicer,
	settings services.SettingsServicer,
	results services.ResultsServicer,
	share services.ShareServicer,
	templatesFS fs.FS,
	staticServer http.Handler,
	sessions *auth.Auth,
	hub *websocket.Hub,
	metrics http.Handler,
	log LogController,
) (*Handlers, error) {
	templates, err := loadTemplates(templatesFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return &Handlers{
		Roster:       roster,
		Voting:       voting,
		Settings:     settings,
		Results:      results,
		Share:        share,
		Auth:         sessions,
		Hub:          hub,
		Metrics:      metrics,
		Log:          log,
		templates:    templates,
		staticServer: staticServer,
	}, nil
}

// NewForTesting creates a Handlers instance without loading templates (for testing API endpoints)
func NewForTesting(
	roster services.RosterServicer,
	voting services.VotingServicer,
	settings services.SettingsServicer,
	results services.ResultsServicer,
	share services.ShareServicer,
	sessions *auth.Auth,
	log LogController,
) *Handlers {
	return &Handlers{
		Roster:   roster,
		Voting:   voting,
		Settings: settings,
		Results:  results,
		Share:    share,
		Auth:     sessions,
		Log:      log,
		// templates left nil - API endpoints don't use templates
	}
}

// loadTemplates parses all templates once at startup
func loadTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{}
	var err error

	if t.Index, err = template.ParseFS(templatesFS, "layout.html", "index.html"); err != nil {
		return nil, fmt.Errorf("index template: %w", err)
	}
	if t.Admin, err = template.ParseFS(templatesFS, "layout.html", "admin.html"); err != nil {
		return nil, fmt.Errorf("admin template: %w", err)
	}

	return t, nil
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, pick func(*Templates) *template.Template, data PageData) {
	if h.templates == nil {
		h.respondError(w, r, NotFound("Page not available"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pick(h.templates).ExecuteTemplate(w, "layout", data); err != nil {
		h.respondError(w, r, InternalError(err))
	}
}

// handleIndex serves the voting page
func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, func(t *Templates) *template.Template { return t.Index }, PageData{Title: "Manager of the Season", Season: h.Voting.Season()})
}

// handleAdminPage serves the admin dashboard
func (h *Handlers) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, func(t *Templates) *template.Template { return t.Admin }, PageData{Title: "Admin", Season: h.Voting.Season()})
}
