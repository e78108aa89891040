package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/abrezinsky/motsvote/internal/auth"
	"github.com/abrezinsky/motsvote/internal/ballot"
	"github.com/abrezinsky/motsvote/internal/handlers"
	"github.com/abrezinsky/motsvote/internal/logger"
	"github.com/abrezinsky/motsvote/internal/metrics"
	"github.com/abrezinsky/motsvote/internal/models"
	"github.com/abrezinsky/motsvote/internal/repository/mock"
	"github.com/abrezinsky/motsvote/internal/services"
	"github.com/abrezinsky/motsvote/internal/testutil"
)

const adminToken = "reset-me"

var (
	deadline   = time.Date(2025, 9, 15, 23, 59, 59, 0, time.UTC)
	beforeDead = time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
	afterDead  = time.Date(2025, 9, 16, 8, 0, 0, 0, time.UTC)

	jayMonaco = models.Identity{Name: "Jay Jones", Club: "AS Monaco"}
	andre     = models.Identity{Name: "Andre Libras", Club: "Hellas Verona"}
	david     = models.Identity{Name: "David Marsden", Club: "Hamburger SV"}
)

// logBuffer collects log output written from handler goroutines
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testServer struct {
	repo     *mock.Repository
	log      *logger.SlogLogger
	logs     *logBuffer
	auth     *auth.Auth
	roster   *services.RosterService
	settings *services.SettingsService
	voting   *services.VotingService
	results  *services.ResultsService
	handlers *handlers.Handlers
	router   http.Handler

	mu  sync.Mutex
	now time.Time
}

func (s *testServer) setNow(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = t
}

func (s *testServer) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// setupServer wires real services over an in-memory database with the
// shared roster loaded. David Marsden is the admin.
func setupServer(t *testing.T) *testServer {
	t.Helper()
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	if err := repo.ReplaceRoster(context.Background(), testutil.Roster()); err != nil {
		t.Fatalf("seed roster: %v", err)
	}

	logs := &logBuffer{}
	log := logger.NewWithOptions(logger.Options{Level: logger.ParseLevel("warn"), Output: logs})
	m := metrics.New()
	s := &testServer{repo: repo, log: log, logs: logs, now: beforeDead, auth: auth.New(adminToken, log)}

	store := ballot.NewStore("S25", testutil.Categories(), repo)
	s.roster = services.NewRosterService(log, repo, nil, []string{"David Marsden"}, m)
	s.roster.Reload(context.Background())
	s.settings = services.NewSettingsService(log, repo, deadline)
	s.settings.SetClock(s.clock)
	s.voting = services.NewVotingService(log, store, repo, s.settings, m)
	s.results = services.NewResultsService(log, store, repo, s.settings)
	share := services.NewShareService(log, "http://192.168.1.20:8080/")

	s.handlers = handlers.NewForTesting(s.roster, s.voting, s.settings, s.results, share, s.auth, log)
	s.router = s.handlers.Router()
	return s
}

// session logs the identity in directly and returns its cookie
func (s *testServer) session(id models.Identity) *http.Cookie {
	token := s.auth.Login(models.Voter{Identity: id, IsAdmin: s.roster.IsAdmin(id.Name)})
	return &http.Cookie{Name: auth.CookieName, Value: token}
}

type request struct {
	method  string
	path    string
	body    interface{}
	cookie  *http.Cookie
	headers map[string]string
}

func (s *testServer) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	switch b := req.body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		body = bytes.NewReader(data)
	}

	r := httptest.NewRequest(req.method, req.path, body)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if req.cookie != nil {
		r.AddCookie(req.cookie)
	}
	for k, v := range req.headers {
		r.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func expectCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, w, status)
	var apiErr handlers.APIError
	decode(t, w, &apiErr)
	if apiErr.Code != code {
		t.Errorf("expected code %q, got %q (%s)", code, apiErr.Code, apiErr.Message)
	}
}
