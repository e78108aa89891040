package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"go.uber.org/goleak"

	"github.com/abrezinsky/motsvote/internal/config"
	"github.com/abrezinsky/motsvote/internal/models"
	"github.com/abrezinsky/motsvote/internal/repository/mock"
	"github.com/abrezinsky/motsvote/internal/testutil"
)

func createTestTemplatesFS() fstest.MapFS {
	return fstest.MapFS{
		"layout.html": &fstest.MapFile{Data: []byte(`{{define "layout"}}<html><body>{{template "content" .}}</body></html>{{end}}`)},
		"index.html":  &fstest.MapFile{Data: []byte(`{{define "content"}}Vote {{.Season}}{{end}}`)},
		"admin.html":  &fstest.MapFile{Data: []byte(`{{define "content"}}Admin{{end}}`)},
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Port = 0
	cfg.BaseURL = "http://192.168.1.20:8081"
	cfg.AdminToken = "reset-me"
	cfg.RosterRefresh = 0
	return cfg
}

func createTestApp(t *testing.T) *App {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	app, err := NewWithRepository(context.Background(), testConfig(), testutil.NewTestLogger(), repo, createTestTemplatesFS(), fstest.MapFS{})
	if err != nil {
		t.Fatalf("NewWithRepository: %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app
}

func TestNew_InitializesApp(t *testing.T) {
	app := createTestApp(t)
	if app.handlers == nil {
		t.Error("expected handlers to be initialized")
	}
	if app.repo == nil {
		t.Error("expected repo to be initialized")
	}
	if app.BaseURL() != "http://192.168.1.20:8081" {
		t.Errorf("unexpected base URL %q", app.BaseURL())
	}
}

func TestNew_OpensSQLiteStore(t *testing.T) {
	cfg := testConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "voting.db")

	app, err := New(context.Background(), cfg, testutil.NewTestLogger(), createTestTemplatesFS(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := app.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNew_FailsWithBadDBPath(t *testing.T) {
	cfg := testConfig()
	cfg.DBPath = "/nonexistent/path/db.sqlite"

	if _, err := New(context.Background(), cfg, testutil.NewTestLogger(), createTestTemplatesFS(), nil); err == nil {
		t.Error("expected error for invalid db path")
	}
}

func TestNew_FailsWithMissingCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.Store = config.StoreSheets
	cfg.SheetID = "sheet"
	cfg.ServiceAccount = "/does/not/exist.json"

	if _, err := New(context.Background(), cfg, testutil.NewTestLogger(), createTestTemplatesFS(), nil); err == nil {
		t.Error("expected error for unreadable credentials")
	}
}

func TestNewWithRepository_Errors(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*config.Config)
		templates fstest.MapFS
		listErr   error
	}{
		{"season mismatch", func(c *config.Config) { c.Season = "S24" }, createTestTemplatesFS(), nil},
		{"missing catalog", func(c *config.Config) { c.CatalogPath = "/does/not/exist.yaml" }, createTestTemplatesFS(), nil},
		{"bad deadline", func(c *config.Config) { c.Deadline = "tomorrow" }, createTestTemplatesFS(), nil},
		{"missing templates", func(c *config.Config) {}, fstest.MapFS{}, nil},
		{"ballots unavailable", func(c *config.Config) {}, createTestTemplatesFS(), errors.New("sheet offline")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mock.NewRepository(testutil.NewTestRepository(t))
			defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
			repo.ListBallotsError = tt.listErr
			cfg := testConfig()
			tt.modify(cfg)

			if _, err := NewWithRepository(context.Background(), cfg, testutil.NewTestLogger(), repo, tt.templates, nil); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestApp_Router_ServesRequests(t *testing.T) {
	app := createTestApp(t)
	server := httptest.NewServer(app.Router())
	defer server.Close()

	for _, path := range []string{"/", "/api/categories", "/api/deadline", "/metrics"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}

func TestApp_LoadsPersistedBallots(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewTestRepository(t)
	if err := repo.UpsertBallot(ctx, models.BallotRow{
		Timestamp:   time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
		Season:      "S25",
		ManagerName: "Jay Jones",
		ManagerClub: "AS Monaco",
		Category:    "overall",
		NomineeID:   "andre_libras",
		NomineeName: "André Libras-Boas",
	}); err != nil {
		t.Fatalf("seed ballot: %v", err)
	}

	app, err := NewWithRepository(ctx, testConfig(), testutil.NewTestLogger(), repo, createTestTemplatesFS(), nil)
	if err != nil {
		t.Fatalf("NewWithRepository: %v", err)
	}
	defer app.Close()

	results := app.handlers.Results.Export(ctx)
	if got := results["overall"]["André Libras-Boas"].Votes; got != 1 {
		t.Errorf("expected the persisted ballot to be counted, got %d", got)
	}
}

func TestApp_RefreshesRoster(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewTestRepository(t)
	if err := repo.ReplaceRoster(ctx, testutil.Roster()); err != nil {
		t.Fatalf("seed roster: %v", err)
	}

	cfg := testConfig()
	cfg.RosterRefresh = 10 * time.Millisecond
	app, err := NewWithRepository(ctx, cfg, testutil.NewTestLogger(), repo, createTestTemplatesFS(), nil)
	if err != nil {
		t.Fatalf("NewWithRepository: %v", err)
	}
	defer app.Close()

	if size := app.roster.Status().Size; size != 4 {
		t.Fatalf("expected 4 managers, got %d", size)
	}
	if err := repo.ReplaceRoster(ctx, []models.Manager{{Name: "Solo", Club: "Ajax", Active: true}}); err != nil {
		t.Fatalf("replace roster: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for app.roster.Status().Size != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("roster was not refreshed, size %d", app.roster.Status().Size)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestApp_Close_Idempotent(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig()
	cfg.RosterRefresh = time.Minute
	app, err := NewWithRepository(context.Background(), cfg, testutil.NewTestLogger(), repo, createTestTemplatesFS(), nil)
	if err != nil {
		t.Fatalf("NewWithRepository: %v", err)
	}

	app.Close()
	app.Close()
}

func TestApp_Run_ShutsDownOnCancel(t *testing.T) {
	app := createTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApp_Run_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	repo := testutil.NewTestRepository(t)
	cfg := testConfig()
	cfg.BindAddr = "127.0.0.1"
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	app, err := NewWithRepository(context.Background(), cfg, testutil.NewTestLogger(), repo, createTestTemplatesFS(), nil)
	if err != nil {
		t.Fatalf("NewWithRepository: %v", err)
	}

	err = app.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "address already in use") {
		t.Errorf("expected address in use error, got %v", err)
	}
}

func TestNew_DetectsBaseURL(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	cfg := testConfig()
	cfg.BaseURL = ""
	cfg.Port = 8081
	app, err := NewWithRepository(context.Background(), cfg, testutil.NewTestLogger(), repo, createTestTemplatesFS(), nil)
	if err != nil {
		t.Fatalf("NewWithRepository: %v", err)
	}
	defer app.Close()

	if !strings.HasPrefix(app.BaseURL(), "http://") || !strings.HasSuffix(app.BaseURL(), ":8081") {
		t.Errorf("unexpected detected base URL %q", app.BaseURL())
	}
}

// mockInterface implements networkInterface for testing
type mockInterface struct {
	flags net.Flags
	addrs []net.Addr
	err   error
}

func (m mockInterface) Flags() net.Flags {
	return m.flags
}

func (m mockInterface) Addrs() ([]net.Addr, error) {
	return m.addrs, m.err
}

// mockNetworkProvider implements networkProvider for testing
type mockNetworkProvider struct {
	interfaces []networkInterface
	err        error
}

func (m mockNetworkProvider) Interfaces() ([]networkInterface, error) {
	return m.interfaces, m.err
}

func ipNet(s string) *net.IPNet {
	return &net.IPNet{IP: net.ParseIP(s), Mask: net.CIDRMask(24, 32)}
}

func TestGetPreferredIP(t *testing.T) {
	tests := []struct {
		name     string
		provider mockNetworkProvider
		want     string
	}{
		{"interfaces error", mockNetworkProvider{err: net.ErrClosed}, "localhost"},
		{"addrs error", mockNetworkProvider{interfaces: []networkInterface{
			mockInterface{flags: net.FlagUp, err: net.ErrClosed},
		}}, "localhost"},
		{"ip addr", mockNetworkProvider{interfaces: []networkInterface{
			mockInterface{flags: net.FlagUp, addrs: []net.Addr{&net.IPAddr{IP: net.ParseIP("192.168.1.100")}}},
		}}, "192.168.1.100"},
		{"public fallback", mockNetworkProvider{interfaces: []networkInterface{
			mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("8.8.8.8")}},
		}}, "8.8.8.8"},
		{"private preferred", mockNetworkProvider{interfaces: []networkInterface{
			mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("8.8.8.8"), ipNet("172.20.0.5")}},
		}}, "172.20.0.5"},
		{"ten network", mockNetworkProvider{interfaces: []networkInterface{
			mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("10.1.2.3")}},
		}}, "10.1.2.3"},
		{"loopback address skipped", mockNetworkProvider{interfaces: []networkInterface{
			mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("127.0.0.1"), ipNet("192.168.1.50")}},
		}}, "192.168.1.50"},
		{"down interface skipped", mockNetworkProvider{interfaces: []networkInterface{
			mockInterface{flags: 0, addrs: []net.Addr{ipNet("192.168.1.60")}},
		}}, "localhost"},
		{"loopback interface skipped", mockNetworkProvider{interfaces: []networkInterface{
			mockInterface{flags: net.FlagUp | net.FlagLoopback, addrs: []net.Addr{ipNet("192.168.1.70")}},
		}}, "localhost"},
		{"ipv6 only", mockNetworkProvider{interfaces: []networkInterface{
			mockInterface{flags: net.FlagUp, addrs: []net.Addr{&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)}}},
		}}, "localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getPreferredIP(tt.provider); got != tt.want {
				t.Errorf("getPreferredIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetPreferredIP_Real(t *testing.T) {
	ip := getPreferredIP(realNetworkProvider{})
	if ip == "" {
		t.Fatal("expected non-empty IP")
	}
	if ip != "localhost" {
		parsed := net.ParseIP(ip)
		if parsed == nil || parsed.To4() == nil {
			t.Errorf("expected an IPv4 address, got %s", ip)
		}
	}
}
