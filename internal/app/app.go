package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/motsvote/internal/auth"
	"github.com/abrezinsky/motsvote/internal/ballot"
	"github.com/abrezinsky/motsvote/internal/catalog"
	"github.com/abrezinsky/motsvote/internal/config"
	"github.com/abrezinsky/motsvote/internal/handlers"
	"github.com/abrezinsky/motsvote/internal/logger"
	"github.com/abrezinsky/motsvote/internal/metrics"
	"github.com/abrezinsky/motsvote/internal/repository"
	"github.com/abrezinsky/motsvote/internal/services"
	"github.com/abrezinsky/motsvote/internal/websocket"
	"github.com/abrezinsky/motsvote/pkg/sheets"
)

// App holds all application dependencies
type App struct {
	cfg      *config.Config
	log      logger.Logger
	repo     repository.FullRepository
	handlers *handlers.Handlers
	hub      *websocket.Hub
	roster   *services.RosterService
	baseURL  string

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New opens the configured store and wires the application
func New(ctx context.Context, cfg *config.Config, log logger.Logger, templatesFS, staticFS fs.FS) (*App, error) {
	repo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a, err := NewWithRepository(ctx, cfg, log, repo, templatesFS, staticFS)
	if err != nil {
		repo.Close()
		return nil, err
	}
	return a, nil
}

// NewWithRepository wires the application over an already opened store
func NewWithRepository(ctx context.Context, cfg *config.Config, log logger.Logger, repo repository.FullRepository, templatesFS, staticFS fs.FS) (*App, error) {
	season, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	if cfg.Season != "" && cfg.Season != season.Season {
		return nil, fmt.Errorf("catalog season %q does not match allowed season %q", season.Season, cfg.Season)
	}

	deadlineValue := cfg.Deadline
	if deadlineValue == "" {
		deadlineValue = season.Deadline
	}
	deadline, err := services.ParseDeadline(deadlineValue)
	if err != nil {
		return nil, fmt.Errorf("default deadline: %w", err)
	}

	admins := cfg.Admins
	if len(admins) == 0 {
		admins = season.Admins
	}
	if cfg.AdminToken == "" {
		log.Warn("ADMIN_RESET_TOKEN is not set, deadline changes and resets are disabled")
	}

	m := metrics.New()
	store := ballot.NewStore(season.Season, season.Categories, repo)
	rosterService := services.NewRosterService(log.With("component", "roster"), repo, season.Roster(), admins, m)
	settingsService := services.NewSettingsService(log.With("component", "settings"), repo, deadline)
	votingService := services.NewVotingService(log.With("component", "voting"), store, repo, settingsService, m)
	resultsService := services.NewResultsService(log.With("component", "results"), store, repo, settingsService)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s:%d", getPreferredIP(realNetworkProvider{}), cfg.Port)
	}
	shareService := services.NewShareService(log, baseURL)

	rosterService.Reload(ctx)
	if _, err := votingService.Reload(ctx); err != nil {
		return nil, fmt.Errorf("failed to load ballots: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	hub := websocket.New(log.With("component", "websocket"), settingsService, time.Second)
	hub.Start(runCtx)
	settingsService.SetBroadcaster(hub)
	votingService.SetBroadcaster(hub)

	var staticServer http.Handler
	if staticFS != nil {
		staticServer = handlers.NewStaticServer(staticFS)
	}

	h, err := handlers.New(
		rosterService,
		votingService,
		settingsService,
		resultsService,
		shareService,
		templatesFS,
		staticServer,
		auth.New(cfg.AdminToken, log.With("component", "auth")),
		hub,
		m.Handler(),
		log,
	)
	if err != nil {
		cancel()
		<-hub.Done()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	if cfg.HTTPLogging {
		log.EnableHTTPLogging()
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		repo:     repo,
		handlers: h,
		hub:      hub,
		roster:   rosterService,
		baseURL:  baseURL,
		cancel:   cancel,
	}

	if cfg.RosterRefresh > 0 {
		a.wg.Add(1)
		go a.refreshRoster(runCtx, cfg.RosterRefresh)
	}
	return a, nil
}

func openRepository(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.FullRepository, error) {
	switch cfg.Store {
	case config.StoreSheets:
		creds, err := cfg.Credentials()
		if err != nil {
			return nil, err
		}
		client, err := sheets.NewGoogleClient(ctx, log.With("component", "sheets"), cfg.SheetID, creds, cfg.SheetsTimeout)
		if err != nil {
			return nil, err
		}
		log.Info("Using Google Sheets store", "spreadsheet", cfg.SheetID, "managers_tab", cfg.ManagersTab)
		return repository.NewSheets(client, log.With("component", "repository"), cfg.ManagersTab), nil
	default:
		log.Info("Using SQLite store", "path", cfg.DBPath)
		return repository.New(cfg.DBPath)
	}
}

// refreshRoster reloads the roster on an interval so edits to the roster
// source reach login without a restart
func (a *App) refreshRoster(ctx context.Context, every time.Duration) {
	defer a.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := a.roster.Reload(ctx)
			a.log.Debug("Roster refreshed", "source", status.Source, "size", status.Size)
		}
	}
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// BaseURL returns the public URL the share link points at
func (a *App) BaseURL() string {
	return a.baseURL
}

// Close stops background work and closes the store
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.cancel()
		<-a.hub.Done()
		a.wg.Wait()
		err = a.repo.Close()
	})
	return err
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	a.log.Info("Server starting", "addr", srv.Addr, "url", a.baseURL)
	a.log.Info("Admin URL", "url", a.baseURL+"/admin")

	select {
	case err := <-serverErr:
		a.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the address managers on the LAN can reach the
// server at. Private IPv4 addresses win over public ones; localhost is the
// last resort.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		if ip.IsPrivate() {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}
