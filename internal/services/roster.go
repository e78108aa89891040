package services

import (
	"context"
	"sync"
	"time"

	"github.com/abrezinsky/motsvote/internal/logger"
	"github.com/abrezinsky/motsvote/internal/metrics"
	"github.com/abrezinsky/motsvote/internal/models"
	"github.com/abrezinsky/motsvote/internal/repository"
	"github.com/abrezinsky/motsvote/internal/roster"
)

// Roster sources reported by RosterStatus
const (
	RosterSourceRemote   = "remote"
	RosterSourceLastGood = "last_good"
	RosterSourceFallback = "fallback"
)

// RosterStatus describes the roster snapshot in use
type RosterStatus struct {
	Source   string    `json:"source"`
	Size     int       `json:"size"`
	LoadedAt time.Time `json:"loaded_at"`
	Error    string    `json:"error,omitempty"`
}

// RosterService loads the manager roster and logs voters in against it
type RosterService struct {
	log      logger.Logger
	repo     repository.RosterRepository
	fallback []models.Manager
	admins   map[string]bool
	metrics  *metrics.Metrics

	mu       sync.RWMutex
	current  *roster.Roster
	source   string
	loadedAt time.Time
	lastErr  string
}

// NewRosterService creates a new RosterService. fallback is used when the
// roster source cannot be read and no earlier snapshot exists.
func NewRosterService(log logger.Logger, repo repository.RosterRepository, fallback []models.Manager, admins []string, m *metrics.Metrics) *RosterService {
	allow := make(map[string]bool, len(admins))
	for _, name := range admins {
		if n := models.Normalize(name); n != "" {
			allow[n] = true
		}
	}
	return &RosterService{
		log:      log,
		repo:     repo,
		fallback: fallback,
		admins:   allow,
		metrics:  m,
	}
}

// Reload reads the roster source and swaps in a new snapshot. When the
// source fails or has no active managers, the last good snapshot is kept,
// or the fallback roster is used if there is none.
func (s *RosterService) Reload(ctx context.Context) RosterStatus {
	records, err := s.repo.LoadRoster(ctx)
	next := roster.New(records)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadedAt = time.Now().UTC()
	switch {
	case err == nil && next.Len() > 0:
		s.current = next
		s.source = RosterSourceRemote
		s.lastErr = ""
	case s.current != nil && s.source != RosterSourceFallback:
		s.source = RosterSourceLastGood
		s.lastErr = reloadError(err)
		s.log.Warn("Roster reload failed, keeping last good snapshot", "error", s.lastErr)
	default:
		s.current = roster.New(s.fallback)
		s.source = RosterSourceFallback
		s.lastErr = reloadError(err)
		s.log.Warn("Roster unavailable, using fallback roster", "error", s.lastErr, "size", s.current.Len())
	}

	s.metrics.SetRosterSize(s.current.Len())
	s.log.Info("Roster loaded", "source", s.source, "size", s.current.Len())
	return s.statusLocked()
}

func reloadError(err error) string {
	if err != nil {
		return err.Error()
	}
	return "roster source has no active managers"
}

// Import replaces the stored roster and reloads it
func (s *RosterService) Import(ctx context.Context, managers []models.Manager) (RosterStatus, error) {
	if err := s.repo.ReplaceRoster(ctx, managers); err != nil {
		return RosterStatus{}, err
	}
	return s.Reload(ctx), nil
}

// Status returns the snapshot in use
func (s *RosterService) Status() RosterStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked()
}

func (s *RosterService) statusLocked() RosterStatus {
	size := 0
	if s.current != nil {
		size = s.current.Len()
	}
	return RosterStatus{Source: s.source, Size: size, LoadedAt: s.loadedAt, Error: s.lastErr}
}

// Roster returns the current snapshot, loading it on first use
func (s *RosterService) Roster(ctx context.Context) *roster.Roster {
	s.mu.RLock()
	r := s.current
	s.mu.RUnlock()
	if r != nil {
		return r
	}
	s.Reload(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// IsAdmin reports whether name is on the admin allow-list
func (s *RosterService) IsAdmin(name string) bool {
	return s.admins[models.Normalize(name)]
}

// Login resolves a typed name, and optionally a club, to a roster identity.
func (s *RosterService) Login(ctx context.Context, name, club string) (*models.Voter, error) {
	if models.CollapseSpaces(name) == "" {
		s.metrics.Login(metrics.LoginInvalid)
		return nil, ErrMissingName
	}

	res := s.Roster(ctx).Resolve(name, club)
	switch res.Outcome {
	case roster.Unique:
		s.metrics.Login(metrics.LoginOK)
		voter := &models.Voter{
			Identity: res.Manager.Identity(),
			IsAdmin:  s.IsAdmin(res.Manager.Name),
		}
		s.log.Info("Manager logged in", "manager", voter.Identity.Display(), "admin", voter.IsAdmin)
		return voter, nil
	case roster.Ambiguous:
		s.metrics.Login(metrics.LoginAmbiguous)
		return nil, &AmbiguousIdentityError{Name: models.CollapseSpaces(name), Clubs: res.Clubs()}
	default:
		s.metrics.Login(metrics.LoginNotFound)
		s.log.Debug("Login rejected", "name", name, "club", club)
		return nil, ErrIdentityNotFound
	}
}
