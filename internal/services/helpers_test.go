package services_test

import (
	"sync"
	"testing"
	"time"

	"github.com/abrezinsky/motsvote/internal/ballot"
	"github.com/abrezinsky/motsvote/internal/metrics"
	"github.com/abrezinsky/motsvote/internal/models"
	"github.com/abrezinsky/motsvote/internal/repository/mock"
	"github.com/abrezinsky/motsvote/internal/services"
	"github.com/abrezinsky/motsvote/internal/testutil"
)

var (
	deadline   = time.Date(2025, 9, 15, 23, 59, 59, 0, time.UTC)
	beforeDead = time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
	afterDead  = time.Date(2025, 9, 16, 8, 0, 0, 0, time.UTC)

	jayMonaco  = models.Identity{Name: "Jay Jones", Club: "AS Monaco"}
	jaySchalke = models.Identity{Name: "Jay Jones", Club: "FC Schalke 04"}
	andre      = models.Identity{Name: "Andre Libras", Club: "Hellas Verona"}
	david      = models.Identity{Name: "David Marsden", Club: "Hamburger SV"}
)

func voter(id models.Identity) *models.Voter {
	return &models.Voter{Identity: id}
}

func admin(id models.Identity) *models.Voter {
	return &models.Voter{Identity: id, IsAdmin: true}
}

// testEnv holds a fully wired set of services over one in-memory database
type testEnv struct {
	repo     *mock.Repository
	store    *ballot.Store
	metrics  *metrics.Metrics
	roster   *services.RosterService
	settings *services.SettingsService
	voting   *services.VotingService
	results  *services.ResultsService
	bcast    *fakeBroadcaster
	now      time.Time
	mu       sync.Mutex
}

func (e *testEnv) setNow(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = t
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

// setupServices wires every service with the shared fixtures. The clock
// starts before the deadline.
func setupServices(t *testing.T) *testEnv {
	t.Helper()
	log := testutil.NewTestLogger()
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	m := metrics.New()

	env := &testEnv{repo: repo, metrics: m, now: beforeDead, bcast: &fakeBroadcaster{}}
	env.store = ballot.NewStore("S25", testutil.Categories(), repo)
	env.roster = services.NewRosterService(log, repo, []models.Manager{{Name: "Fallback Fred", Active: true}}, []string{"David Marsden", "Regan Thompson"}, m)
	env.settings = services.NewSettingsService(log, repo, deadline)
	env.settings.SetClock(env.clock)
	env.voting = services.NewVotingService(log, env.store, repo, env.settings, m)
	env.results = services.NewResultsService(log, env.store, repo, env.settings)

	env.settings.SetBroadcaster(env.bcast)
	env.voting.SetBroadcaster(env.bcast)
	return env
}

type statusEvent struct {
	open     bool
	deadline string
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	statuses []statusEvent
	tallies  []string
}

func (b *fakeBroadcaster) BroadcastVotingStatus(open bool, deadline string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, statusEvent{open: open, deadline: deadline})
}

func (b *fakeBroadcaster) BroadcastTallyUpdated(category string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tallies = append(b.tallies, category)
}

func (b *fakeBroadcaster) tallyCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tallies)
}
