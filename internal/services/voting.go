package services

import (
	"context"
	"sync"

	"github.com/abrezinsky/motsvote/internal/ballot"
	"github.com/abrezinsky/motsvote/internal/errors"
	"github.com/abrezinsky/motsvote/internal/logger"
	"github.com/abrezinsky/motsvote/internal/metrics"
	"github.com/abrezinsky/motsvote/internal/models"
	"github.com/abrezinsky/motsvote/internal/repository"
)

// VotingService handles vote-related business logic
type VotingService struct {
	log      logger.Logger
	store    *ballot.Store
	repo     repository.BallotRepository
	settings SettingsServicer
	metrics  *metrics.Metrics

	mu          sync.RWMutex
	broadcaster Broadcaster
}

// NewVotingService creates a new VotingService over the season's ballot store
func NewVotingService(log logger.Logger, store *ballot.Store, repo repository.BallotRepository, settings SettingsServicer, m *metrics.Metrics) *VotingService {
	return &VotingService{
		log:      log,
		store:    store,
		repo:     repo,
		settings: settings,
		metrics:  m,
	}
}

// VoteResult contains the result of a vote submission
type VoteResult struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Category    string `json:"category"`
	NomineeID   string `json:"nominee_id"`
	NomineeName string `json:"nominee_name"`
	Replaced    bool   `json:"replaced"`
	Previous    string `json:"previous,omitempty"`
}

// ResetResult reports a season reset
type ResetResult struct {
	Season  string `json:"season"`
	Cleared int    `json:"cleared"`
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *VotingService) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcaster = b
}

func (s *VotingService) tallyChanged(category string) {
	s.metrics.SetBallots(s.store.Len())

	s.mu.RLock()
	b := s.broadcaster
	s.mu.RUnlock()
	if b != nil {
		b.BroadcastTallyUpdated(category)
	}
}

// Season returns the season being voted on
func (s *VotingService) Season() string {
	return s.store.Season()
}

// Categories returns the award categories in display order
func (s *VotingService) Categories() []models.Category {
	return s.store.Categories()
}

// Reload rebuilds the ballot set from persisted rows
func (s *VotingService) Reload(ctx context.Context) (int, error) {
	rows, err := s.repo.ListBallots(ctx, s.store.Season())
	if err != nil {
		return 0, errors.Unavailable("ballots could not be loaded", err)
	}
	skipped := s.store.Load(rows)
	if skipped > 0 {
		s.log.Warn("Skipped unusable ballot rows", "season", s.store.Season(), "skipped", skipped)
	}
	s.metrics.SetBallots(s.store.Len())
	s.log.Info("Ballots loaded", "season", s.store.Season(), "ballots", s.store.Len())
	return s.store.Len(), nil
}

// CastVote records the voter's choice in a category. Once the deadline has
// passed only admins may still vote.
func (s *VotingService) CastVote(ctx context.Context, voter *models.Voter, categoryKey, nomineeID string) (*VoteResult, error) {
	if voter == nil || voter.Identity.IsZero() {
		return nil, ErrNotLoggedIn
	}
	cat, nominee, err := s.store.Validate(categoryKey, nomineeID)
	if err != nil {
		return nil, err
	}

	closed, err := s.settings.IsClosed(ctx)
	if err != nil {
		return nil, err
	}
	if closed && !voter.IsAdmin {
		return nil, ErrVotingClosed
	}

	res, err := s.store.CastVote(ctx, voter.Identity, cat.Key, nominee.ID, s.settings.Now())
	if err != nil {
		s.log.Error("Vote not recorded", "manager", voter.Identity.Display(), "category", cat.Key, "error", err)
		return nil, err
	}

	if !res.Refresh {
		s.metrics.VoteCast(res.Replaced)
	}
	s.log.Info("Vote recorded", "manager", voter.Identity.Display(), "category", cat.Key, "nominee", nominee.ID, "replaced", res.Replaced)
	s.tallyChanged(cat.Key)

	msg := "Vote recorded for " + nominee.Name
	if res.Replaced {
		msg = "Vote changed to " + nominee.Name
	}
	return &VoteResult{
		Status:      "success",
		Message:     msg,
		Category:    cat.Key,
		NomineeID:   nominee.ID,
		NomineeName: nominee.Name,
		Replaced:    res.Replaced,
		Previous:    res.Previous,
	}, nil
}

// MyVotes returns the voter's current choices keyed by category
func (s *VotingService) MyVotes(ctx context.Context, voter *models.Voter) (map[string]string, error) {
	if voter == nil {
		return nil, ErrNotLoggedIn
	}
	votes := make(map[string]string)
	for cat, b := range s.store.BallotsOf(voter.Identity) {
		votes[cat] = b.NomineeID
	}
	return votes, nil
}

// RemoveVote deletes another manager's ballot in one category. Admin only.
func (s *VotingService) RemoveVote(ctx context.Context, voter *models.Voter, target models.Identity, categoryKey string) (bool, error) {
	isAdmin := voter != nil && voter.IsAdmin
	removed, err := s.store.RemoveVote(ctx, isAdmin, target, categoryKey)
	if err != nil {
		return false, err
	}
	if removed {
		s.metrics.VoteRemoved()
		s.log.Info("Vote removed", "by", voter.Identity.Display(), "manager", target.Display(), "category", categoryKey)
		s.tallyChanged(categoryKey)
	}
	return removed, nil
}

// ResetAll clears every ballot of season. Admin only, and the caller must
// confirm explicitly.
func (s *VotingService) ResetAll(ctx context.Context, voter *models.Voter, season string, confirm bool) (*ResetResult, error) {
	if voter == nil || !voter.IsAdmin {
		return nil, ErrUnauthorized
	}
	if !confirm {
		return nil, ErrConfirmationRequired
	}
	n, err := s.store.ResetAll(ctx, true, season)
	if err != nil {
		return nil, err
	}
	s.metrics.Reset()
	s.log.Warn("Season votes reset", "by", voter.Identity.Display(), "season", season, "cleared", n)
	s.tallyChanged("")
	return &ResetResult{Season: season, Cleared: n}, nil
}
