package mock

import (
	"context"

	"github.com/abrezinsky/motsvote/internal/models"
	"github.com/abrezinsky/motsvote/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.UpsertBallotError = errors.New("sheet offline")
//	_, err := votingSvc.CastVote(ctx, session, "overall", "andre_libras")
//	// err now reports the vote as not recorded
type Repository struct {
	repository.FullRepository

	// ===== Roster Errors =====
	LoadRosterError    error
	ReplaceRosterError error

	// ===== Ballot Errors =====
	UpsertBallotError error
	DeleteBallotError error
	ClearBallotsError error
	ListBallotsError  error

	// ===== Settings Errors =====
	GetSettingError error
	SetSettingError error

	// ===== Archive Errors =====
	AppendArchiveError error
	ListArchiveError   error

	PingError error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// ===== Roster Methods =====

func (m *Repository) LoadRoster(ctx context.Context) ([]models.Manager, error) {
	if m.LoadRosterError != nil {
		return nil, m.LoadRosterError
	}
	return m.FullRepository.LoadRoster(ctx)
}

func (m *Repository) ReplaceRoster(ctx context.Context, managers []models.Manager) error {
	if m.ReplaceRosterError != nil {
		return m.ReplaceRosterError
	}
	return m.FullRepository.ReplaceRoster(ctx, managers)
}

// ===== Ballot Methods =====

func (m *Repository) UpsertBallot(ctx context.Context, row models.BallotRow) error {
	if m.UpsertBallotError != nil {
		return m.UpsertBallotError
	}
	return m.FullRepository.UpsertBallot(ctx, row)
}

func (m *Repository) DeleteBallot(ctx context.Context, season string, identity models.Identity, category string) error {
	if m.DeleteBallotError != nil {
		return m.DeleteBallotError
	}
	return m.FullRepository.DeleteBallot(ctx, season, identity, category)
}

func (m *Repository) ClearBallots(ctx context.Context, season string) error {
	if m.ClearBallotsError != nil {
		return m.ClearBallotsError
	}
	return m.FullRepository.ClearBallots(ctx, season)
}

func (m *Repository) ListBallots(ctx context.Context, season string) ([]models.BallotRow, error) {
	if m.ListBallotsError != nil {
		return nil, m.ListBallotsError
	}
	return m.FullRepository.ListBallots(ctx, season)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}

// ===== Archive Methods =====

func (m *Repository) AppendArchive(ctx context.Context, rows []models.ArchiveRow) error {
	if m.AppendArchiveError != nil {
		return m.AppendArchiveError
	}
	return m.FullRepository.AppendArchive(ctx, rows)
}

func (m *Repository) ListArchive(ctx context.Context, season string) ([]models.ArchiveRow, error) {
	if m.ListArchiveError != nil {
		return nil, m.ListArchiveError
	}
	return m.FullRepository.ListArchive(ctx, season)
}

func (m *Repository) Ping(ctx context.Context) error {
	if m.PingError != nil {
		return m.PingError
	}
	return m.FullRepository.Ping(ctx)
}
