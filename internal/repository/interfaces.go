package repository

import (
	"context"

	"github.com/abrezinsky/motsvote/internal/models"
)

// RosterRepository defines roster data operations
type RosterRepository interface {
	LoadRoster(ctx context.Context) ([]models.Manager, error)
	ReplaceRoster(ctx context.Context, managers []models.Manager) error
}

// BallotRepository defines ballot data operations.
// A ballot is keyed by (season, manager identity, category).
type BallotRepository interface {
	UpsertBallot(ctx context.Context, row models.BallotRow) error
	DeleteBallot(ctx context.Context, season string, identity models.Identity, category string) error
	ClearBallots(ctx context.Context, season string) error
	ListBallots(ctx context.Context, season string) ([]models.BallotRow, error)
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// ArchiveRepository defines results archive operations
type ArchiveRepository interface {
	AppendArchive(ctx context.Context, rows []models.ArchiveRow) error
	ListArchive(ctx context.Context, season string) ([]models.ArchiveRow, error)
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	RosterRepository
	BallotRepository
	SettingsRepository
	ArchiveRepository
	Ping(ctx context.Context) error
	Close() error
}

// Ensure both backends implement all interfaces
var (
	_ FullRepository = (*Repository)(nil)
	_ FullRepository = (*SheetsRepository)(nil)
)
