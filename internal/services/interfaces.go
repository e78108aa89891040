package services

import (
	"context"
	"time"

	"github.com/abrezinsky/motsvote/internal/models"
	"github.com/abrezinsky/motsvote/internal/roster"
	"github.com/abrezinsky/motsvote/internal/tally"
)

// RosterServicer defines the interface for roster and login operations
type RosterServicer interface {
	Reload(ctx context.Context) RosterStatus
	Import(ctx context.Context, managers []models.Manager) (RosterStatus, error)
	Status() RosterStatus
	Roster(ctx context.Context) *roster.Roster
	IsAdmin(name string) bool
	Login(ctx context.Context, name, club string) (*models.Voter, error)
}

// VotingServicer defines the interface for voting operations
type VotingServicer interface {
	Season() string
	Categories() []models.Category
	Reload(ctx context.Context) (int, error)
	CastVote(ctx context.Context, voter *models.Voter, categoryKey, nomineeID string) (*VoteResult, error)
	MyVotes(ctx context.Context, voter *models.Voter) (map[string]string, error)
	RemoveVote(ctx context.Context, voter *models.Voter, target models.Identity, categoryKey string) (bool, error)
	ResetAll(ctx context.Context, voter *models.Voter, season string, confirm bool) (*ResetResult, error)
	SetBroadcaster(b Broadcaster)
}

// SettingsServicer defines the interface for the voting window
type SettingsServicer interface {
	Now() time.Time
	Window(ctx context.Context) (VotingWindow, error)
	IsClosed(ctx context.Context) (bool, error)
	Status(ctx context.Context) (*VotingStatus, error)
	SetDeadline(ctx context.Context, isAdmin bool, value string) (*VotingStatus, error)
	SetBroadcaster(b Broadcaster)
}

// ResultsServicer defines the interface for results operations
type ResultsServicer interface {
	GetResults(ctx context.Context, voter *models.Voter) (*FullResults, error)
	Voters(ctx context.Context, categoryKey, nomineeID string) ([]tally.Voter, error)
	Export(ctx context.Context) tally.Export
	ExportFilename(ext string) string
	ExportXLSX(ctx context.Context) ([]byte, error)
	Archive(ctx context.Context) (*ArchiveResult, error)
	ListArchive(ctx context.Context) ([]models.ArchiveRow, error)
}

// ShareServicer defines the interface for sharing the voting page
type ShareServicer interface {
	VotingURL() string
	QRCode() ([]byte, error)
}

// Ensure concrete types implement interfaces
var (
	_ RosterServicer   = (*RosterService)(nil)
	_ VotingServicer   = (*VotingService)(nil)
	_ SettingsServicer = (*SettingsService)(nil)
	_ ResultsServicer  = (*ResultsService)(nil)
	_ ShareServicer    = (*ShareService)(nil)
)
