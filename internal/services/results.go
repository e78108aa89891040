package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/abrezinsky/motsvote/internal/ballot"
	"github.com/abrezinsky/motsvote/internal/errors"
	"github.com/abrezinsky/motsvote/internal/logger"
	"github.com/abrezinsky/motsvote/internal/models"
	"github.com/abrezinsky/motsvote/internal/repository"
	"github.com/abrezinsky/motsvote/internal/tally"
)

// ResultsService handles results-related business logic
type ResultsService struct {
	log      logger.Logger
	store    *ballot.Store
	agg      *tally.Aggregator
	repo     repository.ArchiveRepository
	settings SettingsServicer
}

// NewResultsService creates a new ResultsService
func NewResultsService(log logger.Logger, store *ballot.Store, repo repository.ArchiveRepository, settings SettingsServicer) *ResultsService {
	return &ResultsService{
		log:      log,
		store:    store,
		agg:      tally.New(store),
		repo:     repo,
		settings: settings,
	}
}

// FullResults is the tally of every category
type FullResults struct {
	Season     string                 `json:"season"`
	Categories []tally.CategoryResult `json:"categories"`
	Ballots    int                    `json:"ballots"`
}

// ArchiveResult reports an archived snapshot
type ArchiveResult struct {
	SnapshotID string `json:"snapshot_id"`
	Rows       int    `json:"rows"`
}

// GetResults returns the full tally. Admins always see it, other managers
// only once voting has closed.
func (s *ResultsService) GetResults(ctx context.Context, voter *models.Voter) (*FullResults, error) {
	if voter == nil || !voter.IsAdmin {
		closed, err := s.settings.IsClosed(ctx)
		if err != nil {
			return nil, err
		}
		if !closed {
			return nil, ErrResultsHidden
		}
	}
	return &FullResults{
		Season:     s.store.Season(),
		Categories: s.agg.Results(),
		Ballots:    s.store.Len(),
	}, nil
}

// Voters lists who voted for a nominee in vote order
func (s *ResultsService) Voters(ctx context.Context, categoryKey, nomineeID string) ([]tally.Voter, error) {
	if _, _, err := s.store.Validate(categoryKey, nomineeID); err != nil {
		return nil, err
	}
	return s.agg.VotersFor(categoryKey, nomineeID), nil
}

// Export returns the denormalized dump of the ballot set
func (s *ResultsService) Export(ctx context.Context) tally.Export {
	return s.agg.ExportSnapshot()
}

// ExportFilename names the export download
func (s *ResultsService) ExportFilename(ext string) string {
	return fmt.Sprintf("%s-voting-results.%s", s.store.Season(), ext)
}

// ExportXLSX renders the tally as a workbook with a Results sheet and a
// Voters sheet.
func (s *ResultsService) ExportXLSX(ctx context.Context) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Results"); err != nil {
		return nil, errors.Internal(err)
	}
	if _, err := f.NewSheet("Voters"); err != nil {
		return nil, errors.Internal(err)
	}

	results := [][]interface{}{{"Category", "Nominee", "Club", "Votes", "Percentage"}}
	voters := [][]interface{}{{"Category", "Nominee", "Manager", "Club", "Timestamp"}}
	for _, cat := range s.agg.Results() {
		for _, n := range cat.Nominees {
			results = append(results, []interface{}{cat.Title, n.Name, n.Club, n.Votes, n.Display + "%"})
			for _, v := range s.agg.VotersFor(cat.Key, n.ID) {
				voters = append(voters, []interface{}{cat.Title, n.Name, v.Name, v.Club, FormatDeadline(v.Timestamp)})
			}
		}
	}

	if err := writeRows(f, "Results", results); err != nil {
		return nil, err
	}
	if err := writeRows(f, "Voters", voters); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Internal(err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Internal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Internal(err)
		}
	}
	return nil
}

// Archive appends the current counts of every nominee to the archive,
// tagged with a fresh snapshot id.
func (s *ResultsService) Archive(ctx context.Context) (*ArchiveResult, error) {
	id := uuid.NewString()
	now := s.settings.Now()

	var rows []models.ArchiveRow
	for _, cat := range s.agg.Results() {
		for _, n := range cat.Nominees {
			rows = append(rows, models.ArchiveRow{
				SnapshotID:  id,
				Timestamp:   now,
				Season:      s.store.Season(),
				Category:    cat.Key,
				NomineeID:   n.ID,
				NomineeName: n.Name,
				Votes:       n.Votes,
			})
		}
	}

	if err := s.repo.AppendArchive(ctx, rows); err != nil {
		return nil, errors.Unavailable("results could not be archived", err)
	}
	s.log.Info("Results archived", "snapshot", id, "rows", len(rows))
	return &ArchiveResult{SnapshotID: id, Rows: len(rows)}, nil
}

// ListArchive returns the archived rows of the current season
func (s *ResultsService) ListArchive(ctx context.Context) ([]models.ArchiveRow, error) {
	rows, err := s.repo.ListArchive(ctx, s.store.Season())
	if err != nil {
		return nil, errors.Unavailable("archive could not be read", err)
	}
	return rows, nil
}
