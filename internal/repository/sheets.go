package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/abrezinsky/motsvote/internal/logger"
	"github.com/abrezinsky/motsvote/internal/models"
	"github.com/abrezinsky/motsvote/pkg/sheets"
)

// Tab names and headers of the spreadsheet layout
const (
	DefaultManagersTab = "Managers"
	ConfigTab          = "Config"
	ArchiveTab         = "Archive"
	votesTabPrefix     = "Votes_"
)

var (
	managersHeader = sheets.Row{"Club", "Manager", "Active"}
	votesHeader    = sheets.Row{"timestamp", "season", "managerName", "managerClub", "category", "nomineeId", "nomineeName"}
	configHeader   = sheets.Row{"Key", "Value"}
	archiveHeader  = sheets.Row{"Timestamp", "Season", "Category", "NomineeId", "NomineeName", "Votes", "SnapshotId"}
)

// VotesTab returns the tab holding a season's ballots
func VotesTab(season string) string {
	return votesTabPrefix + strings.Join(strings.Fields(season), "")
}

// SheetsRepository stores everything in one spreadsheet
type SheetsRepository struct {
	client      sheets.Client
	log         logger.Logger
	managersTab string

	mu sync.Mutex // read-modify-write of a tab
}

// NewSheets creates a repository over a spreadsheet client
func NewSheets(client sheets.Client, log logger.Logger, managersTab string) *SheetsRepository {
	if managersTab == "" {
		managersTab = DefaultManagersTab
	}
	return &SheetsRepository{client: client, log: log, managersTab: managersTab}
}

// Ping checks that the spreadsheet is reachable
func (r *SheetsRepository) Ping(ctx context.Context) error {
	_, err := r.client.SheetTitles(ctx)
	return err
}

// Close is a no-op; the HTTP client needs no teardown
func (r *SheetsRepository) Close() error {
	return nil
}

// ==================== Roster Methods ====================

// LoadRoster reads the managers tab. Columns are located by header
// ("club", "manager" or "name", "active") so their order does not matter.
func (r *SheetsRepository) LoadRoster(ctx context.Context) ([]models.Manager, error) {
	rows, err := r.client.GetValues(ctx, sheets.Range(r.managersTab, "A:Z"))
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}

	clubIdx, nameIdx, activeIdx := -1, -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "club":
			clubIdx = i
		case "manager", "name":
			if nameIdx < 0 {
				nameIdx = i
			}
		case "active":
			activeIdx = i
		}
	}
	if nameIdx < 0 {
		return nil, fmt.Errorf("%s tab has no manager column", r.managersTab)
	}

	managers := make([]models.Manager, 0, len(rows)-1)
	for _, row := range rows[1:] {
		managers = append(managers, models.Manager{
			Name:   cell(row, nameIdx),
			Club:   cell(row, clubIdx),
			Active: parseActive(cell(row, activeIdx)),
		})
	}
	return managers, nil
}

// ReplaceRoster rewrites the managers tab
func (r *SheetsRepository) ReplaceRoster(ctx context.Context, managers []models.Manager) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := []sheets.Row{managersHeader}
	for _, m := range managers {
		rows = append(rows, sheets.Row{m.Club, m.Name, strconv.FormatBool(m.Active)})
	}
	return r.rewrite(ctx, r.managersTab, rows)
}

// ==================== Ballot Methods ====================

// UpsertBallot updates the row of the slot in place, or appends one
func (r *SheetsRepository) UpsertBallot(ctx context.Context, row models.BallotRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tab := VotesTab(row.Season)
	if _, err := sheets.EnsureSheet(ctx, r.client, tab, votesHeader); err != nil {
		return err
	}
	rows, err := r.client.GetValues(ctx, sheets.Range(tab, "A:G"))
	if err != nil {
		return err
	}

	key := row.Identity().Key()
	values := ballotToRow(row)
	for i := len(rows) - 1; i >= 1; i-- {
		existing := rowToBallot(rows[i])
		if existing.Identity().Key() == key && existing.Category == row.Category {
			n := i + 1
			return r.client.UpdateValues(ctx, sheets.Range(tab, fmt.Sprintf("A%d:G%d", n, n)), []sheets.Row{values})
		}
	}
	return r.client.AppendValues(ctx, sheets.Range(tab, "A:G"), []sheets.Row{values})
}

// DeleteBallot removes every row of the slot
func (r *SheetsRepository) DeleteBallot(ctx context.Context, season string, identity models.Identity, category string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tab := VotesTab(season)
	rows, err := r.client.GetValues(ctx, sheets.Range(tab, "A:G"))
	if err != nil {
		return err
	}

	key := identity.Key()
	kept := []sheets.Row{votesHeader}
	removed := 0
	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		b := rowToBallot(row)
		if b.Identity().Key() == key && b.Category == category {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	if removed == 0 {
		return nil
	}
	return r.rewrite(ctx, tab, kept)
}

// ClearBallots empties the season tab and rewrites its header
func (r *SheetsRepository) ClearBallots(ctx context.Context, season string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tab := VotesTab(season)
	if _, err := sheets.EnsureSheet(ctx, r.client, tab, nil); err != nil {
		return err
	}
	return r.rewrite(ctx, tab, []sheets.Row{votesHeader})
}

// ListBallots returns every row of the season tab. The tab may carry
// several rows for one slot; callers keep the latest.
func (r *SheetsRepository) ListBallots(ctx context.Context, season string) ([]models.BallotRow, error) {
	tab := VotesTab(season)
	titles, err := r.client.SheetTitles(ctx)
	if err != nil {
		return nil, err
	}
	if !contains(titles, tab) {
		return nil, nil
	}

	rows, err := r.client.GetValues(ctx, sheets.Range(tab, "A:G"))
	if err != nil {
		return nil, err
	}
	var out []models.BallotRow
	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		b := rowToBallot(row)
		if b.Season == "" {
			b.Season = season
		}
		out = append(out, b)
	}
	return out, nil
}

// ==================== Settings Methods ====================

// GetSetting reads a key from the Config tab
func (r *SheetsRepository) GetSetting(ctx context.Context, key string) (string, error) {
	titles, err := r.client.SheetTitles(ctx)
	if err != nil {
		return "", err
	}
	if !contains(titles, ConfigTab) {
		return "", ErrNotFound
	}
	rows, err := r.client.GetValues(ctx, sheets.Range(ConfigTab, "A:B"))
	if err != nil {
		return "", err
	}
	for _, row := range rows {
		if cell(row, 0) == key {
			return cell(row, 1), nil
		}
	}
	return "", ErrNotFound
}

// SetSetting writes a key to the Config tab, in place when present
func (r *SheetsRepository) SetSetting(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := sheets.EnsureSheet(ctx, r.client, ConfigTab, configHeader); err != nil {
		return err
	}
	rows, err := r.client.GetValues(ctx, sheets.Range(ConfigTab, "A:B"))
	if err != nil {
		return err
	}
	for i, row := range rows {
		if cell(row, 0) == key {
			n := i + 1
			return r.client.UpdateValues(ctx, sheets.Range(ConfigTab, fmt.Sprintf("A%d:B%d", n, n)), []sheets.Row{{key, value}})
		}
	}
	return r.client.AppendValues(ctx, sheets.Range(ConfigTab, "A:B"), []sheets.Row{{key, value}})
}

// ==================== Archive Methods ====================

// AppendArchive appends snapshot rows; the header is written once
func (r *SheetsRepository) AppendArchive(ctx context.Context, rows []models.ArchiveRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := sheets.EnsureSheet(ctx, r.client, ArchiveTab, archiveHeader); err != nil {
		return err
	}
	values := make([]sheets.Row, 0, len(rows))
	for _, a := range rows {
		values = append(values, sheets.Row{
			a.Timestamp.UTC().Format(time.RFC3339),
			a.Season,
			a.Category,
			a.NomineeID,
			a.NomineeName,
			strconv.Itoa(a.Votes),
			a.SnapshotID,
		})
	}
	return r.client.AppendValues(ctx, sheets.Range(ArchiveTab, "A:G"), values)
}

// ListArchive returns archived rows of a season
func (r *SheetsRepository) ListArchive(ctx context.Context, season string) ([]models.ArchiveRow, error) {
	titles, err := r.client.SheetTitles(ctx)
	if err != nil {
		return nil, err
	}
	if !contains(titles, ArchiveTab) {
		return nil, nil
	}
	rows, err := r.client.GetValues(ctx, sheets.Range(ArchiveTab, "A:G"))
	if err != nil {
		return nil, err
	}

	var out []models.ArchiveRow
	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		if cell(row, 1) != season {
			continue
		}
		votes, _ := strconv.Atoi(cell(row, 5))
		out = append(out, models.ArchiveRow{
			Timestamp:   parseTime(cell(row, 0)),
			Season:      cell(row, 1),
			Category:    cell(row, 2),
			NomineeID:   cell(row, 3),
			NomineeName: cell(row, 4),
			Votes:       votes,
			SnapshotID:  cell(row, 6),
		})
	}
	return out, nil
}

// rewriteWidth is the number of columns rewrite owns (A:Z)
const rewriteWidth = 26

// rewrite replaces a tab's content with rows. The rows are written over the
// old content first and only the leftover rows below are cleared after, so a
// failed call never leaves the tab with fewer rows than it had.
func (r *SheetsRepository) rewrite(ctx context.Context, tab string, rows []sheets.Row) error {
	padded := make([]sheets.Row, len(rows))
	for i, row := range rows {
		p := make(sheets.Row, rewriteWidth)
		copy(p, row)
		padded[i] = p
	}
	if err := r.client.UpdateValues(ctx, sheets.Range(tab, "A1"), padded); err != nil {
		return err
	}
	return r.client.ClearValues(ctx, sheets.Range(tab, fmt.Sprintf("A%d:Z", len(rows)+1)))
}

func ballotToRow(b models.BallotRow) sheets.Row {
	return sheets.Row{
		b.Timestamp.UTC().Format(time.RFC3339Nano),
		b.Season,
		b.ManagerName,
		b.ManagerClub,
		b.Category,
		b.NomineeID,
		b.NomineeName,
	}
}

func rowToBallot(row sheets.Row) models.BallotRow {
	return models.BallotRow{
		Timestamp:   parseTime(cell(row, 0)),
		Season:      cell(row, 1),
		ManagerName: cell(row, 2),
		ManagerClub: cell(row, 3),
		Category:    cell(row, 4),
		NomineeID:   cell(row, 5),
		NomineeName: cell(row, 6),
	}
}

func isHeader(row sheets.Row) bool {
	return strings.EqualFold(cell(row, 0), "timestamp")
}

func cell(row sheets.Row, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseActive(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
