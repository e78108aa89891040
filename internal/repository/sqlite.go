package repository

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/motsvote/internal/models"
)

// Repository is the local sqlite store
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS managers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			club TEXT NOT NULL DEFAULT '',
			active BOOLEAN DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS votes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			season TEXT NOT NULL,
			manager_key TEXT NOT NULL,
			manager_name TEXT NOT NULL,
			manager_club TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			nominee_id TEXT NOT NULL,
			nominee_name TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(season, manager_key, category)
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS archive (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			snapshot_id TEXT NOT NULL,
			archived_at DATETIME NOT NULL,
			season TEXT NOT NULL,
			category TEXT NOT NULL,
			nominee_id TEXT NOT NULL,
			nominee_name TEXT,
			votes INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_season ON votes(season)`,
		`CREATE INDEX IF NOT EXISTS idx_archive_season ON archive(season)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// ==================== Roster Methods ====================

// LoadRoster returns every manager row in insertion order
func (r *Repository) LoadRoster(ctx context.Context) ([]models.Manager, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, club, active FROM managers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var managers []models.Manager
	for rows.Next() {
		var m models.Manager
		if err := rows.Scan(&m.Name, &m.Club, &m.Active); err != nil {
			return nil, err
		}
		managers = append(managers, m)
	}
	return managers, rows.Err()
}

// ReplaceRoster swaps the whole roster in one transaction
func (r *Repository) ReplaceRoster(ctx context.Context, managers []models.Manager) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM managers`); err != nil {
		return err
	}
	for _, m := range managers {
		if _, err := tx.ExecContext(ctx, `INSERT INTO managers (name, club, active) VALUES (?, ?, ?)`, m.Name, m.Club, m.Active); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ==================== Ballot Methods ====================

// UpsertBallot saves or replaces the ballot of a (season, manager, category) slot
func (r *Repository) UpsertBallot(ctx context.Context, row models.BallotRow) error {
	ts := row.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO votes (season, manager_key, manager_name, manager_club, category, nominee_id, nominee_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(season, manager_key, category) DO UPDATE SET
			manager_name = excluded.manager_name,
			manager_club = excluded.manager_club,
			nominee_id = excluded.nominee_id,
			nominee_name = excluded.nominee_name,
			updated_at = excluded.updated_at
	`, row.Season, row.Identity().Key(), row.ManagerName, row.ManagerClub, row.Category, row.NomineeID, row.NomineeName, ts, ts)
	return err
}

// DeleteBallot removes one slot; deleting an empty slot is not an error
func (r *Repository) DeleteBallot(ctx context.Context, season string, identity models.Identity, category string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM votes WHERE season = ? AND manager_key = ? AND category = ?`,
		season, identity.Key(), category)
	return err
}

// ClearBallots removes every ballot of a season
func (r *Repository) ClearBallots(ctx context.Context, season string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM votes WHERE season = ?`, season)
	return err
}

// ListBallots returns the ballots of a season, oldest update first
func (r *Repository) ListBallots(ctx context.Context, season string) ([]models.BallotRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT season, manager_name, manager_club, category, nominee_id, COALESCE(nominee_name, ''), updated_at
		FROM votes
		WHERE season = ?
		ORDER BY updated_at, id
	`, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BallotRow
	for rows.Next() {
		var b models.BallotRow
		if err := rows.Scan(&b.Season, &b.ManagerName, &b.ManagerClub, &b.Category, &b.NomineeID, &b.NomineeName, &b.Timestamp); err != nil {
			return nil, err
		}
		b.Timestamp = b.Timestamp.UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting updates a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// ==================== Archive Methods ====================

// AppendArchive stores the rows of one results snapshot
func (r *Repository) AppendArchive(ctx context.Context, rows []models.ArchiveRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, a := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO archive (snapshot_id, archived_at, season, category, nominee_id, nominee_name, votes)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, a.SnapshotID, a.Timestamp, a.Season, a.Category, a.NomineeID, a.NomineeName, a.Votes)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListArchive returns archived rows of a season in insertion order
func (r *Repository) ListArchive(ctx context.Context, season string) ([]models.ArchiveRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT snapshot_id, archived_at, season, category, nominee_id, COALESCE(nominee_name, ''), votes
		FROM archive
		WHERE season = ?
		ORDER BY id
	`, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ArchiveRow
	for rows.Next() {
		var a models.ArchiveRow
		if err := rows.Scan(&a.SnapshotID, &a.Timestamp, &a.Season, &a.Category, &a.NomineeID, &a.NomineeName, &a.Votes); err != nil {
			return nil, err
		}
		a.Timestamp = a.Timestamp.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
