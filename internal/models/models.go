package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Manager is one row of the season roster
type Manager struct {
	Name   string `json:"name" yaml:"name"`
	Club   string `json:"club" yaml:"club"`
	Active bool   `json:"active" yaml:"active"`
}

// Identity returns the voter identity of the manager
func (m Manager) Identity() Identity {
	return Identity{Name: m.Name, Club: m.Club}
}

// Identity is a resolved voter: the (name, club) pair of a roster record.
// Club is empty when the roster has no club on file.
type Identity struct {
	Name string `json:"name"`
	Club string `json:"club"`
}

// keySep never survives Normalize, which collapses every whitespace run
// to a single space.
const keySep = "\t"

// Key returns the canonical ballot key for the identity.
// Two identities with the same key are the same voter.
func (i Identity) Key() string {
	return Normalize(i.Name) + keySep + Normalize(i.Club)
}

// Display returns "Name (Club)", or just the name when no club is on file.
func (i Identity) Display() string {
	if strings.TrimSpace(i.Club) == "" {
		return i.Name
	}
	return i.Name + " (" + i.Club + ")"
}

// IsZero reports whether the identity carries no name
func (i Identity) IsZero() bool {
	return Normalize(i.Name) == ""
}

var folder = cases.Fold()

// Normalize trims, collapses internal whitespace runs to a single space,
// composes to NFC and case-folds. Used for every roster comparison.
func Normalize(s string) string {
	collapsed := CollapseSpaces(s)
	if collapsed == "" {
		return ""
	}
	return folder.String(norm.NFC.String(collapsed))
}

// CollapseSpaces trims s and collapses whitespace runs, keeping case.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Voter is a logged-in manager
type Voter struct {
	Identity Identity `json:"identity"`
	IsAdmin  bool     `json:"is_admin"`
}

// Nominee is a candidate within a category
type Nominee struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Club        string `json:"club" yaml:"club"`
	Achievement string `json:"achievement,omitempty" yaml:"achievement"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Category represents an award category
type Category struct {
	Key      string    `json:"key" yaml:"key"`
	Title    string    `json:"title" yaml:"title"`
	Nominees []Nominee `json:"nominees" yaml:"nominees"`
}

// Nominee returns the nominee with the given id
func (c Category) Nominee(id string) (Nominee, bool) {
	for _, n := range c.Nominees {
		if n.ID == id {
			return n, true
		}
	}
	return Nominee{}, false
}

// BallotRow is the persisted form of a ballot, one row per
// (season, manager, category) in the votes tab or table.
type BallotRow struct {
	Timestamp   time.Time `json:"timestamp"`
	Season      string    `json:"season"`
	ManagerName string    `json:"manager_name"`
	ManagerClub string    `json:"manager_club"`
	Category    string    `json:"category"`
	NomineeID   string    `json:"nominee_id"`
	NomineeName string    `json:"nominee_name"`
}

// Identity returns the voter identity of the row
func (r BallotRow) Identity() Identity {
	return Identity{Name: r.ManagerName, Club: r.ManagerClub}
}

// ArchiveRow is one (category, nominee) line of an archived results snapshot
type ArchiveRow struct {
	SnapshotID  string    `json:"snapshot_id"`
	Timestamp   time.Time `json:"timestamp"`
	Season      string    `json:"season"`
	Category    string    `json:"category"`
	NomineeID   string    `json:"nominee_id"`
	NomineeName string    `json:"nominee_name"`
	Votes       int       `json:"votes"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
