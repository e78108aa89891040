// Package roster resolves a typed manager name, and optionally a club,
// against the active roster of a season.
package roster

import (
	"sort"

	"github.com/abrezinsky/motsvote/internal/models"
)

// Outcome is the result kind of a resolution
type Outcome int

const (
	NotFound Outcome = iota
	Unique
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case Unique:
		return "unique"
	case Ambiguous:
		return "ambiguous"
	default:
		return "not_found"
	}
}

// Resolution is the tagged result of Resolve.
// Manager is set only for Unique; Candidates only for Ambiguous.
type Resolution struct {
	Outcome    Outcome
	Manager    models.Manager
	Candidates []models.Manager
}

// Clubs returns the clubs of the ambiguous candidates in roster order
func (r Resolution) Clubs() []string {
	clubs := make([]string, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		clubs = append(clubs, c.Club)
	}
	return clubs
}

// Roster is an immutable snapshot of the active managers.
// Safe for concurrent use.
type Roster struct {
	managers []models.Manager
	byName   map[string][]int
}

// New builds a roster from raw records. Inactive and nameless records are
// dropped, display strings have whitespace collapsed, and records that
// normalize to the same (name, club) key keep only the first occurrence.
func New(records []models.Manager) *Roster {
	r := &Roster{byName: make(map[string][]int)}
	seen := make(map[string]bool, len(records))

	for _, rec := range records {
		if !rec.Active {
			continue
		}
		m := models.Manager{
			Name:   models.CollapseSpaces(rec.Name),
			Club:   models.CollapseSpaces(rec.Club),
			Active: true,
		}
		if m.Name == "" {
			continue
		}
		key := m.Identity().Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		nameKey := models.Normalize(m.Name)
		r.byName[nameKey] = append(r.byName[nameKey], len(r.managers))
		r.managers = append(r.managers, m)
	}
	return r
}

// Len returns the number of active managers
func (r *Roster) Len() int {
	return len(r.managers)
}

// Managers returns a copy of the roster in load order
func (r *Roster) Managers() []models.Manager {
	out := make([]models.Manager, len(r.managers))
	copy(out, r.managers)
	return out
}

// Clubs returns the distinct non-empty clubs, sorted
func (r *Roster) Clubs() []string {
	seen := make(map[string]bool)
	var clubs []string
	for _, m := range r.managers {
		if m.Club == "" || seen[models.Normalize(m.Club)] {
			continue
		}
		seen[models.Normalize(m.Club)] = true
		clubs = append(clubs, m.Club)
	}
	sort.Strings(clubs)
	return clubs
}

// FindMatchesByName returns the active managers whose normalized name
// equals the normalized input.
func (r *Roster) FindMatchesByName(name string) []models.Manager {
	idx := r.byName[models.Normalize(name)]
	out := make([]models.Manager, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.managers[i])
	}
	return out
}

// Resolve decides the voter identity for a typed name and optional club.
// A single name match wins regardless of club. With several matches an
// empty club is Ambiguous, and a club that matches none of them is NotFound.
func (r *Roster) Resolve(name, club string) Resolution {
	matches := r.FindMatchesByName(name)

	switch len(matches) {
	case 0:
		return Resolution{Outcome: NotFound}
	case 1:
		return Resolution{Outcome: Unique, Manager: matches[0]}
	}

	wantClub := models.Normalize(club)
	if wantClub == "" {
		return Resolution{Outcome: Ambiguous, Candidates: matches}
	}
	for _, m := range matches {
		if models.Normalize(m.Club) == wantClub {
			return Resolution{Outcome: Unique, Manager: m}
		}
	}
	return Resolution{Outcome: NotFound}
}
