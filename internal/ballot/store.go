// Package ballot owns the in-memory ballot set of one season: at most one
// nominee per (manager identity, category) slot.
package ballot

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/abrezinsky/motsvote/internal/errors"
	"github.com/abrezinsky/motsvote/internal/models"
)

// Errors returned by the store
var (
	ErrUnresolvedIdentity = errors.InvalidInput("voter identity is not resolved")
	ErrUnknownCategory    = errors.InvalidInput("unknown category")
	ErrInvalidNominee     = errors.InvalidInput("nominee does not belong to category")
	ErrUnauthorized       = errors.Unauthorized("admin privileges required")
	ErrUnknownSeason      = errors.InvalidInput("reset scope does not match the current season")
)

// Persister is the durable side of the store. Every mutation is written
// here first; the projection only changes once the write succeeds.
type Persister interface {
	UpsertBallot(ctx context.Context, row models.BallotRow) error
	DeleteBallot(ctx context.Context, season string, identity models.Identity, category string) error
	ClearBallots(ctx context.Context, season string) error
}

// Ballot is one occupied slot
type Ballot struct {
	Identity  models.Identity `json:"identity"`
	Category  string          `json:"category"`
	NomineeID string          `json:"nominee_id"`
	Timestamp time.Time       `json:"timestamp"`

	seq uint64
}

// Seq orders ballots by their most recent (re-)vote
func (b Ballot) Seq() uint64 {
	return b.seq
}

// CastResult describes what a cast did to the slot
type CastResult struct {
	Replaced bool   // slot held a different nominee before
	Refresh  bool   // slot already held this nominee; only the timestamp moved
	Previous string // nominee id held before, if any
}

type slotKey struct {
	identity string
	category string
}

// Store is the ballot set of one season.
type Store struct {
	season     string
	categories []models.Category
	byKey      map[string]models.Category
	persist    Persister

	writeMu sync.Mutex // serializes persist+project

	mu    sync.RWMutex
	slots map[slotKey]Ballot
	seq   uint64
}

// NewStore creates an empty store for season over the given categories
func NewStore(season string, categories []models.Category, persist Persister) *Store {
	byKey := make(map[string]models.Category, len(categories))
	for _, c := range categories {
		byKey[c.Key] = c
	}
	return &Store{
		season:     season,
		categories: categories,
		byKey:      byKey,
		persist:    persist,
		slots:      make(map[slotKey]Ballot),
	}
}

// Season returns the season the store holds ballots for
func (s *Store) Season() string {
	return s.season
}

// Categories returns the season categories in display order
func (s *Store) Categories() []models.Category {
	return s.categories
}

// Category looks up a category by key
func (s *Store) Category(key string) (models.Category, bool) {
	c, ok := s.byKey[key]
	return c, ok
}

// Validate checks that nomineeID belongs to categoryKey
func (s *Store) Validate(categoryKey, nomineeID string) (models.Category, models.Nominee, error) {
	cat, ok := s.byKey[categoryKey]
	if !ok {
		return models.Category{}, models.Nominee{}, ErrUnknownCategory
	}
	nominee, ok := cat.Nominee(nomineeID)
	if !ok {
		return models.Category{}, models.Nominee{}, ErrInvalidNominee
	}
	return cat, nominee, nil
}

// CastVote records the identity's choice in a category, replacing any
// earlier choice in the same slot.
func (s *Store) CastVote(ctx context.Context, identity models.Identity, categoryKey, nomineeID string, ts time.Time) (CastResult, error) {
	if identity.IsZero() {
		return CastResult{}, ErrUnresolvedIdentity
	}
	_, nominee, err := s.Validate(categoryKey, nomineeID)
	if err != nil {
		return CastResult{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	row := models.BallotRow{
		Timestamp:   ts.UTC(),
		Season:      s.season,
		ManagerName: identity.Name,
		ManagerClub: identity.Club,
		Category:    categoryKey,
		NomineeID:   nominee.ID,
		NomineeName: nominee.Name,
	}
	if err := s.persist.UpsertBallot(ctx, row); err != nil {
		return CastResult{}, errors.Unavailable("ballot could not be recorded", err)
	}

	key := slotKey{identity: identity.Key(), category: categoryKey}

	s.mu.Lock()
	defer s.mu.Unlock()

	var result CastResult
	if prev, ok := s.slots[key]; ok {
		result.Previous = prev.NomineeID
		result.Refresh = prev.NomineeID == nomineeID
		result.Replaced = !result.Refresh
	}
	s.seq++
	s.slots[key] = Ballot{
		Identity:  identity,
		Category:  categoryKey,
		NomineeID: nomineeID,
		Timestamp: row.Timestamp,
		seq:       s.seq,
	}
	return result, nil
}

// RemoveVote deletes the ballot in the slot. Absent slots are a no-op.
// Returns whether a ballot was removed.
func (s *Store) RemoveVote(ctx context.Context, isAdmin bool, identity models.Identity, categoryKey string) (bool, error) {
	if !isAdmin {
		return false, ErrUnauthorized
	}
	if _, ok := s.byKey[categoryKey]; !ok {
		return false, ErrUnknownCategory
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	key := slotKey{identity: identity.Key(), category: categoryKey}
	s.mu.RLock()
	_, present := s.slots[key]
	s.mu.RUnlock()
	if !present {
		return false, nil
	}

	if err := s.persist.DeleteBallot(ctx, s.season, identity, categoryKey); err != nil {
		return false, errors.Unavailable("ballot could not be removed", err)
	}

	s.mu.Lock()
	delete(s.slots, key)
	s.mu.Unlock()
	return true, nil
}

// ResetAll clears every ballot of the season named by scope.
// Returns the number of ballots cleared.
func (s *Store) ResetAll(ctx context.Context, isAdmin bool, scope string) (int, error) {
	if !isAdmin {
		return 0, ErrUnauthorized
	}
	if scope != s.season {
		return 0, ErrUnknownSeason
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.persist.ClearBallots(ctx, s.season); err != nil {
		return 0, errors.Unavailable("ballots could not be cleared", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.slots)
	s.slots = make(map[slotKey]Ballot)
	return n, nil
}

// Load replaces the projection with persisted rows. Rows of other seasons,
// unknown categories or unknown nominees are skipped. When several rows
// share a slot the latest timestamp wins. Returns the number of rows skipped.
func (s *Store) Load(rows []models.BallotRow) int {
	sorted := make([]models.BallotRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots = make(map[slotKey]Ballot, len(sorted))
	skipped := 0
	for _, row := range sorted {
		if row.Season != "" && row.Season != s.season {
			skipped++
			continue
		}
		identity := row.Identity()
		if identity.IsZero() {
			skipped++
			continue
		}
		if _, _, err := s.Validate(row.Category, row.NomineeID); err != nil {
			skipped++
			continue
		}
		s.seq++
		s.slots[slotKey{identity: identity.Key(), category: row.Category}] = Ballot{
			Identity:  identity,
			Category:  row.Category,
			NomineeID: row.NomineeID,
			Timestamp: row.Timestamp.UTC(),
			seq:       s.seq,
		}
	}
	return skipped
}

// Lookup returns the ballot in a slot
func (s *Store) Lookup(identity models.Identity, categoryKey string) (Ballot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.slots[slotKey{identity: identity.Key(), category: categoryKey}]
	return b, ok
}

// BallotsOf returns the identity's ballots keyed by category
func (s *Store) BallotsOf(identity models.Identity) map[string]Ballot {
	key := identity.Key()
	out := make(map[string]Ballot)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, b := range s.slots {
		if k.identity == key {
			out[k.category] = b
		}
	}
	return out
}

// Snapshot returns every ballot ordered by most recent (re-)vote
func (s *Store) Snapshot() []Ballot {
	s.mu.RLock()
	out := make([]Ballot, 0, len(s.slots))
	for _, b := range s.slots {
		out = append(out, b)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Len returns the number of occupied slots
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}
