// Package tally folds the ballot set into per-category, per-nominee counts.
package tally

import (
	"fmt"
	"strconv"
	"time"

	"github.com/abrezinsky/motsvote/internal/ballot"
	"github.com/abrezinsky/motsvote/internal/models"
)

// Source is the read side of the ballot store
type Source interface {
	Categories() []models.Category
	Snapshot() []ballot.Ballot
}

// Voter is one entry of a nominee's voter roll
type Voter struct {
	Name      string    `json:"name"`
	Club      string    `json:"club"`
	Display   string    `json:"display"`
	Timestamp time.Time `json:"timestamp"`
}

// NomineeResult is the tally of one nominee
type NomineeResult struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Club       string  `json:"club"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
	Display    string  `json:"display_percentage"`
}

// CategoryResult is the tally of one category, nominees in catalog order
type CategoryResult struct {
	Key      string          `json:"key"`
	Title    string          `json:"title"`
	Total    int             `json:"total"`
	Nominees []NomineeResult `json:"nominees"`
}

// ExportEntry is the value of one nominee in an export snapshot
type ExportEntry struct {
	Votes  int           `json:"votes"`
	Voters []ExportVoter `json:"voters"`
}

// ExportVoter is a voter in an export snapshot
type ExportVoter struct {
	Name      string    `json:"name"`
	Club      string    `json:"club"`
	Timestamp time.Time `json:"timestamp"`
}

// Export is {category -> {nominee display name -> entry}}
type Export map[string]map[string]ExportEntry

// Aggregator computes tallies from the current ballot set.
// It holds no state of its own; every call reads a fresh snapshot.
type Aggregator struct {
	src Source
}

// New creates an Aggregator over src
func New(src Source) *Aggregator {
	return &Aggregator{src: src}
}

func (a *Aggregator) ballotsIn(categoryKey string) []ballot.Ballot {
	var out []ballot.Ballot
	for _, b := range a.src.Snapshot() {
		if b.Category == categoryKey {
			out = append(out, b)
		}
	}
	return out
}

// CountFor returns the number of identities whose ballot in the category
// is the nominee.
func (a *Aggregator) CountFor(categoryKey, nomineeID string) int {
	n := 0
	for _, b := range a.ballotsIn(categoryKey) {
		if b.NomineeID == nomineeID {
			n++
		}
	}
	return n
}

// TotalFor returns the number of identities with any ballot in the category
func (a *Aggregator) TotalFor(categoryKey string) int {
	return len(a.ballotsIn(categoryKey))
}

// Percentage returns 100*count/total, or 0 when the category has no ballots.
func (a *Aggregator) Percentage(categoryKey, nomineeID string) float64 {
	return percentage(a.CountFor(categoryKey, nomineeID), a.TotalFor(categoryKey))
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(count) / float64(total)
}

// FormatPercentage renders p with one decimal place
func FormatPercentage(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64)
}

// VotersFor returns the voters of a nominee ordered by their most recent vote.
func (a *Aggregator) VotersFor(categoryKey, nomineeID string) []Voter {
	voters := []Voter{}
	for _, b := range a.ballotsIn(categoryKey) {
		if b.NomineeID != nomineeID {
			continue
		}
		voters = append(voters, Voter{
			Name:      b.Identity.Name,
			Club:      b.Identity.Club,
			Display:   b.Identity.Display(),
			Timestamp: b.Timestamp,
		})
	}
	return voters
}

// Results returns the tally of every category from a single snapshot
func (a *Aggregator) Results() []CategoryResult {
	counts := make(map[string]map[string]int)
	totals := make(map[string]int)
	for _, b := range a.src.Snapshot() {
		if counts[b.Category] == nil {
			counts[b.Category] = make(map[string]int)
		}
		counts[b.Category][b.NomineeID]++
		totals[b.Category]++
	}

	categories := a.src.Categories()
	results := make([]CategoryResult, 0, len(categories))
	for _, cat := range categories {
		cr := CategoryResult{
			Key:      cat.Key,
			Title:    cat.Title,
			Total:    totals[cat.Key],
			Nominees: make([]NomineeResult, 0, len(cat.Nominees)),
		}
		for _, n := range cat.Nominees {
			votes := counts[cat.Key][n.ID]
			p := percentage(votes, cr.Total)
			cr.Nominees = append(cr.Nominees, NomineeResult{
				ID:         n.ID,
				Name:       n.Name,
				Club:       n.Club,
				Votes:      votes,
				Percentage: p,
				Display:    FormatPercentage(p),
			})
		}
		results = append(results, cr)
	}
	return results
}

// ExportSnapshot returns the full denormalized dump of the ballot set.
// Every category and nominee of the catalog is present, voters ordered by
// most recent vote. Nominees sharing a display name within a category are
// keyed as "Name (id)".
func (a *Aggregator) ExportSnapshot() Export {
	snap := a.src.Snapshot()
	out := make(Export)

	for _, cat := range a.src.Categories() {
		names := displayNames(cat)
		entries := make(map[string]ExportEntry, len(cat.Nominees))
		for _, n := range cat.Nominees {
			entries[names[n.ID]] = ExportEntry{Voters: []ExportVoter{}}
		}
		for _, b := range snap {
			if b.Category != cat.Key {
				continue
			}
			name, ok := names[b.NomineeID]
			if !ok {
				continue
			}
			e := entries[name]
			e.Votes++
			e.Voters = append(e.Voters, ExportVoter{
				Name:      b.Identity.Name,
				Club:      b.Identity.Club,
				Timestamp: b.Timestamp,
			})
			entries[name] = e
		}
		out[cat.Key] = entries
	}
	return out
}

func displayNames(cat models.Category) map[string]string {
	seen := make(map[string]int, len(cat.Nominees))
	for _, n := range cat.Nominees {
		seen[n.Name]++
	}
	names := make(map[string]string, len(cat.Nominees))
	for _, n := range cat.Nominees {
		if seen[n.Name] > 1 {
			names[n.ID] = fmt.Sprintf("%s (%s)", n.Name, n.ID)
		} else {
			names[n.ID] = n.Name
		}
	}
	return names
}
