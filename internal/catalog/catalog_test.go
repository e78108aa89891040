package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abrezinsky/motsvote/internal/roster"
)

func TestDefault(t *testing.T) {
	s, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}

	if s.Season != "S25" {
		t.Errorf("expected season S25, got %q", s.Season)
	}
	if s.Deadline != "2025-09-15T23:59:59Z" {
		t.Errorf("unexpected deadline %q", s.Deadline)
	}
	if len(s.Categories) != 7 {
		t.Errorf("expected 7 categories, got %d", len(s.Categories))
	}
	if s.Categories[0].Key != "overall" {
		t.Errorf("expected overall first, got %q", s.Categories[0].Key)
	}
	if _, ok := s.Categories[0].Nominee("andre_libras"); !ok {
		t.Error("expected andre_libras in overall")
	}
	if len(s.Admins) != 2 {
		t.Errorf("expected 2 admins, got %v", s.Admins)
	}
}

func TestDefault_FallbackRosterDeduplicates(t *testing.T) {
	s, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}

	r := roster.New(s.Roster())
	if r.Len() >= len(s.FallbackRoster) {
		t.Errorf("expected case-insensitive duplicates to collapse, got %d of %d", r.Len(), len(s.FallbackRoster))
	}
	if res := r.Resolve("JAY JONES", ""); res.Outcome != roster.Unique {
		t.Errorf("expected unique Jay Jones in fallback roster, got %v", res.Outcome)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "season: [", "parse catalog"},
		{"no season", "categories: []", "season is required"},
		{"no categories", "season: S26", "at least one category"},
		{"duplicate category", `
season: S26
categories:
  - {key: overall, nominees: [{id: a}]}
  - {key: overall, nominees: [{id: b}]}`, "duplicate category"},
		{"duplicate nominee", `
season: S26
categories:
  - {key: overall, nominees: [{id: a}, {id: a}]}`, "duplicate nominee"},
		{"empty category", `
season: S26
categories:
  - {key: overall}`, "has no nominees"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "season.yaml")
	data := `
season: S26
admins: [Someone]
categories:
  - key: overall
    title: Overall
    nominees:
      - {id: x, name: X}
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Season != "S26" || len(s.Categories) != 1 {
		t.Errorf("unexpected catalog %+v", s)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
