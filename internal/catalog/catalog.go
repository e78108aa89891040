// Package catalog holds the static data of a voting season: award
// categories with their nominees, the admin allow-list and the roster used
// when the roster source is unavailable.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/abrezinsky/motsvote/internal/models"
)

//go:embed season.yaml
var defaultSeason []byte

// Season is the catalog of one voting season
type Season struct {
	Season         string            `yaml:"season"`
	Deadline       string            `yaml:"deadline"`
	Admins         []string          `yaml:"admins"`
	Categories     []models.Category `yaml:"categories"`
	FallbackRoster []string          `yaml:"fallback_roster"`
}

// Default returns the built-in season catalog
func Default() (*Season, error) {
	return Parse(defaultSeason)
}

// Load reads a season catalog from a YAML file. An empty path returns Default.
func Load(path string) (*Season, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a season catalog
func Parse(data []byte) (*Season, error) {
	var s Season
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Season) validate() error {
	if s.Season == "" {
		return fmt.Errorf("catalog: season is required")
	}
	if len(s.Categories) == 0 {
		return fmt.Errorf("catalog: at least one category is required")
	}
	keys := make(map[string]bool, len(s.Categories))
	for _, c := range s.Categories {
		if c.Key == "" {
			return fmt.Errorf("catalog: category without key")
		}
		if keys[c.Key] {
			return fmt.Errorf("catalog: duplicate category %q", c.Key)
		}
		keys[c.Key] = true

		if len(c.Nominees) == 0 {
			return fmt.Errorf("catalog: category %q has no nominees", c.Key)
		}
		ids := make(map[string]bool, len(c.Nominees))
		for _, n := range c.Nominees {
			if n.ID == "" {
				return fmt.Errorf("catalog: nominee without id in %q", c.Key)
			}
			if ids[n.ID] {
				return fmt.Errorf("catalog: duplicate nominee %q in %q", n.ID, c.Key)
			}
			ids[n.ID] = true
		}
	}
	return nil
}

// Roster returns the fallback roster as active managers with no club
func (s *Season) Roster() []models.Manager {
	out := make([]models.Manager, 0, len(s.FallbackRoster))
	for _, name := range s.FallbackRoster {
		out = append(out, models.Manager{Name: name, Active: true})
	}
	return out
}
