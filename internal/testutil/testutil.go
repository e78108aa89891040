package testutil

import (
	"testing"

	"github.com/abrezinsky/motsvote/internal/logger"
	"github.com/abrezinsky/motsvote/internal/models"
	"github.com/abrezinsky/motsvote/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

// NewTestLogger returns a logger that only prints errors
func NewTestLogger() logger.Logger {
	return logger.NewWithLevel(logger.ParseLevel("error"))
}

// Roster is the roster used across package tests: a duplicated name
// with two clubs, a unique manager, an admin and an inactive row.
func Roster() []models.Manager {
	return []models.Manager{
		{Name: "Jay Jones", Club: "AS Monaco", Active: true},
		{Name: "Jay Jones", Club: "FC Schalke 04", Active: true},
		{Name: "Andre Libras", Club: "Hellas Verona", Active: true},
		{Name: "David Marsden", Club: "Hamburger SV", Active: true},
		{Name: "Retired Rick", Club: "Everton", Active: false},
	}
}

// Categories is a two-category catalog used across package tests
func Categories() []models.Category {
	return []models.Category{
		{Key: "overall", Title: "Overall Manager of the Season", Nominees: []models.Nominee{
			{ID: "andre_libras", Name: "André Libras-Boas", Club: "Hellas Verona"},
			{ID: "david_marsden", Name: "David Marsden", Club: "Hamburger SV"},
		}},
		{Key: "division1", Title: "Division 1 Manager of the Season", Nominees: []models.Nominee{
			{ID: "adam_d1", Name: "Adam", Club: "Barcelona"},
			{ID: "bojan_d1", Name: "Bojan H", Club: "Bayern München"},
		}},
	}
}
