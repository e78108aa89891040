package handlers

import (
	"github.com/abrezinsky/motsvote/internal/models"
	"github.com/abrezinsky/motsvote/internal/tally"
)

// SessionResponse describes the logged-in manager
type SessionResponse struct {
	Name    string `json:"name"`
	Club    string `json:"club"`
	Display string `json:"display"`
	IsAdmin bool   `json:"is_admin"`
}

func sessionResponse(v *models.Voter) SessionResponse {
	return SessionResponse{
		Name:    v.Identity.Name,
		Club:    v.Identity.Club,
		Display: v.Identity.Display(),
		IsAdmin: v.IsAdmin,
	}
}

// CategoriesResponse lists the season's categories
type CategoriesResponse struct {
	Season     string            `json:"season"`
	Categories []models.Category `json:"categories"`
}

// MyVotesResponse maps category keys to the chosen nominee id
type MyVotesResponse struct {
	Votes map[string]string `json:"votes"`
}

// VotersResponse lists a nominee's voters
type VotersResponse struct {
	Category string        `json:"category"`
	Nominee  string        `json:"nominee"`
	Voters   []tally.Voter `json:"voters"`
}

// RemoveVoteResponse reports an admin removal
type RemoveVoteResponse struct {
	Removed bool `json:"removed"`
}

// ArchiveResponse lists archived rows
type ArchiveResponse struct {
	Rows []models.ArchiveRow `json:"rows"`
}

// ShareResponse carries the public voting link
type ShareResponse struct {
	URL string `json:"url"`
}

// LogSettingsResponse reports the logging configuration
type LogSettingsResponse struct {
	Level       string `json:"level"`
	HTTPLogging bool   `json:"http_logging"`
}
