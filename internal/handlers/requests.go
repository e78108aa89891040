package handlers

import "github.com/abrezinsky/motsvote/internal/models"

// LoginRequest represents a manager login
type LoginRequest struct {
	Name string `json:"name"`
	Club string `json:"club"`
}

// VoteSubmitRequest represents a vote submission
type VoteSubmitRequest struct {
	Category  string `json:"category"`
	NomineeID string `json:"nominee_id"`
}

// RemoveVoteRequest identifies the ballot an admin removes
type RemoveVoteRequest struct {
	Name     string `json:"name"`
	Club     string `json:"club"`
	Category string `json:"category"`
}

// ResetVotesRequest represents a season reset
type ResetVotesRequest struct {
	Season  string `json:"season"`
	Confirm bool   `json:"confirm"`
}

// DeadlineRequest represents a deadline update
type DeadlineRequest struct {
	Deadline string `json:"deadline"`
}

// RosterImportRequest replaces the stored roster
type RosterImportRequest struct {
	Managers []models.Manager `json:"managers"`
}

// HTTPLoggingRequest toggles request logging
type HTTPLoggingRequest struct {
	Enabled bool `json:"enabled"`
}

// LogLevelRequest changes the log level
type LogLevelRequest struct {
	Level string `json:"level"`
}
