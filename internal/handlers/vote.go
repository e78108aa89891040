package handlers

import (
	"net/http"

	"github.com/abrezinsky/motsvote/internal/auth"
)

// handleGetCategories returns the season's categories and nominees
func (h *Handlers) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	respondOK(w, CategoriesResponse{
		Season:     h.Voting.Season(),
		Categories: h.Voting.Categories(),
	})
}

// handleGetDeadline returns the voting window
func (h *Handlers) handleGetDeadline(w http.ResponseWriter, r *http.Request) {
	status, err := h.Settings.Status(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, status)
}

// handleSubmitVote handles vote submissions
func (h *Handlers) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	var req VoteSubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.Voting.CastVote(r.Context(), auth.VoterFrom(r.Context()), req.Category, req.NomineeID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondOK(w, result)
}

// handleGetMyVotes returns the logged-in manager's choices
func (h *Handlers) handleGetMyVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := h.Voting.MyVotes(r.Context(), auth.VoterFrom(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, MyVotesResponse{Votes: votes})
}

// handleGetResults returns the tally once voting has closed, or to admins
func (h *Handlers) handleGetResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.Results.GetResults(r.Context(), auth.VoterFrom(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, results)
}
