package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/abrezinsky/motsvote/internal/auth"
	"github.com/abrezinsky/motsvote/internal/logger"
	"github.com/abrezinsky/motsvote/internal/models"
)

// ==================== Voting Window ====================

func (h *Handlers) handleSetDeadline(w http.ResponseWriter, r *http.Request) {
	if !h.Auth.ValidAdminToken(r.Header.Get(auth.AdminTokenHeader)) {
		h.respondError(w, r, ErrInvalidAdminToken)
		return
	}

	var req DeadlineRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	voter := auth.VoterFrom(r.Context())
	status, err := h.Settings.SetDeadline(r.Context(), voter != nil && voter.IsAdmin, req.Deadline)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, status)
}

// ==================== Results ====================

func (h *Handlers) handleGetAdminResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.Results.GetResults(r.Context(), auth.VoterFrom(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, results)
}

func (h *Handlers) handleGetVoters(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	nominee := r.URL.Query().Get("nominee")
	if category == "" || nominee == "" {
		h.respondError(w, r, BadRequest("category and nominee are required"))
		return
	}

	voters, err := h.Results.Voters(r.Context(), category, nominee)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, VotersResponse{Category: category, Nominee: nominee, Voters: voters})
}

func (h *Handlers) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	body, err := json.MarshalIndent(h.Results.Export(r.Context()), "", "  ")
	if err != nil {
		h.respondError(w, r, InternalError(err))
		return
	}
	respondAttachment(w, "application/json", h.Results.ExportFilename("json"), body)
}

func (h *Handlers) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	body, err := h.Results.ExportXLSX(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", h.Results.ExportFilename("xlsx"), body)
}

func (h *Handlers) handleArchive(w http.ResponseWriter, r *http.Request) {
	result, err := h.Results.Archive(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, result)
}

func (h *Handlers) handleGetArchive(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Results.ListArchive(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if rows == nil {
		rows = []models.ArchiveRow{}
	}
	respondOK(w, ArchiveResponse{Rows: rows})
}

// ==================== Ballots ====================

func (h *Handlers) handleRemoveVote(w http.ResponseWriter, r *http.Request) {
	var req RemoveVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.Category == "" {
		h.respondError(w, r, BadRequest("name and category are required"))
		return
	}

	target := models.Identity{Name: req.Name, Club: req.Club}
	removed, err := h.Voting.RemoveVote(r.Context(), auth.VoterFrom(r.Context()), target, req.Category)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, RemoveVoteResponse{Removed: removed})
}

func (h *Handlers) handleResetVotes(w http.ResponseWriter, r *http.Request) {
	if !h.Auth.ValidAdminToken(r.Header.Get(auth.ResetTokenHeader)) {
		h.respondError(w, r, ErrInvalidAdminToken)
		return
	}

	var req ResetVotesRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.Season == "" {
		req.Season = h.Voting.Season()
	}

	result, err := h.Voting.ResetAll(r.Context(), auth.VoterFrom(r.Context()), req.Season, req.Confirm)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, result)
}

// ==================== Roster ====================

func (h *Handlers) handleGetRoster(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.Roster.Status())
}

func (h *Handlers) handleImportRoster(w http.ResponseWriter, r *http.Request) {
	var req RosterImportRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if len(req.Managers) == 0 {
		h.respondError(w, r, BadRequest("managers list is empty"))
		return
	}

	status, err := h.Roster.Import(r.Context(), req.Managers)
	if err != nil {
		h.respondError(w, r, InternalError(err))
		return
	}
	respondOK(w, status)
}

func (h *Handlers) handleReloadRoster(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.Roster.Reload(r.Context()))
}

// ==================== Sharing ====================

func (h *Handlers) handleGetShare(w http.ResponseWriter, r *http.Request) {
	respondOK(w, ShareResponse{URL: h.Share.VotingURL()})
}

func (h *Handlers) handleGetShareQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.Share.QRCode()
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

// ==================== Logging ====================

func (h *Handlers) logSettings() LogSettingsResponse {
	return LogSettingsResponse{
		Level:       strings.ToLower(h.Log.GetLevel().String()),
		HTTPLogging: h.Log.IsHTTPLoggingEnabled(),
	}
}

func (h *Handlers) handleGetLogging(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.logSettings())
}

func (h *Handlers) handleSetHTTPLogging(w http.ResponseWriter, r *http.Request) {
	var req HTTPLoggingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.Enabled {
		h.Log.EnableHTTPLogging()
	} else {
		h.Log.DisableHTTPLogging()
	}
	respondOK(w, h.logSettings())
}

func (h *Handlers) handleSetLogLevel(w http.ResponseWriter, r *http.Request) {
	var req LogLevelRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	switch strings.ToLower(req.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		h.respondError(w, r, BadRequest("level must be one of debug, info, warn, error"))
		return
	}
	h.Log.SetLevel(logger.ParseLevel(req.Level))
	respondOK(w, h.logSettings())
}
