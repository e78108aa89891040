package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/abrezinsky/motsvote/internal/auth"
	"github.com/abrezinsky/motsvote/internal/errors"
	"github.com/abrezinsky/motsvote/internal/services"
)

// Error codes for standardized API error responses
const (
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeAmbiguous         = "AMBIGUOUS_IDENTITY"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInternalServer    = "INTERNAL_SERVER_ERROR"
	ErrCodeUnavailable       = "SERVICE_UNAVAILABLE"
	ErrCodeVotingClosed      = "VOTING_CLOSED"
	ErrCodeInvalidAdminToken = "INVALID_ADMIN_TOKEN"
)

// APIError represents an error with an HTTP status code and error code
type APIError struct {
	Status  int      `json:"-"`
	Code    string   `json:"code"`
	Message string   `json:"error"`
	Clubs   []string `json:"clubs,omitempty"`

	cause error
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrInvalidAdminToken rejects a missing or wrong admin token header
var ErrInvalidAdminToken = &APIError{Status: http.StatusUnauthorized, Code: ErrCodeInvalidAdminToken, Message: "Invalid admin token"}

// BadRequest creates a 400 error with custom message
func BadRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: message}
}

// Unauthorized creates a 401 error with custom message
func Unauthorized(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: ErrCodeUnauthorized, Message: message}
}

// Forbidden creates a 403 error with custom message
func Forbidden(message string) *APIError {
	return &APIError{Status: http.StatusForbidden, Code: ErrCodeForbidden, Message: message}
}

// NotFound creates a 404 error with custom message
func NotFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: message}
}

// Conflict creates a 409 error with custom message
func Conflict(message string) *APIError {
	return &APIError{Status: http.StatusConflict, Code: ErrCodeConflict, Message: message}
}

// InternalError creates a 500 error keeping err for the log
func InternalError(err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: ErrCodeInternalServer, Message: "Internal server error", cause: err}
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondOK writes a 200 OK JSON response
func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, data)
}

// respondSuccess writes a 200 OK with a message
func respondSuccess(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, map[string]string{"message": message})
}

// respondAttachment writes a download with the given content type
func respondAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// respondError writes an error response. Server-side failures are logged
// as errors and permission failures as warnings.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := err.(*APIError)
	if !ok {
		apiErr = ToAPIError(err)
	}
	h.logFailure(r, apiErr)
	respondJSON(w, apiErr.Status, apiErr)
}

func (h *Handlers) logFailure(r *http.Request, e *APIError) {
	if h.Log == nil {
		return
	}
	switch {
	case e.Status >= http.StatusInternalServerError:
		h.Log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "status", e.Status, "error", e.cause)
	case e.Code == ErrCodeUnauthorized, e.Code == ErrCodeForbidden, e.Code == ErrCodeInvalidAdminToken:
		manager := ""
		if v := auth.VoterFrom(r.Context()); v != nil {
			manager = v.Identity.Display()
		}
		h.Log.Warn("Permission denied", "method", r.Method, "path", r.URL.Path, "manager", manager, "reason", e.Message)
	}
}

// decodeJSON decodes JSON from request body into the target
func decodeJSON(r *http.Request, target interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if err == io.EOF {
			return BadRequest("Request body is empty")
		}
		return BadRequest("Invalid JSON: " + err.Error())
	}
	return nil
}

// ToAPIError converts service errors to appropriate API errors
func ToAPIError(err error) *APIError {
	var amb *services.AmbiguousIdentityError
	if stderrors.As(err, &amb) {
		return &APIError{Status: http.StatusConflict, Code: ErrCodeAmbiguous, Message: services.ErrAmbiguousIdentity.Message, Clubs: amb.Clubs}
	}

	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		switch appErr.Kind {
		case errors.ErrNotFound:
			return NotFound(appErr.Message)
		case errors.ErrValidation, errors.ErrInvalidInput:
			return &APIError{Status: http.StatusBadRequest, Code: ErrCodeValidation, Message: appErr.Message}
		case errors.ErrConflict:
			return Conflict(appErr.Message)
		case errors.ErrUnauthorized:
			if stderrors.Is(err, services.ErrNotLoggedIn) {
				return Unauthorized(appErr.Message)
			}
			return Forbidden(appErr.Message)
		case errors.ErrClosed:
			return &APIError{Status: http.StatusForbidden, Code: ErrCodeVotingClosed, Message: appErr.Message}
		case errors.ErrUnavailable:
			return &APIError{Status: http.StatusServiceUnavailable, Code: ErrCodeUnavailable, Message: appErr.Message, cause: err}
		default:
			return InternalError(err)
		}
	}

	return InternalError(err)
}
