package services

import (
	"fmt"
	"strings"

	"github.com/abrezinsky/motsvote/internal/ballot"
	"github.com/abrezinsky/motsvote/internal/errors"
)

// Service errors
var (
	ErrMissingName          = errors.Validation("please enter your manager name")
	ErrIdentityNotFound     = errors.NotFound("manager not found on the roster")
	ErrAmbiguousIdentity    = errors.Conflict("several managers share this name, please choose your club")
	ErrVotingClosed         = errors.Closed("voting has closed")
	ErrConfirmationRequired = errors.Validation("reset must be confirmed")
	ErrInvalidDeadline      = errors.Validation("deadline must be an ISO 8601 UTC timestamp ending in Z")
	ErrResultsHidden        = errors.Unauthorized("results are visible once voting has closed")
	ErrNotLoggedIn          = errors.Unauthorized("please log in first")

	ErrInvalidNominee  = ballot.ErrInvalidNominee
	ErrUnknownCategory = ballot.ErrUnknownCategory
	ErrUnauthorized    = ballot.ErrUnauthorized
)

// AmbiguousIdentityError is returned by login when the name matches more
// than one manager and no club was given. It matches ErrAmbiguousIdentity.
type AmbiguousIdentityError struct {
	Name  string
	Clubs []string
}

func (e *AmbiguousIdentityError) Error() string {
	return fmt.Sprintf("%s: %s is listed for %s", ErrAmbiguousIdentity.Message, e.Name, strings.Join(e.Clubs, ", "))
}

func (e *AmbiguousIdentityError) Unwrap() error {
	return ErrAmbiguousIdentity
}
