package services_test

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/abrezinsky/motsvote/internal/errors"
	"github.com/abrezinsky/motsvote/internal/services"
)

func TestAmbiguousIdentityError(t *testing.T) {
	err := &services.AmbiguousIdentityError{Name: "Jay Jones", Clubs: []string{"AS Monaco", "FC Schalke 04"}}

	if !stderrors.Is(err, services.ErrAmbiguousIdentity) {
		t.Error("expected error to match ErrAmbiguousIdentity")
	}
	if errors.KindOf(err) != errors.ErrConflict {
		t.Errorf("expected conflict kind, got %v", errors.KindOf(err))
	}
	if !strings.Contains(err.Error(), "AS Monaco, FC Schalke 04") {
		t.Errorf("expected clubs in message, got %q", err.Error())
	}
}

func TestPredefinedErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind errors.Kind
	}{
		{"ErrMissingName", services.ErrMissingName, errors.ErrValidation},
		{"ErrIdentityNotFound", services.ErrIdentityNotFound, errors.ErrNotFound},
		{"ErrVotingClosed", services.ErrVotingClosed, errors.ErrClosed},
		{"ErrConfirmationRequired", services.ErrConfirmationRequired, errors.ErrValidation},
		{"ErrInvalidDeadline", services.ErrInvalidDeadline, errors.ErrValidation},
		{"ErrResultsHidden", services.ErrResultsHidden, errors.ErrUnauthorized},
		{"ErrInvalidNominee", services.ErrInvalidNominee, errors.ErrInvalidInput},
		{"ErrUnauthorized", services.ErrUnauthorized, errors.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.KindOf(tt.err); got != tt.kind {
				t.Errorf("KindOf = %v, want %v", got, tt.kind)
			}
		})
	}
}
