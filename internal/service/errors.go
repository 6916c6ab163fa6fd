package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/ticket-workflow/internal/repository"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

// Error kinds surfaced by the workflow services. Every returned error is an
// *apperrors.DomainError that unwraps to one of these.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrTransitionNotAllowed = errors.New("transition not allowed")
	ErrStorage              = errors.New("storage failure")
	ErrNotification         = errors.New("notification not recorded")
)

func invalidRequest(message string, details map[string]any) error {
	return apperrors.NewValidationError(message, details).(*apperrors.DomainError).Wrap(ErrInvalidRequest)
}

func ticketNotFound(ticketID int64) error {
	return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID}).(*apperrors.DomainError).Wrap(ErrTicketNotFound)
}

func transitionNotAllowed(message string, details map[string]any) error {
	return apperrors.NewTransitionNotAllowed(message, details).(*apperrors.DomainError).Wrap(ErrTransitionNotAllowed)
}

func storageFailure(err error) error {
	if errors.Is(err, repository.ErrStaleStatus) {
		return &apperrors.DomainError{
			Code:       apperrors.CodeConflict,
			Message:    "ticket was modified concurrently; retry",
			HTTPStatus: http.StatusConflict,
			Err:        fmt.Errorf("%w: %w", ErrStorage, err),
		}
	}
	return apperrors.NewStorageError(fmt.Errorf("%w: %w", ErrStorage, err))
}

// classify maps an error escaping a transaction to a domain error, keeping
// domain errors produced inside the transaction intact.
func classify(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return storageFailure(err)
}
