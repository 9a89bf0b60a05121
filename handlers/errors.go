package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"

	"venuepass/internal/status"
)

// apiError maps domain errors onto the API surface. Capacity and state
// conflicts answer 409 so clients can tell "try another tier" apart from
// "your request was wrong".
func apiError(err error) error {
	var conflict *status.ConflictDetail
	if errors.As(err, &conflict) {
		return apis.NewApiError(http.StatusConflict, conflict.Error(), map[string]any{
			"checked_in_at": conflict.CheckedInAt,
			"staff_id":      conflict.StaffID,
		})
	}

	switch {
	case errors.Is(err, status.ErrSoldOut),
		errors.Is(err, status.ErrWindowClosed),
		errors.Is(err, status.ErrInvalidState),
		errors.Is(err, status.ErrAlreadyRedeemed),
		errors.Is(err, status.ErrAlreadyCheckedIn),
		errors.Is(err, status.ErrEntryRemoved),
		errors.Is(err, status.ErrEventNotLive):
		return apis.NewApiError(http.StatusConflict, err.Error(), nil)

	case errors.Is(err, status.ErrNotOwner),
		errors.Is(err, status.ErrWrongVenue):
		return apis.NewForbiddenError(err.Error(), nil)

	case errors.Is(err, status.ErrTokenNotFound),
		errors.Is(err, status.ErrTicketNotFound),
		errors.Is(err, status.ErrTierNotFound),
		errors.Is(err, status.ErrEventNotFound),
		errors.Is(err, status.ErrEntryNotFound),
		errors.Is(err, status.ErrReservationNotFound),
		errors.Is(err, status.ErrRuleNotFound):
		return apis.NewNotFoundError(err.Error(), nil)

	case errors.Is(err, status.ErrMalformedPayload):
		return apis.NewBadRequestError(err.Error(), nil)

	default:
		return apis.NewInternalServerError("Something went wrong", err)
	}
}
