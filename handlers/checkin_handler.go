package handlers

import (
	"context"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"venuepass/services"
	"venuepass/store"
)

type CheckinHandler struct {
	app            *pocketbase.PocketBase
	checkinService *services.CheckinService
	store          *store.Store
}

func NewCheckinHandler(app *pocketbase.PocketBase, checkinService *services.CheckinService, st *store.Store) *CheckinHandler {
	return &CheckinHandler{
		app:            app,
		checkinService: checkinService,
		store:          st,
	}
}

func (h *CheckinHandler) requireStaff(ctx context.Context, e *core.RequestEvent, venueID string) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	if e.HasSuperuserAuth() {
		return nil
	}
	ok, err := h.store.IsVenueStaff(ctx, e.Auth.Id, venueID)
	if err != nil {
		return apis.NewInternalServerError("Staff lookup failed", err)
	}
	if !ok {
		return apis.NewForbiddenError("Not staff for this venue", nil)
	}
	return nil
}

// Scan redeems a QR token at the door. Two scanners hitting the same code
// race to a single winner; the loser gets the winning scan's details.
func (h *CheckinHandler) Scan(e *core.RequestEvent) error {
	var req struct {
		Token   string `json:"token"`
		VenueID string `json:"venue_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Token == "" || req.VenueID == "" {
		return apis.NewBadRequestError("token and venue_id are required", nil)
	}

	ctx := e.Request.Context()
	if err := h.requireStaff(ctx, e, req.VenueID); err != nil {
		return err
	}

	rec, err := h.checkinService.CheckIn(ctx, req.Token, req.VenueID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message":  "Checked in",
		"check_in": rec,
	})
}

// GuestCheckIn admits a guest-list entry without a ticket.
func (h *CheckinHandler) GuestCheckIn(e *core.RequestEvent) error {
	var req struct {
		EntryID string `json:"entry_id"`
		VenueID string `json:"venue_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EntryID == "" || req.VenueID == "" {
		return apis.NewBadRequestError("entry_id and venue_id are required", nil)
	}

	ctx := e.Request.Context()
	if err := h.requireStaff(ctx, e, req.VenueID); err != nil {
		return err
	}

	rec, err := h.checkinService.CheckInGuest(ctx, req.EntryID, req.VenueID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message":  "Guest checked in",
		"check_in": rec,
	})
}
