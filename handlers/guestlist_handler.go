package handlers

import (
	"net/http"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"venuepass/models"
	"venuepass/services"
	"venuepass/store"
)

type GuestListHandler struct {
	app              *pocketbase.PocketBase
	guestListService *services.GuestListService
	store            *store.Store
}

func NewGuestListHandler(app *pocketbase.PocketBase, guestListService *services.GuestListService, st *store.Store) *GuestListHandler {
	return &GuestListHandler{
		app:              app,
		guestListService: guestListService,
		store:            st,
	}
}

func (h *GuestListHandler) requireStaff(e *core.RequestEvent, venueID string) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	if e.HasSuperuserAuth() {
		return nil
	}
	ok, err := h.store.IsVenueStaff(e.Request.Context(), e.Auth.Id, venueID)
	if err != nil {
		return apis.NewInternalServerError("Staff lookup failed", err)
	}
	if !ok {
		return apis.NewForbiddenError("Not staff for this venue", nil)
	}
	return nil
}

// Add puts a guest on the list, identified either by user id or by
// free-text name and contact.
func (h *GuestListHandler) Add(e *core.RequestEvent) error {
	var req struct {
		VenueID      string `json:"venue_id"`
		EventID      string `json:"event_id"`
		UserID       string `json:"user_id"`
		GuestName    string `json:"guest_name"`
		GuestContact string `json:"guest_contact"`
		PlusOnes     int    `json:"plus_ones"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.VenueID == "" {
		return apis.NewBadRequestError("venue_id is required", nil)
	}
	if req.UserID == "" && req.GuestName == "" {
		return apis.NewBadRequestError("a user_id or a guest_name is required", nil)
	}
	if err := h.requireStaff(e, req.VenueID); err != nil {
		return err
	}

	entry, err := h.guestListService.Add(e.Request.Context(), models.GuestListEntry{
		VenueID:      req.VenueID,
		EventID:      req.EventID,
		UserID:       req.UserID,
		GuestName:    req.GuestName,
		GuestContact: req.GuestContact,
		PlusOnes:     req.PlusOnes,
		AddedBy:      e.Auth.Id,
	})
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message": "Guest added",
		"entry":   entry,
	})
}

// Confirm marks a pending entry confirmed. Re-confirming is a no-op.
func (h *GuestListHandler) Confirm(e *core.RequestEvent) error {
	entry, err := h.loadEntryForStaff(e)
	if err != nil {
		return err
	}

	if err := h.guestListService.Confirm(e.Request.Context(), entry.ID); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Entry confirmed"})
}

// Remove takes an entry off the list. Checked-in guests stay checked in.
func (h *GuestListHandler) Remove(e *core.RequestEvent) error {
	entry, err := h.loadEntryForStaff(e)
	if err != nil {
		return err
	}

	if err := h.guestListService.Remove(e.Request.Context(), entry.ID); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Entry removed"})
}

func (h *GuestListHandler) loadEntryForStaff(e *core.RequestEvent) (models.GuestListEntry, error) {
	entryID := e.Request.PathValue("entryId")
	entry, err := h.store.GetGuestEntry(e.Request.Context(), entryID)
	if err != nil {
		return models.GuestListEntry{}, apiError(err)
	}
	if err := h.requireStaff(e, entry.VenueID); err != nil {
		return models.GuestListEntry{}, err
	}
	return entry, nil
}

// List returns the guest list of an event.
func (h *GuestListHandler) List(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	event, err := h.store.GetEvent(e.Request.Context(), eventID)
	if err != nil {
		return apiError(err)
	}
	if err := h.requireStaff(e, event.VenueID); err != nil {
		return err
	}

	records, err := h.app.FindRecordsByFilter(
		"guest_list_entries",
		"event_id = {:eventId}",
		"-created",
		-1,
		0,
		dbx.Params{"eventId": eventID},
	)
	if err != nil {
		return apis.NewBadRequestError("Failed to list entries", err)
	}

	entries := make([]map[string]any, 0, len(records))
	statusCounts := map[string]int{}
	for _, r := range records {
		st := r.GetString("status")
		statusCounts[st]++
		entries = append(entries, map[string]any{
			"id":         r.Id,
			"user_id":    r.GetString("user_id"),
			"guest_name": r.GetString("guest_name"),
			"plus_ones":  r.GetInt("plus_ones"),
			"status":     st,
			"added_by":   r.GetString("added_by"),
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"entries":       entries,
		"status_counts": statusCounts,
		"total":         len(entries),
	})
}

// Reconcile flips everyone still expected at an ended event to no_show.
// Safe to run repeatedly; later runs find nothing left to flip.
func (h *GuestListHandler) Reconcile(e *core.RequestEvent) error {
	if !e.HasSuperuserAuth() {
		return apis.NewForbiddenError("Superuser only", nil)
	}

	eventID := e.Request.PathValue("eventId")
	marked, err := h.guestListService.ReconcileNoShows(e.Request.Context(), eventID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message":  "Reconciled",
		"event_id": eventID,
		"marked":   marked,
	})
}
