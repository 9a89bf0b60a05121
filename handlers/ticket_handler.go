package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"venuepass/services"
)

type TicketHandler struct {
	app            *pocketbase.PocketBase
	ticketService  *services.TicketService
	inventory      *services.InventoryService
	reservationTTL time.Duration
}

func NewTicketHandler(app *pocketbase.PocketBase, ticketService *services.TicketService, inventory *services.InventoryService, reservationTTL time.Duration) *TicketHandler {
	return &TicketHandler{
		app:            app,
		ticketService:  ticketService,
		inventory:      inventory,
		reservationTTL: reservationTTL,
	}
}

// Reserve holds units of a tier for the checkout flow. The hold expires on
// its own if the payment never lands.
func (h *TicketHandler) Reserve(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		TierID   string `json:"tier_id"`
		Quantity int    `json:"quantity"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.TierID == "" || req.Quantity < 1 {
		return apis.NewBadRequestError("tier_id and a positive quantity are required", nil)
	}

	resvID, err := h.inventory.Reserve(e.Request.Context(), req.TierID, req.Quantity)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"reservation_id": resvID,
		"expires_at":     time.Now().Add(h.reservationTTL),
	})
}

// ConfirmPurchase is the payment-confirmed callback: it consumes the
// reservation and issues the tickets.
func (h *TicketHandler) ConfirmPurchase(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		ReservationID string `json:"reservation_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	tickets, err := h.ticketService.Issue(e.Request.Context(), req.ReservationID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message": "Tickets issued",
		"tickets": tickets,
	})
}

// Release abandons a checkout before payment; the sweeper would get to it
// eventually, this just returns the units immediately.
func (h *TicketHandler) Release(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		ReservationID string `json:"reservation_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if err := h.inventory.Release(e.Request.Context(), req.ReservationID); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Reservation released"})
}

// Transfer moves a ticket to another user. The recipient gets a fresh QR
// token; the sender's copy stops scanning the moment this returns.
func (h *TicketHandler) Transfer(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		TicketID    string `json:"ticket_id"`
		RecipientID string `json:"recipient_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.RecipientID == "" || req.RecipientID == e.Auth.Id {
		return apis.NewBadRequestError("recipient must be another user", nil)
	}

	replacement, err := h.ticketService.Transfer(e.Request.Context(), req.TicketID, e.Auth.Id, req.RecipientID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message": "Ticket transferred",
		"ticket":  replacement,
	})
}

// Validate answers whether a token would be accepted at the door, without
// consuming it.
func (h *TicketHandler) Validate(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	token := e.Request.URL.Query().Get("token")
	if token == "" {
		return apis.NewBadRequestError("token is required", nil)
	}

	ticket, err := h.ticketService.Validate(e.Request.Context(), token)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"valid":  ticket.Redeemable(),
		"status": ticket.Status,
		"ticket": ticket,
	})
}

// ListMine returns the caller's tickets, newest first.
func (h *TicketHandler) ListMine(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	records, err := h.app.FindRecordsByFilter(
		"tickets",
		"owner_id = {:ownerId}",
		"-purchased_at",
		-1,
		0,
		dbx.Params{"ownerId": e.Auth.Id},
	)
	if err != nil {
		return apis.NewBadRequestError("Failed to list tickets", err)
	}

	tickets := make([]map[string]any, 0, len(records))
	for _, r := range records {
		tickets = append(tickets, map[string]any{
			"id":           r.Id,
			"event_id":     r.GetString("event_id"),
			"tier_id":      r.GetString("tier_id"),
			"status":       r.GetString("status"),
			"purchased_at": r.GetDateTime("purchased_at").Time(),
			// the QR token only goes to its owner, and only here.
			"qr_token": r.GetString("qr_token"),
		})
	}

	return e.JSON(http.StatusOK, map[string]any{"tickets": tickets})
}

// InventorySnapshot is the admin view of live counters for one tier.
func (h *TicketHandler) InventorySnapshot(e *core.RequestEvent) error {
	if !e.HasSuperuserAuth() {
		return apis.NewForbiddenError("Superuser only", nil)
	}

	tierID := e.Request.PathValue("tierId")
	snapshot, err := h.inventory.Snapshot(e.Request.Context(), tierID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"tier_id":   tierID,
		"inventory": snapshot,
	})
}
