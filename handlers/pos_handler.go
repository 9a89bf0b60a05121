package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"venuepass/config"
	"venuepass/internal/services/pos"
	"venuepass/services"
)

type POSHandler struct {
	app    *pocketbase.PocketBase
	ingest *services.POSIngestService
	cfg    *config.Config
}

func NewPOSHandler(app *pocketbase.PocketBase, ingest *services.POSIngestService, cfg *config.Config) *POSHandler {
	return &POSHandler{
		app:    app,
		ingest: ingest,
		cfg:    cfg,
	}
}

// SyncNow forces a poll of one provider outside the schedule.
func (h *POSHandler) SyncNow(e *core.RequestEvent) error {
	if !e.HasSuperuserAuth() {
		return apis.NewForbiddenError("Superuser only", nil)
	}

	name := pos.ProviderName(e.Request.PathValue("provider"))
	if err := h.ingest.Sync(e.Request.Context(), name); err != nil {
		return apis.NewBadRequestError("Sync failed: "+err.Error(), err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message":  "Sync complete",
		"provider": name,
	})
}

// Simulate injects a fake transaction, development environments only. It
// goes through the full ingest path, dedup and rule evaluation included.
func (h *POSHandler) Simulate(e *core.RequestEvent) error {
	if h.cfg.Environment != "development" {
		return apis.NewNotFoundError("", nil)
	}
	if !e.HasSuperuserAuth() {
		return apis.NewForbiddenError("Superuser only", nil)
	}

	var req struct {
		Provider      string  `json:"provider"`
		VenueID       string  `json:"venue_id"`
		ProviderTxnID string  `json:"provider_txn_id"`
		CardToken     string  `json:"card_token"`
		Amount        float64 `json:"amount"`
		Currency      string  `json:"currency"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	raw := pos.RawTransaction{
		ProviderTxnID: req.ProviderTxnID,
		CardToken:     req.CardToken,
		Amount:        decimal.NewFromFloat(req.Amount),
		Currency:      req.Currency,
		OccurredAt:    time.Now(),
	}

	created, err := h.ingest.Ingest(e.Request.Context(), pos.ProviderName(req.Provider), req.VenueID, raw)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message": "Transaction simulated",
		"created": created,
	})
}
