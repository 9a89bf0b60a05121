package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"venuepass/services"
	"venuepass/store"
)

type RulesHandler struct {
	app         *pocketbase.PocketBase
	ruleService *services.SpendRuleService
	store       *store.Store
}

func NewRulesHandler(app *pocketbase.PocketBase, ruleService *services.SpendRuleService, st *store.Store) *RulesHandler {
	return &RulesHandler{
		app:         app,
		ruleService: ruleService,
		store:       st,
	}
}

// ListRules returns the active rules of a venue, cheapest tier first.
func (h *RulesHandler) ListRules(e *core.RequestEvent) error {
	venueID := e.Request.PathValue("venueId")

	rules, err := h.store.ListActiveRules(e.Request.Context(), venueID)
	if err != nil {
		return apis.NewBadRequestError("Failed to list rules", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"venue_id": venueID,
		"rules":    rules,
	})
}

// MyGrants returns the caller's unlocked tiers across all venues.
func (h *RulesHandler) MyGrants(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	grants, err := h.store.ListGrants(e.Request.Context(), e.Auth.Id)
	if err != nil {
		return apis.NewBadRequestError("Failed to list grants", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"grants": grants})
}

// ManualGrant lets an admin unlock a tier outside any rule, for comps and
// support cases. Granting an already-held tier reports granted=false.
func (h *RulesHandler) ManualGrant(e *core.RequestEvent) error {
	if !e.HasSuperuserAuth() {
		return apis.NewForbiddenError("Superuser only", nil)
	}

	var req struct {
		UserID  string `json:"user_id"`
		VenueID string `json:"venue_id"`
		Tier    string `json:"tier"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.UserID == "" || req.VenueID == "" || req.Tier == "" {
		return apis.NewBadRequestError("user_id, venue_id and tier are required", nil)
	}

	created, err := h.ruleService.GrantManually(e.Request.Context(), req.UserID, req.VenueID, req.Tier)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message": "Grant processed",
		"granted": created,
	})
}

// Reevaluate re-runs the rule engine for one user at one venue, for support
// cases where a grant looks missing. Harmless to run at any time.
func (h *RulesHandler) Reevaluate(e *core.RequestEvent) error {
	if !e.HasSuperuserAuth() {
		return apis.NewForbiddenError("Superuser only", nil)
	}

	var req struct {
		UserID  string `json:"user_id"`
		VenueID string `json:"venue_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if err := h.ruleService.Evaluate(e.Request.Context(), req.UserID, req.VenueID); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Re-evaluated"})
}
