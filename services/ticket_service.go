package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"venuepass/internal/status"
	"venuepass/models"
	"venuepass/utils"
)

// TicketStore is the durable side of ticket issuance. Implementations must
// make TransferTicket a single atomic unit: the old ticket's status CAS and
// the replacement insert either both happen or neither does.
type TicketStore interface {
	GetTier(ctx context.Context, tierID string) (models.TicketTier, error)
	CreateTicket(ctx context.Context, t *models.Ticket) error
	GetTicket(ctx context.Context, id string) (models.Ticket, error)
	GetTicketByToken(ctx context.Context, token string) (models.Ticket, error)
	// ConfirmTierSold mirrors the Redis sold counter into the tier record,
	// guarded so the durable count can never exceed quantity.
	ConfirmTierSold(ctx context.Context, tierID string, qty int) error
	// TransferTicket CAS-marks the old ticket transferred (only from active,
	// only for the expected owner) and inserts the replacement.
	TransferTicket(ctx context.Context, oldID, expectedOwner string, replacement *models.Ticket) error
}

type TicketService struct {
	store     TicketStore
	inventory *InventoryService
	notifier  *Notifier
}

func NewTicketService(store TicketStore, inventory *InventoryService, notifier *Notifier) *TicketService {
	return &TicketService{
		store:     store,
		inventory: inventory,
		notifier:  notifier,
	}
}

// Issue consumes a confirmed-payment reservation and creates one ticket per
// reserved unit, each with its own QR token.
func (s *TicketService) Issue(ctx context.Context, reservationID, ownerID string) ([]models.Ticket, error) {
	tierID, qty, err := s.inventory.Confirm(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	tier, err := s.store.GetTier(ctx, tierID)
	if err != nil {
		return nil, fmt.Errorf("issue: load tier %s: %w", tierID, err)
	}

	now := time.Now()
	tickets := make([]models.Ticket, 0, qty)
	for i := 0; i < qty; i++ {
		token, err := utils.NewQRToken()
		if err != nil {
			return tickets, s.issueFailed(ctx, tierID, qty, tickets, fmt.Errorf("issue: token generation: %w", err))
		}

		ticket := models.Ticket{
			EventID:     tier.EventID,
			TierID:      tier.ID,
			OwnerID:     ownerID,
			QRToken:     token,
			Status:      models.TicketStatusActive,
			PurchasedAt: now,
		}
		if err := s.store.CreateTicket(ctx, &ticket); err != nil {
			return tickets, s.issueFailed(ctx, tierID, qty, tickets, fmt.Errorf("issue: create ticket: %w", err))
		}

		tickets = append(tickets, ticket)
		s.notifier.TicketIssued(ticket)
	}

	// Mirror the sale into the durable tier record. The Redis counter is
	// already correct; a failure here is drift to log, not to roll back.
	if err := s.store.ConfirmTierSold(ctx, tierID, qty); err != nil {
		slog.Error("issue: durable sold counter drift", "tier_id", tierID, "qty", qty, "error", err)
	}

	return tickets, nil
}

// issueFailed compensates a partial issuance: the whole reservation was
// already confirmed sold, so the unissued remainder goes back to inventory
// and only the tickets that exist are mirrored durably.
func (s *TicketService) issueFailed(ctx context.Context, tierID string, qty int, issued []models.Ticket, cause error) error {
	if err := s.inventory.ReleaseSold(ctx, tierID, qty-len(issued)); err != nil {
		slog.Error("issue: sold counter compensation failed", "tier_id", tierID, "unissued", qty-len(issued), "error", err)
	}
	if len(issued) > 0 {
		if err := s.store.ConfirmTierSold(ctx, tierID, len(issued)); err != nil {
			slog.Error("issue: durable sold counter drift", "tier_id", tierID, "qty", len(issued), "error", err)
		}
	}
	return cause
}

// Transfer invalidates the sender's ticket and issues a replacement with a
// fresh token to the recipient, atomically. A ticket that was redeemed in
// the meantime fails with INVALID_STATE: check-in wins over transfer.
func (s *TicketService) Transfer(ctx context.Context, ticketID, fromUserID, toUserID string) (models.Ticket, error) {
	ticket, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return models.Ticket{}, err
	}

	if ticket.OwnerID != fromUserID {
		return models.Ticket{}, status.ErrNotOwner
	}
	if !ticket.Transferable() {
		return models.Ticket{}, status.ErrInvalidState
	}

	token, err := utils.NewQRToken()
	if err != nil {
		return models.Ticket{}, fmt.Errorf("transfer: token generation: %w", err)
	}

	replacement := models.Ticket{
		EventID:     ticket.EventID,
		TierID:      ticket.TierID,
		OwnerID:     toUserID,
		QRToken:     token,
		Status:      models.TicketStatusActive,
		PurchasedAt: ticket.PurchasedAt,
	}

	if err := s.store.TransferTicket(ctx, ticket.ID, fromUserID, &replacement); err != nil {
		return models.Ticket{}, err
	}

	return replacement, nil
}

// Validate is a pure lookup used for the pre-check UI step; it never
// consumes the ticket.
func (s *TicketService) Validate(ctx context.Context, token string) (models.Ticket, error) {
	ticket, err := s.store.GetTicketByToken(ctx, token)
	if err != nil {
		if errors.Is(err, status.ErrTicketNotFound) {
			return models.Ticket{}, status.ErrTokenNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}
