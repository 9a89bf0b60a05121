package store

import (
	"context"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"venuepass/internal/status"
	"venuepass/models"
)

func (s *Store) GetTier(ctx context.Context, tierID string) (models.TicketTier, error) {
	record, err := s.app.FindRecordById("ticket_tiers", tierID)
	if err != nil {
		if isNoRows(err) {
			return models.TicketTier{}, status.ErrTierNotFound
		}
		return models.TicketTier{}, err
	}
	return tierFromRecord(record), nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (models.Event, error) {
	record, err := s.app.FindRecordById("events", id)
	if err != nil {
		if isNoRows(err) {
			return models.Event{}, status.ErrEventNotFound
		}
		return models.Event{}, err
	}
	return eventFromRecord(record), nil
}

func (s *Store) CreateTicket(ctx context.Context, t *models.Ticket) error {
	collection, err := s.app.FindCollectionByNameOrId("tickets")
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	setTicketFields(record, t)
	if err := s.app.Save(record); err != nil {
		return err
	}
	t.ID = record.Id
	return nil
}

func setTicketFields(record *core.Record, t *models.Ticket) {
	record.Set("event_id", t.EventID)
	record.Set("tier_id", t.TierID)
	record.Set("owner_id", t.OwnerID)
	record.Set("qr_token", t.QRToken)
	record.Set("status", t.Status)
	record.Set("purchased_at", t.PurchasedAt)
}

func (s *Store) GetTicket(ctx context.Context, id string) (models.Ticket, error) {
	record, err := s.app.FindRecordById("tickets", id)
	if err != nil {
		if isNoRows(err) {
			return models.Ticket{}, status.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticketFromRecord(record), nil
}

func (s *Store) GetTicketByToken(ctx context.Context, token string) (models.Ticket, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"tickets",
		"qr_token = {:token}",
		dbx.Params{"token": token},
	)
	if err != nil {
		if isNoRows(err) {
			return models.Ticket{}, status.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticketFromRecord(record), nil
}

// ConfirmTierSold mirrors the Redis sold counter into the durable tier row.
// The quantity guard makes the update a no-op if it would oversell, which
// only happens if Redis and the DB have drifted.
func (s *Store) ConfirmTierSold(ctx context.Context, tierID string, qty int) error {
	result, err := s.app.DB().NewQuery(`
		UPDATE ticket_tiers
		SET sold = sold + {:qty}
		WHERE id = {:id} AND sold + {:qty} <= quantity
	`).Bind(dbx.Params{"id": tierID, "qty": qty}).Execute()
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("tier %s: sold counter would exceed quantity", tierID)
	}
	return nil
}

// TransferTicket retires the old ticket and inserts its replacement in one
// transaction. The CAS on status=active means a concurrent redemption or
// transfer of the same ticket aborts this one with no partial state.
func (s *Store) TransferTicket(ctx context.Context, oldID, expectedOwner string, replacement *models.Ticket) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		result, err := txApp.DB().NewQuery(`
			UPDATE tickets
			SET status = {:transferred}
			WHERE id = {:id} AND owner_id = {:owner} AND status = {:active}
		`).Bind(dbx.Params{
			"transferred": models.TicketStatusTransferred,
			"id":          oldID,
			"owner":       expectedOwner,
			"active":      models.TicketStatusActive,
		}).Execute()
		if err != nil {
			return err
		}

		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			// re-read to report why; the ticket moved under us.
			return status.ErrInvalidState
		}

		collection, err := txApp.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		record := core.NewRecord(collection)
		setTicketFields(record, replacement)
		if err := txApp.Save(record); err != nil {
			return err
		}
		replacement.ID = record.Id
		return nil
	})
}
