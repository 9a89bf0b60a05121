package store

import (
	"context"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"venuepass/models"
)

// RedeemTicket CAS-marks the ticket redeemed and appends the check-in
// record in one transaction. A false return means the CAS missed: the
// ticket was not active anymore, and nothing was written.
func (s *Store) RedeemTicket(ctx context.Context, ticketID string, rec *models.CheckInRecord) (bool, error) {
	won := false
	err := s.app.RunInTransaction(func(txApp core.App) error {
		result, err := txApp.DB().NewQuery(`
			UPDATE tickets
			SET status = {:redeemed}
			WHERE id = {:id} AND status = {:active}
		`).Bind(dbx.Params{
			"redeemed": models.TicketStatusRedeemed,
			"id":       ticketID,
			"active":   models.TicketStatusActive,
		}).Execute()
		if err != nil {
			return err
		}

		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		if err := s.appendCheckIn(txApp, rec); err != nil {
			return err
		}
		won = true
		return nil
	})
	return won, err
}

// CheckInGuest is the guest-list twin of RedeemTicket: CAS the entry out of
// an admittable state and append the record atomically.
func (s *Store) CheckInGuest(ctx context.Context, entryID string, rec *models.CheckInRecord) (bool, error) {
	won := false
	err := s.app.RunInTransaction(func(txApp core.App) error {
		result, err := txApp.DB().NewQuery(`
			UPDATE guest_list_entries
			SET status = {:checkedIn}
			WHERE id = {:id} AND status IN ({:pending}, {:confirmed})
		`).Bind(dbx.Params{
			"checkedIn": models.GuestStatusCheckedIn,
			"id":        entryID,
			"pending":   models.GuestStatusPending,
			"confirmed": models.GuestStatusConfirmed,
		}).Execute()
		if err != nil {
			return err
		}

		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		if err := s.appendCheckIn(txApp, rec); err != nil {
			return err
		}
		won = true
		return nil
	})
	return won, err
}

func (s *Store) appendCheckIn(txApp core.App, rec *models.CheckInRecord) error {
	collection, err := txApp.FindCollectionByNameOrId("checkin_records")
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	record.Set("venue_id", rec.VenueID)
	record.Set("event_id", rec.EventID)
	record.Set("ticket_id", rec.TicketID)
	record.Set("guest_entry_id", rec.GuestEntryID)
	record.Set("method", rec.Method)
	record.Set("staff_id", rec.StaffID)
	record.Set("checked_in_at", rec.CheckedInAt)
	if err := txApp.Save(record); err != nil {
		return err
	}
	rec.ID = record.Id
	return nil
}

func (s *Store) LatestCheckInForTicket(ctx context.Context, ticketID string) (*models.CheckInRecord, error) {
	return s.latestCheckIn("ticket_id = {:id}", ticketID)
}

func (s *Store) LatestCheckInForGuest(ctx context.Context, entryID string) (*models.CheckInRecord, error) {
	return s.latestCheckIn("guest_entry_id = {:id}", entryID)
}

func (s *Store) latestCheckIn(filter, id string) (*models.CheckInRecord, error) {
	records, err := s.app.FindRecordsByFilter(
		"checkin_records",
		filter,
		"-checked_in_at",
		1,
		0,
		dbx.Params{"id": id},
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	rec := checkinFromRecord(records[0])
	return &rec, nil
}
