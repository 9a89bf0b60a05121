package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"venuepass/internal/status"
	"venuepass/models"
)

func (s *Store) CreateGuestEntry(ctx context.Context, entry *models.GuestListEntry) error {
	collection, err := s.app.FindCollectionByNameOrId("guest_list_entries")
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	record.Set("venue_id", entry.VenueID)
	record.Set("event_id", entry.EventID)
	record.Set("user_id", entry.UserID)
	record.Set("guest_name", entry.GuestName)
	record.Set("guest_contact", entry.GuestContact)
	record.Set("plus_ones", entry.PlusOnes)
	record.Set("status", entry.Status)
	record.Set("added_by", entry.AddedBy)
	if err := s.app.Save(record); err != nil {
		return err
	}
	entry.ID = record.Id
	entry.CreatedAt = record.GetDateTime("created").Time()
	return nil
}

func (s *Store) GetGuestEntry(ctx context.Context, id string) (models.GuestListEntry, error) {
	record, err := s.app.FindRecordById("guest_list_entries", id)
	if err != nil {
		if isNoRows(err) {
			return models.GuestListEntry{}, status.ErrEntryNotFound
		}
		return models.GuestListEntry{}, err
	}
	return guestFromRecord(record), nil
}

// UpdateGuestStatus CAS-moves the entry from any of the listed states to the
// target state. False means the entry was in none of them.
func (s *Store) UpdateGuestStatus(ctx context.Context, id string, from []string, to string) (bool, error) {
	params := dbx.Params{"id": id, "to": to}
	holders := make([]string, len(from))
	for i, st := range from {
		name := fmt.Sprintf("from%d", i)
		holders[i] = "{:" + name + "}"
		params[name] = st
	}

	result, err := s.app.DB().NewQuery(fmt.Sprintf(`
		UPDATE guest_list_entries
		SET status = {:to}
		WHERE id = {:id} AND status IN (%s)
	`, strings.Join(holders, ", "))).Bind(params).Execute()
	if err != nil {
		return false, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkNoShows flips every still-confirmed entry of an ended event to
// no_show in a single statement. Only confirmed entries count as no-shows;
// pending ones were never expected, and checked-in, removed, and
// already-no-show rows are untouched, so the pass is idempotent.
func (s *Store) MarkNoShows(ctx context.Context, eventID string) (int, error) {
	result, err := s.app.DB().NewQuery(`
		UPDATE guest_list_entries
		SET status = {:noShow}
		WHERE event_id = {:eventId} AND status = {:confirmed}
	`).Bind(dbx.Params{
		"noShow":    models.GuestStatusNoShow,
		"eventId":   eventID,
		"confirmed": models.GuestStatusConfirmed,
	}).Execute()
	if err != nil {
		return 0, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
