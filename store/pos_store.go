package store

import (
	"context"
	"strings"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"venuepass/models"
)

// isUniqueViolation matches both the raw sqlite error and PocketBase's
// validation wrapper for a unique index hit.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "validation_not_unique")
}

// InsertTransaction is write-once on (provider, venue_id, provider_txn_id).
// The unique index is the authority; a duplicate insert from any path
// (poll, webhook, retry) reports created=false and leaves the stored row
// untouched.
func (s *Store) InsertTransaction(ctx context.Context, t *models.POSTransaction) (bool, error) {
	collection, err := s.app.FindCollectionByNameOrId("pos_transactions")
	if err != nil {
		return false, err
	}

	record := core.NewRecord(collection)
	record.Set("provider", t.Provider)
	record.Set("venue_id", t.VenueID)
	record.Set("provider_txn_id", t.ProviderTxnID)
	record.Set("card_token", t.CardToken)
	record.Set("user_id", t.UserID)
	record.Set("amount", t.Amount)
	record.Set("currency", t.Currency)
	record.Set("occurred_at", t.OccurredAt)

	if err := s.app.Save(record); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	t.ID = record.Id
	return true, nil
}

func (s *Store) FindUserByCardToken(ctx context.Context, cardToken string) (string, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"card_links",
		"card_token = {:token}",
		dbx.Params{"token": cardToken},
	)
	if err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return record.GetString("user_id"), nil
}

func (s *Store) GetCursor(ctx context.Context, provider, venueID string) (models.SyncCursor, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"pos_cursors",
		"provider = {:provider} && venue_id = {:venueId}",
		dbx.Params{"provider": provider, "venueId": venueID},
	)
	if err != nil {
		if isNoRows(err) {
			return models.SyncCursor{Provider: provider, VenueID: venueID}, nil
		}
		return models.SyncCursor{}, err
	}

	return models.SyncCursor{
		Provider:   provider,
		VenueID:    venueID,
		LastSyncAt: record.GetDateTime("last_sync_at").Time(),
	}, nil
}

func (s *Store) AdvanceCursor(ctx context.Context, provider, venueID string, to time.Time) error {
	record, err := s.app.FindFirstRecordByFilter(
		"pos_cursors",
		"provider = {:provider} && venue_id = {:venueId}",
		dbx.Params{"provider": provider, "venueId": venueID},
	)
	if err != nil {
		if !isNoRows(err) {
			return err
		}
		collection, cerr := s.app.FindCollectionByNameOrId("pos_cursors")
		if cerr != nil {
			return cerr
		}
		record = core.NewRecord(collection)
		record.Set("provider", provider)
		record.Set("venue_id", venueID)
	}

	// cursors only move forward; a stale concurrent sync cannot rewind one.
	if record.GetDateTime("last_sync_at").Time().After(to) {
		return nil
	}
	record.Set("last_sync_at", to)
	return s.app.Save(record)
}

func (s *Store) ListVenuesForProvider(ctx context.Context, provider string) ([]string, error) {
	records, err := s.app.FindRecordsByFilter(
		"venues",
		"pos_provider = {:provider}",
		"",
		-1,
		0,
		dbx.Params{"provider": provider},
	)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.Id)
	}
	return ids, nil
}
