package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"venuepass/internal/status"
	"venuepass/models"
)

type GuestListStore interface {
	CreateGuestEntry(ctx context.Context, entry *models.GuestListEntry) error
	GetGuestEntry(ctx context.Context, id string) (models.GuestListEntry, error)
	GetEvent(ctx context.Context, id string) (models.Event, error)
	// UpdateGuestStatus CAS-moves the entry from any of the listed states to
	// the target state, returning false when the entry was in none of them.
	UpdateGuestStatus(ctx context.Context, id string, from []string, to string) (bool, error)
	// MarkNoShows flips every still-confirmed entry of the event to no_show
	// in a single statement and reports how many changed. Pending entries
	// were never expected and stay as they are.
	MarkNoShows(ctx context.Context, eventID string) (int, error)
}

type GuestListService struct {
	store GuestListStore
}

func NewGuestListService(store GuestListStore) *GuestListService {
	return &GuestListService{store: store}
}

var errGuestIdentity = errors.New("guestlist: entry needs a user id or a name")

// Add creates a pending entry. Identity is either a registered user id or
// free-text name/contact.
func (s *GuestListService) Add(ctx context.Context, entry models.GuestListEntry) (models.GuestListEntry, error) {
	if entry.UserID == "" && entry.GuestName == "" {
		return models.GuestListEntry{}, errGuestIdentity
	}
	if entry.PlusOnes < 0 {
		entry.PlusOnes = 0
	}
	entry.Status = models.GuestStatusPending
	entry.CreatedAt = time.Now()

	if err := s.store.CreateGuestEntry(ctx, &entry); err != nil {
		return models.GuestListEntry{}, err
	}
	return entry, nil
}

// Confirm moves pending -> confirmed. Confirming twice is a no-op.
func (s *GuestListService) Confirm(ctx context.Context, entryID string) error {
	ok, err := s.store.UpdateGuestStatus(ctx, entryID,
		[]string{models.GuestStatusPending}, models.GuestStatusConfirmed)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	entry, err := s.store.GetGuestEntry(ctx, entryID)
	if err != nil {
		return err
	}
	switch entry.Status {
	case models.GuestStatusConfirmed:
		return nil // already confirmed
	case models.GuestStatusRemoved:
		return status.ErrEntryRemoved
	case models.GuestStatusCheckedIn:
		return status.ErrAlreadyCheckedIn
	default:
		return status.ErrInvalidState
	}
}

// Remove is an admin override, allowed only before check-in.
func (s *GuestListService) Remove(ctx context.Context, entryID string) error {
	ok, err := s.store.UpdateGuestStatus(ctx, entryID,
		[]string{models.GuestStatusPending, models.GuestStatusConfirmed}, models.GuestStatusRemoved)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	entry, err := s.store.GetGuestEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.Status == models.GuestStatusRemoved {
		return nil // already removed
	}
	return status.ErrInvalidState
}

// ReconcileNoShows marks every confirmed-but-never-checked-in entry of an
// ended event as no_show. Idempotent: a second run finds nothing confirmed.
func (s *GuestListService) ReconcileNoShows(ctx context.Context, eventID string) (int, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if !event.Ended(time.Now()) {
		return 0, fmt.Errorf("guestlist: event %s has not ended", eventID)
	}

	n, err := s.store.MarkNoShows(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("reconciled no-shows", "event_id", eventID, "count", n)
	}
	return n, nil
}
