package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"venuepass/internal/status"
	"venuepass/models"
	"venuepass/monitoring"
)

// CheckinStore is the atomic side of redemption. RedeemTicket and
// CheckInGuest must perform their status CAS and the record append in one
// transaction; they return false (with no side effects) when the CAS misses,
// which is how two scanners racing on the same code resolve to exactly one
// winner.
type CheckinStore interface {
	GetTicketByToken(ctx context.Context, token string) (models.Ticket, error)
	GetEvent(ctx context.Context, id string) (models.Event, error)
	GetGuestEntry(ctx context.Context, id string) (models.GuestListEntry, error)
	RedeemTicket(ctx context.Context, ticketID string, rec *models.CheckInRecord) (bool, error)
	CheckInGuest(ctx context.Context, entryID string, rec *models.CheckInRecord) (bool, error)
	LatestCheckInForTicket(ctx context.Context, ticketID string) (*models.CheckInRecord, error)
	LatestCheckInForGuest(ctx context.Context, entryID string) (*models.CheckInRecord, error)
}

type CheckinService struct {
	store            CheckinStore
	notifier         *Notifier
	enforceEventLive bool
}

func NewCheckinService(store CheckinStore, notifier *Notifier, enforceEventLive bool) *CheckinService {
	return &CheckinService{
		store:            store,
		notifier:         notifier,
		enforceEventLive: enforceEventLive,
	}
}

// CheckIn validates a scanned QR token and redeems the ticket. The losing
// side of a double scan gets ErrAlreadyRedeemed with the winning scan's time
// and staff id, never a retryable error.
func (s *CheckinService) CheckIn(ctx context.Context, token, venueID, staffID string) (models.CheckInRecord, error) {
	ticket, err := s.store.GetTicketByToken(ctx, token)
	if err != nil {
		if errors.Is(err, status.ErrTicketNotFound) {
			monitoring.TrackCheckIn(models.CheckInMethodQR, "not_found")
			return models.CheckInRecord{}, status.ErrTokenNotFound
		}
		return models.CheckInRecord{}, err
	}

	event, err := s.store.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return models.CheckInRecord{}, err
	}
	if event.VenueID != venueID {
		monitoring.TrackCheckIn(models.CheckInMethodQR, "wrong_venue")
		return models.CheckInRecord{}, status.ErrWrongVenue
	}
	if s.enforceEventLive && !event.IsLive(time.Now()) {
		monitoring.TrackCheckIn(models.CheckInMethodQR, "event_not_live")
		return models.CheckInRecord{}, status.ErrEventNotLive
	}

	rec := models.CheckInRecord{
		VenueID:     venueID,
		EventID:     ticket.EventID,
		TicketID:    ticket.ID,
		Method:      models.CheckInMethodQR,
		StaffID:     staffID,
		CheckedInAt: time.Now(),
	}

	ok, err := s.store.RedeemTicket(ctx, ticket.ID, &rec)
	if err != nil {
		return models.CheckInRecord{}, err
	}
	if !ok {
		monitoring.TrackCheckIn(models.CheckInMethodQR, "already_redeemed")
		return models.CheckInRecord{}, s.redeemConflict(ctx, ticket.ID)
	}

	monitoring.TrackCheckIn(models.CheckInMethodQR, "success")
	s.notifier.TicketRedeemed(venueID, rec)
	return rec, nil
}

// CheckInGuest applies the same atomicity rule to guest list entries.
func (s *CheckinService) CheckInGuest(ctx context.Context, entryID, venueID, staffID string) (models.CheckInRecord, error) {
	entry, err := s.store.GetGuestEntry(ctx, entryID)
	if err != nil {
		return models.CheckInRecord{}, err
	}
	if entry.VenueID != venueID {
		monitoring.TrackCheckIn(models.CheckInMethodGuestList, "wrong_venue")
		return models.CheckInRecord{}, status.ErrWrongVenue
	}

	switch entry.Status {
	case models.GuestStatusRemoved:
		monitoring.TrackCheckIn(models.CheckInMethodGuestList, "removed")
		return models.CheckInRecord{}, status.ErrEntryRemoved
	case models.GuestStatusCheckedIn:
		monitoring.TrackCheckIn(models.CheckInMethodGuestList, "already_checked_in")
		return models.CheckInRecord{}, s.guestConflict(ctx, entryID)
	}

	rec := models.CheckInRecord{
		VenueID:      venueID,
		EventID:      entry.EventID,
		GuestEntryID: entry.ID,
		Method:       models.CheckInMethodGuestList,
		StaffID:      staffID,
		CheckedInAt:  time.Now(),
	}

	ok, err := s.store.CheckInGuest(ctx, entry.ID, &rec)
	if err != nil {
		return models.CheckInRecord{}, err
	}
	if !ok {
		// Lost a race, or the entry was removed between read and CAS.
		monitoring.TrackCheckIn(models.CheckInMethodGuestList, "already_checked_in")
		current, gerr := s.store.GetGuestEntry(ctx, entryID)
		if gerr == nil && current.Status == models.GuestStatusRemoved {
			return models.CheckInRecord{}, status.ErrEntryRemoved
		}
		return models.CheckInRecord{}, s.guestConflict(ctx, entryID)
	}

	monitoring.TrackCheckIn(models.CheckInMethodGuestList, "success")
	s.notifier.GuestCheckedIn(venueID, rec)
	return rec, nil
}

func (s *CheckinService) redeemConflict(ctx context.Context, ticketID string) error {
	prior, err := s.store.LatestCheckInForTicket(ctx, ticketID)
	if err != nil || prior == nil {
		if err != nil {
			slog.Error("check-in conflict context lookup failed", "ticket_id", ticketID, "error", err)
		}
		return status.ErrAlreadyRedeemed
	}
	return &status.ConflictDetail{
		Err:         status.ErrAlreadyRedeemed,
		CheckedInAt: prior.CheckedInAt,
		StaffID:     prior.StaffID,
	}
}

func (s *CheckinService) guestConflict(ctx context.Context, entryID string) error {
	prior, err := s.store.LatestCheckInForGuest(ctx, entryID)
	if err != nil || prior == nil {
		if err != nil {
			slog.Error("guest conflict context lookup failed", "guest_entry_id", entryID, "error", err)
		}
		return status.ErrAlreadyCheckedIn
	}
	return &status.ConflictDetail{
		Err:         status.ErrAlreadyCheckedIn,
		CheckedInAt: prior.CheckedInAt,
		StaffID:     prior.StaffID,
	}
}
