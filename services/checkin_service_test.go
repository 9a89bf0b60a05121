package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuepass/internal/status"
	"venuepass/models"
)

// fakeCheckinStore keeps everything in maps and applies the same CAS
// semantics the real store enforces with SQL; the mutex stands in for the
// database transaction.
type fakeCheckinStore struct {
	mu       sync.Mutex
	tickets  map[string]*models.Ticket // keyed by token
	events   map[string]models.Event
	guests   map[string]*models.GuestListEntry
	checkins []models.CheckInRecord
}

func newFakeCheckinStore() *fakeCheckinStore {
	return &fakeCheckinStore{
		tickets: make(map[string]*models.Ticket),
		events:  make(map[string]models.Event),
		guests:  make(map[string]*models.GuestListEntry),
	}
}

func (f *fakeCheckinStore) GetTicketByToken(_ context.Context, token string) (models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[token]
	if !ok {
		return models.Ticket{}, status.ErrTicketNotFound
	}
	return *t, nil
}

func (f *fakeCheckinStore) GetEvent(_ context.Context, id string) (models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return models.Event{}, status.ErrEventNotFound
	}
	return e, nil
}

func (f *fakeCheckinStore) GetGuestEntry(_ context.Context, id string) (models.GuestListEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guests[id]
	if !ok {
		return models.GuestListEntry{}, status.ErrEntryNotFound
	}
	return *g, nil
}

func (f *fakeCheckinStore) RedeemTicket(_ context.Context, ticketID string, rec *models.CheckInRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.ID == ticketID {
			if t.Status != models.TicketStatusActive {
				return false, nil
			}
			t.Status = models.TicketStatusRedeemed
			rec.ID = "rec_" + ticketID
			f.checkins = append(f.checkins, *rec)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCheckinStore) CheckInGuest(_ context.Context, entryID string, rec *models.CheckInRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guests[entryID]
	if !ok || !g.Admittable() {
		return false, nil
	}
	g.Status = models.GuestStatusCheckedIn
	rec.ID = "rec_" + entryID
	f.checkins = append(f.checkins, *rec)
	return true, nil
}

func (f *fakeCheckinStore) LatestCheckInForTicket(_ context.Context, ticketID string) (*models.CheckInRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.checkins) - 1; i >= 0; i-- {
		if f.checkins[i].TicketID == ticketID {
			rec := f.checkins[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (f *fakeCheckinStore) LatestCheckInForGuest(_ context.Context, entryID string) (*models.CheckInRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.checkins) - 1; i >= 0; i-- {
		if f.checkins[i].GuestEntryID == entryID {
			rec := f.checkins[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func setupCheckin(t *testing.T) (*CheckinService, *fakeCheckinStore) {
	t.Helper()
	store := newFakeCheckinStore()
	store.events["evt1"] = models.Event{
		ID:      "evt1",
		VenueID: "venue1",
		Status:  models.EventStatusLive,
		StartAt: time.Now().Add(-time.Hour),
		EndAt:   time.Now().Add(time.Hour),
	}
	store.tickets["tok123"] = &models.Ticket{
		ID:      "tkt1",
		EventID: "evt1",
		OwnerID: "user1",
		QRToken: "tok123",
		Status:  models.TicketStatusActive,
	}
	return NewCheckinService(store, NewNotifier(nil), true), store
}

func TestCheckinService_CheckIn_Success(t *testing.T) {
	service, store := setupCheckin(t)

	rec, err := service.CheckIn(context.Background(), "tok123", "venue1", "staff1")

	require.NoError(t, err)
	assert.Equal(t, "tkt1", rec.TicketID)
	assert.Equal(t, models.CheckInMethodQR, rec.Method)
	assert.Equal(t, "staff1", rec.StaffID)
	assert.Equal(t, models.TicketStatusRedeemed, store.tickets["tok123"].Status)
	assert.Len(t, store.checkins, 1)
}

func TestCheckinService_CheckIn_SecondScanLoses(t *testing.T) {
	service, store := setupCheckin(t)
	ctx := context.Background()

	first, err := service.CheckIn(ctx, "tok123", "venue1", "staff1")
	require.NoError(t, err)

	_, err = service.CheckIn(ctx, "tok123", "venue1", "staff2")
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrAlreadyRedeemed)

	// the loser sees who won and when
	var conflict *status.ConflictDetail
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "staff1", conflict.StaffID)
	assert.WithinDuration(t, first.CheckedInAt, conflict.CheckedInAt, time.Second)

	// exactly one check-in record, ever
	assert.Len(t, store.checkins, 1)
}

func TestCheckinService_CheckIn_ConcurrentScansOneWinner(t *testing.T) {
	service, store := setupCheckin(t)
	ctx := context.Background()

	const scanners = 16
	results := make(chan error, scanners)

	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < scanners; i++ {
		staff := "staff_" + string(rune('a'+i))
		go func() {
			start.Wait()
			_, err := service.CheckIn(ctx, "tok123", "venue1", staff)
			results <- err
		}()
	}
	start.Done()

	wins, conflicts := 0, 0
	for i := 0; i < scanners; i++ {
		err := <-results
		switch {
		case err == nil:
			wins++
		case errors.Is(err, status.ErrAlreadyRedeemed):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, scanners-1, conflicts)
	assert.Len(t, store.checkins, 1)
	assert.Equal(t, models.TicketStatusRedeemed, store.tickets["tok123"].Status)
}

func TestCheckinService_CheckIn_UnknownToken(t *testing.T) {
	service, _ := setupCheckin(t)

	_, err := service.CheckIn(context.Background(), "nope", "venue1", "staff1")

	assert.ErrorIs(t, err, status.ErrTokenNotFound)
}

func TestCheckinService_CheckIn_WrongVenue(t *testing.T) {
	service, store := setupCheckin(t)

	_, err := service.CheckIn(context.Background(), "tok123", "venue2", "staff1")

	assert.ErrorIs(t, err, status.ErrWrongVenue)
	// the ticket is untouched
	assert.Equal(t, models.TicketStatusActive, store.tickets["tok123"].Status)
}

func TestCheckinService_CheckIn_EventNotLive(t *testing.T) {
	service, store := setupCheckin(t)
	store.events["evt1"] = models.Event{
		ID:      "evt1",
		VenueID: "venue1",
		Status:  models.EventStatusUpcoming,
		StartAt: time.Now().Add(time.Hour),
		EndAt:   time.Now().Add(2 * time.Hour),
	}

	_, err := service.CheckIn(context.Background(), "tok123", "venue1", "staff1")

	assert.ErrorIs(t, err, status.ErrEventNotLive)
}

func TestCheckinService_CheckIn_LiveNotEnforced(t *testing.T) {
	_, store := setupCheckin(t)
	store.events["evt1"] = models.Event{
		ID:      "evt1",
		VenueID: "venue1",
		Status:  models.EventStatusUpcoming,
		StartAt: time.Now().Add(time.Hour),
		EndAt:   time.Now().Add(2 * time.Hour),
	}
	service := NewCheckinService(store, NewNotifier(nil), false)

	_, err := service.CheckIn(context.Background(), "tok123", "venue1", "staff1")

	assert.NoError(t, err)
}

func TestCheckinService_CheckInGuest_Success(t *testing.T) {
	service, store := setupCheckin(t)
	store.guests["g1"] = &models.GuestListEntry{
		ID:      "g1",
		VenueID: "venue1",
		EventID: "evt1",
		Status:  models.GuestStatusConfirmed,
	}

	rec, err := service.CheckInGuest(context.Background(), "g1", "venue1", "staff1")

	require.NoError(t, err)
	assert.Equal(t, "g1", rec.GuestEntryID)
	assert.Empty(t, rec.TicketID)
	assert.Equal(t, models.GuestStatusCheckedIn, store.guests["g1"].Status)
}

func TestCheckinService_CheckInGuest_Removed(t *testing.T) {
	service, store := setupCheckin(t)
	store.guests["g1"] = &models.GuestListEntry{
		ID:      "g1",
		VenueID: "venue1",
		Status:  models.GuestStatusRemoved,
	}

	_, err := service.CheckInGuest(context.Background(), "g1", "venue1", "staff1")

	assert.ErrorIs(t, err, status.ErrEntryRemoved)
}

func TestCheckinService_CheckInGuest_Twice(t *testing.T) {
	service, store := setupCheckin(t)
	store.guests["g1"] = &models.GuestListEntry{
		ID:      "g1",
		VenueID: "venue1",
		Status:  models.GuestStatusPending,
	}
	ctx := context.Background()

	_, err := service.CheckInGuest(ctx, "g1", "venue1", "staff1")
	require.NoError(t, err)

	_, err = service.CheckInGuest(ctx, "g1", "venue1", "staff2")
	assert.ErrorIs(t, err, status.ErrAlreadyCheckedIn)
	assert.Len(t, store.checkins, 1)
}
