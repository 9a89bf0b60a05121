package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuepass/internal/status"
	"venuepass/models"
)

type fakeGuestListStore struct {
	entries map[string]*models.GuestListEntry
	events  map[string]models.Event
	nextID  int
}

func newFakeGuestListStore() *fakeGuestListStore {
	return &fakeGuestListStore{
		entries: make(map[string]*models.GuestListEntry),
		events:  make(map[string]models.Event),
	}
}

func (f *fakeGuestListStore) CreateGuestEntry(_ context.Context, entry *models.GuestListEntry) error {
	f.nextID++
	entry.ID = "g_" + string(rune('0'+f.nextID))
	clone := *entry
	f.entries[entry.ID] = &clone
	return nil
}

func (f *fakeGuestListStore) GetGuestEntry(_ context.Context, id string) (models.GuestListEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return models.GuestListEntry{}, status.ErrEntryNotFound
	}
	return *e, nil
}

func (f *fakeGuestListStore) GetEvent(_ context.Context, id string) (models.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return models.Event{}, status.ErrEventNotFound
	}
	return e, nil
}

func (f *fakeGuestListStore) UpdateGuestStatus(_ context.Context, id string, from []string, to string) (bool, error) {
	e, ok := f.entries[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if e.Status == s {
			e.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGuestListStore) MarkNoShows(_ context.Context, eventID string) (int, error) {
	n := 0
	for _, e := range f.entries {
		if e.EventID == eventID && e.Status == models.GuestStatusConfirmed {
			e.Status = models.GuestStatusNoShow
			n++
		}
	}
	return n, nil
}

func TestGuestListService_Add(t *testing.T) {
	store := newFakeGuestListStore()
	service := NewGuestListService(store)

	entry, err := service.Add(context.Background(), models.GuestListEntry{
		VenueID:   "venue1",
		EventID:   "evt1",
		GuestName: "Jamie",
		PlusOnes:  -3,
		AddedBy:   "staff1",
	})

	require.NoError(t, err)
	assert.Equal(t, models.GuestStatusPending, entry.Status)
	assert.Equal(t, 0, entry.PlusOnes)
	assert.NotEmpty(t, entry.ID)
}

func TestGuestListService_Add_NoIdentity(t *testing.T) {
	service := NewGuestListService(newFakeGuestListStore())

	_, err := service.Add(context.Background(), models.GuestListEntry{
		VenueID: "venue1",
		EventID: "evt1",
	})

	assert.Error(t, err)
}

func TestGuestListService_Confirm_Idempotent(t *testing.T) {
	store := newFakeGuestListStore()
	store.entries["g1"] = &models.GuestListEntry{ID: "g1", Status: models.GuestStatusPending}
	service := NewGuestListService(store)
	ctx := context.Background()

	require.NoError(t, service.Confirm(ctx, "g1"))
	assert.Equal(t, models.GuestStatusConfirmed, store.entries["g1"].Status)

	// confirming again is a no-op, not an error
	assert.NoError(t, service.Confirm(ctx, "g1"))
}

func TestGuestListService_Confirm_Removed(t *testing.T) {
	store := newFakeGuestListStore()
	store.entries["g1"] = &models.GuestListEntry{ID: "g1", Status: models.GuestStatusRemoved}
	service := NewGuestListService(store)

	err := service.Confirm(context.Background(), "g1")

	assert.ErrorIs(t, err, status.ErrEntryRemoved)
}

func TestGuestListService_Remove(t *testing.T) {
	store := newFakeGuestListStore()
	store.entries["g1"] = &models.GuestListEntry{ID: "g1", Status: models.GuestStatusConfirmed}
	service := NewGuestListService(store)
	ctx := context.Background()

	require.NoError(t, service.Remove(ctx, "g1"))
	assert.Equal(t, models.GuestStatusRemoved, store.entries["g1"].Status)

	// removing twice is fine
	assert.NoError(t, service.Remove(ctx, "g1"))
}

func TestGuestListService_Remove_AfterCheckIn(t *testing.T) {
	store := newFakeGuestListStore()
	store.entries["g1"] = &models.GuestListEntry{ID: "g1", Status: models.GuestStatusCheckedIn}
	service := NewGuestListService(store)

	err := service.Remove(context.Background(), "g1")

	assert.ErrorIs(t, err, status.ErrInvalidState)
}

func TestGuestListService_ReconcileNoShows(t *testing.T) {
	store := newFakeGuestListStore()
	store.events["evt1"] = models.Event{
		ID:     "evt1",
		Status: models.EventStatusCompleted,
		EndAt:  time.Now().Add(-time.Hour),
	}
	store.entries["g1"] = &models.GuestListEntry{ID: "g1", EventID: "evt1", Status: models.GuestStatusConfirmed}
	store.entries["g2"] = &models.GuestListEntry{ID: "g2", EventID: "evt1", Status: models.GuestStatusCheckedIn}
	store.entries["g3"] = &models.GuestListEntry{ID: "g3", EventID: "evt1", Status: models.GuestStatusPending}
	service := NewGuestListService(store)
	ctx := context.Background()

	n, err := service.ReconcileNoShows(ctx, "evt1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.GuestStatusNoShow, store.entries["g1"].Status)
	assert.Equal(t, models.GuestStatusCheckedIn, store.entries["g2"].Status)
	// pending entries were never expected; they are not no-shows
	assert.Equal(t, models.GuestStatusPending, store.entries["g3"].Status)

	// second run finds nothing left to mark
	n, err = service.ReconcileNoShows(ctx, "evt1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestGuestListService_ReconcileNoShows_EventStillRunning(t *testing.T) {
	store := newFakeGuestListStore()
	store.events["evt1"] = models.Event{
		ID:     "evt1",
		Status: models.EventStatusLive,
		EndAt:  time.Now().Add(time.Hour),
	}
	service := NewGuestListService(store)

	_, err := service.ReconcileNoShows(context.Background(), "evt1")

	assert.Error(t, err)
}
