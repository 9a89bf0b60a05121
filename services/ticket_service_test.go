package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuepass/config"
	"venuepass/internal/status"
	"venuepass/models"
)

type fakeTicketStore struct {
	tiers        map[string]models.TicketTier
	tickets      map[string]*models.Ticket // keyed by id
	nextID       int
	failCreateAt int // 1-based ticket number that fails, 0 = never
	soldCall     struct {
		tierID string
		qty    int
	}
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{
		tiers:   make(map[string]models.TicketTier),
		tickets: make(map[string]*models.Ticket),
	}
}

func (f *fakeTicketStore) GetTier(_ context.Context, tierID string) (models.TicketTier, error) {
	tier, ok := f.tiers[tierID]
	if !ok {
		return models.TicketTier{}, status.ErrTierNotFound
	}
	return tier, nil
}

func (f *fakeTicketStore) CreateTicket(_ context.Context, t *models.Ticket) error {
	f.nextID++
	if f.failCreateAt > 0 && f.nextID == f.failCreateAt {
		return errors.New("create ticket: db unavailable")
	}
	t.ID = "tkt_" + string(rune('0'+f.nextID))
	clone := *t
	f.tickets[t.ID] = &clone
	return nil
}

func (f *fakeTicketStore) GetTicket(_ context.Context, id string) (models.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return models.Ticket{}, status.ErrTicketNotFound
	}
	return *t, nil
}

func (f *fakeTicketStore) GetTicketByToken(_ context.Context, token string) (models.Ticket, error) {
	for _, t := range f.tickets {
		if t.QRToken == token {
			return *t, nil
		}
	}
	return models.Ticket{}, status.ErrTicketNotFound
}

func (f *fakeTicketStore) ConfirmTierSold(_ context.Context, tierID string, qty int) error {
	f.soldCall.tierID = tierID
	f.soldCall.qty = qty
	return nil
}

func (f *fakeTicketStore) TransferTicket(_ context.Context, oldID, expectedOwner string, replacement *models.Ticket) error {
	old, ok := f.tickets[oldID]
	if !ok || old.OwnerID != expectedOwner || old.Status != models.TicketStatusActive {
		return status.ErrInvalidState
	}
	old.Status = models.TicketStatusTransferred
	return f.CreateTicket(context.Background(), replacement)
}

func setupTicketService(t *testing.T) (*TicketService, *fakeTicketStore, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	inventory := &InventoryService{
		Redis: db,
		Config: &config.Config{
			ReservationTTL:   10 * time.Minute,
			ReservationSweep: 15 * time.Second,
		},
		stopChan: make(chan struct{}),
	}
	store := newFakeTicketStore()
	store.tiers["vip"] = models.TicketTier{
		ID:       "vip",
		EventID:  "evt1",
		Name:     "VIP",
		Price:    15000,
		Quantity: 100,
	}
	return NewTicketService(store, inventory, NewNotifier(nil)), store, mock
}

func TestTicketService_Issue(t *testing.T) {
	service, store, mock := setupTicketService(t)
	defer mock.ClearExpect()

	mock.CustomMatch(ignoreArgs).
		ExpectEval(confirmScript, []string{"resv:rsv_abc"}, confirmArgs...).
		SetVal([]interface{}{"ok", "vip", int64(2)})

	tickets, err := service.Issue(context.Background(), "rsv_abc", "user1")

	require.NoError(t, err)
	require.Len(t, tickets, 2)
	// every unit gets its own token
	assert.NotEqual(t, tickets[0].QRToken, tickets[1].QRToken)
	for _, tk := range tickets {
		assert.Equal(t, "user1", tk.OwnerID)
		assert.Equal(t, "evt1", tk.EventID)
		assert.Equal(t, models.TicketStatusActive, tk.Status)
		assert.Len(t, tk.QRToken, 32)
	}
	assert.Equal(t, "vip", store.soldCall.tierID)
	assert.Equal(t, 2, store.soldCall.qty)
}

func TestTicketService_Issue_ExpiredReservation(t *testing.T) {
	service, _, mock := setupTicketService(t)
	defer mock.ClearExpect()

	mock.CustomMatch(ignoreArgs).
		ExpectEval(confirmScript, []string{"resv:rsv_gone"}, confirmArgs...).
		SetVal([]interface{}{"not_found"})

	_, err := service.Issue(context.Background(), "rsv_gone", "user1")

	assert.ErrorIs(t, err, status.ErrReservationNotFound)
}

func TestTicketService_Issue_PartialFailureCompensates(t *testing.T) {
	service, store, mock := setupTicketService(t)
	defer mock.ClearExpect()
	store.failCreateAt = 2

	mock.CustomMatch(ignoreArgs).
		ExpectEval(confirmScript, []string{"resv:rsv_abc"}, confirmArgs...).
		SetVal([]interface{}{"ok", "vip", int64(2)})
	// the unissued unit goes back: sold counter decremented by one
	mock.ExpectHIncrBy("tier:vip", "sold", -1).SetVal(40)

	tickets, err := service.Issue(context.Background(), "rsv_abc", "user1")

	require.Error(t, err)
	assert.Len(t, tickets, 1)
	// the durable mirror only counts the ticket that exists
	assert.Equal(t, 1, store.soldCall.qty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketService_Transfer(t *testing.T) {
	service, store, _ := setupTicketService(t)
	store.tickets["tkt1"] = &models.Ticket{
		ID:      "tkt1",
		EventID: "evt1",
		TierID:  "vip",
		OwnerID: "alice",
		QRToken: "oldtoken",
		Status:  models.TicketStatusActive,
	}

	replacement, err := service.Transfer(context.Background(), "tkt1", "alice", "bob")

	require.NoError(t, err)
	assert.Equal(t, "bob", replacement.OwnerID)
	assert.Equal(t, models.TicketStatusActive, replacement.Status)
	// the old token must not survive the transfer
	assert.NotEqual(t, "oldtoken", replacement.QRToken)
	assert.Equal(t, models.TicketStatusTransferred, store.tickets["tkt1"].Status)
}

func TestTicketService_Transfer_NotOwner(t *testing.T) {
	service, store, _ := setupTicketService(t)
	store.tickets["tkt1"] = &models.Ticket{
		ID:      "tkt1",
		OwnerID: "alice",
		Status:  models.TicketStatusActive,
	}

	_, err := service.Transfer(context.Background(), "tkt1", "mallory", "bob")

	assert.ErrorIs(t, err, status.ErrNotOwner)
}

func TestTicketService_Transfer_Redeemed(t *testing.T) {
	service, store, _ := setupTicketService(t)
	store.tickets["tkt1"] = &models.Ticket{
		ID:      "tkt1",
		OwnerID: "alice",
		Status:  models.TicketStatusRedeemed,
	}

	_, err := service.Transfer(context.Background(), "tkt1", "alice", "bob")

	assert.ErrorIs(t, err, status.ErrInvalidState)
}

func TestTicketService_Validate(t *testing.T) {
	service, store, _ := setupTicketService(t)
	store.tickets["tkt1"] = &models.Ticket{
		ID:      "tkt1",
		OwnerID: "alice",
		QRToken: "tok1",
		Status:  models.TicketStatusActive,
	}

	ticket, err := service.Validate(context.Background(), "tok1")
	require.NoError(t, err)
	assert.Equal(t, "tkt1", ticket.ID)
	// validate never consumes the ticket
	assert.Equal(t, models.TicketStatusActive, store.tickets["tkt1"].Status)

	_, err = service.Validate(context.Background(), "missing")
	assert.ErrorIs(t, err, status.ErrTokenNotFound)
}
