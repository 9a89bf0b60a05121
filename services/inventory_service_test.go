package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuepass/config"
	"venuepass/internal/status"
)

func setupTestInventoryService() (*InventoryService, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	cfg := &config.Config{
		ReservationTTL:   10 * time.Minute,
		ReservationSweep: 15 * time.Second,
	}

	service := &InventoryService{
		Redis:    db,
		Config:   cfg,
		stopChan: make(chan struct{}),
	}

	return service, mock
}

// ignoreArgs matches an Eval expectation by script arity only; the
// reservation id and timestamps are generated inside the call, so the
// expectations carry placeholder values of the right count.
func ignoreArgs(expected, actual []interface{}) error {
	return nil
}

// reserveArgs/confirmArgs are arity placeholders for the script arguments.
var (
	reserveArgs = []interface{}{0, 0, 0, "tier", "resv"}
	confirmArgs = []interface{}{"resv", 0}
)

func TestInventoryService_Reserve_Success(t *testing.T) {
	service, mock := setupTestInventoryService()
	defer mock.ClearExpect()

	mock.CustomMatch(ignoreArgs).
		ExpectEval(reserveScript, []string{"tier:vip", "resv:any", "resv:index:vip"}, reserveArgs...).
		SetVal([]interface{}{"ok"})

	resvID, err := service.Reserve(context.Background(), "vip", 2)

	require.NoError(t, err)
	assert.Contains(t, resvID, "rsv_")
}

func TestInventoryService_Reserve_SoldOut(t *testing.T) {
	service, mock := setupTestInventoryService()
	defer mock.ClearExpect()

	mock.CustomMatch(ignoreArgs).
		ExpectEval(reserveScript, []string{"tier:vip", "resv:any", "resv:index:vip"}, reserveArgs...).
		SetVal([]interface{}{"sold_out"})

	_, err := service.Reserve(context.Background(), "vip", 5)

	assert.ErrorIs(t, err, status.ErrSoldOut)
}

func TestInventoryService_Reserve_WindowClosed(t *testing.T) {
	service, mock := setupTestInventoryService()
	defer mock.ClearExpect()

	mock.CustomMatch(ignoreArgs).
		ExpectEval(reserveScript, []string{"tier:vip", "resv:any", "resv:index:vip"}, reserveArgs...).
		SetVal([]interface{}{"window_closed"})

	_, err := service.Reserve(context.Background(), "vip", 1)

	assert.ErrorIs(t, err, status.ErrWindowClosed)
}

func TestInventoryService_Release_Idempotent(t *testing.T) {
	service, mock := setupTestInventoryService()
	defer mock.ClearExpect()

	// first release frees the hold
	mock.ExpectEval(releaseScript, []string{"resv:rsv_abc"}, "rsv_abc").SetVal(int64(1))
	require.NoError(t, service.Release(context.Background(), "rsv_abc"))

	// second release finds nothing and still succeeds
	mock.ExpectEval(releaseScript, []string{"resv:rsv_abc"}, "rsv_abc").SetVal(int64(0))
	require.NoError(t, service.Release(context.Background(), "rsv_abc"))
}

func TestInventoryService_Confirm_Success(t *testing.T) {
	service, mock := setupTestInventoryService()
	defer mock.ClearExpect()

	mock.CustomMatch(ignoreArgs).
		ExpectEval(confirmScript, []string{"resv:rsv_abc"}, confirmArgs...).
		SetVal([]interface{}{"ok", "vip", int64(2)})

	tierID, qty, err := service.Confirm(context.Background(), "rsv_abc")

	require.NoError(t, err)
	assert.Equal(t, "vip", tierID)
	assert.Equal(t, 2, qty)
}

func TestInventoryService_Confirm_Expired(t *testing.T) {
	service, mock := setupTestInventoryService()
	defer mock.ClearExpect()

	mock.CustomMatch(ignoreArgs).
		ExpectEval(confirmScript, []string{"resv:rsv_gone"}, confirmArgs...).
		SetVal([]interface{}{"expired"})

	_, _, err := service.Confirm(context.Background(), "rsv_gone")

	assert.ErrorIs(t, err, status.ErrReservationNotFound)
}

func TestInventoryService_Snapshot(t *testing.T) {
	service, mock := setupTestInventoryService()
	defer mock.ClearExpect()

	mock.ExpectHGetAll("tier:vip").SetVal(map[string]string{
		"quantity":    "100",
		"sold":        "40",
		"held":        "3",
		"sales_start": "0",
		"sales_end":   "0",
	})

	snapshot, err := service.Snapshot(context.Background(), "vip")

	require.NoError(t, err)
	assert.Equal(t, 100, snapshot["quantity"])
	assert.Equal(t, 40, snapshot["sold"])
	assert.Equal(t, 3, snapshot["held"])
}
