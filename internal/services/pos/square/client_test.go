package square

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentJSON(id string) map[string]any {
	return map[string]any{
		"id":           id,
		"location_id":  "loc_1",
		"status":       "COMPLETED",
		"amount_money": map[string]any{"amount": 1500, "currency": "USD"},
		"card_details": map[string]any{"card": map[string]any{"fingerprint": "fp_" + id}},
		"created_at":   "2026-08-30T22:15:00Z",
	}
}

func TestListPayments_FollowsCursor(t *testing.T) {
	firstPage := make([]map[string]any, 0, listPageSize)
	for i := 0; i < listPageSize; i++ {
		firstPage = append(firstPage, paymentJSON(fmt.Sprintf("pay_%d", i)))
	}

	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Query().Get("cursor"))

		reply := map[string]any{}
		if r.URL.Query().Get("cursor") == "" {
			reply["payments"] = firstPage
			reply["cursor"] = "page2"
		} else {
			reply["payments"] = []map[string]any{paymentJSON("pay_last")}
		}
		_ = json.NewEncoder(w).Encode(reply)
	}))
	defer srv.Close()

	client, err := New(context.Background(), &Config{BaseURL: srv.URL, AccessToken: "tok"})
	require.NoError(t, err)

	payments, err := client.ListPayments(context.Background(), "loc_1", time.Now().Add(-time.Hour))

	require.NoError(t, err)
	// the full window, not just the first page
	assert.Len(t, payments, listPageSize+1)
	assert.Equal(t, "pay_last", payments[listPageSize].ID)
	require.Len(t, requests, 2)
	assert.Equal(t, "page2", requests[1])
}

func TestListPayments_FiltersIncomplete(t *testing.T) {
	cash := paymentJSON("pay_cash")
	cash["card_details"] = map[string]any{"card": map[string]any{"fingerprint": ""}}
	pending := paymentJSON("pay_pending")
	pending["status"] = "APPROVED"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"payments": []map[string]any{paymentJSON("pay_ok"), cash, pending},
		})
	}))
	defer srv.Close()

	client, err := New(context.Background(), &Config{BaseURL: srv.URL, AccessToken: "tok"})
	require.NoError(t, err)

	payments, err := client.ListPayments(context.Background(), "loc_1", time.Now().Add(-time.Hour))

	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "pay_ok", payments[0].ID)
	assert.Equal(t, int64(1500), payments[0].Amount.Shift(2).IntPart())
}
