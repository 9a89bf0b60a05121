package pos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuepass/internal/services/pos/square"
)

func squareWebhookBody(status string) []byte {
	return []byte(`{
		"type": "payment.updated",
		"data": {
			"object": {
				"payment": {
					"id": "pay_123",
					"location_id": "loc_1",
					"status": "` + status + `",
					"amount_money": {"amount": 4250, "currency": "USD"},
					"card_details": {"card": {"fingerprint": "fp_abc"}},
					"created_at": "2026-08-30T22:15:00Z"
				}
			}
		}
	}`)
}

func TestSquareAdapter_ParseWebhook(t *testing.T) {
	adapter := NewSquareAdapter(&square.Config{})

	raw, venueID, err := adapter.ParseWebhook(squareWebhookBody("COMPLETED"))

	require.NoError(t, err)
	assert.Equal(t, "loc_1", venueID)
	assert.Equal(t, "pay_123", raw.ProviderTxnID)
	assert.Equal(t, "fp_abc", raw.CardToken)
	assert.Equal(t, "USD", raw.Currency)
	// minor units on the wire, major units in RawTransaction
	assert.Equal(t, "42.5", raw.Amount.String())
	assert.Equal(t, 2026, raw.OccurredAt.Year())
}

func TestSquareAdapter_ParseWebhook_NotCompleted(t *testing.T) {
	adapter := NewSquareAdapter(&square.Config{})

	_, _, err := adapter.ParseWebhook(squareWebhookBody("APPROVED"))

	assert.Error(t, err)
}

func TestSquareAdapter_ParseWebhook_BadJSON(t *testing.T) {
	adapter := NewSquareAdapter(&square.Config{})

	_, _, err := adapter.ParseWebhook([]byte("{not json"))

	assert.Error(t, err)
}

func TestRawFromStrings(t *testing.T) {
	raw, err := rawFromStrings("txn1", "card1", "19.99", "USD", "2026-08-30T22:15:00Z")

	require.NoError(t, err)
	assert.Equal(t, "txn1", raw.ProviderTxnID)
	assert.Equal(t, int64(1999), raw.Amount.Shift(2).IntPart())
}

func TestRawFromStrings_Rejects(t *testing.T) {
	cases := []struct {
		name                                    string
		txnID, cardToken, amount, currency, ts string
	}{
		{"missing id", "", "card1", "10", "USD", "2026-08-30T22:15:00Z"},
		{"missing card", "txn1", "", "10", "USD", "2026-08-30T22:15:00Z"},
		{"bad amount", "txn1", "card1", "ten dollars", "USD", "2026-08-30T22:15:00Z"},
		{"bad timestamp", "txn1", "card1", "10", "USD", "yesterday"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := rawFromStrings(c.txnID, c.cardToken, c.amount, c.currency, c.ts)
			assert.Error(t, err)
		})
	}
}
