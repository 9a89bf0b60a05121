package pos

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"venuepass/internal/services/pos/toast"
	"venuepass/internal/status"
)

// ToastAdapter wraps the Toast client to conform to Provider
type ToastAdapter struct {
	client *toast.Toast
}

// NewToastAdapter creates a new Toast adapter
func NewToastAdapter(ctx context.Context, config *toast.Config) (*ToastAdapter, error) {
	client, err := toast.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Toast client: %w", err)
	}

	return &ToastAdapter{
		client: client,
	}, nil
}

// Name returns the provider identifier
func (t *ToastAdapter) Name() ProviderName {
	return ProviderToast
}

// FetchTransactions pulls the closed orders recorded since the cursor
func (t *ToastAdapter) FetchTransactions(ctx context.Context, venueID string, since time.Time) ([]RawTransaction, error) {
	orders, err := t.client.FetchOrders(ctx, venueID, since)
	if err != nil {
		return nil, err
	}

	txns := make([]RawTransaction, 0, len(orders))
	for _, o := range orders {
		// cash orders carry no card token and cannot be attributed.
		if o.CardToken == "" {
			continue
		}

		ts, err := time.Parse(time.RFC3339, o.ClosedDate)
		if err != nil {
			return nil, fmt.Errorf("toast order %s: bad closedDate: %w", o.GUID, err)
		}

		txns = append(txns, RawTransaction{
			ProviderTxnID: o.GUID,
			CardToken:     o.CardToken,
			Amount:        o.Amount,
			Currency:      o.Currency,
			OccurredAt:    ts,
		})
	}

	return txns, nil
}

// VerifyWebhook checks the SignedHash header of a push delivery
func (t *ToastAdapter) VerifyWebhook(signature string, body []byte) bool {
	return t.client.VerifySignature(signature, body)
}

// ParseWebhook extracts the order and restaurant id from a push body
func (t *ToastAdapter) ParseWebhook(body []byte) (RawTransaction, string, error) {
	var p struct {
		GUID         string `json:"guid"`
		RestaurantID string `json:"restaurantGuid"`
		CardToken    string `json:"cardToken"`
		Amount       string `json:"amount"`
		Currency     string `json:"currency"`
		PaidDate     string `json:"paidDate"`
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return RawTransaction{}, "", fmt.Errorf("toast webhook: %w", err)
	}

	raw, err := rawFromStrings(p.GUID, p.CardToken, p.Amount, p.Currency, p.PaidDate)
	if err != nil {
		return RawTransaction{}, "", fmt.Errorf("toast webhook: %w", err)
	}

	return raw, p.RestaurantID, nil
}

// SetTransactionChannel sets the channel for receiving push notifications
func (t *ToastAdapter) SetTransactionChannel(ch chan *status.Transaction) {
	t.client.SetTranChannel(ch)
}

// Close gracefully closes the PubNub subscription
func (t *ToastAdapter) Close(ctx context.Context) error {
	t.client.Unsubscribe(ctx)
	return nil
}
