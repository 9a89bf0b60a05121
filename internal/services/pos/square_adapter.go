package pos

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"venuepass/internal/services/pos/square"
	"venuepass/internal/status"
)

// SquareAdapter wraps the Square client to conform to Provider
type SquareAdapter struct {
	client square.Square
}

// NewSquareAdapter creates a new Square adapter
func NewSquareAdapter(config *square.Config) *SquareAdapter {
	client, _ := square.New(context.Background(), config)
	return &SquareAdapter{
		client: client,
	}
}

// Name returns the provider identifier
func (s *SquareAdapter) Name() ProviderName {
	return ProviderSquare
}

// FetchTransactions pulls the completed payments recorded since the cursor
func (s *SquareAdapter) FetchTransactions(ctx context.Context, venueID string, since time.Time) ([]RawTransaction, error) {
	payments, err := s.client.ListPayments(ctx, venueID, since)
	if err != nil {
		return nil, err
	}

	txns := make([]RawTransaction, 0, len(payments))
	for _, p := range payments {
		txns = append(txns, RawTransaction{
			ProviderTxnID: p.ID,
			CardToken:     p.CardToken,
			Amount:        p.Amount,
			Currency:      p.Currency,
			OccurredAt:    p.CompletedAt,
		})
	}

	return txns, nil
}

// VerifyWebhook checks the x-square-hmacsha256-signature header of a delivery
func (s *SquareAdapter) VerifyWebhook(signature string, body []byte) bool {
	return s.client.VerifySignature(signature, body)
}

// ParseWebhook extracts the payment and location id from a webhook body
func (s *SquareAdapter) ParseWebhook(body []byte) (RawTransaction, string, error) {
	var p struct {
		Data struct {
			Object struct {
				Payment struct {
					ID         string `json:"id"`
					LocationID string `json:"location_id"`
					Status     string `json:"status"`
					AmountMoney struct {
						Amount   int64  `json:"amount"`
						Currency string `json:"currency"`
					} `json:"amount_money"`
					CardDetails struct {
						Card struct {
							Fingerprint string `json:"fingerprint"`
						} `json:"card"`
					} `json:"card_details"`
					CreatedAt string `json:"created_at"`
				} `json:"payment"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return RawTransaction{}, "", fmt.Errorf("square webhook: %w", err)
	}

	pay := p.Data.Object.Payment
	if pay.Status != "COMPLETED" {
		return RawTransaction{}, "", fmt.Errorf("square webhook: payment %s not completed", pay.ID)
	}

	if pay.ID == "" || pay.CardDetails.Card.Fingerprint == "" {
		return RawTransaction{}, "", fmt.Errorf("square webhook: payment missing id or card fingerprint")
	}

	ts, err := time.Parse(time.RFC3339, pay.CreatedAt)
	if err != nil {
		return RawTransaction{}, "", fmt.Errorf("square webhook: bad created_at: %w", err)
	}

	// Square amounts arrive in minor units already.
	return RawTransaction{
		ProviderTxnID: pay.ID,
		CardToken:     pay.CardDetails.Card.Fingerprint,
		Amount:        decimal.New(pay.AmountMoney.Amount, -2),
		Currency:      pay.AmountMoney.Currency,
		OccurredAt:    ts,
	}, pay.LocationID, nil
}

// SetTransactionChannel is a no-op; Square deliveries arrive over webhooks
func (s *SquareAdapter) SetTransactionChannel(_ chan *status.Transaction) {}

// Close gracefully closes any connections
func (s *SquareAdapter) Close(_ context.Context) error {
	return nil
}
