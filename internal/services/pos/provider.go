package pos

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"venuepass/internal/status"
)

// ProviderName identifies a POS integration.
type ProviderName string

const (
	ProviderToast  ProviderName = "toast"
	ProviderSquare ProviderName = "square"
)

// RawTransaction is the normalized form every provider adapter produces.
// Amount is in major currency units; the ingestor converts to minor units.
type RawTransaction struct {
	ProviderTxnID string          `json:"provider_txn_id"`
	CardToken     string          `json:"card_token"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Provider is the single interface the ingestor sees; a genuine integration
// replaces a stub without touching the ingestor or the rule engine.
type Provider interface {
	// Name returns the provider identifier used in dedup keys and cursors.
	Name() ProviderName

	// FetchTransactions pulls the transactions recorded since the cursor.
	FetchTransactions(ctx context.Context, venueID string, since time.Time) ([]RawTransaction, error)

	// VerifyWebhook checks a push delivery's signature.
	VerifyWebhook(signature string, body []byte) bool

	// ParseWebhook extracts the transaction and venue id from a push body.
	ParseWebhook(body []byte) (RawTransaction, string, error)

	// SetTransactionChannel wires the adapter's own push stream (if it has
	// one) into the ingestor.
	SetTransactionChannel(ch chan *status.Transaction)

	// Close gracefully closes any connections.
	Close(ctx context.Context) error
}
