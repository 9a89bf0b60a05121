package models

import (
	"time"
)

// POSTransaction is immutable once stored. (Provider, VenueID, ProviderTxnID)
// is the dedup key; re-ingesting the same provider transaction is a no-op.
type POSTransaction struct {
	ID            string    `json:"id"`
	Provider      string    `json:"provider"`
	VenueID       string    `json:"venue_id"`
	ProviderTxnID string    `json:"provider_txn_id"`
	CardToken     string    `json:"card_token"` // pseudonymous, never a real PAN
	UserID        string    `json:"user_id,omitempty"`
	Amount        int64     `json:"amount"` // minor currency units
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Matched reports whether the card token resolved to a registered user.
// Unmatched transactions are stored but excluded from rule evaluation.
func (t POSTransaction) Matched() bool {
	return t.UserID != ""
}

// SyncCursor tracks how far a (provider, venue) polling sync has durably
// progressed. It advances only after every fetched transaction is stored.
type SyncCursor struct {
	Provider   string    `json:"provider"`
	VenueID    string    `json:"venue_id"`
	LastSyncAt time.Time `json:"last_sync_at"`
}
