package pos

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// rawFromStrings builds a RawTransaction from the string fields of a webhook
// body, rejecting payloads with missing identifiers or unparsable values.
func rawFromStrings(txnID, cardToken, amount, currency, occurredAt string) (RawTransaction, error) {
	if txnID == "" {
		return RawTransaction{}, fmt.Errorf("missing transaction id")
	}
	if cardToken == "" {
		return RawTransaction{}, fmt.Errorf("missing card token")
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return RawTransaction{}, fmt.Errorf("bad amount %q: %w", amount, err)
	}

	ts, err := time.Parse(time.RFC3339, occurredAt)
	if err != nil {
		return RawTransaction{}, fmt.Errorf("bad timestamp %q: %w", occurredAt, err)
	}

	return RawTransaction{
		ProviderTxnID: txnID,
		CardToken:     cardToken,
		Amount:        amt,
		Currency:      currency,
		OccurredAt:    ts,
	}, nil
}
