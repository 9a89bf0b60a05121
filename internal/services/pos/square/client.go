package square

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// paymentReply is the shape of a payment in the Square API response.
	// Amounts come back in minor units.
	paymentReply struct {
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
	}
)

const listPageSize = 100

// ListPayments gets the completed payments for a location since the given
// time, following the reply cursor until the window is exhausted.
func (s *square) ListPayments(ctx context.Context, locationID string, since time.Time) ([]Payment, error) {
	var payments []Payment

	cursor := ""
	for {
		page, next, err := s.listPaymentsPage(ctx, locationID, since, cursor)
		if err != nil {
			return nil, err
		}
		payments = append(payments, page...)

		if next == "" {
			return payments, nil
		}
		cursor = next
	}
}

func (s *square) listPaymentsPage(ctx context.Context, locationID string, since time.Time, cursor string) ([]Payment, string, error) {
	_baseURL, _ := url.Parse(s.baseURL)

	query := url.Values{}
	query.Set("location_id", locationID)
	query.Set("begin_time", since.UTC().Format(time.RFC3339))
	query.Set("sort_order", "ASC")
	query.Set("limit", strconv.Itoa(listPageSize))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	endpoint := fmt.Sprintf("%s/v2/payments?%s", _baseURL.String(), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("listPayments: http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.accessToken))

	resp, err := s.hc.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("listPayments: http.DefaultClient.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		rbody, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("listPayments: resp.StatusCode: %d, resp.Body: %s", resp.StatusCode, rbody)
	}

	var reply struct {
		Payments []paymentReply `json:"payments"`
		Cursor   string         `json:"cursor"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return nil, "", fmt.Errorf("listPayments: json.Decode: %w", err)
	}

	payments := make([]Payment, 0, len(reply.Payments))
	for _, p := range reply.Payments {
		// only completed card payments count toward spend.
		if p.Status != "COMPLETED" || p.CardDetails.Card.Fingerprint == "" {
			continue
		}

		ts, err := time.Parse(time.RFC3339, p.CreatedAt)
		if err != nil {
			return nil, "", fmt.Errorf("listPayments: time.Parse: %w", err)
		}

		payments = append(payments, Payment{
			ID:          p.ID,
			LocationID:  p.LocationID,
			CardToken:   p.CardDetails.Card.Fingerprint,
			Amount:      decimal.New(p.AmountMoney.Amount, -2),
			Currency:    p.AmountMoney.Currency,
			CompletedAt: ts,
		})
	}

	return payments, reply.Cursor, nil
}
