package square

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

var _ Square = (*square)(nil)

type (
	Config struct {
		BaseURL string `json:"base_url" mapstructure:"base_url"`

		AccessToken string `json:"access_token" mapstructure:"access_token"`

		WebhookSecret string `json:"webhook_secret" mapstructure:"webhook_secret"`
	}

	square struct {
		baseURL string

		// accessToken is the long-lived token used to authenticate with Square.
		accessToken string

		// webhookSecret is the signature key of the webhook subscription.
		webhookSecret string

		// hc is the http client.
		hc *http.Client
	}
)

// Payment is a completed card payment as returned by the Square payments API.
type Payment struct {
	ID          string          `json:"id"`
	LocationID  string          `json:"location_id"`
	CardToken   string          `json:"card_fingerprint"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	CompletedAt time.Time       `json:"completed_at"`
}

type Square interface {
	ListPayments(ctx context.Context, locationID string, since time.Time) ([]Payment, error)
	VerifySignature(signature string, body []byte) bool
}

// New creates new instance of Square client.
func New(_ context.Context, cfg *Config) (Square, error) {
	return &square{
		baseURL:       cfg.BaseURL,
		accessToken:   cfg.AccessToken,
		webhookSecret: cfg.WebhookSecret,

		// set http client with timeout.
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}
