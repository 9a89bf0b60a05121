package toast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	pubnub "github.com/pubnub/go/v7"
	"github.com/shopspring/decimal"

	"venuepass/internal/status"
)

type (
	Config struct {
		BaseURL   string `json:"baseUrl" mapstructure:"base_url"`
		ClientID  string `json:"clientId" mapstructure:"client_id"`
		ClientKey string `json:"clientKey" mapstructure:"client_key"`
		HMACKey   string `json:"hmacKey" mapstructure:"hmac_key"`

		PNSubKey    string `json:"pn_subkey" mapstructure:"pn_subkey"`
		PNSubSecret string `json:"pn_subsecret" mapstructure:"pn_subsecret"`
		PNUUID      string `json:"pn_uuid" mapstructure:"pn_uuid"`
		PNChannel   string `json:"pn_channel" mapstructure:"pn_channel"`
	}

	Toast struct {
		pnSubKey    string
		pnSubSecret string
		pnUUID      string
		pnChannels  []string

		hmacKey string

		sub *subscribe

		client *Client
	}
)

type (
	// payload is the shape of a closed-order notification pushed over PubNub.
	payload struct {
		GUID         string          `json:"guid"`
		RestaurantID string          `json:"restaurantGuid"`
		CardToken    string          `json:"cardToken"`
		Amount       decimal.Decimal `json:"amount"`
		Currency     string          `json:"currency"`
		PaidDate     string          `json:"paidDate"`
	}
)

// New returns a new Toast instance.
func New(ctx context.Context, cfg *Config) (*Toast, error) {
	client := newClient(ctx, &ClientConfig{
		BaseURL:   cfg.BaseURL,
		ClientID:  cfg.ClientID,
		ClientKey: cfg.ClientKey,
		HMACKey:   cfg.HMACKey,
	})

	// Connect to the Toast partner API. Get access token.
	token, err := client.connect(ctx)
	if err != nil {
		return nil, err
	}
	client.setAccessToken(token)

	// Notify access token expired.
	go client.notifyAccessTokenExpired(ctx)

	t := &Toast{
		pnSubKey:    cfg.PNSubKey,
		pnSubSecret: cfg.PNSubSecret,
		pnUUID:      cfg.PNUUID,
		pnChannels:  []string{cfg.PNChannel},

		hmacKey: cfg.HMACKey,

		client: client,
	}

	// Set Toast's PubNub config.
	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(t.pnUUID))
	pnCfg.SubscribeKey = t.pnSubKey
	pnCfg.SecretKey = t.pnSubSecret

	// newSubscription subscribes to Toast's PubNub channel.
	newSub, err := t.newSubscription(ctx, pnCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to Toast's PubNub channel: %v", err)
	}

	// Add listener to Toast's PubNub.
	newSub.pn.AddListener(newSub.lis)
	t.sub = newSub

	// Subscribe to the configured notification channel.
	tt := time.Now().Add(time.Duration(-2*time.Minute)).Unix() * 10000
	newSub.pn.Subscribe().Channels(t.pnChannels).Timetoken(tt).Execute()

	return t, nil
}

type subscribe struct {
	pn  *pubnub.PubNub
	lis *pubnub.Listener
	ch  chan *status.Transaction
}

func (t *Toast) newSubscription(ctx context.Context, pnCfg *pubnub.Config) (*subscribe, error) {
	sub := &subscribe{
		pn:  pubnub.NewPubNub(pnCfg),
		lis: pubnub.NewListener(),
	}

	go sub.processSubscription(ctx)

	return sub, nil
}

func (s *subscribe) processSubscription(ctx context.Context) error {
	listener := s.lis
	for {
		select {
		case st := <-listener.Status:
			switch st.Category {
			case pubnub.PNConnectedCategory:
				log.Println("connected to pubnub")

			case pubnub.PNReconnectedCategory:
				log.Println("reconnected to pubnub")

			case pubnub.PNDisconnectedCategory:
				log.Println("disconnected from pubnub")

			case pubnub.PNAccessDeniedCategory:
				log.Println("access denied connect to pubnub")

			case pubnub.PNTimeoutCategory:
				log.Println("timeout connect to pubnub")

			default:
				log.Println("pubnub status category: ", st.Category)
			}

		case message := <-listener.Message:
			log.Println("message received pubnub: ", message.Message)

			var p payload
			dec := json.NewDecoder(strings.NewReader(message.Message.(string)))
			if err := dec.Decode(&p); err != nil {
				log.Println(err)
				continue
			}

			tran, err := p.ToDomain()
			if err != nil {
				log.Println(err)
				continue
			}
			s.ch <- tran

		case <-ctx.Done():
			log.Println("close subscribe")
			return nil
		}
	}
}

func (p *payload) ToDomain() (*status.Transaction, error) {
	ts, err := time.Parse(time.RFC3339, p.PaidDate)
	if err != nil {
		return nil, err
	}

	return &status.Transaction{
		ProviderTxnID: p.GUID,
		VenueID:       p.RestaurantID,
		CardToken:     p.CardToken,
		Amount:        p.Amount.Shift(2).IntPart(),
		Currency:      p.Currency,
		OccurredAt:    ts,
	}, nil
}

func (t *Toast) SetTranChannel(ch chan *status.Transaction) {
	t.sub.ch = ch
}

// FetchOrders pulls the closed orders for a restaurant since the given time.
func (t *Toast) FetchOrders(ctx context.Context, restaurantID string, since time.Time) ([]Order, error) {
	return t.client.fetchOrders(ctx, restaurantID, since)
}

// VerifySignature checks the SignedHash header of a Toast webhook delivery.
func (t *Toast) VerifySignature(signature string, body []byte) bool {
	return VerifyHMAC([]byte(t.hmacKey), body, signature)
}

func (t *Toast) Unsubscribe(_ context.Context) {
	t.sub.pn.Unsubscribe().Channels(t.pnChannels).Execute()
}
