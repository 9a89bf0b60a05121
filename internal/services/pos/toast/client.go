package toast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type ClientConfig struct {
	BaseURL   string `json:"baseUrl" mapstructure:"base_url"`
	ClientID  string `json:"clientId" mapstructure:"client_id"`
	ClientKey string `json:"clientKey" mapstructure:"client_key"`
	HMACKey   string `json:"hmacKey" mapstructure:"hmac_key"`
}

type Client struct {
	// baseURL is the base url of the Toast partner API.
	baseURL string

	// clientID is the client id of the Toast partner API.
	clientID string

	// clientKey is the client key of the Toast partner API.
	clientKey string

	// hmacKey is the hmac key used to sign requests.
	hmacKey string

	// accessToken is used to authenticate with the Toast partner API.
	accessToken string

	// mu is used to lock access token.
	mu sync.Mutex

	// toggleTokenRefresher is used to notify token refresher to refresh token.
	toggleTokenRefresher chan struct{}

	// hc is the http client.
	hc *http.Client
}

// newClient creates new instance of Toast client.
func newClient(_ context.Context, c *ClientConfig) *Client {
	return &Client{
		baseURL:   c.BaseURL,
		clientID:  c.ClientID,
		clientKey: c.ClientKey,
		hmacKey:   c.HMACKey,

		// make a buffered channel to avoid blocking.
		toggleTokenRefresher: make(chan struct{}, 1),

		// set http client with timeout.
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// notifyAccessTokenExpired does an infinite loop with a period of time
// to perform auto renew token from the Toast partner API with an
// exponential backOff strategy.
func (c *Client) notifyAccessTokenExpired(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return

		case <-ticker.C:

		case <-c.toggleTokenRefresher:
			log.Println("notifyAccessTokenExpired: toggleTokenRefresher => token refreshed")
		}

		// reconnect with exponential backOff strategy
		backOff := time.Second

	Retry:
		for {
			token, err := c.connect(ctx)
			switch err {
			case nil:
				c.setAccessToken(token)

				break Retry

			default:
				log.Printf("notifyAccessTokenExpired: %v", err)
				select {
				case <-ctx.Done():
					return

				case <-time.After(backOff):
					backOff *= 2
				}
			}
		}
	}
}

// setAccessToken set access token to client.
func (c *Client) setAccessToken(accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
}

// getAccessToken get access token from client.
func (c *Client) getAccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// connect makes http call to perform authentication with the Toast partner API.
func (c *Client) connect(ctx context.Context) (string, error) {
	number, err := randomNumber()
	if err != nil {
		return "", fmt.Errorf("connectToast: randomNumber: %v", err)
	}

	body := fmt.Sprintf(`{"requestId":%q,"clientId":%q,"clientSecret":%q,"userAccessType":"TOAST_MACHINE_CLIENT"}`, number, c.clientID, c.clientKey)
	bodyReader := bytes.NewReader([]byte(body))

	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s%s", _baseURL.String(), `/authentication/v1/authentication/login`), bodyReader)
	if err != nil {
		return "", fmt.Errorf("connectToast: http.NewReq: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("SignedHash", Hmac256([]byte(body), []byte(c.hmacKey)))

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("connectToast: http.Do: %v", err)
	}
	defer resp.Body.Close()

	// toggle token refresher if unauthorized
	if resp.StatusCode == http.StatusUnauthorized {
		c.toggleTokenRefresher <- struct{}{}
		return "", errors.New("connectToast: resp.StatusCode: 401 => Unauthorized")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("connectToast: resp.StatusCode: %v", resp.StatusCode)
	}

	var reply struct {
		Status string `json:"status"`
		Token  struct {
			AccessToken string `json:"accessToken"`
			TokenType   string `json:"tokenType"`
		} `json:"token"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return "", fmt.Errorf("connectToast: json.Decode: %v", err)
	}
	if reply.Status != "SUCCESS" {
		return "", fmt.Errorf("connectToast: reply.Status: %v", reply.Status)
	}

	accessToken := fmt.Sprintf("%s %s", reply.Token.TokenType, reply.Token.AccessToken)
	return accessToken, nil
}

// Order is a closed card-present order as returned by the Toast orders API.
type Order struct {
	GUID       string          `json:"guid"`
	CardToken  string          `json:"cardToken"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	ClosedDate string          `json:"closedDate"`
}

// fetchOrders gets the closed orders for a restaurant since the given time.
func (c *Client) fetchOrders(ctx context.Context, restaurantID string, since time.Time) ([]Order, error) {
	_baseURL, _ := url.Parse(c.baseURL)
	endpoint := fmt.Sprintf("%s/orders/v2/ordersBulk?startDate=%s", _baseURL.String(), url.QueryEscape(since.UTC().Format(time.RFC3339)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fetchOrders: http.NewReq: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.getAccessToken())
	req.Header.Set("Toast-Restaurant-External-ID", restaurantID)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetchOrders: http.Do: %v", err)
	}
	defer resp.Body.Close()

	// toggle token refresher if unauthorized
	if resp.StatusCode == http.StatusUnauthorized {
		c.toggleTokenRefresher <- struct{}{}
		return nil, errors.New("fetchOrders: resp.StatusCode: 401 => Unauthorized")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetchOrders: resp.StatusCode: %v", resp.StatusCode)
	}

	var reply struct {
		Status string  `json:"status"`
		Orders []Order `json:"orders"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return nil, fmt.Errorf("fetchOrders: json.Decode: %v", err)
	}

	return reply.Orders, nil
}
