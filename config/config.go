package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration (app-side notifications)
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Ticketing configuration
	ReservationTTL   time.Duration
	ReservationSweep time.Duration
	EnforceEventLive bool

	// POS sync configuration
	POSPollInterval time.Duration
	POSFetchTimeout time.Duration
	POSMaxRetries   int

	// Provider credentials
	Toast  ToastConfig
	Square SquareConfig

	// Webhook ingress
	WebhookPort      string
	WebhookRateLimit int

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

type ToastConfig struct {
	BaseURL   string
	ClientID  string
	ClientKey string
	HMACKey   string

	PNSubKey    string
	PNSubSecret string
	PNUUID      string
	PNChannel   string
}

type SquareConfig struct {
	BaseURL       string
	AccessToken   string
	WebhookSecret string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Ticketing
		ReservationTTL:   getEnvAsDuration("RESERVATION_TTL", "10m"),
		ReservationSweep: getEnvAsDuration("RESERVATION_SWEEP_INTERVAL", "15s"),
		EnforceEventLive: getEnvAsBool("ENFORCE_EVENT_LIVE", false),

		// POS sync
		POSPollInterval: getEnvAsDuration("POS_POLL_INTERVAL", "1m"),
		POSFetchTimeout: getEnvAsDuration("POS_FETCH_TIMEOUT", "10s"),
		POSMaxRetries:   getEnvAsInt("POS_MAX_RETRIES", 3),

		Toast: ToastConfig{
			BaseURL:     getEnv("TOAST_BASE_URL", ""),
			ClientID:    getEnv("TOAST_CLIENT_ID", ""),
			ClientKey:   getEnv("TOAST_CLIENT_KEY", ""),
			HMACKey:     getEnv("TOAST_HMAC_KEY", ""),
			PNSubKey:    getEnv("TOAST_PN_SUBKEY", ""),
			PNSubSecret: getEnv("TOAST_PN_SUBSECRET", ""),
			PNUUID:      getEnv("TOAST_PN_UUID", ""),
			PNChannel:   getEnv("TOAST_PN_CHANNEL", ""),
		},

		Square: SquareConfig{
			BaseURL:       getEnv("SQUARE_BASE_URL", "https://connect.squareup.com"),
			AccessToken:   getEnv("SQUARE_ACCESS_TOKEN", ""),
			WebhookSecret: getEnv("SQUARE_WEBHOOK_SECRET", ""),
		},

		// Webhook ingress
		WebhookPort:      getEnv("WEBHOOK_PORT", "8091"),
		WebhookRateLimit: getEnvAsInt("WEBHOOK_RATE_LIMIT", 60),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
