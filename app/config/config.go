package config

import (
	"os"
	"strings"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"

	"github.com/matthgross1/message-intent-lab/app/models"
)

type Config struct {
	Server    ServerConfig
	DB        PostgresConfig
	Stripe    StripeConfig
	Anthropic AnthropicConfig
}

type ServerConfig struct {
	Addr string
	// BaseURL is the externally reachable origin, used for Stripe
	// success/cancel redirects.
	BaseURL      string
	CookieSecure bool
}

type PostgresConfig struct {
	Username string
	Password string
	URL      string
	Port     string
}

// Configured reports whether a Postgres connection should be attempted.
// Without it the server falls back to the in-memory ledger store.
func (p PostgresConfig) Configured() bool {
	return p.URL != ""
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// PackPrices maps a credit pack size to its Stripe price id.
	PackPrices map[int]string

	enabled bool
}

// Enabled reports whether purchasing is fully configured: secret key,
// webhook secret, and a price id for every pack size. Computed once at load.
func (s StripeConfig) Enabled() bool {
	return s.enabled
}

// NewStripeConfig builds a StripeConfig and computes its capability flag.
func NewStripeConfig(secretKey, webhookSecret string, packPrices map[int]string) StripeConfig {
	cfg := StripeConfig{
		SecretKey:     secretKey,
		WebhookSecret: webhookSecret,
		PackPrices:    packPrices,
	}
	cfg.enabled = cfg.SecretKey != "" && cfg.WebhookSecret != ""
	// Every offered pack needs a price id; a partial map would render
	// purchase buttons that cannot check out.
	for _, size := range models.CreditPackSizes {
		if cfg.PackPrices[size] == "" {
			cfg.enabled = false
		}
	}
	return cfg
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

func LoadConfig() (*Config, error) {
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8080"
	}

	model := os.Getenv("ANTHROPIC_MODEL")
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	stripeCfg := NewStripeConfig(
		os.Getenv("STRIPE_SECRET_KEY"),
		os.Getenv("STRIPE_WEBHOOK_SECRET"),
		map[int]string{
			10: os.Getenv("STRIPE_PRICE_PACK_10"),
			25: os.Getenv("STRIPE_PRICE_PACK_25"),
			50: os.Getenv("STRIPE_PRICE_PACK_50"),
		},
	)

	cfg := &Config{
		Server: ServerConfig{
			Addr:         addr,
			BaseURL:      strings.TrimRight(os.Getenv("BASE_URL"), "/"),
			CookieSecure: !strings.EqualFold(os.Getenv("COOKIE_INSECURE"), "true"),
		},
		DB: PostgresConfig{
			Username: os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PWD"),
			URL:      os.Getenv("POSTGRES_URL"),
			Port:     os.Getenv("POSTGRES_PORT"),
		},
		Stripe: stripeCfg,
		Anthropic: AnthropicConfig{
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:  model,
		},
	}

	return cfg, nil
}
