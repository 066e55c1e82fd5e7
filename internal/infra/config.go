package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string

	TelegramBotToken string
	BotAPIBaseURL    string

	OpenAIAPIKey string
	OpenAIModel  string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceID       string
	FrontendURL         string
	StarsInvoiceLink    string

	FreeGenerationsPerDay    int
	ProGenerationsPerMonth   int
	QuotaTimezone            string
	ProPriceRub              int64
	SubscriptionPeriodMonths int

	CORSAllowedOrigins []string
	RateLimitPerMin    int
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		BotAPIBaseURL:    getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePriceID:       os.Getenv("STRIPE_PRICE_ID"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),
		StarsInvoiceLink:    os.Getenv("TELEGRAM_STARS_INVOICE_LINK"),

		FreeGenerationsPerDay:    getEnvInt("FREE_GENERATIONS_PER_DAY", 5),
		ProGenerationsPerMonth:   getEnvInt("PRO_GENERATIONS_PER_MONTH", 300),
		QuotaTimezone:            getEnv("QUOTA_TIMEZONE", "UTC"),
		ProPriceRub:              int64(getEnvInt("PRO_PRICE_RUB", 499)),
		SubscriptionPeriodMonths: getEnvInt("SUBSCRIPTION_PERIOD_MONTHS", 1),

		CORSAllowedOrigins: []string{getEnv("CORS_ORIGIN", "http://localhost:3000")},
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 100),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if _, err := time.LoadLocation(cfg.QuotaTimezone); err != nil {
		return nil, fmt.Errorf("QUOTA_TIMEZONE %q: %w", cfg.QuotaTimezone, err)
	}

	return cfg, nil
}

// QuotaLocation resolves the configured quota timezone. LoadConfig already
// validated it, so failures only happen for hand-built configs.
func (c *Config) QuotaLocation() (*time.Location, error) {
	return time.LoadLocation(c.QuotaTimezone)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
