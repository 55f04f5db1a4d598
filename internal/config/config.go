package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/aabc-labs/solvo/pkg/validation"
)

type Config struct {
	Development bool
	// API configuration
	APIPort int
	// Postgres configuration
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	// Solana bridge configuration
	BridgeURL     string
	WalletAddress string
	// Payment configuration
	// MaxPaymentAmount is the hard spend ceiling. No transaction the gateway
	// initiates may exceed it, regardless of caller-supplied limits.
	MaxPaymentAmount decimal.Decimal
	// SigningWindow is how long a user wallet gets to sign a prepared
	// transaction. Solana blockhashes stay valid for roughly 60-90 seconds,
	// so 45s leaves margin for wallet latency and the submit round trip.
	SigningWindow time.Duration
	// HTTPTimeout bounds outbound HTTP calls (challenge probing, retry replay).
	HTTPTimeout time.Duration

	// Notification configuration
	TelegramBotToken string
	TelegramChatID   string

	// Well-known token registry configuration
	WellKnownURL string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:      getEnvAsBool("DEVELOPMENT", false),
		APIPort:          getEnvAsInt("API_PORT", 6402),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:       getEnv("POSTGRES_DB", "solvo"),
		BridgeURL:        getEnv("SOLANA_BRIDGE_URL", "http://localhost:3001"),
		WalletAddress:    getEnv("SOLANA_WALLET_ADDRESS", ""),
		MaxPaymentAmount: getEnvAsDecimal("X402_MAX_PAYMENT_AMOUNT", decimal.NewFromFloat(10.0)),
		SigningWindow:    getEnvAsDuration("X402_SIGNING_WINDOW", 45*time.Second),
		HTTPTimeout:      getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WellKnownURL:     getEnv("WELL_KNOWN_URL", ""),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.BridgeURL == "" {
		return fmt.Errorf("SOLANA_BRIDGE_URL is required")
	}

	if c.WalletAddress == "" {
		return fmt.Errorf("SOLANA_WALLET_ADDRESS is required")
	}

	if err := validation.ValidateAddress(c.WalletAddress); err != nil {
		return fmt.Errorf("invalid SOLANA_WALLET_ADDRESS: %w", err)
	}

	if !c.MaxPaymentAmount.IsPositive() {
		return fmt.Errorf("X402_MAX_PAYMENT_AMOUNT must be positive, got %s", c.MaxPaymentAmount)
	}

	if c.SigningWindow <= 0 {
		return fmt.Errorf("X402_SIGNING_WINDOW must be positive")
	}

	if c.PostgresDB == "" {
		return fmt.Errorf("POSTGRES_DB is required")
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}

	return nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDecimal(name string, defaultValue decimal.Decimal) decimal.Decimal {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := decimal.NewFromString(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
