package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

type Config struct {
	// HTTP Server
	Port         string
	SecureCookie bool

	// Database
	SQLiteDBPath string

	// Sessions
	SessionTTL time.Duration

	// AMQP (ledger export events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export (consumed by finbook-worker)
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Checkout provider
	CheckoutBaseURL   string
	CheckoutClientID  string
	CheckoutSecret    string
	SubscriptionPrice decimal.Decimal

	// Ledger policy
	PrimaryIncomeCategory string

	// Subscription lifecycle
	TrialDays int

	// Recurring worker schedules
	ReplicatorSpec  string
	ExpirySweepSpec string

	// Uploads
	UploadDir     string
	MaxUploadSize int64

	// Rate limiting
	RateLimitPerMinute int
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SecureCookie: getEnvBool("SECURE_COOKIE", false),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finbook.db"),

		SessionTTL: getEnvDuration("SESSION_TTL", 720*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finbook"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_export"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Ledger"),

		CheckoutBaseURL:   getEnv("CHECKOUT_BASE_URL", ""),
		CheckoutClientID:  getEnv("CHECKOUT_CLIENT_ID", ""),
		CheckoutSecret:    getEnv("CHECKOUT_SECRET", ""),
		SubscriptionPrice: getEnvDecimal("SUBSCRIPTION_PRICE", "9.99"),

		PrimaryIncomeCategory: getEnv("PRIMARY_INCOME_CATEGORY", "Salary"),

		TrialDays: getEnvInt("TRIAL_DAYS", 14),

		ReplicatorSpec:  getEnv("REPLICATOR_CRON", "0 6 * * *"),
		ExpirySweepSpec: getEnv("EXPIRY_SWEEP_CRON", "30 6 * * *"),

		UploadDir:     getEnv("UPLOAD_DIR", "./data/uploads"),
		MaxUploadSize: int64(getEnvInt("MAX_UPLOAD_SIZE", 5<<20)),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CheckoutBaseURL != "" {
		if parsedURL, err := url.Parse(c.CheckoutBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid checkout base URL '%s': %v", c.CheckoutBaseURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid checkout base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
		if c.CheckoutClientID == "" {
			errors = append(errors, "checkout client ID cannot be empty when checkout base URL is provided")
		}
		if c.CheckoutSecret == "" {
			errors = append(errors, "checkout secret cannot be empty when checkout base URL is provided")
		}
	}

	if c.SubscriptionPrice.LessThanOrEqual(decimal.Zero) {
		errors = append(errors, fmt.Sprintf("invalid subscription price %s: must be positive", c.SubscriptionPrice))
	}

	if strings.TrimSpace(c.PrimaryIncomeCategory) == "" {
		errors = append(errors, "primary income category cannot be empty")
	}

	if c.TrialDays < 1 {
		errors = append(errors, fmt.Sprintf("invalid trial days %d: must be at least 1", c.TrialDays))
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.ReplicatorSpec); err != nil {
		errors = append(errors, fmt.Sprintf("invalid replicator cron spec '%s': %v", c.ReplicatorSpec, err))
	}
	if _, err := parser.Parse(c.ExpirySweepSpec); err != nil {
		errors = append(errors, fmt.Sprintf("invalid expiry sweep cron spec '%s': %v", c.ExpirySweepSpec, err))
	}

	if c.MaxUploadSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be at least 1 byte", c.MaxUploadSize))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(defaultValue)
}
