package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config carries every environment-level option the service recognizes.
type Config struct {
	// HTTP server
	Port string

	// Input guard
	AllowedUsers    []string // empty = unrestricted
	RateLimitMsgs   int
	RateLimitWindow time.Duration
	MaxTextLength   int

	// Extraction
	MaxAmount decimal.Decimal
	GroqAPIKey string
	GroqURL    string
	GroqModel  string

	// Reporting
	ReportHour       int
	Timezone         string
	ReportWebhookURL string // optional; scheduled reports are logged when unset

	// Storage
	DataBackend  string
	SQLiteDBPath string
	PostgresDSN  string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export (worker)
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		AllowedUsers:    splitList(getEnv("ALLOWED_USERS", "")),
		RateLimitMsgs:   getEnvInt("RATE_LIMIT_MSGS", 5),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		MaxTextLength:   getEnvInt("MAX_TEXT_LENGTH", 500),

		MaxAmount:  getEnvDecimal("MAX_AMOUNT", decimal.NewFromInt(1_000_000)),
		GroqAPIKey: getEnv("GROQ_API_KEY", ""),
		GroqURL:    getEnv("GROQ_URL", "https://api.groq.com/openai/v1/chat/completions"),
		GroqModel:  getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),

		ReportHour:       getEnvInt("REPORT_HOUR", 23),
		Timezone:         getEnv("TIMEZONE", "America/Sao_Paulo"),
		ReportWebhookURL: getEnv("REPORT_WEBHOOK_URL", ""),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/grana.db"),
		PostgresDSN:  getEnv("DATABASE_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "grana"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "entry_events"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Entries"),
	}

	return cfg
}

// Location resolves the configured zone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks the configuration, collecting every problem into one error.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitMsgs < 1 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must be at least 1 message", c.RateLimitMsgs))
	}
	if c.RateLimitWindow < time.Second {
		problems = append(problems, fmt.Sprintf("invalid rate window %v: must be at least 1 second", c.RateLimitWindow))
	}
	if c.MaxTextLength < 1 {
		problems = append(problems, fmt.Sprintf("invalid max text length %d", c.MaxTextLength))
	}
	if !c.MaxAmount.IsPositive() {
		problems = append(problems, fmt.Sprintf("invalid max amount %s: must be positive", c.MaxAmount))
	}

	if c.ReportHour < 0 || c.ReportHour > 23 {
		problems = append(problems, fmt.Sprintf("invalid report hour %d: must be 0-23", c.ReportHour))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			problems = append(problems, "DATABASE_URL is required when using postgres backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite postgres]", c.DataBackend))
	}

	if c.ReportWebhookURL != "" {
		if parsed, err := url.Parse(c.ReportWebhookURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			problems = append(problems, fmt.Sprintf("invalid report webhook URL '%s'", c.ReportWebhookURL))
		}
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// AllowAll reports whether the allowlist is unrestricted.
func (c *Config) AllowAll() bool {
	return len(c.AllowedUsers) == 0
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
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

// getEnvDuration accepts either a Go duration ("90s") or a bare number of
// seconds, which is how the variable was historically set.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
