package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"cashbook/internal/auth"
	"cashbook/internal/core"
)

type Config struct {
	// HTTP Server
	Port           string
	MaxUploadBytes int64

	// Backend selection
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string

	// AMQP (optional; empty URL disables events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Attachments
	AttachmentBackend string
	AttachmentDir     string
	GCSBucket         string

	// Amount extraction
	Extractor       string
	GeminiModel     string
	ExtractCacheTTL time.Duration

	// Reports
	ReportMonthWindow int
	CurrencyLocale    string
	CategoryCacheTTL  time.Duration

	// Google Sheets import source
	GoogleSpreadsheetID string
	GoogleImportRange   string

	// Middleware
	RateLimitRPS   float64
	RateLimitBurst int
	AuthUsers      string
	TrustedProxies []string

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	validBackends           = []string{"memory", "postgres", "sqlite"}
	validAttachmentBackends = []string{"gcs", "local"}
	validExtractors         = []string{"gemini", "none"}
	validLogLevels          = []string{"debug", "info", "warn", "error"}
	validLogFormats         = []string{"json", "text"}
)

// Getter reads a configuration value by its environment key.
type Getter func(key string) string

// Load reads the configuration from the process environment.
func Load() *Config {
	return LoadWith(os.Getenv)
}

// LoadWith reads the configuration through get, which lets the CLI layer flags
// and config files over the environment.
func LoadWith(get Getter) *Config {
	e := env{get: get}
	return &Config{
		Port:           e.str("PORT", "8081"),
		MaxUploadBytes: int64(e.integer("MAX_UPLOAD_BYTES", 10<<20)),

		DataBackend:  e.str("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: e.str("SQLITE_DB_PATH", "./data/cashbook.db"),
		DatabaseURL:  e.str("DATABASE_URL", ""),

		AMQPURL:      e.str("AMQP_URL", ""),
		AMQPExchange: e.str("AMQP_EXCHANGE", "cashbook"),
		AMQPQueue:    e.str("AMQP_QUEUE", "ledger_events"),

		AttachmentBackend: e.str("ATTACHMENT_BACKEND", "local"),
		AttachmentDir:     e.str("ATTACHMENT_DIR", "./data/uploads"),
		GCSBucket:         e.str("GCS_BUCKET", ""),

		Extractor:       e.str("EXTRACTOR", "none"),
		GeminiModel:     e.str("GEMINI_MODEL", ""),
		ExtractCacheTTL: e.duration("EXTRACT_CACHE_TTL", 15*time.Minute),

		ReportMonthWindow: e.integer("REPORT_MONTH_WINDOW", 6),
		CurrencyLocale:    e.str("CURRENCY_LOCALE", "pt-BR"),
		CategoryCacheTTL:  e.duration("CATEGORY_CACHE_TTL", time.Hour),

		GoogleSpreadsheetID: e.str("GOOGLE_SPREADSHEET_ID", ""),
		GoogleImportRange:   e.str("GOOGLE_IMPORT_RANGE", "Import!A:E"),

		RateLimitRPS:   e.number("RATE_LIMIT_RPS", 10),
		RateLimitBurst: e.integer("RATE_LIMIT_BURST", 20),
		AuthUsers:      e.str("AUTH_USERS", ""),
		TrustedProxies: e.list("TRUSTED_PROXIES"),

		LogLevel:  strings.ToLower(e.str("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(e.str("LOG_FORMAT", "text")),
	}
}

// Currency returns the configured display format.
func (c *Config) Currency() core.CurrencyFormat {
	f, _ := core.CurrencyFormatFor(c.CurrencyLocale)
	return f
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(filepath.Dir(c.SQLiteDBPath)); msg != "" {
			errors = append(errors, "cannot create SQLite database directory "+msg)
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL '%s': must be a postgres:// URL", redact(c.DatabaseURL)))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", redact(c.AMQPURL), err))
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

	if !slices.Contains(validAttachmentBackends, c.AttachmentBackend) {
		errors = append(errors, fmt.Sprintf("invalid attachment backend '%s': must be one of %v", c.AttachmentBackend, validAttachmentBackends))
	}
	if c.AttachmentBackend == "gcs" && c.GCSBucket == "" {
		errors = append(errors, "GCS_BUCKET is required when using gcs attachment backend")
	}
	if c.AttachmentBackend == "local" && c.AttachmentDir == "" {
		errors = append(errors, "attachment directory cannot be empty when using local attachment backend")
	}

	if !slices.Contains(validExtractors, c.Extractor) {
		errors = append(errors, fmt.Sprintf("invalid extractor '%s': must be one of %v", c.Extractor, validExtractors))
	}
	if c.ExtractCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid extract cache ttl %v: must not be negative", c.ExtractCacheTTL))
	}

	if c.ReportMonthWindow < 1 || c.ReportMonthWindow > 120 {
		errors = append(errors, fmt.Sprintf("invalid report month window %d: must be between 1 and 120", c.ReportMonthWindow))
	}
	if _, ok := core.CurrencyFormatFor(c.CurrencyLocale); !ok {
		errors = append(errors, fmt.Sprintf("invalid currency locale '%s': must be pt-BR or en-US", c.CurrencyLocale))
	}

	if c.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}
	if c.MaxUploadBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be at least 1024 bytes", c.MaxUploadBytes))
	}
	for _, cidr := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR prefix", cidr))
		}
	}
	if _, err := auth.ParseUsers(c.AuthUsers); err != nil {
		errors = append(errors, err.Error())
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ensureDir creates dir when missing and returns a message on failure.
func ensureDir(dir string) string {
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Sprintf("'%s': %v", dir, err)
		}
	}
	return ""
}

// redact hides the password of a connection URL.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

type env struct {
	get Getter
}

func (e env) str(key, defaultValue string) string {
	if value := strings.TrimSpace(e.get(key)); value != "" {
		return value
	}
	return defaultValue
}

func (e env) list(key string) []string {
	var out []string
	for _, v := range strings.Split(e.get(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (e env) integer(key string, defaultValue int) int {
	if value := e.get(key); value != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return defaultValue
}

func (e env) number(key string, defaultValue float64) float64 {
	if value := e.get(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func (e env) duration(key string, defaultValue time.Duration) time.Duration {
	if value := e.get(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}
