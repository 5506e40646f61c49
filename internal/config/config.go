package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BurntSushi/toml"

	"spendtracker/internal/log"
)

// Config is resolved in three layers: built-in defaults, then the optional
// TOML file named by CONFIG_FILE, then environment variables.
type Config struct {
	// HTTP Server
	Port string `toml:"port"`

	// Ledger
	LedgerBackend  string `toml:"ledger_backend"`
	CurrencySymbol string `toml:"currency_symbol"`

	// Logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	// AMQP events; empty URL disables publishing
	AMQPURL           string `toml:"amqp_url"`
	AMQPExchange      string `toml:"amqp_exchange"`
	AMQPRoutingPrefix string `toml:"amqp_routing_prefix"`

	RateLimitPerMinute int           `toml:"rate_limit_per_minute"`
	ReportCacheTTL     time.Duration `toml:"report_cache_ttl"`
	ShutdownTimeout    time.Duration `toml:"shutdown_timeout"`
}

var (
	validBackends   = []string{"memory", "sqlite"}
	validLogFormats = []string{"text", "json"}
)

func Defaults() Config {
	return Config{
		Port:               "8081",
		LedgerBackend:      "memory",
		CurrencySymbol:     "₹",
		LogLevel:           "info",
		LogFormat:          "text",
		AMQPExchange:       "spendtracker",
		AMQPRoutingPrefix:  "spendtracker",
		RateLimitPerMinute: 60,
		ReportCacheTTL:     10 * time.Minute,
		ShutdownTimeout:    10 * time.Second,
	}
}

// Load builds the configuration. It fails only when CONFIG_FILE is set and
// cannot be read or parsed; value problems are reported by Validate.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LedgerBackend = getEnv("LEDGER_BACKEND", cfg.LedgerBackend)
	cfg.CurrencySymbol = getEnv("CURRENCY_SYMBOL", cfg.CurrencySymbol)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.AMQPRoutingPrefix = getEnv("AMQP_ROUTING_PREFIX", cfg.AMQPRoutingPrefix)
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	cfg.ReportCacheTTL = getEnvDuration("REPORT_CACHE_TTL", cfg.ReportCacheTTL)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	return &cfg, nil
}

// EventsEnabled reports whether ledger events go to a broker.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.LedgerBackend) {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, validBackends))
	}

	if c.CurrencySymbol == "" {
		errors = append(errors, "currency symbol cannot be empty")
	} else if utf8.RuneCountInString(c.CurrencySymbol) > 8 {
		errors = append(errors, fmt.Sprintf("currency symbol '%s' is too long: at most 8 characters", c.CurrencySymbol))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level: %v", err))
	}
	if !slices.Contains(validLogFormats, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
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
	}

	if c.RateLimitPerMinute < 1 || c.RateLimitPerMinute > 10000 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be between 1 and 10000 requests per minute", c.RateLimitPerMinute))
	}

	if c.ReportCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: must be at least 1 second", c.ReportCacheTTL))
	}

	if c.ShutdownTimeout < time.Second || c.ShutdownTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be between 1 second and 5 minutes", c.ShutdownTimeout))
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
