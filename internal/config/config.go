package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Data      DataConfig
	Logger    LoggerConfig
	Security  SecurityConfig
	Analytics AnalyticsConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DataConfig struct {
	SalesCSV    string
	RegistryCSV string
	Delimiter   rune
	LoadTimeout time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

type AnalyticsConfig struct {
	IgnoreSentinelCustomer bool
	SentinelCustomerID     int64
	DefaultTopN            int
	TurnoverTopK           int
	Locale                 string
	PurchaseCount          string
	CacheMaxEntries        int64
}

// Load reads the configuration from the environment. A .env file in the
// working directory, when present, fills variables that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8501),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Data: DataConfig{
			SalesCSV:    getEnvString("SALES_CSV", "data/vendas.csv"),
			RegistryCSV: getEnvString("REGISTRY_CSV", "data/cadastro.csv"),
			Delimiter:   getEnvRune("CSV_DELIMITER", ';'),
			LoadTimeout: getEnvDuration("CSV_LOAD_TIMEOUT", 30*time.Second),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 20),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8501"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
		Analytics: AnalyticsConfig{
			IgnoreSentinelCustomer: getEnvBool("IGNORE_SENTINEL_CUSTOMER", true),
			SentinelCustomerID:     int64(getEnvInt("SENTINEL_CUSTOMER_ID", 99999)),
			DefaultTopN:            getEnvInt("DEFAULT_TOP_N", 10),
			TurnoverTopK:           getEnvInt("TURNOVER_TOP_K", 50),
			Locale:                 getEnvString("LOCALE", "pt-BR"),
			PurchaseCount:          getEnvString("PURCHASE_COUNT", "invoices"),
			CacheMaxEntries:        int64(getEnvInt("CACHE_MAX_ENTRIES", 1024)),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Data.SalesCSV == "" {
		return fmt.Errorf("sales CSV path cannot be empty")
	}

	if c.Data.RegistryCSV == "" {
		return fmt.Errorf("registry CSV path cannot be empty")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Analytics.DefaultTopN < 1 {
		return fmt.Errorf("default top N must be at least 1")
	}

	if c.Analytics.TurnoverTopK < 1 {
		return fmt.Errorf("turnover top K must be at least 1")
	}

	validCounts := []string{"invoices", "rows"}
	if !slices.Contains(validCounts, c.Analytics.PurchaseCount) {
		return fmt.Errorf("invalid purchase count %q, must be one of: %s", c.Analytics.PurchaseCount, strings.Join(validCounts, ", "))
	}

	if c.Analytics.CacheMaxEntries < 0 {
		return fmt.Errorf("cache max entries cannot be negative")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// getEnvRune reads a single-character value; "\t" and "tab" mean a tab.
func getEnvRune(key string, defaultValue rune) rune {
	value := os.Getenv(key)
	switch value {
	case "":
		return defaultValue
	case `\t`, "tab":
		return '\t'
	}
	r := []rune(value)
	if len(r) != 1 {
		return defaultValue
	}
	return r[0]
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
