package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Port            string
	Environment     string
	LogLevel        string
	StoreDriver     string // STORE_DRIVER: postgres (default) or memory for local runs
	Database        DatabaseConfig
	Payment         PaymentConfig
	Admin           AdminConfig
	BulkConcurrency int // BULK_CONCURRENCY: parallel single-row writes per bulk inventory batch
	SalesWindowDays int // SALES_WINDOW_DAYS: trailing window used by the inventory report
}

type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool // DB_AUTO_MIGRATE: apply embedded schema on server start
}

// DSN renders the lib/pq connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// PaymentConfig is used to call the payment authority (Stripe-compatible checkout sessions)
type PaymentConfig struct {
	BaseURL    string
	SecretKey  string
	Timeout    time.Duration
	MaxRetries int
}

// AdminConfig holds the bcrypt hash of the back-office API key. Empty disables /v1/admin.
type AdminConfig struct {
	APIKeyHash string
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	viper.AutomaticEnv()

	// .env is optional
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	timeout, err := time.ParseDuration(getEnvOrViper("PAYMENT_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYMENT_TIMEOUT: %w", err)
	}
	maxRetries, err := getIntEnvOrViper("PAYMENT_MAX_RETRIES", 2)
	if err != nil {
		return nil, err
	}
	bulk, err := getIntEnvOrViper("BULK_CONCURRENCY", 8)
	if err != nil {
		return nil, err
	}
	window, err := getIntEnvOrViper("SALES_WINDOW_DAYS", 30)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		StoreDriver: strings.ToLower(strings.TrimSpace(getEnvOrViper("STORE_DRIVER", StoreDriverPostgres))),
		Database: DatabaseConfig{
			Host:        getEnvOrViper("DB_HOST", "localhost"),
			Port:        getEnvOrViper("DB_PORT", "5432"),
			User:        getEnvOrViper("DB_USER", "postgres"),
			Password:    getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:      getEnvOrViper("DB_NAME", "labelapi"),
			SSLMode:     getEnvOrViper("DB_SSLMODE", "disable"),
			AutoMigrate: getEnvOrViper("DB_AUTO_MIGRATE", "false") == "true",
		},
		Payment: PaymentConfig{
			BaseURL:    strings.TrimRight(strings.TrimSpace(getEnvOrViper("PAYMENT_API_BASE_URL", "https://api.stripe.com")), "/"),
			SecretKey:  strings.TrimSpace(getEnvOrViper("PAYMENT_SECRET_KEY", "")),
			Timeout:    timeout,
			MaxRetries: maxRetries,
		},
		Admin: AdminConfig{
			APIKeyHash: strings.TrimSpace(getEnvOrViper("ADMIN_API_KEY_HASH", "")),
		},
		BulkConcurrency: bulk,
		SalesWindowDays: window,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver)
	}
	if u, err := url.Parse(c.Payment.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("PAYMENT_API_BASE_URL must be an absolute URL, got %q", c.Payment.BaseURL)
	}
	if c.Payment.Timeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT must be positive")
	}
	if c.Payment.MaxRetries < 0 {
		return fmt.Errorf("PAYMENT_MAX_RETRIES must not be negative")
	}
	if c.BulkConcurrency < 1 {
		return fmt.Errorf("BULK_CONCURRENCY must be at least 1")
	}
	if c.SalesWindowDays < 1 {
		return fmt.Errorf("SALES_WINDOW_DAYS must be at least 1")
	}
	return nil
}

// SalesWindow is the trailing duration covered by the inventory report
func (c *Config) SalesWindow() time.Duration {
	return time.Duration(c.SalesWindowDays) * 24 * time.Hour
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getIntEnvOrViper(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(getEnvOrViper(key, strconv.Itoa(defaultValue)))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}
