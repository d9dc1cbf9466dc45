package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL        string `env:"DATABASE_URL"`
	Port               string `env:"PORT" envDefault:"8080"`
	GoEnv              string `env:"GO_ENV" envDefault:"development"`
	Auth0Domain        string `env:"AUTH0_DOMAIN"`
	Auth0Audience      string `env:"AUTH0_AUDIENCE"`
	AWSRegion          string `env:"AWS_REGION" envDefault:"ap-southeast-1"`
	AWSS3Bucket        string `env:"AWS_S3_BUCKET"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`

	Redis  RedisConfig
	Line   LineConfig
	Report ReportConfig
	Ledger LedgerConfig

	RateLimit          string   `env:"RATE_LIMIT" envDefault:"300-M"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// RedisConfig configures the commission summary cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL time.Duration `env:"COMMISSION_CACHE_TTL" envDefault:"2h"`
}

// LineConfig holds the LINE Messaging API credentials used for report pushes
type LineConfig struct {
	ChannelAccessToken string `env:"LINE_CHANNEL_ACCESS_TOKEN"`
	NotifyUserID       string `env:"LINE_NOTIFY_USER_ID"`
	APIBaseURL         string `env:"LINE_API_BASE_URL" envDefault:"https://api.line.me"`
}

// ReportConfig controls the scheduled daily report
type ReportConfig struct {
	Cron       string `env:"DAILY_REPORT_CRON" envDefault:"0 21 * * *"`
	Timezone   string `env:"REPORT_TIMEZONE" envDefault:"Asia/Bangkok"`
	CronSecret string `env:"CRON_SECRET"`
}

// LedgerConfig holds the money rules that are allowed to vary per deployment
type LedgerConfig struct {
	CardFeePercent float64 `env:"CARD_FEE_PERCENT" envDefault:"3"`
	// When set, only the order's assigned sales staff may confirm sales-side completion.
	SalesCompletionRequiresAssignedSales bool `env:"SALES_COMPLETION_REQUIRES_ASSIGNED_SALES" envDefault:"false"`
}

var appConfig *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	// Determine which environment file to load
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" {
		goEnv = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", goEnv)
	if err := godotenv.Load(envFile); err != nil {
		// Production sets variables directly, so missing files are fine
		if err := godotenv.Load(); err != nil {
			log.Printf("[config] No .env file found, using system environment variables")
		}
	} else {
		log.Printf("[config] Loaded configuration from %s", envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appConfig = cfg
	return cfg, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Ledger.CardFeePercent < 0 || c.Ledger.CardFeePercent > 100 {
		return fmt.Errorf("CARD_FEE_PERCENT must be between 0 and 100, got %v", c.Ledger.CardFeePercent)
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// GetDatabaseURL returns the database URL
func (c *Config) GetDatabaseURL() string {
	return c.DatabaseURL
}

// UsesSQLite reports whether DATABASE_URL points at a SQLite file rather than PostgreSQL
func (c *Config) UsesSQLite() bool {
	return strings.HasPrefix(c.DatabaseURL, "file:") || strings.HasSuffix(c.DatabaseURL, ".db")
}

// ReportLocation resolves the report timezone, falling back to UTC
func (c *Config) ReportLocation() *time.Location {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		log.Printf("[config] Unknown REPORT_TIMEZONE %q, using UTC", c.Report.Timezone)
		return time.UTC
	}
	return loc
}

// GetConfig returns the configuration loaded by Load, or defaults if Load was never called
func GetConfig() *Config {
	if appConfig == nil {
		cfg := &Config{}
		if err := env.Parse(cfg); err != nil {
			log.Printf("[config] Failed to parse default configuration: %v", err)
		}
		appConfig = cfg
	}
	return appConfig
}

// SetConfig replaces the process configuration (primarily for testing)
func SetConfig(cfg *Config) {
	appConfig = cfg
}
