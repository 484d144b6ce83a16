package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=workshop port=5432 sslmode=disable"

type Config struct {
	Env         string // "production" or "development"
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	DB     DBConfig
	Ledger LedgerConfig

	MetricsEnabled bool
}

// DBConfig holds connection pool sizing.
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LedgerConfig struct {
	// MaxBatchQuantity caps the quantity of a single purchased batch.
	MaxBatchQuantity int
	// ExclusiveActivation makes activating a batch deactivate its siblings.
	ExclusiveActivation bool
	// ReconcileCron is the cron expression for the reconciliation job; empty disables it.
	ReconcileCron string
}

// Load reads the environment (optionally seeded from envFile) and validates it.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	} else {
		// a missing .env is fine when the environment is set directly
		_ = godotenv.Load()
	}

	cfg := &Config{
		Env:         getEnv("APP_ENV", "production"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		DB: DBConfig{
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Ledger: LedgerConfig{
			MaxBatchQuantity:    getEnvInt("LEDGER_MAX_BATCH_QUANTITY", 2000),
			ExclusiveActivation: getEnvBool("LEDGER_EXCLUSIVE_ACTIVATION", true),
			ReconcileCron:       os.Getenv("LEDGER_RECONCILE_CRON"),
		},
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}
	if _, set := os.LookupEnv("LEDGER_RECONCILE_CRON"); !set {
		cfg.Ledger.ReconcileCron = "0 3 * * *"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures required settings are present and sane.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Env != "production" && c.Env != "development" {
		return fmt.Errorf("APP_ENV must be production or development, got %q", c.Env)
	}
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT must be provided")
	}
	if c.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN must be provided")
	}
	switch {
	case c.JWTSecret == "":
		return errors.New("JWT_SECRET must be provided")
	case len(c.JWTSecret) < 32:
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.Ledger.MaxBatchQuantity <= 0 {
		return errors.New("LEDGER_MAX_BATCH_QUANTITY must be positive")
	}
	if c.DB.MaxOpenConns <= 0 {
		return errors.New("DB_MAX_OPEN_CONNS must be positive")
	}
	if c.DB.MaxIdleConns > c.DB.MaxOpenConns {
		c.DB.MaxIdleConns = c.DB.MaxOpenConns
	}
	return nil
}

// UsesDefaultDSN reports whether the local development DSN is in effect.
func (c *Config) UsesDefaultDSN() bool {
	return c.DatabaseDSN == defaultDSN
}

// AllowedOrigins returns the CORS origins as a cleaned, comma-joined list.
func (c *Config) AllowedOrigins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}
