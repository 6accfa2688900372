package store

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds Postgres connection and pool settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfigFromEnv loads Config from environment variables with
// production-ready defaults, mirroring the teacher's
// pkg/database/config.go.
func LoadConfigFromEnv() (Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("ENRICHPIPE_DB_PORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid ENRICHPIPE_DB_PORT: %w", err)
	}

	maxOpen, _ := strconv.Atoi(getEnvOrDefault("ENRICHPIPE_DB_MAX_OPEN_CONNS", "10"))
	maxIdle, _ := strconv.Atoi(getEnvOrDefault("ENRICHPIPE_DB_MAX_IDLE_CONNS", "5"))

	maxLifetime, err := time.ParseDuration(getEnvOrDefault("ENRICHPIPE_DB_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid ENRICHPIPE_DB_CONN_MAX_LIFETIME: %w", err)
	}
	maxIdleTime, err := time.ParseDuration(getEnvOrDefault("ENRICHPIPE_DB_CONN_MAX_IDLE_TIME", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid ENRICHPIPE_DB_CONN_MAX_IDLE_TIME: %w", err)
	}

	cfg := Config{
		Host:            getEnvOrDefault("ENRICHPIPE_DB_HOST", "localhost"),
		Port:            port,
		User:            getEnvOrDefault("ENRICHPIPE_DB_USER", "enrichpipe"),
		Password:        os.Getenv("ENRICHPIPE_DB_PASSWORD"),
		Database:        getEnvOrDefault("ENRICHPIPE_DB_NAME", "enrichpipe"),
		SSLMode:         getEnvOrDefault("ENRICHPIPE_DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: maxLifetime,
		ConnMaxIdleTime: maxIdleTime,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration is self-consistent.
func (c Config) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("ENRICHPIPE_DB_MAX_IDLE_CONNS (%d) cannot exceed ENRICHPIPE_DB_MAX_OPEN_CONNS (%d)",
			c.MaxIdleConns, c.MaxOpenConns)
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("ENRICHPIPE_DB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("ENRICHPIPE_DB_MAX_IDLE_CONNS cannot be negative")
	}
	return nil
}

// DSN builds the libpq-style connection string pgx's database/sql driver
// accepts.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
