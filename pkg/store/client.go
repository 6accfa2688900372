// Package store implements Persistence: idempotent upsert keyed by
// internal_id, with a deep merge of metadata_blob that never silently
// downgrades a prior successful enrichment (spec.md §4.11).
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

//go:embed migrations
var migrationsFS embed.FS

// Client wraps the pgx-backed *sql.DB and runs migrations on construction,
// grounded on pkg/database/client.go.
type Client struct {
	db *sql.DB
}

// NewClientFromDB wraps an already-open *sql.DB without running migrations,
// used by tests that manage their own schema (e.g. via testcontainers).
func NewClientFromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// NewClient opens a pooled connection to Postgres and applies pending
// migrations.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := runMigrations(db, cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Client{db: db}, nil
}

// DB returns the underlying connection pool, for health checks.
func (c *Client) DB() *sql.DB { return c.db }

// Close releases the connection pool.
func (c *Client) Close() error { return c.db.Close() }

func runMigrations(db *sql.DB, databaseName string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating postgres migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, databaseName, driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("applying migrations: %w", err)
	}

	// Only close the source; closing m would also close db via the shared
	// postgres.WithInstance driver, which would break the pool we return.
	return sourceDriver.Close()
}
