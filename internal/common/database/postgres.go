// Package database opens the datastores the wizard backend depends on:
// Postgres for recovery sessions, Redis for locks and caching, and an
// optional Elasticsearch cluster for blog search.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"divorce-wizard/internal/common/config"

	_ "github.com/lib/pq"
)

type PostgresClient struct {
	DB *sql.DB
}

// migrations run in order on every start; each statement must be idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS wizard_sessions (
	id                TEXT PRIMARY KEY,
	email             TEXT NOT NULL,
	phone             TEXT NOT NULL DEFAULT '',
	wizard_data       JSONB NOT NULL DEFAULT '{}'::jsonb,
	payment_status    TEXT NOT NULL DEFAULT 'pending',
	submission_status TEXT NOT NULL DEFAULT 'pending',
	folder_id         TEXT NOT NULL DEFAULT '',
	expires_at        TIMESTAMPTZ NOT NULL,
	reminders_sent    INTEGER NOT NULL DEFAULT 0,
	last_reminder_at  TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS wizard_sessions_reminder_idx
	ON wizard_sessions (submission_status, payment_status, expires_at)`,
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// Migrate creates the session table and its indexes inside one transaction.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: begin: %w", err)
	}
	for i, stmt := range migrations {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate: step %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
