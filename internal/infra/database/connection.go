package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// NewDBConnection opens the pool and pings it once.
func NewDBConnection(ctx context.Context, connString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

const actionSchema = `
CREATE TABLE IF NOT EXISTS lead_actions (
	id          UUID PRIMARY KEY,
	kind        TEXT NOT NULL,
	lead_id     BIGINT,
	action_key  TEXT NOT NULL,
	status      TEXT NOT NULL,
	message     TEXT,
	reason      TEXT,
	error_kind  TEXT,
	result      JSONB,
	created_at  TIMESTAMPTZ NOT NULL,
	settled_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS lead_actions_lead_id_idx ON lead_actions (lead_id);
`

// EnsureSchema creates the action journal table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, actionSchema); err != nil {
		return fmt.Errorf("create lead_actions: %w", err)
	}
	return nil
}
